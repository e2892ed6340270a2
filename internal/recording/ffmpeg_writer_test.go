package recording

import (
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/framenode/internal/frame"
	"github.com/smazurov/framenode/internal/process"
)

func TestFFmpegWriterEncodesFrames(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "stream1_20250127_103000.avi")

	w, err := NewFFmpegWriter(logger)(WriterSpec{Path: path, Width: 32, Height: 16, FPS: 10, Codec: "XVID"})
	require.NoError(t, err)

	err = w.Write(frame.New(8, 8))
	assert.ErrorContains(t, err, "does not match recording 32x16")

	for seq := range 5 {
		f := frame.New(32, 16)
		f.Seq = uint64(seq)
		f.SetPixel(seq, seq, 255, 0, 0)
		require.NoError(t, w.Write(f), "writer stays usable after a rejected frame")
	}
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestFFmpegWriterCloseReportsExitCode(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := process.NewPipe("record-test", `sh -c "cat >/dev/null; exit 3"`, process.ModeWrite, logger)
	require.NoError(t, p.Start())

	w := &ffmpegWriter{pipe: p, width: 4, height: 4}
	require.NoError(t, w.Write(frame.New(4, 4)))

	err := w.Close()
	assert.ErrorContains(t, err, "encoder exited with code 3")
}

func TestFFmpegWriterRejectsInvalidSpec(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewFFmpegWriter(logger)(WriterSpec{Path: "", Width: 32, Height: 16, FPS: 10})
	assert.Error(t, err)

	_, err = NewFFmpegWriter(logger)(WriterSpec{Path: filepath.Join(t.TempDir(), "x.avi"), Width: 0, Height: 16, FPS: 10})
	assert.Error(t, err)
}
