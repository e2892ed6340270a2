package recording

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smazurov/framenode/internal/frame"
)

// Writer is an open recording output.
type Writer interface {
	Write(f *frame.Frame) error
	Close() error
}

// WriterSpec describes the output a WriterFactory must open.
type WriterSpec struct {
	Path   string
	Width  int
	Height int
	FPS    float64
	Codec  string
}

// WriterFactory opens a Writer. It must return an error instead of a writer
// that silently drops frames.
type WriterFactory func(spec WriterSpec) (Writer, error)

const timestampLayout = "20060102_150405"

// FileName returns the base name of a recording for stream index at t.
func FileName(index int, t time.Time, ext string) string {
	return fmt.Sprintf("stream%d_%s%s", index+1, t.Format(timestampLayout), ext)
}

// uniquePath returns a path in dir that neither exists on disk nor was handed
// out before. Recordings started within the same second get a numeric suffix.
func uniquePath(dir string, index int, t time.Time, ext string, used map[string]struct{}) string {
	base := FileName(index, t, "")
	candidate := filepath.Join(dir, base+ext)
	for k := 1; ; k++ {
		_, seen := used[candidate]
		if _, err := os.Stat(candidate); !seen && os.IsNotExist(err) {
			return candidate
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, k, ext))
	}
}
