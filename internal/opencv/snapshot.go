package opencv

import (
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/smazurov/framenode/internal/frame"
)

// Snapshotter keeps the most recent snapshot of each stream as
// <dir>/stream<N>.jpg.
type Snapshotter struct {
	dir string
}

// NewSnapshotter creates dir if needed.
func NewSnapshotter(dir string) (*Snapshotter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}
	return &Snapshotter{dir: dir}, nil
}

// Path returns the snapshot file of stream.
func (s *Snapshotter) Path(stream int) string {
	return filepath.Join(s.dir, fmt.Sprintf("stream%d.jpg", stream+1))
}

// Snapshot encodes f as JPEG. The file is replaced atomically so readers
// never observe a partial image.
func (s *Snapshotter) Snapshot(stream int, f *frame.Frame) error {
	m, err := toMat(f)
	if err != nil {
		return err
	}
	defer m.Close()

	final := s.Path(stream)
	tmp := filepath.Join(s.dir, fmt.Sprintf(".stream%d.tmp.jpg", stream+1))
	if !gocv.IMWrite(tmp, m) {
		return fmt.Errorf("write snapshot %s", tmp)
	}
	return os.Rename(tmp, final)
}
