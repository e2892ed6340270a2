package opencv

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/smazurov/framenode/internal/frame"
	"github.com/smazurov/framenode/internal/options"
	"github.com/smazurov/framenode/internal/pipeline"
)

const defaultOpenWait = 10 * time.Second

// Capture reads frames through cv::VideoCapture. The URI may be a file,
// a network URL or a GStreamer pipeline.
//
// Options:
//   - open_wait (int seconds): wait for a file URI to appear, default 10
//   - throttle (bool): limit reads to the stream frame rate, default true
type Capture struct {
	uri      string
	width    int
	height   int
	interval time.Duration
	openWait time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	cap      *gocv.VideoCapture
	img      gocv.Mat
	lastRead time.Time
	released atomic.Bool
}

// NewCapture creates an unopened capture source for cfg.
func NewCapture(cfg pipeline.StreamConfig, logger *slog.Logger) (*Capture, error) {
	if cfg.SourceURI == "" {
		return nil, fmt.Errorf("opencv source %s: uri is required", cfg.Name())
	}
	opts := options.Map(cfg.SourceOptions)
	waitSec, err := opts.Int("open_wait", int(defaultOpenWait/time.Second))
	if err != nil {
		return nil, err
	}
	throttle, err := opts.Bool("throttle", true)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Capture{
		uri:      cfg.SourceURI,
		width:    cfg.Width,
		height:   cfg.Height,
		openWait: time.Duration(waitSec) * time.Second,
		logger:   logger,
	}
	if throttle && cfg.FPS > 0 {
		c.interval = time.Duration(float64(time.Second) / cfg.FPS)
	}
	return c, nil
}

func isFileURI(uri string) bool {
	return !strings.Contains(uri, "://") && !strings.Contains(uri, "!")
}

// Start waits for file inputs to exist and opens the capture.
func (c *Capture) Start() error {
	if isFileURI(c.uri) {
		deadline := time.Now().Add(c.openWait)
		for {
			if _, err := os.Stat(c.uri); err == nil {
				break
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("capture input not found: %s", c.uri)
			}
			c.logger.Debug("Waiting for capture input", "uri", c.uri)
			time.Sleep(time.Second)
		}
	}

	vc, err := gocv.OpenVideoCapture(c.uri)
	if err != nil {
		return fmt.Errorf("open capture %s: %w", c.uri, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("capture is not opened: %s", c.uri)
	}
	vc.Set(gocv.VideoCaptureBufferSize, 1)

	c.mu.Lock()
	c.cap = vc
	c.img = gocv.NewMat()
	c.mu.Unlock()

	c.logger.Info("Capture opened",
		"uri", c.uri,
		"fps", vc.Get(gocv.VideoCaptureFPS),
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight))
	return nil
}

// ReadFrame returns the next frame resized to the stream geometry, or nil
// when the capture has nothing to deliver.
func (c *Capture) ReadFrame() *frame.Frame {
	if c.released.Load() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cap == nil {
		return nil
	}

	if c.interval > 0 {
		if wait := c.interval - time.Since(c.lastRead); wait > 0 {
			time.Sleep(wait)
		}
	}
	ok := c.cap.Read(&c.img)
	c.lastRead = time.Now()
	if !ok || c.img.Empty() || c.img.Channels() != 3 {
		return nil
	}

	if c.img.Cols() != c.width || c.img.Rows() != c.height {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(c.img, &resized, image.Pt(c.width, c.height), 0, 0, gocv.InterpolationLinear)
		return c.toFrame(resized)
	}
	return c.toFrame(c.img)
}

func (c *Capture) toFrame(m gocv.Mat) *frame.Frame {
	f, err := fromMat(m, nil)
	if err != nil {
		c.logger.Debug("Dropping unreadable capture frame", "error", err)
		return nil
	}
	f.Captured = c.lastRead
	return f
}

// Release closes the capture after any in-flight read completes.
func (c *Capture) Release() error {
	if c.released.Swap(true) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cap == nil {
		return nil
	}
	err := c.cap.Close()
	c.img.Close()
	c.cap = nil
	return err
}
