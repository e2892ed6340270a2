package opencv

import (
	"image"
	"image/color"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/smazurov/framenode/internal/frame"
	"github.com/smazurov/framenode/internal/options"
)

const (
	// Foreground pixels from MOG2 are 255, shadows 127.
	foregroundThreshold = 244
	morphKernelSize     = 3
)

var (
	bboxColor = color.RGBA{0, 255, 0, 0}
	maskColor = color.RGBA{0, 0, 255, 0}
)

// MotionConfig holds the motion_detection options.
type MotionConfig struct {
	MinContourArea   float64
	Threshold        float64
	History          int
	DilateIterations int
	ErodeIterations  int
	DetectShadows    bool
	DrawBBox         bool
	DrawMask         bool
	MaskRect         *image.Rectangle
	// LogEvery logs the region count once per this many frames.
	LogEvery int
}

// DefaultMotionConfig returns the defaults applied before options.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		MinContourArea:   500,
		Threshold:        16,
		History:          500,
		DilateIterations: 2,
		DetectShadows:    true,
		DrawBBox:         true,
		LogEvery:         30,
	}
}

// ParseMotionConfig applies opts over the defaults.
func ParseMotionConfig(opts map[string]any) (MotionConfig, error) {
	o := options.Map(opts)
	cfg := DefaultMotionConfig()
	var err error

	if cfg.MinContourArea, err = o.Float("min_contour_area", cfg.MinContourArea); err != nil {
		return cfg, err
	}
	if cfg.Threshold, err = o.Float("threshold", cfg.Threshold); err != nil {
		return cfg, err
	}
	if cfg.History, err = o.Int("history", cfg.History); err != nil {
		return cfg, err
	}
	if cfg.DilateIterations, err = o.Int("dilate_iterations", cfg.DilateIterations); err != nil {
		return cfg, err
	}
	if cfg.ErodeIterations, err = o.Int("erode_iterations", cfg.ErodeIterations); err != nil {
		return cfg, err
	}
	if cfg.DetectShadows, err = o.Bool("detect_shadows", cfg.DetectShadows); err != nil {
		return cfg, err
	}
	if cfg.DrawBBox, err = o.Bool("draw_bbox", cfg.DrawBBox); err != nil {
		return cfg, err
	}
	if cfg.DrawMask, err = o.Bool("draw_mask", cfg.DrawMask); err != nil {
		return cfg, err
	}
	if cfg.LogEvery, err = o.Int("log_every", cfg.LogEvery); err != nil {
		return cfg, err
	}
	rect, ok, err := o.Ints("mask_rect", 4)
	if err != nil {
		return cfg, err
	}
	if ok {
		r := image.Rect(rect[0], rect[1], rect[0]+rect[2], rect[1]+rect[3])
		cfg.MaskRect = &r
	}
	return cfg, nil
}

// Motion detects moving regions with MOG2 background subtraction and
// draws their bounding boxes.
type Motion struct {
	cfg    MotionConfig
	logger *slog.Logger

	subtractor *gocv.BackgroundSubtractorMOG2
	kernel     gocv.Mat
	frames     int
	lastCount  int
}

// NewMotion returns an unconfigured motion processor.
func NewMotion(logger *slog.Logger) *Motion {
	if logger == nil {
		logger = slog.Default()
	}
	return &Motion{logger: logger}
}

func (m *Motion) Configure(opts map[string]any) error {
	cfg, err := ParseMotionConfig(opts)
	if err != nil {
		return err
	}
	m.cfg = cfg
	mog := gocv.NewBackgroundSubtractorMOG2WithParams(cfg.History, cfg.Threshold, cfg.DetectShadows)
	m.subtractor = &mog
	m.kernel = gocv.GetStructuringElement(gocv.MorphRect, image.Pt(morphKernelSize, morphKernelSize))
	m.logger.Debug("Motion detection initialized",
		"min_area", cfg.MinContourArea,
		"threshold", cfg.Threshold,
		"history", cfg.History,
		"shadows", cfg.DetectShadows)
	return nil
}

// Regions returns the number of regions found in the last processed frame.
func (m *Motion) Regions() int {
	return m.lastCount
}

func (m *Motion) Process(f *frame.Frame) (*frame.Frame, error) {
	if m.subtractor == nil {
		return f, nil
	}

	img, err := toMat(f)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	input := img
	if m.cfg.MaskRect != nil {
		mask := gocv.Zeros(img.Rows(), img.Cols(), gocv.MatTypeCV8U)
		defer mask.Close()
		gocv.Rectangle(&mask, *m.cfg.MaskRect, color.RGBA{255, 255, 255, 0}, -1)

		masked := gocv.Zeros(img.Rows(), img.Cols(), gocv.MatTypeCV8UC3)
		defer masked.Close()
		img.CopyToWithMask(&masked, mask)
		input = masked
	}

	fg := gocv.NewMat()
	defer fg.Close()
	m.subtractor.Apply(input, &fg)
	gocv.Threshold(fg, &fg, foregroundThreshold, 255, gocv.ThresholdBinary)
	for range m.cfg.ErodeIterations {
		gocv.Erode(fg, &fg, m.kernel)
	}
	for range m.cfg.DilateIterations {
		gocv.Dilate(fg, &fg, m.kernel)
	}

	contours := gocv.FindContours(fg, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	regions := 0
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		if gocv.ContourArea(c) < m.cfg.MinContourArea {
			continue
		}
		regions++
		if m.cfg.DrawBBox {
			gocv.Rectangle(&img, gocv.BoundingRect(c), bboxColor, 2)
		}
	}
	if m.cfg.DrawMask && m.cfg.MaskRect != nil {
		gocv.Rectangle(&img, *m.cfg.MaskRect, maskColor, 2)
	}

	m.frames++
	m.lastCount = regions
	if regions > 0 && m.cfg.LogEvery > 0 && m.frames%m.cfg.LogEvery == 0 {
		m.logger.Debug("Motion regions detected", "regions", regions)
	}

	return fromMat(img, f)
}

func (m *Motion) Release() error {
	if m.subtractor != nil {
		m.subtractor.Close()
		m.subtractor = nil
		m.kernel.Close()
	}
	return nil
}
