package source

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/smazurov/framenode/internal/ffmpeg"
	"github.com/smazurov/framenode/internal/frame"
	"github.com/smazurov/framenode/internal/options"
	"github.com/smazurov/framenode/internal/pipeline"
	"github.com/smazurov/framenode/internal/process"
)

// FFmpeg decodes any input ffmpeg understands into raw frames read from a
// subprocess pipe.
//
// Options:
//   - loop (bool): restart the input at end of file
//   - realtime (bool): read at native frame rate, default true
//   - format (string): force the input demuxer
type FFmpeg struct {
	name   string
	width  int
	height int
	cmd    string
	logger *slog.Logger

	pipe     *process.Pipe
	released atomic.Bool
	readMu   sync.Mutex
	once     sync.Once
}

// NewFFmpeg prepares the decode command for cfg. Nothing runs until Start.
func NewFFmpeg(cfg pipeline.StreamConfig, logger *slog.Logger) (*FFmpeg, error) {
	opts := options.Map(cfg.SourceOptions)
	loop, err := opts.Bool("loop", false)
	if err != nil {
		return nil, err
	}
	realtime, err := opts.Bool("realtime", true)
	if err != nil {
		return nil, err
	}
	format, err := opts.String("format", "")
	if err != nil {
		return nil, err
	}
	if cfg.SourceURI == "" {
		return nil, fmt.Errorf("ffmpeg source %s: uri is required", cfg.Name())
	}

	cmd, err := ffmpeg.BuildDecodeCommand(&ffmpeg.DecodeParams{
		Input:    cfg.SourceURI,
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		FPS:      cfg.FPS,
		Loop:     loop,
		Realtime: realtime,
	})
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpeg{
		name:   cfg.Name(),
		width:  cfg.Width,
		height: cfg.Height,
		cmd:    cmd,
		logger: logger,
	}, nil
}

// Command returns the ffmpeg command line.
func (s *FFmpeg) Command() string {
	return s.cmd
}

func (s *FFmpeg) Start() error {
	p := process.NewPipe(s.name, s.cmd, process.ModeRead, s.logger)
	p.SetLogParser(s.logger, ffmpeg.ParseLogLevel)
	if err := p.Start(); err != nil {
		return fmt.Errorf("start decoder: %w", err)
	}
	s.pipe = p
	s.logger.Info("Decoder started", "command", s.cmd)
	return nil
}

// ReadFrame blocks until a full frame has been read. It returns nil at end
// of input, after Release, or on a short read.
func (s *FFmpeg) ReadFrame() *frame.Frame {
	if s.pipe == nil || s.released.Load() {
		return nil
	}
	s.readMu.Lock()
	defer s.readMu.Unlock()

	f := frame.New(s.width, s.height)
	if err := s.pipe.ReadFull(f.Data); err != nil {
		if !s.released.Load() && !errors.Is(err, io.EOF) {
			s.logger.Debug("Decoder read failed", "error", err)
		}
		return nil
	}
	return f
}

// Release terminates the decoder, which unblocks a pending ReadFrame.
// ffmpeg exits non-zero when interrupted, so only a forced kill is an error.
func (s *FFmpeg) Release() error {
	s.released.Store(true)
	var err error
	s.once.Do(func() {
		if s.pipe == nil {
			return
		}
		code := s.pipe.Close()
		s.logger.Debug("Decoder stopped", "exit_code", code)
		if code == process.ExitKilled {
			err = fmt.Errorf("decoder %s had to be killed", s.name)
		}
	})
	return err
}
