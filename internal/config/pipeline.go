package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/framenode/internal/pipeline"
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidField = errors.New("invalid field")
)

// Duration decodes TOML strings such as "100ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Recording writer kinds.
const (
	WriterOpenCV = "opencv"
	WriterFFmpeg = "ffmpeg"
)

// RecordingConfig is the [recording] table.
type RecordingConfig struct {
	Dir       string
	Writer    string
	Codec     string
	Extension string
}

// SignalsConfig is the [signals] table.
type SignalsConfig struct {
	Dir   string
	Watch bool
}

// Pipeline is a validated pipeline definition.
type Pipeline struct {
	Settings    pipeline.Settings
	Streams     []pipeline.StreamConfig
	SnapshotDir string
	Render      bool
	JPEGQuality int
	Recording   RecordingConfig
	Signals     SignalsConfig
}

// File layout. Pointer fields are required; nil means the key was absent.
type pipelineFile struct {
	Pipeline  *pipelineTable `toml:"pipeline"`
	Recording recordingTable `toml:"recording"`
	Signals   signalsTable   `toml:"signals"`
	Streams   []streamTable  `toml:"streams"`
}

type pipelineTable struct {
	QueueCapacity *int      `toml:"queue_capacity"`
	MissThreshold *int      `toml:"miss_threshold"`
	MissBackoff   *Duration `toml:"miss_backoff"`
	TickInterval  *Duration `toml:"tick_interval"`
	JoinTimeout   *Duration `toml:"join_timeout"`
	SnapshotEvery int       `toml:"snapshot_every"`
	SnapshotDir   string    `toml:"snapshot_dir"`
	Render        bool      `toml:"render"`
	JPEGQuality   int       `toml:"jpeg_quality"`
}

type recordingTable struct {
	Dir       string `toml:"dir"`
	Writer    string `toml:"writer"`
	Codec     string `toml:"codec"`
	Extension string `toml:"extension"`
}

type signalsTable struct {
	Dir   string `toml:"dir"`
	Watch *bool  `toml:"watch"`
}

type streamTable struct {
	Index            *int           `toml:"index"`
	Source           *string        `toml:"source"`
	URI              string         `toml:"uri"`
	Width            *int           `toml:"width"`
	Height           *int           `toml:"height"`
	FPS              *float64       `toml:"fps"`
	Processor        string         `toml:"processor"`
	ProcessorOptions map[string]any `toml:"processor_options"`
	SourceOptions    map[string]any `toml:"source_options"`
}

// LoadPipeline reads and validates the pipeline definition at path.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline %s: %w", path, err)
	}
	p, err := ParsePipeline(data)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", path, err)
	}
	return p, nil
}

// ParsePipeline decodes and validates a pipeline definition. Unknown keys
// are rejected so that typos fail instead of silently using defaults.
func ParsePipeline(data []byte) (*Pipeline, error) {
	var file pipelineFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidField, strict.String())
		}
		return nil, fmt.Errorf("parse pipeline: %w", err)
	}
	return file.build()
}

func (f *pipelineFile) build() (*Pipeline, error) {
	if f.Pipeline == nil {
		return nil, fmt.Errorf("%w: [pipeline]", ErrMissingField)
	}
	pt := f.Pipeline

	settings := pipeline.DefaultSettings()
	switch {
	case pt.QueueCapacity == nil:
		return nil, missing("pipeline.queue_capacity")
	case pt.MissThreshold == nil:
		return nil, missing("pipeline.miss_threshold")
	case pt.MissBackoff == nil:
		return nil, missing("pipeline.miss_backoff")
	case pt.TickInterval == nil:
		return nil, missing("pipeline.tick_interval")
	}
	settings.QueueCapacity = *pt.QueueCapacity
	settings.MissThreshold = *pt.MissThreshold
	settings.MissBackoff = time.Duration(*pt.MissBackoff)
	settings.TickInterval = time.Duration(*pt.TickInterval)
	if pt.JoinTimeout != nil {
		settings.JoinTimeout = time.Duration(*pt.JoinTimeout)
	}
	if pt.SnapshotEvery < 0 {
		return nil, invalid("pipeline.snapshot_every", "must not be negative")
	}
	settings.SnapshotEvery = pt.SnapshotEvery
	if settings.MissBackoff <= 0 {
		return nil, invalid("pipeline.miss_backoff", "must be positive")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		Settings:    settings,
		SnapshotDir: pt.SnapshotDir,
		Render:      pt.Render,
		JPEGQuality: pt.JPEGQuality,
		Recording: RecordingConfig{
			Dir:       orDefault(f.Recording.Dir, "records"),
			Writer:    orDefault(f.Recording.Writer, WriterOpenCV),
			Codec:     orDefault(f.Recording.Codec, "XVID"),
			Extension: orDefault(f.Recording.Extension, ".avi"),
		},
		Signals: SignalsConfig{
			Dir:   orDefault(f.Signals.Dir, "signals"),
			Watch: f.Signals.Watch == nil || *f.Signals.Watch,
		},
	}
	if p.SnapshotDir == "" {
		p.SnapshotDir = "snapshots"
	}
	if p.JPEGQuality < 0 || p.JPEGQuality > 100 {
		return nil, invalid("pipeline.jpeg_quality", "must be between 0 and 100")
	}
	if p.Recording.Writer != WriterOpenCV && p.Recording.Writer != WriterFFmpeg {
		return nil, invalid("recording.writer", fmt.Sprintf("unknown writer %q", p.Recording.Writer))
	}

	if len(f.Streams) == 0 {
		return nil, fmt.Errorf("%w: at least one [[streams]] entry", ErrMissingField)
	}
	seen := make(map[int]bool, len(f.Streams))
	for i, st := range f.Streams {
		cfg, err := st.build(i)
		if err != nil {
			return nil, err
		}
		if seen[cfg.Index] {
			return nil, invalid(fmt.Sprintf("streams[%d].index", i), fmt.Sprintf("duplicate index %d", cfg.Index))
		}
		seen[cfg.Index] = true
		p.Streams = append(p.Streams, cfg)
	}
	return p, nil
}

func (s streamTable) build(i int) (pipeline.StreamConfig, error) {
	key := func(name string) string { return fmt.Sprintf("streams[%d].%s", i, name) }

	switch {
	case s.Index == nil:
		return pipeline.StreamConfig{}, missing(key("index"))
	case s.Source == nil:
		return pipeline.StreamConfig{}, missing(key("source"))
	case s.Width == nil:
		return pipeline.StreamConfig{}, missing(key("width"))
	case s.Height == nil:
		return pipeline.StreamConfig{}, missing(key("height"))
	case s.FPS == nil:
		return pipeline.StreamConfig{}, missing(key("fps"))
	}

	switch {
	case *s.Index < 0:
		return pipeline.StreamConfig{}, invalid(key("index"), "must not be negative")
	case *s.Source == "":
		return pipeline.StreamConfig{}, invalid(key("source"), "must not be empty")
	case *s.Width <= 0 || *s.Height <= 0:
		return pipeline.StreamConfig{}, invalid(key("width/height"), "must be positive")
	case *s.FPS <= 0:
		return pipeline.StreamConfig{}, invalid(key("fps"), "must be positive")
	}

	return pipeline.StreamConfig{
		Index:            *s.Index,
		SourceKind:       *s.Source,
		SourceURI:        s.URI,
		SourceOptions:    s.SourceOptions,
		Width:            *s.Width,
		Height:           *s.Height,
		FPS:              *s.FPS,
		Processor:        s.Processor,
		ProcessorOptions: s.ProcessorOptions,
	}, nil
}

// CheckKinds verifies every stream names a known source and processor kind.
func (p *Pipeline) CheckKinds(hasSource, hasProcessor func(kind string) bool) error {
	for _, s := range p.Streams {
		if !hasSource(s.SourceKind) {
			return invalid(fmt.Sprintf("%s.source", s.Name()), fmt.Sprintf("unknown source kind %q", s.SourceKind))
		}
		if s.Processor != "" && !hasProcessor(s.Processor) {
			return invalid(fmt.Sprintf("%s.processor", s.Name()), fmt.Sprintf("unknown processor kind %q", s.Processor))
		}
	}
	return nil
}

func missing(key string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, key)
}

func invalid(key, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidField, key, reason)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
