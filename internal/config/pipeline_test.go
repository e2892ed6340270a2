package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validPipeline = `
[pipeline]
queue_capacity = 2
miss_threshold = 10
miss_backoff = "100ms"
tick_interval = "33ms"
snapshot_every = 30
render = true

[recording]
dir = "/var/lib/framenode/records"
writer = "ffmpeg"

[signals]
watch = false

[[streams]]
index = 0
source = "opencv"
uri = "/dev/shm/video0.avi"
width = 1280
height = 720
fps = 30
processor = "motion_detection"
processor_options = { min_contour_area = 800, mask_rect = [0, 0, 640, 360] }

[[streams]]
index = 1
source = "test"
width = 640
height = 480
fps = 15.5
source_options = { frames = 100 }
`

func TestParsePipeline(t *testing.T) {
	p, err := ParsePipeline([]byte(validPipeline))
	if err != nil {
		t.Fatalf("ParsePipeline failed: %v", err)
	}

	s := p.Settings
	if s.QueueCapacity != 2 || s.MissThreshold != 10 || s.MissBackoff != 100*time.Millisecond ||
		s.TickInterval != 33*time.Millisecond || s.SnapshotEvery != 30 {
		t.Errorf("unexpected settings %+v", s)
	}
	if s.JoinTimeout != time.Second {
		t.Errorf("JoinTimeout = %v, want default 1s", s.JoinTimeout)
	}
	if !p.Render || p.SnapshotDir != "snapshots" {
		t.Errorf("Render = %v, SnapshotDir = %q", p.Render, p.SnapshotDir)
	}

	rec := p.Recording
	if rec.Dir != "/var/lib/framenode/records" || rec.Writer != WriterFFmpeg || rec.Codec != "XVID" || rec.Extension != ".avi" {
		t.Errorf("unexpected recording %+v", rec)
	}
	if p.Signals.Dir != "signals" || p.Signals.Watch {
		t.Errorf("unexpected signals %+v", p.Signals)
	}

	if len(p.Streams) != 2 {
		t.Fatalf("got %d streams, want 2", len(p.Streams))
	}
	first := p.Streams[0]
	if first.SourceKind != "opencv" || first.SourceURI != "/dev/shm/video0.avi" || first.Processor != "motion_detection" {
		t.Errorf("unexpected stream %+v", first)
	}
	if first.ProcessorOptions["min_contour_area"] != int64(800) {
		t.Errorf("processor_options = %v", first.ProcessorOptions)
	}
	second := p.Streams[1]
	if second.FPS != 15.5 || second.SourceOptions["frames"] != int64(100) {
		t.Errorf("unexpected stream %+v", second)
	}
}

func TestParsePipelineMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		remove  string
		wantKey string
	}{
		{"queue capacity", "queue_capacity = 2\n", "pipeline.queue_capacity"},
		{"miss threshold", "miss_threshold = 10\n", "pipeline.miss_threshold"},
		{"miss backoff", "miss_backoff = \"100ms\"\n", "pipeline.miss_backoff"},
		{"tick interval", "tick_interval = \"33ms\"\n", "pipeline.tick_interval"},
		{"stream index", "index = 1\n", "streams[1].index"},
		{"stream source", "source = \"opencv\"\n", "streams[0].source"},
		{"stream fps", "fps = 30\n", "streams[0].fps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := strings.Replace(validPipeline, tt.remove, "", 1)
			_, err := ParsePipeline([]byte(data))
			if !errors.Is(err, ErrMissingField) {
				t.Fatalf("error = %v, want ErrMissingField", err)
			}
			if !strings.Contains(err.Error(), tt.wantKey) {
				t.Errorf("error %q does not name %s", err, tt.wantKey)
			}
		})
	}
}

func TestParsePipelineInvalid(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
	}{
		{"zero capacity", "queue_capacity = 2", "queue_capacity = 0"},
		{"negative backoff", `miss_backoff = "100ms"`, `miss_backoff = "-1s"`},
		{"duplicate index", "index = 1", "index = 0"},
		{"zero width", "width = 640", "width = 0"},
		{"unknown writer", `writer = "ffmpeg"`, `writer = "gstreamer"`},
		{"unknown key", "render = true", "rendr = true"},
		{"negative snapshot", "snapshot_every = 30", "snapshot_every = -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := strings.Replace(validPipeline, tt.from, tt.to, 1)
			if _, err := ParsePipeline([]byte(data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParsePipelineNoStreams(t *testing.T) {
	data := validPipeline[:strings.Index(validPipeline, "[[streams]]")]
	_, err := ParsePipeline([]byte(data))
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("error = %v, want ErrMissingField", err)
	}
}

func TestParsePipelineMissingTable(t *testing.T) {
	_, err := ParsePipeline([]byte("[recording]\ndir = \"x\"\n"))
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("error = %v, want ErrMissingField", err)
	}
}

func TestLoadPipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.toml")
	if err := os.WriteFile(path, []byte(validPipeline), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPipeline(path); err != nil {
		t.Fatalf("LoadPipeline failed: %v", err)
	}
	if _, err := LoadPipeline(path + ".missing"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCheckKinds(t *testing.T) {
	p, err := ParsePipeline([]byte(validPipeline))
	if err != nil {
		t.Fatal(err)
	}
	known := func(kinds ...string) func(string) bool {
		return func(k string) bool {
			for _, x := range kinds {
				if x == k {
					return true
				}
			}
			return false
		}
	}

	if err := p.CheckKinds(known("opencv", "test"), known("motion_detection")); err != nil {
		t.Errorf("CheckKinds failed: %v", err)
	}
	if err := p.CheckKinds(known("test"), known("motion_detection")); !errors.Is(err, ErrInvalidField) {
		t.Errorf("unknown source: error = %v", err)
	}
	err = p.CheckKinds(known("opencv", "test"), known())
	if err == nil || !strings.Contains(err.Error(), "motion_detection") {
		t.Errorf("unknown processor: error = %v", err)
	}
}
