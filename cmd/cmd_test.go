package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smazurov/framenode/internal/processor"
	"github.com/smazurov/framenode/internal/source"
)

const testPipeline = `
[pipeline]
queue_capacity = 2
miss_threshold = 10
miss_backoff = "100ms"
tick_interval = "33ms"

[signals]
dir = "%s"

[[streams]]
index = 0
source = "test"
width = 320
height = 240
fps = 30
processor = "grayscale"

[[streams]]
index = 1
source = "ffmpeg"
uri = "clip.mp4"
width = 640
height = 480
fps = 12.5
`

func builtins() (*source.Registry, *processor.Registry, error) {
	return source.Builtin(nil), processor.Builtin(), nil
}

func writePipeline(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunValidate(t *testing.T) {
	path := writePipeline(t, strings.Replace(testPipeline, "%s", "sig", 1))

	var out bytes.Buffer
	if err := runValidate(&out, path, builtins); err != nil {
		t.Fatalf("runValidate() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"INDEX", "320x240", "grayscale", "clip.mp4", "12.5", "queue_capacity=2", "signals: dir=sig"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunValidate_UnknownKind(t *testing.T) {
	body := strings.Replace(testPipeline, `processor = "grayscale"`, `processor = "motion_detection"`, 1)
	path := writePipeline(t, strings.Replace(body, "%s", "sig", 1))

	var out bytes.Buffer
	err := runValidate(&out, path, builtins)
	if err == nil || !strings.Contains(err.Error(), "motion_detection") {
		t.Fatalf("runValidate() error = %v, want unknown processor", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	var out bytes.Buffer
	if err := runValidate(&out, filepath.Join(t.TempDir(), "missing.toml"), builtins); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRunSignal(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		action string
		stream string
		marker string
	}{
		{"start", "0", "record_start_1.signal"},
		{"stop", "2", "record_stop_3.signal"},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			var out bytes.Buffer
			if err := runSignal(&out, dir, tt.action, tt.stream); err != nil {
				t.Fatalf("runSignal() error = %v", err)
			}
			path := filepath.Join(dir, tt.marker)
			if _, err := os.Stat(path); err != nil {
				t.Errorf("marker not written: %v", err)
			}
			if strings.TrimSpace(out.String()) != path {
				t.Errorf("output = %q, want %q", out.String(), path)
			}
		})
	}
}

func TestRunSignal_Invalid(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	if err := runSignal(&out, dir, "pause", "0"); err == nil {
		t.Error("expected error for unknown action")
	}
	if err := runSignal(&out, dir, "start", "-1"); err == nil {
		t.Error("expected error for negative stream")
	}
	if err := runSignal(&out, dir, "start", "one"); err == nil {
		t.Error("expected error for non-numeric stream")
	}
}

func TestSignalDir(t *testing.T) {
	path := writePipeline(t, strings.Replace(testPipeline, "%s", "/run/framenode/signals", 1))
	if got := signalDir(path); got != "/run/framenode/signals" {
		t.Errorf("signalDir() = %q", got)
	}
	if got := signalDir(filepath.Join(t.TempDir(), "missing.toml")); got != defaultSignalDir {
		t.Errorf("signalDir(missing) = %q, want %q", got, defaultSignalDir)
	}
}

func TestRunProcessors(t *testing.T) {
	var out bytes.Buffer
	if err := runProcessors(&out, builtins); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.Contains(got, "ffmpeg, test") || !strings.Contains(got, "grayscale, passthrough") {
		t.Errorf("unexpected output:\n%s", got)
	}
}
