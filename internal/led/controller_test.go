package led

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNoopController(t *testing.T) {
	ctrl := newNoop(discard())

	if err := ctrl.Set("user", true, PatternSolid); err != nil {
		t.Errorf("Set() returned error: %v", err)
	}
	if types := ctrl.Available(); len(types) != 0 {
		t.Errorf("Available() = %v, want empty slice", types)
	}
	if patterns := ctrl.Patterns(); len(patterns) != 0 {
		t.Errorf("Patterns() = %v, want empty slice", patterns)
	}
}

func fakeLEDRoot(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		if err := os.MkdirAll(filepath.Join(root, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestSysfsController_Set(t *testing.T) {
	tests := []struct {
		pattern     string
		enabled     bool
		wantTrigger string
		wantBright  string
	}{
		{PatternSolid, true, "none", "1"},
		{PatternBlink, true, "timer", "1"},
		{PatternHeartbeat, true, "heartbeat", "1"},
		{"mmc0", true, "mmc0", "1"},
		{PatternHeartbeat, false, "heartbeat", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			root := fakeLEDRoot(t, "sys_led")
			ctrl := newSysfs(root, sysfsLED{"system", "sys_led"})

			if err := ctrl.Set("system", tt.enabled, tt.pattern); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if got := readFile(t, filepath.Join(root, "sys_led", "trigger")); got != tt.wantTrigger {
				t.Errorf("trigger = %q, want %q", got, tt.wantTrigger)
			}
			if got := readFile(t, filepath.Join(root, "sys_led", "brightness")); got != tt.wantBright {
				t.Errorf("brightness = %q, want %q", got, tt.wantBright)
			}
		})
	}
}

func TestSysfsController_EmptyPatternKeepsTrigger(t *testing.T) {
	root := fakeLEDRoot(t, "ACT")
	ctrl := newSysfs(root, sysfsLED{"act", "ACT"})

	if err := ctrl.Set("act", false, ""); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "ACT", "trigger")); !os.IsNotExist(err) {
		t.Errorf("trigger written for empty pattern: %v", err)
	}
}

func TestSysfsController_Errors(t *testing.T) {
	root := fakeLEDRoot(t)
	ctrl := newSysfs(root, sysfsLED{"user", "usr_led"})

	if err := ctrl.Set("blue", true, PatternSolid); err == nil {
		t.Error("expected error for unsupported LED type")
	}
	if err := ctrl.Set("user", true, PatternSolid); err == nil {
		t.Error("expected error for missing LED directory")
	}
}

func TestSysfsController_AvailableKeepsOrder(t *testing.T) {
	ctrl := newSysfs("", sysfsLED{"green", "green_led"}, sysfsLED{"blue", "blue_led"})

	got := ctrl.Available()
	if len(got) != 2 || got[0] != "green" || got[1] != "blue" {
		t.Errorf("Available() = %v, want [green blue]", got)
	}
	if len(ctrl.Patterns()) != 3 {
		t.Errorf("Patterns() = %v", ctrl.Patterns())
	}
}
