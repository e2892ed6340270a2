package led

import "testing"

func TestNew(t *testing.T) {
	ctrl := New(discard())
	if ctrl == nil {
		t.Fatal("New() returned nil")
	}
	if ctrl.Available() == nil {
		t.Error("Available() returned nil")
	}
	if ctrl.Patterns() == nil {
		t.Error("Patterns() returned nil")
	}
}

func TestForModel(t *testing.T) {
	tests := []struct {
		model     string
		indicator string
	}{
		{"FriendlyElec NanoPC-T6", "system"},
		{"Orange Pi 5 Plus", "green"},
		{"Raspberry Pi 4 Model B Rev 1.4", "act"},
		{"unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			ctrl := forModel(tt.model, t.TempDir(), discard())
			available := ctrl.Available()
			if tt.indicator == "" {
				if len(available) != 0 {
					t.Errorf("Available() = %v, want none", available)
				}
				return
			}
			if len(available) == 0 || available[0] != tt.indicator {
				t.Errorf("indicator = %v, want %q first", available, tt.indicator)
			}
		})
	}
}

func TestDetectBoard(t *testing.T) {
	if model := detectBoard(); model == "" {
		t.Error("detectBoard() returned empty string")
	}
}
