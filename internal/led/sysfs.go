package led

import (
	"fmt"
	"os"
	"path/filepath"
)

const sysfsLEDPath = "/sys/class/leds"

type sysfsLED struct {
	ledType string
	name    string
}

// sysfs implements Controller using the Linux sysfs LED class.
type sysfs struct {
	root string
	leds []sysfsLED
}

func newSysfs(root string, leds ...sysfsLED) *sysfs {
	return &sysfs{root: root, leds: leds}
}

func (s *sysfs) lookup(ledType string) (string, bool) {
	for _, l := range s.leds {
		if l.ledType == ledType {
			return l.name, true
		}
	}
	return "", false
}

// trigger maps a pattern to the kernel trigger name. Unknown patterns are
// passed through as raw trigger names.
func trigger(pattern string) string {
	switch pattern {
	case PatternSolid:
		return "none"
	case PatternBlink:
		return "timer"
	case PatternHeartbeat:
		return "heartbeat"
	default:
		return pattern
	}
}

func (s *sysfs) Set(ledType string, enabled bool, pattern string) error {
	name, ok := s.lookup(ledType)
	if !ok {
		return fmt.Errorf("LED type %q not supported on this board", ledType)
	}

	ledPath := filepath.Join(s.root, name)
	if _, err := os.Stat(ledPath); err != nil {
		return fmt.Errorf("LED %q not found at %s: %w", ledType, ledPath, err)
	}

	if pattern != "" {
		if err := os.WriteFile(filepath.Join(ledPath, "trigger"), []byte(trigger(pattern)), 0o644); err != nil {
			return fmt.Errorf("failed to set LED trigger: %w", err)
		}
	}

	brightness := "0"
	if enabled {
		brightness = "1"
	}
	if err := os.WriteFile(filepath.Join(ledPath, "brightness"), []byte(brightness), 0o644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}
	return nil
}

func (s *sysfs) Available() []string {
	types := make([]string, 0, len(s.leds))
	for _, l := range s.leds {
		types = append(types, l.ledType)
	}
	return types
}

func (s *sysfs) Patterns() []string {
	return []string{PatternSolid, PatternBlink, PatternHeartbeat}
}
