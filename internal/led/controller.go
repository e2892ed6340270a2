// Package led drives a board status LED as a recording indicator.
package led

// Patterns understood by every Controller.
const (
	PatternSolid     = "solid"
	PatternBlink     = "blink"
	PatternHeartbeat = "heartbeat"
)

// Controller abstracts LED hardware control across different SBC boards.
type Controller interface {
	// Set switches an LED on or off. An empty pattern leaves the trigger unchanged.
	Set(ledType string, enabled bool, pattern string) error

	// Available returns the LED types supported by this board, indicator first.
	Available() []string

	Patterns() []string
}
