package led

import (
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

type board struct {
	model string
	leds  []sysfsLED
}

// Known boards. The first LED of each board is used as the recording indicator.
var boards = []board{
	{model: "NanoPC-T6", leds: []sysfsLED{{"system", "sys_led"}, {"user", "usr_led"}}},
	{model: "Orange Pi", leds: []sysfsLED{{"green", "green_led"}, {"blue", "blue_led"}}},
	{model: "Raspberry Pi", leds: []sysfsLED{{"act", "ACT"}, {"pwr", "PWR"}}},
}

// New returns the controller for the detected board, or a no-op controller
// when the board is unknown.
func New(logger *slog.Logger) Controller {
	return forModel(detectBoard(), sysfsLEDPath, logger)
}

func forModel(model, root string, logger *slog.Logger) Controller {
	for _, b := range boards {
		if strings.Contains(model, b.model) {
			logger.Info("Using sysfs LED controller", "board_model", model, "indicator", b.leds[0].ledType)
			return newSysfs(root, b.leds...)
		}
	}
	logger.Info("No LED support detected, using no-op controller", "board_model", model)
	return newNoop(logger)
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
