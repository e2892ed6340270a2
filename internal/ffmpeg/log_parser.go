package ffmpeg

import (
	"log/slog"
	"strings"
)

// levelNames are the tags ffmpeg prints with -loglevel level+<name>.
var levelNames = map[string]slog.Level{
	"panic":   slog.LevelError,
	"fatal":   slog.LevelError,
	"error":   slog.LevelError,
	"warning": slog.LevelWarn,
	"info":    slog.LevelInfo,
	"verbose": slog.LevelDebug,
	"debug":   slog.LevelDebug,
	"trace":   slog.LevelDebug,
}

// ParseLogLevel maps one line of ffmpeg stderr to a log level.
//
// The level tag is either first ("[error] msg") or follows a component tag
// ("[mjpeg @ 0x55d1] [warning] msg"). The level tag is removed and the
// component is kept. Periodic progress lines are demoted to debug.
func ParseLogLevel(line string) (slog.Level, string) {
	rest, component := line, ""
	for range 2 {
		if !strings.HasPrefix(rest, "[") {
			break
		}
		tag, after, ok := strings.Cut(rest[1:], "] ")
		if !ok {
			break
		}
		if level, known := levelNames[tag]; known {
			return level, component + after
		}
		component = "[" + tag + "] "
		rest = after
	}

	if strings.HasPrefix(line, "frame=") || strings.HasPrefix(line, "size=") {
		return slog.LevelDebug, line
	}
	return slog.LevelInfo, line
}
