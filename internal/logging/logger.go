package logging

import (
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

const (
	defaultHistorySize = 1000
	defaultIdentifier  = "framenode"
)

// Logger is a duck-typed interface satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config represents logging configuration.
type Config struct {
	Level      string            `toml:"level"`
	Format     string            `toml:"format"`
	Modules    map[string]string `toml:"modules"`
	Identifier string            `toml:"identifier"`
}

type registry struct {
	mu          sync.RWMutex
	config      Config
	initialized bool
	loggers     map[string]*slog.Logger
	levels      map[string]*slog.LevelVar
	global      slog.LevelVar
	history     *History
	onEntry     EntryCallback
}

var reg = &registry{
	loggers: make(map[string]*slog.Logger),
	levels:  make(map[string]*slog.LevelVar),
	history: NewHistory(defaultHistorySize),
}

// Initialize applies the configuration to all current and future module loggers.
func Initialize(config Config) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if config.Identifier == "" {
		config.Identifier = defaultIdentifier
	}
	reg.config = config
	reg.initialized = true
	reg.global.Set(parseLevelOr(config.Level, slog.LevelInfo))

	// Rebuild existing loggers for format and journal routing. Copies handed out
	// earlier share the LevelVar and still follow level changes.
	for module, lv := range reg.levels {
		lv.Set(reg.moduleLevel(module))
		reg.loggers[module] = slog.New(reg.handler(lv)).With("module", module)
	}

	slog.SetDefault(slog.New(reg.handler(&reg.global)))
}

// GetLogger returns the logger for a module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	reg.mu.RLock()
	logger, ok := reg.loggers[module]
	reg.mu.RUnlock()
	if ok {
		return logger
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if logger, ok := reg.loggers[module]; ok {
		return logger
	}

	lv := &slog.LevelVar{}
	lv.Set(reg.moduleLevel(module))
	logger = slog.New(reg.handler(lv)).With("module", module)
	reg.loggers[module] = logger
	reg.levels[module] = lv
	return logger
}

// SetModuleLevel changes a module's level at runtime.
// Returns false if the level string is not recognized.
func SetModuleLevel(module, level string) bool {
	parsed, ok := parseLevel(level)
	if !ok {
		return false
	}
	GetLogger(module)

	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.levels[module].Set(parsed)
	return true
}

// ModuleLevels returns the current level of every known module.
func ModuleLevels() map[string]string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make(map[string]string, len(reg.levels))
	for module, lv := range reg.levels {
		out[module] = levelName(lv.Level())
	}
	return out
}

// Modules returns known module names in sorted order.
func Modules() []string {
	levels := ModuleLevels()
	names := make([]string, 0, len(levels))
	for name := range levels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetHistory returns the in-memory log history.
func GetHistory() *History {
	return reg.history
}

// SetEntryCallback registers a function invoked for every stored entry.
// Used to publish log events without an import cycle on the event bus.
func SetEntryCallback(cb EntryCallback) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.onEntry = cb
}

func (r *registry) entryCallback() EntryCallback {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onEntry
}

// moduleLevel must be called with mu held.
func (r *registry) moduleLevel(module string) slog.Level {
	if !r.initialized {
		return slog.LevelInfo
	}
	level := parseLevelOr(r.config.Level, slog.LevelInfo)
	if override, ok := r.config.Modules[module]; ok {
		level = parseLevelOr(override, level)
	}
	return level
}

// handler must be called with mu held.
func (r *registry) handler(level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdout slog.Handler
	if r.config.Format == "json" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdout = slog.NewTextHandler(os.Stdout, opts)
	}

	var handlers []slog.Handler
	if stdoutAttached() {
		handlers = append(handlers, stdout)
	}
	if r.initialized && JournalAvailable() {
		handlers = append(handlers, NewJournalHandler(r.config.Identifier, level))
	}
	handlers = append(handlers, newHistoryHandler(r, level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewFanout(handlers...)
}

// stdoutAttached reports whether stdout is a terminal, pipe, socket or file (not /dev/null).
func stdoutAttached() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&os.ModeCharDevice != 0 || mode&os.ModeNamedPipe != 0 || mode&os.ModeSocket != 0 || mode.IsRegular()
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func parseLevelOr(level string, fallback slog.Level) slog.Level {
	if parsed, ok := parseLevel(level); ok {
		return parsed
	}
	return fallback
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
