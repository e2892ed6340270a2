// Package source maps source kinds to frame source constructors.
package source

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/smazurov/framenode/internal/pipeline"
)

var (
	ErrUnknownKind   = errors.New("unknown source kind")
	ErrDuplicateKind = errors.New("source kind already registered")
)

// Factory creates an unstarted source for a stream.
type Factory func(cfg pipeline.StreamConfig) (pipeline.Source, error)

// Registry holds the known source kinds.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Builtin returns a registry with the sources that need no native libraries.
func Builtin(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := NewRegistry()
	_ = r.Register("test", NewTestPattern)
	_ = r.Register("ffmpeg", func(cfg pipeline.StreamConfig) (pipeline.Source, error) {
		return NewFFmpeg(cfg, logger.With("stream", cfg.Index))
	})
	return r
}

func (r *Registry) Register(kind string, f Factory) error {
	if kind == "" || f == nil {
		return fmt.Errorf("register source: empty kind or nil factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, kind)
	}
	r.factories[kind] = f
	return nil
}

func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Create builds the source configured for cfg. It satisfies pipeline.SourceFactory.
func (r *Registry) Create(cfg pipeline.StreamConfig) (pipeline.Source, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.SourceKind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.SourceKind)
	}
	return f(cfg)
}
