// Package processor maps processor kinds to constructors.
package processor

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/smazurov/framenode/internal/options"
	"github.com/smazurov/framenode/internal/pipeline"
)

var (
	ErrUnknownKind    = errors.New("unknown processor kind")
	ErrDuplicateKind  = errors.New("processor kind already registered")
	ErrInvalidOptions = options.ErrInvalid
)

// Constructor returns an unconfigured processor for the stream described by cfg.
type Constructor func(cfg pipeline.StreamConfig) pipeline.Processor

// Registry holds the known processor kinds.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Builtin returns a registry with the processors that need no native libraries.
func Builtin() *Registry {
	r := NewRegistry()
	_ = r.Register("passthrough", func(pipeline.StreamConfig) pipeline.Processor { return &Passthrough{} })
	_ = r.Register("grayscale", func(pipeline.StreamConfig) pipeline.Processor { return &Grayscale{} })
	return r
}

// Register adds kind. Registering the same kind twice is an error.
func (r *Registry) Register(kind string, ctor Constructor) error {
	if kind == "" || ctor == nil {
		return fmt.Errorf("register processor: empty kind or nil constructor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[kind]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, kind)
	}
	r.ctors[kind] = ctor
	return nil
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[kind]
	return ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.ctors))
	for k := range r.ctors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Create constructs the processor named by cfg.Processor and configures it with
// cfg.ProcessorOptions. A processor whose configuration fails is released
// before the error is returned.
func (r *Registry) Create(cfg pipeline.StreamConfig) (pipeline.Processor, error) {
	kind := cfg.Processor
	r.mu.RLock()
	ctor, ok := r.ctors[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	p := ctor(cfg)
	if err := p.Configure(cfg.ProcessorOptions); err != nil {
		_ = p.Release()
		return nil, fmt.Errorf("configure %s: %w", kind, err)
	}
	return p, nil
}
