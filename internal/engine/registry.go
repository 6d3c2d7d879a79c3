package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	ilerrors "github.com/Jalkey-Chen/InterLines/pkg/errors"
	"github.com/Jalkey-Chen/InterLines/pkg/result"
)

// Handler runs one step. It reads and writes its own keys on bb and returns
// the produced artifact, or a failure.
type Handler func(ctx context.Context, bb *blackboard.Blackboard, svc Services) result.Result[any]

// Registry maps step names to handlers. Aliases let one handler serve several
// names, such as an initial step and its refine counterpart.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	aliases  map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		aliases:  make(map[string]string),
	}
}

// Register adds a handler under name.
func (r *Registry) Register(name string, h Handler) error {
	if h == nil {
		return ilerrors.NewHandlerError(name, fmt.Errorf("handler is nil"))
	}
	if name == "" {
		return ilerrors.NewHandlerError(name, fmt.Errorf("step name is empty"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken(name) {
		return ilerrors.NewHandlerError(name, fmt.Errorf("handler already registered"))
	}

	r.handlers[name] = h
	return nil
}

// Alias makes alias dispatch to the handler registered under target.
func (r *Registry) Alias(alias, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken(alias) {
		return ilerrors.NewHandlerError(alias, fmt.Errorf("handler already registered"))
	}
	if _, ok := r.handlers[target]; !ok {
		return ilerrors.NewHandlerError(alias, fmt.Errorf("alias target %q: %w", target, ilerrors.ErrUnknownStep))
	}

	r.aliases[alias] = target
	return nil
}

func (r *Registry) taken(name string) bool {
	if _, ok := r.handlers[name]; ok {
		return true
	}
	_, ok := r.aliases[name]
	return ok
}

// Get returns the handler for name, following aliases.
func (r *Registry) Get(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if target, ok := r.aliases[name]; ok {
		name = target
	}
	h, ok := r.handlers[name]
	if !ok {
		return nil, ilerrors.NewHandlerError(name, ilerrors.ErrUnknownStep)
	}
	return h, nil
}

// Resolve returns the canonical handler name for name.
func (r *Registry) Resolve(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if target, ok := r.aliases[name]; ok {
		return target
	}
	return name
}

// Names lists every dispatchable name, aliases included, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers)+len(r.aliases))
	for name := range r.handlers {
		names = append(names, name)
	}
	for name := range r.aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate fails on the first step name with no handler.
func (r *Registry) Validate(steps []string) error {
	for _, step := range steps {
		if _, err := r.Get(step); err != nil {
			return err
		}
	}
	return nil
}
