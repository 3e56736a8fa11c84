// Package actuator maps symbolic action names to handler functions. Handlers
// are the only components that call external backends, and they translate
// backend failures into the executor's error taxonomy.
package actuator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hollis-dev/deskmate/pkg/models"
)

// Params are the inputs a handler receives. Unknown parameters are ignored
// by handlers; missing required parameters fail the dispatch.
type Params map[string]string

// Outputs are the named values a handler produced. Only names the handler
// declared in ProducedOutputs survive dispatch.
type Outputs map[string]string

// HandlerFunc performs one action.
type HandlerFunc func(ctx context.Context, params Params) (Outputs, error)

// Handler describes a registered action.
type Handler struct {
	// Action is the symbolic action name.
	Action string
	// RequiredParams must all be present and non-empty at dispatch.
	RequiredParams []string
	// ProducedOutputs are the output names the handler is allowed to emit.
	ProducedOutputs []string
	// DefaultTimeout is advisory for hosts that build steps for this action.
	DefaultTimeout time.Duration
	// Fn performs the action.
	Fn HandlerFunc
}

// Registry holds the action handler table. Registration is static at
// process start; dispatch is read-only and safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler. Registering the same action twice is a
// programming error and fails.
func (r *Registry) Register(h Handler) error {
	if h.Action == "" {
		return fmt.Errorf("handler has no action name")
	}
	if h.Fn == nil {
		return fmt.Errorf("handler %q has no function", h.Action)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[h.Action]; exists {
		return fmt.Errorf("handler %q already registered", h.Action)
	}
	r.handlers[h.Action] = h
	return nil
}

// MustRegister registers a handler set and panics on conflicts. Intended for
// static process-start wiring.
func (r *Registry) MustRegister(handlers ...Handler) {
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the handler for an action.
func (r *Registry) Lookup(action string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[action]
	return h, ok
}

// Actions returns the registered action names, sorted.
func (r *Registry) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the handler registered for action. It verifies required
// parameters, invokes the handler, and filters outputs down to the declared
// names so no step can invent undeclared outputs.
func (r *Registry) Dispatch(ctx context.Context, action string, params Params) (Outputs, error) {
	h, ok := r.Lookup(action)
	if !ok {
		return nil, NewError(models.ErrNoHandler, "no handler registered for action %q", action)
	}

	for _, req := range h.RequiredParams {
		if params[req] == "" {
			return nil, NewError(models.ErrInvalidParameters,
				"action %q requires parameter %q", action, req)
		}
	}

	out, err := h.Fn(ctx, params)
	if err != nil {
		return nil, WrapBackend(err)
	}
	return filterOutputs(out, h.ProducedOutputs), nil
}

func filterOutputs(out Outputs, declared []string) Outputs {
	if len(out) == 0 {
		return nil
	}
	filtered := make(Outputs, len(declared))
	for _, name := range declared {
		if v, ok := out[name]; ok {
			filtered[name] = v
		}
	}
	return filtered
}
