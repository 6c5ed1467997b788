package registry

import (
	"context"
	"sort"

	"github.com/aescanero/dagoflow/pkg/domain"
)

// Kind selects how a handler is invoked.
type Kind string

const (
	KindBlocking   Kind = "blocking"
	KindSuspending Kind = "suspending"
)

// HandlerFunc is the logic bound to a node. state is the run's live state
// bag and may be mutated directly; the returned Result's delta is merged
// afterwards.
//
// Published snapshots copy only the top level of state, so maps and slices
// stored in it are shared with readers that may be encoding them. Replace a
// nested value with a fresh one (state["k"] = updated) instead of mutating
// it in place; writing into a shared map while it is read is a fatal
// concurrent map access.
type HandlerFunc func(ctx context.Context, state domain.State, params map[string]any, tools ToolSet) (*domain.Result, error)

// Handler is a registered handler together with its invocation kind.
type Handler struct {
	Name string
	Kind Kind
	Fn   HandlerFunc
}

// Registry maps handler names to handlers.
type Registry struct {
	handlers map[string]Handler
}

// New creates an empty handler registry
func New() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// RegisterBlocking registers fn to run on the worker pool. A previous
// handler with the same name is replaced.
func (r *Registry) RegisterBlocking(name string, fn HandlerFunc) {
	r.handlers[name] = Handler{Name: name, Kind: KindBlocking, Fn: fn}
}

// RegisterSuspending registers fn to run inline on the run goroutine. A
// previous handler with the same name is replaced.
func (r *Registry) RegisterSuspending(name string, fn HandlerFunc) {
	r.handlers[name] = Handler{Name: name, Kind: KindSuspending, Fn: fn}
}

// Resolve looks up a handler by name
func (r *Registry) Resolve(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered handler names in lexical order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
