package scrape

import (
	"fmt"
)

// Registry resolves the handler for a source type. Registration order is
// preserved; the first handler whose capability predicate matches wins.
type Registry struct {
	handlers []Handler
}

// NewRegistry creates a registry with the given handlers.
func NewRegistry(handlers ...Handler) *Registry {
	return &Registry{handlers: handlers}
}

// Register appends a handler to the registry.
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
}

// Resolve returns the handler for the given source type. The absence of a
// match is a configuration error; the orchestrator fails the run without
// retrying.
func (r *Registry) Resolve(sourceType string) (Handler, error) {
	for _, h := range r.handlers {
		if h.CanHandle(sourceType) {
			return h, nil
		}
	}
	return nil, fmt.Errorf("no handler registered for source type %q", sourceType)
}
