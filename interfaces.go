package hyper

import (
	"context"
	"net/http"
)

// FragmentRenderer renders a named fragment of a view. *fragment.Renderer
// implements it.
type FragmentRenderer interface {
	RenderString(ctx context.Context, view, fragment string, data any) (string, error)
}

// HandlerFunc is a route handler that reports failure by returning an
// error. The router's OnError decides the response for it.
//
// Handlers discovered from //hyper:route directives must have this
// signature.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Registrar records validation rules for a signal path. *Validator
// implements it; lib/el finds one through the render context.
type Registrar interface {
	Register(path, rules string, messages, attributes map[string]string) error
}
