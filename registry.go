package hyper

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/pthm/hyper/internal/ctxlog"
)

// Route describes a registered route.
type Route struct {
	Method  string
	Pattern string
	Name    string
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRouterLogger sets the logger used for handler errors when the request
// context carries none.
func WithRouterLogger(l *slog.Logger) RouterOption {
	return func(rt *Router) { rt.logger = l }
}

// WithMiddleware adds chi-style middleware in front of every route.
func WithMiddleware(mw ...func(http.Handler) http.Handler) RouterOption {
	return func(rt *Router) { rt.mux.Use(mw...) }
}

// Router manages named routes on a chi mux.
type Router struct {
	mu      sync.RWMutex
	mux     *chi.Mux
	routes  []Route
	byName  map[string]Route
	byRoute map[string]bool
	logger  *slog.Logger

	// OnError is called when a handler returns an error.
	// Customize this to handle errors appropriately for your application.
	OnError func(http.ResponseWriter, *http.Request, error)
}

// NewRouter creates an empty router.
func NewRouter(opts ...RouterOption) *Router {
	rt := &Router{
		mux:     chi.NewRouter(),
		byName:  make(map[string]Route),
		byRoute: make(map[string]bool),
	}
	rt.OnError = rt.defaultOnError
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// defaultOnError answers validation failures with an errors signal patch
// and maps the remaining error kinds onto status codes.
func (rt *Router) defaultOnError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case IsValidationError(err):
		if sendErr := NewResponse().Errors(err).Send(w, r); sendErr != nil {
			ctxlog.FromContext(r.Context(), rt.logger).ErrorContext(r.Context(), "send validation errors", "error", sendErr)
		}
	case IsNotFound(err):
		http.Error(w, "Not found", http.StatusNotFound)
	case IsDecryptionError(err), errors.Is(err, ErrLockedTampered):
		http.Error(w, "Bad request", http.StatusBadRequest)
	default:
		ctxlog.FromContext(r.Context(), rt.logger).ErrorContext(r.Context(), "handler failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

// Handle registers h for method and pattern. Patterns use chi syntax
// ("/contacts/{id}"). name may be empty; named routes can be built with URL.
// Panics on a duplicate method and pattern or a duplicate name.
func (rt *Router) Handle(method, pattern, name string, h HandlerFunc) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	method = strings.ToUpper(method)
	key := method + " " + pattern
	if rt.byRoute[key] {
		panic(fmt.Sprintf("hyper: duplicate route %s", key))
	}
	if name != "" {
		if prev, exists := rt.byName[name]; exists {
			panic(fmt.Sprintf("hyper: route name %q already used by %s %s", name, prev.Method, prev.Pattern))
		}
	}

	route := Route{Method: method, Pattern: pattern, Name: name}
	rt.byRoute[key] = true
	rt.routes = append(rt.routes, route)
	if name != "" {
		rt.byName[name] = route
	}

	rt.mux.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			rt.OnError(w, r, err)
		}
	}))
}

// Routes returns the registered routes in registration order.
func (rt *Router) Routes() []Route {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]Route, len(rt.routes))
	copy(out, rt.routes)
	return out
}

// URL builds the path of a named route. params are key/value pairs filling
// the pattern's {key} placeholders; extra pairs become the query string.
//
//	rt.URL("contacts.show", "id", "42") // "/contacts/42"
func (rt *Router) URL(name string, params ...string) (string, error) {
	rt.mu.RLock()
	route, ok := rt.byName[name]
	rt.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("hyper: unknown route %q", name)
	}
	if len(params)%2 != 0 {
		return "", fmt.Errorf("hyper: route %q: odd number of params", name)
	}

	path := route.Pattern
	query := url.Values{}
	for i := 0; i < len(params); i += 2 {
		placeholder := "{" + params[i] + "}"
		if strings.Contains(path, placeholder) {
			path = strings.ReplaceAll(path, placeholder, url.PathEscape(params[i+1]))
			continue
		}
		query.Add(params[i], params[i+1])
	}
	if strings.Contains(path, "{") {
		return "", fmt.Errorf("hyper: route %q: missing params for %s", name, path)
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path, nil
}

// Handler returns the HTTP handler for all routes.
func (rt *Router) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CSRF protection: mutating methods require the Datastar-Request header
		if IsMutating(r) && !IsDatastar(r) {
			http.Error(w, "Forbidden: Datastar request required", http.StatusForbidden)
			return
		}

		rt.mux.ServeHTTP(w, r)
	})
}
