// Package hyperecho provides Echo framework integration for hyper.
//
// Mount a hyper router onto an Echo instance or group:
//
//	e := echo.New()
//	rt := hyper.NewRouter()
//	hyperecho.Mount(e, rt)
//
// Or use hyper's request-scoped signals and validation from plain Echo
// handlers:
//
//	e.Use(hyperecho.Middleware(hyper.MiddlewareConfig{Locker: locker}))
//	e.POST("/contacts", func(c echo.Context) error {
//	    s := hyperecho.Signals(c)
//	    return hyperecho.Send(c, hyper.NewResponse().Signals(map[string]any{"saved": true}))
//	})
package hyperecho

import (
	"context"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/hyper"
)

// Option configures Mount and MountGroup.
type Option func(*options)

type options struct {
	path string
}

// WithPath sets the URL prefix the router is mounted under. The prefix is
// stripped before the router matches, so routes keep their own patterns.
// Defaults to "/".
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// Mount serves rt from an Echo instance.
//
//	e := echo.New()
//	hyperecho.Mount(e, rt, hyperecho.WithPath("/ui/"))
func Mount(e *echo.Echo, rt *hyper.Router, opts ...Option) {
	path, h := mounted(rt, opts)
	e.Any(path+"*", h)
}

// MountGroup serves rt from an Echo group so it shares the group's
// middleware (auth, logging, etc.).
//
//	g := e.Group("/app", authMiddleware)
//	hyperecho.MountGroup(g, rt)
func MountGroup(g *echo.Group, rt *hyper.Router, opts ...Option) {
	path, h := mounted(rt, opts)
	g.Any(path+"*", h)
}

func mounted(rt *hyper.Router, opts []Option) (string, echo.HandlerFunc) {
	o := &options{path: "/"}
	for _, opt := range opts {
		opt(o)
	}
	if !strings.HasSuffix(o.path, "/") {
		o.path += "/"
	}

	var h http.Handler = rt.Handler()
	if prefix := strings.TrimSuffix(o.path, "/"); prefix != "" {
		h = http.StripPrefix(prefix, h)
	}
	return o.path, echo.WrapHandler(h)
}

// Middleware installs hyper's request signals and validator for Echo
// handlers. See hyper.Middleware.
func Middleware(cfg hyper.MiddlewareConfig) echo.MiddlewareFunc {
	return echo.WrapMiddleware(hyper.Middleware(cfg))
}

// CSRF rejects mutating requests that lack the Datastar-Request header,
// the guard hyper.Router applies to its own routes.
func CSRF() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if hyper.IsMutating(c.Request()) && !hyper.IsDatastar(c.Request()) {
				return echo.NewHTTPError(http.StatusForbidden, "Datastar request required")
			}
			return next(c)
		}
	}
}

// Signals returns the request's signals. Middleware must run first;
// otherwise the store is empty.
func Signals(c echo.Context) *hyper.Signals {
	return hyper.SignalsFrom(c.Request().Context())
}

// Validator returns the request's validator installed by Middleware.
func Validator(c echo.Context) (*hyper.Validator, bool) {
	return hyper.ValidatorFrom(c.Request().Context())
}

// Send writes a buffered response as a Datastar event stream.
//
//	return hyperecho.Send(c, hyper.NewResponse().Errors(err))
func Send(c echo.Context, r *hyper.Response) error {
	return r.Send(c.Response(), c.Request())
}

// Stream runs fn with a live SSE stream on the Echo response.
func Stream(c echo.Context, fn func(ctx context.Context, s *hyper.SSE) error) error {
	return hyper.Stream(c.Response(), c.Request(), fn)
}

// Handler adapts a hyper handler to Echo. Its error is returned to Echo's
// HTTPErrorHandler unchanged.
func Handler(h hyper.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h(c.Response(), c.Request())
	}
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hyperecho.Render(c, myTemplate())
//	}
func Render(c echo.Context, component templ.Component) error {
	return hyper.Render(c.Response(), c.Request(), component)
}
