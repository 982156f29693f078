package hyperecho

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/hyper"
)

func newRouter() *hyper.Router {
	rt := hyper.NewRouter()
	rt.Handle(http.MethodGet, "/ping", "ping", func(w http.ResponseWriter, r *http.Request) error {
		_, err := w.Write([]byte("pong"))
		return err
	})
	rt.Handle(http.MethodPost, "/save", "", func(w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
	return rt
}

func TestMount(t *testing.T) {
	e := echo.New()
	Mount(e, newRouter())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Errorf("GET /ping = %d %q", rec.Code, rec.Body.String())
	}
}

func TestMountWithPath(t *testing.T) {
	e := echo.New()
	Mount(e, newRouter(), WithPath("/ui"))

	req := httptest.NewRequest(http.MethodGet, "/ui/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Errorf("GET /ui/ping = %d %q", rec.Code, rec.Body.String())
	}
}

func TestMountGroup(t *testing.T) {
	e := echo.New()
	var hits int
	g := e.Group("/app", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			hits++
			return next(c)
		}
	})
	rt := hyper.NewRouter()
	rt.Handle(http.MethodGet, "/app/ping", "", func(w http.ResponseWriter, r *http.Request) error {
		_, err := w.Write([]byte("pong"))
		return err
	})
	MountGroup(g, rt)

	req := httptest.NewRequest(http.MethodGet, "/app/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	// Groups do not strip their prefix, so routes carry it.
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Errorf("GET /app/ping = %d %q", rec.Code, rec.Body.String())
	}
	if hits != 1 {
		t.Errorf("group middleware ran %d times, want 1", hits)
	}
}

func TestCSRFProtection(t *testing.T) {
	e := echo.New()
	Mount(e, newRouter())

	// POST without Datastar-Request header should be forbidden
	req := httptest.NewRequest(http.MethodPost, "/save", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for POST without Datastar-Request, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/save", nil)
	req.Header.Set(hyper.DatastarHeader, "true")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 with Datastar-Request, got %d", rec.Code)
	}
}

func TestCSRFMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(CSRF())
	e.POST("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	tests := []struct {
		method   string
		datastar bool
		want     int
	}{
		{http.MethodGet, false, http.StatusNoContent},
		{http.MethodPost, false, http.StatusForbidden},
		{http.MethodPost, true, http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, "/x", nil)
		if tt.datastar {
			req.Header.Set(hyper.DatastarHeader, "true")
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s datastar=%v = %d, want %d", tt.method, tt.datastar, rec.Code, tt.want)
		}
	}
}

func TestMiddlewareAndSend(t *testing.T) {
	e := echo.New()
	e.Use(Middleware(hyper.MiddlewareConfig{}))
	e.POST("/contacts", func(c echo.Context) error {
		v, ok := Validator(c)
		if !ok {
			t.Fatal("no validator in context")
		}
		if err := v.Register("email", "required|email", nil, nil); err != nil {
			return err
		}
		if _, err := v.Validate(Signals(c)); err != nil {
			return Send(c, hyper.NewResponse().Errors(err))
		}
		return Send(c, hyper.NewResponse().Signals(map[string]any{"saved": true}))
	})

	res := hyper.TestRequest(e, http.MethodPost, "/contacts", map[string]any{"email": "bad"})
	if res.Errors()["email"] == "" {
		t.Errorf("Errors() = %v", res.Errors())
	}

	res = hyper.TestRequest(e, http.MethodPost, "/contacts", map[string]any{"email": "ada@example.com"})
	if !res.Signals().Bool("saved") {
		t.Errorf("body = %s", res.Body)
	}
}

func TestHandlerAndStream(t *testing.T) {
	e := echo.New()
	e.GET("/plain", Handler(func(w http.ResponseWriter, r *http.Request) error {
		return echo.NewHTTPError(http.StatusTeapot)
	}))
	e.GET("/stream", func(c echo.Context) error {
		return Stream(c, func(ctx context.Context, s *hyper.SSE) error {
			return s.PatchElements(`<p id="a">one</p>`)
		})
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plain", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("Handler error status = %d", rec.Code)
	}

	res := hyper.TestRequest(e, http.MethodGet, "/stream", nil)
	if !res.ElementsContain(`<p id="a">one</p>`) {
		t.Errorf("stream body = %s", res.Body)
	}
}

func TestRender(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		return Render(c, templ.Raw("<h1>hi</h1>"))
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") || rec.Body.String() != "<h1>hi</h1>" {
		t.Errorf("Render() = %q %q", rec.Header().Get("Content-Type"), rec.Body.String())
	}
}
