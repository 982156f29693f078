package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pthm/hyper"
	"github.com/pthm/hyper/internal/config"
	"github.com/pthm/hyper/internal/ctxlog"
	"github.com/pthm/hyper/internal/telemetry"
	"github.com/pthm/hyper/lib/fragment"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve views and their fragments over Datastar SSE",
		Long: `Serve views and their fragments over Datastar SSE.

  GET  /{view...}                       the whole view as HTML
  GET  /fragments/{fragment}/{view...}  one fragment as a patch-elements event
  POST /fragments/{fragment}/{view...}  validate signals against the rules
                                        the fragment registers, then patch it`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Addr = addr
			}
			src, err := viewSource(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			h, err := newServer(a, src, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			return listen(cmd.Context(), a, h)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

// newServer wires the fragment renderer, router and metrics into one handler.
func newServer(a *app, src fragment.Source, reg *prometheus.Registry) (http.Handler, error) {
	cfg := a.cfg

	reg.MustRegister(collectors.NewGoCollector())
	metrics := telemetry.New(telemetry.Config{Registry: reg})

	renderer := fragment.NewRenderer(src,
		fragment.WithParser(parser(cfg)),
		fragment.WithContextFuncs(hyper.TemplateFuncs),
		fragment.WithLogger(a.logger),
		fragment.WithObserver(metrics),
	)

	locker, err := newLocker(cfg)
	if err != nil {
		return nil, err
	}

	rt := hyper.NewRouter(
		hyper.WithRouterLogger(a.logger),
		hyper.WithMiddleware(
			withLogger(a),
			metrics.Middleware,
			hyper.Middleware(hyper.MiddlewareConfig{Locker: locker, Logger: a.logger}),
		),
	)

	vs := &viewServer{renderer: renderer}
	rt.Handle(http.MethodGet, "/fragments/{fragment}/*", "fragment", vs.fragment)
	rt.Handle(http.MethodPost, "/fragments/{fragment}/*", "fragment.submit", vs.submit)
	rt.Handle(http.MethodGet, "/*", "view", vs.view)

	mux := http.NewServeMux()
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	mux.Handle("/", rt.Handler())
	return mux, nil
}

func newLocker(cfg *config.Config) (*hyper.Locker, error) {
	if cfg.SecretKey == "" {
		return nil, nil
	}
	opts := []hyper.LockerOption{hyper.WithCookieName(cfg.Locked.Cookie)}
	if cfg.Locked.Sensitive {
		opts = append(opts, hyper.WithSensitive())
	}
	if cfg.Locked.Secure {
		opts = append(opts, hyper.WithSecureCookie())
	}
	return hyper.NewLocker([]byte(cfg.SecretKey), opts...)
}

func withLogger(a *app) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := a.logger.With("method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r.WithContext(ctxlog.WithLogger(r.Context(), logger)))
		})
	}
}

func listen(ctx context.Context, a *app, h http.Handler) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", srv.Addr, "views", a.cfg.ViewsDir, "bucket", a.cfg.S3.Bucket)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// viewServer renders views named by the request path.
type viewServer struct {
	renderer *fragment.Renderer
}

func viewName(r *http.Request) string {
	name := strings.Trim(chi.URLParam(r, "*"), "/")
	if name == "" {
		return "index"
	}
	return name
}

func (vs *viewServer) view(w http.ResponseWriter, r *http.Request) error {
	var buf strings.Builder
	if err := vs.renderer.RenderView(r.Context(), &buf, viewName(r), hyper.SignalsFrom(r.Context()).All()); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := io.WriteString(w, buf.String())
	return err
}

func (vs *viewServer) fragment(w http.ResponseWriter, r *http.Request) error {
	view, name := viewName(r), chi.URLParam(r, "fragment")
	data := hyper.SignalsFrom(r.Context()).All()

	// Render before streaming so a missing fragment or view is still a plain 404.
	if _, err := vs.renderer.RenderString(r.Context(), view, name, data); err != nil {
		return err
	}
	return hyper.NewResponse().Fragment(vs.renderer, view, name, data).Send(w, r)
}

func (vs *viewServer) submit(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	view, name := viewName(r), chi.URLParam(r, "fragment")
	signals := hyper.SignalsFrom(ctx)

	// Rendering registers the fragment's {{ validate }} rules.
	if _, err := vs.renderer.RenderString(ctx, view, name, signals.All()); err != nil {
		return err
	}
	v, ok := hyper.ValidatorFrom(ctx)
	if !ok {
		return errors.New("no validator in request context")
	}
	if _, err := v.Validate(signals); err != nil {
		return err
	}
	return hyper.NewResponse().
		ClearErrors().
		Fragment(vs.renderer, view, name, signals.All()).
		Send(w, r)
}
