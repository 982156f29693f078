// Package telemetry records Prometheus metrics and OpenTelemetry spans for
// fragment rendering and HTTP requests.
package telemetry

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pthm/hyper"
	"github.com/pthm/hyper/lib/fragment"
)

const tracerName = "github.com/pthm/hyper/http"

// Config configures Metrics.
type Config struct {
	// Namespace prefixes every metric. Defaults to "hyper".
	Namespace string
	// Buckets are the duration histogram buckets. Defaults to prometheus.DefBuckets.
	Buckets []float64
	// Registry receives the collectors. Defaults to prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Metrics holds the collectors. It implements fragment.Observer.
type Metrics struct {
	renders        *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	cacheResets    *prometheus.CounterVec
	requests       *prometheus.CounterVec
	requestDur     *prometheus.HistogramVec
	tracer         trace.Tracer
}

var _ fragment.Observer = (*Metrics)(nil)

// New registers the collectors with cfg.Registry.
func New(cfg Config) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "hyper"
	}
	if cfg.Buckets == nil {
		cfg.Buckets = prometheus.DefBuckets
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "fragment_renders_total",
			Help:      "Total number of fragment renders",
		}, []string{"view", "fragment", "status"}),

		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "fragment_render_duration_seconds",
			Help:      "Fragment render duration in seconds",
			Buckets:   cfg.Buckets,
		}, []string{"view"}),

		cacheResets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "fragment_cache_resets_total",
			Help:      "Compiled view caches dropped after a failed render",
		}, []string{"view"}),

		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status", "datastar"}),

		requestDur: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   cfg.Buckets,
		}, []string{"method", "route"}),

		tracer: otel.Tracer(tracerName),
	}
}

// FragmentRendered records one render.
func (m *Metrics) FragmentRendered(view, frag string, d time.Duration, err error) {
	status := "success"
	switch {
	case err == nil:
	case fragment.IsNotFound(err), errors.Is(err, fs.ErrNotExist):
		status = "not_found"
	default:
		status = "error"
	}
	m.renders.WithLabelValues(view, frag, status).Inc()
	m.renderDuration.WithLabelValues(view).Observe(d.Seconds())
}

// CacheReset records a dropped view cache.
func (m *Metrics) CacheReset(view string) {
	m.cacheResets.WithLabelValues(view).Inc()
}

// Middleware counts and traces requests. The route label is the matched chi
// pattern, so it must run inside the router's middleware stack.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := m.tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.Bool("hyper.datastar", hyper.IsDatastar(r)),
			))
		defer span.End()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
			span.SetName(r.Method + " " + route)
		}
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", sw.status),
		)
		if sw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(sw.status))
		}

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status), strconv.FormatBool(hyper.IsDatastar(r))).Inc()
		m.requestDur.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// statusWriter captures the response status. Flush is forwarded so SSE
// streams keep working behind the middleware.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	w.wroteHeader = true
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
