package fragment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pthm/hyper/internal/ctxlog"
)

const tracerName = "github.com/pthm/hyper/lib/fragment"

// Observer receives render outcomes. internal/telemetry.Metrics implements it.
type Observer interface {
	FragmentRendered(view, fragment string, d time.Duration, err error)
	CacheReset(view string)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithParser sets the marker parser. Defaults to NewParser("", "").
func WithParser(p *Parser) Option {
	return func(r *Renderer) { r.parser = p }
}

// WithFuncs adds static template functions.
func WithFuncs(funcs template.FuncMap) Option {
	return func(r *Renderer) {
		for k, v := range funcs {
			r.funcs[k] = v
		}
	}
}

// WithContextFuncs installs template functions bound to the render context,
// such as request-scoped validation registration. fn is called once with
// context.Background() at compile time to learn the function names, then per
// render with the caller's context.
func WithContextFuncs(fn func(ctx context.Context) template.FuncMap) Option {
	return func(r *Renderer) { r.ctxFuncs = fn }
}

// WithDelims sets the template action delimiters.
func WithDelims(left, right string) Option {
	return func(r *Renderer) { r.left, r.right = left, right }
}

// WithLogger sets the fallback logger used when the render context carries none.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// WithObserver sets the render observer.
func WithObserver(o Observer) Option {
	return func(r *Renderer) { r.observer = o }
}

// Renderer extracts fragments from view sources and executes them with
// html/template. Compiled templates are cached per view and fragment.
type Renderer struct {
	src      Source
	parser   *Parser
	funcs    template.FuncMap
	ctxFuncs func(ctx context.Context) template.FuncMap
	left     string
	right    string
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer

	mu    sync.RWMutex
	cache map[string]*template.Template

	// outOfSync matches errors that indicate a stale compile cache.
	outOfSync *regexp.Regexp
}

// NewRenderer creates a renderer reading views from src.
func NewRenderer(src Source, opts ...Option) *Renderer {
	r := &Renderer{
		src:    src,
		funcs:  template.FuncMap{},
		cache:  make(map[string]*template.Template),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.parser == nil {
		r.parser = NewParser("", "")
	}
	r.outOfSync = regexp.MustCompile(`(?i)unexpected|parse|unclosed|EOF|` +
		regexp.QuoteMeta(r.parser.Open()) + `|` + regexp.QuoteMeta(r.parser.Close()))
	return r
}

// Parser returns the renderer's marker parser.
func (r *Renderer) Parser() *Parser {
	return r.parser
}

// Render executes the named fragment of view with data and writes the
// output to w. An empty fragment name renders the whole view with its
// markers stripped. Nothing is written to w when rendering fails.
func (r *Renderer) Render(ctx context.Context, w io.Writer, view, fragment string, data any) error {
	ctx, span := r.tracer.Start(ctx, "fragment.Render", trace.WithAttributes(
		attribute.String("fragment.view", view),
		attribute.String("fragment.name", fragment),
	))
	defer span.End()

	start := time.Now()
	out, err := r.render(ctx, view, fragment, data)
	if err != nil && r.retryable(err) {
		ctxlog.FromContext(ctx, r.logger).WarnContext(ctx, "fragment render failed, resetting template cache",
			"view", view, "fragment", fragment, "error", err)
		r.Reset()
		if r.observer != nil {
			r.observer.CacheReset(view)
		}
		span.AddEvent("cache.reset")

		var retryErr error
		out, retryErr = r.render(ctx, view, fragment, data)
		if retryErr != nil {
			err = &RenderError{View: view, Fragment: fragment, Err: err, RetryErr: retryErr}
		} else {
			err = nil
		}
	}

	if r.observer != nil {
		r.observer.FragmentRendered(view, fragment, time.Since(start), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	_, err = w.Write(out)
	return err
}

// RenderString renders a fragment and returns the output.
func (r *Renderer) RenderString(ctx context.Context, view, fragment string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(ctx, &buf, view, fragment, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderView renders a whole view with fragment markers stripped.
func (r *Renderer) RenderView(ctx context.Context, w io.Writer, view string, data any) error {
	return r.Render(ctx, w, view, "", data)
}

// Reset drops every compiled template.
func (r *Renderer) Reset() {
	r.mu.Lock()
	r.cache = make(map[string]*template.Template)
	r.mu.Unlock()
}

// Cached reports how many compiled templates are held.
func (r *Renderer) Cached() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Renderer) render(ctx context.Context, view, fragment string, data any) ([]byte, error) {
	tmpl, err := r.compiled(ctx, view, fragment)
	if err != nil {
		return nil, err
	}

	if r.ctxFuncs != nil {
		tmpl, err = tmpl.Clone()
		if err != nil {
			return nil, err
		}
		tmpl = tmpl.Funcs(r.ctxFuncs(ctx))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) compiled(ctx context.Context, view, fragment string) (*template.Template, error) {
	key := view + "#" + fragment

	r.mu.RLock()
	tmpl, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	src, err := r.src.Load(ctx, view)
	if err != nil {
		return nil, err
	}

	body := src
	if fragment != "" {
		body, err = r.parser.Extract(src, fragment)
		if err != nil {
			var fe *Error
			if errors.As(err, &fe) {
				fe.Template = view
			}
			return nil, err
		}
	}
	body = r.parser.Strip(body)

	tmpl = template.New(key).Funcs(r.funcs)
	if r.ctxFuncs != nil {
		tmpl = tmpl.Funcs(r.ctxFuncs(context.Background()))
	}
	if r.left != "" || r.right != "" {
		tmpl = tmpl.Delims(r.left, r.right)
	}
	tmpl, err = tmpl.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", key, err)
	}

	r.mu.Lock()
	r.cache[key] = tmpl
	r.mu.Unlock()
	return tmpl, nil
}

// retryable reports whether err looks like a compile cache that is out of
// sync with its source. Missing views, missing, duplicate or unbalanced
// fragments and context cancellation are never retried.
func (r *Renderer) retryable(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDuplicate), errors.Is(err, ErrStructure):
		return false
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrInvalid):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return r.outOfSync.MatchString(err.Error())
}
