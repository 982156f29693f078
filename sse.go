package hyper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
)

// Datastar event types.
const (
	EventPatchElements = "datastar-patch-elements"
	EventPatchSignals  = "datastar-patch-signals"
)

// ErrStreamClosed is returned when writing to an SSE stream whose client
// has gone away.
var ErrStreamClosed = errors.New("hyper: sse stream closed")

// PatchOption configures a patch-elements event.
type PatchOption func(*patchConfig)

type patchConfig struct {
	selector       string
	mode           PatchMode
	viewTransition bool
	eventID        string
	retry          time.Duration
}

// Selector targets the elements matched by a CSS selector. Without it the
// client matches top-level elements by id.
func Selector(sel string) PatchOption {
	return func(c *patchConfig) { c.selector = sel }
}

// Mode sets how elements are merged. Defaults to PatchOuter.
func Mode(m PatchMode) PatchOption {
	return func(c *patchConfig) { c.mode = m }
}

// ViewTransition wraps the patch in a view transition.
func ViewTransition() PatchOption {
	return func(c *patchConfig) { c.viewTransition = true }
}

// EventID sets the SSE event id.
func EventID(id string) PatchOption {
	return func(c *patchConfig) { c.eventID = id }
}

// Retry sets the client reconnect delay.
func Retry(d time.Duration) PatchOption {
	return func(c *patchConfig) { c.retry = d }
}

// SignalOption configures a patch-signals event.
type SignalOption func(*signalConfig)

type signalConfig struct {
	onlyIfMissing bool
	eventID       string
}

// OnlyIfMissing patches only signals the client does not have yet.
func OnlyIfMissing() SignalOption {
	return func(c *signalConfig) { c.onlyIfMissing = true }
}

// SignalEventID sets the SSE event id of a signals patch.
func SignalEventID(id string) SignalOption {
	return func(c *signalConfig) { c.eventID = id }
}

// SSE writes Datastar events to a streaming response. Writes are serialized
// and stop once the request context is done.
type SSE struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context

	mu sync.Mutex
}

// NewSSE starts an event stream on w. Headers set on w before the call are
// sent with the stream.
func NewSSE(w http.ResponseWriter, r *http.Request) (*SSE, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("hyper: response writer %T does not support flushing", w)
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	if r.ProtoMajor == 1 {
		h.Set("Connection", "keep-alive")
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSE{w: w, flusher: flusher, ctx: r.Context()}, nil
}

// Context returns the request context of the stream.
func (s *SSE) Context() context.Context {
	return s.ctx
}

// PatchElements sends HTML to merge into the page.
func (s *SSE) PatchElements(elements string, opts ...PatchOption) error {
	cfg := patchConfig{mode: PatchOuter}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.mode.Valid() {
		return fmt.Errorf("hyper: unknown patch mode %q", cfg.mode)
	}

	var lines []string
	if cfg.selector != "" {
		lines = append(lines, "selector "+cfg.selector)
	}
	if cfg.mode != PatchOuter {
		lines = append(lines, "mode "+string(cfg.mode))
	}
	if cfg.viewTransition {
		lines = append(lines, "useViewTransition true")
	}
	if cfg.mode != PatchRemove {
		for _, l := range strings.Split(strings.ReplaceAll(elements, "\r\n", "\n"), "\n") {
			lines = append(lines, "elements "+l)
		}
	}
	return s.send(EventPatchElements, cfg.eventID, cfg.retry, lines)
}

// PatchComponent renders c with the stream's context and patches the result.
func (s *SSE) PatchComponent(c templ.Component, opts ...PatchOption) error {
	var buf bytes.Buffer
	if err := c.Render(s.ctx, &buf); err != nil {
		return err
	}
	return s.PatchElements(buf.String(), opts...)
}

// RemoveElements removes the elements matched by selector.
func (s *SSE) RemoveElements(selector string, opts ...PatchOption) error {
	return s.PatchElements("", append(opts, Selector(selector), Mode(PatchRemove))...)
}

// PatchSignals merges signals into the client store. signals is encoded as
// JSON; a null value removes a signal.
func (s *SSE) PatchSignals(signals any, opts ...SignalOption) error {
	var cfg signalConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	data, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("hyper: encode signals: %w", err)
	}

	var lines []string
	if cfg.onlyIfMissing {
		lines = append(lines, "onlyIfMissing true")
	}
	for _, l := range strings.Split(string(data), "\n") {
		lines = append(lines, "signals "+l)
	}
	return s.send(EventPatchSignals, cfg.eventID, 0, lines)
}

// RemoveSignals removes the given dotted paths from the client store.
func (s *SSE) RemoveSignals(paths ...string) error {
	return s.PatchSignals(removal(paths))
}

func removal(paths []string) map[string]any {
	tree := NewSignals(nil)
	for _, p := range paths {
		tree.Set(p, nil)
	}
	return tree.data
}

// ExecuteScript runs script in the browser. The script element removes
// itself once it has run.
func (s *SSE) ExecuteScript(script string, opts ...PatchOption) error {
	return s.PatchElements(scriptElement(script), append([]PatchOption{Selector("body"), Mode(PatchAppend)}, opts...)...)
}

func scriptElement(script string) string {
	return `<script data-effect="el.remove()">` + script + `</script>`
}

// Redirect navigates the browser to url.
func (s *SSE) Redirect(url string) error {
	return s.ExecuteScript(redirectScript(url))
}

func redirectScript(url string) string {
	quoted, _ := json.Marshal(url)
	return "setTimeout(() => window.location = " + string(quoted) + ")"
}

// PatchErrors sends the first message of every failing path as the nested
// "errors" signal, e.g. {"errors":{"user":{"email":"..."}}}. Errors that are
// not validation failures are returned unchanged.
func (s *SSE) PatchErrors(err error) error {
	msgs := ValidationErrors(err)
	if msgs == nil {
		return err
	}
	return s.PatchSignals(errorSignals(msgs))
}

// ClearErrors removes the "errors" signal.
func (s *SSE) ClearErrors() error {
	return s.PatchSignals(map[string]any{"errors": nil})
}

func errorSignals(msgs map[string][]string) map[string]any {
	tree := NewSignals(nil)
	for path, m := range msgs {
		if len(m) > 0 {
			tree.Set(path, m[0])
		}
	}
	return map[string]any{"errors": tree.data}
}

// Fragment renders one fragment of a view and patches it.
func (s *SSE) Fragment(fr FragmentRenderer, view, name string, data any, opts ...PatchOption) error {
	out, err := fr.RenderString(s.ctx, view, name, data)
	if err != nil {
		return err
	}
	return s.PatchElements(out, opts...)
}

// Flash appends a toast to the #toasts container.
func (s *SSE) Flash(level, message string) error {
	return s.PatchElements(RenderFlash(Flash{Level: level, Message: message}),
		Selector("#"+ToastContainerID), Mode(PatchAppend))
}

func (s *SSE) send(event, id string, retry time.Duration, lines []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.ctx.Done():
		return ErrStreamClosed
	default:
	}

	if _, err := s.w.Write(formatEvent(event, id, retry, lines)); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// formatEvent frames one SSE event.
func formatEvent(event, id string, retry time.Duration, lines []string) []byte {
	var b bytes.Buffer
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteByte('\n')
	if id != "" {
		b.WriteString("id: ")
		b.WriteString(id)
		b.WriteByte('\n')
	}
	if retry > 0 {
		b.WriteString("retry: ")
		b.WriteString(strconv.FormatInt(retry.Milliseconds(), 10))
		b.WriteByte('\n')
	}
	for _, l := range lines {
		b.WriteString("data: ")
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.Bytes()
}
