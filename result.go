package hyper

import (
	"context"
	"fmt"
	"net/http"

	"github.com/a-h/templ"
)

// Response buffers Datastar events and writes them in order when sent.
//
// Response is a fluent builder that lets handlers describe patches, signal
// updates, flashes and redirects without touching the ResponseWriter.
// Nothing is rendered until Send, so components and fragments render with
// the request's context.
//
// Example patterns:
//
//	// Patch a component into #list
//	return hyper.NewResponse().Patch(list(items), hyper.Selector("#list")).Send(w, r)
//
//	// Validation failure rendered as reactive error state
//	return hyper.NewResponse().Errors(err).Send(w, r)
//
//	// Success with a toast and cleared errors
//	return hyper.NewResponse().ClearErrors().Flash(hyper.FlashSuccess, "Saved!").Send(w, r)
//
//	// Navigate away
//	return hyper.NewResponse().Redirect("/dashboard").Send(w, r)
type Response struct {
	events  []func(*SSE) error
	headers map[string]string
	locker  *Locker
	locked  map[string]any
}

// NewResponse creates an empty response.
func NewResponse() *Response {
	return &Response{}
}

func (r *Response) add(fn func(*SSE) error) *Response {
	r.events = append(r.events, fn)
	return r
}

// HTML patches raw HTML.
func (r *Response) HTML(elements string, opts ...PatchOption) *Response {
	return r.add(func(s *SSE) error { return s.PatchElements(elements, opts...) })
}

// Patch renders c and patches the result.
func (r *Response) Patch(c templ.Component, opts ...PatchOption) *Response {
	return r.add(func(s *SSE) error { return s.PatchComponent(c, opts...) })
}

// Fragment renders one fragment of a view and patches it.
func (r *Response) Fragment(fr FragmentRenderer, view, name string, data any, opts ...PatchOption) *Response {
	return r.add(func(s *SSE) error { return s.Fragment(fr, view, name, data, opts...) })
}

// Remove removes the elements matched by selector.
func (r *Response) Remove(selector string) *Response {
	return r.add(func(s *SSE) error { return s.RemoveElements(selector) })
}

// Signals patches client signals.
func (r *Response) Signals(signals any, opts ...SignalOption) *Response {
	return r.add(func(s *SSE) error { return s.PatchSignals(signals, opts...) })
}

// RemoveSignals removes client signals by path.
func (r *Response) RemoveSignals(paths ...string) *Response {
	return r.add(func(s *SSE) error { return s.RemoveSignals(paths...) })
}

// Errors patches the "errors" signal from a validation failure. Any other
// error fails Send.
func (r *Response) Errors(err error) *Response {
	return r.add(func(s *SSE) error { return s.PatchErrors(err) })
}

// ClearErrors removes the "errors" signal.
func (r *Response) ClearErrors() *Response {
	return r.add(func(s *SSE) error { return s.ClearErrors() })
}

// Script runs JavaScript in the browser.
func (r *Response) Script(script string) *Response {
	return r.add(func(s *SSE) error { return s.ExecuteScript(script) })
}

// Redirect navigates the browser to url.
func (r *Response) Redirect(url string) *Response {
	return r.add(func(s *SSE) error { return s.Redirect(url) })
}

// Flash adds a toast notification.
//
//	return hyper.NewResponse().
//	    Flash(hyper.FlashSuccess, "Primary action completed").
//	    Flash(hyper.FlashInfo, "Notification sent").
//	    Send(w, r)
func (r *Response) Flash(level, message string) *Response {
	return r.add(func(s *SSE) error { return s.Flash(level, message) })
}

// Lock seals locked signal values into l's cookie and patches them to the
// client. Every key must be a locked path (trailing underscore).
func (r *Response) Lock(l *Locker, values map[string]any) *Response {
	r.locker = l
	if r.locked == nil {
		r.locked = make(map[string]any, len(values))
	}
	for k, v := range values {
		r.locked[k] = v
	}
	return r
}

// Header sets a response header sent before the stream starts.
func (r *Response) Header(key, value string) *Response {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

// Len reports the number of buffered events.
func (r *Response) Len() int {
	n := len(r.events)
	if len(r.locked) > 0 {
		n++
	}
	return n
}

// Send starts an event stream on w and writes every buffered event. The
// first failing event stops the stream and its error is returned.
func (r *Response) Send(w http.ResponseWriter, req *http.Request) error {
	if len(r.locked) > 0 {
		if err := r.locker.Seal(w, r.locked); err != nil {
			return err
		}
	}
	for k, v := range r.headers {
		w.Header().Set(k, v)
	}

	s, err := NewSSE(w, req)
	if err != nil {
		return err
	}

	if len(r.locked) > 0 {
		tree := NewSignals(nil)
		for k, v := range r.locked {
			tree.Set(k, v)
		}
		if err := s.PatchSignals(tree.data); err != nil {
			return err
		}
	}

	for i, ev := range r.events {
		if err := ev(s); err != nil {
			return fmt.Errorf("hyper: response event %d: %w", i, err)
		}
	}
	return nil
}

// Stream runs fn with a live SSE stream for handlers that push events over
// time. The stream's context is the request context.
func Stream(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, s *SSE) error) error {
	s, err := NewSSE(w, r)
	if err != nil {
		return err
	}
	return fn(r.Context(), s)
}
