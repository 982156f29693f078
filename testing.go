package hyper

import (
	"bufio"
	"encoding/json"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
)

// Event is one parsed SSE event.
type Event struct {
	Name  string
	ID    string
	Lines []string // data lines without the "data: " prefix
}

// Field returns the values of every data line starting with key,
// joined by newlines.
func (e Event) Field(key string) string {
	var vals []string
	prefix := key + " "
	for _, l := range e.Lines {
		if strings.HasPrefix(l, prefix) {
			vals = append(vals, strings.TrimPrefix(l, prefix))
		} else if l == key {
			vals = append(vals, "")
		}
	}
	return strings.Join(vals, "\n")
}

// Elements returns the patched HTML of a patch-elements event.
func (e Event) Elements() string {
	return e.Field("elements")
}

// Signals decodes the payload of a patch-signals event.
func (e Event) Signals() map[string]any {
	var out map[string]any
	_ = json.Unmarshal([]byte(e.Field("signals")), &out)
	return out
}

// ParseEvents splits an SSE body into events.
func ParseEvents(body string) []Event {
	var (
		events []Event
		cur    *Event
	)
	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if cur != nil {
				events = append(events, *cur)
				cur = nil
			}
			continue
		}
		if cur == nil {
			cur = &Event{}
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			cur.Name = value
		case "id":
			cur.ID = value
		case "data":
			cur.Lines = append(cur.Lines, value)
		}
	}
	if cur != nil {
		events = append(events, *cur)
	}
	return events
}

// TestResult holds a recorded response for assertions.
//
// Provides convenience methods for asserting on patched elements, signals,
// flashes and redirects.
type TestResult struct {
	StatusCode int
	Headers    http.Header
	Body       string
	Events     []Event
}

// TestRequest sends a Datastar request to h and records the response.
//
// Signals are encoded the way the Datastar client sends them: in the
// datastar query parameter for GET and DELETE, as a JSON body otherwise.
//
//	res := hyper.TestRequest(router.Handler(), http.MethodPost, "/contacts",
//	    map[string]any{"email": "a@b.com"})
//	if !res.ElementsContain("Saved") {
//	    t.Fatal("missing confirmation")
//	}
func TestRequest(h http.Handler, method, target string, signals map[string]any) *TestResult {
	req := NewTestRequest(method, target, signals)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return Record(rec)
}

// NewTestRequest builds a Datastar request carrying signals.
func NewTestRequest(method, target string, signals map[string]any) *http.Request {
	var body string
	if signals != nil {
		data, _ := json.Marshal(signals)
		if method == http.MethodGet || method == http.MethodDelete {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + DatastarParam + "=" + url.QueryEscape(string(data))
		} else {
			body = string(data)
		}
	}

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(DatastarHeader, "true")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// Record converts a recorder into a TestResult.
func Record(rec *httptest.ResponseRecorder) *TestResult {
	res := &TestResult{
		StatusCode: rec.Code,
		Headers:    rec.Header(),
		Body:       rec.Body.String(),
	}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "text/event-stream") {
		res.Events = ParseEvents(res.Body)
	}
	return res
}

// IsOK returns true if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// EventsNamed returns the events of one type.
func (r *TestResult) EventsNamed(name string) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// PatchedElements returns the HTML of every patch-elements event.
func (r *TestResult) PatchedElements() []string {
	var out []string
	for _, e := range r.EventsNamed(EventPatchElements) {
		out = append(out, e.Elements())
	}
	return out
}

// ElementsContain returns true if any patched HTML contains substr.
func (r *TestResult) ElementsContain(substr string) bool {
	for _, markup := range r.PatchedElements() {
		if strings.Contains(markup, substr) {
			return true
		}
	}
	return false
}

// Signals merges every patch-signals payload in order.
func (r *TestResult) Signals() *Signals {
	s := NewSignals(nil)
	for _, e := range r.EventsNamed(EventPatchSignals) {
		mergeInto(s.data, e.Signals())
	}
	return s
}

// Errors returns the validation messages sent in the errors signal, keyed
// by signal path.
func (r *TestResult) Errors() map[string]string {
	out := make(map[string]string)
	if tree, ok := r.Signals().Value("errors").(map[string]any); ok {
		for path, msg := range NewSignals(tree).Flatten() {
			if s, ok := msg.(string); ok {
				out[path] = s
			}
		}
	}
	return out
}

// RedirectURL returns the target of a redirect script, or "".
func (r *TestResult) RedirectURL() string {
	const marker = "window.location = "
	for _, markup := range r.PatchedElements() {
		i := strings.Index(markup, marker)
		if i < 0 {
			continue
		}
		var target string
		if err := json.NewDecoder(strings.NewReader(markup[i+len(marker):])).Decode(&target); err == nil {
			return target
		}
	}
	return ""
}

// Flashes returns the messages of toasts appended to the toast container.
func (r *TestResult) Flashes() []Flash {
	var out []Flash
	for _, e := range r.EventsNamed(EventPatchElements) {
		if e.Field("selector") != "#"+ToastContainerID {
			continue
		}
		out = append(out, parseFlash(e.Elements()))
	}
	return out
}

func parseFlash(markup string) Flash {
	var f Flash
	const cls = `class="toast toast-`
	if i := strings.Index(markup, cls); i >= 0 {
		rest := markup[i+len(cls):]
		if end := strings.IndexByte(rest, '"'); end >= 0 {
			f.Level = html.UnescapeString(rest[:end])
		}
	}
	// Attribute values are quoted, so the opening tag ends at the first `">`.
	if start := strings.Index(markup, `">`); start >= 0 {
		if end := strings.LastIndex(markup, "</div>"); end > start+1 {
			f.Message = html.UnescapeString(markup[start+2 : end])
		}
	}
	return f
}
