package hyper

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/a-h/templ"
)

// Action builds a Datastar backend action expression such as
// @post('/contacts').
//
// Action is a value type; each option method returns a modified copy:
//
//	hyper.Post("/contacts").Form().On("submit")
//	// templ.Attributes{"data-on:submit": "@post('/contacts', {\"contentType\":\"form\"})"}
type Action struct {
	method  string
	url     string
	options map[string]any
}

// Get builds a GET action. Signals travel in the datastar query parameter.
func Get(url string) Action { return newAction(http.MethodGet, url) }

// Post builds a POST action. Signals travel in the JSON body.
func Post(url string) Action { return newAction(http.MethodPost, url) }

// Put builds a PUT action.
func Put(url string) Action { return newAction(http.MethodPut, url) }

// Patch builds a PATCH action.
func Patch(url string) Action { return newAction(http.MethodPatch, url) }

// Delete builds a DELETE action.
func Delete(url string) Action { return newAction(http.MethodDelete, url) }

func newAction(method, url string) Action {
	return Action{method: method, url: url}
}

// Method returns the HTTP method.
func (a Action) Method() string { return a.method }

// URL returns the target URL.
func (a Action) URL() string { return a.url }

// Form sends the closest form's fields instead of signals.
func (a Action) Form() Action {
	return a.with("contentType", "form")
}

// FormSelector sends the fields of the form matched by sel.
func (a Action) FormSelector(sel string) Action {
	return a.with("contentType", "form").with("selector", sel)
}

// Header adds a request header.
func (a Action) Header(key, value string) Action {
	headers := map[string]string{}
	if h, ok := a.options["headers"].(map[string]string); ok {
		for k, v := range h {
			headers[k] = v
		}
	}
	headers[key] = value
	return a.with("headers", headers)
}

// Include restricts the signals sent to those matching a path pattern.
func (a Action) Include(pattern string) Action {
	return a.with("filterSignals", map[string]string{"include": pattern})
}

// OpenWhenHidden keeps the SSE stream open while the tab is hidden.
func (a Action) OpenWhenHidden() Action {
	return a.with("openWhenHidden", true)
}

func (a Action) with(key string, value any) Action {
	opts := make(map[string]any, len(a.options)+1)
	for k, v := range a.options {
		opts[k] = v
	}
	opts[key] = value
	a.options = opts
	return a
}

// String renders the expression, e.g. @get('/items?page=2').
func (a Action) String() string {
	var sb strings.Builder
	sb.WriteByte('@')
	sb.WriteString(strings.ToLower(a.method))
	sb.WriteString("('")
	sb.WriteString(jsQuote(a.url))
	sb.WriteByte('\'')
	if len(a.options) > 0 {
		// encoding/json sorts map keys, so output is stable.
		data, _ := json.Marshal(a.options)
		sb.WriteString(", ")
		sb.Write(data)
	}
	sb.WriteByte(')')
	return sb.String()
}

// On returns the attribute that runs the action on a DOM event:
// data-on:click="@post('/x')". Modifiers are appended with "__".
func (a Action) On(event string, modifiers ...string) templ.Attributes {
	return templ.Attributes{onKey(event, modifiers): a.String()}
}

// Lazy returns the attribute that runs the action once the element scrolls
// into view.
func (a Action) Lazy() templ.Attributes {
	return a.On("intersect", "once")
}

// Init returns the attribute that runs the action when the element is
// first processed.
func (a Action) Init() templ.Attributes {
	return templ.Attributes{"data-init": a.String()}
}

// OnAttrs merges event→action bindings into one attribute set.
//
//	hyper.OnAttrs(map[string]hyper.Action{
//	    "click":       hyper.Post("/like"),
//	    "keydown__ctrl": hyper.Post("/save"),
//	})
func OnAttrs(actions map[string]Action) templ.Attributes {
	attrs := templ.Attributes{}
	events := make([]string, 0, len(actions))
	for e := range actions {
		events = append(events, e)
	}
	sort.Strings(events)
	for _, e := range events {
		attrs["data-on:"+e] = actions[e].String()
	}
	return attrs
}

func onKey(event string, modifiers []string) string {
	key := "data-on:" + event
	for _, m := range modifiers {
		key += "__" + m
	}
	return key
}

func jsQuote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`).Replace(s)
}
