package hyper

import (
	"net/http"

	"github.com/a-h/templ"
)

// DatastarHeader is the request header the Datastar client sends on every
// backend action.
const DatastarHeader = "Datastar-Request"

// Render writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context. Use this for full page loads; Datastar requests are
// answered with SSE or Response instead.
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    hyper.Render(w, r, page())
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsDatastar returns true if the request was sent by a Datastar action.
//
// Use this to answer Datastar requests with patches and direct browser
// requests with a full page:
//
//	if hyper.IsDatastar(r) {
//	    return sse.Fragment(renderer, "contacts", "list", data)
//	}
//	return renderer.RenderView(ctx, w, "contacts", data)
func IsDatastar(r *http.Request) bool {
	return r.Header.Get(DatastarHeader) == "true"
}

// IsMutating reports whether the request method changes server state.
func IsMutating(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
