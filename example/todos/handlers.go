// Package todos is a small todo app built on hyper: views with fragments,
// validation rules registered by the view itself, and routes declared with
// //hyper:route directives.
package todos

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pthm/hyper"
	"github.com/pthm/hyper/lib/fragment"
)

const view = "todos"

// Handlers serves the todo routes.
//
//hyper:prefix /todos
type Handlers struct {
	store    *Store
	renderer *fragment.Renderer
}

// NewHandlers creates the todo handlers.
func NewHandlers(store *Store, renderer *fragment.Renderer) *Handlers {
	return &Handlers{store: store, renderer: renderer}
}

type page struct {
	Todos []Todo
}

// Index renders the page, or just the list for Datastar requests.
//
//hyper:route GET / name=todos.index
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) error {
	data := page{Todos: h.store.List(Status(r.URL.Query().Get("status")), Tag(r.URL.Query().Get("tag")))}
	if hyper.IsDatastar(r) {
		return hyper.NewResponse().
			Fragment(h.renderer, view, "list", data).
			Patch(statsBadge(h.store.Stats())).
			Send(w, r)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return h.renderer.RenderView(r.Context(), w, view, data)
}

// Create validates the form signals against the rules the form fragment
// registers and appends the new todo.
//
//hyper:route POST / name=todos.create
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	if _, err := h.renderer.RenderString(ctx, view, "form", nil); err != nil {
		return err
	}
	v, ok := hyper.ValidatorFrom(ctx)
	if !ok {
		return fmt.Errorf("todos: no validator in request context")
	}
	values, err := v.Validate(hyper.SignalsFrom(ctx))
	if err != nil {
		return err
	}

	t := h.store.Add(fmt.Sprint(values["title"]), stringOr(values["description"]))
	return hyper.NewResponse().
		Fragment(h.renderer, view, "item", t, hyper.Selector("#todo-list"), hyper.Mode(hyper.PatchAppend)).
		Signals(map[string]any{"title": "", "description": ""}).
		ClearErrors().
		Patch(statsBadge(h.store.Stats())).
		Flash(hyper.FlashSuccess, "Added "+t.Title).
		Send(w, r)
}

// Toggle flips a todo between pending and completed.
//
//hyper:route POST /{id}/toggle name=todos.toggle
func (h *Handlers) Toggle(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	if !h.store.Toggle(id) {
		http.NotFound(w, r)
		return nil
	}
	t, _ := h.store.Get(id)
	return hyper.NewResponse().
		Fragment(h.renderer, view, "item", t).
		Patch(statsBadge(h.store.Stats())).
		Send(w, r)
}

// Rename updates a todo's title from the "title" signal.
//
//hyper:route PUT /{id} name=todos.rename
func (h *Handlers) Rename(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := hyper.Register(ctx, "title", "required|max:80"); err != nil {
		return err
	}
	v, _ := hyper.ValidatorFrom(ctx)
	title, err := v.ValidateSingle("title", hyper.SignalsFrom(ctx))
	if err != nil {
		return err
	}
	if !h.store.Rename(id, fmt.Sprint(title)) {
		http.NotFound(w, r)
		return nil
	}
	t, _ := h.store.Get(id)
	return hyper.NewResponse().
		Fragment(h.renderer, view, "item", t).
		ClearErrors().
		Send(w, r)
}

// Delete removes a todo.
//
//hyper:route DELETE /{id} name=todos.delete
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	if !h.store.Delete(id) {
		http.NotFound(w, r)
		return nil
	}
	return hyper.NewResponse().
		Remove("#"+id).
		Patch(statsBadge(h.store.Stats())).
		Flash(hyper.FlashInfo, "Deleted").
		Send(w, r)
}

// Health reports liveness.
//
//hyper:route GET /healthz
func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func stringOr(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
