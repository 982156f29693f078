package hyper

import (
	"net/http"
	"testing"

	"github.com/a-h/templ"
	"github.com/google/go-cmp/cmp"
)

func TestActionMethods(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		method string
		want   string
	}{
		{"GET", Get("/items"), http.MethodGet, "@get('/items')"},
		{"POST", Post("/items"), http.MethodPost, "@post('/items')"},
		{"PUT", Put("/items/1"), http.MethodPut, "@put('/items/1')"},
		{"PATCH", Patch("/items/1"), http.MethodPatch, "@patch('/items/1')"},
		{"DELETE", Delete("/items/1"), http.MethodDelete, "@delete('/items/1')"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.action.Method() != tt.method {
				t.Errorf("Method() = %q, want %q", tt.action.Method(), tt.method)
			}
			if got := tt.action.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionOptions(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   string
	}{
		{"form", Post("/c").Form(), `@post('/c', {"contentType":"form"})`},
		{"form selector", Post("/c").FormSelector("#f"), `@post('/c', {"contentType":"form","selector":"#f"})`},
		{"headers", Get("/c").Header("X-A", "1").Header("X-B", "2"), `@get('/c', {"headers":{"X-A":"1","X-B":"2"}})`},
		{"include", Post("/c").Include("^user\\."), `@post('/c', {"filterSignals":{"include":"^user\\."}})`},
		{"open when hidden", Get("/feed").OpenWhenHidden(), `@get('/feed', {"openWhenHidden":true})`},
		{"quoted url", Get("/it's"), `@get('/it\'s')`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.action.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionIsImmutable(t *testing.T) {
	base := Post("/c")
	_ = base.Form()
	_ = base.Header("X-A", "1")
	if got := base.String(); got != "@post('/c')" {
		t.Errorf("base action changed: %q", got)
	}
}

func TestActionAttributes(t *testing.T) {
	tests := []struct {
		name string
		got  templ.Attributes
		want templ.Attributes
	}{
		{
			name: "on",
			got:  Post("/like").On("click"),
			want: templ.Attributes{"data-on:click": "@post('/like')"},
		},
		{
			name: "on with modifiers",
			got:  Get("/search").On("input", "debounce.300ms"),
			want: templ.Attributes{"data-on:input__debounce.300ms": "@get('/search')"},
		},
		{
			name: "lazy",
			got:  Get("/more").Lazy(),
			want: templ.Attributes{"data-on:intersect__once": "@get('/more')"},
		},
		{
			name: "init",
			got:  Get("/stats").Init(),
			want: templ.Attributes{"data-init": "@get('/stats')"},
		},
		{
			name: "on attrs",
			got: OnAttrs(map[string]Action{
				"click":         Post("/like"),
				"keydown__ctrl": Post("/save"),
			}),
			want: templ.Attributes{
				"data-on:click":         "@post('/like')",
				"data-on:keydown__ctrl": "@post('/save')",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("attributes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
