package hyper

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSignalsGet(t *testing.T) {
	s := NewSignals(map[string]any{
		"email": "a@b.com",
		"user": map[string]any{
			"profile": map[string]any{"name": "Ada"},
			"tags":    []any{"x", map[string]any{"label": "y"}},
		},
		"flat.key": "literal",
		"nothing":  nil,
	})

	tests := []struct {
		path   string
		want   any
		wantOK bool
	}{
		{"email", "a@b.com", true},
		{"user.profile.name", "Ada", true},
		{"user.tags.0", "x", true},
		{"user.tags.1.label", "y", true},
		{"user.tags.2", nil, false},
		{"user.tags.x", nil, false},
		{"user.profile.missing", nil, false},
		{"email.deeper", nil, false},
		{"flat.key", "literal", true},
		{"nothing", nil, true},
		{"", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := s.Get(tt.path)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Get(%q) = %v, %v, want %v, %v", tt.path, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSignalsAccessors(t *testing.T) {
	s := NewSignals(map[string]any{
		"count":   float64(3),
		"on":      true,
		"yes":     "true",
		"nothing": nil,
	})

	if got := s.String("count"); got != "3" {
		t.Errorf("String(count) = %q", got)
	}
	if got := s.String("nothing"); got != "" {
		t.Errorf("String(nothing) = %q", got)
	}
	if !s.Bool("on") || !s.Bool("yes") || s.Bool("count") {
		t.Error("Bool() misreported")
	}
	if !s.Has("nothing") || s.Has("missing") {
		t.Error("Has() misreported")
	}
	if diff := cmp.Diff(map[string]any{"count": float64(3)}, s.Only("count", "missing")); diff != "" {
		t.Errorf("Only() mismatch (-want +got):\n%s", diff)
	}
}

func TestSignalsSetAndFlatten(t *testing.T) {
	s := NewSignals(nil)
	s.Set("user.email", "a@b.com")
	s.Set("user.name", "Ada")
	s.Set("tags", []any{"a"})
	s.Set("empty", map[string]any{})

	want := map[string]any{
		"user.email": "a@b.com",
		"user.name":  "Ada",
		"tags":       []any{"a"},
		"empty":      map[string]any{},
	}
	if diff := cmp.Diff(want, s.Flatten()); diff != "" {
		t.Errorf("Flatten() mismatch (-want +got):\n%s", diff)
	}

	data, err := s.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"user":{"email":"a@b.com","name":"Ada"}`) {
		t.Errorf("MarshalJSON() = %s", data)
	}
}

func TestSignalPathConventions(t *testing.T) {
	tests := []struct {
		path   string
		local  bool
		locked bool
	}{
		{"email", false, false},
		{"_open", true, false},
		{"role_", false, true},
		{"_tmp_", true, true},
		{"user.id_", false, true},
		{"_", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if IsLocal(tt.path) != tt.local {
				t.Errorf("IsLocal(%q) = %v", tt.path, !tt.local)
			}
			if IsLocked(tt.path) != tt.locked {
				t.Errorf("IsLocked(%q) = %v", tt.path, !tt.locked)
			}
		})
	}
}

func TestReadSignals(t *testing.T) {
	tests := []struct {
		name string
		req  func() *http.Request
		want map[string]any
	}{
		{
			name: "get query",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/?datastar="+url.QueryEscape(`{"q":"ada","page":2}`), nil)
			},
			want: map[string]any{"q": "ada", "page": float64(2)},
		},
		{
			name: "post body",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user":{"email":"a@b.com"}}`))
			},
			want: map[string]any{"user": map[string]any{"email": "a@b.com"}},
		},
		{
			name: "body overrides query",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/?datastar="+url.QueryEscape(`{"a":1,"n":{"x":1,"y":1}}`),
					strings.NewReader(`{"a":2,"n":{"y":2}}`))
				return r
			},
			want: map[string]any{"a": float64(2), "n": map[string]any{"x": float64(1), "y": float64(2)}},
		},
		{
			name: "empty body",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/", strings.NewReader("  "))
			},
			want: map[string]any{},
		},
		{
			name: "delete ignores body",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodDelete, "/", strings.NewReader(`{"a":1}`))
			},
			want: map[string]any{},
		},
		{
			name: "form body",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("user.email=a%40b.com&tag=x&tag=y"))
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return r
			},
			want: map[string]any{"user": map[string]any{"email": "a@b.com"}, "tag": []any{"x", "y"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ReadSignals(tt.req())
			if err != nil {
				t.Fatalf("ReadSignals() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, s.All()); diff != "" {
				t.Errorf("ReadSignals() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadSignalsMalformed(t *testing.T) {
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/?datastar=%7Bbad", nil),
		httptest.NewRequest(http.MethodPost, "/", strings.NewReader("[1,2]")),
	} {
		if _, err := ReadSignals(req); err == nil {
			t.Errorf("ReadSignals(%s %s) expected error", req.Method, req.URL)
		}
	}
}

func TestReadSignalsWithLocker(t *testing.T) {
	locker, err := NewLocker([]byte("test-key"))
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	if err := locker.Seal(rec, map[string]any{"role_": "user", "account.id_": float64(7)}); err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	cookie := rec.Result().Cookies()[0]

	newReq := func(body string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		r.AddCookie(cookie)
		return r
	}

	t.Run("merges locked values", func(t *testing.T) {
		s, err := ReadSignals(newReq(`{"name":"Ada"}`), WithLocker(locker))
		if err != nil {
			t.Fatalf("ReadSignals() error = %v", err)
		}
		if s.String("role_") != "user" || s.Value("account.id_") != float64(7) {
			t.Errorf("locked values not merged: %v", s.All())
		}
	})

	t.Run("matching client copy", func(t *testing.T) {
		if _, err := ReadSignals(newReq(`{"role_":"user","account":{"id_":7}}`), WithLocker(locker)); err != nil {
			t.Errorf("ReadSignals() error = %v", err)
		}
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := ReadSignals(newReq(`{"role_":"admin"}`), WithLocker(locker))
		if !errors.Is(err, ErrLockedTampered) {
			t.Errorf("ReadSignals() error = %v, want ErrLockedTampered", err)
		}
	})

	t.Run("forged cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.AddCookie(&http.Cookie{Name: DefaultLockCookie, Value: cookie.Value + "x"})
		_, err := ReadSignals(r, WithLocker(locker))
		if !IsDecryptionError(err) {
			t.Errorf("ReadSignals() error = %v, want decryption error", err)
		}
	})
}
