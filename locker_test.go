package hyper

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLockerSealOpen(t *testing.T) {
	for _, opts := range [][]LockerOption{nil, {WithSensitive()}} {
		l, err := NewLocker([]byte("secret"), append(opts, WithCookieName("locks"))...)
		if err != nil {
			t.Fatal(err)
		}

		rec := httptest.NewRecorder()
		values := map[string]any{"role_": "editor", "plan_": "pro"}
		if err := l.Seal(rec, values); err != nil {
			t.Fatalf("Seal() error = %v", err)
		}

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != "locks" || !cookies[0].HttpOnly {
			t.Fatalf("unexpected cookies: %+v", cookies)
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookies[0])
		got, err := l.Open(req)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if diff := cmp.Diff(values, got); diff != "" {
			t.Errorf("Open() mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestLockerRejectsUnlockedPaths(t *testing.T) {
	l, _ := NewLocker([]byte("secret"))
	err := l.Seal(httptest.NewRecorder(), map[string]any{"role_": "x", "name": "y"})
	if !errors.Is(err, ErrNotLocked) {
		t.Errorf("Seal() error = %v, want ErrNotLocked", err)
	}
}

func TestLockerOpenWithoutCookie(t *testing.T) {
	l, _ := NewLocker([]byte("secret"))
	got, err := l.Open(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || len(got) != 0 {
		t.Errorf("Open() = %v, %v, want empty map", got, err)
	}
}

func TestLockerWrongKey(t *testing.T) {
	a, _ := NewLocker([]byte("key-a"))
	b, _ := NewLocker([]byte("key-b"))

	token, err := a.Token(map[string]any{"role_": "x"})
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultLockCookie, Value: token})

	if _, err := b.Open(req); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Open() error = %v, want ErrSignatureInvalid", err)
	}
}

func TestLockerClear(t *testing.T) {
	l, _ := NewLocker([]byte("secret"))
	rec := httptest.NewRecorder()
	l.Clear(rec)

	c := rec.Result().Cookies()
	if len(c) != 1 || c[0].MaxAge >= 0 {
		t.Errorf("Clear() cookies = %+v", c)
	}
}
