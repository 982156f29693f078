package hyper

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/pthm/hyper/lib/encoding"
)

// DefaultLockCookie is the cookie holding sealed locked signals.
const DefaultLockCookie = "hyper_locked"

// LockerOption configures a Locker.
type LockerOption func(*Locker)

// WithCookieName sets the cookie name. Defaults to DefaultLockCookie.
func WithCookieName(name string) LockerOption {
	return func(l *Locker) { l.cookie = name }
}

// WithSensitive encrypts locked values instead of signing them, so the
// client cannot read them either.
func WithSensitive() LockerOption {
	return func(l *Locker) { l.sensitive = true }
}

// WithSecureCookie marks the cookie Secure.
func WithSecureCookie() LockerOption {
	return func(l *Locker) { l.secure = true }
}

// Locker keeps the authoritative value of locked signals in a sealed
// cookie.
//
// The server seals values when it sends them; on the next request
// ReadSignals with WithLocker reopens the cookie and rejects a request whose
// copy of a locked signal was changed by the client.
type Locker struct {
	enc       *encoding.Encoder
	cookie    string
	sensitive bool
	secure    bool
}

// NewLocker creates a locker sealing with key.
func NewLocker(key []byte, opts ...LockerOption) (*Locker, error) {
	enc, err := encoding.NewEncoder(key)
	if err != nil {
		return nil, fmt.Errorf("hyper: create locker: %w", err)
	}
	l := &Locker{enc: enc, cookie: DefaultLockCookie}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// CookieName returns the name of the sealed cookie.
func (l *Locker) CookieName() string {
	return l.cookie
}

// Seal writes values to the sealed cookie. Every key must be a locked
// path. It must be called before the response headers are written.
func (l *Locker) Seal(w http.ResponseWriter, values map[string]any) error {
	token, err := l.Token(values)
	if err != nil {
		return err
	}
	http.SetCookie(w, l.newCookie(token))
	return nil
}

// Token seals values without writing a cookie.
func (l *Locker) Token(values map[string]any) (string, error) {
	paths := make([]string, 0, len(values))
	for p := range values {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if !IsLocked(p) {
			return "", fmt.Errorf("%w: %s", ErrNotLocked, p)
		}
	}

	token, err := l.enc.Seal(values, l.sensitive)
	if err != nil {
		return "", fmt.Errorf("hyper: seal locked signals: %w", err)
	}
	return token, nil
}

// Open returns the values sealed in r's cookie. A missing cookie yields an
// empty map.
func (l *Locker) Open(r *http.Request) (map[string]any, error) {
	c, err := r.Cookie(l.cookie)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && c.Value == "") {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}

	values, err := l.enc.Open(c.Value, l.sensitive)
	if err != nil {
		return nil, wrapEncodingError(err)
	}
	return values, nil
}

// Clear expires the sealed cookie.
func (l *Locker) Clear(w http.ResponseWriter) {
	c := l.newCookie("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func (l *Locker) newCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     l.cookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   l.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// wrapEncodingError maps encoding package errors onto hyper sentinel errors.
func wrapEncodingError(err error) error {
	switch {
	case errors.Is(err, encoding.ErrInvalidFormat):
		return ErrInvalidFormat
	case errors.Is(err, encoding.ErrSignatureInvalid):
		return ErrSignatureInvalid
	case errors.Is(err, encoding.ErrDecryptFailed):
		return ErrDecryptFailed
	}
	return err
}
