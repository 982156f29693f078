package el

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pthm/hyper"
)

// Context is what a Provider sees when an element renders.
type Context struct {
	Ctx     context.Context
	Request *http.Request
	Signals *hyper.Signals
}

// Value is an attribute or text value: either Static or a Provider.
type Value interface {
	resolve(c Context) (any, error)
}

// Static is a value fixed at build time.
type Static struct {
	V any
}

func (s Static) resolve(Context) (any, error) { return s.V, nil }

// Provider computes a value at render time.
type Provider func(c Context) (any, error)

func (p Provider) resolve(c Context) (any, error) { return p(c) }

// SignalValue provides the current value of a request signal.
func SignalValue(path string) Provider {
	return func(c Context) (any, error) {
		if c.Signals == nil {
			return nil, nil
		}
		return c.Signals.Value(path), nil
	}
}

// valueOf wraps v in Static unless it already is a Value.
func valueOf(v any) Value {
	switch v := v.(type) {
	case Value:
		return v
	case func(Context) (any, error):
		return Provider(v)
	}
	return Static{V: v}
}

type requestKey struct{}

// WithRequest returns a context carrying r for Providers.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestKey{}, r)
}

func newContext(ctx context.Context) Context {
	r, _ := ctx.Value(requestKey{}).(*http.Request)
	return Context{Ctx: ctx, Request: r, Signals: hyper.SignalsFrom(ctx)}
}

// attrString converts a resolved value to its attribute text. ok is false
// when the attribute should be omitted; bare is true for boolean presence.
func attrString(v any) (s string, ok, bare bool, err error) {
	switch v := v.(type) {
	case nil:
		return "", false, false, nil
	case bool:
		return "", v, v, nil
	case string:
		return v, true, false, nil
	case int:
		return strconv.Itoa(v), true, false, nil
	case int64:
		return strconv.FormatInt(v, 10), true, false, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true, false, nil
	case fmt.Stringer:
		return v.String(), true, false, nil
	case map[string]any, map[string]string, []any, []string, json.Marshaler:
		data, err := json.Marshal(v)
		if err != nil {
			return "", false, false, fmt.Errorf("el: encode attribute: %w", err)
		}
		return string(data), true, false, nil
	}
	return fmt.Sprint(v), true, false, nil
}

// textString converts a resolved value to text content.
func textString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}
