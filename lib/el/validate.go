package el

import (
	"context"
	"errors"
	"fmt"

	"github.com/pthm/hyper"
	"github.com/pthm/hyper/lib/rules"
)

// ErrNoRegistrar is returned when a validated element renders without a
// registrar in its context.
var ErrNoRegistrar = errors.New("el: no validation registrar in context")

// ErrNotBound is returned when Validate is used on an element without a
// bound signal.
var ErrNotBound = errors.New("el: validated element has no bound signal")

// ValidateOption configures Validate.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	messages   map[string]string
	attributes map[string]string
}

// Messages sets custom messages keyed by rule name.
func Messages(m map[string]string) ValidateOption {
	return func(c *validateConfig) { c.messages = m }
}

// Attributes sets display names keyed by signal path.
func Attributes(m map[string]string) ValidateOption {
	return func(c *validateConfig) { c.attributes = m }
}

type registrarKey struct{}

// WithRegistrar returns a context whose validated elements register with r
// instead of the request's hyper.Validator.
func WithRegistrar(ctx context.Context, r hyper.Registrar) context.Context {
	return context.WithValue(ctx, registrarKey{}, r)
}

func registrarFrom(ctx context.Context) (hyper.Registrar, bool) {
	if r, ok := ctx.Value(registrarKey{}).(hyper.Registrar); ok {
		return r, true
	}
	if v, ok := hyper.ValidatorFrom(ctx); ok {
		return v, true
	}
	return nil, false
}

// Validate attaches rules to the element's bound signal. When the element
// renders the rules are registered with the context's registrar and the
// matching HTML5 constraint attributes are added. Explicitly set attributes
// win over hints.
//
//	el.Input().Bind("email").Validate("required|email|max:255")
//	// <input data-bind="email" required type="email" maxlength="255">
func (e *Element) Validate(ruleString string, opts ...ValidateOption) *Element {
	e.rules = ruleString
	e.validation = validateConfig{}
	for _, opt := range opts {
		opt(&e.validation)
	}
	return e
}

func (e *Element) applyValidation(ctx context.Context) ([]rules.Hint, error) {
	if e.bound == "" {
		return nil, ErrNotBound
	}
	if hyper.IsLocal(e.bound) {
		return nil, fmt.Errorf("%w: %s", hyper.ErrLocalSignal, e.bound)
	}

	r, ok := registrarFrom(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRegistrar, e.bound)
	}
	if err := r.Register(e.bound, e.rules, e.validation.messages, e.validation.attributes); err != nil {
		return nil, err
	}
	return rules.Hints(e.rules), nil
}

func mergeHints(attrs []attribute, hints []rules.Hint) []attribute {
	out := make([]attribute, len(attrs), len(attrs)+len(hints))
	copy(out, attrs)
	for _, h := range hints {
		if hasAttr(out, h.Name) {
			continue
		}
		var v any = true
		if h.Value != "" {
			v = h.Value
		}
		out = append(out, attribute{name: h.Name, value: Static{V: v}})
	}
	return out
}

func hasAttr(attrs []attribute, name string) bool {
	for _, a := range attrs {
		if a.name == name {
			return true
		}
	}
	return false
}

// ErrorText renders a slot for the first validation message of path. It
// shows the server-side message of a re-rendered view and follows the
// errors signal patched by hyper.Response.Errors.
func ErrorText(path string) *Element {
	expr := "$errors." + path
	return P().
		Class("field-error").
		Data("error", path).
		Show(expr).
		TextExpr(expr).
		Text(Provider(func(c Context) (any, error) {
			return hyper.ErrorsFrom(c.Ctx).First(path), nil
		}))
}
