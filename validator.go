package hyper

import (
	"context"
	"errors"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/pthm/hyper/internal/ctxlog"
	"github.com/pthm/hyper/lib/rules"
)

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithEngine sets the rule engine. Engines are safe to share between
// requests; validators are not.
func WithEngine(e *rules.Engine) ValidatorOption {
	return func(v *Validator) { v.engine = e }
}

// Validator maps signal paths to rule strings and validates a request's
// signals against them.
//
// A Validator belongs to one request. Views register rules while they
// render, the handler validates, and the validator is dropped with the
// request. It is not safe for concurrent use.
type Validator struct {
	engine     *rules.Engine
	rules      map[string]string
	messages   map[string]string
	attributes map[string]string
}

// NewValidator creates an empty validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		rules:      make(map[string]string),
		messages:   make(map[string]string),
		attributes: make(map[string]string),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.engine == nil {
		v.engine = rules.New()
	}
	return v
}

// Register stores the rules for path, replacing any earlier entry.
//
// Message keys may be a bare rule name ("required"), which is scoped to
// path, or a full "path.rule" key. Attribute names map a path to its
// display name in messages.
//
// Registering a local signal (leading underscore) fails with ErrLocalSignal
// and stores nothing.
func (v *Validator) Register(path, ruleString string, messages, attributes map[string]string) error {
	if err := checkPath(path); err != nil {
		return err
	}

	v.rules[path] = ruleString
	for k, m := range messages {
		if !strings.HasPrefix(k, path+".") {
			k = path + "." + k
		}
		v.messages[k] = m
	}
	for k, a := range attributes {
		v.attributes[k] = a
	}
	return nil
}

// RegisterMany stores several path→rules entries at once. Every path is
// checked before anything is stored, so a single local signal rejects the
// whole set. Message keys are stored verbatim: use "path.rule" to scope a
// message or a bare rule name to apply it to every path.
func (v *Validator) RegisterMany(entries map[string]string, messages, attributes map[string]string) error {
	paths := sortedKeys(entries)
	for _, p := range paths {
		if err := checkPath(p); err != nil {
			return err
		}
	}

	for _, p := range paths {
		v.rules[p] = entries[p]
	}
	for k, m := range messages {
		v.messages[k] = m
	}
	for k, a := range attributes {
		v.attributes[k] = a
	}
	return nil
}

func checkPath(path string) error {
	if path == "" {
		return errors.New("hyper: empty signal path")
	}
	if IsLocal(path) {
		return fmt.Errorf("%w: %s", ErrLocalSignal, path)
	}
	return nil
}

// Validate checks s against the registered rules. With no paths every
// registered path is validated; otherwise only the given paths, each of
// which must be registered.
//
// On success it returns path→value for exactly the validated paths, with
// values resolved by dotted traversal. On failure it returns a
// *ValidationError holding the messages of every failing path.
func (v *Validator) Validate(s *Signals, paths ...string) (map[string]any, error) {
	if len(paths) == 0 {
		paths = sortedKeys(v.rules)
	}

	subset := make(map[string]string, len(paths))
	for _, p := range paths {
		rs, ok := v.rules[p]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotRegistered, p)
		}
		subset[p] = rs
	}

	if errs := v.engine.Validate(s, subset, v.messages, v.attributes); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	values := make(map[string]any, len(paths))
	for _, p := range paths {
		values[p] = s.Value(p)
	}
	return values, nil
}

// ValidateSingle validates one path and returns its value. A path with no
// rules fails with ErrNotRegistered before anything is evaluated.
func (v *Validator) ValidateSingle(path string, s *Signals) (any, error) {
	if _, ok := v.rules[path]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, path)
	}
	values, err := v.Validate(s, path)
	if err != nil {
		return nil, err
	}
	return values[path], nil
}

// Clear drops every rule, message and attribute name.
func (v *Validator) Clear() {
	v.rules = make(map[string]string)
	v.messages = make(map[string]string)
	v.attributes = make(map[string]string)
}

// Has reports whether path has rules.
func (v *Validator) Has(path string) bool {
	_, ok := v.rules[path]
	return ok
}

// Rules returns a copy of the registered path→rules map.
func (v *Validator) Rules() map[string]string {
	out := make(map[string]string, len(v.rules))
	for k, r := range v.rules {
		out[k] = r
	}
	return out
}

// Paths returns the registered paths in sorted order.
func (v *Validator) Paths() []string {
	return sortedKeys(v.rules)
}

// Hints returns the HTML5 validation attributes implied by path's rules.
func (v *Validator) Hints(path string) []rules.Hint {
	rs, ok := v.rules[path]
	if !ok {
		return nil
	}
	return rules.Hints(rs)
}

type validatorKey struct{}
type signalsKey struct{}

// WithValidator returns a context carrying v.
func WithValidator(ctx context.Context, v *Validator) context.Context {
	return context.WithValue(ctx, validatorKey{}, v)
}

// ValidatorFrom returns the validator carried by ctx.
func ValidatorFrom(ctx context.Context) (*Validator, bool) {
	v, ok := ctx.Value(validatorKey{}).(*Validator)
	return v, ok
}

// WithSignals returns a context carrying s.
func WithSignals(ctx context.Context, s *Signals) context.Context {
	return context.WithValue(ctx, signalsKey{}, s)
}

// SignalsFrom returns the signals carried by ctx, or an empty store.
func SignalsFrom(ctx context.Context) *Signals {
	if s, ok := ctx.Value(signalsKey{}).(*Signals); ok {
		return s
	}
	return NewSignals(nil)
}

// Register registers rules for path with the validator carried by ctx.
// It satisfies the registrar used by lib/el.
func Register(ctx context.Context, path, ruleString string) error {
	v, ok := ValidatorFrom(ctx)
	if !ok {
		return errors.New("hyper: no validator in context")
	}
	return v.Register(path, ruleString, nil, nil)
}

// TemplateFuncs returns fragment template functions bound to ctx:
//
//	{{ validate "email" "required|email" }}  registers rules and emits hint attributes
//	{{ signal "user.name" }}                 reads a request signal
//	{{ error "email" }}                      first validation message for a path
func TemplateFuncs(ctx context.Context) template.FuncMap {
	return template.FuncMap{
		"validate": func(path, ruleString string) (template.HTMLAttr, error) {
			if err := Register(ctx, path, ruleString); err != nil {
				return "", err
			}
			return HintAttrs(rules.Hints(ruleString)), nil
		},
		"signal": func(path string) any {
			return SignalsFrom(ctx).Value(path)
		},
		"error": func(path string) string {
			return ErrorsFrom(ctx).First(path)
		},
	}
}

// HintAttrs renders hints as an attribute list.
func HintAttrs(hints []rules.Hint) template.HTMLAttr {
	var sb strings.Builder
	for i, h := range hints {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(h.Name)
		if h.Value != "" {
			sb.WriteString(`="`)
			sb.WriteString(html.EscapeString(h.Value))
			sb.WriteByte('"')
		}
	}
	return template.HTMLAttr(sb.String())
}

type errorsKey struct{}

// WithErrors returns a context carrying a validation failure for
// re-rendering a view with its messages.
func WithErrors(ctx context.Context, err *ValidationError) context.Context {
	return context.WithValue(ctx, errorsKey{}, err)
}

// ErrorsFrom returns the validation failure carried by ctx, or an empty one.
func ErrorsFrom(ctx context.Context) *ValidationError {
	if e, ok := ctx.Value(errorsKey{}).(*ValidationError); ok && e != nil {
		return e
	}
	return &ValidationError{}
}

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	// Engine is shared by every request's validator. Defaults to rules.New().
	Engine *rules.Engine
	// Locker, when set, merges and checks locked signals.
	Locker *Locker
	// Logger is used when the request context carries none.
	Logger *slog.Logger
}

// Middleware installs a fresh Validator and the request's Signals into the
// request context. Requests whose signals cannot be read are rejected with
// 400 Bad Request.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	engine := cfg.Engine
	if engine == nil {
		engine = rules.New()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var opts []ReadOption
			if cfg.Locker != nil {
				opts = append(opts, WithLocker(cfg.Locker))
			}

			s, err := ReadSignals(r, opts...)
			if err != nil {
				ctxlog.FromContext(r.Context(), cfg.Logger).WarnContext(r.Context(), "rejecting request signals",
					"method", r.Method, "path", r.URL.Path, "error", err)
				http.Error(w, "Bad request", http.StatusBadRequest)
				return
			}

			ctx := WithSignals(r.Context(), s)
			ctx = WithValidator(ctx, NewValidator(WithEngine(engine)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
