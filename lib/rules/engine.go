// Package rules implements the pipe-delimited validation rule language used
// for signal validation, e.g. "required|email|max:255".
//
// Rules are evaluated against a Data source keyed by dotted path. Format
// checks (email, url, uuid, ip) delegate to go-playground/validator.
package rules

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Data resolves values by dotted path.
type Data interface {
	Get(path string) (any, bool)
}

// Map is a flat path-keyed Data.
type Map map[string]any

// Get implements Data.
func (m Map) Get(path string) (any, bool) {
	v, ok := m[path]
	return v, ok
}

// implicit rules run even when the value is empty.
var implicit = map[string]bool{
	"required":         true,
	"required_if":      true,
	"required_with":    true,
	"required_without": true,
	"present":          true,
	"filled":           true,
	"accepted":         true,
}

// Engine evaluates rule sets. It is safe for concurrent use.
type Engine struct {
	formats *validator.Validate

	mu      sync.RWMutex
	regexes map[string]*regexp.Regexp
}

// New returns an Engine.
func New() *Engine {
	return &Engine{
		formats: validator.New(),
		regexes: make(map[string]*regexp.Regexp),
	}
}

// Validate checks every path in rules against data and returns the failure
// messages per path. Paths that pass are absent from the result; an empty
// map means everything passed.
func (e *Engine) Validate(data Data, rules map[string]string, messages, attributes map[string]string) map[string][]string {
	errs := make(map[string][]string)
	for path, rs := range rules {
		if msgs := e.Field(data, path, Parse(rs), messages, attributes); len(msgs) > 0 {
			errs[path] = msgs
		}
	}
	return errs
}

// Field checks a single path and returns its failure messages in rule order.
func (e *Engine) Field(data Data, path string, rs []Rule, messages, attributes map[string]string) []string {
	value, present := data.Get(path)

	if Has(rs, "sometimes") && !present {
		return nil
	}
	if Has(rs, "nullable") && value == nil {
		return nil
	}

	numeric := Has(rs, "numeric") || Has(rs, "integer")
	attr := AttributeName(path, attributes)

	var msgs []string
	for _, r := range rs {
		switch r.Name {
		case "sometimes", "nullable", "bail":
			continue
		}
		if !implicit[r.Name] && isEmpty(value) {
			continue
		}

		ok, kind := e.check(data, path, value, present, numeric, r)
		if ok {
			continue
		}
		msgs = append(msgs, format(message(path, r, kind, messages), attr, r, attributes))

		if Has(rs, "bail") || r.Name == "required" {
			break
		}
	}
	return msgs
}

// check evaluates one rule. kind is set for size rules so the message can
// match the measured value.
func (e *Engine) check(data Data, path string, value any, present, numeric bool, r Rule) (bool, sizeKind) {
	switch r.Name {
	case "required":
		return !isEmpty(value), ""
	case "present":
		return present, ""
	case "filled":
		return !present || !isEmpty(value), ""
	case "required_if":
		other, _ := data.Get(param(r, 0))
		for _, want := range r.Params[min(1, len(r.Params)):] {
			if toString(other) == want {
				return !isEmpty(value), ""
			}
		}
		return true, ""
	case "required_with":
		for _, p := range r.Params {
			if v, ok := data.Get(p); ok && !isEmpty(v) {
				return !isEmpty(value), ""
			}
		}
		return true, ""
	case "required_without":
		for _, p := range r.Params {
			if v, ok := data.Get(p); !ok || isEmpty(v) {
				return !isEmpty(value), ""
			}
		}
		return true, ""
	case "accepted":
		switch toString(value) {
		case "yes", "on", "1", "true":
			return true, ""
		}
		return false, ""

	case "string":
		_, ok := value.(string)
		return ok, ""
	case "numeric":
		_, ok := toFloat(value)
		return ok, ""
	case "integer":
		return isInteger(value), ""
	case "boolean":
		switch v := value.(type) {
		case bool:
			return true, ""
		case string:
			return v == "0" || v == "1" || v == "true" || v == "false", ""
		}
		f, ok := toFloat(value)
		return ok && (f == 0 || f == 1), ""
	case "array":
		return isList(value), ""
	case "date":
		_, ok := parseDate(value)
		return ok, ""

	case "email", "url", "uuid", "ip":
		s, ok := value.(string)
		if !ok {
			return false, ""
		}
		return e.formats.Var(s, r.Name) == nil, ""

	case "alpha":
		return allRunes(toString(value), unicode.IsLetter), ""
	case "alpha_num":
		return allRunes(toString(value), func(c rune) bool {
			return unicode.IsLetter(c) || unicode.IsNumber(c)
		}), ""
	case "alpha_dash":
		return allRunes(toString(value), func(c rune) bool {
			return unicode.IsLetter(c) || unicode.IsNumber(c) || c == '-' || c == '_'
		}), ""
	case "lowercase":
		s := toString(value)
		return s == strings.ToLower(s), ""
	case "uppercase":
		s := toString(value)
		return s == strings.ToUpper(s), ""

	case "min", "max", "size":
		limit, ok := toFloat(param(r, 0))
		if !ok {
			return false, ""
		}
		n, kind := size(value, numeric)
		switch r.Name {
		case "min":
			return n >= limit, kind
		case "max":
			return n <= limit, kind
		}
		return n == limit, kind
	case "between":
		lo, ok1 := toFloat(param(r, 0))
		hi, ok2 := toFloat(param(r, 1))
		n, kind := size(value, numeric)
		return ok1 && ok2 && n >= lo && n <= hi, kind
	case "digits":
		s := toString(value)
		want, ok := toFloat(param(r, 0))
		return ok && allRunes(s, isASCIIDigit) && float64(len(s)) == want, ""

	case "in", "not_in":
		found := true
		if items := listItems(value); items != nil {
			for _, item := range items {
				found = found && contains(r.Params, toString(item))
			}
		} else {
			found = contains(r.Params, toString(value))
		}
		return found == (r.Name == "in"), ""
	case "starts_with":
		s := toString(value)
		for _, p := range r.Params {
			if strings.HasPrefix(s, p) {
				return true, ""
			}
		}
		return false, ""
	case "ends_with":
		s := toString(value)
		for _, p := range r.Params {
			if strings.HasSuffix(s, p) {
				return true, ""
			}
		}
		return false, ""

	case "confirmed":
		other, _ := data.Get(path + "_confirmation")
		return equal(value, other), ""
	case "same":
		other, _ := data.Get(param(r, 0))
		return equal(value, other), ""
	case "different":
		other, _ := data.Get(param(r, 0))
		return !equal(value, other), ""

	case "regex", "not_regex":
		re, err := e.regex(param(r, 0))
		if err != nil {
			return false, ""
		}
		return re.MatchString(toString(value)) == (r.Name == "regex"), ""
	}

	// Unknown rules pass.
	return true, ""
}

// regex compiles a delimited pattern like "/^a+$/i", caching the result.
func (e *Engine) regex(delimited string) (*regexp.Regexp, error) {
	e.mu.RLock()
	re, ok := e.regexes[delimited]
	e.mu.RUnlock()
	if ok {
		return re, nil
	}

	pattern, flags := SplitPattern(delimited)
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.regexes[delimited] = re
	e.mu.Unlock()
	return re, nil
}

// SplitPattern separates a delimited pattern into its body and the flags Go
// regexp understands. Undelimited input is returned as-is.
func SplitPattern(delimited string) (pattern, flags string) {
	if !regexClosed(delimited) {
		return delimited, ""
	}
	end := strings.LastIndexByte(delimited, delimited[0])
	for _, f := range delimited[end+1:] {
		if strings.ContainsRune("imsU", f) {
			flags += string(f)
		}
	}
	return delimited[1:end], flags
}

func isASCIIDigit(c rune) bool { return c >= '0' && c <= '9' }

func allRunes(s string, fn func(rune) bool) bool {
	for _, c := range s {
		if !fn(c) {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
