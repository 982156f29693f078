package hyper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"mime"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// DatastarParam is the query parameter carrying signals on GET requests.
const DatastarParam = "datastar"

// maxSignalBody caps the JSON body read by ReadSignals.
const maxSignalBody = 1 << 20

// Signals is the signal store for one request. Values are the decoded JSON
// tree sent by the client merged with server-locked values.
type Signals struct {
	data map[string]any
}

// NewSignals wraps data in a store. A nil map yields an empty store.
func NewSignals(data map[string]any) *Signals {
	if data == nil {
		data = make(map[string]any)
	}
	return &Signals{data: data}
}

// ReadOption configures ReadSignals.
type ReadOption func(*readConfig)

type readConfig struct {
	locker *Locker
}

// WithLocker merges locked values from the locker's sealed cookie and
// rejects requests whose locked signals differ from them.
func WithLocker(l *Locker) ReadOption {
	return func(c *readConfig) { c.locker = l }
}

// ReadSignals decodes the signals carried by r.
//
// The "datastar" query parameter is read for every method; the request body
// is read for methods other than GET, HEAD and DELETE, either as JSON or as
// form values. Body values override query values and locked values override
// both. An empty request yields an empty store.
func ReadSignals(r *http.Request, opts ...ReadOption) (*Signals, error) {
	var cfg readConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	s := NewSignals(nil)

	if q := r.URL.Query().Get(DatastarParam); q != "" {
		var data map[string]any
		if err := json.Unmarshal([]byte(q), &data); err != nil {
			return nil, fmt.Errorf("hyper: decode %s query: %w", DatastarParam, err)
		}
		mergeInto(s.data, data)
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
	default:
		if err := readBody(r, s); err != nil {
			return nil, err
		}
	}

	if cfg.locker != nil {
		locked, err := cfg.locker.Open(r)
		if err != nil {
			return nil, err
		}
		if err := s.applyLocked(locked); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func readBody(r *http.Request, s *Signals) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxSignalBody); err != nil && err != http.ErrNotMultipart {
			return fmt.Errorf("hyper: parse form: %w", err)
		}
		keys := make([]string, 0, len(r.PostForm))
		for k := range r.PostForm {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v := r.PostForm[k]; len(v) == 1 {
				s.Set(k, v[0])
			} else {
				s.Set(k, toAnySlice(v))
			}
		}
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSignalBody))
	if err != nil {
		return fmt.Errorf("hyper: read signals: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return fmt.Errorf("hyper: decode signals: %w", err)
	}
	mergeInto(s.data, data)
	return nil
}

// applyLocked overlays sealed values, failing if the client sent a
// different value for any of them.
func (s *Signals) applyLocked(locked map[string]any) error {
	paths := make([]string, 0, len(locked))
	for p := range locked {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if client, ok := s.Get(p); ok && !jsonEqual(client, locked[p]) {
			return fmt.Errorf("%w: %s", ErrLockedTampered, p)
		}
		s.Set(p, locked[p])
	}
	return nil
}

// Get resolves a dotted path through nested maps and slices. Numeric
// segments index slices. A top-level key containing dots is matched
// literally before traversal.
func (s *Signals) Get(path string) (any, bool) {
	if v, ok := s.data[path]; ok {
		return v, true
	}

	var cur any = s.data
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Value returns the value at path, or nil.
func (s *Signals) Value(path string) any {
	v, _ := s.Get(path)
	return v
}

// String returns the value at path formatted as a string. Missing and null
// values yield "".
func (s *Signals) String(path string) string {
	switch v := s.Value(path).(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Bool reports whether the value at path is true or the string "true".
func (s *Signals) Bool(path string) bool {
	switch v := s.Value(path).(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// Has reports whether path resolves to a value, including null.
func (s *Signals) Has(path string) bool {
	_, ok := s.Get(path)
	return ok
}

// All returns a shallow copy of the signal tree.
func (s *Signals) All() map[string]any {
	return maps.Clone(s.data)
}

// Only returns path→value for the given paths that resolve.
func (s *Signals) Only(paths ...string) map[string]any {
	out := make(map[string]any, len(paths))
	for _, p := range paths {
		if v, ok := s.Get(p); ok {
			out[p] = v
		}
	}
	return out
}

// Flatten returns every leaf keyed by its dotted path. Slices are leaves.
func (s *Signals) Flatten() map[string]any {
	out := make(map[string]any)
	flatten("", s.data, out)
	return out
}

func flatten(prefix string, m map[string]any, out map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok && len(child) > 0 {
			flatten(key, child, out)
			continue
		}
		out[key] = v
	}
}

// Set stores v at a dotted path, creating intermediate maps.
func (s *Signals) Set(path string, v any) {
	segs := strings.Split(path, ".")
	node := s.data
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}
	node[segs[len(segs)-1]] = v
}

// MarshalJSON encodes the signal tree.
func (s *Signals) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.data)
}

// IsLocal reports whether path names a client-only signal.
func IsLocal(path string) bool {
	return strings.HasPrefix(path, "_")
}

// IsLocked reports whether path names a server-locked signal.
func IsLocked(path string) bool {
	return len(path) > 1 && strings.HasSuffix(path, "_")
}

// mergeInto deep-merges src into dst; src wins on conflicts.
func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				mergeInto(dm, sm)
				continue
			}
		}
		dst[k] = v
	}
}

// jsonEqual compares values by their JSON encoding so that numbers decoded
// from different sources compare equal.
func jsonEqual(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}

func toAnySlice(v []string) []any {
	out := make([]any, len(v))
	for i, s := range v {
		out[i] = s
	}
	return out
}
