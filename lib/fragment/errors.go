package fragment

import (
	"errors"
	"fmt"
)

// Sentinel errors for fragment extraction.
var (
	ErrNotFound  = errors.New("fragment: not found")
	ErrDuplicate = errors.New("fragment: duplicate fragment name")
	ErrStructure = errors.New("fragment: unbalanced fragment markers")
)

// Error describes an extraction failure for a named fragment.
type Error struct {
	Template string
	Fragment string
	Err      error
}

func (e *Error) Error() string {
	if e.Template == "" {
		return fmt.Sprintf("fragment %q: %v", e.Fragment, e.Err)
	}
	return fmt.Sprintf("fragment %q in %q: %v", e.Fragment, e.Template, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RenderError is returned when a render failed, the cache was reset, and the
// retry failed as well. Both failures are reachable through errors.Is/As.
type RenderError struct {
	View     string
	Fragment string
	Err      error
	RetryErr error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("fragment %q in %q failed after cache reset: %v (first attempt: %v)",
		e.Fragment, e.View, e.RetryErr, e.Err)
}

func (e *RenderError) Unwrap() []error {
	return []error{e.Err, e.RetryErr}
}

// IsNotFound reports whether err is a missing-fragment error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate reports whether err is a duplicate-fragment error.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
