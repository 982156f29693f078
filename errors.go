package hyper

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/pthm/hyper/lib/fragment"
)

// Sentinel errors for fragment, signal and validation operations.
var (
	ErrFragmentNotFound  = fragment.ErrNotFound
	ErrDuplicateFragment = fragment.ErrDuplicate
	ErrFragmentStructure = fragment.ErrStructure

	ErrNotRegistered    = errors.New("hyper: signal path not registered")
	ErrLocalSignal      = errors.New("hyper: cannot register validation for local signal")
	ErrValidationFailed = errors.New("hyper: validation failed")
	ErrLockedTampered   = errors.New("hyper: locked signal tampered")
	ErrNotLocked        = errors.New("hyper: signal is not locked")
	ErrDecryptFailed    = errors.New("hyper: signal decryption failed")
	ErrSignatureInvalid = errors.New("hyper: signature verification failed")
	ErrInvalidFormat    = errors.New("hyper: invalid signal format")
)

// ValidationError carries the failure messages of a validation run, indexed
// by signal path. It matches ErrValidationFailed with errors.Is.
type ValidationError struct {
	Errors map[string][]string
}

func (e *ValidationError) Error() string {
	paths := e.Paths()
	if len(paths) == 0 {
		return ErrValidationFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(paths, ", "))
}

// Is reports whether target is ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// Paths returns the failing paths in sorted order.
func (e *ValidationError) Paths() []string {
	paths := make([]string, 0, len(e.Errors))
	for p := range e.Errors {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// First returns the first message for path, or "".
func (e *ValidationError) First(path string) string {
	if msgs := e.Errors[path]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// IsNotFound checks if err reports a missing fragment or view.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFragmentNotFound) || errors.Is(err, fs.ErrNotExist)
}

// IsNotRegistered checks if err reports a signal path without rules.
func IsNotRegistered(err error) bool {
	return errors.Is(err, ErrNotRegistered)
}

// IsValidationError checks if err is a validation failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}

// IsDecryptionError checks if err is a decryption or signature error.
func IsDecryptionError(err error) bool {
	return errors.Is(err, ErrDecryptFailed) || errors.Is(err, ErrSignatureInvalid) || errors.Is(err, ErrInvalidFormat)
}

// ValidationErrors extracts the field messages from err, or nil.
func ValidationErrors(err error) map[string][]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Errors
	}
	return nil
}
