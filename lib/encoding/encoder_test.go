package encoding

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewEncoder(t *testing.T) {
	if _, err := NewEncoder([]byte("short")); err != nil {
		t.Fatalf("NewEncoder with short key failed: %v", err)
	}
	if _, err := NewEncoder([]byte("this-is-a-32-byte-key-for-aes!!!")); err != nil {
		t.Fatalf("NewEncoder with 32-byte key failed: %v", err)
	}
	if _, err := NewEncoder(nil); err == nil {
		t.Fatal("NewEncoder with empty key should fail")
	}
}

func TestRoundTrip(t *testing.T) {
	enc, err := NewEncoder([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}

	original := map[string]any{
		"user.id_": float64(42),
		"role_":    "admin",
		"flags_":   []any{"a", "b"},
		"enabled_": true,
		"profile_": map[string]any{"plan": "pro"},
		"nothing_": nil,
	}

	for _, sensitive := range []bool{false, true} {
		token, err := enc.Seal(original, sensitive)
		if err != nil {
			t.Fatalf("Seal(sensitive=%v) failed: %v", sensitive, err)
		}
		if got := strings.Contains(token, "."); got == sensitive {
			t.Errorf("Seal(sensitive=%v) token separator present = %v", sensitive, got)
		}

		got, err := enc.Open(token, sensitive)
		if err != nil {
			t.Fatalf("Open(sensitive=%v) failed: %v", sensitive, err)
		}
		if diff := cmp.Diff(original, got); diff != "" {
			t.Errorf("Open(sensitive=%v) mismatch (-want +got):\n%s", sensitive, diff)
		}
	}
}

func TestOpenIntegersAreInt64(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))
	token, err := enc.Seal(map[string]any{"n": 7}, false)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	got, err := enc.Open(token, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, ok := got["n"].(int64); !ok {
		t.Errorf("n decoded as %T, want int64", got["n"])
	}
}

func TestSignatureVerificationFailure(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))
	token, err := enc.Seal(map[string]any{"role_": "user"}, false)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	forged, _ := enc.Seal(map[string]any{"role_": "admin"}, false)
	payload, _, _ := strings.Cut(forged, ".")
	_, sig, _ := strings.Cut(token, ".")

	if _, err := enc.Open(payload+"."+sig, false); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Open(forged) error = %v, want ErrSignatureInvalid", err)
	}
}

func TestDecryptionFailure(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))
	token, err := enc.Seal(map[string]any{"role_": "user"}, true)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	tampered := []byte(token)
	last := len(tampered) - 5
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	if _, err := enc.Open(string(tampered), true); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("Open(tampered) error = %v, want ErrDecryptFailed", err)
	}
}

func TestInvalidFormat(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))

	tests := []struct {
		name      string
		token     string
		sensitive bool
	}{
		{"missing separator", "invalidbase64withoutseparator", false},
		{"bad payload", "!!!.AAAA", false},
		{"bad ciphertext", "!!!", true},
		{"short ciphertext", "AAAA", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := enc.Open(tt.token, tt.sensitive); !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Open() error = %v, want ErrInvalidFormat", err)
			}
		})
	}
}

func TestDifferentKeysCannotOpen(t *testing.T) {
	enc1, _ := NewEncoder([]byte("key-one"))
	enc2, _ := NewEncoder([]byte("key-two"))

	for _, sensitive := range []bool{false, true} {
		token, err := enc1.Seal(map[string]any{"a": "b"}, sensitive)
		if err != nil {
			t.Fatalf("Seal failed: %v", err)
		}
		if _, err := enc2.Open(token, sensitive); err == nil {
			t.Errorf("Open with different key succeeded (sensitive=%v)", sensitive)
		}
	}
}

func TestEmptyValues(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))

	token, err := enc.Seal(map[string]any{}, false)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	got, err := enc.Open(token, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Open() = %v, want empty", got)
	}
}
