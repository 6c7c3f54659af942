package model

import (
	"fmt"
)

const maxSecretRefLen = 255

// redacted is what every formatting path of SecretValue emits.
const redacted = "[REDACTED]"

// ValidateSecretRef checks a credential reference key.
// Format: [a-zA-Z0-9_-]+, max 255 characters. Colons are prohibited to
// prevent key collisions in backend storage.
func ValidateSecretRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("secret ref must not be empty")
	}
	if len(ref) > maxSecretRefLen {
		return fmt.Errorf("secret ref exceeds maximum length of %d characters", maxSecretRefLen)
	}
	for i := 0; i < len(ref); i++ {
		b := ref[i]
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '_', b == '-':
		default:
			return fmt.Errorf("secret ref contains invalid characters; only [a-zA-Z0-9_-] are allowed")
		}
	}
	return nil
}

// SecretValue wraps opaque secret bytes. Every formatting path emits a fixed
// redaction marker so the content can never leak through logs or errors;
// only Bytes gives access to the raw value.
type SecretValue struct {
	b []byte
}

// NewSecretValue wraps raw bytes in a SecretValue.
func NewSecretValue(b []byte) *SecretValue {
	return &SecretValue{b: b}
}

// SecretFromString wraps a string in a SecretValue.
func SecretFromString(s string) *SecretValue {
	return &SecretValue{b: []byte(s)}
}

// Bytes returns the raw secret bytes.
func (s *SecretValue) Bytes() []byte {
	return s.b
}

// Zero overwrites the secret bytes in place. Called after the outbound
// dispatch returns so the value does not outlive the single request.
func (s *SecretValue) Zero() {
	for i := range s.b {
		s.b[i] = 0
	}
	s.b = nil
}

func (s *SecretValue) String() string   { return redacted }
func (s *SecretValue) GoString() string { return redacted }

// Format implements fmt.Formatter so that every verb, including %v, %s, %q
// and %x, prints the redaction marker.
func (s *SecretValue) Format(f fmt.State, verb rune) {
	fmt.Fprint(f, redacted)
}

// MarshalJSON emits the redaction marker instead of the secret content.
func (s *SecretValue) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// MarshalText emits the redaction marker instead of the secret content.
func (s *SecretValue) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}
