package cryptox

import (
	"fmt"
	"log/slog"
)

// SecretMarker is a string we can look for in logs to see if the app
// is accidentally exposing secrets.
const SecretMarker = "<!SECRET_REDACTED!>"

// Secret is sensitive configuration (signing keys, passphrases, IVs) that
// needs to be passed around but never printed, marshalled or logged.
type Secret struct {
	value []byte
}

// NewSecret wraps raw.
func NewSecret(raw string) Secret {
	return Secret{value: []byte(raw)}
}

// IsZero reports whether the secret is empty.
func (s Secret) IsZero() bool {
	return len(s.value) == 0
}

func (s Secret) Format(f fmt.State, verb rune) {
	_, _ = f.Write([]byte(SecretMarker))
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(SecretMarker), nil
}

// UnmarshalText lets env and JSON loaders fill a Secret directly.
func (s *Secret) UnmarshalText(text []byte) error {
	s.value = append([]byte(nil), text...)
	return nil
}

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}

// SecretValue returns the raw bytes. This is the escape hatch for handing
// the secret to third party packages.
func (s Secret) SecretValue() []byte {
	return s.value
}
