package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotConfigured is returned when neither a file nor an inline value is set.
var ErrNotConfigured = errors.New("secret is not configured")

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret, typically from the environment.
	Value string
	// File points to a file containing the secret. It takes precedence over Value.
	File string
	// Optional makes an unconfigured secret resolve to "" instead of an error.
	// An empty or unreadable File is still an error.
	Optional bool
}

// Load returns the trimmed secret described by src.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}

		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		if src.Optional {
			return "", nil
		}
		return "", fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}

	return secret, nil
}
