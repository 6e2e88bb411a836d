// Package linktoken generates the opaque handles that bind a browser-side
// authorization to later tool calls.
package linktoken

import (
	"fmt"

	"github.com/google/uuid"
)

// Generate returns a new random link token.
// Tokens are version 4 UUIDs drawn from crypto/rand and carry 122 random bits.
func Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generating link token: %w", err)
	}
	return id.String(), nil
}

// Valid reports whether s has the shape of a link token.
func Valid(s string) bool {
	id, err := uuid.Parse(s)
	return err == nil && id.Version() == 4 && len(s) == 36
}
