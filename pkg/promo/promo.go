// Package promo derives promo codes from user display names.
//
// A code is the display name stripped down to ASCII letters and digits.
// Names that leave nothing behind (emoji-only, cyrillic-only, empty) fall
// back to a random code, as do retries after a uniqueness collision.
package promo

import (
	"strings"

	"github.com/google/uuid"
)

const (
	maxCodeLen       = 32
	randomCodePrefix = "REF"
	randomCodeLen    = 8
)

// FromDisplayName returns the promo code derived from name, or a random
// code when the sanitized name is empty.
func FromDisplayName(name string) string {
	code := sanitize(name)
	if code == "" {
		return Random()
	}

	if len(code) > maxCodeLen {
		code = code[:maxCodeLen]
	}

	return code
}

// Random returns a fresh code with no relation to any display name.
// Used both for unusable names and for collision retries.
func Random() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))

	return randomCodePrefix + id[:randomCodeLen]
}

func sanitize(name string) string {
	var b strings.Builder

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}

	return b.String()
}
