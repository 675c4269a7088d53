package id

import (
	"strings"

	"github.com/google/uuid"
)

// UUID generates a random (v4) UUID in its canonical lower-case form.
func UUID() string {
	return uuid.NewString()
}

// Short returns the first 16 hex digits of a random UUID.
func Short() string {
	u := uuid.New()
	return strings.ReplaceAll(u.String(), "-", "")[:16]
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
