package helpers

import (
	"github.com/google/uuid"
)

// GenerateUUID returns a fresh document identifier.
func GenerateUUID() string {
	return uuid.New().String()
}

// IsValidUUID reports whether s parses as a UUID.
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}