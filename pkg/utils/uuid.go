package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewUUID generates a new UUID
func NewUUID() uuid.UUID {
	return uuid.New()
}

// ParseUUID parses a string into a UUID
func ParseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// GenerateIdempotencyToken mints an opaque token for requests that arrive
// without an Idempotency-Key header.
func GenerateIdempotencyToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// GenerateDisplayNo generates a short human-facing reference number.
func GenerateDisplayNo(prefix string) string {
	return prefix + "-" + strings.ToUpper(uuid.New().String()[:8])
}
