package shared

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// NewID returns an opaque URL-safe short identifier (22 chars).
func NewID() string {
	u := uuid.New()
	return base64.RawURLEncoding.EncodeToString(u[:])
}
