package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a 32-char hex identifier in the shape the platform's own
// clients generate for new records.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
