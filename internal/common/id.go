package common

import (
	"github.com/google/uuid"
)

// NewScreenID generates a unique screening run ID with the "screen_" prefix
// Format: screen_<uuid>
func NewScreenID() string {
	return "screen_" + uuid.New().String()
}
