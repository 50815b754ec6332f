package common

import (
	"github.com/google/uuid"
)

// NewProcessID generates a unique process ID with the "proc_" prefix.
// Format: proc_<uuid>
func NewProcessID() string {
	return "proc_" + uuid.New().String()
}
