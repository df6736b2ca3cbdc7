package util

import "github.com/google/uuid"

// NewID generates a new UUID string used for task, message and tool call
// identifiers throughout the framework.
func NewID() string { return uuid.NewString() }
