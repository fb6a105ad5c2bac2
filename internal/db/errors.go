package db

import "errors"

// Sentinel errors for type-safe error checking
// Use errors.Is() instead of string comparison
var (
	ErrResultNotFound = errors.New("analysis result not found")
)
