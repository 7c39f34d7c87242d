package model

import "errors"

// Domain errors shared across stores, services and handlers. Services wrap
// these with context; handlers map them to HTTP responses with errors.Is.
var (
	ErrUnauthorized    = errors.New("credential missing, malformed or rejected")
	ErrPuzzleNotFound  = errors.New("puzzle not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidState    = errors.New("session is not in the required state")
	ErrSessionConflict = errors.New("an active session already exists for this puzzle")
)
