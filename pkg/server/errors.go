package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for common server error conditions.
var (
	// ErrProtectedEvent is returned when a reserved lifecycle event is
	// raised through the public trigger API.
	ErrProtectedEvent = errors.New("server: protected event")

	// ErrContractViolation is returned when a pluggable callback does not
	// satisfy its contract (e.g. a nil client-id converter).
	ErrContractViolation = errors.New("server: contract violation")

	// ErrAlreadyRunning is returned when igniting a server that is running.
	ErrAlreadyRunning = errors.New("server: already running")

	// ErrNotRunning is returned when extinguishing a server that is idle.
	ErrNotRunning = errors.New("server: not running")

	// ErrNotImplemented marks reserved extension points that fail hard
	// until the capability lands.
	ErrNotImplemented = errors.New("server: not implemented")

	// ErrNoSession is returned when sending to a client id with no open
	// WebSocket connection.
	ErrNoSession = errors.New("server: no websocket session for client")
)

// ValidationError reports an invalid configuration value. The setter that
// produced it leaves the previous value intact.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("server: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func newValidationError(field string, value any, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}
