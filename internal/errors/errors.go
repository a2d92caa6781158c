package errors

import "fmt"

// ValidationError covers malformed addresses, missing fields and
// out-of-range scores. Always user-correctable.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// CooldownError is returned when a wallet asks for a reward before its
// cooldown window has elapsed.
type CooldownError struct {
	Wallet           string
	SecondsRemaining int64
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("reward cooldown active for %s: %ds remaining", e.Wallet, e.SecondsRemaining)
}

// MinutesRemaining reports the remaining wait rounded up to whole minutes,
// which is how the API phrases it to callers.
func (e *CooldownError) MinutesRemaining() int64 {
	return (e.SecondsRemaining + 59) / 60
}

type DatabaseError struct {
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Operation, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

type EthereumError struct {
	Operation string
	Err       error
}

func (e *EthereumError) Error() string {
	return fmt.Sprintf("ethereum error during %s: %v", e.Operation, e.Err)
}

func (e *EthereumError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Resource   string
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Identifier)
}

type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s - %v", e.StatusCode, e.Message, e.Err)
}

type WebSocketError struct {
	Operation string
	Err       error
}

func (e *WebSocketError) Error() string {
	return fmt.Sprintf("WebSocket error during %s: %v", e.Operation, e.Err)
}
