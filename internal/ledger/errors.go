package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a verify lookup matches no stored record.
var ErrNotFound = errors.New("record not found")

// ErrInvalidQRCode is returned when a presented token is not of the form
// {TYPE}_{id}_{millis} for the expected type.
var ErrInvalidQRCode = errors.New("invalid QR code")

// ValidationError reports a payload that cannot be registered.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// ChainError describes the first link that failed validation.
type ChainError struct {
	Index  int
	ID     string
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("chain broken at index %d (%s): %s", e.Index, e.ID, e.Reason)
}
