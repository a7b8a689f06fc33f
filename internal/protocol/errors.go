package protocol

import (
	"errors"
	"fmt"
)

// Error codes sent back in error events.
const (
	CodeBadPayload   = "bad_payload"
	CodeUnknownEvent = "unknown_event"
	CodeValidation   = "validation_failed"
	CodeRateLimited  = "rate_limited"
	CodeNotInRoom    = "not_in_room"
)

// ValidationError rejects an inbound frame at the protocol boundary.
type ValidationError struct {
	Code    string
	Event   EventType
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s: %s", e.Code, e.Event, e.Field, e.Message)
	}
	if e.Event != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Event, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsValidation unwraps err into a *ValidationError.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func invalid(ev EventType, field, msg string) *ValidationError {
	return &ValidationError{Code: CodeValidation, Event: ev, Field: field, Message: msg}
}
