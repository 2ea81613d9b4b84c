package game

import "fmt"

// ErrorCode classifies a rejected action for the client.
type ErrorCode string

const (
	ErrNotInRoom        ErrorCode = "not_in_room"
	ErrUnknownRoom      ErrorCode = "unknown_room"
	ErrUnknownPlayer    ErrorCode = "unknown_player"
	ErrInvalidPayload   ErrorCode = "invalid_payload"
	ErrInvalidSelection ErrorCode = "invalid_selection"
	ErrCardNotFound     ErrorCode = "card_not_found"
	ErrWrongPhase       ErrorCode = "wrong_phase"
	ErrNotYourTurn      ErrorCode = "not_your_turn"
	ErrDeckExhausted    ErrorCode = "deck_exhausted"
	ErrInternal         ErrorCode = "internal_error"
)

// RoundError is a rejected action. The round never mutates state when
// returning one.
type RoundError struct {
	Code    ErrorCode
	Message string
}

func (e *RoundError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func reject(code ErrorCode, format string, args ...any) *RoundError {
	return &RoundError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the error code, defaulting to internal_error for
// unclassified failures.
func CodeOf(err error) ErrorCode {
	if re, ok := err.(*RoundError); ok {
		return re.Code
	}
	return ErrInternal
}
