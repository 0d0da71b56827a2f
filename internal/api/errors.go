package api

import (
	"errors"

	"movup/internal/services"
)

// MissingFieldError reports a required request field that was absent or
// empty. Its message is the field name, which is what the web client shows.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string { return e.Field }

// Is classifies the error as a validation failure.
func (e *MissingFieldError) Is(target error) bool { return target == services.ErrValidation }

// ErrorBody renders err as the JSON error body. Missing fields are reported by
// name; other errors by message.
func ErrorBody(err error) ErrorResponse {
	var missing *MissingFieldError
	if errors.As(err, &missing) {
		return ErrorResponse{Error: missing.Field}
	}
	if err == nil {
		return ErrorResponse{}
	}
	return ErrorResponse{Error: err.Error()}
}
