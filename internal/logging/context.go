package logging

import (
	"context"
	"log/slog"

	"movup/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldUserID is the standardized key for the owner of the records being handled.
	FieldUserID = "user_id"
	// FieldRecordID is the standardized key for stored analysis record identifiers.
	FieldRecordID = "record_id"
	// FieldRequestID is the standardized key for HTTP request correlation identifiers.
	FieldRequestID = "request_id"
	// FieldEventType classifies a log line for filtering (e.g. "decode_failed").
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to an operator reading a warning.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecodeShape records the detected payload shape on decode failures.
	FieldDecodeShape = "decode_shape"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.UserIDFromContext(ctx); ok {
		fields = append(fields, UserID(id))
	}
	if id, ok := services.RecordIDFromContext(ctx); ok {
		fields = append(fields, RecordID(id))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRequestID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(toArgs(fields)...)
}
