// Package services defines shared utilities consumed by the report pipeline,
// the HTTP layer, and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp user IDs, record IDs, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is and translate them into HTTP status codes.
//
// Use these helpers when wiring new handlers so operational behaviour (error
// classification, observability) stays uniform across the service.
package services
