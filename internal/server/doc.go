// Package server hosts the HTTP API for stored running analyses.
//
// The Daemon type owns the single-instance lock under data_dir and the
// listener lifecycle; the handlers translate requests into AnalysisService
// calls and map classified errors to status codes. Every request is tagged
// with an X-Request-ID that flows into log lines through the request context.
//
// Authentication is optional. A static bearer token grants full access; an
// HS256 JWT grants access to the records of the user named in its user_id
// claim.
package server
