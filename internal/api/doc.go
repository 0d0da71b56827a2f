// Package api defines wire-format types and the AnalysisService used by the
// HTTP layer and the CLI. It translates stored records into transport-friendly
// DTOs without coupling handlers to the store or the codec.
//
// # Key Types
//
// CreateRequest/CreateResponse: the POST /analises body and its 201 reply.
//
// AnalysisEntry: one listed record with its decoded document, or data=null
// and an error marker when the payload cannot be decoded.
//
// AnalysisDetail: a single record with the assembled report and its display
// sections.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for the web client, except report_id which the
// client already reads in snake case. Timestamps use RFC3339 with
// milliseconds in UTC. Stored documents are passed through as json.RawMessage
// to avoid double-encoding.
//
// Decode failures are isolated per record: a listing never fails because one
// payload is unreadable.
package api
