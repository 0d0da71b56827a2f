// Package report defines the running-analysis data model shared by the
// aggregation pipeline, the persistence codec, and the HTTP layer.
//
// The types here are plain values. Aggregates are recomputed wholesale on
// every pass and never patched in place; a finished AnalysisReport is owned by
// the request that built it until it is persisted, after which the store owns
// the encoded bytes and callers refer to it by (user id, record id).
//
// The package also carries the static per-issue text table used by the
// presentation layer and the wire shape emitted by the external video-analysis
// service, so conversion code has a single place to look for field names.
package report
