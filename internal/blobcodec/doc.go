// Package blobcodec converts analysis reports to and from the byte payloads
// kept by the report store.
//
// Encoding is canonical JSON: the same logical value always yields the same
// bytes. Encoded reports carry a "kind" member set to ReportKind so IsReport
// can tell them apart from raw service documents stored alongside them; older
// unmarked reports are recognized by their fields. Decoding accepts every physical shape the store has produced over
// time. Input is first classified by Detect, normalized to a single byte
// sequence, and only then parsed, so callers never special-case legacy rows.
//
// Decode never panics. Failures are returned as *DecodeError, which matches
// services.ErrDecode under errors.Is and records the detected shape so a
// listing can flag the individual record and carry on.
package blobcodec
