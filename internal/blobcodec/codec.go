package blobcodec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"movup/internal/report"
	"movup/internal/services"
)

// DecodeError reports a payload that could not be turned into a document.
type DecodeError struct {
	Shape Shape
	Err   error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("decode %s payload", e.Shape)
	}
	return fmt.Sprintf("decode %s payload: %v", e.Shape, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, services.ErrDecode) classify codec failures.
func (e *DecodeError) Is(target error) bool { return target == services.ErrDecode }

var (
	errAbsent     = errors.New("payload is absent")
	errNoIndexed  = errors.New("no byte offsets found")
	errNotUTF8    = errors.New("payload is not valid UTF-8")
	errNotObject  = errors.New("payload is not a JSON object")
	errUnknownRaw = errors.New("unsupported payload type")
)

// ReportKind is the "kind" member Encode writes so stored reports are never
// mistaken for raw analysis-service documents.
const ReportKind = "analysis_report"

type envelope struct {
	Kind string `json:"kind"`
	report.AnalysisReport
}

// Encode serializes r to canonical JSON bytes tagged with ReportKind.
func Encode(r report.AnalysisReport) ([]byte, error) {
	data, err := json.Marshal(envelope{Kind: ReportKind, AnalysisReport: r})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "blobcodec", "encode", "marshal report", err)
	}
	return data, nil
}

// EncodeDocument canonicalizes an arbitrary JSON object so that equal
// documents always produce equal bytes regardless of key order or spacing.
// Numbers keep their original literal form.
func EncodeDocument(doc []byte) ([]byte, error) {
	value, err := parseObject(doc)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "blobcodec", "encode", "invalid document", err)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "blobcodec", "encode", "marshal document", err)
	}
	return data, nil
}

// Payload normalizes raw to the stored JSON object bytes. It accepts a native
// byte sequence, an index-keyed object, or nil; anything that does not yield
// a UTF-8 JSON object is a *DecodeError.
func Payload(raw any) ([]byte, error) {
	shape := Detect(raw)
	var data []byte
	switch shape {
	case ShapeAbsent:
		return nil, &DecodeError{Shape: shape, Err: errAbsent}
	case ShapeBytes:
		switch v := raw.(type) {
		case []byte:
			data = v
		case json.RawMessage:
			data = v
		}
	case ShapeIndexed:
		var ok bool
		data, ok = indexedBytes(raw)
		if !ok {
			return nil, &DecodeError{Shape: shape, Err: errNoIndexed}
		}
	default:
		return nil, &DecodeError{Shape: shape, Err: fmt.Errorf("%w: %T", errUnknownRaw, raw)}
	}
	if !utf8.Valid(data) {
		return nil, &DecodeError{Shape: shape, Err: errNotUTF8}
	}
	if _, err := parseObject(data); err != nil {
		return nil, &DecodeError{Shape: shape, Err: err}
	}
	return data, nil
}

// Decode normalizes raw and parses it as an AnalysisReport.
func Decode(raw any) (report.AnalysisReport, error) {
	data, err := Payload(raw)
	if err != nil {
		return report.AnalysisReport{}, err
	}
	var r report.AnalysisReport
	if err := json.Unmarshal(data, &r); err != nil {
		return report.AnalysisReport{}, &DecodeError{Shape: Detect(raw), Err: err}
	}
	return r, nil
}

// IsReport reports whether a normalized payload holds an assembled report
// rather than a raw analysis-service document. Payloads written by Encode
// carry ReportKind. Older ones are recognized by members only a report has:
// aggregates, summary.per_issue_counts, or worst_frames entries keyed by
// issue_type. A payload with an analysis member is always a service document.
func IsReport(data []byte) bool {
	var members struct {
		Kind        *string         `json:"kind"`
		Analysis    json.RawMessage `json:"analysis"`
		Aggregates  json.RawMessage `json:"aggregates"`
		Summary     json.RawMessage `json:"summary"`
		WorstFrames json.RawMessage `json:"worst_frames"`
	}
	if err := json.Unmarshal(data, &members); err != nil {
		return false
	}
	if members.Kind != nil {
		return *members.Kind == ReportKind
	}
	if len(members.Analysis) > 0 {
		return false
	}
	if len(members.Aggregates) > 0 {
		return true
	}
	var summary map[string]json.RawMessage
	if json.Unmarshal(members.Summary, &summary) == nil {
		if _, ok := summary["per_issue_counts"]; ok {
			return true
		}
	}
	var worst []map[string]json.RawMessage
	if json.Unmarshal(members.WorstFrames, &worst) == nil {
		for _, entry := range worst {
			if _, ok := entry["issue_type"]; ok {
				return true
			}
		}
	}
	return false
}

func parseObject(data []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if len(trimmed) > 0 && !json.Valid(trimmed) {
			return nil, fmt.Errorf("invalid JSON: %q", truncate(trimmed, 32))
		}
		return nil, errNotObject
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var value map[string]any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON object")
	}
	return value, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
