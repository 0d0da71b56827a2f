package blobcodec_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"testing"

	"movup/internal/blobcodec"
	"movup/internal/report"
	"movup/internal/services"
)

func sampleReport() report.AnalysisReport {
	return report.AnalysisReport{
		Summary: report.AnalysisSummary{
			TotalFrames:          300,
			FPS:                  30,
			TotalDurationSeconds: 10,
			PerIssueCounts: map[report.IssueType]int{
				report.IssuePosture:    2,
				report.IssueOverstride: 1,
			},
		},
		Aggregates: map[report.IssueType]report.IssueAggregate{
			report.IssuePosture: {
				ErrorFrameCount:  2,
				WorstFrameNumber: 30,
				ImagePath:        "/output/posture/frame_000030.jpg",
				Series:           []report.SeriesPoint{{FrameNumber: 0, Value: 100}, {FrameNumber: 30, Value: 95}},
				Seconds:          []report.SecondPoint{{Second: 0, Value: 100, Frames: 1}, {Second: 1, Value: 95, Frames: 1}},
			},
			report.IssueOverstride: {
				ErrorFrameCount: 1,
				Series:          []report.SeriesPoint{{FrameNumber: 45, Value: 1}},
				Seconds:         []report.SecondPoint{{Second: 1, Value: 1, Frames: 1, Flagged: true}},
				FlaggedSeconds:  1,
			},
		},
		WorstFrames: []report.WorstFrameRecord{
			{IssueType: report.IssuePosture, FrameNumber: 30, ImagePath: "p.jpg", SeverityScore: report.Float64(0.9)},
		},
	}
}

// indexed converts a byte slice to the index-keyed object an older ORM layer
// produced when serializing binary columns to JSON.
func indexed(data []byte) map[string]any {
	out := make(map[string]any, len(data))
	for i, b := range data {
		out[strconv.Itoa(i)] = float64(b)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	want := sampleReport()
	data, err := blobcodec.Encode(want)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := blobcodec.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestEncodeIsStable(t *testing.T) {
	first, err := blobcodec.Encode(sampleReport())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for range 10 {
		again, err := blobcodec.Encode(sampleReport())
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding changed between runs:\n%s\n%s", first, again)
		}
	}
}

func TestLegacyIndexedShapeDecodesToSameReport(t *testing.T) {
	data, err := blobcodec.Encode(sampleReport())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	fromBytes, err := blobcodec.Decode(data)
	if err != nil {
		t.Fatalf("Decode bytes: %v", err)
	}
	fromIndexed, err := blobcodec.Decode(indexed(data))
	if err != nil {
		t.Fatalf("Decode indexed: %v", err)
	}
	if !reflect.DeepEqual(fromBytes, fromIndexed) {
		t.Fatalf("legacy shape decoded differently\n bytes: %+v\nindexed: %+v", fromBytes, fromIndexed)
	}
}

func TestIndexedValuesAsStringsAndIntKeys(t *testing.T) {
	doc := []byte(`{"ok":true}`)
	strs := make(map[string]any, len(doc))
	ints := make(map[int]any, len(doc))
	for i, b := range doc {
		strs[strconv.Itoa(i)] = strconv.Itoa(int(b))
		ints[i] = int(b)
	}
	for name, raw := range map[string]any{"strings": strs, "ints": ints} {
		got, err := blobcodec.Payload(raw)
		if err != nil {
			t.Fatalf("%s: Payload: %v", name, err)
		}
		if !bytes.Equal(got, doc) {
			t.Fatalf("%s: got %q want %q", name, got, doc)
		}
	}
}

func TestIndexedSkipsNullAndForeignKeys(t *testing.T) {
	raw := map[string]any{
		"2":      float64('}'),
		"0":      float64('{'),
		"1":      nil,
		"length": float64(3),
		"-1":     float64('x'),
	}
	got, err := blobcodec.Payload(raw)
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if string(got) != "{}" {
		t.Fatalf("got %q", got)
	}
}

func TestIndexedValuesKeepLowByte(t *testing.T) {
	// 379 & 0xFF == '{', -131 & 0xFF == '}'
	raw := map[string]any{"0": float64(379), "1": "-131"}
	got, err := blobcodec.Payload(raw)
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if string(got) != "{}" {
		t.Fatalf("got %q", got)
	}
}

func TestIndexedCollidingKeysRepeatCanonicalValue(t *testing.T) {
	// "01" parses to offset 1 and reads the value stored under "1".
	raw := map[string]any{"0": float64('{'), "1": float64(' '), "01": float64('x'), "2": float64('}')}
	got, err := blobcodec.Payload(raw)
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if string(got) != "{  }" {
		t.Fatalf("got %q, want %q", got, "{  }")
	}
}

func TestIndexedSkipsOverflowingKeys(t *testing.T) {
	raw := map[string]any{
		"0":                     float64('{'),
		"1":                     float64('}'),
		"100000000000000000001": float64('x'),
	}
	got, err := blobcodec.Payload(raw)
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if string(got) != "{}" {
		t.Fatalf("got %q, want %q", got, "{}")
	}
}

func TestIndexedOversizedStringValueWrapsLikeInt32(t *testing.T) {
	// 4294967419 mod 2^32 == 123 == '{'
	raw := map[string]any{"0": "4294967419", "1": float64('}')}
	got, err := blobcodec.Payload(raw)
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if string(got) != "{}" {
		t.Fatalf("got %q", got)
	}
}

func TestHelloPayloadIsDecodeError(t *testing.T) {
	raw := map[string]any{"0": float64(72), "1": float64(101), "2": float64(108), "3": float64(108), "4": float64(111)}
	_, err := blobcodec.Decode(raw)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected ErrDecode marker, got %v", err)
	}
	var decodeErr *blobcodec.DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.Shape != blobcodec.ShapeIndexed {
		t.Fatalf("expected indexed DecodeError, got %#v", err)
	}
}

func TestDecodeFailures(t *testing.T) {
	cases := []struct {
		name  string
		raw   any
		shape blobcodec.Shape
	}{
		{"nil", nil, blobcodec.ShapeAbsent},
		{"nil bytes", []byte(nil), blobcodec.ShapeAbsent},
		{"empty object", map[string]any{}, blobcodec.ShapeIndexed},
		{"only foreign keys", map[string]any{"type": "Buffer"}, blobcodec.ShapeIndexed},
		{"array", []any{float64(123), float64(125)}, blobcodec.ShapeUnknown},
		{"string", "{}", blobcodec.ShapeUnknown},
		{"json array", []byte(`[1,2]`), blobcodec.ShapeBytes},
		{"json number", []byte(`42`), blobcodec.ShapeBytes},
		{"truncated", []byte(`{"summary":`), blobcodec.ShapeBytes},
		{"trailing", []byte(`{} {}`), blobcodec.ShapeBytes},
		{"invalid utf8", []byte{'{', 0xff, '}'}, blobcodec.ShapeBytes},
	}
	for _, tc := range cases {
		if got := blobcodec.Detect(tc.raw); got != tc.shape {
			t.Fatalf("%s: Detect = %s, want %s", tc.name, got, tc.shape)
		}
		_, err := blobcodec.Decode(tc.raw)
		var decodeErr *blobcodec.DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("%s: expected DecodeError, got %v", tc.name, err)
		}
		if decodeErr.Shape != tc.shape {
			t.Fatalf("%s: error shape = %s, want %s", tc.name, decodeErr.Shape, tc.shape)
		}
	}
}

func TestEncodeDocumentCanonicalizes(t *testing.T) {
	a, err := blobcodec.EncodeDocument([]byte(`{ "b": 1, "a": {"y": 2.50, "x": [3]} }`))
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}
	b, err := blobcodec.EncodeDocument([]byte(`{"a":{"x":[3],"y":2.50},"b":1}`))
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("expected identical encodings, got %s and %s", a, b)
	}
	if string(a) != `{"a":{"x":[3],"y":2.50},"b":1}` {
		t.Fatalf("unexpected canonical form %s", a)
	}
	if _, err := blobcodec.EncodeDocument([]byte(`[1]`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for array document, got %v", err)
	}
}

func TestDecodeAcceptsRawMessage(t *testing.T) {
	data, err := blobcodec.Encode(sampleReport())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := blobcodec.Decode(json.RawMessage(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Summary.TotalFrames != 300 {
		t.Fatalf("unexpected summary %+v", got.Summary)
	}
}

func TestIsReport(t *testing.T) {
	encoded, err := blobcodec.Encode(report.AnalysisReport{
		Summary: report.AnalysisSummary{TotalFrames: 30, FPS: 30},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	cases := []struct {
		name string
		doc  string
		want bool
	}{
		{"encoded without aggregates", string(encoded), true},
		{"foreign kind", `{"kind":"other","aggregates":{}}`, false},
		{"aggregates member", `{"summary":{"total_frames":1},"aggregates":{}}`, true},
		{"per issue counts", `{"summary":{"per_issue_counts":{"posture":3}}}`, true},
		{"worst frames by issue type", `{"worst_frames":[{"issue_type":"posture","frame_number":7}]}`, true},
		{"service summary", `{"summary":{"total_frames":300,"fps":30,"posture_issues_count":2}}`, false},
		{"service worst frames", `{"worst_frames":[{"error_type":"posture","frame_number":7}]}`, false},
		{"analysis wins", `{"analysis":[],"aggregates":{}}`, false},
		{"unrelated object", `{"a":1}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := blobcodec.IsReport([]byte(tc.doc)); got != tc.want {
				t.Fatalf("IsReport(%s) = %v, want %v", tc.doc, got, tc.want)
			}
		})
	}
}
