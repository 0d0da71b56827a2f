package testsupport

import (
	"encoding/json"
	"strconv"
	"testing"

	"movup/internal/blobcodec"
	"movup/internal/report"
)

// SampleServiceDocument is a complete analysis-service response: posture
// errors at frames 0 and 30, one overstride contact at frame 20, and a
// visibility block with no errors.
const SampleServiceDocument = `{
	"summary": {
		"total_frames": 300,
		"fps": 30,
		"total_duration_seconds": 10,
		"posture_issues_count": 2,
		"overstride_issues_count": 1,
		"visibility_issues_count": 0
	},
	"analysis": [
		{"posture": {
			"Número de frames com erro": 2,
			"worst_frame_number": 30,
			"image_path": "/output/posture/worst.jpg",
			"success_image_path": "output/posture/best.jpg",
			"angles": [
				{"frame_number": 0, "angle": 100},
				{"frame_number": 15, "angle": 120},
				{"frame_number": 30, "angle": 95}
			]
		}},
		{"overstride": {
			"Número de frames com erro": 1,
			"frames": [
				{"frame": 10, "overstride": false},
				{"frame": 20, "overstride": true},
				{"frame_number": 40, "overstride": false}
			]
		}},
		{"baixa_visibilidade": {"Número de frames com erro": 0}}
	],
	"worst_frames": [
		{"error_type": "overstride", "frame_number": 20, "image_path": "/output/overstride/20.jpg", "description": "pé à frente do quadril", "severity_score": 0.7}
	]
}`

// SampleServiceResponse returns SampleServiceDocument decoded.
func SampleServiceResponse(t testing.TB) report.ServiceResponse {
	t.Helper()
	var resp report.ServiceResponse
	if err := json.Unmarshal([]byte(SampleServiceDocument), &resp); err != nil {
		t.Fatalf("unmarshal sample service document: %v", err)
	}
	return resp
}

// MustEncode encodes r with blobcodec and fails the test on error.
func MustEncode(t testing.TB, r report.AnalysisReport) []byte {
	t.Helper()
	data, err := blobcodec.Encode(r)
	if err != nil {
		t.Fatalf("blobcodec.Encode: %v", err)
	}
	return data
}

// LegacyIndexed renders payload as the index-keyed JSON object older
// deployments stored, for example {"0":123,"1":34}.
func LegacyIndexed(t testing.TB, payload []byte) []byte {
	t.Helper()
	obj := make(map[string]int, len(payload))
	for i, b := range payload {
		obj[strconv.Itoa(i)] = int(b)
	}
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshal legacy payload: %v", err)
	}
	return data
}
