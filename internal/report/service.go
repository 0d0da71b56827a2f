package report

import "encoding/json"

// DefaultServiceFPS is the frame rate assumed when the analysis service does
// not report one.
const DefaultServiceFPS = 30.0

// ServiceResponse is the document emitted by the external video-analysis
// service. Every field is optional; missing aggregates mean zero issues of
// that type.
type ServiceResponse struct {
	Summary         *ServiceSummary       `json:"summary,omitempty"`
	TotalFrames     *int                  `json:"total_frames,omitempty"`
	FPS             *float64              `json:"fps,omitempty"`
	Analysis        []ServiceAnalysisItem `json:"analysis,omitempty"`
	AnalysisSummary map[string]int        `json:"analysis_summary,omitempty"`
	WorstFrames     json.RawMessage       `json:"worst_frames,omitempty"`
}

// ServiceSummary is the video-level block of a service response.
type ServiceSummary struct {
	TotalFrames           int     `json:"total_frames"`
	FPS                   float64 `json:"fps"`
	TotalDurationSeconds  float64 `json:"total_duration_seconds"`
	PostureIssuesCount    *int    `json:"posture_issues_count,omitempty"`
	OverstrideIssuesCount *int    `json:"overstride_issues_count,omitempty"`
	VisibilityIssuesCount *int    `json:"visibility_issues_count,omitempty"`
}

// IssueCount returns the summary count reported for t, if any.
func (s *ServiceSummary) IssueCount(t IssueType) (int, bool) {
	if s == nil {
		return 0, false
	}
	var v *int
	switch t {
	case IssuePosture:
		v = s.PostureIssuesCount
	case IssueOverstride:
		v = s.OverstrideIssuesCount
	case IssueVisibility:
		v = s.VisibilityIssuesCount
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// ServiceAnalysisItem is one element of the service's analysis array. The
// service usually emits one item per issue type but may merge them.
type ServiceAnalysisItem struct {
	Posture           *ServiceAggregate `json:"posture,omitempty"`
	Overstride        *ServiceAggregate `json:"overstride,omitempty"`
	BaixaVisibilidade *ServiceAggregate `json:"baixa_visibilidade,omitempty"`
}

// For returns the aggregate stored under t, or nil.
func (i ServiceAnalysisItem) For(t IssueType) *ServiceAggregate {
	switch t {
	case IssuePosture:
		return i.Posture
	case IssueOverstride:
		return i.Overstride
	case IssueVisibility:
		return i.BaixaVisibilidade
	default:
		return nil
	}
}

// ServiceAggregate is the per-issue block produced by the analysis service.
type ServiceAggregate struct {
	ErrorFrames      *int             `json:"Número de frames com erro,omitempty"`
	WorstFrameNumber *int             `json:"worst_frame_number,omitempty"`
	ImagePath        string           `json:"image_path,omitempty"`
	SuccessImagePath string           `json:"success_image_path,omitempty"`
	Angles           []ServiceAngle   `json:"angles,omitempty"`
	Frames           []ServiceContact `json:"frames,omitempty"`
}

// ServiceAngle is one posture measurement.
type ServiceAngle struct {
	FrameNumber int     `json:"frame_number"`
	Angle       float64 `json:"angle"`
}

// ServiceContact is one ground-contact frame. Older service builds used
// "frame" instead of "frame_number".
type ServiceContact struct {
	Frame       *int `json:"frame,omitempty"`
	FrameNumber *int `json:"frame_number,omitempty"`
	Overstride  bool `json:"overstride"`
}

// Number returns the contact's frame number, preferring "frame".
func (c ServiceContact) Number() int {
	if c.Frame != nil {
		return *c.Frame
	}
	if c.FrameNumber != nil {
		return *c.FrameNumber
	}
	return 0
}

// ServiceWorstFrame is one entry of the service's worst_frames list.
type ServiceWorstFrame struct {
	ErrorType     string   `json:"error_type,omitempty"`
	FrameNumber   int      `json:"frame_number"`
	ImagePath     string   `json:"image_path,omitempty"`
	Description   string   `json:"description,omitempty"`
	SeverityScore *float64 `json:"severity_score,omitempty"`
}

// ParseWorstFrames decodes the worst_frames field. The current service emits
// an array; older builds emitted an object keyed by issue name. Entries from
// the object form are returned in presentation order with ErrorType filled in.
// Any other shape yields nil.
func ParseWorstFrames(raw json.RawMessage) []ServiceWorstFrame {
	if len(raw) == 0 {
		return nil
	}
	var list []ServiceWorstFrame
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var keyed map[string]ServiceWorstFrame
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil
	}
	out := make([]ServiceWorstFrame, 0, len(keyed))
	for _, t := range allIssueTypes {
		for _, key := range []string{string(t), t.UpstreamKey()} {
			entry, ok := keyed[key]
			if !ok {
				continue
			}
			entry.ErrorType = string(t)
			out = append(out, entry)
			break
		}
	}
	return out
}

// WorstFrameRecords converts service entries into model records, dropping
// entries whose error type is unknown.
func WorstFrameRecords(entries []ServiceWorstFrame) []WorstFrameRecord {
	if len(entries) == 0 {
		return nil
	}
	out := make([]WorstFrameRecord, 0, len(entries))
	for _, entry := range entries {
		t, ok := ParseIssueType(entry.ErrorType)
		if !ok {
			continue
		}
		out = append(out, WorstFrameRecord{
			IssueType:     t,
			FrameNumber:   entry.FrameNumber,
			ImagePath:     entry.ImagePath,
			Description:   entry.Description,
			SeverityScore: entry.SeverityScore,
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
