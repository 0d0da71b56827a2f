package report

// RawFrameRecord is one sampled frame as reported by the analysis service.
// Angle and Overstride are nil when the service did not measure them for the
// frame (for example, overstride is only evaluated on ground-contact frames).
type RawFrameRecord struct {
	FrameNumber int
	Angle       *float64
	Overstride  *bool
	Issues      IssueSet
}

// Flagged reports whether the frame counts as an error for issue type t.
//
// Posture uses the angle threshold when an angle is present and falls back to
// the explicit flag otherwise. Overstride uses the contact flag when present.
// Visibility is flag-only.
func (r RawFrameRecord) Flagged(t IssueType) bool {
	switch t {
	case IssuePosture:
		if r.Angle != nil {
			return *r.Angle < PostureThresholdDegrees
		}
		return r.Issues.Has(IssuePosture)
	case IssueOverstride:
		if r.Overstride != nil {
			return *r.Overstride
		}
		return r.Issues.Has(IssueOverstride)
	case IssueVisibility:
		return r.Issues.Has(IssueVisibility)
	default:
		return false
	}
}

// SeriesPoint is one ungrouped chart point keyed by frame number. For posture
// the value is the measured angle; for overstride it is 1 when the contact was
// flagged and 0 otherwise.
type SeriesPoint struct {
	FrameNumber int     `json:"frame_number"`
	Value       float64 `json:"value"`
}

// SecondPoint is one per-second bucket. Value is the mean angle for posture
// and 1/0 (any contact flagged) for overstride.
type SecondPoint struct {
	Second  int     `json:"second"`
	Value   float64 `json:"value"`
	Frames  int     `json:"frames"`
	Flagged bool    `json:"flagged,omitempty"`
}

// IssueAggregate is the derived per-issue summary. A WorstFrameNumber of zero
// means no qualifying frame was recorded.
type IssueAggregate struct {
	ErrorFrameCount  int           `json:"error_frame_count"`
	WorstFrameNumber int           `json:"worst_frame_number,omitempty"`
	ImagePath        string        `json:"image_path,omitempty"`
	SuccessImagePath string        `json:"success_image_path,omitempty"`
	Series           []SeriesPoint `json:"series,omitempty"`
	Seconds          []SecondPoint `json:"seconds,omitempty"`
	FlaggedSeconds   int           `json:"flagged_seconds,omitempty"`
}

// WorstFrameRecord is the representative frame chosen for an issue type.
type WorstFrameRecord struct {
	IssueType     IssueType `json:"issue_type"`
	FrameNumber   int       `json:"frame_number"`
	ImagePath     string    `json:"image_path,omitempty"`
	Description   string    `json:"description,omitempty"`
	SeverityScore *float64  `json:"severity_score,omitempty"`
}

// AnalysisSummary carries video-level totals.
type AnalysisSummary struct {
	TotalFrames          int               `json:"total_frames"`
	FPS                  float64           `json:"fps"`
	TotalDurationSeconds float64           `json:"total_duration_seconds"`
	PerIssueCounts       map[IssueType]int `json:"per_issue_counts,omitempty"`
}

// AnalysisReport is the assembled, persistable result of one analysis.
type AnalysisReport struct {
	Summary     AnalysisSummary              `json:"summary"`
	Aggregates  map[IssueType]IssueAggregate `json:"aggregates,omitempty"`
	WorstFrames []WorstFrameRecord           `json:"worst_frames,omitempty"`
}

// Aggregate returns the aggregate for t and whether it is present.
func (r AnalysisReport) Aggregate(t IssueType) (IssueAggregate, bool) {
	agg, ok := r.Aggregates[t]
	return agg, ok
}

// TotalErrorFrames sums ErrorFrameCount across all aggregates.
func (r AnalysisReport) TotalErrorFrames() int {
	total := 0
	for _, agg := range r.Aggregates {
		total += agg.ErrorFrameCount
	}
	return total
}

// Float64 returns a pointer to v. It keeps literal construction of optional
// measurements short in callers and tests.
func Float64(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
