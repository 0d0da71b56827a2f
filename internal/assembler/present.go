package assembler

import (
	"movup/internal/aggregate"
	"movup/internal/report"
	"movup/internal/worstframe"
)

// DisplayFPS is shown for reports that carry no frame rate.
const DisplayFPS = 30.0

// Section is one display block of a report.
type Section struct {
	IssueType             report.IssueType     `json:"issueType"`
	Title                 string               `json:"title"`
	Description           string               `json:"description"`
	Impact                string               `json:"impact"`
	Severity              string               `json:"severity"`
	ChartTitle            string               `json:"chartTitle,omitempty"`
	FrameCount            int                  `json:"frameCount"`
	TotalSeconds          float64              `json:"totalSeconds"`
	FPS                   float64              `json:"fps"`
	WorstFrameImage       string               `json:"worstFrameImage,omitempty"`
	SuccessFrameImage     string               `json:"successFrameImage,omitempty"`
	WorstFrameNumber      int                  `json:"worstFrameNumber,omitempty"`
	WorstFrameSeverity    *float64             `json:"worstFrameSeverity,omitempty"`
	WorstFrameDescription string               `json:"worstFrameDescription,omitempty"`
	Series                []report.SeriesPoint `json:"frameData,omitempty"`
	Seconds               []report.SecondPoint `json:"seconds,omitempty"`
	FlaggedSeconds        int                  `json:"flaggedSeconds,omitempty"`
	AnalyzedSeconds       int                  `json:"analyzedSeconds,omitempty"`
}

// Presenter builds display sections using a worst-frame selector for image
// resolution.
type Presenter struct {
	selector *worstframe.Selector
}

// NewPresenter returns a Presenter. A nil selector uses the default base path.
func NewPresenter(selector *worstframe.Selector) *Presenter {
	if selector == nil {
		selector = worstframe.New(worstframe.Options{})
	}
	return &Presenter{selector: selector}
}

// Present returns one section per issue type present in r.Aggregates, in
// presentation order. Posture and overstride are always emitted when present;
// visibility only when it has at least one error frame.
func (p *Presenter) Present(r report.AnalysisReport) []Section {
	worst := p.selector.Select(r.Aggregates, r.WorstFrames)
	displayFPS := r.Summary.FPS
	if displayFPS <= 0 {
		displayFPS = DisplayFPS
	}

	var sections []Section
	for _, issue := range report.AllIssueTypes() {
		agg, ok := r.Aggregates[issue]
		if !ok {
			continue
		}
		if issue == report.IssueVisibility && agg.ErrorFrameCount == 0 {
			continue
		}
		text, _ := report.TextFor(issue)
		section := Section{
			IssueType:         issue,
			Title:             text.Title,
			Description:       text.Description,
			Impact:            text.Impact,
			Severity:          text.Severity,
			ChartTitle:        text.ChartTitle,
			FrameCount:        agg.ErrorFrameCount,
			TotalSeconds:      aggregate.DurationSeconds(agg.ErrorFrameCount, r.Summary.FPS),
			FPS:               displayFPS,
			SuccessFrameImage: p.selector.Resolve(agg.SuccessImagePath),
		}
		if w := worst[issue]; w != nil {
			section.WorstFrameImage = w.ImagePath
			section.WorstFrameNumber = w.FrameNumber
			section.WorstFrameSeverity = w.SeverityScore
			section.WorstFrameDescription = w.Description
		}
		if issue != report.IssueVisibility {
			section.Series = agg.Series
			section.Seconds = agg.Seconds
		}
		if issue == report.IssueOverstride {
			section.FlaggedSeconds = agg.FlaggedSeconds
			section.AnalyzedSeconds = len(agg.Seconds)
		}
		sections = append(sections, section)
	}
	return sections
}
