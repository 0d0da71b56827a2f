package assembler

import (
	"maps"

	"movup/internal/aggregate"
	"movup/internal/report"
)

// Assemble combines the inputs into a report. Aggregates are copied; error
// counts are clamped to summary.TotalFrames when it is positive, per-issue
// counts missing from the summary are filled from the aggregates, and a zero
// duration is derived from totalFrames and fps.
func Assemble(summary report.AnalysisSummary, aggregates map[report.IssueType]report.IssueAggregate, worstFrames []report.WorstFrameRecord) report.AnalysisReport {
	out := report.AnalysisReport{Summary: summary}

	if len(aggregates) > 0 {
		out.Aggregates = make(map[report.IssueType]report.IssueAggregate, len(aggregates))
		for issue, agg := range aggregates {
			if summary.TotalFrames > 0 && agg.ErrorFrameCount > summary.TotalFrames {
				agg.ErrorFrameCount = summary.TotalFrames
			}
			out.Aggregates[issue] = agg
		}
	}

	counts := make(map[report.IssueType]int, len(out.Aggregates))
	maps.Copy(counts, summary.PerIssueCounts)
	for issue, agg := range out.Aggregates {
		if _, ok := counts[issue]; !ok {
			counts[issue] = agg.ErrorFrameCount
		}
	}
	if len(counts) > 0 {
		out.Summary.PerIssueCounts = counts
	} else {
		out.Summary.PerIssueCounts = nil
	}

	if out.Summary.TotalDurationSeconds == 0 {
		out.Summary.TotalDurationSeconds = aggregate.DurationSeconds(summary.TotalFrames, summary.FPS)
	}

	if len(worstFrames) > 0 {
		out.WorstFrames = append([]report.WorstFrameRecord(nil), worstFrames...)
	}
	return out
}

// Stats are the headline numbers shown next to a stored report.
type Stats struct {
	TotalErrorFrames int     `json:"totalErrorFrames"`
	SecondsWithError float64 `json:"secondsWithError"`
	ErrorPercentage  float64 `json:"errorPercentage"`
}

// Summarize derives Stats from r. Error frames are summed over the
// aggregates, or over the summary counts for reports without aggregates. The
// error percentage is 0 when the report has no frames; seconds with error
// assume 1 fps when fps is unknown.
func Summarize(r report.AnalysisReport) Stats {
	total := r.TotalErrorFrames()
	if len(r.Aggregates) == 0 {
		for _, issue := range report.AllIssueTypes() {
			total += r.Summary.PerIssueCounts[issue]
		}
	}

	fps := r.Summary.FPS
	if fps <= 0 {
		fps = 1
	}
	stats := Stats{
		TotalErrorFrames: total,
		SecondsWithError: aggregate.DurationSeconds(total, fps),
	}
	if r.Summary.TotalFrames > 0 {
		stats.ErrorPercentage = 100 * float64(total) / float64(r.Summary.TotalFrames)
	}
	return stats
}
