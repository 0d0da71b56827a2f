package assembler

import (
	"encoding/json"
	"sort"

	"movup/internal/aggregate"
	"movup/internal/blobcodec"
	"movup/internal/report"
	"movup/internal/services"
)

// FromServiceResponse runs the aggregation pipeline over a raw service
// document. Aggregates are recomputed from the per-frame series; where the
// service reported its own error count, worst frame, or image paths for an
// issue, those values win. Issue types the service omitted are treated as
// having no errors, except that posture and overstride are always present.
func FromServiceResponse(resp report.ServiceResponse) report.AnalysisReport {
	summary := serviceSummary(resp)

	upstream := mergeAnalysis(resp.Analysis)
	aggregates := aggregate.Aggregate(rawFrames(upstream), summary.FPS)
	for _, issue := range report.AllIssueTypes() {
		src := upstream[issue]
		if src == nil {
			if issue == report.IssueVisibility {
				delete(aggregates, issue)
			}
			continue
		}
		agg := aggregates[issue]
		if src.ErrorFrames != nil {
			agg.ErrorFrameCount = max(*src.ErrorFrames, 0)
		}
		if src.WorstFrameNumber != nil {
			agg.WorstFrameNumber = max(*src.WorstFrameNumber, 0)
		}
		agg.ImagePath = src.ImagePath
		agg.SuccessImagePath = src.SuccessImagePath
		aggregates[issue] = agg
	}

	summary.PerIssueCounts = serviceCounts(resp)
	worst := report.WorstFrameRecords(report.ParseWorstFrames(resp.WorstFrames))
	return Assemble(summary, aggregates, worst)
}

// FromPayload interprets a stored JSON object. Assembled reports, as
// recognized by blobcodec.IsReport, are decoded with blobcodec.Decode; anything
// else is treated as a raw service response and run through the pipeline.
func FromPayload(data []byte) (report.AnalysisReport, error) {
	if blobcodec.IsReport(data) {
		return blobcodec.Decode(data)
	}
	var resp report.ServiceResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return report.AnalysisReport{}, services.Wrap(services.ErrDecode, "assembler", "decode service response", "", err)
	}
	return FromServiceResponse(resp), nil
}

func serviceSummary(resp report.ServiceResponse) report.AnalysisSummary {
	var summary report.AnalysisSummary
	if s := resp.Summary; s != nil {
		summary.TotalFrames = s.TotalFrames
		summary.FPS = s.FPS
		summary.TotalDurationSeconds = s.TotalDurationSeconds
	}
	if summary.TotalFrames == 0 && resp.TotalFrames != nil {
		summary.TotalFrames = *resp.TotalFrames
	}
	if summary.FPS == 0 && resp.FPS != nil {
		summary.FPS = *resp.FPS
	}
	summary.TotalFrames = max(summary.TotalFrames, 0)
	return summary
}

// serviceCounts collects the per-issue counts the service reported in either
// of its summary blocks. Issues it did not report are left out so Assemble
// fills them from the aggregates.
func serviceCounts(resp report.ServiceResponse) map[report.IssueType]int {
	counts := make(map[report.IssueType]int)
	for _, issue := range report.AllIssueTypes() {
		if n, ok := resp.Summary.IssueCount(issue); ok {
			counts[issue] = n
			continue
		}
		if n, ok := resp.AnalysisSummary[string(issue)+"_issues"]; ok {
			counts[issue] = n
		}
	}
	if len(counts) == 0 {
		return nil
	}
	return counts
}

// mergeAnalysis picks the first aggregate the service emitted for each issue.
func mergeAnalysis(items []report.ServiceAnalysisItem) map[report.IssueType]*report.ServiceAggregate {
	out := make(map[report.IssueType]*report.ServiceAggregate, len(report.AllIssueTypes()))
	for _, item := range items {
		for _, issue := range report.AllIssueTypes() {
			if out[issue] != nil {
				continue
			}
			if agg := item.For(issue); agg != nil {
				out[issue] = agg
			}
		}
	}
	return out
}

// rawFrames rebuilds per-frame records from the posture angle and overstride
// contact series, merging measurements that share a frame number.
func rawFrames(upstream map[report.IssueType]*report.ServiceAggregate) []report.RawFrameRecord {
	byFrame := make(map[int]*report.RawFrameRecord)
	get := func(n int) *report.RawFrameRecord {
		rec, ok := byFrame[n]
		if !ok {
			rec = &report.RawFrameRecord{FrameNumber: n}
			byFrame[n] = rec
		}
		return rec
	}
	if posture := upstream[report.IssuePosture]; posture != nil {
		for _, a := range posture.Angles {
			get(a.FrameNumber).Angle = report.Float64(a.Angle)
		}
	}
	if over := upstream[report.IssueOverstride]; over != nil {
		for _, c := range over.Frames {
			rec := get(c.Number())
			flagged := c.Overstride
			if rec.Overstride != nil {
				flagged = flagged || *rec.Overstride
			}
			rec.Overstride = report.Bool(flagged)
		}
	}

	out := make([]report.RawFrameRecord, 0, len(byFrame))
	for _, rec := range byFrame {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FrameNumber < out[j].FrameNumber })
	return out
}
