// Package aggregate turns per-frame detection records into per-issue counts
// and chart series.
package aggregate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"movup/internal/report"
)

// Aggregate computes a fresh aggregate for every issue type from frames.
// Frames are processed in ascending frame order; the input slice is not
// modified. When fps is not positive the per-second views are left empty.
func Aggregate(frames []report.RawFrameRecord, fps float64) map[report.IssueType]report.IssueAggregate {
	ordered := make([]report.RawFrameRecord, len(frames))
	copy(ordered, frames)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].FrameNumber < ordered[j].FrameNumber
	})

	return map[report.IssueType]report.IssueAggregate{
		report.IssuePosture:    posture(ordered, fps),
		report.IssueOverstride: overstride(ordered, fps),
		report.IssueVisibility: visibility(ordered),
	}
}

// DurationSeconds converts a frame count to seconds. It returns 0 when fps is
// not positive.
func DurationSeconds(frames int, fps float64) float64 {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return 0
	}
	d := float64(frames) / fps
	if math.IsInf(d, 0) {
		return 0
	}
	return d
}

// SecondOf returns the whole second a frame falls into, or false when fps
// cannot be used for bucketing. A quotient outside the int32 range, as a
// subnormal fps produces, also reports false.
func SecondOf(frame int, fps float64) (int, bool) {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return 0, false
	}
	sec := math.Floor(float64(frame) / fps)
	if math.IsNaN(sec) || sec > math.MaxInt32 || sec < math.MinInt32 {
		return 0, false
	}
	return int(sec), true
}

func posture(frames []report.RawFrameRecord, fps float64) report.IssueAggregate {
	var (
		agg    report.IssueAggregate
		worst  = math.Inf(1)
		series []report.SeriesPoint
	)
	for _, f := range frames {
		if f.Flagged(report.IssuePosture) {
			agg.ErrorFrameCount++
		}
		if f.Angle == nil {
			continue
		}
		series = append(series, report.SeriesPoint{FrameNumber: f.FrameNumber, Value: *f.Angle})
		if *f.Angle < report.PostureThresholdDegrees && *f.Angle < worst {
			worst = *f.Angle
			agg.WorstFrameNumber = f.FrameNumber
		}
	}
	agg.Series = series
	agg.Seconds = meanBySecond(series, fps)
	return agg
}

func overstride(frames []report.RawFrameRecord, fps float64) report.IssueAggregate {
	var agg report.IssueAggregate
	for _, f := range frames {
		if f.Overstride == nil && !f.Issues.Has(report.IssueOverstride) {
			continue
		}
		flagged := f.Flagged(report.IssueOverstride)
		value := 0.0
		if flagged {
			value = 1
			agg.ErrorFrameCount++
			if agg.WorstFrameNumber == 0 {
				agg.WorstFrameNumber = f.FrameNumber
			}
		}
		agg.Series = append(agg.Series, report.SeriesPoint{FrameNumber: f.FrameNumber, Value: value})
	}
	agg.Seconds = anyBySecond(agg.Series, fps)
	for _, s := range agg.Seconds {
		if s.Flagged {
			agg.FlaggedSeconds++
		}
	}
	return agg
}

func visibility(frames []report.RawFrameRecord) report.IssueAggregate {
	var agg report.IssueAggregate
	for _, f := range frames {
		if !f.Flagged(report.IssueVisibility) {
			continue
		}
		agg.ErrorFrameCount++
		if agg.WorstFrameNumber == 0 {
			agg.WorstFrameNumber = f.FrameNumber
		}
	}
	return agg
}

type bucket struct {
	second int
	values []float64
}

// group splits points into consecutive per-second buckets. Points must be in
// ascending frame order.
func group(points []report.SeriesPoint, fps float64) []bucket {
	var out []bucket
	for _, p := range points {
		sec, ok := SecondOf(p.FrameNumber, fps)
		if !ok {
			return nil
		}
		if n := len(out); n > 0 && out[n-1].second == sec {
			out[n-1].values = append(out[n-1].values, p.Value)
			continue
		}
		out = append(out, bucket{second: sec, values: []float64{p.Value}})
	}
	return out
}

func meanBySecond(points []report.SeriesPoint, fps float64) []report.SecondPoint {
	buckets := group(points, fps)
	if len(buckets) == 0 {
		return nil
	}
	out := make([]report.SecondPoint, 0, len(buckets))
	for _, b := range buckets {
		mean := stat.Mean(b.values, nil)
		out = append(out, report.SecondPoint{
			Second:  b.second,
			Value:   mean,
			Frames:  len(b.values),
			Flagged: mean < report.PostureThresholdDegrees,
		})
	}
	return out
}

func anyBySecond(points []report.SeriesPoint, fps float64) []report.SecondPoint {
	buckets := group(points, fps)
	if len(buckets) == 0 {
		return nil
	}
	out := make([]report.SecondPoint, 0, len(buckets))
	for _, b := range buckets {
		point := report.SecondPoint{Second: b.second, Frames: len(b.values)}
		for _, v := range b.values {
			if v > 0 {
				point.Value = 1
				point.Flagged = true
				break
			}
		}
		out = append(out, point)
	}
	return out
}
