package aggregate_test

import (
	"math"
	"reflect"
	"testing"

	"movup/internal/aggregate"
	"movup/internal/report"
)

func angleFrame(frame int, angle float64) report.RawFrameRecord {
	return report.RawFrameRecord{FrameNumber: frame, Angle: report.Float64(angle)}
}

func contactFrame(frame int, flagged bool) report.RawFrameRecord {
	return report.RawFrameRecord{FrameNumber: frame, Overstride: report.Bool(flagged)}
}

func TestPostureSeriesAveragesBySecond(t *testing.T) {
	frames := []report.RawFrameRecord{
		angleFrame(0, 100),
		angleFrame(15, 120),
		angleFrame(30, 95),
	}
	aggs := aggregate.Aggregate(frames, 30)
	posture := aggs[report.IssuePosture]

	want := []report.SecondPoint{
		{Second: 0, Value: 110, Frames: 2},
		{Second: 1, Value: 95, Frames: 1, Flagged: true},
	}
	if !reflect.DeepEqual(posture.Seconds, want) {
		t.Fatalf("unexpected seconds: %+v", posture.Seconds)
	}
	if posture.ErrorFrameCount != 2 {
		t.Fatalf("expected 2 posture errors, got %d", posture.ErrorFrameCount)
	}
	if posture.WorstFrameNumber != 30 {
		t.Fatalf("expected worst frame 30, got %d", posture.WorstFrameNumber)
	}
	if len(posture.Series) != 3 || posture.Series[1].FrameNumber != 15 {
		t.Fatalf("expected raw series in frame order, got %+v", posture.Series)
	}
}

func TestPostureInputOrderDoesNotMatter(t *testing.T) {
	frames := []report.RawFrameRecord{angleFrame(30, 95), angleFrame(0, 100), angleFrame(15, 120)}
	original := append([]report.RawFrameRecord(nil), frames...)
	aggs := aggregate.Aggregate(frames, 30)
	if got := aggs[report.IssuePosture].Seconds; len(got) != 2 || got[0].Value != 110 {
		t.Fatalf("unexpected seconds: %+v", got)
	}
	if !reflect.DeepEqual(frames, original) {
		t.Fatal("input slice was reordered")
	}
}

func TestWorstPostureTieKeepsFirstFrame(t *testing.T) {
	frames := []report.RawFrameRecord{angleFrame(10, 90), angleFrame(20, 90), angleFrame(5, 130)}
	aggs := aggregate.Aggregate(frames, 30)
	if got := aggs[report.IssuePosture].WorstFrameNumber; got != 10 {
		t.Fatalf("expected first minimum frame 10, got %d", got)
	}
}

func TestOverstrideViews(t *testing.T) {
	frames := []report.RawFrameRecord{
		contactFrame(10, false),
		contactFrame(20, true),
		contactFrame(40, false),
		contactFrame(70, false),
		contactFrame(75, true),
		angleFrame(80, 150),
	}
	agg := aggregate.Aggregate(frames, 30)[report.IssueOverstride]

	if agg.ErrorFrameCount != 2 {
		t.Fatalf("expected 2 flagged contacts, got %d", agg.ErrorFrameCount)
	}
	if len(agg.Series) != 5 {
		t.Fatalf("expected one point per contact frame, got %+v", agg.Series)
	}
	wantSeconds := []report.SecondPoint{
		{Second: 0, Value: 1, Frames: 2, Flagged: true},
		{Second: 1, Value: 0, Frames: 1},
		{Second: 2, Value: 1, Frames: 2, Flagged: true},
	}
	if !reflect.DeepEqual(agg.Seconds, wantSeconds) {
		t.Fatalf("unexpected seconds: %+v", agg.Seconds)
	}
	if agg.FlaggedSeconds != 2 {
		t.Fatalf("expected 2 flagged seconds, got %d", agg.FlaggedSeconds)
	}
	if agg.WorstFrameNumber != 20 {
		t.Fatalf("expected first flagged contact 20, got %d", agg.WorstFrameNumber)
	}
}

func TestVisibilityIsCountOnly(t *testing.T) {
	frames := []report.RawFrameRecord{
		{FrameNumber: 3, Issues: report.NewIssueSet(report.IssueVisibility)},
		{FrameNumber: 9, Issues: report.NewIssueSet(report.IssueVisibility, report.IssuePosture)},
		{FrameNumber: 12},
	}
	agg := aggregate.Aggregate(frames, 30)[report.IssueVisibility]
	if agg.ErrorFrameCount != 2 || agg.WorstFrameNumber != 3 {
		t.Fatalf("unexpected visibility aggregate: %+v", agg)
	}
	if agg.Series != nil || agg.Seconds != nil {
		t.Fatalf("visibility must not carry a series: %+v", agg)
	}
}

func TestErrorCountMatchesDirectFilter(t *testing.T) {
	var frames []report.RawFrameRecord
	for i := range 200 {
		f := report.RawFrameRecord{FrameNumber: i * 7}
		if i%3 != 0 {
			f.Angle = report.Float64(80 + float64((i*37)%60))
		}
		if i%4 == 0 {
			f.Overstride = report.Bool(i%8 == 0)
		}
		if i%11 == 0 {
			f.Issues = f.Issues.With(report.IssueVisibility)
		}
		frames = append(frames, f)
	}

	aggs := aggregate.Aggregate(frames, 24)
	for _, issue := range report.AllIssueTypes() {
		direct := 0
		for _, f := range frames {
			if f.Flagged(issue) {
				direct++
			}
		}
		if got := aggs[issue].ErrorFrameCount; got != direct {
			t.Fatalf("%s: aggregate count %d, direct filter %d", issue, got, direct)
		}
	}

	for _, issue := range []report.IssueType{report.IssuePosture, report.IssueOverstride} {
		agg := aggs[issue]
		perSecond := 0
		for _, s := range agg.Seconds {
			perSecond += s.Frames
		}
		if perSecond != len(agg.Series) {
			t.Fatalf("%s: seconds cover %d frames, series has %d", issue, perSecond, len(agg.Series))
		}
	}

	flagged := 0
	for _, p := range aggs[report.IssueOverstride].Series {
		flagged += int(p.Value)
	}
	if flagged != aggs[report.IssueOverstride].ErrorFrameCount {
		t.Fatalf("overstride series sums to %d, count is %d", flagged, aggs[report.IssueOverstride].ErrorFrameCount)
	}
}

func TestZeroFPSAndEmptyInputAreSafe(t *testing.T) {
	for _, fps := range []float64{0, -5, math.NaN()} {
		aggs := aggregate.Aggregate([]report.RawFrameRecord{angleFrame(10, 90), contactFrame(12, true)}, fps)
		if aggs[report.IssuePosture].Seconds != nil || aggs[report.IssueOverstride].Seconds != nil {
			t.Fatalf("fps %v: expected no per-second view", fps)
		}
		if aggs[report.IssuePosture].ErrorFrameCount != 1 {
			t.Fatalf("fps %v: counts must not depend on fps", fps)
		}
		if got := aggregate.DurationSeconds(aggs[report.IssuePosture].ErrorFrameCount, fps); got != 0 {
			t.Fatalf("fps %v: expected 0 seconds, got %v", fps, got)
		}
	}

	aggs := aggregate.Aggregate(nil, 30)
	for _, issue := range report.AllIssueTypes() {
		if agg, ok := aggs[issue]; !ok || agg.ErrorFrameCount != 0 {
			t.Fatalf("%s: expected empty aggregate, got %+v (present=%v)", issue, agg, ok)
		}
	}
	if got := aggregate.DurationSeconds(0, 30); got != 0 {
		t.Fatalf("expected 0 seconds, got %v", got)
	}
}

func TestDurationSeconds(t *testing.T) {
	if got := aggregate.DurationSeconds(45, 30); got != 1.5 {
		t.Fatalf("expected 1.5, got %v", got)
	}
	if _, ok := aggregate.SecondOf(10, 0); ok {
		t.Fatal("expected SecondOf to reject zero fps")
	}
	if sec, ok := aggregate.SecondOf(59, 30); !ok || sec != 1 {
		t.Fatalf("expected second 1, got %d %v", sec, ok)
	}
}

func TestSubnormalFPSIsRejected(t *testing.T) {
	const fps = 1e-320
	if _, ok := aggregate.SecondOf(10, fps); ok {
		t.Fatal("expected SecondOf to reject a quotient that overflows")
	}
	if _, ok := aggregate.SecondOf(10, 1e-300); ok {
		t.Fatal("expected SecondOf to reject a quotient beyond the int32 range")
	}
	if got := aggregate.DurationSeconds(10, fps); got != 0 {
		t.Fatalf("expected 0 seconds, got %v", got)
	}

	frames := []report.RawFrameRecord{angleFrame(0, 100), angleFrame(15, 120), angleFrame(30, 95)}
	aggs := aggregate.Aggregate(frames, fps)
	posture := aggs[report.IssuePosture]
	if posture.ErrorFrameCount != 2 {
		t.Fatalf("error count = %d, want 2", posture.ErrorFrameCount)
	}
	if posture.Seconds != nil {
		t.Fatalf("expected no per-second buckets, got %+v", posture.Seconds)
	}
}
