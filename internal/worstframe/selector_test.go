package worstframe_test

import (
	"testing"

	"movup/internal/report"
	"movup/internal/worstframe"
)

func TestResolveImageURL(t *testing.T) {
	cases := []struct {
		base, path, want string
	}{
		{"http://127.0.0.1:8000", "/output/p.jpg", "http://127.0.0.1:8000/output/p.jpg"},
		{"http://127.0.0.1:8000", "output/p.jpg", "http://127.0.0.1:8000/output/p.jpg"},
		{"http://127.0.0.1:8000/", "//output/p.jpg", "http://127.0.0.1:8000//output/p.jpg"},
		{"http://127.0.0.1:8000", "https://cdn.example.com/p.jpg", "https://cdn.example.com/p.jpg"},
		{"http://127.0.0.1:8000", "HTTP://cdn.example.com/p.jpg", "HTTP://cdn.example.com/p.jpg"},
		{"http://127.0.0.1:8000", "", ""},
	}
	for _, tc := range cases {
		got := worstframe.ResolveImageURL(tc.base, tc.path)
		if got != tc.want {
			t.Fatalf("ResolveImageURL(%q, %q) = %q, want %q", tc.base, tc.path, got, tc.want)
		}
		if again := worstframe.ResolveImageURL(tc.base, got); again != got {
			t.Fatalf("resolution not idempotent: %q -> %q", got, again)
		}
	}
}

func TestNewDefaultsBasePath(t *testing.T) {
	if got := worstframe.New(worstframe.Options{}).BasePath(); got != worstframe.DefaultBasePath {
		t.Fatalf("expected default base, got %q", got)
	}
	if got := worstframe.New(worstframe.Options{BasePath: " https://img.example/ "}).BasePath(); got != "https://img.example" {
		t.Fatalf("expected trimmed base, got %q", got)
	}
}

func TestExplicitListTakesPrecedence(t *testing.T) {
	sel := worstframe.New(worstframe.Options{BasePath: "https://img.example"})
	aggs := map[report.IssueType]report.IssueAggregate{
		report.IssuePosture: {ErrorFrameCount: 3, WorstFrameNumber: 50, ImagePath: "/agg.jpg"},
	}
	explicit := []report.WorstFrameRecord{
		{IssueType: report.IssueOverstride, FrameNumber: 9, ImagePath: "/o.jpg"},
		{IssueType: report.IssuePosture, FrameNumber: 12, ImagePath: "/first.jpg", SeverityScore: report.Float64(0.2)},
		{IssueType: report.IssuePosture, FrameNumber: 13, ImagePath: "/second.jpg", SeverityScore: report.Float64(0.9)},
	}

	got := sel.Select(aggs, explicit)
	posture := got[report.IssuePosture]
	if posture == nil || posture.FrameNumber != 12 {
		t.Fatalf("expected first explicit posture entry, got %+v", posture)
	}
	if posture.ImagePath != "https://img.example/first.jpg" {
		t.Fatalf("expected resolved image, got %q", posture.ImagePath)
	}
	if explicit[1].ImagePath != "/first.jpg" {
		t.Fatal("explicit input was modified")
	}
	if got[report.IssueOverstride] == nil || got[report.IssueOverstride].FrameNumber != 9 {
		t.Fatalf("unexpected overstride pick: %+v", got[report.IssueOverstride])
	}
}

func TestAggregateFallbackRequiresPositiveFrame(t *testing.T) {
	sel := worstframe.New(worstframe.Options{})
	aggs := map[report.IssueType]report.IssueAggregate{
		report.IssuePosture:    {WorstFrameNumber: 40, ImagePath: "out/p.jpg"},
		report.IssueOverstride: {WorstFrameNumber: 0, ImagePath: "out/o.jpg"},
	}
	got := sel.Select(aggs, nil)
	if p := got[report.IssuePosture]; p == nil || p.FrameNumber != 40 || p.ImagePath != "http://127.0.0.1:8000/out/p.jpg" {
		t.Fatalf("unexpected posture fallback: %+v", p)
	}
	if got[report.IssueOverstride] != nil {
		t.Fatalf("frame 0 must not qualify, got %+v", got[report.IssueOverstride])
	}
	if got[report.IssueVisibility] != nil {
		t.Fatalf("missing aggregate must yield nil, got %+v", got[report.IssueVisibility])
	}
}
