// Package worstframe chooses the representative frame shown for each issue
// type and resolves its image location.
package worstframe

import (
	"strings"

	"movup/internal/report"
)

// DefaultBasePath is where the analysis service serves its output images.
const DefaultBasePath = "http://127.0.0.1:8000"

// Options configures a Selector.
type Options struct {
	// BasePath prefixes relative image paths. Empty uses DefaultBasePath.
	BasePath string
}

// Selector picks worst frames. It holds no mutable state and is safe for
// concurrent use.
type Selector struct {
	basePath string
}

// New constructs a Selector.
func New(opts Options) *Selector {
	base := strings.TrimSpace(opts.BasePath)
	if base == "" {
		base = DefaultBasePath
	}
	return &Selector{basePath: strings.TrimRight(base, "/")}
}

// BasePath returns the configured image base.
func (s *Selector) BasePath() string { return s.basePath }

// Select returns the worst frame per issue type, or nil for issue types with
// no qualifying frame. An explicit entry always takes precedence over the
// aggregate's own pointer; among explicit entries the first match wins.
// Image paths in the result are resolved against the base path.
func (s *Selector) Select(aggregates map[report.IssueType]report.IssueAggregate, explicit []report.WorstFrameRecord) map[report.IssueType]*report.WorstFrameRecord {
	out := make(map[report.IssueType]*report.WorstFrameRecord, len(report.AllIssueTypes()))
	for _, issue := range report.AllIssueTypes() {
		out[issue] = s.selectOne(issue, aggregates, explicit)
	}
	return out
}

func (s *Selector) selectOne(issue report.IssueType, aggregates map[report.IssueType]report.IssueAggregate, explicit []report.WorstFrameRecord) *report.WorstFrameRecord {
	for _, entry := range explicit {
		if entry.IssueType != issue {
			continue
		}
		picked := entry
		picked.ImagePath = s.Resolve(entry.ImagePath)
		return &picked
	}
	agg, ok := aggregates[issue]
	if !ok || agg.WorstFrameNumber <= 0 {
		return nil
	}
	return &report.WorstFrameRecord{
		IssueType:   issue,
		FrameNumber: agg.WorstFrameNumber,
		ImagePath:   s.Resolve(agg.ImagePath),
	}
}

// Resolve resolves path against the selector's base path.
func (s *Selector) Resolve(path string) string {
	return ResolveImageURL(s.basePath, path)
}

// ResolveImageURL returns path unchanged when it is empty or already an
// absolute http(s) URL. Otherwise a single leading "/" is stripped and the
// result is joined to base. Resolving an already resolved URL is a no-op.
func ResolveImageURL(base, path string) string {
	if path == "" || isAbsoluteURL(path) {
		return path
	}
	path = strings.TrimPrefix(path, "/")
	return strings.TrimRight(base, "/") + "/" + path
}

func isAbsoluteURL(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
