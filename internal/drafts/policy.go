package drafts

import (
	"resumatch/internal/ai"
	"resumatch/internal/lines"
)

// Retry ceilings: summary and experience edit counts the first attempt
// should reach before a retry is considered worthwhile.
const (
	summaryEditTarget    = 2
	experienceEditTarget = 5
	experienceRetryFloor = 3
)

// EditStats counts a provider attempt's edits by section kind. Only
// edits that land on known candidate lines count.
type EditStats struct {
	Summary    int
	Experience int
	Total      int
}

// CountEdits tallies edits against the candidate index.
func CountEdits(edits []ai.LineEdit, byLine map[int]lines.Candidate) EditStats {
	var stats EditStats
	for _, edit := range edits {
		candidate, ok := byLine[edit.LineNumber]
		if !ok {
			continue
		}
		stats.Total++
		switch candidate.Type {
		case lines.TypeSummaryLine:
			stats.Summary++
		case lines.TypeExperienceBullet, lines.TypeExperienceLine:
			stats.Experience++
		}
	}
	return stats
}

// RetryTargets derives the per-attempt edit targets from how many
// eligible lines the document actually has.
func RetryTargets(candidates []lines.Candidate) (summary, experience int) {
	var summaryLines, experienceLines int
	for _, c := range candidates {
		switch c.Type {
		case lines.TypeSummaryLine:
			summaryLines++
		case lines.TypeExperienceBullet, lines.TypeExperienceLine:
			experienceLines++
		}
	}
	return minInt(summaryEditTarget, summaryLines), minInt(experienceEditTarget, experienceLines)
}

// NeedsRetry reports whether a first attempt under-edited the summary
// or experience sections badly enough to warrant one more call.
func NeedsRetry(stats EditStats, summaryTarget, experienceTarget int) bool {
	if stats.Summary < summaryTarget {
		return true
	}
	return stats.Experience < minInt(experienceRetryFloor, experienceTarget)
}

// Better reports whether attempt a beats attempt b: more summary
// edits, then more experience edits, then more edits overall.
func Better(a, b EditStats) bool {
	if a.Summary != b.Summary {
		return a.Summary > b.Summary
	}
	if a.Experience != b.Experience {
		return a.Experience > b.Experience
	}
	return a.Total > b.Total
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
