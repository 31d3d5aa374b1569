package drafts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"resumatch/internal/ai"
	"resumatch/internal/lines"
)

func testCandidates() []lines.Candidate {
	return []lines.Candidate{
		{LineNumber: 1, Type: lines.TypeSummaryLine},
		{LineNumber: 2, Type: lines.TypeSummaryLine},
		{LineNumber: 3, Type: lines.TypeSummaryLine},
		{LineNumber: 5, Type: lines.TypeExperienceBullet},
		{LineNumber: 6, Type: lines.TypeExperienceBullet},
		{LineNumber: 7, Type: lines.TypeExperienceLine},
		{LineNumber: 9, Type: lines.TypeSkillsLine},
	}
}

func TestCountEdits(t *testing.T) {
	doc := lines.Document{Candidates: testCandidates()}
	edits := []ai.LineEdit{
		{LineNumber: 1, NewText: "a"},
		{LineNumber: 5, NewText: "b"},
		{LineNumber: 7, NewText: "c"},
		{LineNumber: 9, NewText: "d"},
		{LineNumber: 42, NewText: "not a candidate"},
	}

	stats := CountEdits(edits, doc.ByLine())
	assert.Equal(t, 1, stats.Summary)
	assert.Equal(t, 2, stats.Experience)
	assert.Equal(t, 4, stats.Total, "edits on unknown lines do not count")
}

func TestRetryTargets(t *testing.T) {
	summary, experience := RetryTargets(testCandidates())
	assert.Equal(t, 2, summary, "capped at 2 even with 3 summary lines")
	assert.Equal(t, 3, experience, "3 experience lines available")

	summary, experience = RetryTargets([]lines.Candidate{
		{LineNumber: 1, Type: lines.TypeSummaryLine},
	})
	assert.Equal(t, 1, summary)
	assert.Equal(t, 0, experience)
}

func TestNeedsRetry(t *testing.T) {
	tests := []struct {
		name             string
		stats            EditStats
		summaryTarget    int
		experienceTarget int
		want             bool
	}{
		{"targets met", EditStats{Summary: 2, Experience: 5, Total: 10}, 2, 5, false},
		{"summary short", EditStats{Summary: 1, Experience: 5, Total: 8}, 2, 5, true},
		{"experience under floor", EditStats{Summary: 2, Experience: 2, Total: 6}, 2, 5, true},
		{"experience floor capped by availability", EditStats{Summary: 2, Experience: 1, Total: 3}, 2, 1, false},
		{"nothing available", EditStats{}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsRetry(tt.stats, tt.summaryTarget, tt.experienceTarget))
		})
	}
}

func TestBetter(t *testing.T) {
	assert.True(t, Better(EditStats{Summary: 2}, EditStats{Summary: 1, Experience: 9, Total: 20}),
		"summary edits dominate")
	assert.True(t, Better(EditStats{Summary: 1, Experience: 4}, EditStats{Summary: 1, Experience: 3, Total: 9}),
		"experience breaks summary ties")
	assert.True(t, Better(EditStats{Summary: 1, Experience: 3, Total: 8}, EditStats{Summary: 1, Experience: 3, Total: 6}),
		"total breaks remaining ties")
	assert.False(t, Better(EditStats{Summary: 1, Experience: 3, Total: 6}, EditStats{Summary: 1, Experience: 3, Total: 6}),
		"equal attempts are not better")
}
