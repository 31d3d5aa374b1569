package lines

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `Jane Doe
jane@example.com

Professional Summary
Backend engineer with eight years building payment systems.
Focused on reliability and developer experience.

Technical Skills
Go, PostgreSQL, Kubernetes
AWS, Terraform

Work Experience
Acme Corp
Senior Engineer
Jan 2019 - Present
Led the payments platform group across three product lines.
- Built the settlement pipeline processing 2M transactions daily
- Reduced p99 latency by 40% through query tuning

Education
BSc Computer Science`

func TestClassifySections(t *testing.T) {
	doc := Classify(sampleResume)

	byType := make(map[CandidateType][]Candidate)
	for _, c := range doc.Candidates {
		byType[c.Type] = append(byType[c.Type], c)
	}

	require.Len(t, byType[TypeSummaryLine], 2)
	assert.Equal(t, "Backend engineer with eight years building payment systems.", byType[TypeSummaryLine][0].OriginalText)

	require.Len(t, byType[TypeSkillsLine], 2)
	assert.Equal(t, "Go, PostgreSQL, Kubernetes", byType[TypeSkillsLine][0].OriginalText)

	require.Len(t, byType[TypeExperienceBullet], 2)
	assert.True(t, strings.HasPrefix(byType[TypeExperienceBullet][0].OriginalText, "- Built"))
}

func TestClassifyLineNumbersStartAtOne(t *testing.T) {
	doc := Classify(sampleResume)

	summary := doc.CandidatesOfType(TypeSummaryLine)
	require.NotEmpty(t, summary)
	assert.Equal(t, 5, summary[0].LineNumber)

	bullets := doc.CandidatesOfType(TypeExperienceBullet)
	require.Len(t, bullets, 2)
	assert.Equal(t, 17, bullets[0].LineNumber)
	assert.Equal(t, 18, bullets[1].LineNumber)

	// A candidate's number always points back at its own line.
	for _, c := range doc.Candidates {
		assert.GreaterOrEqual(t, c.LineNumber, 1)
		assert.Equal(t, doc.Lines[c.LineNumber-1], c.OriginalText)
	}
}

func TestClassifyProtectsMetadataLines(t *testing.T) {
	doc := Classify(sampleResume)

	protectedLines := []string{"Acme Corp", "Senior Engineer", "Jan 2019 - Present"}
	for _, c := range doc.Candidates {
		for _, p := range protectedLines {
			assert.NotEqual(t, p, strings.TrimSpace(c.OriginalText), "metadata line became a candidate")
		}
	}

	// The long overview line under experience is still editable.
	var overview *Candidate
	for i, c := range doc.Candidates {
		if c.Type == TypeExperienceLine {
			overview = &doc.Candidates[i]
		}
	}
	require.NotNil(t, overview)
	assert.Equal(t, "Led the payments platform group across three product lines.", overview.OriginalText)
}

func TestIsProtectedMetadata(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"2019 - 2023", true},
		{"Jan 2019 - Present", true},
		{"March 2020 to Current", true},
		{"Client: Globex", true},
		{"Tech Stack: Go, Kafka", true},
		{"Senior Software Engineer", true},
		{"Led the replatforming effort for checkout, owning rollout and monitoring.", false},
		{"Delivered features across mobile and web surfaces each quarter.", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, IsProtectedMetadata(tt.line))
		})
	}
}

func TestClassifyCandidateCaps(t *testing.T) {
	var b strings.Builder
	b.WriteString("Experience\n")
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&b, "- Shipped feature number %d with measurable results\n", i)
	}
	doc := Classify(b.String())

	bullets := doc.CandidatesOfType(TypeExperienceBullet)
	assert.Len(t, bullets, maxExperienceBullets)
}

func TestClassifyBulletsOutsideKnownSections(t *testing.T) {
	text := "Interests\n- chess\n- trail running"
	doc := Classify(text)

	require.Len(t, doc.Candidates, 2)
	for _, c := range doc.Candidates {
		assert.Equal(t, TypeBullet, c.Type)
		assert.Equal(t, "unknown", c.Section)
	}
}

func TestSplitPreservesLineCount(t *testing.T) {
	text := "a\r\nb\r\nc"
	lns := Split(text)
	assert.Equal(t, []string{"a", "b", "c"}, lns)

	doc := Classify(sampleResume)
	assert.Equal(t, len(strings.Split(sampleResume, "\n")), len(doc.Lines))
}

func TestDetectSection(t *testing.T) {
	assert.Equal(t, "summary", DetectSection("PROFESSIONAL SUMMARY"))
	assert.Equal(t, "skills", DetectSection("Technical Skills:"))
	assert.Equal(t, "experience", DetectSection("Work Experience -"))
	assert.Equal(t, "", DetectSection("Led the team"))
}
