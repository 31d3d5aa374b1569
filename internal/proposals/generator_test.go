package proposals

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumatch/internal/lines"
	"resumatch/internal/types"
)

const resume = `Summary
Engineer building backend systems.

Experience
- Shipped the billing service rewrite
- Cut infrastructure spend through autoscaling

Skills
Go, PostgreSQL`

func TestGenerateAnchorsAndShapes(t *testing.T) {
	doc := lines.Classify(resume)
	props := Generate(doc, []string{"kubernetes", "mentoring"}, 0)

	require.Len(t, props, 2)

	kube := props[0]
	assert.Equal(t, types.OpInsertAfterLine, kube.Operation)
	assert.Equal(t, -1, kube.LineNumber)
	assert.Equal(t, 5, kube.AnchorLine) // first experience bullet
	assert.True(t, strings.HasPrefix(kube.After, "- "))
	assert.Contains(t, strings.ToLower(kube.After), "kubernetes")
	assert.Equal(t, types.SourceHeuristic, kube.Source)
	assert.True(t, kube.Selected)

	mentoring := props[1]
	assert.Equal(t, 2, mentoring.AnchorLine) // summary line
	assert.False(t, strings.HasPrefix(mentoring.After, "- "))
	assert.Contains(t, strings.ToLower(mentoring.After), "mentoring")
}

func TestGenerateSkipsQualificationTerms(t *testing.T) {
	doc := lines.Classify(resume)
	props := Generate(doc, []string{"bachelor degree", "5 years of experience", "certification"}, 0)
	assert.Empty(t, props)
}

func TestGenerateSkipsLowSignalTerms(t *testing.T) {
	doc := lines.Classify(resume)
	props := Generate(doc, []string{"communication skills", "team player"}, 0)
	assert.Empty(t, props)
}

func TestGenerateHonorsCap(t *testing.T) {
	doc := lines.Classify(resume)
	missing := []string{"kubernetes", "terraform", "grafana", "kafka", "redis", "ansible"}
	props := Generate(doc, missing, 3)
	assert.Len(t, props, 3)
}

func TestGenerateSuppressesNearDuplicates(t *testing.T) {
	doc := lines.Classify(resume)
	// Same category and nearly identical text: the second term differs
	// only by the keyword token, so the rendered lines stay distinct,
	// but repeating the exact same term must collapse to one proposal.
	props := Generate(doc, []string{"kafka", "kafka"}, 0)
	assert.Len(t, props, 1)
}

func TestGenerateSuppressesExistingContent(t *testing.T) {
	text := `Experience
- Profiled and tuned services for performance, cutting p95 latency by 35%`
	doc := lines.Classify(text)
	props := Generate(doc, []string{"performance"}, 0)
	assert.Empty(t, props)
}

func TestGenerateSimilarityScopedToExperienceBullets(t *testing.T) {
	// The summary line shares almost every token with the rendered
	// proposal, but only experience bullets feed the similarity screen,
	// so the proposal goes through.
	text := `Summary
Engineering leader known for coaching across cross-functional delivery teams.

Experience
- Shipped the billing service rewrite`
	doc := lines.Classify(text)
	props := Generate(doc, []string{"mentoring"}, 0)

	require.Len(t, props, 1)
	assert.Contains(t, strings.ToLower(props[0].After), "mentoring")
}

func TestGenerateRejectsNearDuplicateOfBullet(t *testing.T) {
	text := `Experience
- Profiled and tuned services for scalability, cutting p95 latency by 35%`
	doc := lines.Classify(text)
	props := Generate(doc, []string{"performance"}, 0)
	assert.Empty(t, props)
}

func TestGenerateDeterministic(t *testing.T) {
	doc := lines.Classify(resume)
	missing := []string{"kubernetes", "mentoring", "incident response"}
	assert.Equal(t, Generate(doc, missing, 0), Generate(doc, missing, 0))
}

func TestIDStable(t *testing.T) {
	a := ID(types.OpInsertAfterLine, 4, "- Built observability dashboards")
	b := ID(types.OpInsertAfterLine, 4, "- Built observability dashboards")
	c := ID(types.OpInsertAfterLine, 5, "- Built observability dashboards")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 12)
}
