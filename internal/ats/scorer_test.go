package ats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumatch/internal/keywords"
	"resumatch/internal/types"
)

const goodResume = `Jane Doe
Senior Software Engineer

Professional Summary
Senior software engineer with 9 years building distributed systems in Go and Java on AWS.
Led platform initiatives and mentored engineers across 3 teams.

Technical Skills
Go, Java, AWS, Docker, Kubernetes, PostgreSQL, Terraform
Kafka, Redis, CI/CD, Prometheus

Work Experience
Acme Corp
- Designed microservices handling 40M requests per day with 99.95% uptime
- Reduced p95 latency by 45% through query and cache optimization
- Built CI/CD pipelines cutting deploy time from 50 minutes to 8
- Led on-call rotation and incident response for the payments platform
- Mentored 6 engineers, with 4 promoted within 18 months

Education
BSc Computer Science

Certifications
AWS Certified Solutions Architect`

const proseJD = `Senior Software Engineer

We are looking for a senior software engineer to build distributed systems.
You will work with Go, Java, AWS, Docker, Kubernetes and PostgreSQL.
Experience with Kafka, Terraform and CI/CD pipelines is required.
You will mentor other engineers and own production support for your services.`

func TestAnalyzeDeterministic(t *testing.T) {
	opts := types.AnalyzeOptions{}
	a := Analyze(proseJD, goodResume, opts)
	b := Analyze(proseJD, goodResume, opts)
	assert.Equal(t, a, b)
}

func TestAnalyzeScoreWithinBounds(t *testing.T) {
	cases := []struct{ jd, resume string }{
		{proseJD, goodResume},
		{proseJD, "short resume"},
		{"", goodResume},
		{"", ""},
	}
	for _, c := range cases {
		r := Analyze(c.jd, c.resume, types.AnalyzeOptions{})
		assert.GreaterOrEqual(t, r.Score, 0)
		assert.LessOrEqual(t, r.Score, 100)
	}
}

func TestAnalyzeStrongResumeScoresWell(t *testing.T) {
	r := Analyze(proseJD, goodResume, types.AnalyzeOptions{})

	assert.GreaterOrEqual(t, r.Score, 70, "breakdown: %+v", r.Breakdown)
	assert.Contains(t, []string{BandStrong, BandExcellent}, r.ScoreBand)
	assert.Equal(t, keywords.ModeProse, r.Insights.JDInputModeUsed)
	assert.Contains(t, r.Insights.TopMatchedKeywords, "kubernetes")
}

func TestAnalyzeKeywordListModeDetected(t *testing.T) {
	jd := "Go, Kubernetes, Docker, PostgreSQL, Kafka, Terraform, AWS, Redis, gRPC, Prometheus, Grafana, Helm"
	r := Analyze(jd, goodResume, types.AnalyzeOptions{})

	assert.Equal(t, keywords.ModeKeywordList, r.Insights.JDInputModeUsed)
	assert.NotZero(t, r.Insights.KeywordPoolSize)
}

func TestAnalyzeForcedKeywordListMode(t *testing.T) {
	r := Analyze(proseJD, goodResume, types.AnalyzeOptions{JDKeywordListMode: true})
	assert.Equal(t, keywords.ModeKeywordList, r.Insights.JDInputModeUsed)
}

func TestScoreBands(t *testing.T) {
	assert.Equal(t, BandExcellent, band(85))
	assert.Equal(t, BandStrong, band(70))
	assert.Equal(t, BandModerate, band(50))
	assert.Equal(t, BandNeedsWork, band(49))
}

func TestCoverageCountsEquivalenceGroupOnce(t *testing.T) {
	model := keywords.Build("java, go, python, terraform", true)

	// Resume mentions only one group member plus terraform.
	res := scoreCoverage(model, "built services in go with terraform modules")

	// Denominator: one group unit (java/go/python, best weight) plus
	// terraform. Both satisfied, so coverage is full.
	assert.Equal(t, maxCoverage, res.score)
	assert.Contains(t, res.matched, "go")
	assert.NotContains(t, res.missing, "java")
	assert.NotContains(t, res.missing, "python")
}

func TestCoverageUnsatisfiedGroupListsMembersMissing(t *testing.T) {
	model := keywords.Build("java, go, python, terraform", true)
	res := scoreCoverage(model, "wrote terraform modules all day")

	assert.Contains(t, res.missing, "java")
	assert.Contains(t, res.missing, "go")
	assert.Contains(t, res.missing, "python")
	assert.Less(t, res.score, maxCoverage)
}

func TestScoreSections(t *testing.T) {
	full := scoreSections(strings.ToLower(goodResume))
	assert.Equal(t, maxSections, full.score)
	assert.Empty(t, full.missing)

	bare := scoreSections("just some text with no headings")
	assert.Equal(t, 2, bare.score)
	assert.Equal(t, []string{"experience", "skills", "education"}, bare.missing)
}

func TestScoreFormattingDeductions(t *testing.T) {
	short := scoreFormatting("tiny resume", false)
	// Short text and missing bullets both deduct.
	assert.Equal(t, maxFormatting-2-3, short.score)

	boxed := scoreFormatting(strings.Repeat("text\n", 150)+"│ cell │\n- a\n- b\n- c\n- d", false)
	assert.Equal(t, maxFormatting-4, boxed.score)
}

func TestScoreFormattingAdvancedTightensThresholds(t *testing.T) {
	var b strings.Builder
	b.WriteString(strings.Repeat("a line of ordinary resume prose\n", 10))
	b.WriteString(strings.Repeat("x", 160) + "\n")
	for i := 0; i < 5; i++ {
		b.WriteString("- shipped a feature this quarter\n")
	}
	text := b.String()

	base := scoreFormatting(text, false)
	advanced := scoreFormatting(text, true)

	// Clean under the default thresholds: the 160-char line, the five
	// bullets and the modest length all pass.
	assert.Equal(t, maxFormatting, base.score)
	// Advanced mode flags all three.
	assert.Equal(t, maxFormatting-3-2-3, advanced.score)
}

func TestScorePlacementAdvancedShrinksEarlyWindow(t *testing.T) {
	text := strings.Repeat("filler words here ", 70) + "kubernetes"

	base := scorePlacement(text, []string{"kubernetes"}, false)
	advanced := scorePlacement(text, []string{"kubernetes"}, true)

	assert.Equal(t, 5, base.score, "keyword at ~1260 chars is inside the default window")
	assert.Zero(t, advanced.score, "but outside the advanced 1000-char window")
}

func TestAnalyzeAdvancedModeScoresStricter(t *testing.T) {
	resume := "Summary\n" +
		strings.Repeat("a line of ordinary resume prose\n", 10) +
		strings.Repeat("x", 160) + "\n" +
		"Experience\n" +
		strings.Repeat("- shipped a feature this quarter\n", 5)

	base := Analyze(proseJD, resume, types.AnalyzeOptions{})
	advanced := Analyze(proseJD, resume, types.AnalyzeOptions{AdvancedATSMode: true})

	assert.Less(t, advanced.Breakdown.Formatting.Score, base.Breakdown.Formatting.Score)
	assert.LessOrEqual(t, advanced.Score, base.Score)
}

func TestScoreRoleAlignment(t *testing.T) {
	exact := scoreRoleAlignment([]string{"senior software engineer"}, "I am a Senior Software Engineer in fintech")
	assert.Equal(t, maxRole, exact.score)
	assert.Equal(t, "senior software engineer", exact.matchedTitle)

	none := scoreRoleAlignment(nil, "anything")
	assert.Equal(t, 8, none.score)

	partial := scoreRoleAlignment([]string{"data engineer"}, "worked as an engineer on pipelines")
	assert.Equal(t, 5, partial.score)
}

func TestScoreImpact(t *testing.T) {
	rich := scoreImpact("Reduced costs by 30% and improved uptime to 99.9%. Built 4 services, launched 2 products, delivered 6 releases across 3 regions. Led and designed and implemented and optimized.")
	assert.Equal(t, maxImpact, rich.score)

	flat := scoreImpact("responsible for things")
	assert.Zero(t, flat.score)
	assert.Zero(t, flat.signals.QuantifiedMentions)
}

func TestPersonalAlignmentOnlyInAggressiveMode(t *testing.T) {
	plain := Analyze(proseJD, goodResume, types.AnalyzeOptions{})
	assert.Nil(t, plain.Breakdown.PersonalAlignment)

	aggressive := Analyze(proseJD, goodResume, types.AnalyzeOptions{AggressivePersonalMode: true})
	require.NotNil(t, aggressive.Breakdown.PersonalAlignment)
	assert.Positive(t, aggressive.Breakdown.PersonalAlignment.Score)
	assert.GreaterOrEqual(t, aggressive.Score, plain.Score)
}

func TestScorePersonalAlignmentRequiresBothSides(t *testing.T) {
	jd := "You will mentor junior engineers and own performance optimization."
	withEvidence := scorePersonalAlignment(jd, "mentored 4 engineers and tuned latency hot paths for performance")
	assert.Equal(t, 2*pointsPerConcept, withEvidence)

	noEvidence := scorePersonalAlignment(jd, "wrote documentation")
	assert.Zero(t, noEvidence)
}

func TestBuildSuggestionsPrioritizesMissingKeywords(t *testing.T) {
	r := Analyze(proseJD, "Summary\nA short resume about gardening.", types.AnalyzeOptions{})
	require.NotEmpty(t, r.Suggestions)
	assert.Equal(t, "keywords", r.Suggestions[0].Category)
	assert.Equal(t, "high", r.Suggestions[0].Priority)
}
