// Package proposals synthesizes insertion proposals for missing
// keywords. Each missing term is routed through a category rule table
// to a template line, anchored at an editable candidate, and screened
// against the resume for near duplicates.
package proposals

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"resumatch/internal/keywords"
	"resumatch/internal/lines"
	"resumatch/internal/textutil"
	"resumatch/internal/types"
)

// DefaultMaxProposals bounds one generation batch.
const DefaultMaxProposals = 8

// categoryRule routes a missing keyword to a template. The first rule
// whose matcher is contained in the term wins; terms matching a rule
// with an empty template are dropped entirely.
type categoryRule struct {
	name     string
	matchers []string
	// template produces the body text; %s receives the keyword.
	template string
	// summary routes the proposal to summary candidates instead of
	// experience bullets.
	summary bool
}

var categoryRules = []categoryRule{
	{
		name:     "qualification",
		matchers: []string{"degree", "bachelor", "master", "diploma", "certification", "years of", "qualification", "equivalent"},
		template: "",
	},
	{
		name:     "summary",
		matchers: []string{"leadership", "mentoring", "mentorship", "communication", "collaboration", "stakeholder"},
		template: "Engineering leader known for %s across cross-functional delivery teams.",
		summary:  true,
	},
	{
		name:     "release",
		matchers: []string{"release", "app store", "play store", "rollout", "deployment", "deploy"},
		template: "Owned %s end to end, cutting failed releases by 30% through staged rollouts",
	},
	{
		name:     "process",
		matchers: []string{"agile", "scrum", "kanban", "ci/cd", "continuous integration", "continuous delivery", "process improvement"},
		template: "Embedded %s practices in the team workflow, trimming cycle time by 25%",
	},
	{
		name:     "performance",
		matchers: []string{"performance", "latency", "optimization", "optimisation", "tuning", "scalability", "scaling"},
		template: "Profiled and tuned services for %s, cutting p95 latency by 35%",
	},
	{
		name:     "distributed",
		matchers: []string{"distributed", "microservice", "event-driven", "messaging", "kafka", "queue"},
		template: "Built %s components with graceful degradation across dependent services",
	},
	{
		name:     "diagnostics",
		matchers: []string{"debugging", "troubleshooting", "root cause", "incident", "observability", "monitoring", "alerting"},
		template: "Led %s for production incidents, reducing mean time to recovery by 40%",
	},
	{
		name:     "architecture",
		matchers: []string{"architecture", "system design", "design patterns", "api design"},
		template: "Drove %s decisions for new services, documenting tradeoffs for the wider team",
	},
	{
		name:     "testing",
		matchers: []string{"testing", "test automation", "unit test", "integration test", "tdd"},
		template: "Raised coverage through %s, catching regressions before 95% of releases",
	},
}

// genericTemplates rotate so that batches of uncategorized keywords do
// not render near-identical lines and knock each other out in the
// duplicate screen.
var genericTemplates = []string{
	"Delivered measurable improvements with %s, raising team throughput by 20%",
	"Adopted %s to strengthen day-to-day delivery, cutting rework by a quarter",
	"Introduced %s into the core workflow, saving six hours of manual effort weekly",
	"Standardized %s usage across the codebase, shortening onboarding by 30%",
}

var genericRule = categoryRule{name: "generic"}

func classifyTerm(term string) categoryRule {
	lower := strings.ToLower(term)
	for _, rule := range categoryRules {
		for _, m := range rule.matchers {
			if strings.Contains(lower, m) {
				return rule
			}
		}
	}
	return genericRule
}

// ID derives the stable proposal identifier from the proposal's
// operation, target line and final text.
func ID(op types.ProposalOperation, line int, after string) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%d|%s", op, line, after)))
	return hex.EncodeToString(sum[:])[:12]
}

// Generate produces heuristic insertion proposals for the missing
// keywords, at most max of them (DefaultMaxProposals when max <= 0).
// Results are deterministic for identical inputs.
func Generate(doc lines.Document, missing []string, max int) []types.EditProposal {
	if max <= 0 {
		max = DefaultMaxProposals
	}

	summaryAnchors := doc.CandidatesOfType(lines.TypeSummaryLine)
	bulletAnchors := doc.CandidatesOfType(lines.TypeExperienceBullet, lines.TypeAchievementBullet, lines.TypeBullet)

	dedupe := newDeduper(doc)
	var out []types.EditProposal
	summaryIdx, bulletIdx, genericIdx := 0, 0, 0

	for _, term := range missing {
		if len(out) >= max {
			break
		}
		term = strings.TrimSpace(strings.ToLower(term))
		if term == "" || keywords.IsLowSignal(term) {
			continue
		}
		rule := classifyTerm(term)
		template := rule.template
		if rule.name == "generic" {
			template = genericTemplates[genericIdx%len(genericTemplates)]
			genericIdx++
		}
		if template == "" {
			continue
		}

		body := strings.ReplaceAll(template, "%s", term)

		var anchor lines.Candidate
		var after string
		if rule.summary {
			if len(summaryAnchors) == 0 {
				continue
			}
			anchor = summaryAnchors[summaryIdx%len(summaryAnchors)]
			summaryIdx++
			after = leadingWhitespace(anchor.OriginalText) + body
		} else {
			if len(bulletAnchors) == 0 {
				continue
			}
			anchor = bulletAnchors[bulletIdx%len(bulletAnchors)]
			bulletIdx++
			prefix := textutil.BulletPrefix(anchor.OriginalText)
			if prefix == "" {
				prefix = "- "
			}
			after = prefix + body
		}

		if !dedupe.admit(after) {
			continue
		}

		out = append(out, types.EditProposal{
			ProposalID:    ID(types.OpInsertAfterLine, anchor.LineNumber, after),
			Operation:     types.OpInsertAfterLine,
			LineNumber:    -1,
			AnchorLine:    anchor.LineNumber,
			Section:       anchor.Section,
			CandidateType: string(anchor.Type),
			After:         after,
			Reason:        fmt.Sprintf("adds missing keyword %q (%s)", term, rule.name),
			AddedKeywords: []string{term},
			Source:        types.SourceHeuristic,
			Selected:      true,
		})
	}

	return out
}

func leadingWhitespace(line string) string {
	for i, r := range line {
		if r != ' ' && r != '\t' {
			return line[:i]
		}
	}
	return line
}
