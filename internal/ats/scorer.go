// Package ats computes the deterministic resume-vs-job match score.
// Six weighted categories sum to at most 100: keyword coverage (45),
// section completeness (15), formatting readability (15), role
// alignment (10), impact evidence (5) and keyword placement (10). An
// optional personal-alignment bonus applies in aggressive mode.
package ats

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"resumatch/internal/keywords"
	"resumatch/internal/textutil"
	"resumatch/internal/types"
)

// Category maxima.
const (
	maxCoverage   = 45
	maxSections   = 15
	maxFormatting = 15
	maxRole       = 10
	maxImpact     = 5
	maxPlacement  = 10
	maxPersonal   = 20
)

// Score bands.
const (
	BandExcellent = "Excellent match"
	BandStrong    = "Strong match"
	BandModerate  = "Moderate match"
	BandNeedsWork = "Needs improvement"
)

// Analyze scores a resume against a job description. Identical inputs
// always produce identical results.
func Analyze(jobDescription, resumeText string, opts types.AnalyzeOptions) types.AnalysisResult {
	normalizedJD := textutil.NormalizeDocument(jobDescription)
	normalizedResume := textutil.NormalizeDocument(resumeText)

	model := keywords.Build(normalizedJD, opts.JDKeywordListMode)

	coverage := scoreCoverage(model, normalizedResume)
	sections := scoreSections(normalizedResume)
	formatting := scoreFormatting(normalizedResume, opts.AdvancedATSMode)
	role := scoreRoleAlignment(model.JobTitles, normalizedResume)
	impact := scoreImpact(normalizedResume)

	placementPool := model.Terms()
	if len(coverage.missing) > 0 {
		placementPool = append(append([]string{}, coverage.matched...), coverage.missing...)
	}
	placement := scorePlacement(normalizedResume, placementPool, opts.AdvancedATSMode)

	total := coverage.score + sections.score + formatting.score + role.score + impact.score + placement.score

	breakdown := types.ScoreBreakdown{
		KeywordCoverage: types.CategoryScore{Score: coverage.score, Max: maxCoverage},
		Sections:        types.CategoryScore{Score: sections.score, Max: maxSections},
		Formatting:      types.CategoryScore{Score: formatting.score, Max: maxFormatting},
		RoleAlignment:   types.CategoryScore{Score: role.score, Max: maxRole},
		Impact:          types.CategoryScore{Score: impact.score, Max: maxImpact},
		Placement:       types.CategoryScore{Score: placement.score, Max: maxPlacement},
	}

	if opts.AggressivePersonalMode {
		personal := scorePersonalAlignment(normalizedJD, normalizedResume)
		breakdown.PersonalAlignment = &types.CategoryScore{Score: personal, Max: maxPersonal}
		total += personal
	}

	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}

	result := types.AnalysisResult{
		Score:     total,
		ScoreBand: band(total),
		Breakdown: breakdown,
		Insights: types.Insights{
			ExtractedJobTitles: model.JobTitles,
			MatchedTitle:       role.matchedTitle,
			TopMatchedKeywords: head(coverage.matched, 20),
			TopMissingKeywords: head(coverage.missing, 20),
			PresentSections:    sections.present,
			MissingSections:    sections.missing,
			FormattingNotes:    formatting.notes,
			Impact:             impact.signals,
			KeywordPoolSize:    len(model.Keywords),
			JDInputModeUsed:    model.InputMode,
		},
	}
	result.Suggestions = buildSuggestions(coverage, sections, formatting, impact, placement)
	return result
}

func band(score int) string {
	switch {
	case score >= 85:
		return BandExcellent
	case score >= 70:
		return BandStrong
	case score >= 50:
		return BandModerate
	default:
		return BandNeedsWork
	}
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

type coverageResult struct {
	score   int
	raw     float64
	matched []string
	missing []string
}

type weighted struct {
	term   string
	weight int
}

// scoreCoverage computes weighted keyword coverage. An equivalence
// group contributes a single unit to the denominator, worth its
// heaviest member, and is satisfied by any one member's presence.
func scoreCoverage(model keywords.Model, resumeText string) coverageResult {
	var totalWeight, matchedWeight int
	var matched, missing []weighted

	type groupState struct {
		best      int
		satisfied bool
		absent    []weighted
	}
	groups := make(map[string]*groupState)
	var groupOrder []string

	for _, kw := range model.Keywords {
		if kw.Weight <= 0 {
			continue
		}
		present := keywords.MatchesTerm(resumeText, kw.Term)

		if kw.Group == "" {
			totalWeight += kw.Weight
			if present {
				matched = append(matched, weighted{kw.Term, kw.Weight})
				matchedWeight += kw.Weight
			} else {
				missing = append(missing, weighted{kw.Term, kw.Weight})
			}
			continue
		}

		st, ok := groups[kw.Group]
		if !ok {
			st = &groupState{}
			groups[kw.Group] = st
			groupOrder = append(groupOrder, kw.Group)
		}
		if kw.Weight > st.best {
			st.best = kw.Weight
		}
		if present {
			st.satisfied = true
			matched = append(matched, weighted{kw.Term, kw.Weight})
		} else {
			st.absent = append(st.absent, weighted{kw.Term, kw.Weight})
		}
	}

	for _, name := range groupOrder {
		st := groups[name]
		totalWeight += st.best
		if st.satisfied {
			matchedWeight += st.best
		} else {
			missing = append(missing, st.absent...)
		}
	}

	var raw float64
	if totalWeight > 0 {
		raw = float64(matchedWeight) / float64(totalWeight)
	}

	return coverageResult{
		score:   int(math.Round(raw * maxCoverage)),
		raw:     raw,
		matched: byWeightDesc(matched),
		missing: byWeightDesc(missing),
	}
}

// byWeightDesc orders terms by weight descending, keeping extraction
// order among equals.
func byWeightDesc(items []weighted) []string {
	sorted := make([]weighted, len(items))
	copy(sorted, items)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].weight > sorted[j-1].weight; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	out := make([]string, len(sorted))
	for i, it := range sorted {
		out[i] = it.term
	}
	return out
}

type sectionResult struct {
	score   int
	present []string
	missing []string
}

// scoreSections awards points for recognized resume sections: 4 for
// each required one (experience, skills, education), 1 for each bonus
// one (summary, projects, certifications), plus a 2-point floor bias.
func scoreSections(resumeText string) sectionResult {
	lower := strings.ToLower(resumeText)
	var present []string
	for _, header := range keywords.SectionHeaders() {
		pattern := regexp.MustCompile(`(?i)(^|\n)\s*` + regexp.QuoteMeta(header) + `\s*(:|-)?\s*(\n|$)`)
		if pattern.MatchString(lower) {
			present = append(present, header)
		}
	}

	required := []string{"experience", "skills", "education"}
	bonus := []string{"summary", "projects", "certifications"}

	points := 0
	var missing []string
	for _, section := range required {
		if containsSection(present, section) {
			points += 4
		} else {
			missing = append(missing, section)
		}
	}
	for _, section := range bonus {
		if containsSection(present, section) {
			points++
		}
	}

	points += 2
	if points > maxSections {
		points = maxSections
	}

	return sectionResult{score: points, present: present, missing: missing}
}

func containsSection(headers []string, section string) bool {
	for _, h := range headers {
		if strings.Contains(h, section) {
			return true
		}
	}
	return false
}

type formattingResult struct {
	score int
	notes []string
}

var (
	boxDrawingPattern = regexp.MustCompile(`[│┌┐└┘╔╗╚╝]`)
	bulletLinePattern = regexp.MustCompile(`(?m)^\s*[-*]\s+`)
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	allCapsPattern    = regexp.MustCompile(`\b[A-Z]{8,}\b`)
)

// scoreFormatting deducts from a full 15 for layout traits that trip
// up resume parsers. Advanced mode tightens every threshold to the
// levels strict corporate ATS pipelines are known to trip on.
func scoreFormatting(resumeText string, advanced bool) formattingResult {
	lineLenLimit, longLineAllowance := 180, 2
	minBullets := 4
	maxURLs := 6
	maxAllCaps := 10
	minContentLen := 500
	if advanced {
		lineLenLimit, longLineAllowance = 140, 0
		minBullets = 6
		maxURLs = 4
		maxAllCaps = 6
		minContentLen = 800
	}

	score := maxFormatting
	var notes []string

	longLines := 0
	for _, line := range strings.Split(resumeText, "\n") {
		if len(line) > lineLenLimit {
			longLines++
		}
	}
	if longLines > longLineAllowance {
		score -= 3
		notes = append(notes, "Very long lines detected; ATS parsers may misread multi-column or compressed formatting.")
	}

	if boxDrawingPattern.MatchString(resumeText) {
		score -= 4
		notes = append(notes, "Table/box-drawing characters detected; many ATS systems parse these poorly.")
	}

	if len(bulletLinePattern.FindAllString(resumeText, -1)) < minBullets {
		score -= 2
		notes = append(notes, "Few bullet points detected; recruiter-facing readability may be low.")
	}

	if len(urlPattern.FindAllString(resumeText, -1)) > maxURLs {
		score--
		notes = append(notes, "Too many raw URLs can reduce resume readability.")
	}

	if len(allCapsPattern.FindAllString(resumeText, -1)) > maxAllCaps {
		score -= 2
		notes = append(notes, "Excessive ALL CAPS text can hurt parsing and readability.")
	}

	if len(resumeText) < minContentLen {
		score -= 3
		notes = append(notes, "Resume content is very short for strong keyword matching.")
	}

	if score == maxFormatting {
		notes = append(notes, "Formatting looks ATS-friendly based on text heuristics.")
	}
	if score < 0 {
		score = 0
	}

	return formattingResult{score: score, notes: notes}
}

type roleResult struct {
	score        int
	matchedTitle string
}

// scoreRoleAlignment checks the extracted job titles against the
// resume: an exact substring hit scores full marks, otherwise the
// title-token overlap ratio scales the score. No titles at all scores
// a neutral 8.
func scoreRoleAlignment(jobTitles []string, resumeText string) roleResult {
	if len(jobTitles) == 0 {
		return roleResult{score: 8}
	}

	lower := strings.ToLower(resumeText)
	for _, title := range jobTitles {
		if strings.Contains(lower, title) {
			return roleResult{score: maxRole, matchedTitle: title}
		}
	}

	titleTokens := make(map[string]struct{})
	for _, t := range textutil.Tokenize(strings.Join(jobTitles, " ")) {
		if !keywords.IsStopword(t) {
			titleTokens[t] = struct{}{}
		}
	}
	resumeTokens := textutil.TokenSet(lower)

	overlap := 0
	for t := range titleTokens {
		if _, ok := resumeTokens[t]; ok {
			overlap++
		}
	}
	var ratio float64
	if len(titleTokens) > 0 {
		ratio = float64(overlap) / float64(len(titleTokens))
	}
	return roleResult{score: int(math.Round(ratio * maxRole))}
}

type impactResult struct {
	score   int
	signals types.ImpactSignals
}

var (
	numberPattern     = regexp.MustCompile(`\b\d+(?:\.\d+)?%?\b`)
	actionVerbPattern = regexp.MustCompile(`\b(led|built|designed|implemented|improved|reduced|increased|developed|optimized|automated|launched|delivered)\b`)
)

// scoreImpact rewards quantified achievements and action verbs.
func scoreImpact(resumeText string) impactResult {
	numbers := len(numberPattern.FindAllString(resumeText, -1))
	verbs := len(actionVerbPattern.FindAllString(strings.ToLower(resumeText), -1))

	score := 0
	switch {
	case numbers >= 6:
		score += 3
	case numbers >= 3:
		score += 2
	case numbers >= 1:
		score++
	}
	switch {
	case verbs >= 6:
		score += 2
	case verbs >= 3:
		score++
	}
	if score > maxImpact {
		score = maxImpact
	}

	return impactResult{
		score:   score,
		signals: types.ImpactSignals{QuantifiedMentions: numbers, ActionVerbs: verbs},
	}
}

type placementResult struct {
	score int
}

var skillsSectionPattern = regexp.MustCompile(`(?i)(?:technical\s+skills|skills)\s*[:\n-]([\s\S]{0,800})`)

// scorePlacement checks where the ten most important keywords appear:
// one point each for showing up early in the document and in the
// skills section. The early window is the first 1500 characters, or
// 1000 in advanced mode.
func scorePlacement(resumeText string, topKeywords []string, advanced bool) placementResult {
	important := head(topKeywords, 10)
	if len(important) == 0 {
		return placementResult{score: 8}
	}

	window := 1500
	if advanced {
		window = 1000
	}
	topSlice := resumeText
	if len(topSlice) > window {
		topSlice = topSlice[:window]
	}

	skillsText := ""
	if m := skillsSectionPattern.FindStringSubmatch(resumeText); m != nil {
		skillsText = m[1]
	}

	points := 0
	for _, kw := range important {
		if keywords.MatchesTerm(topSlice, kw) {
			points++
		}
		if skillsText != "" && keywords.MatchesTerm(skillsText, kw) {
			points++
		}
	}

	maxPoints := len(important) * 2
	return placementResult{score: int(math.Round(float64(points) / float64(maxPoints) * maxPlacement))}
}

func buildSuggestions(coverage coverageResult, sections sectionResult, formatting formattingResult, impact impactResult, placement placementResult) []types.Suggestion {
	var out []types.Suggestion

	if len(coverage.missing) > 0 {
		out = append(out, types.Suggestion{
			Priority: "high",
			Category: "keywords",
			Message:  fmt.Sprintf("Add missing JD keywords (only where truthful). Prioritize these terms in summary, skills, and experience bullets: %s.", strings.Join(head(coverage.missing, 12), ", ")),
		})
	}

	if len(sections.missing) > 0 {
		out = append(out, types.Suggestion{
			Priority: "medium",
			Category: "sections",
			Message:  fmt.Sprintf("Add standard resume sections. Missing common ATS-friendly sections: %s.", strings.Join(sections.missing, ", ")),
		})
	}

	for _, note := range formatting.notes {
		if strings.Contains(note, "looks ATS-friendly") {
			continue
		}
		out = append(out, types.Suggestion{
			Priority: "medium",
			Category: "formatting",
			Message:  "Simplify formatting for ATS parsing. " + note,
		})
		break
	}

	if impact.score < 3 {
		out = append(out, types.Suggestion{
			Priority: "medium",
			Category: "impact",
			Message:  "Increase quantified impact. Rewrite experience bullets with metrics (%, $, time saved, scale, latency, users, revenue, incidents).",
		})
	}

	if placement.score < 6 {
		out = append(out, types.Suggestion{
			Priority: "high",
			Category: "placement",
			Message:  "Improve keyword placement. Mirror top JD terms in your summary/headline and technical skills section to improve early ATS relevance.",
		})
	}

	return out
}
