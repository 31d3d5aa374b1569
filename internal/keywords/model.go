// Package keywords turns a job description into a weighted keyword
// model: extraction, weighting, equivalence grouping and composite
// concept merging.
package keywords

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"resumatch/internal/textutil"
)

// Input modes for job description parsing.
const (
	ModeProse       = "prose"
	ModeKeywordList = "keyword_list"
)

// Keyword is one weighted unit of the model. Group is non-empty when
// the keyword belongs to an equivalence group that applies to this job
// description.
type Keyword struct {
	Term   string `json:"term"`
	Weight int    `json:"weight"`
	Group  string `json:"group,omitempty"`
}

// Model is the extracted, weighted view of one job description.
type Model struct {
	Keywords  []Keyword `json:"keywords"`
	InputMode string    `json:"inputMode"`
	JobTitles []string  `json:"jobTitles"`
}

// Terms returns the model's keyword terms in order.
func (m Model) Terms() []string {
	out := make([]string, len(m.Keywords))
	for i, k := range m.Keywords {
		out[i] = k.Term
	}
	return out
}

var (
	acronymPattern  = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,}\b`)
	phrasePattern   = regexp.MustCompile(`\b[A-Za-z][A-Za-z0-9+.#]*(?:[ /-][A-Za-z0-9+.#]+){1,2}\b`)
	phraseSplit     = regexp.MustCompile(`[ /-]+`)
	digitsOnly      = regexp.MustCompile(`^\d+$`)
	trailingPunct   = regexp.MustCompile(`[.,;:]+$`)
	listDelimiters  = regexp.MustCompile(`[,;\n]`)
	sentenceEnders  = regexp.MustCompile(`[.!?](\s|$)`)
	glueWordPattern = regexp.MustCompile(`\b(with|and|or|for|to)\b`)
	titlePattern    = regexp.MustCompile(`(?i)\b(senior|sr\.?|lead|principal|staff|junior|jr\.?)?\s*(software|data|product|frontend|front-end|backend|back-end|full[- ]stack|devops|ml|ai)?\s*(engineer|developer|analyst|manager|architect|scientist|designer)\b`)
)

// DetectInputMode classifies a job description as prose or a bare
// keyword list. Short delimiter-separated fragments with almost no
// sentence punctuation read as a list.
func DetectInputMode(jobDescription string) string {
	segments := listDelimiters.Split(jobDescription, -1)
	var kept int
	var tokenTotal int
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		kept++
		tokenTotal += len(strings.Fields(seg))
	}
	if kept < 6 {
		return ModeProse
	}
	avgTokens := float64(tokenTotal) / float64(kept)
	enders := len(sentenceEnders.FindAllString(jobDescription, -1))
	if avgTokens <= 4 && enders <= 2 {
		return ModeKeywordList
	}
	return ModeProse
}

// Build extracts and weighs the keyword model for a job description.
// forceList forces keyword-list parsing regardless of what detection
// says; otherwise the mode is detected from the text shape.
func Build(jobDescription string, forceList bool) Model {
	normalized := textutil.NormalizeDocument(jobDescription)

	mode := ModeProse
	if forceList {
		mode = ModeKeywordList
	} else {
		mode = DetectInputMode(normalized)
	}

	var terms []string
	if mode == ModeKeywordList {
		terms = parseKeywordList(normalized)
	} else {
		terms = extractPhrases(normalized)
	}

	terms = mergeComposites(terms)

	groups := assignGroups(terms)
	kws := make([]Keyword, 0, len(terms))
	for _, t := range terms {
		kws = append(kws, Keyword{Term: t, Weight: Weigh(t), Group: groups[t]})
	}

	return Model{
		Keywords:  kws,
		InputMode: mode,
		JobTitles: ExtractJobTitles(normalized),
	}
}

// parseKeywordList splits an explicit term list on commas, semicolons
// and newlines. Order is preserved and duplicates collapse to the
// first occurrence.
func parseKeywordList(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, seg := range listDelimiters.Split(text, -1) {
		term := strings.ToLower(strings.TrimSpace(seg))
		term = trailingPunct.ReplaceAllString(term, "")
		term = strings.TrimPrefix(term, "- ")
		term = strings.TrimSpace(term)
		if term == "" || IsLowSignal(term) {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}

// extractPhrases pulls candidate keywords out of prose: dictionary
// skills, acronyms, short multi-token phrases and the most frequent
// single tokens.
func extractPhrases(text string) []string {
	lower := strings.ToLower(text)

	seen := make(map[string]struct{})
	var ordered []string
	add := func(p string) {
		p = strings.TrimSpace(whitespaceRun.ReplaceAllString(p, " "))
		if p == "" {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		ordered = append(ordered, p)
	}

	for _, skill := range commonSkills {
		if strings.Contains(lower, skill) {
			add(skill)
		}
	}

	for _, a := range acronymPattern.FindAllString(text, -1) {
		add(strings.ToLower(a))
	}

	for _, phrase := range phrasePattern.FindAllString(text, -1) {
		normalized := strings.TrimSpace(trailingPunct.ReplaceAllString(strings.ToLower(phrase), ""))
		tokens := splitNonEmpty(phraseSplit, normalized)
		if len(tokens) < 2 || len(tokens) > 3 {
			continue
		}
		ok := true
		for _, t := range tokens {
			if IsStopword(t) || len(t) <= 1 || digitsOnly.MatchString(t) {
				ok = false
				break
			}
		}
		if ok {
			add(normalized)
		}
	}

	freq := make(map[string]int)
	var firstSeen []string
	for _, t := range textutil.Tokenize(text) {
		if len(t) < 2 || IsStopword(t) || !strings.ContainsFunc(t, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
			continue
		}
		if trailingPunct.MatchString(t) {
			continue
		}
		if freq[t] == 0 {
			firstSeen = append(firstSeen, t)
		}
		freq[t]++
	}
	sort.SliceStable(firstSeen, func(i, j int) bool { return freq[firstSeen[i]] > freq[firstSeen[j]] })
	if len(firstSeen) > 60 {
		firstSeen = firstSeen[:60]
	}
	for _, t := range firstSeen {
		add(t)
	}

	var filtered []string
	for _, p := range ordered {
		if IsLowSignal(p) {
			continue
		}
		if glueWordPattern.MatchString(p) && !IsDictionarySkill(p) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func splitNonEmpty(re *regexp.Regexp, s string) []string {
	parts := re.Split(s, -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mergeComposites collapses fragments of one concept into a single
// synthetic keyword. A rule fires when at least two of its member
// phrases are present; the members are removed and the label inserted
// at the position of the first member.
func mergeComposites(terms []string) []string {
	type hit struct {
		rule  *CompositeRule
		first int
		drop  map[int]struct{}
	}
	var hits []hit
	for i := range compositeRules {
		rule := &compositeRules[i]
		drop := make(map[int]struct{})
		first := -1
		for idx, term := range terms {
			for _, m := range rule.Members {
				if term == m || strings.Contains(term, m) {
					drop[idx] = struct{}{}
					if first == -1 {
						first = idx
					}
					break
				}
			}
		}
		if len(drop) >= 2 {
			hits = append(hits, hit{rule: rule, first: first, drop: drop})
		}
	}
	if len(hits) == 0 {
		return terms
	}

	dropped := make(map[int]struct{})
	insertAt := make(map[int]string)
	for _, h := range hits {
		for idx := range h.drop {
			if _, taken := dropped[idx]; !taken {
				dropped[idx] = struct{}{}
			}
		}
		if _, taken := insertAt[h.first]; !taken {
			insertAt[h.first] = h.rule.Label
		}
	}

	out := make([]string, 0, len(terms))
	for idx, term := range terms {
		if label, ok := insertAt[idx]; ok {
			out = append(out, label)
		}
		if _, gone := dropped[idx]; gone {
			continue
		}
		out = append(out, term)
	}
	return out
}

// assignGroups maps each term to its equivalence group, but only when
// the job description names at least two members of that group.
func assignGroups(terms []string) map[string]string {
	present := make(map[string][]string)
	membership := make(map[string]string)
	for group, members := range equivalenceGroups {
		for _, m := range members {
			membership[m] = group
		}
	}
	for _, t := range terms {
		if g, ok := membership[t]; ok {
			present[g] = append(present[g], t)
		}
	}
	out := make(map[string]string)
	for g, members := range present {
		if len(members) < 2 {
			continue
		}
		for _, m := range members {
			out[m] = g
		}
	}
	return out
}

// Weigh assigns the scoring weight for a single term. Low-signal
// terms weigh zero; dictionary skills start at 3, everything else at
// 1; multi-word phrases and high-value singles get a bump.
func Weigh(term string) int {
	if IsLowSignal(term) {
		return 0
	}
	weight := 1
	if IsDictionarySkill(term) {
		weight = 3
	}
	if strings.Contains(term, " ") {
		weight++
	}
	if highValuePattern.MatchString(term) {
		weight++
	}
	return weight
}

var termPatternCache sync.Map

// termPattern compiles the presence pattern for a term: word-bounded,
// case-insensitive, with interior spaces matching any whitespace run.
// Terms whose edges are not word characters cannot use \b and fall
// back to substring search (signalled by a nil pattern).
func termPattern(term string) *regexp.Regexp {
	if cached, ok := termPatternCache.Load(term); ok {
		p, _ := cached.(*regexp.Regexp)
		return p
	}
	var pattern *regexp.Regexp
	if hasWordEdges(term) {
		escaped := strings.ReplaceAll(regexp.QuoteMeta(term), ` `, `\s+`)
		pattern = regexp.MustCompile(`(?i)\b` + escaped + `\b`)
	}
	termPatternCache.Store(term, pattern)
	return pattern
}

func hasWordEdges(term string) bool {
	if term == "" {
		return false
	}
	isWord := func(r byte) bool {
		return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
	}
	return isWord(term[0]) && isWord(term[len(term)-1])
}

// MatchesTerm reports whether the term occurs in the text.
func MatchesTerm(text, term string) bool {
	if term == "" {
		return false
	}
	if p := termPattern(term); p != nil {
		return p.MatchString(text)
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(term))
}

// ExtractJobTitles pulls likely job titles from the top of a job
// description plus any title-shaped phrases in the body. At most ten
// are returned.
func ExtractJobTitles(jobDescription string) []string {
	normalized := textutil.NormalizeDocument(jobDescription)
	seen := make(map[string]struct{})
	var titles []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		titles = append(titles, t)
	}

	lines := strings.Split(normalized, "\n")
	if len(lines) > 15 {
		lines = lines[:15]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > 100 {
			continue
		}
		lower := strings.ToLower(line)
		for _, w := range roleWords {
			if strings.Contains(lower, w) {
				add(lower)
				break
			}
		}
	}

	for _, m := range titlePattern.FindAllString(normalized, -1) {
		add(strings.ToLower(m))
	}

	if len(titles) > 10 {
		titles = titles[:10]
	}
	return titles
}
