// Package edits applies line replacements to a resume under layout
// constraints: the line count never changes, bullet prefixes and
// indentation survive, and anything that would distort the document is
// skipped with a recorded reason.
package edits

import (
	"regexp"
	"strings"

	"resumatch/internal/lines"
	"resumatch/internal/textutil"
	"resumatch/internal/types"
)

// Skip reasons recorded when a requested edit is rejected.
const (
	SkipNoCandidate   = "line_not_editable"
	SkipAlreadyEdited = "line_already_edited"
	SkipEmptyText     = "empty_replacement"
	SkipTooLong       = "replacement_too_long"
	SkipNoOp          = "no_change"
	SkipWeakLeadVerb  = "weak_lead_verb"
)

// maxLen is the per-type replacement length ceiling.
var maxLen = map[lines.CandidateType]int{
	lines.TypeSummaryLine:       520,
	lines.TypeExperienceLine:    420,
	lines.TypeExperienceBullet:  360,
	lines.TypeAchievementBullet: 340,
	lines.TypeSkillsLine:        320,
	lines.TypeBullet:            300,
}

// weakLeadVerbs are openers that read as passive filler on an
// experience bullet. Replacements leading with one are rejected.
var weakLeadVerbs = map[string]struct{}{
	"applied":  {},
	"assisted": {},
	"helped":   {},
	"tasked":   {},
	"utilized": {},
}

// Edit is one requested line replacement. LineNumber is one-based,
// matching the candidate numbering the classifier hands out.
type Edit struct {
	LineNumber int
	NewText    string
	Reason     string
}

// Result is the outcome of one apply batch.
type Result struct {
	Lines   []string
	Applied []types.AppliedEdit
	Skipped []types.SkippedEdit
}

var newlinePattern = regexp.MustCompile(`\r?\n`)

// Apply runs a batch of replacements against the document. Edits are
// processed in the order given; the first edit to touch a line wins
// and later ones on the same line are skipped. The returned line slice
// always has exactly as many lines as the input.
func Apply(doc lines.Document, batch []Edit) Result {
	byLine := doc.ByLine()
	seen := make(map[int]struct{})
	updated := make([]string, len(doc.Lines))
	copy(updated, doc.Lines)

	result := Result{Lines: updated}

	for _, edit := range batch {
		if _, done := seen[edit.LineNumber]; done {
			result.Skipped = append(result.Skipped, skipped(edit, SkipAlreadyEdited))
			continue
		}
		candidate, ok := byLine[edit.LineNumber]
		if !ok {
			result.Skipped = append(result.Skipped, skipped(edit, SkipNoCandidate))
			continue
		}

		newText := strings.TrimRight(newlinePattern.ReplaceAllString(edit.NewText, " "), " \t")
		if strings.TrimSpace(newText) == "" {
			result.Skipped = append(result.Skipped, skipped(edit, SkipEmptyText))
			continue
		}

		newText = reconstructLayout(candidate, newText)

		if limit := maxLen[candidate.Type]; limit > 0 && len(newText) > limit {
			result.Skipped = append(result.Skipped, skipped(edit, SkipTooLong))
			continue
		}
		if newText == candidate.OriginalText {
			result.Skipped = append(result.Skipped, skipped(edit, SkipNoOp))
			continue
		}
		if isBulletType(candidate.Type) && hasWeakLeadVerb(newText) {
			result.Skipped = append(result.Skipped, skipped(edit, SkipWeakLeadVerb))
			continue
		}

		updated[edit.LineNumber-1] = newText
		seen[edit.LineNumber] = struct{}{}
		result.Applied = append(result.Applied, types.AppliedEdit{
			LineNumber: edit.LineNumber,
			Type:       string(candidate.Type),
			Before:     candidate.OriginalText,
			After:      newText,
			Reason:     edit.Reason,
		})
	}

	return result
}

// reconstructLayout re-imposes the original line's bullet prefix or
// indentation on the replacement text.
func reconstructLayout(candidate lines.Candidate, newText string) string {
	if isBulletType(candidate.Type) {
		prefix := textutil.BulletPrefix(candidate.OriginalText)
		if prefix == "" {
			prefix = "- "
		}
		return prefix + strings.TrimSpace(textutil.StripBulletPrefix(newText))
	}
	indent := leadingWhitespace(candidate.OriginalText)
	return indent + strings.TrimSpace(newText)
}

func isBulletType(t lines.CandidateType) bool {
	switch t {
	case lines.TypeBullet, lines.TypeExperienceBullet, lines.TypeAchievementBullet:
		return true
	}
	return false
}

func hasWeakLeadVerb(line string) bool {
	body := textutil.StripBulletPrefix(line)
	fields := strings.Fields(strings.ToLower(body))
	if len(fields) == 0 {
		return false
	}
	_, weak := weakLeadVerbs[fields[0]]
	return weak
}

func leadingWhitespace(line string) string {
	for i, r := range line {
		if r != ' ' && r != '\t' {
			return line[:i]
		}
	}
	return line
}

func skipped(edit Edit, reason string) types.SkippedEdit {
	return types.SkippedEdit{LineNumber: edit.LineNumber, Reason: reason}
}
