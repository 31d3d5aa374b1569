// Package lines classifies resume lines into editable candidates. It
// walks the document with a section state machine, recognizes bullet
// and body lines, and shields metadata lines that a rewrite must never
// touch.
package lines

import (
	"regexp"
	"strings"
)

// CandidateType labels what kind of line a candidate is.
type CandidateType string

const (
	TypeSummaryLine       CandidateType = "summary_line"
	TypeSkillsLine        CandidateType = "skills_line"
	TypeExperienceBullet  CandidateType = "experience_bullet"
	TypeExperienceLine    CandidateType = "experience_line"
	TypeAchievementBullet CandidateType = "achievement_bullet"
	TypeBullet            CandidateType = "bullet"
)

// Per-document candidate caps by kind.
const (
	maxSummaryLines       = 6
	maxSkillsLines        = 14
	maxExperienceBullets  = 45
	maxAchievementBullets = 20
	maxOtherBullets       = 20
	maxSectionBodyLines   = 10
	minExperienceLineLen  = 12
)

// headerAliases maps recognized section headings to canonical section
// names.
var headerAliases = map[string]string{
	"summary":                 "summary",
	"professional summary":    "summary",
	"profile":                 "summary",
	"skills":                  "skills",
	"technical skills":        "skills",
	"core skills":             "skills",
	"experience":              "experience",
	"work experience":         "experience",
	"professional experience": "experience",
	"employment":              "experience",
	"achievements":            "achievements",
	"notable achievements":    "achievements",
	"projects":                "projects",
	"education":               "education",
}

// Candidate is one editable line. LineNumber is one-based: the first
// line of the document is line 1, and the number is the stable
// identity of the line everywhere downstream.
type Candidate struct {
	LineNumber   int           `json:"lineNumber"`
	Type         CandidateType `json:"type"`
	Section      string        `json:"section"`
	OriginalText string        `json:"originalText"`
}

// Priority ranks how much an edit on this candidate tends to move the
// score.
func (c Candidate) Priority() string {
	switch c.Type {
	case TypeSummaryLine, TypeExperienceBullet:
		return "high"
	case TypeExperienceLine, TypeAchievementBullet, TypeSkillsLine:
		return "medium"
	default:
		return "low"
	}
}

// Document is a split resume with its editable candidates.
type Document struct {
	Lines      []string
	Candidates []Candidate
}

// ByLine indexes candidates by line number.
func (d Document) ByLine() map[int]Candidate {
	out := make(map[int]Candidate, len(d.Candidates))
	for _, c := range d.Candidates {
		out[c.LineNumber] = c
	}
	return out
}

// CandidatesOfType filters candidates by kind.
func (d Document) CandidatesOfType(types ...CandidateType) []Candidate {
	var out []Candidate
	for _, c := range d.Candidates {
		for _, t := range types {
			if c.Type == t {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

var (
	bulletPattern    = regexp.MustCompile(`^\s*[-*•]\s+`)
	headerTrim       = regexp.MustCompile(`[:\-\s]+$`)
	dateRangePattern = regexp.MustCompile(`(?i)\b(19|20)\d{2}\b\s*(?:[-–—]|to)\s*(?:\b(19|20)\d{2}\b|present|current)`)
	monthYearPattern = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(19|20)\d{2}\b`)
	labelPattern     = regexp.MustCompile(`(?i)^\s*(project|client|company|environment|technologies|tech stack|duration|location|role|title)\s*:`)
)

// Split breaks resume text into lines, dropping carriage returns but
// otherwise leaving every line byte-for-byte intact.
func Split(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r", ""), "\n")
}

// IsBullet reports whether the line starts with a bullet glyph.
func IsBullet(line string) bool {
	return bulletPattern.MatchString(line)
}

// DetectSection returns the canonical section a heading line opens, or
// empty when the line is not a recognized heading.
func DetectSection(line string) string {
	normalized := strings.TrimSpace(headerTrim.ReplaceAllString(strings.ToLower(line), ""))
	return headerAliases[normalized]
}

// IsProtectedMetadata reports whether a non-bullet experience line
// carries structural metadata that must never be rewritten: date
// ranges, month-year stamps, field labels like "Client:", and short
// title-shaped lines.
func IsProtectedMetadata(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	if dateRangePattern.MatchString(trimmed) || monthYearPattern.MatchString(trimmed) {
		return true
	}
	if labelPattern.MatchString(trimmed) {
		return true
	}
	words := strings.Fields(trimmed)
	if len(words) <= 7 && !strings.HasSuffix(trimmed, ".") && !strings.Contains(trimmed, ",") {
		return true
	}
	return false
}

// Classify splits the resume and collects its editable candidates in
// document order.
func Classify(resumeText string) Document {
	lns := Split(resumeText)
	var candidates []Candidate

	currentSection := ""
	summaryCount := 0
	skillsCount := 0
	experienceBullets := 0
	achievementBullets := 0
	otherBullets := 0
	sectionBody := 0

	for idx, raw := range lns {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}

		if section := DetectSection(trimmed); section != "" {
			currentSection = section
			sectionBody = 0
			continue
		}

		if IsBullet(raw) {
			bulletSection := currentSection
			if bulletSection == "" {
				bulletSection = "unknown"
			}

			experienceLike := bulletSection == "experience" || bulletSection == "projects"
			achievementLike := bulletSection == "achievements"

			var kind CandidateType
			switch {
			case bulletSection == "experience":
				kind = TypeExperienceBullet
			case achievementLike:
				kind = TypeAchievementBullet
			default:
				kind = TypeBullet
			}

			switch {
			case experienceLike && experienceBullets < maxExperienceBullets:
				experienceBullets++
			case achievementLike && achievementBullets < maxAchievementBullets:
				achievementBullets++
			case !experienceLike && !achievementLike && otherBullets < maxOtherBullets:
				otherBullets++
			default:
				continue
			}

			candidates = append(candidates, Candidate{
				LineNumber:   idx + 1,
				Type:         kind,
				Section:      bulletSection,
				OriginalText: raw,
			})
			continue
		}

		switch {
		case currentSection == "summary" && summaryCount < maxSummaryLines:
			candidates = append(candidates, Candidate{
				LineNumber:   idx + 1,
				Type:         TypeSummaryLine,
				Section:      currentSection,
				OriginalText: raw,
			})
			summaryCount++
			sectionBody++

		case currentSection == "skills" && skillsCount < maxSkillsLines:
			candidates = append(candidates, Candidate{
				LineNumber:   idx + 1,
				Type:         TypeSkillsLine,
				Section:      currentSection,
				OriginalText: raw,
			})
			skillsCount++
			sectionBody++

		case currentSection == "experience" && sectionBody < maxSectionBodyLines &&
			len(trimmed) >= minExperienceLineLen && !IsProtectedMetadata(raw):
			candidates = append(candidates, Candidate{
				LineNumber:   idx + 1,
				Type:         TypeExperienceLine,
				Section:      currentSection,
				OriginalText: raw,
			})
			sectionBody++
		}
	}

	return Document{Lines: lns, Candidates: candidates}
}
