// Package textutil holds the small text primitives shared by the
// keyword, scoring and proposal packages: normalization, tokenization
// and token-set similarity.
package textutil

import (
	"regexp"
	"strings"
)

var (
	nonTokenPattern    = regexp.MustCompile(`[^a-z0-9+.#/\- ]`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
	tokenSplitPattern  = regexp.MustCompile(`[^a-z0-9+#.]+`)
	bulletLeadPattern  = regexp.MustCompile(`^\s*[-*•]\s+`)
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	bulletGlyphPattern = regexp.MustCompile(`[•·▪◦]`)
	innerSpacePattern  = regexp.MustCompile(`[^\S\n]+`)
)

// NormalizeDocument canonicalizes a whole document while keeping its
// line structure: carriage returns become newlines, decorative bullet
// glyphs become dashes, and runs of non-newline whitespace collapse to
// a single space.
func NormalizeDocument(text string) string {
	out := strings.ReplaceAll(text, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "\n")
	out = bulletGlyphPattern.ReplaceAllString(out, "-")
	out = innerSpacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// Normalize lowercases text and strips characters that never carry
// keyword signal, collapsing runs of whitespace to single spaces.
func Normalize(s string) string {
	lowered := strings.ToLower(s)
	cleaned := nonTokenPattern.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))
}

// Tokenize splits normalized text into lowercase tokens. Tokens keep
// "+" and "#" so terms like c++ and c# survive.
func Tokenize(s string) []string {
	parts := tokenSplitPattern.Split(strings.ToLower(s), -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// TokenSet returns the unique tokens of s as a set.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Tokenize(s) {
		set[t] = struct{}{}
	}
	return set
}

// Jaccard computes the Jaccard similarity of two token sets. Two empty
// sets are treated as identical.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// StripBulletPrefix removes a leading bullet glyph and its whitespace.
func StripBulletPrefix(line string) string {
	return bulletLeadPattern.ReplaceAllString(line, "")
}

// BulletPrefix returns the leading bullet glyph plus indentation of a
// line, or empty when the line is not a bullet.
func BulletPrefix(line string) string {
	return bulletLeadPattern.FindString(line)
}

// CanonicalLine reduces a line to a comparable form: bullet glyphs
// dropped, lowercased, punctuation collapsed to single spaces.
func CanonicalLine(line string) string {
	stripped := StripBulletPrefix(line)
	lowered := strings.ToLower(stripped)
	collapsed := punctuationPattern.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(collapsed)
}
