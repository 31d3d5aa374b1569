package proposals

import (
	"resumatch/internal/lines"
	"resumatch/internal/textutil"
)

// jaccardThreshold is the token-set similarity above which a generated
// line counts as a near duplicate and is suppressed.
const jaccardThreshold = 0.78

// deduper tracks canonical forms of every resume line plus token sets
// of the experience bullets and everything admitted so far in this
// batch. Exact matches are rejected against any line; the similarity
// screen only compares against bullets and prior proposals, so a
// keyword shared with the summary does not block a new bullet.
type deduper struct {
	canonical map[string]struct{}
	tokenSets []map[string]struct{}
}

func newDeduper(doc lines.Document) *deduper {
	d := &deduper{canonical: make(map[string]struct{})}
	for _, line := range doc.Lines {
		canon := textutil.CanonicalLine(line)
		if canon != "" {
			d.canonical[canon] = struct{}{}
		}
	}
	for _, c := range doc.CandidatesOfType(lines.TypeExperienceBullet) {
		canon := textutil.CanonicalLine(c.OriginalText)
		if canon != "" {
			d.tokenSets = append(d.tokenSets, textutil.TokenSet(canon))
		}
	}
	return d
}

// admit reports whether the text is novel enough to propose, and if so
// records it so later near-duplicates are rejected too.
func (d *deduper) admit(text string) bool {
	canon := textutil.CanonicalLine(text)
	if canon == "" {
		return false
	}
	if _, dup := d.canonical[canon]; dup {
		return false
	}
	set := textutil.TokenSet(canon)
	for _, other := range d.tokenSets {
		if textutil.Jaccard(set, other) >= jaccardThreshold {
			return false
		}
	}
	d.canonical[canon] = struct{}{}
	d.tokenSets = append(d.tokenSets, set)
	return true
}
