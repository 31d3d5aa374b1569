// Package drafts coordinates the optimize and apply phases of a resume
// rewrite. A propose call scores the resume, collects replacement
// proposals from the AI line editor and insertion proposals from the
// heuristic generator, and parks everything in a draft session. An
// apply call replays a selection of those proposals against the
// session's pristine line snapshot and re-scores the result. Sessions
// are never mutated by apply, so the same draft can be re-applied with
// a different selection.
package drafts

import (
	"sync"
	"time"

	"resumatch/internal/lines"
	"resumatch/internal/types"
)

// ContentMode says what kind of source a session was built from. Text
// sessions splice insertions as new lines; file sessions have to merge
// them into existing bullets so the binary layout survives conversion.
type ContentMode string

const (
	ModeText ContentMode = "text"
	ModeFile ContentMode = "file"
)

// Session is one stored draft: the pristine resume snapshot, the
// before-analysis, and every proposal offered to the caller.
type Session struct {
	ID             string
	CreatedAt      time.Time
	ContentMode    ContentMode
	JobDescription string
	Options        types.AnalyzeOptions
	Lines          []string
	Candidates     []lines.Candidate
	Before         types.AnalysisResult
	Proposals      []types.EditProposal

	// mu serializes apply calls on this session. Apply works on
	// copies, so the lock only prevents interleaved double work, not
	// data corruption.
	mu sync.Mutex
}

func (s *Session) lock()   { s.mu.Lock() }
func (s *Session) unlock() { s.mu.Unlock() }

// Document rebuilds the classifier view of the session snapshot.
func (s *Session) document() lines.Document {
	snapshot := make([]string, len(s.Lines))
	copy(snapshot, s.Lines)
	return lines.Document{Lines: snapshot, Candidates: s.Candidates}
}

// proposalByID finds a stored proposal.
func (s *Session) proposalByID(id string) (types.EditProposal, bool) {
	for _, p := range s.Proposals {
		if p.ProposalID == id {
			return p, true
		}
	}
	return types.EditProposal{}, false
}
