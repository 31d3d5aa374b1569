package ai

import (
	"context"

	"resumatch/internal/lines"
)

// EditRequest carries everything a provider needs to propose
// line-preserving rewrites: the documents, the current score, the
// keyword gap and the only lines it may touch.
type EditRequest struct {
	JobDescription  string
	ResumeText      string
	Score           int
	MissingKeywords []string
	MatchedKeywords []string
	Candidates      []lines.Candidate

	// RetryHints, when set, is appended to the user prompt. The
	// coordinator fills it on a retry after an under-edited first
	// attempt.
	RetryHints string
}

// LineEdit is one rewrite returned by a provider. LineNumber is the
// one-based number of a candidate line.
type LineEdit struct {
	LineNumber int    `json:"lineNumber"`
	NewText    string `json:"newText"`
	Reason     string `json:"reason"`
}

// LineEditsOutput is the structured provider response.
type LineEditsOutput struct {
	Edits        []LineEdit `json:"edits"`
	Changes      []string   `json:"changes"`
	CautionNotes []string   `json:"cautionNotes"`
}

// LineEditor is implemented by AI providers that can rewrite editable
// resume lines. All methods return token usage where the provider
// reports it; callers may ignore it.
type LineEditor interface {
	ProposeLineEdits(ctx context.Context, req EditRequest) (LineEditsOutput, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}
