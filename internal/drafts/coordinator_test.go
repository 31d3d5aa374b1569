package drafts

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumatch/internal/ai"
	"resumatch/internal/ats"
	"resumatch/internal/lines"
	"resumatch/internal/types"
)

const testResume = `Summary
Engineer building backend systems.

Experience
- Shipped the billing service rewrite
- Cut infrastructure spend through autoscaling

Skills
Go, PostgreSQL`

const testJD = `We are hiring a backend engineer.
Requirements: Go, PostgreSQL, Kubernetes, Docker, and experience with
distributed systems. You will design APIs and mentor junior engineers.`

// stubEditor is a scripted LineEditor for coordinator tests.
type stubEditor struct {
	outputs  []ai.LineEditsOutput
	errs     []error
	requests []ai.EditRequest
}

func (s *stubEditor) ProposeLineEdits(_ context.Context, req ai.EditRequest) (ai.LineEditsOutput, *ai.TokenUsage, error) {
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return ai.LineEditsOutput{}, nil, s.errs[i]
	}
	if i >= len(s.outputs) {
		i = len(s.outputs) - 1
	}
	return s.outputs[i], nil, nil
}

func (s *stubEditor) GetModelInfo(context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "stub", Available: true}
}

func (s *stubEditor) Close() error { return nil }

func newTestCoordinator(editor ai.LineEditor) (*Coordinator, *MemoryStore) {
	store, _ := newTestStore(30 * time.Minute)
	return NewCoordinator(editor, store, 8, nil), store
}

func TestProposeRejectsMissingInput(t *testing.T) {
	c, _ := newTestCoordinator(nil)

	_, err := c.Propose(context.Background(), ProposeRequest{ResumeText: testResume})
	assert.Error(t, err)

	_, err = c.Propose(context.Background(), ProposeRequest{JobDescription: testJD})
	assert.Error(t, err)
}

func TestProposeHeuristicOnly(t *testing.T) {
	c, store := newTestCoordinator(nil)

	out, err := c.Propose(context.Background(), ProposeRequest{
		JobDescription: testJD,
		ResumeText:     testResume,
	})
	require.NoError(t, err)

	assert.False(t, out.AIEnabled)
	assert.NotEmpty(t, out.Proposals)
	for _, p := range out.Proposals {
		assert.Equal(t, types.SourceHeuristic, p.Source)
		assert.Equal(t, types.OpInsertAfterLine, p.Operation)
		assert.True(t, p.Selected)
	}
	assert.Equal(t, out.ProposalSummary.Total, len(out.Proposals))
	assert.Equal(t, 0, out.ProposalSummary.FromAI)

	var hasNote bool
	for _, note := range out.Notes {
		if strings.Contains(note, "not configured") {
			hasNote = true
		}
	}
	assert.True(t, hasNote, "notes should record the missing editor")

	_, ok := store.Get(out.DraftSessionID)
	assert.True(t, ok, "session should be stored")
}

func TestProposeNormalizesAIEdits(t *testing.T) {
	editor := &stubEditor{outputs: []ai.LineEditsOutput{{
		Edits: []ai.LineEdit{
			{LineNumber: 2, NewText: "Engineer building backend systems.", Reason: "no-op"},
			{LineNumber: 5, NewText: "Shipped the billing service rewrite on Kubernetes", Reason: "keyword"},
			{LineNumber: 6, NewText: "   ", Reason: "empty"},
			{LineNumber: 99, NewText: "Not a candidate line", Reason: "bad line"},
		},
	}}}
	c, _ := newTestCoordinator(editor)

	out, err := c.Propose(context.Background(), ProposeRequest{
		JobDescription: testJD,
		ResumeText:     testResume,
	})
	require.NoError(t, err)
	require.Len(t, editor.requests, 1)

	assert.True(t, out.AIEnabled)

	var aiProps []types.EditProposal
	for _, p := range out.Proposals {
		if p.Source == types.SourceAI {
			aiProps = append(aiProps, p)
		}
	}
	require.Len(t, aiProps, 1, "no-op, empty and unknown-line edits are dropped")

	p := aiProps[0]
	assert.Equal(t, types.OpReplaceLine, p.Operation)
	assert.Equal(t, 5, p.LineNumber)
	assert.Equal(t, "- Shipped the billing service rewrite", p.Before)
	assert.Contains(t, p.AddedKeywords, "kubernetes")
	assert.True(t, p.Selected)
}

func TestProposeRetriesWhenUnderEdited(t *testing.T) {
	editor := &stubEditor{outputs: []ai.LineEditsOutput{
		{Edits: []ai.LineEdit{
			{LineNumber: 5, NewText: "Delivered the billing rewrite with Docker", Reason: "first"},
		}},
		{Edits: []ai.LineEdit{
			{LineNumber: 2, NewText: "Backend engineer with Go and Kubernetes experience.", Reason: "second"},
			{LineNumber: 5, NewText: "Delivered the billing rewrite with Docker", Reason: "second"},
		}},
	}}
	c, _ := newTestCoordinator(editor)

	out, err := c.Propose(context.Background(), ProposeRequest{
		JobDescription: testJD,
		ResumeText:     testResume,
	})
	require.NoError(t, err)

	require.Len(t, editor.requests, 2, "under-edited first attempt triggers one retry")
	assert.Empty(t, editor.requests[0].RetryHints)
	assert.Contains(t, editor.requests[1].RetryHints, "RETRY INSTRUCTIONS")

	var summaryEdited bool
	for _, p := range out.Proposals {
		if p.Source == types.SourceAI && p.LineNumber == 2 {
			summaryEdited = true
		}
	}
	assert.True(t, summaryEdited, "better second attempt should win")
}

func TestProposeEditorFailureFallsBack(t *testing.T) {
	editor := &stubEditor{
		outputs: []ai.LineEditsOutput{{}},
		errs:    []error{assert.AnError},
	}
	c, _ := newTestCoordinator(editor)

	out, err := c.Propose(context.Background(), ProposeRequest{
		JobDescription: testJD,
		ResumeText:     testResume,
	})
	require.NoError(t, err, "provider failure must not fail the call")

	assert.False(t, out.AIEnabled)
	assert.NotEmpty(t, out.Proposals, "heuristic proposals still produced")

	var hasNote bool
	for _, note := range out.Notes {
		if strings.Contains(note, "falling back") {
			hasNote = true
		}
	}
	assert.True(t, hasNote)
}

func TestApplyDefaultSelection(t *testing.T) {
	c, _ := newTestCoordinator(nil)

	out, err := c.Propose(context.Background(), ProposeRequest{
		JobDescription: testJD,
		ResumeText:     testResume,
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.Proposals)

	applied, err := c.Apply(context.Background(), ApplyRequest{SessionID: out.DraftSessionID})
	require.NoError(t, err)

	assert.Len(t, applied.AppliedProposals, len(out.Proposals))
	assert.Equal(t, out.BeforeAnalysis.Score, applied.Comparison.BeforeScore)
	assert.Equal(t, applied.AfterAnalysis.Score, applied.Comparison.AfterScore)
	assert.Equal(t, applied.Comparison.AfterScore-applied.Comparison.BeforeScore, applied.Comparison.Delta)

	wantLines := len(strings.Split(testResume, "\n")) + len(applied.Optimization.InsertedLines)
	gotLines := len(strings.Split(applied.Optimization.OptimizedResumeDraft, "\n"))
	assert.Equal(t, wantLines, gotLines)
}

func TestApplyEmptySelectionIsNoOp(t *testing.T) {
	c, _ := newTestCoordinator(nil)

	out, err := c.Propose(context.Background(), ProposeRequest{
		JobDescription: testJD,
		ResumeText:     testResume,
	})
	require.NoError(t, err)

	applied, err := c.Apply(context.Background(), ApplyRequest{
		SessionID:           out.DraftSessionID,
		SelectedProposalIDs: []string{"does-not-exist"},
	})
	require.NoError(t, err)

	assert.Empty(t, applied.AppliedProposals)
	require.Len(t, applied.SkippedProposals, 1)
	assert.Equal(t, SkipUnknownProposal, applied.SkippedProposals[0].Reason)
	assert.Equal(t, 0, applied.Comparison.Delta)
	assert.False(t, applied.Comparison.Improved)
	assert.Equal(t, testResume, applied.Optimization.OptimizedResumeDraft)
}

func TestApplySessionNotFound(t *testing.T) {
	c, _ := newTestCoordinator(nil)
	_, err := c.Apply(context.Background(), ApplyRequest{SessionID: "missing"})
	assert.Error(t, err)
}

// storedSession plants a handcrafted session for apply tests.
func storedSession(store *MemoryStore, mode ContentMode, props []types.EditProposal) *Session {
	doc := lines.Classify(testResume)
	session := &Session{
		ID:             "session-1",
		CreatedAt:      time.Now(),
		ContentMode:    mode,
		JobDescription: testJD,
		Lines:          doc.Lines,
		Candidates:     doc.Candidates,
		Before:         ats.Analyze(testJD, testResume, types.AnalyzeOptions{}),
		Proposals:      props,
	}
	store.Put(session)
	return session
}

func TestApplyLineConflictFirstWins(t *testing.T) {
	c, store := newTestCoordinator(nil)
	storedSession(store, ModeText, []types.EditProposal{
		{ProposalID: "bbb", Operation: types.OpReplaceLine, LineNumber: 5,
			After: "Containerized the billing service", Selected: true},
		{ProposalID: "aaa", Operation: types.OpReplaceLine, LineNumber: 5,
			After: "Migrated the billing service to Kubernetes", Selected: true},
	})

	applied, err := c.Apply(context.Background(), ApplyRequest{SessionID: "session-1"})
	require.NoError(t, err)

	require.Len(t, applied.AppliedProposals, 1)
	assert.Equal(t, "aaa", applied.AppliedProposals[0], "lowest id wins on the same line")

	require.Len(t, applied.SkippedProposals, 1)
	assert.Equal(t, "bbb", applied.SkippedProposals[0].ProposalID)
	assert.Equal(t, SkipLineConflict, applied.SkippedProposals[0].Reason)
}

func TestApplyInsertionOffsets(t *testing.T) {
	c, store := newTestCoordinator(nil)
	storedSession(store, ModeText, []types.EditProposal{
		{ProposalID: "ins-a", Operation: types.OpInsertAfterLine, LineNumber: -1, AnchorLine: 5,
			After: "- Added Kubernetes deployment automation", Selected: true},
		{ProposalID: "ins-b", Operation: types.OpInsertAfterLine, LineNumber: -1, AnchorLine: 6,
			After: "- Introduced Docker build pipelines", Selected: true},
	})

	applied, err := c.Apply(context.Background(), ApplyRequest{SessionID: "session-1"})
	require.NoError(t, err)

	got := strings.Split(applied.Optimization.OptimizedResumeDraft, "\n")
	require.Len(t, got, len(strings.Split(testResume, "\n"))+2)
	assert.Equal(t, "- Added Kubernetes deployment automation", got[5])
	assert.Equal(t, "- Introduced Docker build pipelines", got[7], "second insertion shifts by the running offset")
}

func TestApplyEmptyInsertionSkipped(t *testing.T) {
	c, store := newTestCoordinator(nil)
	storedSession(store, ModeText, []types.EditProposal{
		{ProposalID: "ins-a", Operation: types.OpInsertAfterLine, LineNumber: -1, AnchorLine: 5,
			After: "   ", Selected: true},
	})

	applied, err := c.Apply(context.Background(), ApplyRequest{SessionID: "session-1"})
	require.NoError(t, err)

	assert.Empty(t, applied.AppliedProposals)
	require.Len(t, applied.SkippedProposals, 1)
	assert.Equal(t, SkipEmptyInsertion, applied.SkippedProposals[0].Reason)
}

func TestApplyFileModeMergesIntoBullet(t *testing.T) {
	c, store := newTestCoordinator(nil)
	storedSession(store, ModeFile, []types.EditProposal{
		{ProposalID: "ins-a", Operation: types.OpInsertAfterLine, LineNumber: -1, AnchorLine: 5,
			After: "- Added Kubernetes deployment automation", Selected: true},
	})

	applied, err := c.Apply(context.Background(), ApplyRequest{SessionID: "session-1"})
	require.NoError(t, err)

	got := strings.Split(applied.Optimization.OptimizedResumeDraft, "\n")
	assert.Len(t, got, len(strings.Split(testResume, "\n")), "file mode keeps the line count")
	assert.Equal(t, "- Shipped the billing service rewrite; Added Kubernetes deployment automation", got[4])

	require.Len(t, applied.Optimization.LineEdits, 1)
	assert.Equal(t, "semicolon_merge", applied.Optimization.LineEdits[0].Type)
	assert.Empty(t, applied.Optimization.InsertedLines)
}

func TestApplyFileModeNonBulletAnchor(t *testing.T) {
	c, store := newTestCoordinator(nil)
	props := []types.EditProposal{
		{ProposalID: "ins-a", Operation: types.OpInsertAfterLine, LineNumber: -1, AnchorLine: 2,
			After: "Mentored junior engineers across two teams", Selected: true},
	}
	storedSession(store, ModeFile, props)

	applied, err := c.Apply(context.Background(), ApplyRequest{SessionID: "session-1"})
	require.NoError(t, err)
	require.Len(t, applied.SkippedProposals, 1)
	assert.Equal(t, SkipFileInsertion, applied.SkippedProposals[0].Reason)

	applied, err = c.Apply(context.Background(), ApplyRequest{
		SessionID:         "session-1",
		AggressiveContent: true,
	})
	require.NoError(t, err)
	assert.Len(t, applied.AppliedProposals, 1, "aggressive mode allows new paragraphs")
	require.Len(t, applied.Optimization.InsertedLines, 1)
}

func TestApplyIsRepeatable(t *testing.T) {
	c, store := newTestCoordinator(nil)
	storedSession(store, ModeText, []types.EditProposal{
		{ProposalID: "rep-a", Operation: types.OpReplaceLine, LineNumber: 5,
			After: "Migrated billing workloads to Kubernetes", Selected: true},
		{ProposalID: "ins-a", Operation: types.OpInsertAfterLine, LineNumber: -1, AnchorLine: 6,
			After: "- Introduced Docker build pipelines", Selected: true},
	})

	first, err := c.Apply(context.Background(), ApplyRequest{
		SessionID:           "session-1",
		SelectedProposalIDs: []string{"rep-a"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"rep-a"}, first.AppliedProposals)

	second, err := c.Apply(context.Background(), ApplyRequest{
		SessionID:           "session-1",
		SelectedProposalIDs: []string{"ins-a"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ins-a"}, second.AppliedProposals)
	assert.NotContains(t, second.Optimization.OptimizedResumeDraft, "Migrated billing workloads",
		"each apply starts from the pristine snapshot")
}
