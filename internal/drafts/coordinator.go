package drafts

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"resumatch/internal/ai"
	"resumatch/internal/ats"
	"resumatch/internal/edits"
	apperrors "resumatch/internal/errors"
	"resumatch/internal/keywords"
	"resumatch/internal/lines"
	"resumatch/internal/proposals"
	"resumatch/internal/textutil"
	"resumatch/internal/types"
)

// Skip reasons recorded by the apply phase on top of the applier's own.
const (
	SkipUnknownProposal = "unknown_proposal"
	SkipLineConflict    = "line_conflict"
	SkipFileInsertion   = "file_mode_insertion_unsupported"
	SkipEmptyInsertion  = "empty_insertion"
)

// fileMergeMaxLen caps a semicolon-merged bullet in file mode.
const fileMergeMaxLen = 320

// Coordinator runs the propose and apply phases against a session
// store. The editor may be nil: proposals then come from the heuristic
// generator alone and the output notes say so.
type Coordinator struct {
	editor       ai.LineEditor
	store        Store
	maxProposals int
	logger       *apperrors.Logger
}

// NewCoordinator wires a coordinator. maxProposals caps heuristic
// insertions per draft.
func NewCoordinator(editor ai.LineEditor, store Store, maxProposals int, logger *apperrors.Logger) *Coordinator {
	if maxProposals <= 0 {
		maxProposals = proposals.DefaultMaxProposals
	}
	return &Coordinator{
		editor:       editor,
		store:        store,
		maxProposals: maxProposals,
		logger:       logger,
	}
}

// ProposeRequest is one optimize call.
type ProposeRequest struct {
	JobDescription string
	ResumeText     string
	ContentMode    ContentMode
	Options        types.AnalyzeOptions
}

// ApplyRequest is one apply call against a stored draft. An empty
// selection means every still-selected proposal.
type ApplyRequest struct {
	SessionID           string
	SelectedProposalIDs []string

	// AggressiveContent lets file-mode sessions emit true new
	// paragraphs instead of only merging into existing bullets.
	AggressiveContent bool
}

// Propose scores the resume, gathers proposals and stores a new draft
// session. Provider failure is not fatal: the draft degrades to
// heuristic-only proposals with the failure recorded in the notes.
func (c *Coordinator) Propose(ctx context.Context, req ProposeRequest) (types.OptimizeOutput, error) {
	if strings.TrimSpace(req.JobDescription) == "" {
		return types.OptimizeOutput{}, apperrors.NewValidationError(apperrors.ErrCodeInvalidRequest,
			"Job description is required", nil)
	}
	if strings.TrimSpace(req.ResumeText) == "" {
		return types.OptimizeOutput{}, apperrors.NewValidationError(apperrors.ErrCodeInvalidRequest,
			"Resume text is required", nil)
	}
	mode := req.ContentMode
	if mode == "" {
		mode = ModeText
	}

	before := ats.Analyze(req.JobDescription, req.ResumeText, req.Options)
	doc := lines.Classify(req.ResumeText)

	var notes []string
	var aiProposals []types.EditProposal
	aiUsed := false

	switch {
	case c.editor == nil:
		notes = append(notes, "AI line editor not configured; proposals are heuristic only")
	case len(doc.Candidates) == 0:
		notes = append(notes, "no editable lines found; skipping AI line editor")
	default:
		output, ok := c.collectAIEdits(ctx, req, before, doc)
		if ok {
			aiUsed = true
			aiProposals = c.normalizeAIEdits(output, doc, before.Insights.TopMissingKeywords)
			notes = append(notes, output.CautionNotes...)
		} else {
			notes = append(notes, "AI line editor failed; falling back to heuristic proposals")
		}
	}

	heuristic := proposals.Generate(doc, before.Insights.TopMissingKeywords, c.maxProposals)
	merged := mergeProposals(aiProposals, heuristic)

	session := &Session{
		ID:             uuid.NewString(),
		CreatedAt:      time.Now(),
		ContentMode:    mode,
		JobDescription: req.JobDescription,
		Options:        req.Options,
		Lines:          doc.Lines,
		Candidates:     doc.Candidates,
		Before:         before,
		Proposals:      merged,
	}
	c.store.Put(session)

	if c.logger != nil {
		c.logger.Debug("Draft session created",
			"session_id", session.ID,
			"proposals", len(merged),
			"ai_used", aiUsed,
			"score", before.Score)
	}

	return types.OptimizeOutput{
		DraftSessionID:  session.ID,
		BeforeAnalysis:  before,
		Proposals:       merged,
		ProposalSummary: summarize(merged),
		AIEnabled:       aiUsed,
		Notes:           notes,
	}, nil
}

// collectAIEdits runs the line editor, retrying once with explicit
// targets when the first attempt under-edits the summary or experience
// sections. The better of the two attempts wins.
func (c *Coordinator) collectAIEdits(ctx context.Context, req ProposeRequest, before types.AnalysisResult, doc lines.Document) (ai.LineEditsOutput, bool) {
	editReq := ai.EditRequest{
		JobDescription:  req.JobDescription,
		ResumeText:      req.ResumeText,
		Score:           before.Score,
		MissingKeywords: before.Insights.TopMissingKeywords,
		MatchedKeywords: before.Insights.TopMatchedKeywords,
		Candidates:      doc.Candidates,
	}

	first, _, err := c.editor.ProposeLineEdits(ctx, editReq)
	if err != nil {
		if c.logger != nil {
			c.logger.LogError(err, "AI line editor call failed")
		}
		return ai.LineEditsOutput{}, false
	}

	byLine := doc.ByLine()
	stats := CountEdits(first.Edits, byLine)
	summaryTarget, experienceTarget := RetryTargets(doc.Candidates)
	if !NeedsRetry(stats, summaryTarget, experienceTarget) {
		return first, true
	}

	editReq.RetryHints = fmt.Sprintf(ai.RetryInstructions,
		joinLineNumbers(doc.CandidatesOfType(lines.TypeSummaryLine)),
		joinLineNumbers(doc.CandidatesOfType(lines.TypeExperienceBullet, lines.TypeExperienceLine)))

	second, _, err := c.editor.ProposeLineEdits(ctx, editReq)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("AI retry attempt failed; keeping first attempt", "error", err.Error())
		}
		return first, true
	}
	if Better(CountEdits(second.Edits, byLine), stats) {
		return second, true
	}
	return first, true
}

// normalizeAIEdits turns provider edits into replacement proposals.
// Edits on unknown lines, empty rewrites and no-ops are dropped, never
// fatal. One proposal per line; the provider's first edit wins.
func (c *Coordinator) normalizeAIEdits(output ai.LineEditsOutput, doc lines.Document, missing []string) []types.EditProposal {
	byLine := doc.ByLine()
	seen := make(map[int]struct{})
	var out []types.EditProposal

	for _, edit := range output.Edits {
		candidate, ok := byLine[edit.LineNumber]
		if !ok {
			continue
		}
		if _, dup := seen[edit.LineNumber]; dup {
			continue
		}
		after := strings.TrimSpace(edit.NewText)
		if after == "" {
			continue
		}
		if textutil.CanonicalLine(after) == textutil.CanonicalLine(candidate.OriginalText) {
			continue
		}
		seen[edit.LineNumber] = struct{}{}

		out = append(out, types.EditProposal{
			ProposalID:    proposals.ID(types.OpReplaceLine, edit.LineNumber, after),
			Operation:     types.OpReplaceLine,
			LineNumber:    edit.LineNumber,
			AnchorLine:    edit.LineNumber,
			Section:       candidate.Section,
			CandidateType: string(candidate.Type),
			Before:        candidate.OriginalText,
			After:         after,
			Reason:        edit.Reason,
			AddedKeywords: addedKeywords(candidate.OriginalText, after, missing),
			Source:        types.SourceAI,
			Selected:      true,
		})
	}
	return out
}

// addedKeywords lists missing keywords the rewrite introduces.
func addedKeywords(before, after string, missing []string) []string {
	var added []string
	for _, term := range missing {
		if keywords.MatchesTerm(after, term) && !keywords.MatchesTerm(before, term) {
			added = append(added, term)
		}
	}
	return added
}

// mergeProposals deduplicates by (operation, target line, normalized
// after-text). AI proposals come first so they win ties.
func mergeProposals(groups ...[]types.EditProposal) []types.EditProposal {
	seen := make(map[string]struct{})
	var out []types.EditProposal
	for _, group := range groups {
		for _, p := range group {
			line := p.LineNumber
			if p.Operation == types.OpInsertAfterLine {
				line = p.AnchorLine
			}
			key := fmt.Sprintf("%s|%d|%s", p.Operation, line, textutil.CanonicalLine(p.After))
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func summarize(items []types.EditProposal) types.ProposalSummary {
	summary := types.ProposalSummary{Total: len(items)}
	for _, p := range items {
		if p.Operation == types.OpReplaceLine {
			summary.Replacements++
		} else {
			summary.Insertions++
		}
		if p.Source == types.SourceAI {
			summary.FromAI++
		} else {
			summary.Heuristic++
		}
	}
	return summary
}

// Apply replays a proposal selection against the session's pristine
// snapshot, splices accepted insertions and re-scores the result. The
// session itself is never mutated, so a later apply with a different
// selection starts from the same baseline.
func (c *Coordinator) Apply(ctx context.Context, req ApplyRequest) (types.ApplyOutput, error) {
	session, ok := c.store.Get(req.SessionID)
	if !ok {
		return types.ApplyOutput{}, apperrors.NewValidationError(apperrors.ErrCodeSessionNotFound,
			"Draft session not found or expired", nil)
	}
	session.lock()
	defer session.unlock()

	selected, skipped := c.selectProposals(session, req.SelectedProposalIDs)

	replacements, insertions := partition(selected)
	sortProposals(replacements, func(p types.EditProposal) int { return p.LineNumber })
	sortProposals(insertions, func(p types.EditProposal) int { return p.AnchorLine })

	// One replacement per line: the first proposal in stable order
	// wins, later ones become skip records.
	var batch []edits.Edit
	lineOwner := make(map[int]string)
	for _, p := range replacements {
		if _, taken := lineOwner[p.LineNumber]; taken {
			skipped = append(skipped, types.SkippedEdit{
				ProposalID: p.ProposalID,
				LineNumber: p.LineNumber,
				Reason:     SkipLineConflict,
			})
			continue
		}
		lineOwner[p.LineNumber] = p.ProposalID
		batch = append(batch, edits.Edit{
			LineNumber: p.LineNumber,
			NewText:    p.After,
			Reason:     p.Reason,
		})
	}

	result := edits.Apply(session.document(), batch)

	var appliedIDs []string
	for _, applied := range result.Applied {
		appliedIDs = append(appliedIDs, lineOwner[applied.LineNumber])
	}
	for i := range result.Skipped {
		result.Skipped[i].ProposalID = lineOwner[result.Skipped[i].LineNumber]
	}
	skipped = append(skipped, result.Skipped...)

	lineEdits := result.Applied
	resultLines := result.Lines
	var inserted []types.InsertedLine

	resultLines, inserted, lineEdits, appliedIDs, skipped = c.applyInsertions(
		session, req, insertions, resultLines, inserted, lineEdits, appliedIDs, skipped)

	optimized := strings.Join(resultLines, "\n")
	after := ats.Analyze(session.JobDescription, optimized, session.Options)

	var notes []string
	if len(inserted) > 0 {
		notes = append(notes, "inserted lines may contain generated metric estimates; verify them before sending")
	}

	comparison := types.ScoreComparison{
		BeforeScore: session.Before.Score,
		AfterScore:  after.Score,
		Delta:       after.Score - session.Before.Score,
		Improved:    after.Score > session.Before.Score,
	}

	if c.logger != nil {
		c.logger.Debug("Draft applied",
			"session_id", session.ID,
			"applied", len(appliedIDs),
			"skipped", len(skipped),
			"delta", comparison.Delta)
	}

	return types.ApplyOutput{
		AfterAnalysis:    after,
		Comparison:       comparison,
		AppliedProposals: appliedIDs,
		SkippedProposals: skipped,
		Optimization: types.OptimizationDetail{
			OptimizedResumeDraft: optimized,
			LineEdits:            lineEdits,
			InsertedLines:        inserted,
			SkippedEdits:         skipped,
			Notes:                notes,
		},
	}, nil
}

// selectProposals resolves the caller's selection. Unknown ids become
// skip records; an empty selection means every still-selected
// proposal.
func (c *Coordinator) selectProposals(session *Session, ids []string) ([]types.EditProposal, []types.SkippedEdit) {
	var selected []types.EditProposal
	var skipped []types.SkippedEdit

	if len(ids) == 0 {
		for _, p := range session.Proposals {
			if p.Selected {
				selected = append(selected, p)
			}
		}
		return selected, nil
	}

	for _, id := range ids {
		p, ok := session.proposalByID(id)
		if !ok {
			skipped = append(skipped, types.SkippedEdit{
				ProposalID: id,
				LineNumber: -1,
				Reason:     SkipUnknownProposal,
			})
			continue
		}
		selected = append(selected, p)
	}
	return selected, skipped
}

// applyInsertions splices or merges accepted insertion proposals.
// Text-mode sessions get true new lines at anchor+1 with a running
// offset; file-mode sessions merge into the anchor bullet when the
// result stays short enough, emit new paragraphs only in aggressive
// mode, and skip otherwise.
func (c *Coordinator) applyInsertions(
	session *Session,
	req ApplyRequest,
	insertions []types.EditProposal,
	resultLines []string,
	inserted []types.InsertedLine,
	lineEdits []types.AppliedEdit,
	appliedIDs []string,
	skipped []types.SkippedEdit,
) ([]string, []types.InsertedLine, []types.AppliedEdit, []string, []types.SkippedEdit) {
	offset := 0
	for _, p := range insertions {
		text := strings.TrimRight(p.After, " \t")
		if strings.TrimSpace(text) == "" {
			skipped = append(skipped, types.SkippedEdit{
				ProposalID: p.ProposalID,
				LineNumber: p.AnchorLine,
				Reason:     SkipEmptyInsertion,
			})
			continue
		}

		if session.ContentMode == ModeFile {
			anchorIdx := p.AnchorLine - 1 + offset
			if anchorIdx >= 0 && anchorIdx < len(resultLines) && lines.IsBullet(resultLines[anchorIdx]) {
				clause := strings.TrimSpace(textutil.StripBulletPrefix(text))
				merged := strings.TrimRight(resultLines[anchorIdx], " \t") + "; " + clause
				if len(merged) <= fileMergeMaxLen {
					before := resultLines[anchorIdx]
					resultLines[anchorIdx] = merged
					lineEdits = append(lineEdits, types.AppliedEdit{
						LineNumber: p.AnchorLine,
						Type:       "semicolon_merge",
						Before:     before,
						After:      merged,
						Reason:     p.Reason,
					})
					appliedIDs = append(appliedIDs, p.ProposalID)
					continue
				}
			}
			if !req.AggressiveContent {
				skipped = append(skipped, types.SkippedEdit{
					ProposalID: p.ProposalID,
					LineNumber: p.AnchorLine,
					Reason:     SkipFileInsertion,
				})
				continue
			}
		}

		pos := p.AnchorLine + offset
		if pos < 0 {
			pos = 0
		}
		if pos > len(resultLines) {
			pos = len(resultLines)
		}
		resultLines = append(resultLines[:pos], append([]string{text}, resultLines[pos:]...)...)
		offset++
		inserted = append(inserted, types.InsertedLine{
			AfterLine: p.AnchorLine,
			Text:      text,
			Keywords:  p.AddedKeywords,
		})
		appliedIDs = append(appliedIDs, p.ProposalID)
	}
	return resultLines, inserted, lineEdits, appliedIDs, skipped
}

func partition(selected []types.EditProposal) (replacements, insertions []types.EditProposal) {
	for _, p := range selected {
		if p.Operation == types.OpReplaceLine {
			replacements = append(replacements, p)
		} else {
			insertions = append(insertions, p)
		}
	}
	return replacements, insertions
}

// sortProposals orders proposals by target line, then proposal id, so
// apply is deterministic for any selection order.
func sortProposals(items []types.EditProposal, line func(types.EditProposal) int) {
	sort.SliceStable(items, func(i, j int) bool {
		if line(items[i]) != line(items[j]) {
			return line(items[i]) < line(items[j])
		}
		return items[i].ProposalID < items[j].ProposalID
	})
}

func joinLineNumbers(candidates []lines.Candidate) string {
	if len(candidates) == 0 {
		return "none"
	}
	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = strconv.Itoa(c.LineNumber)
	}
	return strings.Join(parts, ", ")
}
