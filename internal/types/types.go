package types

// AnalyzeOptions carries the caller-facing toggles for an analysis run.
type AnalyzeOptions struct {
	AggressivePersonalMode bool `json:"aggressivePersonalMode"`
	JDKeywordListMode      bool `json:"jdKeywordListMode"`
	AdvancedATSMode        bool `json:"advancedAtsMode"`
}

// CategoryScore is one scored category with its maximum.
type CategoryScore struct {
	Score int `json:"score"`
	Max   int `json:"max"`
}

// ScoreBreakdown holds the per-category scores that sum to the total.
// PersonalAlignment is only populated when aggressive personal mode is on.
type ScoreBreakdown struct {
	KeywordCoverage   CategoryScore  `json:"keywordCoverage"`
	Sections          CategoryScore  `json:"sections"`
	Formatting        CategoryScore  `json:"formatting"`
	RoleAlignment     CategoryScore  `json:"roleAlignment"`
	Impact            CategoryScore  `json:"impact"`
	Placement         CategoryScore  `json:"placement"`
	PersonalAlignment *CategoryScore `json:"personalAlignment,omitempty"`
}

// ImpactSignals summarizes quantified-achievement evidence in the resume.
type ImpactSignals struct {
	QuantifiedMentions int `json:"quantifiedMentions"`
	ActionVerbs        int `json:"actionVerbs"`
}

// Insights is the explanatory companion to the numeric breakdown.
type Insights struct {
	ExtractedJobTitles []string      `json:"extractedJobTitles"`
	MatchedTitle       string        `json:"matchedTitle,omitempty"`
	TopMatchedKeywords []string      `json:"topMatchedKeywords"`
	TopMissingKeywords []string      `json:"topMissingKeywords"`
	PresentSections    []string      `json:"presentSections"`
	MissingSections    []string      `json:"missingSections"`
	FormattingNotes    []string      `json:"formattingNotes"`
	Impact             ImpactSignals `json:"impact"`
	KeywordPoolSize    int           `json:"keywordPoolSize"`
	JDInputModeUsed    string        `json:"jdInputModeUsed"`
}

// Suggestion is a prioritized, human-readable improvement hint.
type Suggestion struct {
	Priority string `json:"priority"` // "high", "medium", "low"
	Category string `json:"category"`
	Message  string `json:"message"`
}

// AnalysisResult is the full deterministic scoring output for one
// resume/job-description pair.
type AnalysisResult struct {
	Score       int            `json:"score"`
	ScoreBand   string         `json:"scoreBand"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
	Insights    Insights       `json:"insights"`
	Suggestions []Suggestion   `json:"suggestions"`
}

// ProposalOperation distinguishes the two edit shapes a proposal can take.
type ProposalOperation string

const (
	OpReplaceLine     ProposalOperation = "replace_line"
	OpInsertAfterLine ProposalOperation = "insert_after_line"
)

// Proposal sources.
const (
	SourceAI        = "ai"
	SourceHeuristic = "heuristic"
)

// EditProposal is a single reviewable edit. Line numbers are one-based,
// the first line of the draft being line 1. Replace proposals use
// LineNumber; insert proposals use AnchorLine and leave LineNumber
// at -1.
type EditProposal struct {
	ProposalID    string            `json:"proposalId"`
	Operation     ProposalOperation `json:"operation"`
	LineNumber    int               `json:"lineNumber"`
	AnchorLine    int               `json:"anchorLine"`
	Section       string            `json:"section,omitempty"`
	CandidateType string            `json:"candidateType,omitempty"`
	Before        string            `json:"before,omitempty"`
	After         string            `json:"after"`
	Reason        string            `json:"reason,omitempty"`
	AddedKeywords []string          `json:"addedKeywords,omitempty"`
	Source        string            `json:"source"`
	Selected      bool              `json:"selected"`
}

// ProposalSummary counts proposals by shape and origin.
type ProposalSummary struct {
	Total        int `json:"total"`
	Replacements int `json:"replacements"`
	Insertions   int `json:"insertions"`
	FromAI       int `json:"fromAi"`
	Heuristic    int `json:"heuristic"`
}

// OptimizeOutput is the result of the propose phase: a stored draft
// session plus the proposals awaiting selection.
type OptimizeOutput struct {
	DraftSessionID  string          `json:"draftSessionId"`
	BeforeAnalysis  AnalysisResult  `json:"beforeAnalysis"`
	Proposals       []EditProposal  `json:"proposals"`
	ProposalSummary ProposalSummary `json:"proposalSummary"`
	AIEnabled       bool            `json:"aiEnabled"`
	Notes           []string        `json:"notes,omitempty"`
}

// AppliedEdit records one replacement that landed on the draft.
type AppliedEdit struct {
	LineNumber int    `json:"lineNumber"`
	Type       string `json:"type"`
	Before     string `json:"before"`
	After      string `json:"after"`
	Reason     string `json:"reason,omitempty"`
}

// InsertedLine records one accepted insertion and where it landed.
type InsertedLine struct {
	AfterLine int      `json:"afterLine"`
	Text      string   `json:"text"`
	Keywords  []string `json:"keywords,omitempty"`
}

// SkippedEdit explains why a selected proposal was not applied.
type SkippedEdit struct {
	ProposalID string `json:"proposalId,omitempty"`
	LineNumber int    `json:"lineNumber"`
	Reason     string `json:"reason"`
}

// OptimizationDetail is the line-level account of an apply run.
type OptimizationDetail struct {
	OptimizedResumeDraft string         `json:"optimizedResumeDraft"`
	LineEdits            []AppliedEdit  `json:"lineEdits"`
	InsertedLines        []InsertedLine `json:"insertedLines"`
	SkippedEdits         []SkippedEdit  `json:"skippedEdits,omitempty"`
	Notes                []string       `json:"notes,omitempty"`
}

// ScoreComparison pairs the before and after analyses of a draft.
type ScoreComparison struct {
	BeforeScore int  `json:"beforeScore"`
	AfterScore  int  `json:"afterScore"`
	Delta       int  `json:"delta"`
	Improved    bool `json:"improved"`
}

// ApplyOutput is the result of applying a proposal selection to a draft.
type ApplyOutput struct {
	AfterAnalysis    AnalysisResult     `json:"afterAnalysis"`
	Comparison       ScoreComparison    `json:"comparison"`
	AppliedProposals []string           `json:"appliedProposals"`
	SkippedProposals []SkippedEdit      `json:"skippedProposals,omitempty"`
	Optimization     OptimizationDetail `json:"optimization"`
}
