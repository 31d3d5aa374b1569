// Package formatters renders analysis, optimize and apply results as
// json, text or markdown for the CLI and file output.
package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"resumatch/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "AnalysisResult", &AnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", "AnalysisResult", &AnalysisMarkdownFormatter{})
	registry.RegisterFormatter("text", "OptimizeOutput", &OptimizeTextFormatter{})
	registry.RegisterFormatter("markdown", "OptimizeOutput", &OptimizeMarkdownFormatter{})
	registry.RegisterFormatter("text", "ApplyOutput", &ApplyTextFormatter{})
	registry.RegisterFormatter("markdown", "ApplyOutput", &ApplyMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisResult:
		return "AnalysisResult"
	case types.OptimizeOutput:
		return "OptimizeOutput"
	case types.ApplyOutput:
		return "ApplyOutput"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

func writeCategory(out *strings.Builder, name string, c types.CategoryScore) {
	fmt.Fprintf(out, "  %-18s %d/%d\n", name+":", c.Score, c.Max)
}

func writeAnalysisBody(out *strings.Builder, result types.AnalysisResult) {
	out.WriteString("Breakdown:\n")
	writeCategory(out, "Keywords", result.Breakdown.KeywordCoverage)
	writeCategory(out, "Sections", result.Breakdown.Sections)
	writeCategory(out, "Formatting", result.Breakdown.Formatting)
	writeCategory(out, "Role alignment", result.Breakdown.RoleAlignment)
	writeCategory(out, "Impact", result.Breakdown.Impact)
	writeCategory(out, "Placement", result.Breakdown.Placement)
	if result.Breakdown.PersonalAlignment != nil {
		writeCategory(out, "Personal", *result.Breakdown.PersonalAlignment)
	}
	out.WriteString("\n")

	if len(result.Insights.TopMatchedKeywords) > 0 {
		out.WriteString("Matched keywords: ")
		out.WriteString(strings.Join(result.Insights.TopMatchedKeywords, ", "))
		out.WriteString("\n")
	}
	if len(result.Insights.TopMissingKeywords) > 0 {
		out.WriteString("Missing keywords: ")
		out.WriteString(strings.Join(result.Insights.TopMissingKeywords, ", "))
		out.WriteString("\n")
	}
	if len(result.Insights.MissingSections) > 0 {
		out.WriteString("Missing sections: ")
		out.WriteString(strings.Join(result.Insights.MissingSections, ", "))
		out.WriteString("\n")
	}
	if result.Insights.MatchedTitle != "" {
		fmt.Fprintf(out, "Matched job title: %s\n", result.Insights.MatchedTitle)
	}
	for _, note := range result.Insights.FormattingNotes {
		fmt.Fprintf(out, "Formatting: %s\n", note)
	}
}

// AnalysisTextFormatter handles text formatting for analysis results
type AnalysisTextFormatter struct{}

func (atf *AnalysisTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== ATS ANALYSIS ===\n\n")
	fmt.Fprintf(&output, "Score: %d/100 (%s)\n\n", result.Score, result.ScoreBand)
	writeAnalysisBody(&output, result)

	if len(result.Suggestions) > 0 {
		output.WriteString("\n=== SUGGESTIONS ===\n")
		for i, s := range result.Suggestions {
			fmt.Fprintf(&output, "%d. [%s/%s] %s\n", i+1, s.Priority, s.Category, s.Message)
		}
	}

	return output.String(), nil
}

func (atf *AnalysisTextFormatter) SupportedType() string {
	return "AnalysisResult"
}

// AnalysisMarkdownFormatter handles markdown formatting for analysis results
type AnalysisMarkdownFormatter struct{}

func (amf *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# ATS Analysis\n\n")
	fmt.Fprintf(&output, "**Score:** %d/100 (%s)\n\n", result.Score, result.ScoreBand)

	output.WriteString("## Breakdown\n\n")
	output.WriteString("| Category | Score | Max |\n|---|---|---|\n")
	rows := []struct {
		name string
		c    types.CategoryScore
	}{
		{"Keywords", result.Breakdown.KeywordCoverage},
		{"Sections", result.Breakdown.Sections},
		{"Formatting", result.Breakdown.Formatting},
		{"Role alignment", result.Breakdown.RoleAlignment},
		{"Impact", result.Breakdown.Impact},
		{"Placement", result.Breakdown.Placement},
	}
	if result.Breakdown.PersonalAlignment != nil {
		rows = append(rows, struct {
			name string
			c    types.CategoryScore
		}{"Personal", *result.Breakdown.PersonalAlignment})
	}
	for _, row := range rows {
		fmt.Fprintf(&output, "| %s | %d | %d |\n", row.name, row.c.Score, row.c.Max)
	}
	output.WriteString("\n")

	output.WriteString("## Insights\n\n")
	if len(result.Insights.TopMatchedKeywords) > 0 {
		fmt.Fprintf(&output, "**Matched keywords:** %s\n\n", strings.Join(result.Insights.TopMatchedKeywords, ", "))
	}
	if len(result.Insights.TopMissingKeywords) > 0 {
		fmt.Fprintf(&output, "**Missing keywords:** %s\n\n", strings.Join(result.Insights.TopMissingKeywords, ", "))
	}
	if len(result.Insights.MissingSections) > 0 {
		fmt.Fprintf(&output, "**Missing sections:** %s\n\n", strings.Join(result.Insights.MissingSections, ", "))
	}
	if result.Insights.MatchedTitle != "" {
		fmt.Fprintf(&output, "**Matched job title:** %s\n\n", result.Insights.MatchedTitle)
	}
	for _, note := range result.Insights.FormattingNotes {
		fmt.Fprintf(&output, "- %s\n", note)
	}

	if len(result.Suggestions) > 0 {
		output.WriteString("\n## Suggestions\n\n")
		for i, s := range result.Suggestions {
			fmt.Fprintf(&output, "%d. **%s** (%s): %s\n", i+1, s.Priority, s.Category, s.Message)
		}
	}

	return output.String(), nil
}

func (amf *AnalysisMarkdownFormatter) SupportedType() string {
	return "AnalysisResult"
}

func proposalLabel(p types.EditProposal) string {
	origin := p.Source
	if origin == "" {
		origin = types.SourceHeuristic
	}
	if p.Operation == types.OpReplaceLine {
		return fmt.Sprintf("replace line %d (%s, %s)", p.LineNumber, p.CandidateType, origin)
	}
	return fmt.Sprintf("insert after line %d (%s, %s)", p.AnchorLine, p.Section, origin)
}

// OptimizeTextFormatter handles text formatting for optimize results
type OptimizeTextFormatter struct{}

func (otf *OptimizeTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.OptimizeOutput)
	if !ok {
		return "", fmt.Errorf("expected OptimizeOutput, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== OPTIMIZATION PROPOSALS ===\n\n")
	fmt.Fprintf(&output, "Draft session: %s\n", result.DraftSessionID)
	fmt.Fprintf(&output, "Current score: %d/100 (%s)\n", result.BeforeAnalysis.Score, result.BeforeAnalysis.ScoreBand)
	fmt.Fprintf(&output, "Proposals: %d (%d replacements, %d insertions; %d from AI)\n\n",
		result.ProposalSummary.Total,
		result.ProposalSummary.Replacements,
		result.ProposalSummary.Insertions,
		result.ProposalSummary.FromAI)

	for i, p := range result.Proposals {
		fmt.Fprintf(&output, "%d. [%s] %s\n", i+1, p.ProposalID, proposalLabel(p))
		if p.Operation == types.OpReplaceLine {
			fmt.Fprintf(&output, "   before: %s\n", p.Before)
		}
		fmt.Fprintf(&output, "   after:  %s\n", p.After)
		if len(p.AddedKeywords) > 0 {
			fmt.Fprintf(&output, "   keywords: %s\n", strings.Join(p.AddedKeywords, ", "))
		}
		if p.Reason != "" {
			fmt.Fprintf(&output, "   reason: %s\n", p.Reason)
		}
		output.WriteString("\n")
	}

	for _, note := range result.Notes {
		fmt.Fprintf(&output, "Note: %s\n", note)
	}

	return output.String(), nil
}

func (otf *OptimizeTextFormatter) SupportedType() string {
	return "OptimizeOutput"
}

// OptimizeMarkdownFormatter handles markdown formatting for optimize results
type OptimizeMarkdownFormatter struct{}

func (omf *OptimizeMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.OptimizeOutput)
	if !ok {
		return "", fmt.Errorf("expected OptimizeOutput, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Optimization Proposals\n\n")
	fmt.Fprintf(&output, "**Draft session:** `%s`\n\n", result.DraftSessionID)
	fmt.Fprintf(&output, "**Current score:** %d/100 (%s)\n\n", result.BeforeAnalysis.Score, result.BeforeAnalysis.ScoreBand)
	fmt.Fprintf(&output, "**Proposals:** %d (%d replacements, %d insertions; %d from AI)\n\n",
		result.ProposalSummary.Total,
		result.ProposalSummary.Replacements,
		result.ProposalSummary.Insertions,
		result.ProposalSummary.FromAI)

	for i, p := range result.Proposals {
		fmt.Fprintf(&output, "## %d. %s\n\n", i+1, proposalLabel(p))
		fmt.Fprintf(&output, "**ID:** `%s`\n\n", p.ProposalID)
		if p.Operation == types.OpReplaceLine {
			fmt.Fprintf(&output, "**Before:** %s\n\n", p.Before)
		}
		fmt.Fprintf(&output, "**After:** %s\n\n", p.After)
		if len(p.AddedKeywords) > 0 {
			fmt.Fprintf(&output, "**Keywords:** %s\n\n", strings.Join(p.AddedKeywords, ", "))
		}
		if p.Reason != "" {
			fmt.Fprintf(&output, "**Reason:** %s\n\n", p.Reason)
		}
	}

	if len(result.Notes) > 0 {
		output.WriteString("## Notes\n\n")
		for _, note := range result.Notes {
			fmt.Fprintf(&output, "- %s\n", note)
		}
	}

	return output.String(), nil
}

func (omf *OptimizeMarkdownFormatter) SupportedType() string {
	return "OptimizeOutput"
}

// ApplyTextFormatter handles text formatting for apply results
type ApplyTextFormatter struct{}

func (apf *ApplyTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ApplyOutput)
	if !ok {
		return "", fmt.Errorf("expected ApplyOutput, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== APPLIED PROPOSALS ===\n\n")
	fmt.Fprintf(&output, "Score: %d -> %d (%+d)\n", result.Comparison.BeforeScore, result.Comparison.AfterScore, result.Comparison.Delta)
	fmt.Fprintf(&output, "Applied: %d, skipped: %d\n\n", len(result.AppliedProposals), len(result.SkippedProposals))

	for _, edit := range result.Optimization.LineEdits {
		fmt.Fprintf(&output, "line %d (%s):\n", edit.LineNumber, edit.Type)
		fmt.Fprintf(&output, "  - %s\n", edit.Before)
		fmt.Fprintf(&output, "  + %s\n", edit.After)
	}
	for _, ins := range result.Optimization.InsertedLines {
		fmt.Fprintf(&output, "inserted after line %d:\n  + %s\n", ins.AfterLine, ins.Text)
	}
	for _, skip := range result.SkippedProposals {
		fmt.Fprintf(&output, "skipped %s (line %d): %s\n", skip.ProposalID, skip.LineNumber, skip.Reason)
	}

	for _, note := range result.Optimization.Notes {
		fmt.Fprintf(&output, "\nNote: %s\n", note)
	}

	output.WriteString("\n=== OPTIMIZED DRAFT ===\n\n")
	output.WriteString(result.Optimization.OptimizedResumeDraft)
	output.WriteString("\n")

	return output.String(), nil
}

func (apf *ApplyTextFormatter) SupportedType() string {
	return "ApplyOutput"
}

// ApplyMarkdownFormatter handles markdown formatting for apply results
type ApplyMarkdownFormatter struct{}

func (amf *ApplyMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ApplyOutput)
	if !ok {
		return "", fmt.Errorf("expected ApplyOutput, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Applied Proposals\n\n")
	fmt.Fprintf(&output, "**Score:** %d -> %d (%+d)\n\n", result.Comparison.BeforeScore, result.Comparison.AfterScore, result.Comparison.Delta)
	fmt.Fprintf(&output, "**Applied:** %d, **skipped:** %d\n\n", len(result.AppliedProposals), len(result.SkippedProposals))

	if len(result.Optimization.LineEdits) > 0 {
		output.WriteString("## Line Edits\n\n")
		for _, edit := range result.Optimization.LineEdits {
			fmt.Fprintf(&output, "**Line %d** (%s):\n\n", edit.LineNumber, edit.Type)
			fmt.Fprintf(&output, "- Before: %s\n- After: %s\n\n", edit.Before, edit.After)
		}
	}

	if len(result.Optimization.InsertedLines) > 0 {
		output.WriteString("## Inserted Lines\n\n")
		for _, ins := range result.Optimization.InsertedLines {
			fmt.Fprintf(&output, "- After line %d: %s\n", ins.AfterLine, ins.Text)
		}
		output.WriteString("\n")
	}

	if len(result.SkippedProposals) > 0 {
		output.WriteString("## Skipped\n\n")
		for _, skip := range result.SkippedProposals {
			fmt.Fprintf(&output, "- `%s` (line %d): %s\n", skip.ProposalID, skip.LineNumber, skip.Reason)
		}
		output.WriteString("\n")
	}

	if len(result.Optimization.Notes) > 0 {
		output.WriteString("## Notes\n\n")
		for _, note := range result.Optimization.Notes {
			fmt.Fprintf(&output, "- %s\n", note)
		}
		output.WriteString("\n")
	}

	output.WriteString("## Optimized Draft\n\n```\n")
	output.WriteString(result.Optimization.OptimizedResumeDraft)
	output.WriteString("\n```\n")

	return output.String(), nil
}

func (amf *ApplyMarkdownFormatter) SupportedType() string {
	return "ApplyOutput"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
