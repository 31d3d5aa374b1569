package common

import (
	"fmt"

	"resumatch/internal/errors"
	"resumatch/internal/formatters"
	"resumatch/internal/types"
)

// CommandConfig carries the output destination and format shared by
// the file-based commands.
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler renders pipeline results through the formatter
// registry and routes them to stdout or a file.
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	logger        *errors.Logger
}

// NewOutputHandler creates a new output handler
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger),
		registry:      formatters.GlobalRegistry,
		logger:        logger,
	}
}

// HandleOutput formats a result and writes it to the configured
// destination. An empty format renders as text.
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	if err := oh.fileProcessor.ValidateOutputFile(config.OutputFile); err != nil {
		return err
	}

	format := config.OutputFormat
	if format == "" {
		format = "text"
	}

	output, err := oh.registry.Format(data, format)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", format), err)
	}

	if config.OutputFile == "" {
		fmt.Print(output)
		return nil
	}

	if err := oh.fileProcessor.WriteFile(config.OutputFile, output); err != nil {
		return err // Error already wrapped by WriteFile
	}

	fields := append([]any{"file", config.OutputFile, "format", format}, resultFields(data)...)
	oh.logger.Info("Output written successfully", fields...)
	return nil
}

// resultFields pulls the headline numbers out of the known result
// shapes so the write log says what the file holds.
func resultFields(data any) []any {
	switch v := data.(type) {
	case types.AnalysisResult:
		return []any{"score", v.Score, "band", v.ScoreBand}
	case types.OptimizeOutput:
		return []any{"proposals", len(v.Proposals), "session", v.DraftSessionID}
	case types.ApplyOutput:
		return []any{"applied", len(v.AppliedProposals), "score_delta", v.Comparison.Delta}
	default:
		return nil
	}
}

// GetSupportedFormats returns all supported output formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}
