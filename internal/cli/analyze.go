package cli

import (
	"context"
	"fmt"

	"resumatch/internal/ats"
	"resumatch/internal/common"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [job-description-file] [resume-file]",
	Short: "Score a resume against a job description",
	Long: `Score a resume against a job description using deterministic ATS-style
checks. No AI is involved: the same inputs always produce the same score.

The analysis includes:
- Keyword coverage against terms extracted from the job description
- Section structure and formatting checks
- Role title alignment
- Impact signals such as quantified achievements and action verbs
- Prioritized suggestions for raising the score

Inputs may be txt, md, docx or pdf files.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(analyzeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var (
	analyzeConfig  common.CommandConfig
	analyzeOptions types.AnalyzeOptions
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	analyzeCmd.Flags().BoolVar(&analyzeOptions.AggressivePersonalMode, "aggressive-personal", false, "Score personal alignment concepts as an extra category")
	analyzeCmd.Flags().BoolVar(&analyzeOptions.JDKeywordListMode, "jd-keyword-list", false, "Treat the job description file as a plain keyword list")
	analyzeCmd.Flags().BoolVar(&analyzeOptions.AdvancedATSMode, "advanced-ats", false, "Apply the stricter formatting and placement checks")

	// Add completion for format flag
	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

type analyzeInput struct {
	jobDescription string
	resumeText     string
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	buildInput := func(contents []string) (analyzeInput, error) {
		if len(contents) != 2 {
			return analyzeInput{}, fmt.Errorf("expected 2 file paths, got %d", len(contents))
		}
		return analyzeInput{
			jobDescription: contents[0],
			resumeText:     contents[1],
		}, nil
	}

	logDetails := func(input analyzeInput, cmdCfg common.CommandConfig) {
		logger.Info("Starting resume analysis",
			"job_chars", len(input.jobDescription),
			"resume_chars", len(input.resumeText),
			"output_format", cmdCfg.OutputFormat)
	}

	analyzeOperation := func(ctx context.Context, input analyzeInput) (types.AnalysisResult, error) {
		opts := analyzeOptions
		if cfg.Optimize.AggressivePersonal && !cmd.Flags().Changed("aggressive-personal") {
			opts.AggressivePersonalMode = true
		}
		return ats.Analyze(input.jobDescription, input.resumeText, opts), nil
	}

	err := common.RunFileCommand(
		cmd.Context(),
		logger,
		analyzeConfig,
		cfg.App.MaxFileSize,
		args,
		buildInput,
		analyzeOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}
	logger.Info("Resume analysis completed successfully")
	return nil
}
