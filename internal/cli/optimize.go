package cli

import (
	"context"
	"fmt"
	"os"

	"resumatch/internal/ai"
	"resumatch/internal/common"
	"resumatch/internal/config"
	"resumatch/internal/convert"
	"resumatch/internal/drafts"
	"resumatch/internal/errors"
	"resumatch/internal/extract"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [job-description-file] [resume-file]",
	Short: "Propose and apply line edits that raise the ATS score",
	Long: `Generate reviewable line edits for a resume against a job description.
Each proposal either rewrites one existing line or inserts one new line;
the resume's line structure is never reshuffled.

By default the command prints the proposals for review. With --apply-all
the full selection is applied in the same run and the optimized draft is
printed with its before/after score comparison. Use --select to apply
only specific proposal IDs.

When the resume input is a docx or pdf file and an external converter is
configured, --converted-output writes a rewritten file in the original
format alongside the text output.

Proposals come from deterministic heuristics. When an AI API key is
configured the proposal set is enriched with AI line edits; without one
the command still works on heuristics alone.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if optimizeConfig.OutputFormat == "" {
			optimizeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		if len(optimizeSelect) > 0 && !optimizeApplyAll {
			optimizeApplyAll = true
		}
		if optimizeConverted != "" && !optimizeApplyAll {
			return fmt.Errorf("--converted-output requires --apply-all or --select")
		}
		return common.ValidateOutputFormat(optimizeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runOptimize,
}

var (
	optimizeConfig       common.CommandConfig
	optimizeOptions      types.AnalyzeOptions
	optimizeApplyAll     bool
	optimizeAggressive   bool
	optimizeSelect       []string
	optimizeMaxProposals int
	optimizeConverted    string
	optimizeRequireAI    bool
)

func init() {
	optimizeCmd.Flags().StringVarP(&optimizeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	optimizeCmd.Flags().StringVar(&optimizeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	optimizeCmd.Flags().BoolVar(&optimizeApplyAll, "apply-all", false, "Apply every proposal instead of printing them for review")
	optimizeCmd.Flags().StringSliceVar(&optimizeSelect, "select", nil, "Proposal IDs to apply (implies --apply-all)")
	optimizeCmd.Flags().IntVar(&optimizeMaxProposals, "max-proposals", 0, "Cap on insertion proposals (default from config)")
	optimizeCmd.Flags().BoolVar(&optimizeAggressive, "aggressive", false, "Allow new paragraphs instead of only merging into existing lines (file inputs only)")
	optimizeCmd.Flags().BoolVar(&optimizeOptions.AggressivePersonalMode, "aggressive-personal", false, "Score personal alignment concepts as an extra category")
	optimizeCmd.Flags().BoolVar(&optimizeOptions.JDKeywordListMode, "jd-keyword-list", false, "Treat the job description file as a plain keyword list")
	optimizeCmd.Flags().BoolVar(&optimizeOptions.AdvancedATSMode, "advanced-ats", false, "Apply the stricter formatting and placement checks")
	optimizeCmd.Flags().StringVar(&optimizeConverted, "converted-output", "", "Write the optimized resume back into the original docx/pdf format at this path")
	optimizeCmd.Flags().BoolVar(&optimizeRequireAI, "require-ai", false, "Fail instead of degrading to heuristics when no AI key is configured")

	_ = optimizeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

type optimizeInput struct {
	jobDescription string
	resumeText     string
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	resumeFile := args[1]
	resumeKind := extract.KindForFilename(resumeFile)
	contentMode := drafts.ModeText
	if resumeKind == extract.KindDOCX || resumeKind == extract.KindPDF {
		contentMode = drafts.ModeFile
	}
	if optimizeConverted != "" && contentMode != drafts.ModeFile {
		return fmt.Errorf("--converted-output requires a docx or pdf resume, got %s", resumeFile)
	}

	if optimizeRequireAI {
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}
	}

	var editor ai.LineEditor
	if cfg.AI.APIKey != "" {
		service, err := ai.NewService(&cfg.AI, logger)
		if err != nil {
			if optimizeRequireAI {
				return fmt.Errorf("failed to create AI service: %w", err)
			}
			logger.Warn("AI provider unavailable, continuing with heuristics only", "error", err)
		} else {
			editor = service.Provider
			defer func() {
				if err := service.Provider.Close(); err != nil {
					logger.Warn("Failed to close AI provider", "error", err)
				}
			}()
		}
	}

	maxProposals := cfg.Optimize.MaxProposals
	if optimizeMaxProposals > 0 {
		maxProposals = optimizeMaxProposals
	}

	store := drafts.NewMemoryStore(cfg.Optimize.DraftTTL)
	defer store.Close()
	coordinator := drafts.NewCoordinator(editor, store, maxProposals, logger)

	buildInput := func(contents []string) (optimizeInput, error) {
		if len(contents) != 2 {
			return optimizeInput{}, fmt.Errorf("expected 2 file paths, got %d", len(contents))
		}
		return optimizeInput{jobDescription: contents[0], resumeText: contents[1]}, nil
	}

	logDetails := func(input optimizeInput, cmdCfg common.CommandConfig) {
		logger.Info("Starting resume optimization",
			"job_chars", len(input.jobDescription),
			"resume_chars", len(input.resumeText),
			"content_mode", string(contentMode),
			"ai_enabled", editor != nil,
			"apply_all", optimizeApplyAll)
	}

	operation := func(ctx context.Context, input optimizeInput) (any, error) {
		opts := optimizeOptions
		if cfg.Optimize.AggressivePersonal && !cmd.Flags().Changed("aggressive-personal") {
			opts.AggressivePersonalMode = true
		}

		proposed, err := coordinator.Propose(ctx, drafts.ProposeRequest{
			JobDescription: input.jobDescription,
			ResumeText:     input.resumeText,
			ContentMode:    contentMode,
			Options:        opts,
		})
		if err != nil {
			return nil, err
		}

		if !optimizeApplyAll {
			return proposed, nil
		}

		applied, err := coordinator.Apply(ctx, drafts.ApplyRequest{
			SessionID:           proposed.DraftSessionID,
			SelectedProposalIDs: optimizeSelect,
			AggressiveContent:   optimizeAggressive,
		})
		if err != nil {
			return nil, err
		}

		if optimizeConverted != "" {
			if err := writeConvertedResume(ctx, cfg, logger, resumeFile, applied); err != nil {
				return nil, err
			}
		}

		return applied, nil
	}

	err := common.RunFileCommand(
		cmd.Context(),
		logger,
		optimizeConfig,
		cfg.App.MaxFileSize,
		args,
		buildInput,
		operation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to optimize resume: %w", err)
	}
	logger.Info("Resume optimization completed successfully")
	return nil
}

// writeConvertedResume pushes the applied line edits back through the
// external converter so the output keeps the original file format.
func writeConvertedResume(ctx context.Context, cfg *config.Config, logger *errors.Logger, resumeFile string, applied types.ApplyOutput) error {
	converter := convert.New(cfg.Converter, logger)
	if !converter.Enabled() {
		return fmt.Errorf("no converter command configured, cannot write %s", optimizeConverted)
	}

	original, err := os.ReadFile(resumeFile)
	if err != nil {
		return fmt.Errorf("cannot re-read %s for conversion: %w", resumeFile, err)
	}

	resp, err := converter.Convert(ctx, convert.Request{
		Filename:      resumeFile,
		OriginalFile:  original,
		LineEdits:     applied.Optimization.LineEdits,
		InsertedLines: applied.Optimization.InsertedLines,
		Aggressive:    optimizeAggressive,
	})
	if err != nil {
		return fmt.Errorf("format-preserving conversion failed: %w", err)
	}

	if err := os.WriteFile(optimizeConverted, resp.File, 0600); err != nil {
		return fmt.Errorf("cannot write converted resume %s: %w", optimizeConverted, err)
	}

	logger.Info("Converted resume written",
		"file", optimizeConverted,
		"bytes", len(resp.File))
	if resp.Diagnostics != "" {
		logger.Debug("Converter diagnostics", "output", resp.Diagnostics)
	}
	return nil
}
