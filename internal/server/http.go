// Package server exposes the scoring and optimization pipelines over
// HTTP: POST /api/analyze, /api/optimize and /api/apply-selected plus
// health and stats endpoints, with API key auth, per-key and per-IP
// rate limiting and optional TLS with live certificate reload.
package server

import (
	"github.com/go-playground/validator/v10"

	"resumatch/internal/ai"
	"resumatch/internal/config"
	"resumatch/internal/drafts"
	apperrors "resumatch/internal/errors"
	"resumatch/internal/types"
)

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	JobDescription         string `json:"jobDescription" validate:"required"`
	ResumeText             string `json:"resumeText" validate:"required"`
	AggressivePersonalMode bool   `json:"aggressivePersonalMode"`
	JDKeywordListMode      bool   `json:"jdKeywordListMode"`
	AdvancedATSMode        bool   `json:"advancedAtsMode"`
}

// OptimizeRequest is the body of POST /api/optimize.
type OptimizeRequest struct {
	JobDescription         string `json:"jobDescription" validate:"required"`
	ResumeText             string `json:"resumeText" validate:"required"`
	AggressivePersonalMode bool   `json:"aggressivePersonalMode"`
	JDKeywordListMode      bool   `json:"jdKeywordListMode"`
	AdvancedATSMode        bool   `json:"advancedAtsMode"`
}

// ApplySelectedRequest is the body of POST /api/apply-selected. An
// empty selection applies every proposal still marked selected.
type ApplySelectedRequest struct {
	DraftSessionID      string   `json:"draftSessionId" validate:"required"`
	SelectedProposalIDs []string `json:"selectedProposalIds"`
	AggressiveContent   bool     `json:"aggressiveContent"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server holds the HTTP server wiring.
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig *config.Config

	Coordinator *drafts.Coordinator
	Store       *drafts.MemoryStore
	AIService   *ai.Service // nil means heuristic-only proposals

	TLSConfig config.TLSConfig
	Reloader  *CertReloader

	// API key set for O(1) lookup
	APIKeys map[string]bool

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *LimiterManager

	validate *validator.Validate
	Logger   *apperrors.Logger
}

// NewServer wires a server from configuration. A missing AI key is not
// an error: the optimize endpoint degrades to heuristic proposals.
func NewServer(cfg *config.Config, version string, logger *apperrors.Logger) *Server {
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.Server.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var aiService *ai.Service
	var editor ai.LineEditor
	if cfg.AI.APIKey != "" {
		svc, err := ai.NewService(&cfg.AI, logger)
		if err != nil {
			logger.LogError(err, "AI service unavailable, proposals will be heuristic only")
		} else {
			aiService = svc
			editor = svc.Provider
		}
	} else {
		logger.Info("No AI API key configured, proposals will be heuristic only")
	}

	store := drafts.NewMemoryStore(cfg.Optimize.DraftTTL)
	coordinator := drafts.NewCoordinator(editor, store, cfg.Optimize.MaxProposals, logger)

	var rateLimiter *LimiterManager
	if cfg.Server.RateLimit.Enabled {
		rateLimiter = NewLimiterManager(
			cfg.Server.RateLimit.RequestsPerMin,
			cfg.Server.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		AppConfig:      cfg,
		Coordinator:    coordinator,
		Store:          store,
		AIService:      aiService,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        apiKeyMap,
		MaxRequestSize: cfg.App.MaxFileSize,
		RateLimit:      &cfg.Server.RateLimit,
		RateLimiter:    rateLimiter,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		Logger:         logger,
	}
}

func (r AnalyzeRequest) options() types.AnalyzeOptions {
	return types.AnalyzeOptions{
		AggressivePersonalMode: r.AggressivePersonalMode,
		JDKeywordListMode:      r.JDKeywordListMode,
		AdvancedATSMode:        r.AdvancedATSMode,
	}
}

func (r OptimizeRequest) options() types.AnalyzeOptions {
	return types.AnalyzeOptions{
		AggressivePersonalMode: r.AggressivePersonalMode,
		JDKeywordListMode:      r.JDKeywordListMode,
		AdvancedATSMode:        r.AdvancedATSMode,
	}
}
