package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"resumatch/internal/ai"
	"resumatch/internal/ats"
	"resumatch/internal/drafts"
	apperrors "resumatch/internal/errors"
	"resumatch/internal/observability"
)

// createAnalyzeHandler serves POST /api/analyze. Scoring is local, no
// provider call is made.
func (s *Server) createAnalyzeHandler(om *observability.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumatch.api")
		ctx, span := tracer.Start(ctx, "api.analyze")
		defer span.End()

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		req, err := s.decodeAnalyzeRequest(r)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.resume_length", len(req.ResumeText)),
			attribute.Int("request.job_length", len(req.JobDescription)),
			attribute.String("operation", "analyze"),
		)

		result := ats.Analyze(req.JobDescription, req.ResumeText, req.options())

		metrics := om.GetMetrics()
		metrics.RecordOperation(ctx, observability.OpAnalyze, true,
			attribute.Int("ats.score", result.Score))
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("ats.score", result.Score),
		)

		s.writeJSON(w, span, result)
	}
}

// createOptimizeHandler serves POST /api/optimize.
func (s *Server) createOptimizeHandler(om *observability.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumatch.api")
		ctx, span := tracer.Start(ctx, "api.optimize")
		defer span.End()

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		req, fromFile, err := s.decodeOptimizeRequest(r)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		contentMode := drafts.ModeText
		if fromFile {
			contentMode = drafts.ModeFile
		}
		span.SetAttributes(
			attribute.Int("request.resume_length", len(req.ResumeText)),
			attribute.Int("request.job_length", len(req.JobDescription)),
			attribute.String("request.content_mode", string(contentMode)),
			attribute.String("operation", "optimize"),
		)

		metrics := om.GetMetrics()
		result, err := s.Coordinator.Propose(ctx, drafts.ProposeRequest{
			JobDescription: req.JobDescription,
			ResumeText:     req.ResumeText,
			ContentMode:    contentMode,
			Options:        req.options(),
		})
		if err != nil {
			span.RecordError(err)
			metrics.RecordOperation(ctx, observability.OpOptimize, false)
			s.writeAppError(w, span, err, "Failed to optimize resume")
			return
		}

		metrics.RecordOperation(ctx, observability.OpOptimize, true,
			attribute.Int("proposals", len(result.Proposals)),
			attribute.Bool("ai_enabled", result.AIEnabled))
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("draft_session_id", result.DraftSessionID),
			attribute.Int("proposals", len(result.Proposals)),
			attribute.Bool("ai_enabled", result.AIEnabled),
		)

		s.writeJSON(w, span, result)
	}
}

// createApplySelectedHandler serves POST /api/apply-selected.
func (s *Server) createApplySelectedHandler(om *observability.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumatch.api")
		ctx, span := tracer.Start(ctx, "api.apply_selected")
		defer span.End()

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req ApplySelectedRequest
		if err := s.decodeRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.String("draft_session_id", req.DraftSessionID),
			attribute.Int("selected", len(req.SelectedProposalIDs)),
			attribute.String("operation", "apply_selected"),
		)

		metrics := om.GetMetrics()
		result, err := s.Coordinator.Apply(ctx, drafts.ApplyRequest{
			SessionID:           req.DraftSessionID,
			SelectedProposalIDs: req.SelectedProposalIDs,
			AggressiveContent:   req.AggressiveContent,
		})
		if err != nil {
			span.RecordError(err)
			metrics.RecordOperation(ctx, observability.OpApply, false)
			s.writeAppError(w, span, err, "Failed to apply proposals")
			return
		}

		metrics.RecordOperation(ctx, observability.OpApply, true,
			attribute.Int("applied", len(result.AppliedProposals)),
			attribute.Int("skipped", len(result.SkippedProposals)))
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("applied", len(result.AppliedProposals)),
			attribute.Int("skipped", len(result.SkippedProposals)),
			attribute.Int("score.delta", result.Comparison.Delta),
		)

		s.writeJSON(w, span, result)
	}
}

// decodeRequest parses and validates a JSON body.
func (s *Server) decodeRequest(r *http.Request, v any) error {
	if err := parseJSONRequest(r, v); err != nil {
		return err
	}
	if err := s.validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("field %s failed on the %s rule", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

// writeAppError maps structured errors onto HTTP statuses.
func (s *Server) writeAppError(w http.ResponseWriter, span oteltrace.Span, err error, fallback string) {
	status := http.StatusInternalServerError
	message := err.Error()

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch {
		case appErr.Code == apperrors.ErrCodeSessionNotFound:
			status = http.StatusNotFound
		case appErr.Type == apperrors.ErrorTypeValidation:
			status = http.StatusBadRequest
		case appErr.Type == apperrors.ErrorTypeAI, appErr.Type == apperrors.ErrorTypeNetwork:
			status = http.StatusBadGateway
		}
		span.SetAttributes(attribute.String("error.code", appErr.Code))
		message = appErr.Message
	}

	writeErrorResponse(w, fallback, message, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, span oteltrace.Span, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		span.RecordError(err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// healthHandler reports service, session store and AI model status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":  "healthy",
		"service": "resumatch",
		"version": s.Version,
		"sessions": map[string]any{
			"active": s.Store.Len(),
			"ttl":    s.AppConfig.Optimize.DraftTTL.String(),
		},
	}

	overallHealthy := true

	response["ai_model"] = s.checkAIModelHealth()
	if info, ok := response["ai_model"].(map[string]any); ok {
		if available, exists := info["available"].(bool); exists && !available {
			// Heuristic proposals still work without the provider, so a
			// broken model only degrades, never fails, the health check.
			response["status"] = "degraded"
		}
	}

	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if healthy, ok := certStatus["healthy"].(bool); ok && !healthy {
			overallHealthy = false
		}
	}

	if !overallHealthy {
		response["status"] = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.Logger.LogError(err, "Failed to encode health response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// checkAIModelHealth probes the configured line-edit model.
func (s *Server) checkAIModelHealth() map[string]any {
	if s.AIService == nil {
		return map[string]any{
			"available": false,
			"mode":      "heuristic-only",
			"message":   "no AI provider configured",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.AppConfig.Observability.HealthCheck.Timeout)
	defer cancel()

	info := s.AIService.GetModelInfo(ctx)
	status := map[string]any{
		"available": info.Available,
		"name":      info.Name,
	}
	if info.Version != "" {
		status["version"] = info.Version
	}
	if info.Error != "" {
		status["error"] = info.Error
	}
	return status
}

// checkCertificateHealth reports TLS reload state when enabled.
func (s *Server) checkCertificateHealth() map[string]any {
	if s.Reloader == nil {
		return nil
	}
	return s.Reloader.Health()
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"service": "resumatch",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
		"sessions": map[string]any{
			"active":        s.Store.Len(),
			"ttl":           s.AppConfig.Optimize.DraftTTL.String(),
			"max_proposals": s.AppConfig.Optimize.MaxProposals,
		},
		"ai_enabled": s.AIService != nil,
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.Logger.LogError(err, "Failed to encode stats response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	if r.Header.Get("Content-Type") != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, errorLabel, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   errorLabel,
		Message: message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.Manager) func(http.HandlerFunc) http.HandlerFunc {
	originalMiddleware := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		return originalMiddleware(func(w http.ResponseWriter, r *http.Request) {
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}

			next(wrapper, r)

			if wrapper.statusCode == http.StatusTooManyRequests {
				limitedBy := "ip"
				if clientAPIKey(r) != "" && s.RateLimit != nil && s.RateLimit.ByAPIKey {
					limitedBy = "api_key"
				}
				om.GetMetrics().RecordRateLimitHit(r.Context(), limitedBy)
			}
		})
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// instrumentedEditor wraps a line editor with spans, duration and
// token-usage metrics.
type instrumentedEditor struct {
	inner   ai.LineEditor
	metrics *observability.Metrics
}

func (e *instrumentedEditor) ProposeLineEdits(ctx context.Context, req ai.EditRequest) (ai.LineEditsOutput, *ai.TokenUsage, error) {
	var output ai.LineEditsOutput
	var usage *ai.TokenUsage
	err := e.metrics.TrackAIOperation(ctx, "propose_line_edits", func(ctx context.Context) *observability.AIOperationResult {
		var opErr error
		output, usage, opErr = e.inner.ProposeLineEdits(ctx, req)
		return &observability.AIOperationResult{
			Error:      opErr,
			TokenUsage: (*observability.TokenUsage)(usage),
		}
	})
	return output, usage, err
}

func (e *instrumentedEditor) GetModelInfo(ctx context.Context) *ai.ModelInfo {
	return e.inner.GetModelInfo(ctx)
}

func (e *instrumentedEditor) Close() error {
	return e.inner.Close()
}
