package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumatch/internal/config"
	apperrors "resumatch/internal/errors"
	"resumatch/internal/observability"
	"resumatch/internal/types"
)

const testResume = `Summary
Software engineer with experience building web services.

Experience
- Built internal tooling for deployment pipelines
- Improved API response times by optimizing database queries

Skills
Go, PostgreSQL, Docker`

const testJD = `We are looking for a Go engineer with PostgreSQL and Kubernetes
experience to build distributed systems and mentor junior engineers.`

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) (*Server, *httptest.Server) {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: "0",
		},
		App: config.AppConfig{MaxFileSize: 1 << 20},
		Optimize: config.OptimizeConfig{
			MaxProposals: 8,
			DraftTTL:     time.Minute,
		},
		Observability: config.ObservabilityConfig{
			HealthCheck: config.HealthCheckConfig{Timeout: time.Second},
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	logger, err := apperrors.New("error")
	require.NoError(t, err)

	srv := NewServer(cfg, "test", logger)
	t.Cleanup(srv.Store.Close)

	om, err := observability.NewManager(cfg.Observability, "test")
	require.NoError(t, err)

	ts := httptest.NewServer(srv.setupRoutes(om))
	t.Cleanup(ts.Close)

	return srv, ts
}

func postJSON(t *testing.T, url string, body any, headers map[string]string) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func postMultipart(t *testing.T, url string, fields map[string]string, filename, fileContent string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("resumeFile", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(fileContent))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAnalyzeEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/analyze", AnalyzeRequest{
		JobDescription: testJD,
		ResumeText:     testResume,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result types.AnalysisResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Greater(t, result.Score, 0)
	assert.NotEmpty(t, result.ScoreBand)
	assert.Greater(t, result.Breakdown.KeywordCoverage.Max, 0)
}

func TestAnalyzeValidation(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/analyze", AnalyzeRequest{
		JobDescription: testJD,
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Contains(t, errResp.Message, "ResumeText")
}

func TestAnalyzeAcceptsResumeUpload(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postMultipart(t, ts.URL+"/api/analyze",
		map[string]string{"jobDescription": testJD},
		"resume.txt", testResume)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result types.AnalysisResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Greater(t, result.Score, 0)
}

func TestAnalyzeUploadWinsOverResumeText(t *testing.T) {
	_, ts := newTestServer(t, nil)

	// The textarea field carries junk; the attached file must win.
	resp := postMultipart(t, ts.URL+"/api/analyze",
		map[string]string{
			"jobDescription": testJD,
			"resumeText":     "gardening notes",
		},
		"resume.txt", testResume)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result types.AnalysisResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Contains(t, result.Insights.TopMatchedKeywords, "postgresql")
}

func TestAnalyzeMultipartTextareaFallback(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postMultipart(t, ts.URL+"/api/analyze",
		map[string]string{
			"jobDescription": testJD,
			"resumeText":     testResume,
		},
		"", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAnalyzeMultipartMissingJobDescription(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postMultipart(t, ts.URL+"/api/analyze",
		nil, "resume.txt", testResume)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Contains(t, errResp.Message, "jobDescription")
}

func TestAnalyzeMultipartMissingResume(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postMultipart(t, ts.URL+"/api/analyze",
		map[string]string{"jobDescription": testJD}, "", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Contains(t, errResp.Message, "resume")
}

func TestAnalyzeUploadRejectsUnsupportedFormat(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postMultipart(t, ts.URL+"/api/analyze",
		map[string]string{"jobDescription": testJD},
		"resume.exe", testResume)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOptimizeAcceptsResumeUpload(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postMultipart(t, ts.URL+"/api/optimize",
		map[string]string{"jobDescription": testJD},
		"resume.txt", testResume)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var optimize types.OptimizeOutput
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&optimize))
	require.NotEmpty(t, optimize.DraftSessionID)
	assert.NotEmpty(t, optimize.Proposals)
}

func TestAnalyzeRejectsGet(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/analyze")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestOptimizeThenApply(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/optimize", OptimizeRequest{
		JobDescription: testJD,
		ResumeText:     testResume,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var optimize types.OptimizeOutput
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&optimize))
	require.NotEmpty(t, optimize.DraftSessionID)
	assert.False(t, optimize.AIEnabled)
	assert.NotEmpty(t, optimize.Proposals)

	applyResp := postJSON(t, ts.URL+"/api/apply-selected", ApplySelectedRequest{
		DraftSessionID: optimize.DraftSessionID,
	}, nil)
	require.Equal(t, http.StatusOK, applyResp.StatusCode)

	var apply types.ApplyOutput
	require.NoError(t, json.NewDecoder(applyResp.Body).Decode(&apply))
	assert.NotEmpty(t, apply.AppliedProposals)
	assert.NotEmpty(t, apply.Optimization.OptimizedResumeDraft)
	assert.Equal(t, apply.Comparison.AfterScore-apply.Comparison.BeforeScore, apply.Comparison.Delta)
}

func TestApplyUnknownSession(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/apply-selected", ApplySelectedRequest{
		DraftSessionID: "does-not-exist",
	}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthMiddleware(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.APIKeys = []string{"secret-key-123456"}
	})

	body := AnalyzeRequest{JobDescription: testJD, ResumeText: testResume}

	resp := postJSON(t, ts.URL+"/api/analyze", body, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/analyze", body, map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/analyze", body, map[string]string{"X-API-Key": "secret-key-123456"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/analyze", body, map[string]string{"Authorization": "Bearer secret-key-123456"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "resumatch", health["service"])
	assert.Equal(t, "degraded", health["status"])

	model, ok := health["ai_model"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, model["available"])
	assert.Equal(t, "heuristic-only", model["mode"])
}

func TestStatsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, false, stats["ai_enabled"])

	sessions, ok := stats["sessions"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(8), sessions["max_proposals"])
}

func TestRequestSizeLimit(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.MaxRequestSize = 64

	resp := postJSON(t, ts.URL+"/api/analyze", AnalyzeRequest{
		JobDescription: testJD,
		ResumeText:     testResume,
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Contains(t, errResp.Message, "too large")
}

func TestContentTypeRequired(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/api/analyze", "text/plain", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
