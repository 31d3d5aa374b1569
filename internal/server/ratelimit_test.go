package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumatch/internal/config"
)

func TestLimiterAllowBurst(t *testing.T) {
	m := NewLimiterManager(60, 2, nil)
	defer m.Close()

	assert.True(t, m.Allow("ip:10.0.0.1"))
	assert.True(t, m.Allow("ip:10.0.0.1"))
	assert.False(t, m.Allow("ip:10.0.0.1"))

	// Separate keys get separate buckets.
	assert.True(t, m.Allow("ip:10.0.0.2"))
}

func TestLimiterCleanup(t *testing.T) {
	m := NewLimiterManager(60, 1, nil)
	defer m.Close()

	m.Allow("ip:10.0.0.1")
	m.Allow("ip:10.0.0.2")

	m.mu.Lock()
	m.lastSeen["ip:10.0.0.1"] = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	m.cleanup(30 * time.Minute)

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.NotContains(t, m.limiters, "ip:10.0.0.1")
	assert.Contains(t, m.limiters, "ip:10.0.0.2")
}

func TestLimiterStats(t *testing.T) {
	m := NewLimiterManager(120, 5, nil)
	defer m.Close()

	m.Allow("api:key1")
	stats := m.GetStats()
	assert.Equal(t, 1, stats["active_limiters"])
	assert.Equal(t, 120.0, stats["rate_per_minute"])
	assert.Equal(t, 5, stats["burst_capacity"])
}

func TestGetRateLimitKey(t *testing.T) {
	tests := []struct {
		name     string
		byAPIKey bool
		byIP     bool
		headers  map[string]string
		want     string
	}{
		{
			name:     "api key header wins",
			byAPIKey: true,
			byIP:     true,
			headers:  map[string]string{"X-API-Key": "abc"},
			want:     "api:abc",
		},
		{
			name:     "bearer token fallback",
			byAPIKey: true,
			headers:  map[string]string{"Authorization": "Bearer tok"},
			want:     "api:tok",
		},
		{
			name: "ip fallback",
			byIP: true,
			want: "ip:192.0.2.1",
		},
		{
			name: "nothing enabled",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getRateLimitKey(r, tt.byAPIKey, tt.byIP))
		})
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:4312"
	assert.Equal(t, "203.0.113.9", getClientIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", getClientIP(r))

	r.Header.Set("X-Forwarded-For", "invalid, 192.0.2.44")
	assert.Equal(t, "192.0.2.44", getClientIP(r))
}

func TestParseFirstIP(t *testing.T) {
	assert.Equal(t, "192.0.2.1", parseFirstIP("192.0.2.1, 10.0.0.1"))
	assert.Equal(t, "10.0.0.1", parseFirstIP("garbage, 10.0.0.1"))
	assert.Equal(t, "", parseFirstIP("garbage, more garbage"))
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefgh0123456789"))
}

func TestRateLimitedEndpoint(t *testing.T) {
	srv, ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.RateLimit = config.RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 60,
			BurstCapacity:  1,
			ByIP:           true,
		}
	})
	t.Cleanup(srv.RateLimiter.Close)

	body := AnalyzeRequest{JobDescription: testJD, ResumeText: testResume}

	resp := postJSON(t, ts.URL+"/api/analyze", body, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/analyze", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
