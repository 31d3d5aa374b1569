package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	timeout := 90 * time.Second
	retries := 2
	temperature := float32(0.3)
	useSystem := true
	return &Config{
		AI: AIConfig{
			Provider:          "gemini",
			Model:             "gemini-2.0-flash",
			Timeout:           &timeout,
			MaxRetries:        &retries,
			Temperature:       &temperature,
			UseSystemPrompts:  &useSystem,
			ModelCheckTimeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: "8080",
			TLS:  TLSConfig{Mode: "disabled"},
		},
		App: AppConfig{
			LogLevel:         "info",
			DefaultFormat:    "json",
			SupportedFormats: []string{"json", "text", "markdown"},
			MaxFileSize:      1024 * 1024,
		},
		Optimize: OptimizeConfig{
			MaxProposals: 8,
			DraftTTL:     30 * time.Minute,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "nil timeout", mutate: func(c *Config) { c.AI.Timeout = nil }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { var d time.Duration; c.AI.Timeout = &d }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { n := -1; c.AI.MaxRetries = &n }, wantErr: true},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: true},
		{name: "zero proposals", mutate: func(c *Config) { c.Optimize.MaxProposals = 0 }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.Optimize.DraftTTL = 0 }, wantErr: true},
		{name: "unknown format", mutate: func(c *Config) { c.App.DefaultFormat = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTLSConfig(t *testing.T) {
	tests := []struct {
		name    string
		tls     TLSConfig
		wantErr bool
	}{
		{name: "disabled", tls: TLSConfig{Mode: "disabled"}, wantErr: false},
		{name: "server with files", tls: TLSConfig{Mode: "server", CertFile: "cert.pem", KeyFile: "key.pem"}, wantErr: false},
		{name: "server missing key", tls: TLSConfig{Mode: "server", CertFile: "cert.pem"}, wantErr: true},
		{name: "mutual requires ca", tls: TLSConfig{Mode: "mutual", CertFile: "cert.pem", KeyFile: "key.pem"}, wantErr: true},
		{name: "mutual complete", tls: TLSConfig{Mode: "mutual", CertFile: "cert.pem", KeyFile: "key.pem", CAFile: "ca.pem"}, wantErr: false},
		{name: "bad policy", tls: TLSConfig{Mode: "mutual", CertFile: "cert.pem", KeyFile: "key.pem", CAFile: "ca.pem", ClientAuthPolicy: "always"}, wantErr: true},
		{name: "bad mode", tls: TLSConfig{Mode: "sometimes"}, wantErr: true},
		{name: "bad version", tls: TLSConfig{Mode: "server", CertFile: "cert.pem", KeyFile: "key.pem", MinVersion: "1.0"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.TLS = tt.tls
			err := cfg.ValidateTLSConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTLSConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadPromptsFromFiles(t *testing.T) {
	dir := t.TempDir()
	systemPath := filepath.Join(dir, "system.txt")
	if err := os.WriteFile(systemPath, []byte("Custom system prompt.\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := validConfig()
	cfg.AI.Prompts.LineEditsSystemFile = systemPath
	if err := cfg.loadPromptsFromFiles(); err != nil {
		t.Fatalf("loadPromptsFromFiles() error = %v", err)
	}
	if cfg.AI.Prompts.LineEditsSystem != "Custom system prompt." {
		t.Errorf("LineEditsSystem = %q, want trimmed file content", cfg.AI.Prompts.LineEditsSystem)
	}

	// Inline content wins over a file path.
	cfg = validConfig()
	cfg.AI.Prompts.LineEditsSystem = "inline"
	cfg.AI.Prompts.LineEditsSystemFile = filepath.Join(dir, "does-not-exist.txt")
	if err := cfg.loadPromptsFromFiles(); err != nil {
		t.Fatalf("loadPromptsFromFiles() error = %v", err)
	}
	if cfg.AI.Prompts.LineEditsSystem != "inline" {
		t.Errorf("LineEditsSystem = %q, want inline override", cfg.AI.Prompts.LineEditsSystem)
	}

	// Missing file is an error when no inline content is set.
	cfg = validConfig()
	cfg.AI.Prompts.LineEditsUserFile = filepath.Join(dir, "missing.txt")
	if err := cfg.loadPromptsFromFiles(); err == nil {
		t.Error("loadPromptsFromFiles() expected error for missing file")
	}
}

func TestApplyFallbacks(t *testing.T) {
	t.Setenv("RESUMATCH_SERVER_APIKEYS", "key-a, key-b")
	t.Setenv("GEMINI_API_KEY", "legacy-key")

	cfg := validConfig()
	cfg.AI.ModelCheckTimeout = 0
	cfg.Observability.HealthCheck.AIModelCheckTimeout = 7 * time.Second
	cfg.Observability.ServiceName = "resumatch"
	cfg.applyFallbacks()

	if cfg.AI.APIKey != "legacy-key" {
		t.Errorf("APIKey = %q, want legacy env fallback", cfg.AI.APIKey)
	}
	if len(cfg.Server.APIKeys) != 2 || cfg.Server.APIKeys[1] != "key-b" {
		t.Errorf("APIKeys = %v, want two trimmed keys", cfg.Server.APIKeys)
	}
	if cfg.AI.ModelCheckTimeout != 7*time.Second {
		t.Errorf("ModelCheckTimeout = %v, want health check fallback", cfg.AI.ModelCheckTimeout)
	}
	if cfg.Observability.ServiceInstance == "" {
		t.Error("ServiceInstance should be generated")
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := validConfig()
	if err := cfg.RequireAPIKey(); err == nil {
		t.Error("RequireAPIKey() expected error with no key set")
	}
	cfg.AI.APIKey = "k"
	if err := cfg.RequireAPIKey(); err != nil {
		t.Errorf("RequireAPIKey() error = %v", err)
	}
}
