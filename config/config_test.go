package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.SeedURL = "https://example.test/"
	cfg.LLMAPIKey = "test-key"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero max pages",
			mutate: func(cfg *Config) {
				cfg.MaxPages = 0
			},
			wantErr: "max pages",
		},
		{
			name: "max pages above limit",
			mutate: func(cfg *Config) {
				cfg.MaxPages = 11
			},
			wantErr: "cannot exceed 10",
		},
		{
			name: "empty seed url",
			mutate: func(cfg *Config) {
				cfg.SeedURL = ""
			},
			wantErr: "seed URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.SeedURL = "http://"
			},
			wantErr: "seed URL",
		},
		{
			name: "non http scheme",
			mutate: func(cfg *Config) {
				cfg.SeedURL = "ftp://example.test/"
			},
			wantErr: "scheme",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative delay",
			mutate: func(cfg *Config) {
				cfg.Delay = -1
			},
			wantErr: "delay",
		},
		{
			name: "zero text cap",
			mutate: func(cfg *Config) {
				cfg.MaxTextChars = 0
			},
			wantErr: "max text chars",
		},
		{
			name: "unknown provider",
			mutate: func(cfg *Config) {
				cfg.LLMProvider = "bard"
			},
			wantErr: "llm provider",
		},
		{
			name: "missing api key",
			mutate: func(cfg *Config) {
				cfg.LLMAPIKey = ""
			},
			wantErr: "api key",
		},
		{
			name: "bad output format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xlsx"
			},
			wantErr: "output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValidWithSeedAndKey(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestOllamaNeedsNoKey(t *testing.T) {
	cfg := validConfig()
	cfg.LLMProvider = "ollama"
	cfg.LLMAPIKey = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("ollama without key should validate, got %v", err)
	}
}

func TestStringRedactsKey(t *testing.T) {
	cfg := validConfig()
	cfg.LLMAPIKey = "super-secret"
	if strings.Contains(cfg.String(), "super-secret") {
		t.Fatalf("config string leaks api key: %s", cfg.String())
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("AUDIT_SEED_URL", "https://env.test/")
	t.Setenv("AUDIT_PAGES", "7")
	t.Setenv("AUDIT_DELAY", "250ms")
	t.Setenv("AUDIT_RESPECT_ROBOTS", "true")
	t.Setenv("AUDIT_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gem-key")

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.SeedURL != "https://env.test/" {
		t.Fatalf("seed=%q", cfg.SeedURL)
	}
	if cfg.MaxPages != 7 {
		t.Fatalf("pages=%d, want 7", cfg.MaxPages)
	}
	if cfg.Delay != 250*time.Millisecond {
		t.Fatalf("delay=%v, want 250ms", cfg.Delay)
	}
	if !cfg.RespectRobotsTxt {
		t.Fatalf("respect robots should be true")
	}
	if cfg.LLMAPIKey != "gem-key" {
		t.Fatalf("api key should fall back to GEMINI_API_KEY")
	}
}

func TestApplyEnvReportsMalformed(t *testing.T) {
	t.Setenv("AUDIT_PAGES", "three")
	t.Setenv("AUDIT_MAX_LINKS", "12")

	cfg := DefaultConfig()
	err := ApplyEnv(cfg)
	if err == nil || !strings.Contains(err.Error(), "AUDIT_PAGES") {
		t.Fatalf("expected AUDIT_PAGES error, got %v", err)
	}
	if cfg.MaxLinks != 12 {
		t.Fatalf("valid variables should still apply, max links=%d", cfg.MaxLinks)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.yaml")
	doc := "seed_url: https://file.test/\nmax_pages: 5\ndelay: 2s\nllm_provider: openai\nllm_model: gpt-4o-mini\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := DefaultConfig()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.SeedURL != "https://file.test/" || cfg.MaxPages != 5 {
		t.Fatalf("unexpected config: %s", cfg)
	}
	if cfg.Delay != 2*time.Second {
		t.Fatalf("delay=%v, want 2s", cfg.Delay)
	}
	if cfg.MaxLinks != 50 {
		t.Fatalf("keys absent from the file should keep defaults, max links=%d", cfg.MaxLinks)
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.yaml")
	if err := os.WriteFile(path, []byte("api_key: leaked\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := LoadFile(path, DefaultConfig()); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("AUDIT_TEST_A=from-file\nAUDIT_TEST_B=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("AUDIT_TEST_A", "from-process")
	t.Setenv("AUDIT_TEST_B", "")
	os.Unsetenv("AUDIT_TEST_B")

	loaded, err := LoadDotEnv(path, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded=%v, want one file", loaded)
	}
	if got := os.Getenv("AUDIT_TEST_A"); got != "from-process" {
		t.Fatalf("AUDIT_TEST_A=%q, process value should win", got)
	}
	if got := os.Getenv("AUDIT_TEST_B"); got != "from-file" {
		t.Fatalf("AUDIT_TEST_B=%q, want from-file", got)
	}
}
