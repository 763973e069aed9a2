package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"LLM_PROVIDER", "HTTP_ADDR", "EXTRACT_WORKERS", "FILE_TIMEOUT", "JOB_LEDGER", "CORS_ORIGINS", "MAX_UPLOAD_MB"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()
	if cfg.LLM.Provider != ProviderGemini {
		t.Errorf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.LLM.GeminiModel != "gemini-2.5-pro" {
		t.Errorf("gemini model = %q", cfg.LLM.GeminiModel)
	}
	if cfg.Server.HTTPAddr != ":8000" {
		t.Errorf("http addr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Pipeline.Workers != 4 || cfg.Pipeline.FileTimeout != 3*time.Minute {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Database.JobLedger {
		t.Error("job ledger must be off by default")
	}
	if len(cfg.Server.CORSOrigins) != len(defaultCORSOrigins) {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Server.MaxUploadBytes() != 64<<20 {
		t.Errorf("max upload = %d", cfg.Server.MaxUploadBytes())
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("EXTRACT_WORKERS", "1")
	t.Setenv("JOB_LEDGER", "on")
	t.Setenv("DATABASE_URL", "sqlite://:memory:")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg := LoadConfig()
	if cfg.LLM.Provider != ProviderOpenAI || cfg.LLM.APIKey() != "sk-test" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if !cfg.Database.JobLedger {
		t.Error("JOB_LEDGER=on not honored")
	}
	if got := cfg.Server.CORSOrigins; len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("cors origins = %q", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("JOB_LEDGER", "")
	t.Setenv("DATABASE_URL", "")

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults with key", func(*Config) {}, true},
		{"missing gemini key", func(c *Config) { c.LLM.GoogleAPIKey = "" }, false},
		{"openai without key", func(c *Config) { c.LLM.Provider = ProviderOpenAI }, false},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "claude" }, false},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }, false},
		{"ledger without dsn", func(c *Config) { c.Database.JobLedger = true }, false},
		{"zero upload limit", func(c *Config) { c.Server.MaxUploadMB = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("error %v does not wrap ErrInvalidInput", err)
				}
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}

	p := filepath.Join(dir, "test.env")
	if err := os.WriteFile(p, []byte("PDFTOXL_DOTENV_PROBE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PDFTOXL_DOTENV_PROBE", "")
	os.Unsetenv("PDFTOXL_DOTENV_PROBE")
	if err := LoadDotEnv(p); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("PDFTOXL_DOTENV_PROBE"); got != "from-file" {
		t.Errorf("probe = %q", got)
	}
}

func TestMessage(t *testing.T) {
	err := WrapError(InvalidInputError("No files were uploaded."), "bind form")
	if got := Message(err); got != "No files were uploaded." {
		t.Errorf("Message = %q", got)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("wrapped error lost ErrInvalidInput")
	}
	if got := Message(errors.New("plain")); got != "plain" {
		t.Errorf("Message(plain) = %q", got)
	}
}
