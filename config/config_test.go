package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OLLAMA_HOST", "OLLAMA_MODEL", "DOCQA_EMBED_MODEL", "DOCQA_ADDR", "DOCQA_INDEX_DIR", "DATABASE_URL", "DOCQA_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chunk.Size != 800 {
		t.Errorf("expected Chunk.Size=800, got %d", cfg.Chunk.Size)
	}
	if cfg.Chunk.Overlap != 150 {
		t.Errorf("expected Chunk.Overlap=150, got %d", cfg.Chunk.Overlap)
	}
	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Generation.Model != "llama3.2:3b" {
		t.Errorf("expected generation model llama3.2:3b, got %s", cfg.Generation.Model)
	}
	if cfg.Generation.Timeout != 300*time.Second {
		t.Errorf("expected generation timeout 300s, got %s", cfg.Generation.Timeout)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("default config should validate, got %v", errs)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "docqa.yaml")

	content := `
chunk:
  size: 400
  overlap: 40
retrieve:
  top_k: 10
embedding:
  provider: hash
  dimension: 64
  timeout: 45s
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Chunk.Size != 400 || cfg.Chunk.Overlap != 40 {
		t.Errorf("expected chunk 400/40, got %d/%d", cfg.Chunk.Size, cfg.Chunk.Overlap)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Embedding.Timeout != 45*time.Second {
		t.Errorf("expected embedding timeout 45s, got %s", cfg.Embedding.Timeout)
	}
	// Untouched fields keep their defaults.
	if cfg.Embedding.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.Embedding.MaxRetries)
	}
}

func TestLoadFromDir(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".docqa"), 0755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, ".docqa", "config.yaml")

	content := `
assemble:
  max_context_units: 8000
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Assemble.MaxContextUnits != 8000 {
		t.Errorf("expected MaxContextUnits=8000, got %d", cfg.Assemble.MaxContextUnits)
	}
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("OLLAMA_MODEL", "mistral")
	t.Setenv("DOCQA_ADDR", ":9000")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Embedding.BaseURL != "http://gpu-box:11434" {
		t.Errorf("embedding base URL not overridden: %s", cfg.Embedding.BaseURL)
	}
	if cfg.Generation.BaseURL != "http://gpu-box:11434" {
		t.Errorf("generation base URL not overridden: %s", cfg.Generation.BaseURL)
	}
	if cfg.Generation.Model != "mistral" {
		t.Errorf("expected model mistral, got %s", cfg.Generation.Model)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("expected addr :9000, got %s", cfg.Server.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"overlap equals size", func(c *Config) { c.Chunk.Overlap = c.Chunk.Size }, "chunk.overlap"},
		{"negative overlap", func(c *Config) { c.Chunk.Overlap = -1 }, "chunk.overlap"},
		{"zero size", func(c *Config) { c.Chunk.Size = 0 }, "chunk.size"},
		{"unknown metric", func(c *Config) { c.Index.Metric = "l2" }, "index.metric"},
		{"unknown unit", func(c *Config) { c.Assemble.Unit = "tokens" }, "assemble.unit"},
		{"zero budget", func(c *Config) { c.Assemble.MaxContextUnits = 0 }, "assemble.max_context_units"},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "voyage" }, "embedding.provider"},
		{"hash without dimension", func(c *Config) { c.Embedding.Provider = "hash" }, "embedding.dimension"},
		{"bad url", func(c *Config) { c.Generation.BaseURL = "localhost" }, "generation.base_url"},
		{"zero timeout", func(c *Config) { c.Embedding.Timeout = 0 }, "embedding.timeout"},
		{"max_top_k below top_k", func(c *Config) { c.Retrieve.MaxTopK = 1 }, "retrieve.max_top_k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
			if errs.Err() == nil || !strings.Contains(errs.Err().Error(), tt.field) {
				t.Errorf("aggregated error should mention %s", tt.field)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "docqa.yaml")
	cfg := DefaultConfig()
	cfg.Retrieve.MinScoreThreshold = 0.25

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Retrieve.MinScoreThreshold != 0.25 {
		t.Errorf("expected threshold 0.25, got %f", loaded.Retrieve.MinScoreThreshold)
	}
	if loaded.Generation.Timeout != cfg.Generation.Timeout {
		t.Errorf("timeout did not survive round trip: %s", loaded.Generation.Timeout)
	}
}

func TestIndexDir(t *testing.T) {
	cfg := DefaultConfig()
	got := cfg.IndexDir("/home/user/project")
	expected := filepath.Join("/home/user/project", ".docqa")
	if got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}

	cfg.Index.Dir = "/var/lib/docqa"
	if got := cfg.IndexDir("/home/user/project"); got != "/var/lib/docqa" {
		t.Errorf("absolute dir should win, got %s", got)
	}
}
