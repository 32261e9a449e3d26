package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
db_path: /tmp/mem.db
api_url: http://localhost:8765
embedding:
  provider: ollama
  model: all-minilm
sleep:
  model: claude-3-5-haiku-20241022
  batch_size: 10
`)

	cfg := loadFrom(path)
	if cfg.DBPath != "/tmp/mem.db" || cfg.APIURL != "http://localhost:8765" {
		t.Errorf("paths = %q %q", cfg.DBPath, cfg.APIURL)
	}
	if cfg.Embedding.Provider != "ollama" || cfg.Embedding.Model != "all-minilm" {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Sleep.BatchSize != 10 || cfg.Sleep.Model != "claude-3-5-haiku-20241022" {
		t.Errorf("sleep = %+v", cfg.Sleep)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg := loadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if cfg.Embedding.Provider != os.Getenv("TEMPORA_EMBED_PROVIDER") {
		t.Errorf("missing file must yield env-only config, got %+v", cfg)
	}
}

func TestLoadMalformedFileIgnored(t *testing.T) {
	path := writeConfig(t, "embedding: [not a map")
	cfg := loadFrom(path)
	if cfg.DBPath != os.Getenv("TEMPORA_DB") {
		t.Errorf("malformed file must be ignored, got %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: ollama
  model: from-file
`)
	t.Setenv("TEMPORA_EMBED_PROVIDER", "openai")
	t.Setenv("TEMPORA_EMBED_MODEL", "text-embedding-3-small")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := loadFrom(path)
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("provider = %q, env must win over file", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("model = %q", cfg.Embedding.Model)
	}
	if cfg.Embedding.APIKey != "sk-test" {
		t.Errorf("api key not picked up from env")
	}
}

func TestEnvLeavesFileValuesWhenUnset(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: ollama
`)
	t.Setenv("TEMPORA_EMBED_PROVIDER", "")
	cfg := loadFrom(path)
	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("empty env var must not clobber file value, got %q", cfg.Embedding.Provider)
	}
}
