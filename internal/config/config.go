// Package config loads settings from ~/.tempora/config.yaml with
// environment overrides. Precedence: flags > environment > file > defaults.
package config

import (
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/agentmem/tempora/internal/embedding"
)

// Config is the file shape. Zero values mean "not set".
type Config struct {
	DBPath    string           `yaml:"db_path"`
	APIURL    string           `yaml:"api_url"`
	Embedding embedding.Config `yaml:"embedding"`
	Sleep     SleepConfig      `yaml:"sleep"`
}

// SleepConfig tunes the consolidation cycle.
type SleepConfig struct {
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

// DefaultPath returns the config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tempora", "config.yaml")
}

// Load reads the config file, then applies environment overrides. A missing
// file is fine; a malformed one is logged and ignored rather than failing
// the command.
func Load() Config {
	return loadFrom(DefaultPath())
}

func loadFrom(path string) Config {
	var cfg Config
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			log.Printf("[config] ignoring malformed %s: %v", path, err)
			cfg = Config{}
		}
	}
	applyEnv(&cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	setIfEnv(&cfg.DBPath, "TEMPORA_DB")
	setIfEnv(&cfg.APIURL, "TEMPORA_API_URL")
	setIfEnv(&cfg.Embedding.Provider, "TEMPORA_EMBED_PROVIDER")
	setIfEnv(&cfg.Embedding.Model, "TEMPORA_EMBED_MODEL")
	setIfEnv(&cfg.Embedding.BaseURL, "TEMPORA_EMBED_URL")
	setIfEnv(&cfg.Embedding.APIKey, "OPENAI_API_KEY")
	setIfEnv(&cfg.Sleep.Model, "TEMPORA_SLEEP_MODEL")
}

func setIfEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
