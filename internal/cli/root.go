// Package cli implements the tempora CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentmem/tempora/internal/config"
	"github.com/agentmem/tempora/internal/embedding"
	"github.com/agentmem/tempora/internal/engine"
	"github.com/agentmem/tempora/internal/queue"
	"github.com/agentmem/tempora/internal/store"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "tempora",
	Short: "Temporal memory for AI agents",
	Long:  "Multi-layer agent memory with tiered expiry, semantic recall and LLM-driven consolidation. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $TEMPORA_DB or ~/.tempora/memory.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if p := config.Load().DBPath; p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tempora", "memory.db")
}

func queuePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tempora", "queue.jsonl")
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

// openEngine wires the store and the configured embedder into an engine.
// The embedder is required for remember/recall; review and stats paths can
// run without one.
func openEngine(needEmbedder bool) (*engine.Engine, *store.SQLiteStore, error) {
	s, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	cfg := config.Load()
	emb := embedding.NewFromConfig(cfg.Embedding)
	if emb == nil && needEmbedder {
		s.Close()
		return nil, nil, fmt.Errorf("no embedding provider configured (set TEMPORA_EMBED_PROVIDER or embedding.provider in %s)", config.DefaultPath())
	}
	if emb != nil {
		emb = embedding.Cached(emb)
	}

	return engine.New(s, emb), s, nil
}

func openQueue() *queue.Queue {
	return queue.New(queuePath())
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
