// Package store provides the memory storage interface and SQLite implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/agentmem/tempora/internal/lifecycle"
	"github.com/agentmem/tempora/internal/model"
)

// ErrNotFound is returned when a memory id does not exist.
var ErrNotFound = errors.New("memory not found")

// InsertParams holds a fully derived memory ready for persistence.
type InsertParams struct {
	AgentID         string
	Layer1          string
	Layer2          string
	Layer3          string
	Layer1Embedding []float32
	Layer2Embedding []float32
	Tags            []string
	MemoryType      string
	TemporalLayer   model.TemporalLayer
	ImportanceScore float64
	Domain          string
	SourceType      string
	ExpiresAt       *time.Time
}

// CandidateQuery selects recall candidates. The caller resolves the
// effective layer set before querying; rows returned are always active,
// unexpired, and owned by the agent.
type CandidateQuery struct {
	AgentID    string
	Layers     []model.TemporalLayer
	Tags       []string
	MemoryType string
	Domain     string
}

// PendingMemory is a memory awaiting review, with age fields derived at
// query time.
type PendingMemory struct {
	model.Memory
	AgeHours         float64 `json:"age_hours"`
	HoursSinceAccess float64 `json:"hours_since_access"`
}

// DecisionResult summarizes an applied lifecycle transition.
type DecisionResult struct {
	MemoryID   string              `json:"memory_id"`
	Decision   string              `json:"decision"`
	OldLayer   model.TemporalLayer `json:"old_layer"`
	NewLayer   model.TemporalLayer `json:"new_layer"`
	Status     model.Status        `json:"status"`
	ExpiresAt  *time.Time          `json:"expires_at,omitempty"`
	Importance float64             `json:"importance_score"`
}

// Stats holds per-agent memory statistics.
type Stats struct {
	TotalMemories     int            `json:"total_memories"`
	ByLayer           map[string]int `json:"by_layer"`
	ByStatus          map[string]int `json:"by_status"`
	AverageImportance float64        `json:"average_importance"`
	TotalAccesses     int            `json:"total_accesses"`
	PendingReview     int            `json:"pending_review"`
}

// Store defines the memory storage interface. The store exclusively owns
// all entities; every mutation round-trips through it so concurrent
// callers observe consistent state.
type Store interface {
	// EnsureAgent upserts an agent by name and returns its id.
	EnsureAgent(ctx context.Context, name string) (string, error)

	// AgentID resolves an agent name without creating it. Returns "" when
	// the agent does not exist.
	AgentID(ctx context.Context, name string) (string, error)

	// Insert persists one new memory row.
	Insert(ctx context.Context, p InsertParams) (*model.Memory, error)

	// Get returns a memory by id regardless of status.
	Get(ctx context.Context, id string) (*model.Memory, error)

	// Candidates returns recall candidate rows with layer1 embeddings decoded.
	Candidates(ctx context.Context, q CandidateQuery) ([]model.Memory, error)

	// PendingReview sweeps lapsed active rows to expired (the lazy
	// pull-based transition) and returns up to limit pending memories
	// plus the total pending count.
	PendingReview(ctx context.Context, agentID string, limit int) ([]PendingMemory, int, error)

	// ApplyDecision runs one lifecycle transition and its audit log entry
	// in a single transaction.
	ApplyDecision(ctx context.Context, memoryID string, req lifecycle.Request) (*DecisionResult, error)

	// LogAccess appends access log rows and bumps the access counters of
	// the referenced memories.
	LogAccess(ctx context.Context, entries []model.AccessLogEntry) error

	// ReviewLog returns the transition history for a memory, oldest first.
	ReviewLog(ctx context.Context, memoryID string) ([]model.ReviewLogEntry, error)

	// Stats returns aggregate statistics for an agent.
	Stats(ctx context.Context, agentID string) (*Stats, error)

	// Close closes the store.
	Close() error
}
