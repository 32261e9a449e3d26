// Package model defines the core memory data types.
package model

import "time"

// TemporalLayer is the storage tier a memory lives in. The tier governs
// both the default TTL assigned at write time and the recall ranking weight.
type TemporalLayer string

const (
	LayerWorking TemporalLayer = "working"
	LayerShort   TemporalLayer = "short"
	LayerLong    TemporalLayer = "long"
	LayerArchive TemporalLayer = "archive"
)

// Status is the lifecycle state of a memory. Deleted is terminal.
type Status string

const (
	StatusActive        Status = "active"
	StatusExpired       Status = "expired"
	StatusPendingReview Status = "pending_review"
	StatusArchived      Status = "archived"
	StatusDeleted       Status = "deleted"
)

// ValidLayers are the allowed temporal layers.
var ValidLayers = map[TemporalLayer]bool{
	LayerWorking: true,
	LayerShort:   true,
	LayerLong:    true,
	LayerArchive: true,
}

// ValidTypes are the allowed memory types.
var ValidTypes = map[string]bool{
	"facts":       true,
	"experiences": true,
	"skills":      true,
	"preferences": true,
	"decisions":   true,
	"context":     true,
}

// LayerWeights are the recall ranking multipliers per temporal layer.
// The weighted score is not clamped and can exceed 1.0 for working-tier
// matches.
var LayerWeights = map[TemporalLayer]float64{
	LayerWorking: 1.5,
	LayerShort:   1.2,
	LayerLong:    1.0,
	LayerArchive: 0.5,
}

// Weight returns the recall multiplier for a layer, 1.0 for unknown values.
func (l TemporalLayer) Weight() float64 {
	if w, ok := LayerWeights[l]; ok {
		return w
	}
	return 1.0
}

// Agent identifies the owner of a set of memories. Agents are created on
// first write (upsert-on-write) and never deleted.
type Agent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Memory is a stored memory entry with its multi-layer representation.
// Layer1 and Layer2 carry embeddings; Layer3 is kept for detail expansion
// only and is never embedded.
type Memory struct {
	ID              string        `json:"id"`
	AgentID         string        `json:"agent_id"`
	Layer1          string        `json:"layer1"`
	Layer2          string        `json:"layer2"`
	Layer3          string        `json:"layer3"`
	Layer1Embedding []float32     `json:"-"`
	Layer2Embedding []float32     `json:"-"`
	Tags            []string      `json:"tags,omitempty"`
	MemoryType      string        `json:"memory_type"`
	TemporalLayer   TemporalLayer `json:"temporal_layer"`
	Status          Status        `json:"status"`
	ImportanceScore float64       `json:"importance_score"`
	Domain          string        `json:"domain,omitempty"`
	SourceType      string        `json:"source_type,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	ExpiresAt       *time.Time    `json:"expires_at,omitempty"`
	LastAccessed    *time.Time    `json:"last_accessed,omitempty"`
	AccessCount     int           `json:"access_count"`
}

// AccessLogEntry is one append-only record of a memory being returned
// from a recall. Never updated or deleted.
type AccessLogEntry struct {
	MemoryID       string    `json:"memory_id"`
	AgentID        string    `json:"agent_id"`
	LayerAccessed  int       `json:"layer_accessed"`
	QueryText      string    `json:"query_text"`
	RelevanceScore float64   `json:"relevance_score"`
	AccessedAt     time.Time `json:"accessed_at"`
}

// ReviewLogEntry is one append-only audit record of a lifecycle transition.
// Together these rows form the complete history of how a memory moved
// between tiers.
type ReviewLogEntry struct {
	MemoryID  string        `json:"memory_id"`
	Decision  string        `json:"decision"`
	OldLayer  TemporalLayer `json:"old_layer"`
	NewLayer  TemporalLayer `json:"new_layer"`
	Reason    string        `json:"reason,omitempty"`
	DecidedAt time.Time     `json:"decided_at"`
}
