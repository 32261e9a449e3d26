// Package engine composes the store, the layering/classification rules and
// the embedder into the remember/recall/review operations.
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/agentmem/tempora/internal/classify"
	"github.com/agentmem/tempora/internal/embedding"
	"github.com/agentmem/tempora/internal/layering"
	"github.com/agentmem/tempora/internal/lifecycle"
	"github.com/agentmem/tempora/internal/model"
	"github.com/agentmem/tempora/internal/store"
)

const (
	// DefaultWorkingTTL is the expiry assigned to working-tier writes that
	// carry no explicit TTL.
	DefaultWorkingTTL = 2 * time.Hour

	defaultRecallLimit = 10
	defaultMaxLayer    = 2
)

// Engine is an explicitly constructed handle over one store and one
// embedder. There is no process-wide instance; callers inject it.
type Engine struct {
	store    store.Store
	embedder embedding.Embedder
}

// New creates an engine. The embedder may be nil for callers that only use
// the review/stats paths.
func New(s store.Store, e embedding.Embedder) *Engine {
	return &Engine{store: s, embedder: e}
}

// Store exposes the underlying store for callers composing further
// operations (the consolidation cycle).
func (e *Engine) Store() store.Store { return e.store }

// RememberParams holds the ingestion inputs.
type RememberParams struct {
	Content         string
	AgentName       string
	Tags            []string
	SourceType      string
	ImportanceScore float64 // 0 means default 0.5
	MemoryType      string  // classified from content when empty
	TemporalLayer   model.TemporalLayer
	TTLHours        int // honored only for the working tier
	Domain          string
}

// Remember stores a new memory: derives the content layers, classifies the
// type, embeds layer1 and layer2, and persists the row under the named
// agent (created on first use).
func (e *Engine) Remember(ctx context.Context, p RememberParams) (*model.Memory, error) {
	if p.Content == "" {
		return nil, fmt.Errorf("content is required")
	}
	if p.AgentName == "" {
		p.AgentName = "default"
	}
	layer := p.TemporalLayer
	if layer == "" {
		layer = model.LayerWorking
	}
	if !model.ValidLayers[layer] {
		return nil, fmt.Errorf("invalid temporal layer %q", layer)
	}
	memType := p.MemoryType
	if memType == "" {
		memType = classify.MemoryType(p.Content, p.Tags)
	} else if !model.ValidTypes[memType] {
		return nil, fmt.Errorf("invalid memory type %q", memType)
	}
	importance := p.ImportanceScore
	if importance == 0 {
		importance = 0.5
	}
	if importance < 0 || importance > 1 {
		return nil, fmt.Errorf("importance score %f out of [0,1]", importance)
	}

	layers := layering.Derive(p.Content)

	if e.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	emb1, err := e.embedder.Embed(ctx, layers.Layer1)
	if err != nil {
		return nil, fmt.Errorf("embed layer1: %w", err)
	}
	emb2, err := e.embedder.Embed(ctx, layers.Layer2)
	if err != nil {
		return nil, fmt.Errorf("embed layer2: %w", err)
	}

	agentID, err := e.store.EnsureAgent(ctx, p.AgentName)
	if err != nil {
		return nil, err
	}

	// TTL applies to working memories only; longer tiers lapse via review
	// decisions, not at write time.
	var expiresAt *time.Time
	if layer == model.LayerWorking {
		ttl := DefaultWorkingTTL
		if p.TTLHours > 0 {
			ttl = time.Duration(p.TTLHours) * time.Hour
		}
		exp := time.Now().Add(ttl)
		expiresAt = &exp
	}

	return e.store.Insert(ctx, store.InsertParams{
		AgentID:         agentID,
		Layer1:          layers.Layer1,
		Layer2:          layers.Layer2,
		Layer3:          layers.Layer3,
		Layer1Embedding: emb1,
		Layer2Embedding: emb2,
		Tags:            p.Tags,
		MemoryType:      memType,
		TemporalLayer:   layer,
		ImportanceScore: importance,
		Domain:          p.Domain,
		SourceType:      p.SourceType,
		ExpiresAt:       expiresAt,
	})
}

// RecallParams holds the retrieval inputs.
type RecallParams struct {
	Query          string
	AgentName      string
	Tags           []string
	MemoryType     string
	Domain         string
	Layers         []model.TemporalLayer // empty means working+short+long
	MaxLayer       int                   // 1-3, default 2
	Limit          int                   // default 10
	MinScore       float64
	IncludeArchive bool
}

// RecallResult is one ranked match.
type RecallResult struct {
	ID              string              `json:"id"`
	Content         string              `json:"content"`
	Tags            []string            `json:"tags,omitempty"`
	ImportanceScore float64             `json:"importance_score"`
	AccessCount     int                 `json:"access_count"`
	Similarity      float64             `json:"similarity"`
	CreatedAt       time.Time           `json:"created_at"`
	MemoryType      string              `json:"memory_type"`
	TemporalLayer   model.TemporalLayer `json:"temporal_layer"`
	ExpiresAt       *time.Time          `json:"expires_at,omitempty"`
	Domain          string              `json:"domain,omitempty"`
}

// Recall runs the temporal-weighted similarity search. The similarity of
// each result is base cosine similarity times the tier weight, uncapped, so
// working-tier matches can legitimately score above 1.0. An unknown agent
// yields an empty result, not an error.
func (e *Engine) Recall(ctx context.Context, p RecallParams) ([]RecallResult, error) {
	if p.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if p.AgentName == "" {
		p.AgentName = "default"
	}
	if p.Limit <= 0 {
		p.Limit = defaultRecallLimit
	}
	maxLayer := p.MaxLayer
	if maxLayer <= 0 {
		maxLayer = defaultMaxLayer
	}
	if e.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}

	layers := p.Layers
	if len(layers) == 0 {
		layers = []model.TemporalLayer{model.LayerWorking, model.LayerShort, model.LayerLong}
		if p.IncludeArchive {
			layers = append(layers, model.LayerArchive)
		}
	}
	for _, l := range layers {
		if !model.ValidLayers[l] {
			return nil, fmt.Errorf("invalid temporal layer %q", l)
		}
	}

	agentID, err := e.store.AgentID(ctx, p.AgentName)
	if err != nil {
		return nil, err
	}
	if agentID == "" {
		return nil, nil
	}

	// The query is embedded once, against the layer1 space.
	queryVec, err := e.embedder.Embed(ctx, p.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := e.store.Candidates(ctx, store.CandidateQuery{
		AgentID:    agentID,
		Layers:     layers,
		Tags:       p.Tags,
		MemoryType: p.MemoryType,
		Domain:     p.Domain,
	})
	if err != nil {
		return nil, err
	}

	type scored struct {
		mem      model.Memory
		weighted float64
	}
	var hits []scored
	for _, m := range candidates {
		base := embedding.CosineSimilarity(queryVec, m.Layer1Embedding)
		weighted := base * m.TemporalLayer.Weight()
		if weighted < p.MinScore {
			continue
		}
		hits = append(hits, scored{mem: m, weighted: weighted})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].weighted != hits[j].weighted {
			return hits[i].weighted > hits[j].weighted
		}
		return hits[i].mem.ImportanceScore > hits[j].mem.ImportanceScore
	})
	if len(hits) > p.Limit {
		hits = hits[:p.Limit]
	}

	now := time.Now()
	results := make([]RecallResult, 0, len(hits))
	access := make([]model.AccessLogEntry, 0, len(hits))
	for _, h := range hits {
		m := h.mem
		results = append(results, RecallResult{
			ID:              m.ID,
			Content:         contentForLayer(m, maxLayer),
			Tags:            m.Tags,
			ImportanceScore: m.ImportanceScore,
			AccessCount:     m.AccessCount,
			Similarity:      h.weighted,
			CreatedAt:       m.CreatedAt,
			MemoryType:      m.MemoryType,
			TemporalLayer:   m.TemporalLayer,
			ExpiresAt:       m.ExpiresAt,
			Domain:          m.Domain,
		})
		access = append(access, model.AccessLogEntry{
			MemoryID:       m.ID,
			AgentID:        agentID,
			LayerAccessed:  maxLayer,
			QueryText:      p.Query,
			RelevanceScore: h.weighted,
			AccessedAt:     now,
		})
	}

	// Access logging is best-effort: a failure must not invalidate an
	// otherwise successful recall.
	if err := e.store.LogAccess(ctx, access); err != nil {
		log.Printf("[recall] access log append failed: %v", err)
	}

	return results, nil
}

// contentForLayer picks the most detailed available layer not exceeding max.
func contentForLayer(m model.Memory, max int) string {
	content := m.Layer1
	if max >= 2 && m.Layer2 != "" {
		content = m.Layer2
	}
	if max >= 3 && m.Layer3 != "" {
		content = m.Layer3
	}
	return content
}

// PendingReview lists memories awaiting a lifecycle decision for an agent.
// Unknown agents yield an empty set.
func (e *Engine) PendingReview(ctx context.Context, agentName string, limit int) ([]store.PendingMemory, int, error) {
	if agentName == "" {
		agentName = "default"
	}
	agentID, err := e.store.AgentID(ctx, agentName)
	if err != nil {
		return nil, 0, err
	}
	if agentID == "" {
		return nil, 0, nil
	}
	return e.store.PendingReview(ctx, agentID, limit)
}

// Decide applies one lifecycle decision to a memory.
func (e *Engine) Decide(ctx context.Context, memoryID string, req lifecycle.Request) (*store.DecisionResult, error) {
	return e.store.ApplyDecision(ctx, memoryID, req)
}

// Stats returns aggregate statistics for an agent.
func (e *Engine) Stats(ctx context.Context, agentName string) (*store.Stats, error) {
	if agentName == "" {
		agentName = "default"
	}
	agentID, err := e.store.AgentID(ctx, agentName)
	if err != nil {
		return nil, err
	}
	if agentID == "" {
		return &store.Stats{ByLayer: map[string]int{}, ByStatus: map[string]int{}}, nil
	}
	return e.store.Stats(ctx, agentID)
}
