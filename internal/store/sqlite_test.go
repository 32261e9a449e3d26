package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentmem/tempora/internal/lifecycle"
	"github.com/agentmem/tempora/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestMemory(t *testing.T, s *SQLiteStore, agentID string, p InsertParams) *model.Memory {
	t.Helper()
	p.AgentID = agentID
	if p.Layer1 == "" {
		p.Layer1 = "test memory"
		p.Layer2 = "test memory"
		p.Layer3 = "test memory"
	}
	if p.MemoryType == "" {
		p.MemoryType = "facts"
	}
	if p.TemporalLayer == "" {
		p.TemporalLayer = model.LayerWorking
	}
	m, err := s.Insert(context.Background(), p)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return m
}

func TestEnsureAgentIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id1, err := s.EnsureAgent(ctx, "main")
	if err != nil {
		t.Fatalf("ensure agent: %v", err)
	}
	id2, err := s.EnsureAgent(ctx, "main")
	if err != nil {
		t.Fatalf("ensure agent again: %v", err)
	}
	if id1 != id2 {
		t.Errorf("agent ids differ across upserts: %s vs %s", id1, id2)
	}

	resolved, err := s.AgentID(ctx, "main")
	if err != nil || resolved != id1 {
		t.Errorf("AgentID = %q, %v; want %q", resolved, err, id1)
	}
	missing, err := s.AgentID(ctx, "nobody")
	if err != nil || missing != "" {
		t.Errorf("AgentID for unknown agent = %q, %v; want empty", missing, err)
	}
}

func TestInsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	agentID, _ := s.EnsureAgent(ctx, "main")

	exp := time.Now().Add(2 * time.Hour)
	m := insertTestMemory(t, s, agentID, InsertParams{
		Layer1:          "short summary",
		Layer2:          "short summary with context",
		Layer3:          "short summary with context and all the details",
		Layer1Embedding: []float32{0.1, 0.2, 0.3},
		Layer2Embedding: []float32{0.4, 0.5, 0.6},
		Tags:            []string{"alpha", "beta"},
		MemoryType:      "facts",
		TemporalLayer:   model.LayerWorking,
		ImportanceScore: 0.5,
		Domain:          "projects",
		ExpiresAt:       &exp,
	})

	got, err := s.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Layer1 != "short summary" || got.Layer3 != "short summary with context and all the details" {
		t.Errorf("layers round-trip failed: %+v", got)
	}
	if len(got.Layer1Embedding) != 3 || got.Layer1Embedding[1] != 0.2 {
		t.Errorf("layer1 embedding = %v, want [0.1 0.2 0.3]", got.Layer1Embedding)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "alpha" {
		t.Errorf("tags = %v", got.Tags)
	}
	if got.Status != model.StatusActive || got.ExpiresAt == nil {
		t.Errorf("status/expiry: %+v", got)
	}
	if got.Domain != "projects" {
		t.Errorf("domain = %q", got.Domain)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "01MISSING")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCandidatesFiltering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	agentID, _ := s.EnsureAgent(ctx, "main")

	working := insertTestMemory(t, s, agentID, InsertParams{TemporalLayer: model.LayerWorking, Tags: []string{"db"}})
	long := insertTestMemory(t, s, agentID, InsertParams{TemporalLayer: model.LayerLong, MemoryType: "decisions", Domain: "projects"})
	archived := insertTestMemory(t, s, agentID, InsertParams{TemporalLayer: model.LayerArchive})
	past := time.Now().Add(-time.Hour)
	lapsed := insertTestMemory(t, s, agentID, InsertParams{TemporalLayer: model.LayerWorking, ExpiresAt: &past})

	defaultLayers := []model.TemporalLayer{model.LayerWorking, model.LayerShort, model.LayerLong}

	got, err := s.Candidates(ctx, CandidateQuery{AgentID: agentID, Layers: defaultLayers})
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	ids := map[string]bool{}
	for _, m := range got {
		ids[m.ID] = true
	}
	if !ids[working.ID] || !ids[long.ID] {
		t.Errorf("expected working and long memories in candidates, got %v", ids)
	}
	if ids[archived.ID] {
		t.Error("archive tier must be excluded from the default layer set")
	}
	if ids[lapsed.ID] {
		t.Error("lapsed memory must be excluded from candidates")
	}

	// Archive included only when asked for.
	got, _ = s.Candidates(ctx, CandidateQuery{AgentID: agentID, Layers: append(defaultLayers, model.LayerArchive)})
	found := false
	for _, m := range got {
		if m.ID == archived.ID {
			found = true
		}
	}
	if !found {
		t.Error("archive tier missing even though it was in the layer set")
	}

	// Tag intersection.
	got, _ = s.Candidates(ctx, CandidateQuery{AgentID: agentID, Layers: defaultLayers, Tags: []string{"db", "other"}})
	if len(got) != 1 || got[0].ID != working.ID {
		t.Errorf("tag filter returned %d rows, want just the tagged one", len(got))
	}

	// Type and domain equality.
	got, _ = s.Candidates(ctx, CandidateQuery{AgentID: agentID, Layers: defaultLayers, MemoryType: "decisions", Domain: "projects"})
	if len(got) != 1 || got[0].ID != long.ID {
		t.Errorf("type/domain filter returned %d rows", len(got))
	}
}

func TestPendingReviewSweep(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	agentID, _ := s.EnsureAgent(ctx, "main")

	past := time.Now().Add(-time.Hour)
	lapsed := insertTestMemory(t, s, agentID, InsertParams{ExpiresAt: &past})
	future := time.Now().Add(time.Hour)
	alive := insertTestMemory(t, s, agentID, InsertParams{ExpiresAt: &future})

	// Status stays active until something pulls the pending set.
	got, _ := s.Get(ctx, lapsed.ID)
	if got.Status != model.StatusActive {
		t.Fatalf("status = %s before sweep, want active", got.Status)
	}

	pending, total, err := s.PendingReview(ctx, agentID, 10)
	if err != nil {
		t.Fatalf("pending review: %v", err)
	}
	if total != 1 || len(pending) != 1 || pending[0].ID != lapsed.ID {
		t.Fatalf("pending = %d/%d, want exactly the lapsed memory", len(pending), total)
	}
	if pending[0].Status != model.StatusExpired {
		t.Errorf("pending status = %s, want expired", pending[0].Status)
	}
	if pending[0].AgeHours < 0 {
		t.Errorf("age hours = %f", pending[0].AgeHours)
	}

	got, _ = s.Get(ctx, lapsed.ID)
	if got.Status != model.StatusExpired {
		t.Errorf("sweep did not persist the expired status")
	}
	got, _ = s.Get(ctx, alive.ID)
	if got.Status != model.StatusActive {
		t.Errorf("unexpired memory was swept")
	}
}

func TestApplyDecisionPromote(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	agentID, _ := s.EnsureAgent(ctx, "main")

	past := time.Now().Add(-time.Hour)
	m := insertTestMemory(t, s, agentID, InsertParams{ExpiresAt: &past, ImportanceScore: 0.4})
	s.PendingReview(ctx, agentID, 10)

	res, err := s.ApplyDecision(ctx, m.ID, lifecycle.Request{Decision: lifecycle.DecisionPromote, Reason: "keeper"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.NewLayer != model.LayerLong || res.Status != model.StatusActive {
		t.Errorf("result = %+v", res)
	}

	got, _ := s.Get(ctx, m.ID)
	if got.ExpiresAt != nil {
		t.Error("promote must clear expires_at")
	}
	if got.ImportanceScore != 0.7 {
		t.Errorf("importance = %f, want 0.7", got.ImportanceScore)
	}

	log, err := s.ReviewLog(ctx, m.ID)
	if err != nil {
		t.Fatalf("review log: %v", err)
	}
	if len(log) != 1 {
		t.Fatalf("review log has %d entries, want exactly 1 per transition", len(log))
	}
	if log[0].OldLayer != model.LayerWorking || log[0].NewLayer != model.LayerLong || log[0].Reason != "keeper" {
		t.Errorf("log entry = %+v", log[0])
	}
}

func TestApplyDecisionErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	agentID, _ := s.EnsureAgent(ctx, "main")
	m := insertTestMemory(t, s, agentID, InsertParams{})

	if _, err := s.ApplyDecision(ctx, "01MISSING", lifecycle.Request{Decision: lifecycle.DecisionArchive}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: err = %v, want ErrNotFound", err)
	}

	if _, err := s.ApplyDecision(ctx, m.ID, lifecycle.Request{Decision: "shrug"}); !errors.Is(err, lifecycle.ErrUnknownDecision) {
		t.Errorf("bad decision: err = %v, want ErrUnknownDecision", err)
	}

	// The row is still active, so promote is rejected before the sweep.
	if _, err := s.ApplyDecision(ctx, m.ID, lifecycle.Request{Decision: lifecycle.DecisionPromote}); !errors.Is(err, lifecycle.ErrNotReviewable) {
		t.Errorf("promote on active row: err = %v, want ErrNotReviewable", err)
	}
	// And no mutation happened.
	got, _ := s.Get(ctx, m.ID)
	if got.Status != model.StatusActive {
		t.Error("failed decision must not mutate the row")
	}
	if log, _ := s.ReviewLog(ctx, m.ID); len(log) != 0 {
		t.Error("failed decision must not append a review log entry")
	}
}

func TestLogAccess(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	agentID, _ := s.EnsureAgent(ctx, "main")
	m := insertTestMemory(t, s, agentID, InsertParams{})

	err := s.LogAccess(ctx, []model.AccessLogEntry{{
		MemoryID:       m.ID,
		AgentID:        agentID,
		LayerAccessed:  2,
		QueryText:      "what database",
		RelevanceScore: 0.82,
		AccessedAt:     time.Now(),
	}})
	if err != nil {
		t.Fatalf("log access: %v", err)
	}

	got, _ := s.Get(ctx, m.ID)
	if got.AccessCount != 1 || got.LastAccessed == nil {
		t.Errorf("access accounting not updated: count=%d last=%v", got.AccessCount, got.LastAccessed)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	agentID, _ := s.EnsureAgent(ctx, "main")

	insertTestMemory(t, s, agentID, InsertParams{TemporalLayer: model.LayerWorking, ImportanceScore: 0.4})
	long := insertTestMemory(t, s, agentID, InsertParams{TemporalLayer: model.LayerLong, ImportanceScore: 0.8})
	s.ApplyDecision(ctx, long.ID, lifecycle.Request{Decision: lifecycle.DecisionDelete})

	st, err := s.Stats(ctx, agentID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalMemories != 1 {
		t.Errorf("total = %d, deleted rows must not count", st.TotalMemories)
	}
	if st.ByStatus["deleted"] != 1 {
		t.Errorf("by_status = %v", st.ByStatus)
	}
	if st.ByLayer["working"] != 1 {
		t.Errorf("by_layer = %v", st.ByLayer)
	}
}
