package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/agentmem/tempora/internal/model"
)

func expiredMemory() *model.Memory {
	exp := time.Now().Add(-time.Hour)
	return &model.Memory{
		ID:              "01TEST",
		TemporalLayer:   model.LayerWorking,
		Status:          model.StatusExpired,
		ImportanceScore: 0.5,
		ExpiresAt:       &exp,
	}
}

func TestPromote(t *testing.T) {
	now := time.Now()
	mem := expiredMemory()

	ch, err := Transition(mem, Request{Decision: DecisionPromote, Reason: "key learning"}, now)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if ch.NewLayer != model.LayerLong {
		t.Errorf("layer = %s, want long (default)", ch.NewLayer)
	}
	if ch.NewStatus != model.StatusActive {
		t.Errorf("status = %s, want active", ch.NewStatus)
	}
	if ch.NewExpiresAt != nil {
		t.Error("promote must clear expires_at")
	}
	if ch.NewImportance != 0.7 {
		t.Errorf("importance = %f, want raised to 0.7", ch.NewImportance)
	}
}

func TestPromoteKeepsHigherImportance(t *testing.T) {
	mem := expiredMemory()
	mem.ImportanceScore = 0.9

	ch, err := Transition(mem, Request{Decision: DecisionPromote}, time.Now())
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if ch.NewImportance != 0.9 {
		t.Errorf("importance = %f, promotion must never lower the score", ch.NewImportance)
	}
}

func TestExtendDefaults(t *testing.T) {
	now := time.Now()

	// Target layer short: 168h default.
	ch, err := Transition(expiredMemory(), Request{Decision: DecisionExtend, NewLayer: model.LayerShort}, now)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if ch.NewExpiresAt == nil || !ch.NewExpiresAt.Equal(now.Add(168*time.Hour)) {
		t.Errorf("expires_at = %v, want now+168h for short tier", ch.NewExpiresAt)
	}

	// Layer unchanged (working): 24h default.
	ch, err = Transition(expiredMemory(), Request{Decision: DecisionExtend}, now)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if ch.NewLayer != model.LayerWorking {
		t.Errorf("layer = %s, want unchanged", ch.NewLayer)
	}
	if ch.NewExpiresAt == nil || !ch.NewExpiresAt.Equal(now.Add(24*time.Hour)) {
		t.Errorf("expires_at = %v, want now+24h", ch.NewExpiresAt)
	}
	if !ch.NewExpiresAt.After(now) {
		t.Error("extend must produce an expiry strictly after the call time")
	}
}

func TestExtendExplicitTTL(t *testing.T) {
	now := time.Now()
	ch, err := Transition(expiredMemory(), Request{Decision: DecisionExtend, TTLHours: 6}, now)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !ch.NewExpiresAt.Equal(now.Add(6 * time.Hour)) {
		t.Errorf("expires_at = %v, want now+6h", ch.NewExpiresAt)
	}
}

func TestArchive(t *testing.T) {
	ch, err := Transition(expiredMemory(), Request{Decision: DecisionArchive}, time.Now())
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if ch.NewLayer != model.LayerArchive || ch.NewStatus != model.StatusArchived {
		t.Errorf("got layer=%s status=%s, want archive/archived", ch.NewLayer, ch.NewStatus)
	}
	if ch.NewExpiresAt != nil {
		t.Error("archive must clear expires_at")
	}
}

func TestDeleteKeepsLayer(t *testing.T) {
	mem := expiredMemory()
	ch, err := Transition(mem, Request{Decision: DecisionDelete}, time.Now())
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ch.NewStatus != model.StatusDeleted {
		t.Errorf("status = %s, want deleted", ch.NewStatus)
	}
	if ch.NewLayer != mem.TemporalLayer {
		t.Errorf("layer = %s, soft delete must not change the tier", ch.NewLayer)
	}
}

func TestPromoteExtendRequireReviewState(t *testing.T) {
	for _, status := range []model.Status{model.StatusActive, model.StatusArchived} {
		for _, d := range []Decision{DecisionPromote, DecisionExtend} {
			mem := expiredMemory()
			mem.Status = status
			if _, err := Transition(mem, Request{Decision: d}, time.Now()); !errors.Is(err, ErrNotReviewable) {
				t.Errorf("decision %s on %s memory: err = %v, want ErrNotReviewable", d, status, err)
			}
		}
	}

	// Both review states are accepted.
	for _, status := range []model.Status{model.StatusExpired, model.StatusPendingReview} {
		mem := expiredMemory()
		mem.Status = status
		if _, err := Transition(mem, Request{Decision: DecisionPromote}, time.Now()); err != nil {
			t.Errorf("promote from %s: %v", status, err)
		}
	}
}

func TestArchiveFromActive(t *testing.T) {
	mem := expiredMemory()
	mem.Status = model.StatusActive

	ch, err := Transition(mem, Request{Decision: DecisionArchive}, time.Now())
	if err != nil {
		t.Fatalf("archive from active: %v", err)
	}
	if ch.NewStatus != model.StatusArchived {
		t.Errorf("status = %s", ch.NewStatus)
	}
}

func TestDeletedIsTerminal(t *testing.T) {
	mem := expiredMemory()
	mem.Status = model.StatusDeleted

	for _, d := range []Decision{DecisionPromote, DecisionExtend, DecisionArchive, DecisionDelete} {
		if _, err := Transition(mem, Request{Decision: d}, time.Now()); !errors.Is(err, ErrTerminal) {
			t.Errorf("decision %s on deleted memory: err = %v, want ErrTerminal", d, err)
		}
	}
}

func TestUnknownDecision(t *testing.T) {
	_, err := Transition(expiredMemory(), Request{Decision: "maybe"}, time.Now())
	if !errors.Is(err, ErrUnknownDecision) {
		t.Errorf("err = %v, want ErrUnknownDecision", err)
	}
}

func TestLogEntry(t *testing.T) {
	now := time.Now()
	mem := expiredMemory()
	ch, err := Transition(mem, Request{Decision: DecisionPromote, Reason: "insight"}, now)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	log := ch.Log
	if log.MemoryID != mem.ID || log.Decision != "promote" {
		t.Errorf("log = %+v, wrong identity fields", log)
	}
	if log.OldLayer != model.LayerWorking || log.NewLayer != model.LayerLong {
		t.Errorf("log layers = %s -> %s, want working -> long", log.OldLayer, log.NewLayer)
	}
	if log.Reason != "insight" || !log.DecidedAt.Equal(now) {
		t.Errorf("log = %+v, wrong reason/timestamp", log)
	}
}
