// Package lifecycle implements the tier/status transition rules for a memory.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/agentmem/tempora/internal/model"
)

// Decision is a reviewed verdict on what should happen to a memory.
type Decision string

const (
	DecisionPromote Decision = "promote"
	DecisionExtend  Decision = "extend"
	DecisionArchive Decision = "archive"
	DecisionDelete  Decision = "delete"
)

// ErrUnknownDecision is returned for a decision value outside the enum.
// The check runs before any mutation.
var ErrUnknownDecision = errors.New("unknown decision")

// ErrTerminal is returned when a decision targets a deleted memory.
var ErrTerminal = errors.New("memory is deleted")

// ErrNotReviewable is returned when promote or extend targets a memory
// that is not awaiting review. Archive and delete stay available from any
// non-terminal state.
var ErrNotReviewable = errors.New("memory is not awaiting review")

const (
	// PromoteImportanceFloor is the minimum importance after a promotion.
	PromoteImportanceFloor = 0.7
	// ExtendShortTTL is the default extension for the short tier.
	ExtendShortTTL = 168 * time.Hour
	// ExtendDefaultTTL is the default extension for every other tier.
	ExtendDefaultTTL = 24 * time.Hour
)

// Request carries one decision and its optional parameters.
type Request struct {
	Decision Decision
	// NewLayer overrides the target tier where the decision allows one.
	NewLayer model.TemporalLayer
	// TTLHours overrides the extension TTL for extend.
	TTLHours int
	Reason   string
}

// Change is the computed outcome of applying a Request to a memory. The
// store persists it and appends the log entry in one transaction.
type Change struct {
	NewLayer      model.TemporalLayer
	NewStatus     model.Status
	NewExpiresAt  *time.Time
	NewImportance float64
	Log           model.ReviewLogEntry
}

// Transition computes the state change for a decision without mutating mem.
// Promote and extend are only valid from the review states; archive and
// delete apply to any non-terminal memory.
//
//	promote: {expired, pending_review} -> active, tier = given (default long),
//	         expiry cleared, importance raised to at least 0.7
//	extend:  {expired, pending_review} -> active, tier = given (default kept),
//	         new expiry = now + ttl (168h for short, 24h otherwise)
//	archive: any non-terminal -> archived, tier = archive, expiry cleared
//	delete:  any non-terminal -> deleted, tier unchanged (soft delete)
func Transition(mem *model.Memory, req Request, now time.Time) (Change, error) {
	if mem.Status == model.StatusDeleted {
		return Change{}, fmt.Errorf("%w: %s", ErrTerminal, mem.ID)
	}

	ch := Change{
		NewLayer:      mem.TemporalLayer,
		NewStatus:     mem.Status,
		NewExpiresAt:  mem.ExpiresAt,
		NewImportance: mem.ImportanceScore,
	}

	switch req.Decision {
	case DecisionPromote:
		if err := reviewable(mem); err != nil {
			return Change{}, err
		}
		ch.NewLayer = model.LayerLong
		if req.NewLayer != "" {
			ch.NewLayer = req.NewLayer
		}
		ch.NewStatus = model.StatusActive
		ch.NewExpiresAt = nil
		if ch.NewImportance < PromoteImportanceFloor {
			ch.NewImportance = PromoteImportanceFloor
		}

	case DecisionExtend:
		if err := reviewable(mem); err != nil {
			return Change{}, err
		}
		if req.NewLayer != "" {
			ch.NewLayer = req.NewLayer
		}
		ttl := ExtendDefaultTTL
		if ch.NewLayer == model.LayerShort {
			ttl = ExtendShortTTL
		}
		if req.TTLHours > 0 {
			ttl = time.Duration(req.TTLHours) * time.Hour
		}
		exp := now.Add(ttl)
		ch.NewStatus = model.StatusActive
		ch.NewExpiresAt = &exp

	case DecisionArchive:
		ch.NewLayer = model.LayerArchive
		ch.NewStatus = model.StatusArchived
		ch.NewExpiresAt = nil

	case DecisionDelete:
		// Soft delete: tier stays where it was.
		ch.NewStatus = model.StatusDeleted

	default:
		return Change{}, fmt.Errorf("%w: %q", ErrUnknownDecision, req.Decision)
	}

	if ch.NewLayer != mem.TemporalLayer && !model.ValidLayers[ch.NewLayer] {
		return Change{}, fmt.Errorf("invalid temporal layer %q", ch.NewLayer)
	}

	ch.Log = model.ReviewLogEntry{
		MemoryID:  mem.ID,
		Decision:  string(req.Decision),
		OldLayer:  mem.TemporalLayer,
		NewLayer:  ch.NewLayer,
		Reason:    req.Reason,
		DecidedAt: now,
	}
	return ch, nil
}

func reviewable(mem *model.Memory) error {
	if mem.Status != model.StatusExpired && mem.Status != model.StatusPendingReview {
		return fmt.Errorf("%w: %s is %s", ErrNotReviewable, mem.ID, mem.Status)
	}
	return nil
}
