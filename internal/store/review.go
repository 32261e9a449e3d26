package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agentmem/tempora/internal/lifecycle"
	"github.com/agentmem/tempora/internal/model"
)

// PendingReview returns memories awaiting a lifecycle decision. A lapsed
// active row only becomes expired here: the sweep is pull-based, run as
// part of this query, never by a background timer.
func (s *SQLiteStore) PendingReview(ctx context.Context, agentID string, limit int) ([]PendingMemory, int, error) {
	if limit <= 0 {
		limit = 50
	}
	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339)

	// Lazy active -> expired sweep.
	_, err := s.db.ExecContext(ctx,
		`UPDATE memories SET status = ?
		 WHERE agent_id = ? AND status = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		string(model.StatusExpired), agentID, string(model.StatusActive), nowStr)
	if err != nil {
		return nil, 0, fmt.Errorf("expiry sweep: %w", err)
	}

	var total int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE agent_id = ? AND status IN (?, ?)`,
		agentID, string(model.StatusExpired), string(model.StatusPendingReview)).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memories
		 WHERE agent_id = ? AND status IN (?, ?)
		 ORDER BY expires_at ASC
		 LIMIT ?`,
		agentID, string(model.StatusExpired), string(model.StatusPendingReview), limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var pending []PendingMemory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, 0, err
		}
		p := PendingMemory{
			Memory:   m,
			AgeHours: now.Sub(m.CreatedAt).Hours(),
		}
		if m.LastAccessed != nil {
			p.HoursSinceAccess = now.Sub(*m.LastAccessed).Hours()
		} else {
			p.HoursSinceAccess = p.AgeHours
		}
		pending = append(pending, p)
	}
	return pending, total, rows.Err()
}

// ApplyDecision loads the memory, computes the lifecycle transition, and
// persists the row update together with its review log entry in one
// transaction. Unknown ids fail with ErrNotFound; invalid decisions fail
// before any mutation.
func (s *SQLiteStore) ApplyDecision(ctx context.Context, memoryID string, req lifecycle.Request) (*DecisionResult, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = ?`, memoryID)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, memoryID)
	}
	if err != nil {
		return nil, err
	}

	ch, err := lifecycle.Transition(&m, req, now)
	if err != nil {
		return nil, err
	}

	var expiresAt *string
	if ch.NewExpiresAt != nil {
		exp := ch.NewExpiresAt.UTC().Format(time.RFC3339)
		expiresAt = &exp
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE memories
		 SET temporal_layer = ?, status = ?, expires_at = ?, importance_score = ?
		 WHERE id = ?`,
		string(ch.NewLayer), string(ch.NewStatus), expiresAt, ch.NewImportance, memoryID)
	if err != nil {
		return nil, fmt.Errorf("apply decision: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO review_log (memory_id, decision, old_layer, new_layer, reason, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ch.Log.MemoryID, ch.Log.Decision, string(ch.Log.OldLayer), string(ch.Log.NewLayer),
		ch.Log.Reason, ch.Log.DecidedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("append review log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &DecisionResult{
		MemoryID:   memoryID,
		Decision:   string(req.Decision),
		OldLayer:   ch.Log.OldLayer,
		NewLayer:   ch.NewLayer,
		Status:     ch.NewStatus,
		ExpiresAt:  ch.NewExpiresAt,
		Importance: ch.NewImportance,
	}, nil
}

// ReviewLog returns the transition history for a memory, oldest first.
func (s *SQLiteStore) ReviewLog(ctx context.Context, memoryID string) ([]model.ReviewLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT memory_id, decision, old_layer, new_layer, reason, decided_at
		 FROM review_log WHERE memory_id = ? ORDER BY id ASC`, memoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.ReviewLogEntry
	for rows.Next() {
		var e model.ReviewLogEntry
		var oldLayer, newLayer, decidedAt string
		var reason sql.NullString
		if err := rows.Scan(&e.MemoryID, &e.Decision, &oldLayer, &newLayer, &reason, &decidedAt); err != nil {
			return nil, err
		}
		e.OldLayer = model.TemporalLayer(oldLayer)
		e.NewLayer = model.TemporalLayer(newLayer)
		if reason.Valid {
			e.Reason = reason.String
		}
		e.DecidedAt, _ = time.Parse(time.RFC3339, decidedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
