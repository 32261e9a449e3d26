package store

import (
	"context"
	"time"

	"github.com/agentmem/tempora/internal/model"
)

// Stats returns aggregate statistics for an agent. Deleted rows are
// counted in the status breakdown but excluded from totals and averages.
func (s *SQLiteStore) Stats(ctx context.Context, agentID string) (*Stats, error) {
	st := &Stats{
		ByLayer:  map[string]int{},
		ByStatus: map[string]int{},
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(importance_score), 0), COALESCE(SUM(access_count), 0)
		 FROM memories WHERE agent_id = ? AND status != ?`,
		agentID, string(model.StatusDeleted)).
		Scan(&st.TotalMemories, &st.AverageImportance, &st.TotalAccesses)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT temporal_layer, COUNT(*) FROM memories
		 WHERE agent_id = ? AND status != ? GROUP BY temporal_layer`,
		agentID, string(model.StatusDeleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var layer string
		var n int
		if err := rows.Scan(&layer, &n); err != nil {
			return nil, err
		}
		st.ByLayer[layer] = n
	}

	srows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM memories WHERE agent_id = ? GROUP BY status`, agentID)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var status string
		var n int
		if err := srows.Scan(&status, &n); err != nil {
			return nil, err
		}
		st.ByStatus[status] = n
	}

	// Pending includes lapsed-but-unswept rows so the number is honest
	// without forcing a sweep from a read-only stats call.
	now := time.Now().UTC().Format(time.RFC3339)
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories
		 WHERE agent_id = ? AND (
			status IN (?, ?) OR
			(status = ? AND expires_at IS NOT NULL AND expires_at <= ?)
		 )`,
		agentID, string(model.StatusExpired), string(model.StatusPendingReview),
		string(model.StatusActive), now).Scan(&st.PendingReview)
	if err != nil {
		return nil, err
	}

	return st, nil
}
