package store

import (
	"context"
	"time"

	"github.com/agentmem/tempora/internal/model"
)

// Candidates returns the recall candidate set: active, unexpired rows owned
// by the agent, filtered by the resolved layer set and the optional
// tag/type/domain predicates. Similarity ranking happens in the caller;
// the store's job is the filter and the decoded vectors.
func (s *SQLiteStore) Candidates(ctx context.Context, q CandidateQuery) ([]model.Memory, error) {
	where, args := compilePredicates([]Predicate{
		AgentEquals(q.AgentID),
		StatusEquals(model.StatusActive),
		NotLapsed(time.Now()),
		LayerIn(q.Layers),
		TagsOverlap(q.Tags),
		TypeEquals(q.MemoryType),
		DomainEquals(q.Domain),
	})

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// LogAccess appends one access log row per entry and bumps the access
// counters of the referenced memories. Callers on the recall path treat
// failures as best-effort.
func (s *SQLiteStore) LogAccess(ctx context.Context, entries []model.AccessLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range entries {
		ts := e.AccessedAt.UTC().Format(time.RFC3339)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO access_log (memory_id, agent_id, layer_accessed, query_text, relevance_score, accessed_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.MemoryID, e.AgentID, e.LayerAccessed, e.QueryText, e.RelevanceScore, ts)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE memories SET access_count = access_count + 1, last_accessed = ? WHERE id = ?`,
			ts, e.MemoryID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
