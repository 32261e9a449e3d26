package store

import (
	"strings"
	"time"

	"github.com/agentmem/tempora/internal/model"
)

// Predicate is one optional typed filter compiled to a parameterized
// WHERE clause. Queries are assembled from an ordered predicate list
// instead of string concatenation so each filter can be tested on its own.
type Predicate struct {
	SQL  string
	Args []interface{}
}

// AgentEquals filters to one agent's memories.
func AgentEquals(agentID string) Predicate {
	return Predicate{SQL: "agent_id = ?", Args: []interface{}{agentID}}
}

// StatusEquals filters by lifecycle status.
func StatusEquals(status model.Status) Predicate {
	return Predicate{SQL: "status = ?", Args: []interface{}{string(status)}}
}

// NotLapsed keeps rows whose TTL has not passed at the given instant.
func NotLapsed(now time.Time) Predicate {
	return Predicate{
		SQL:  "(expires_at IS NULL OR expires_at > ?)",
		Args: []interface{}{now.UTC().Format(time.RFC3339)},
	}
}

// LayerIn filters by temporal layer membership.
func LayerIn(layers []model.TemporalLayer) Predicate {
	if len(layers) == 0 {
		return Predicate{}
	}
	placeholders := make([]string, len(layers))
	args := make([]interface{}, len(layers))
	for i, l := range layers {
		placeholders[i] = "?"
		args[i] = string(l)
	}
	return Predicate{
		SQL:  "temporal_layer IN (" + strings.Join(placeholders, ", ") + ")",
		Args: args,
	}
}

// TagsOverlap keeps rows whose tag set intersects the given tags. Tags are
// stored as a JSON array, so each tag matches as a quoted substring.
func TagsOverlap(tags []string) Predicate {
	if len(tags) == 0 {
		return Predicate{}
	}
	clauses := make([]string, len(tags))
	args := make([]interface{}, len(tags))
	for i, tag := range tags {
		clauses[i] = "tags LIKE ?"
		args[i] = `%"` + tag + `"%`
	}
	return Predicate{
		SQL:  "(" + strings.Join(clauses, " OR ") + ")",
		Args: args,
	}
}

// TypeEquals filters by memory type.
func TypeEquals(memoryType string) Predicate {
	if memoryType == "" {
		return Predicate{}
	}
	return Predicate{SQL: "memory_type = ?", Args: []interface{}{memoryType}}
}

// DomainEquals filters by domain.
func DomainEquals(domain string) Predicate {
	if domain == "" {
		return Predicate{}
	}
	return Predicate{SQL: "domain = ?", Args: []interface{}{domain}}
}

// compilePredicates joins non-empty predicates into a WHERE body. Empty
// predicates (unset optional filters) are skipped.
func compilePredicates(preds []Predicate) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	for _, p := range preds {
		if p.SQL == "" {
			continue
		}
		clauses = append(clauses, p.SQL)
		args = append(args, p.Args...)
	}
	if len(clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(clauses, " AND "), args
}
