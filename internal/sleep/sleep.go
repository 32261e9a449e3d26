// Package sleep implements the consolidation cycle: expired memories are
// reviewed in batches by an external decision service and resolved into
// lifecycle transitions.
package sleep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/agentmem/tempora/internal/lifecycle"
	"github.com/agentmem/tempora/internal/model"
	"github.com/agentmem/tempora/internal/store"
)

// DefaultBatchSize is the number of memories reviewed per service call.
const DefaultBatchSize = 20

// contentPreviewChars bounds the per-memory payload sent for review,
// regardless of full content length. Counted in runes.
const contentPreviewChars = 100

// Backlog is the slice of the engine the cycle needs: listing pending
// memories (which triggers the lazy expiry sweep) and applying decisions.
type Backlog interface {
	PendingReview(ctx context.Context, agentName string, limit int) ([]store.PendingMemory, int, error)
	Decide(ctx context.Context, memoryID string, req lifecycle.Request) (*store.DecisionResult, error)
}

// Reviewer is the external decision service: it receives the batch prompt
// and returns the raw response text for strict parsing.
type Reviewer interface {
	Review(ctx context.Context, prompt string) (string, error)
}

// Options configures one consolidation run.
type Options struct {
	AgentName string
	Limit     int // max pending memories fetched, default 200
	BatchSize int // default DefaultBatchSize
	DryRun    bool
}

// Result aggregates the per-outcome counts of a run.
type Result struct {
	Promoted  int `json:"promoted"`
	Extended  int `json:"extended"`
	Archived  int `json:"archived"`
	Forgotten int `json:"forgotten"`
	Skipped   int `json:"skipped"` // memories in batches that failed to parse
	Total     int `json:"total"`
}

// Cycle drives one consolidation run. It is designed for a single
// instance per backlog: two overlapping runs can double-process the same
// memories since no cross-process lock exists.
type Cycle struct {
	backlog  Backlog
	reviewer Reviewer
}

// New creates a consolidation cycle.
func New(backlog Backlog, reviewer Reviewer) *Cycle {
	return &Cycle{backlog: backlog, reviewer: reviewer}
}

// decision is one element of the service response.
type decision struct {
	ID       int    `json:"id"`
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// categoryRequests maps review categories to lifecycle requests.
var categoryRequests = map[string]lifecycle.Request{
	"important": {Decision: lifecycle.DecisionPromote, NewLayer: model.LayerLong},
	"context":   {Decision: lifecycle.DecisionExtend, NewLayer: model.LayerShort, TTLHours: 168},
	"archive":   {Decision: lifecycle.DecisionArchive},
	"forget":    {Decision: lifecycle.DecisionDelete},
}

// Run fetches the pending backlog and consolidates it batch by batch.
// A batch whose response cannot be parsed into the expected shape is
// skipped in full, with no partial application and no retry.
func (c *Cycle) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = 200
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	pending, total, err := c.backlog.PendingReview(ctx, opts.AgentName, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending: %w", err)
	}
	log.Printf("[sleep] %d pending (%d total), batch size %d, dry_run=%v",
		len(pending), total, opts.BatchSize, opts.DryRun)

	res := &Result{Total: len(pending)}
	if len(pending) == 0 {
		return res, nil
	}

	for start := 0; start < len(pending); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		raw, err := c.reviewer.Review(ctx, buildPrompt(batch))
		if err != nil {
			log.Printf("[sleep] batch %d-%d review failed, skipping: %v", start+1, end, err)
			res.Skipped += len(batch)
			continue
		}

		decisions, err := parseDecisions(raw, len(batch))
		if err != nil {
			log.Printf("[sleep] batch %d-%d unparsable, skipping: %v", start+1, end, err)
			res.Skipped += len(batch)
			continue
		}

		for _, d := range decisions {
			mem := batch[d.ID-1]
			req := categoryRequests[d.Decision]
			req.Reason = d.Reason

			if opts.DryRun {
				log.Printf("[sleep] dry run: %s -> %s (%s)", mem.ID, d.Decision, d.Reason)
				res.count(d.Decision)
				continue
			}
			if _, err := c.backlog.Decide(ctx, mem.ID, req); err != nil {
				log.Printf("[sleep] decision on %s failed: %v", mem.ID, err)
				continue
			}
			res.count(d.Decision)
		}
	}

	log.Printf("[sleep] done: promoted=%d extended=%d archived=%d forgotten=%d skipped=%d",
		res.Promoted, res.Extended, res.Archived, res.Forgotten, res.Skipped)
	return res, nil
}

func (r *Result) count(category string) {
	switch category {
	case "important":
		r.Promoted++
	case "context":
		r.Extended++
	case "archive":
		r.Archived++
	case "forget":
		r.Forgotten++
	}
}

// buildPrompt formats one batch for review. Each memory contributes its
// domain and at most the first 100 characters of content.
func buildPrompt(batch []store.PendingMemory) string {
	var lines []string
	for i, mem := range batch {
		domain := mem.Domain
		if domain == "" {
			domain = "general"
		}
		content := mem.Layer3
		if runes := []rune(content); len(runes) > contentPreviewChars {
			content = string(runes[:contentPreviewChars]) + "..."
		}
		lines = append(lines, fmt.Sprintf("%d. [%s] %s", i+1, domain, content))
	}

	return fmt.Sprintf(`You are reviewing %d memories from working memory (expired TTL).

For each memory, decide:
- IMPORTANT: promote to long-term (key learnings, decisions, insights needed for future)
- CONTEXT: extend to short-term (ongoing projects, might need soon, review in 7 days)
- ARCHIVE: move to archive (completed tasks, historical records worth keeping)
- FORGET: delete (trivial actions, noise, redundant information)

Memories to review:
%s

Return ONLY a JSON array (no other text), one object per memory:
[
  {"id": 1, "decision": "important", "reason": "..."},
  {"id": 2, "decision": "forget", "reason": "..."}
]

Decisions must be: important, context, archive, or forget.`,
		len(batch), strings.Join(lines, "\n"))
}

// parseDecisions validates the raw response against the expected shape and
// fails closed on any deviation: not a bare JSON array, wrong element
// count, duplicate or out-of-range ids, or a decision outside the enum.
func parseDecisions(raw string, n int) ([]decision, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(raw))))
	dec.DisallowUnknownFields()

	var decisions []decision
	if err := dec.Decode(&decisions); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing content after JSON array")
	}
	if len(decisions) != n {
		return nil, fmt.Errorf("got %d decisions for %d memories", len(decisions), n)
	}

	seen := make([]bool, n)
	for _, d := range decisions {
		if d.ID < 1 || d.ID > n {
			return nil, fmt.Errorf("decision id %d out of range 1..%d", d.ID, n)
		}
		if seen[d.ID-1] {
			return nil, fmt.Errorf("duplicate decision id %d", d.ID)
		}
		seen[d.ID-1] = true
		if _, ok := categoryRequests[d.Decision]; !ok {
			return nil, fmt.Errorf("unknown decision %q", d.Decision)
		}
	}
	return decisions, nil
}
