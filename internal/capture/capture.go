// Package capture buffers significant agent events (learnings, decisions,
// errors, tool use) into working memory via the offline queue.
package capture

import (
	"fmt"
	"time"

	"github.com/agentmem/tempora/internal/queue"
)

// Event types.
const (
	EventLearning     = "learning"
	EventDecision     = "decision"
	EventError        = "error"
	EventUserFeedback = "user_feedback"
	EventAnalysis     = "analysis"
	EventToolUse      = "tool_use"
	EventFileRead     = "file_read"
	EventFileWrite    = "file_write"
	EventTaskComplete = "task_complete"
	EventQuestion     = "question"
	EventMilestone    = "milestone"
)

// defaultTTL is the fallback for unmapped event types, in hours.
const defaultTTL = 2

// ttlHours holds per-type retention in working memory. Milestones get a
// full week so the sleep cycle sees them before they lapse.
var ttlHours = map[string]int{
	EventLearning:     4,
	EventDecision:     3,
	EventError:        2,
	EventUserFeedback: 4,
	EventAnalysis:     2,
	EventToolUse:      1,
	EventFileRead:     1,
	EventFileWrite:    2,
	EventTaskComplete: 3,
	EventQuestion:     2,
	EventMilestone:    168,
}

var domains = map[string]string{
	EventLearning:     "self",
	EventDecision:     "projects",
	EventError:        "system",
	EventUserFeedback: "user",
	EventAnalysis:     "general",
	EventToolUse:      "system",
	EventFileRead:     "system",
	EventFileWrite:    "projects",
	EventTaskComplete: "projects",
	EventQuestion:     "general",
	EventMilestone:    "projects",
}

// KnownType reports whether t is a recognized event type.
func KnownType(t string) bool {
	_, ok := ttlHours[t]
	return ok
}

// Types returns the recognized event types.
func Types() []string {
	return []string{
		EventLearning, EventDecision, EventError, EventUserFeedback,
		EventAnalysis, EventToolUse, EventFileRead, EventFileWrite,
		EventTaskComplete, EventQuestion, EventMilestone,
	}
}

// Options override the per-type defaults.
type Options struct {
	TTLHours int
	Domain   string
	Tags     []string
	Metadata map[string]string
}

// Event builds the working-layer record for one captured event. The record
// is not enqueued; pair with Capture or enqueue it yourself.
func Event(eventType, content string, opts Options) (queue.Record, error) {
	if !KnownType(eventType) {
		return queue.Record{}, fmt.Errorf("unknown capture type %q", eventType)
	}
	if content == "" {
		return queue.Record{}, fmt.Errorf("capture content is required")
	}

	ttl := opts.TTLHours
	if ttl <= 0 {
		ttl = ttlHours[eventType]
	}
	domain := opts.Domain
	if domain == "" {
		domain = domains[eventType]
	}

	tags := append([]string{eventType, "auto-captured"}, opts.Tags...)

	meta := map[string]string{"captured_at": time.Now().UTC().Format(time.RFC3339)}
	for k, v := range opts.Metadata {
		meta[k] = v
	}

	return queue.Record{
		Content:       content,
		Domain:        domain,
		TemporalLayer: "working",
		TTLHours:      ttl,
		Tags:          tags,
		Metadata:      meta,
	}, nil
}

// Capture builds and enqueues one event.
func Capture(q *queue.Queue, eventType, content string, opts Options) (queue.Record, error) {
	r, err := Event(eventType, content, opts)
	if err != nil {
		return queue.Record{}, err
	}
	if err := q.Enqueue(r); err != nil {
		return queue.Record{}, fmt.Errorf("enqueue capture: %w", err)
	}
	return r, nil
}

// ToolUse captures a tool invocation with a uniform content shape.
func ToolUse(q *queue.Queue, tool, details string) (queue.Record, error) {
	return Capture(q, EventToolUse, fmt.Sprintf("Used %s: %s", tool, details), Options{})
}

// FileOp captures a file read or write. Writes and edits map to
// file_write, everything else to file_read.
func FileOp(q *queue.Queue, operation, path string) (queue.Record, error) {
	eventType := EventFileRead
	if operation == "write" || operation == "edit" {
		eventType = EventFileWrite
	}
	return Capture(q, eventType, fmt.Sprintf("%s file: %s", operation, path), Options{
		Metadata: map[string]string{"path": path},
	})
}

// Stats summarizes the buffered captures.
type Stats struct {
	Total  int            `json:"total_captured"`
	ByType map[string]int `json:"by_type"`
	File   string         `json:"queue_file"`
}

// QueueStats counts buffered records by event type. Records without a
// recognized type tag count toward the total only.
func QueueStats(q *queue.Queue) (Stats, error) {
	records, err := q.ReadAll()
	if err != nil {
		return Stats{}, err
	}

	byType := map[string]int{}
	for _, r := range records {
		for _, tag := range r.Tags {
			if KnownType(tag) {
				byType[tag]++
				break
			}
		}
	}
	return Stats{Total: len(records), ByType: byType, File: q.Path()}, nil
}
