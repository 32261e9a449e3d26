package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "queue.jsonl"))
}

// selectiveDeliverer fails records whose content is listed.
type selectiveDeliverer struct {
	fail      map[string]bool
	delivered []string
}

func (d *selectiveDeliverer) Deliver(ctx context.Context, r Record) error {
	if d.fail[r.Content] {
		return fmt.Errorf("simulated delivery failure for %q", r.Content)
	}
	d.delivered = append(d.delivered, r.Content)
	return nil
}

func TestEnqueueAndReadAll(t *testing.T) {
	q := newTestQueue(t)

	err := q.Enqueue(Record{
		Content:       "offline note",
		Domain:        "projects",
		TemporalLayer: "working",
		TTLHours:      2,
		Tags:          []string{"offline"},
		Metadata:      map[string]string{"source": "test"},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	records, err := q.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	r := records[0]
	if r.Content != "offline note" || r.Domain != "projects" || r.TTLHours != 2 {
		t.Errorf("record round-trip: %+v", r)
	}
	if !r.Queued {
		t.Error("queued marker must be set")
	}
	if r.Timestamp.IsZero() {
		t.Error("timestamp must be stamped on enqueue")
	}

	n, err := q.Count()
	if err != nil || n != 1 {
		t.Errorf("count = %d, %v", n, err)
	}
}

func TestCountEmptyQueue(t *testing.T) {
	q := newTestQueue(t)
	n, err := q.Count()
	if err != nil || n != 0 {
		t.Errorf("count = %d, %v; want 0 for missing file", n, err)
	}
}

func TestSyncPartialFailureKeepsFailedSubset(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	for i := 1; i <= 3; i++ {
		if err := q.Enqueue(Record{Content: fmt.Sprintf("record %d", i)}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	d := &selectiveDeliverer{fail: map[string]bool{"record 2": true}}
	synced, failed, err := q.Sync(ctx, d)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if synced != 2 || len(failed) != 1 {
		t.Fatalf("synced=%d failed=%d, want 2/1", synced, len(failed))
	}

	records, err := q.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(records) != 1 || records[0].Content != "record 2" {
		t.Errorf("buffer = %+v, want exactly the failed record", records)
	}
	if n, _ := q.Count(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	// Delivery order is preserved.
	if len(d.delivered) != 2 || d.delivered[0] != "record 1" || d.delivered[1] != "record 3" {
		t.Errorf("delivered = %v", d.delivered)
	}
}

func TestSyncFullSuccessRemovesBuffer(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	for i := 1; i <= 3; i++ {
		q.Enqueue(Record{Content: fmt.Sprintf("record %d", i)})
	}

	synced, failed, err := q.Sync(ctx, &selectiveDeliverer{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if synced != 3 || len(failed) != 0 {
		t.Errorf("synced=%d failed=%d", synced, len(failed))
	}
	if n, _ := q.Count(); n != 0 {
		t.Errorf("count = %d after full sync, want 0", n)
	}
	if _, err := os.Stat(q.Path()); !os.IsNotExist(err) {
		t.Error("buffer file must be removed when nothing failed")
	}
}

func TestSyncEmptyQueue(t *testing.T) {
	q := newTestQueue(t)
	synced, failed, err := q.Sync(context.Background(), &selectiveDeliverer{})
	if err != nil || synced != 0 || failed != nil {
		t.Errorf("got %d %v %v", synced, failed, err)
	}
}

func TestClear(t *testing.T) {
	q := newTestQueue(t)
	q.Enqueue(Record{Content: "x"})
	if err := q.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n, _ := q.Count(); n != 0 {
		t.Errorf("count = %d after clear", n)
	}
	// Clearing an empty queue is fine too.
	if err := q.Clear(); err != nil {
		t.Errorf("clear empty: %v", err)
	}
}
