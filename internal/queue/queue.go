// Package queue is the offline durability buffer: a line-delimited JSON
// file of memory writes made while the store is unreachable.
package queue

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Record is one buffered memory write. Records carry no idempotency key,
// so a record redelivered after a partial sync may be stored twice by the
// receiving side: delivery is at-least-once, not exactly-once.
type Record struct {
	Content       string            `json:"content"`
	Domain        string            `json:"domain"`
	TemporalLayer string            `json:"temporal_layer"`
	TTLHours      int               `json:"ttl_hours"`
	Tags          []string          `json:"tags"`
	Metadata      map[string]string `json:"metadata"`
	Timestamp     time.Time         `json:"timestamp"`
	Queued        bool              `json:"queued"`
}

// Deliverer attempts to store one buffered record.
type Deliverer interface {
	Deliver(ctx context.Context, r Record) error
}

// Queue buffers records in a jsonl file. A single writer process is
// assumed; concurrent writers can interleave appends and corrupt the
// line-delimited format.
type Queue struct {
	path string
}

// New creates a queue over the given file path. The file is created on
// first enqueue.
func New(path string) *Queue {
	return &Queue{path: path}
}

// Path returns the backing file path.
func (q *Queue) Path() string { return q.path }

// Enqueue appends one record to the buffer.
func (q *Queue) Enqueue(r Record) error {
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	r.Queued = true

	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	f, err := os.OpenFile(q.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// Count returns the number of buffered records.
func (q *Queue) Count() (int, error) {
	records, err := q.ReadAll()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// ReadAll returns every buffered record in order.
func (q *Queue) ReadAll() ([]Record, error) {
	f, err := os.Open(q.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}
	defer f.Close()

	var records []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("corrupt queue line: %w", err)
		}
		records = append(records, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read queue: %w", err)
	}
	return records, nil
}

// Sync delivers every buffered record in order and rewrites the buffer to
// exactly the failed subset, removing the file entirely when none failed.
// Returns the number delivered and the records still buffered.
func (q *Queue) Sync(ctx context.Context, d Deliverer) (int, []Record, error) {
	records, err := q.ReadAll()
	if err != nil {
		return 0, nil, err
	}
	if len(records) == 0 {
		return 0, nil, nil
	}

	var synced int
	var failed []Record
	for _, r := range records {
		if err := d.Deliver(ctx, r); err != nil {
			log.Printf("[queue] deliver failed, keeping buffered: %v", err)
			failed = append(failed, r)
			continue
		}
		synced++
	}

	if len(failed) == 0 {
		if err := os.Remove(q.path); err != nil && !os.IsNotExist(err) {
			return synced, nil, fmt.Errorf("remove queue: %w", err)
		}
		return synced, nil, nil
	}

	if err := q.rewrite(failed); err != nil {
		return synced, failed, err
	}
	return synced, failed, nil
}

// Clear unconditionally discards all buffered entries.
func (q *Queue) Clear() error {
	if err := os.Remove(q.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear queue: %w", err)
	}
	return nil
}

func (q *Queue) rewrite(records []Record) error {
	tmp := q.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("rewrite queue: %w", err)
	}
	for _, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := f.Write(append(b, '\n')); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("write record: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, q.path)
}
