package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentmem/tempora/internal/engine"
	"github.com/agentmem/tempora/internal/model"
)

// HTTPDeliverer posts records to a remote memory API.
type HTTPDeliverer struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPDeliverer creates a deliverer for the given API base URL.
func NewHTTPDeliverer(baseURL string) *HTTPDeliverer {
	return &HTTPDeliverer{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// wireRecord is the delivery payload: the buffered record minus the
// queue-internal marker.
type wireRecord struct {
	Content       string            `json:"content"`
	Domain        string            `json:"domain,omitempty"`
	TemporalLayer string            `json:"temporal_layer,omitempty"`
	TTLHours      int               `json:"ttl_hours,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// Deliver posts one record to the remember endpoint.
func (d *HTTPDeliverer) Deliver(ctx context.Context, r Record) error {
	body, _ := json.Marshal(wireRecord{
		Content:       r.Content,
		Domain:        r.Domain,
		TemporalLayer: r.TemporalLayer,
		TTLHours:      r.TTLHours,
		Tags:          r.Tags,
		Metadata:      r.Metadata,
		Timestamp:     r.Timestamp,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", d.BaseURL+"/api/v1/remember", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remember endpoint %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// EngineDeliverer drains the buffer straight into a local engine, for the
// CLI sync path when the database is reachable again.
type EngineDeliverer struct {
	Engine    *engine.Engine
	AgentName string
}

// Deliver stores one record through the local engine.
func (d *EngineDeliverer) Deliver(ctx context.Context, r Record) error {
	_, err := d.Engine.Remember(ctx, engine.RememberParams{
		Content:       r.Content,
		AgentName:     d.AgentName,
		Tags:          r.Tags,
		TemporalLayer: model.TemporalLayer(r.TemporalLayer),
		TTLHours:      r.TTLHours,
		Domain:        r.Domain,
	})
	return err
}
