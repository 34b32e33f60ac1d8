// Package tracing exports LLM invocation run records to an external trace
// collector, keyed by a logical project name. Reporting is best-effort: a
// failed report never affects the invocation that produced it.
package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nestling-app/nestling-api/internal/queue"
)

// Run is one recorded provider invocation.
type Run struct {
	ID            uuid.UUID `json:"id"`
	ProjectName   string    `json:"project_name"`
	ProviderKey   string    `json:"provider_key"`
	Model         string    `json:"model"`
	MessageCount  int       `json:"message_count"`
	OutputPreview string    `json:"output_preview,omitempty"`
	Error         string    `json:"error,omitempty"`
	LatencyMS     int64     `json:"latency_ms"`
	StartedAt     time.Time `json:"started_at"`
}

// Reporter delivers run records. Implementations must be safe for concurrent
// use; callers treat errors as advisory only.
type Reporter interface {
	Report(ctx context.Context, run *Run) error
}

// NopReporter discards all runs. Used when no trace pipeline is configured.
type NopReporter struct{}

// Report implements Reporter.
func (NopReporter) Report(ctx context.Context, run *Run) error { return nil }

// QueueReporter hands runs to the job queue for asynchronous export by the
// worker, so the serving path never blocks on the collector.
type QueueReporter struct {
	q       queue.JobQueue
	project string
}

// NewQueueReporter creates a reporter publishing to the given queue.
func NewQueueReporter(q queue.JobQueue, projectName string) *QueueReporter {
	return &QueueReporter{q: q, project: projectName}
}

// Report implements Reporter.
func (r *QueueReporter) Report(ctx context.Context, run *Run) error {
	run.ProjectName = r.project
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	return r.q.Enqueue(ctx, queue.NewJob(queue.JobTypeTraceExport, payload))
}

// CollectorClient uploads runs to the trace collector over HTTP. Used by the
// worker, not by the serving path.
type CollectorClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewCollectorClient creates a collector client.
func NewCollectorClient(endpoint, apiKey string) *CollectorClient {
	return &CollectorClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Upload posts one run record to the collector.
func (c *CollectorClient) Upload(ctx context.Context, run *Run) error {
	body, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/runs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build collector request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload run: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("collector rejected run: status %d", resp.StatusCode)
	}
	return nil
}
