package queue

import (
	"encoding/json"
	"testing"
)

func TestNewJob(t *testing.T) {
	t.Parallel()

	payload := json.RawMessage(`{"provider_key":"openai"}`)
	job := NewJob(JobTypeTraceExport, payload)

	if job.Type != JobTypeTraceExport {
		t.Errorf("Type = %q, want %q", job.Type, JobTypeTraceExport)
	}
	if string(job.Payload) != string(payload) {
		t.Errorf("Payload = %s", job.Payload)
	}
	if job.MaxRetries != 3 || job.RetryCount != 0 {
		t.Errorf("retry budget = %d/%d, want 0/3", job.RetryCount, job.MaxRetries)
	}
}

func TestJob_Retry(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeTraceExport, nil)
	for i := 0; i < job.MaxRetries; i++ {
		if !job.CanRetry() {
			t.Fatalf("CanRetry() = false at attempt %d", i)
		}
		job.IncrementRetry()
	}
	if job.CanRetry() {
		t.Error("CanRetry() = true after exhausting retries")
	}
}

func TestJob_RoundTripsJSON(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeTraceExport, json.RawMessage(`{"latency_ms":42}`))
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Job
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != job.ID || got.Type != job.Type || string(got.Payload) != string(job.Payload) {
		t.Errorf("round trip mismatch: %+v vs %+v", got, job)
	}
}
