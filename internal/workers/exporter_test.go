package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/nestling-app/nestling-api/internal/queue"
	"github.com/nestling-app/nestling-api/internal/tracing"
	"go.uber.org/zap"
)

type fakeUploader struct {
	runs []*tracing.Run
	err  error
}

func (f *fakeUploader) Upload(_ context.Context, run *tracing.Run) error {
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, run)
	return nil
}

// fakeMessage records acknowledgement outcomes.
type fakeMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeMessage) Ack() error { f.acked = true; return nil }

func (f *fakeMessage) Nack(requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeMessage) GetJob() *queue.Job { return f.job }

func traceJob(t *testing.T, run *tracing.Run) *queue.Job {
	t.Helper()
	payload, err := json.Marshal(run)
	if err != nil {
		t.Fatalf("marshal run: %v", err)
	}
	return queue.NewJob(queue.JobTypeTraceExport, payload)
}

func TestProcessJobUploadsAndAcks(t *testing.T) {
	t.Parallel()

	uploader := &fakeUploader{}
	exporter := NewTraceExporter(uploader, zap.NewNop())

	run := &tracing.Run{ID: uuid.New(), ProviderKey: "openai", Model: "gpt-4o-mini", LatencyMS: 120}
	msg := &fakeMessage{job: traceJob(t, run)}

	if err := exporter.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}
	if !msg.acked {
		t.Error("message not acked")
	}
	if len(uploader.runs) != 1 {
		t.Fatalf("uploaded %d runs, want 1", len(uploader.runs))
	}
	if uploader.runs[0].ID != run.ID {
		t.Errorf("uploaded run ID = %s, want %s", uploader.runs[0].ID, run.ID)
	}
}

func TestProcessJobRetriesOnUploadFailure(t *testing.T) {
	t.Parallel()

	uploader := &fakeUploader{err: errors.New("collector unavailable")}
	exporter := NewTraceExporter(uploader, zap.NewNop())

	msg := &fakeMessage{job: traceJob(t, &tracing.Run{ID: uuid.New()})}

	if err := exporter.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected error")
	}
	if !msg.nacked || !msg.requeue {
		t.Errorf("message nacked=%v requeue=%v, want nack with requeue", msg.nacked, msg.requeue)
	}
	if msg.job.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", msg.job.RetryCount)
	}
}

func TestProcessJobDeadLettersAfterMaxRetries(t *testing.T) {
	t.Parallel()

	uploader := &fakeUploader{err: errors.New("collector unavailable")}
	exporter := NewTraceExporter(uploader, zap.NewNop())

	job := traceJob(t, &tracing.Run{ID: uuid.New()})
	job.RetryCount = job.MaxRetries
	msg := &fakeMessage{job: job}

	if err := exporter.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected error")
	}
	if !msg.nacked || msg.requeue {
		t.Errorf("message nacked=%v requeue=%v, want nack without requeue", msg.nacked, msg.requeue)
	}
}

func TestProcessJobDeadLettersMalformedPayload(t *testing.T) {
	t.Parallel()

	exporter := NewTraceExporter(&fakeUploader{}, zap.NewNop())

	job := queue.NewJob(queue.JobTypeTraceExport, json.RawMessage(`{not json`))
	msg := &fakeMessage{job: job}

	if err := exporter.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected error")
	}
	if !msg.nacked || msg.requeue {
		t.Errorf("message nacked=%v requeue=%v, want nack without requeue", msg.nacked, msg.requeue)
	}
}

func TestProcessJobRejectsUnknownType(t *testing.T) {
	t.Parallel()

	exporter := NewTraceExporter(&fakeUploader{}, zap.NewNop())

	job := queue.NewJob(queue.JobType("mystery"), nil)
	msg := &fakeMessage{job: job}

	if err := exporter.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected error")
	}
	if !msg.nacked || msg.requeue {
		t.Errorf("message nacked=%v requeue=%v, want nack without requeue", msg.nacked, msg.requeue)
	}
}
