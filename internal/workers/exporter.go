package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nestling-app/nestling-api/internal/queue"
	"github.com/nestling-app/nestling-api/internal/tracing"
	"go.uber.org/zap"
)

// Uploader sends one run record to the collector.
type Uploader interface {
	Upload(ctx context.Context, run *tracing.Run) error
}

// TraceExporter drains trace export jobs from the queue and uploads the run
// records to the external collector.
type TraceExporter struct {
	uploader Uploader
	logger   *zap.Logger
}

// NewTraceExporter creates a new trace exporter.
func NewTraceExporter(uploader Uploader, logger *zap.Logger) *TraceExporter {
	return &TraceExporter{uploader: uploader, logger: logger}
}

// ProcessJob handles one delivered message: upload on success, retry via
// requeue while the retry budget lasts, dead-letter after that. Unknown job
// types go straight to the dead letter queue.
func (e *TraceExporter) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.Type != queue.JobTypeTraceExport {
		if nackErr := msg.Nack(false); nackErr != nil {
			e.logger.Error("failed to nack unknown job type", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	var run tracing.Run
	if err := json.Unmarshal(job.Payload, &run); err != nil {
		// Malformed payloads never become valid; dead-letter immediately.
		if nackErr := msg.Nack(false); nackErr != nil {
			e.logger.Error("failed to nack malformed job", zap.Error(nackErr))
		}
		return fmt.Errorf("unmarshal run payload: %w", err)
	}

	if err := e.uploader.Upload(ctx, &run); err != nil {
		return e.handleUploadError(msg, job, err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}

	e.logger.Debug("exported run",
		zap.String("run_id", run.ID.String()),
		zap.String("provider", run.ProviderKey),
		zap.Int64("latency_ms", run.LatencyMS))
	return nil
}

func (e *TraceExporter) handleUploadError(msg queue.MessageInterface, job *queue.Job, err error) error {
	if job.CanRetry() {
		job.IncrementRetry()
		e.logger.Warn("trace upload failed, will retry",
			zap.String("job_id", job.ID.String()),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err))
		if nackErr := msg.Nack(true); nackErr != nil {
			e.logger.Error("failed to nack job for retry", zap.Error(nackErr))
		}
		return fmt.Errorf("trace upload failed (will retry): %w", err)
	}

	e.logger.Error("trace upload failed after max retries, dead-lettering",
		zap.String("job_id", job.ID.String()),
		zap.Int("max_retries", job.MaxRetries),
		zap.Error(err))
	if nackErr := msg.Nack(false); nackErr != nil {
		e.logger.Error("failed to nack job to DLQ", zap.Error(nackErr))
	}
	return fmt.Errorf("trace upload failed (max retries): %w", err)
}
