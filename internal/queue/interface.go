package queue

import (
	"context"
)

// MessageInterface defines the interface for queue messages, allowing mock
// implementations in tests.
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is the interface for job queues.
type JobQueue interface {
	// Enqueue adds a job to the queue.
	Enqueue(ctx context.Context, job *Job) error

	// Consume returns a channel of messages from the queue. Messages are
	// delivered asynchronously; the caller acknowledges each one. Prefetch
	// controls how many unacknowledged messages a consumer can hold. The
	// channels close when the context is cancelled or an error occurs.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the queue connection.
	Close() error

	// HealthCheck verifies the queue connection is healthy.
	HealthCheck(ctx context.Context) error
}
