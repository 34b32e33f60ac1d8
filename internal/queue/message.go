package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message wraps a delivered job with its acknowledgement handle.
type Message struct {
	Job         *Job
	DeliveryTag uint64
	Channel     *amqp.Channel
}

// Ack acknowledges the message.
func (m *Message) Ack() error {
	if m.Channel == nil {
		return nil
	}
	return m.Channel.Ack(m.DeliveryTag, false)
}

// Nack negatively acknowledges the message. With requeue false the message
// moves to the dead letter queue.
func (m *Message) Nack(requeue bool) error {
	if m.Channel == nil {
		return nil
	}
	return m.Channel.Nack(m.DeliveryTag, false, requeue)
}

// GetJob returns the job carried by the message.
func (m *Message) GetJob() *Job {
	return m.Job
}
