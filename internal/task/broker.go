package task

import (
	"context"
	"errors"
)

// ErrBrokerClosed is returned by Receive once the broker has been closed.
var ErrBrokerClosed = errors.New("task broker is closed")

// Broker is the durable transport between the enqueuing side and workers.
type Broker interface {
	// Publish stores the task for delivery no earlier than its Due time.
	Publish(ctx context.Context, t *Task) error

	// Receive blocks until a due task is available or ctx is done.
	Receive(ctx context.Context) (*Delivery, error)

	// Close releases the broker's resources.
	Close() error
}

// Delivery is a task handed to a worker. Ack must be called once the task
// has been handled, rescheduled or buried; an unacked delivery may be
// redelivered.
type Delivery struct {
	Task *Task
	ack  func(ctx context.Context) error
}

// NewDelivery wraps a task with the broker-specific acknowledgement.
func NewDelivery(t *Task, ack func(ctx context.Context) error) *Delivery {
	return &Delivery{Task: t, ack: ack}
}

// Ack acknowledges the delivery.
func (d *Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}
