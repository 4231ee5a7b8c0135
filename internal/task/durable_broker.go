package task

import (
	"context"
	"errors"

	"github.com/phrazzld/accounts-api/internal/store"
)

// ErrNoDeliverySource is returned by Receive on a publish-only broker.
var ErrNoDeliverySource = errors.New("broker has no delivery source")

// DeliverySource yields due tasks to workers, typically a Kafka consumer.
type DeliverySource interface {
	Receive(ctx context.Context) (*Delivery, error)
	Close() error
}

// DurableBroker persists every published task in the task store. The
// Dispatcher later moves due rows onto the delivery source's transport, so
// a delayed retry simply waits in the database until its due time.
type DurableBroker struct {
	tasks  store.TaskStore
	source DeliverySource
}

// NewDurableBroker creates a DurableBroker. source may be nil for
// processes that only enqueue.
func NewDurableBroker(tasks store.TaskStore, source DeliverySource) *DurableBroker {
	return &DurableBroker{tasks: tasks, source: source}
}

var (
	_ Broker    = (*DurableBroker)(nil)
	_ Graveyard = (*DurableBroker)(nil)
)

// Publish implements Broker.
func (b *DurableBroker) Publish(ctx context.Context, t *Task) error {
	q, err := t.ToQueued()
	if err != nil {
		return err
	}
	return b.tasks.Schedule(ctx, q)
}

// Receive implements Broker.
func (b *DurableBroker) Receive(ctx context.Context) (*Delivery, error) {
	if b.source == nil {
		return nil, ErrNoDeliverySource
	}
	return b.source.Receive(ctx)
}

// Bury implements Graveyard.
func (b *DurableBroker) Bury(ctx context.Context, t *Task, reason string) error {
	q, err := t.ToQueued()
	if err != nil {
		return err
	}
	return b.tasks.Bury(ctx, q, reason)
}

// Close implements Broker.
func (b *DurableBroker) Close() error {
	if b.source == nil {
		return nil
	}
	return b.source.Close()
}
