package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DeadLetter is a task the memory broker recorded as buried.
type DeadLetter struct {
	Task   *Task
	Reason string
}

// MemoryBroker is an in-process Broker. Delayed tasks wait on a timer and
// nothing survives a restart, so it serves tests and single-process
// development setups. Publish never blocks: due tasks beyond the ready
// buffer wait in an overflow list that Receive drains in order.
type MemoryBroker struct {
	ready chan *Task
	done  chan struct{}
	now   func() time.Time

	mu        sync.Mutex
	closed    bool
	timers    map[uuid.UUID]*time.Timer
	overflow  []*Task
	published []*Task
	buried    []DeadLetter
}

// NewMemoryBroker creates a MemoryBroker whose ready buffer holds size tasks.
func NewMemoryBroker(size int) *MemoryBroker {
	if size <= 0 {
		size = 100
	}
	return &MemoryBroker{
		ready:  make(chan *Task, size),
		done:   make(chan struct{}),
		now:    time.Now,
		timers: make(map[uuid.UUID]*time.Timer),
	}
}

var (
	_ Broker    = (*MemoryBroker)(nil)
	_ Graveyard = (*MemoryBroker)(nil)
)

// Publish implements Broker.
func (b *MemoryBroker) Publish(_ context.Context, t *Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBrokerClosed
	}
	b.published = append(b.published, t.Clone())

	task := t.Clone()
	delay := task.Due.Sub(b.now())
	if delay <= 0 {
		b.push(task)
		return nil
	}
	b.timers[task.ID] = time.AfterFunc(delay, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.timers, task.ID)
		if !b.closed {
			b.push(task)
		}
	})
	return nil
}

// push hands t to the ready buffer, or queues it behind earlier overflow.
// b.mu must be held.
func (b *MemoryBroker) push(t *Task) {
	if len(b.overflow) == 0 {
		select {
		case b.ready <- t:
			return
		default:
		}
	}
	b.overflow = append(b.overflow, t)
}

// refill moves overflow into the ready buffer while it has room.
// b.mu must be held.
func (b *MemoryBroker) refill() {
	for len(b.overflow) > 0 {
		select {
		case b.ready <- b.overflow[0]:
			b.overflow[0] = nil
			b.overflow = b.overflow[1:]
		default:
			return
		}
	}
}

// Receive implements Broker.
func (b *MemoryBroker) Receive(ctx context.Context) (*Delivery, error) {
	select {
	case t := <-b.ready:
		b.mu.Lock()
		b.refill()
		b.mu.Unlock()
		return NewDelivery(t, nil), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.done:
		return nil, ErrBrokerClosed
	}
}

// Bury implements Graveyard.
func (b *MemoryBroker) Bury(_ context.Context, t *Task, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buried = append(b.buried, DeadLetter{Task: t.Clone(), Reason: reason})
	return nil
}

// Close stops pending timers; tasks still waiting are dropped.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, timer := range b.timers {
		timer.Stop()
		delete(b.timers, id)
	}
	b.overflow = nil
	close(b.done)
	return nil
}

// Published returns copies of every task accepted by Publish, in order.
func (b *MemoryBroker) Published() []*Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Task, len(b.published))
	for i, t := range b.published {
		out[i] = t.Clone()
	}
	return out
}

// DeadLetters returns the buried tasks.
func (b *MemoryBroker) DeadLetters() []DeadLetter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]DeadLetter(nil), b.buried...)
}

// Pending returns the number of delayed tasks still waiting on a timer.
func (b *MemoryBroker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.timers)
}
