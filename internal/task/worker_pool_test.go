package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPool wires a queue, memory broker and pool around a fixed clock.
// The broker's own clock runs a day ahead so rescheduled tasks are
// redelivered immediately.
func newTestPool(t *testing.T, config WorkerPoolConfig) (*Queue, *MemoryBroker, *WorkerPool, time.Time) {
	t.Helper()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	broker := NewMemoryBroker(10)
	broker.now = fixedClock(now.Add(24 * time.Hour))
	q := NewQueue(broker, setupTestLogger(), WithClock(fixedClock(now)))
	pool := NewWorkerPool(broker, q, broker, config, setupTestLogger())
	pool.now = fixedClock(now)

	t.Cleanup(func() {
		_ = pool.Stop(context.Background())
		_ = broker.Close()
	})
	return q, broker, pool, now
}

func TestNewWorkerPool(t *testing.T) {
	broker := NewMemoryBroker(1)
	q := NewQueue(broker, setupTestLogger())

	pool := NewWorkerPool(broker, q, nil, WorkerPoolConfig{WorkerCount: 5}, setupTestLogger())
	assert.Equal(t, 5, pool.config.WorkerCount)
	assert.Equal(t, 5, cap(pool.slots))

	pool = NewWorkerPool(broker, q, nil, WorkerPoolConfig{WorkerCount: 0}, setupTestLogger())
	assert.Equal(t, 1, pool.config.WorkerCount)

	pool = NewWorkerPool(broker, q, nil, WorkerPoolConfig{WorkerCount: -5, MaxRetries: -1}, setupTestLogger())
	assert.Equal(t, 1, pool.config.WorkerCount)
	assert.Equal(t, 0, pool.config.MaxRetries)
}

func TestWorkerPool_Success(t *testing.T) {
	q, broker, pool, _ := newTestPool(t, DefaultWorkerPoolConfig())

	done := make(chan map[string]string, 1)
	require.NoError(t, q.RegisterHandler("greet", func(_ context.Context, rc *RetryContext) error {
		done <- rc.Task().Payload
		return nil
	}))
	pool.Start()

	_, err := q.Enqueue(context.Background(), "greet", map[string]string{"name": "alice"})
	require.NoError(t, err)

	select {
	case payload := <-done:
		assert.Equal(t, "alice", payload["name"])
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for task to complete")
	}

	require.NoError(t, pool.Stop(context.Background()))
	assert.Len(t, broker.Published(), 1)
	assert.Empty(t, broker.DeadLetters())
}

func TestWorkerPool_RetryBackoff(t *testing.T) {
	config := WorkerPoolConfig{WorkerCount: 1, RetryBaseDelay: 60 * time.Second, MaxRetries: 3}
	q, broker, pool, now := newTestPool(t, config)

	var runs atomic.Int32
	sendErr := errors.New("smtp unavailable")
	require.NoError(t, q.RegisterHandler("flaky", func(_ context.Context, rc *RetryContext) error {
		runs.Add(1)
		return rc.Retry(sendErr)
	}))
	pool.Start()

	_, err := q.Enqueue(context.Background(), "flaky", nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(broker.DeadLetters()) == 1 },
		2*time.Second, 10*time.Millisecond)
	require.NoError(t, pool.Stop(context.Background()))

	published := broker.Published()
	require.Len(t, published, 4)
	assert.Equal(t, 0, published[0].Attempt)

	expected := []time.Duration{60 * time.Second, 120 * time.Second, 180 * time.Second}
	for i, delay := range expected {
		next := published[i+1]
		assert.Equal(t, i+1, next.Attempt)
		assert.Equal(t, now.Add(delay), next.Due, "attempt %d", next.Attempt)
		assert.Equal(t, sendErr.Error(), next.LastError)
		assert.Equal(t, published[0].ID, next.ID)
	}

	assert.Equal(t, int32(4), runs.Load())
	dead := broker.DeadLetters()[0]
	assert.Equal(t, 3, dead.Task.Attempt)
	assert.Contains(t, dead.Reason, ErrRetriesExhausted.Error())
}

func TestWorkerPool_UnboundedRetries(t *testing.T) {
	config := WorkerPoolConfig{WorkerCount: 1, RetryBaseDelay: time.Second, MaxRetries: 0}
	q, broker, pool, _ := newTestPool(t, config)

	done := make(chan struct{})
	require.NoError(t, q.RegisterHandler("stubborn", func(_ context.Context, rc *RetryContext) error {
		if rc.Attempt() < 10 {
			return rc.Retry(errors.New("not yet"))
		}
		close(done)
		return nil
	}))
	pool.Start()

	_, err := q.Enqueue(context.Background(), "stubborn", nil)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for task to succeed")
	}
	require.NoError(t, pool.Stop(context.Background()))
	assert.Len(t, broker.Published(), 11)
	assert.Empty(t, broker.DeadLetters())
}

func TestWorkerPool_UnhandledErrorIsPermanent(t *testing.T) {
	q, broker, pool, _ := newTestPool(t, DefaultWorkerPoolConfig())

	var runs atomic.Int32
	handlerErr := errors.New("database exploded")
	require.NoError(t, q.RegisterHandler("fragile", func(context.Context, *RetryContext) error {
		runs.Add(1)
		return handlerErr
	}))

	failures := make(chan error, 1)
	pool.SetErrorHandler(func(_ *Task, err error) { failures <- err })
	pool.Start()

	_, err := q.Enqueue(context.Background(), "fragile", nil)
	require.NoError(t, err)

	select {
	case err := <-failures:
		assert.ErrorIs(t, err, handlerErr)
		var failure *PermanentFailure
		assert.True(t, errors.As(err, &failure))
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for error handler")
	}

	// Give a misbehaving pool the chance to run the task again.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, pool.Stop(context.Background()))

	assert.Equal(t, int32(1), runs.Load())
	assert.Len(t, broker.Published(), 1)
	require.Len(t, broker.DeadLetters(), 1)
}

func TestWorkerPool_Panic(t *testing.T) {
	q, broker, pool, _ := newTestPool(t, DefaultWorkerPoolConfig())

	require.NoError(t, q.RegisterHandler("panicky", func(context.Context, *RetryContext) error {
		panic("test panic")
	}))
	pool.Start()

	_, err := q.Enqueue(context.Background(), "panicky", nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(broker.DeadLetters()) == 1 },
		time.Second, 10*time.Millisecond)
	assert.Contains(t, broker.DeadLetters()[0].Reason, "panic")
}

func TestWorkerPool_UnknownTask(t *testing.T) {
	_, broker, pool, now := newTestPool(t, DefaultWorkerPoolConfig())
	pool.Start()

	require.NoError(t, broker.Publish(context.Background(), &Task{Name: "nobody-handles-me", Due: now}))

	assert.Eventually(t, func() bool { return len(broker.DeadLetters()) == 1 },
		time.Second, 10*time.Millisecond)
	assert.Contains(t, broker.DeadLetters()[0].Reason, ErrUnknownTask.Error())
}

func TestWorkerPool_StopWaitsForRunningTask(t *testing.T) {
	q, _, pool, _ := newTestPool(t, WorkerPoolConfig{WorkerCount: 1})

	started := make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, q.RegisterHandler("slow", func(context.Context, *RetryContext) error {
		close(started)
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return nil
	}))
	pool.Start()

	_, err := q.Enqueue(context.Background(), "slow", nil)
	require.NoError(t, err)
	<-started

	require.NoError(t, pool.Stop(context.Background()))
	assert.True(t, finished.Load())
}

func TestWorkerPool_StopDeadlineCancelsTask(t *testing.T) {
	q, broker, pool, _ := newTestPool(t, WorkerPoolConfig{WorkerCount: 1})

	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, q.RegisterHandler("hung", func(ctx context.Context, _ *RetryContext) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}))
	pool.Start()

	_, err := q.Enqueue(context.Background(), "hung", nil)
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Stop(ctx), context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for context cancellation")
	}
	assert.Empty(t, broker.DeadLetters(), "interrupted task must not be buried")
}

// ackCountingBroker records acks on every delivery it hands out.
type ackCountingBroker struct {
	*MemoryBroker
	acks atomic.Int32
}

func (b *ackCountingBroker) Receive(ctx context.Context) (*Delivery, error) {
	d, err := b.MemoryBroker.Receive(ctx)
	if err != nil {
		return nil, err
	}
	return NewDelivery(d.Task, func(context.Context) error {
		b.acks.Add(1)
		return nil
	}), nil
}

func TestWorkerPool_StopDeadlineDuringRetry(t *testing.T) {
	broker := &ackCountingBroker{MemoryBroker: NewMemoryBroker(10)}
	q := NewQueue(broker, setupTestLogger())
	pool := NewWorkerPool(broker, q, broker,
		WorkerPoolConfig{WorkerCount: 1, RetryBaseDelay: 60 * time.Second, MaxRetries: 5}, setupTestLogger())
	t.Cleanup(func() { _ = broker.Close() })

	started := make(chan struct{})
	require.NoError(t, q.RegisterHandler("send", func(ctx context.Context, rc *RetryContext) error {
		close(started)
		<-ctx.Done()
		return rc.Retry(ctx.Err())
	}))
	pool.Start()

	_, err := q.Enqueue(context.Background(), "send", nil)
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Stop(ctx), context.DeadlineExceeded)

	assert.Len(t, broker.Published(), 1, "no retry may be scheduled during shutdown")
	assert.Zero(t, broker.Pending())
	assert.Empty(t, broker.DeadLetters())
	assert.Zero(t, broker.acks.Load(), "interrupted delivery must stay unacked")
}

func TestWorkerPool_ConcurrentSlots(t *testing.T) {
	q, _, pool, _ := newTestPool(t, WorkerPoolConfig{WorkerCount: 3})

	var running, peak atomic.Int32
	release := make(chan struct{})
	require.NoError(t, q.RegisterHandler("parallel", func(context.Context, *RetryContext) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		running.Add(-1)
		return nil
	}))
	pool.Start()

	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(context.Background(), "parallel", nil)
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool { return running.Load() == 3 }, time.Second, 5*time.Millisecond)
	close(release)
	require.NoError(t, pool.Stop(context.Background()))
	assert.Equal(t, int32(3), peak.Load())
}
