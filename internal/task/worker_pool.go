package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// HandlerLookup resolves task names to handlers. *Queue implements it.
type HandlerLookup interface {
	Handler(name string) (Handler, bool)
}

// Graveyard records tasks that will never run again.
type Graveyard interface {
	Bury(ctx context.Context, t *Task, reason string) error
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount is the number of tasks executed concurrently.
	// If zero or negative, defaults to 1.
	WorkerCount int

	// RetryBaseDelay is the base of the linear retry backoff.
	RetryBaseDelay time.Duration

	// MaxRetries caps the number of retries per task. Zero means no cap.
	MaxRetries int
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount:    2,
		RetryBaseDelay: 60 * time.Second,
		MaxRetries:     5,
	}
}

// WorkerPool receives deliveries from a broker and runs each one on a free
// worker slot. A slot is taken before receiving, so the pool never holds
// more deliveries than it can execute.
type WorkerPool struct {
	broker    Broker
	handlers  HandlerLookup
	graveyard Graveyard
	config    WorkerPoolConfig
	logger    *slog.Logger
	now       func() time.Time

	slots chan struct{}

	// loopWg tracks the receive loop, wg tracks running tasks.
	loopWg sync.WaitGroup
	wg     sync.WaitGroup

	recvCancel context.CancelFunc
	execCtx    context.Context
	execCancel context.CancelFunc

	// errorHandler is called for every permanent failure, after logging.
	errorHandler func(t *Task, err error)
}

// NewWorkerPool creates a new worker pool. graveyard may be nil, in which
// case permanently failed tasks are only logged.
func NewWorkerPool(
	broker Broker,
	handlers HandlerLookup,
	graveyard Graveyard,
	config WorkerPoolConfig,
	logger *slog.Logger,
) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "worker_pool"))

	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			slog.Int("specified_count", config.WorkerCount),
			slog.Int("default_count", 1))
		config.WorkerCount = 1
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}

	return &WorkerPool{
		broker:    broker,
		handlers:  handlers,
		graveyard: graveyard,
		config:    config,
		logger:    logger,
		now:       time.Now,
		slots:     make(chan struct{}, config.WorkerCount),
	}
}

// SetErrorHandler allows setting a custom handler for permanent failures
func (p *WorkerPool) SetErrorHandler(handler func(t *Task, err error)) {
	p.errorHandler = handler
}

// Start launches the receive loop. It returns immediately.
func (p *WorkerPool) Start() {
	recvCtx, recvCancel := context.WithCancel(context.Background())
	p.recvCancel = recvCancel
	p.execCtx, p.execCancel = context.WithCancel(context.Background())

	p.logger.Info("starting worker pool",
		slog.Int("worker_count", p.config.WorkerCount),
		slog.Int("max_retries", p.config.MaxRetries),
		slog.Duration("retry_base_delay", p.config.RetryBaseDelay))

	p.loopWg.Add(1)
	go p.receiveLoop(recvCtx)
}

// Stop stops receiving and waits for running tasks. If ctx expires first,
// the running handlers' context is cancelled and Stop returns ctx.Err()
// once they have returned.
func (p *WorkerPool) Stop(ctx context.Context) error {
	if p.recvCancel == nil {
		return nil
	}
	p.recvCancel()
	p.loopWg.Wait()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.execCancel()
		p.logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("shutdown deadline reached, cancelling running tasks")
		p.execCancel()
		<-done
		return ctx.Err()
	}
}

func (p *WorkerPool) receiveLoop(ctx context.Context) {
	defer p.loopWg.Done()

	for {
		select {
		case p.slots <- struct{}{}:
		case <-ctx.Done():
			return
		}

		d, err := p.broker.Receive(ctx)
		if err != nil {
			<-p.slots
			if ctx.Err() != nil || errors.Is(err, ErrBrokerClosed) {
				p.logger.Debug("receive loop stopping", slog.String("reason", err.Error()))
				return
			}
			p.logger.Error("failed to receive task", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer func() { <-p.slots }()
			p.process(d)
		}()
	}
}

// process runs one delivery and acks it unless the outcome requires
// redelivery.
func (p *WorkerPool) process(d *Delivery) {
	t := d.Task
	log := p.logger.With(
		slog.String("task_id", t.ID.String()),
		slog.String("task_name", t.Name),
		slog.Int("attempt", t.Attempt),
	)

	ack := true
	handler, ok := p.handlers.Handler(t.Name)
	if !ok {
		p.fail(t, &PermanentFailure{
			TaskID: t.ID, Name: t.Name, Attempt: t.Attempt,
			Err: fmt.Errorf("%w: %s", ErrUnknownTask, t.Name),
		}, log)
	} else {
		log.Info("processing task")
		err := p.run(handler, t)

		var retry *RetryRequest
		switch {
		case err == nil:
			log.Info("task completed successfully")
		case p.execCtx.Err() != nil:
			// Interrupted by shutdown, even if the handler asked for a retry:
			// the attempt is not spent and the delivery stays unacked.
			log.Warn("task interrupted by shutdown", slog.String("error", err.Error()))
			ack = false
		case errors.As(err, &retry):
			ack = p.reschedule(t, retry, log)
		default:
			var failure *PermanentFailure
			if !errors.As(err, &failure) {
				failure = &PermanentFailure{TaskID: t.ID, Name: t.Name, Attempt: t.Attempt, Err: err}
			}
			p.fail(t, failure, log)
		}
	}

	if !ack {
		return
	}
	ackCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.Ack(ackCtx); err != nil {
		log.Error("failed to ack task", slog.String("error", err.Error()))
	}
}

// run executes the handler, converting a panic into a PermanentFailure.
func (p *WorkerPool) run(h Handler, t *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PermanentFailure{
				TaskID: t.ID, Name: t.Name, Attempt: t.Attempt,
				Err:   fmt.Errorf("panic: %v", r),
				Panic: r,
			}
		}
	}()
	return h(p.execCtx, NewRetryContext(t.Clone(), p.config.RetryBaseDelay))
}

// reschedule publishes the next attempt. It reports whether the current
// delivery may be acked.
func (p *WorkerPool) reschedule(t *Task, retry *RetryRequest, log *slog.Logger) bool {
	cause := "retry requested"
	if retry.Cause != nil {
		cause = retry.Cause.Error()
	}

	nextAttempt := t.Attempt + 1
	if p.config.MaxRetries > 0 && nextAttempt > p.config.MaxRetries {
		p.fail(t, &PermanentFailure{
			TaskID: t.ID, Name: t.Name, Attempt: t.Attempt,
			Err: fmt.Errorf("%w after %d retries: %s", ErrRetriesExhausted, p.config.MaxRetries, cause),
		}, log)
		return true
	}

	next := t.Clone()
	next.Attempt = nextAttempt
	next.Due = p.now().UTC().Add(retry.Delay)
	next.LastError = cause

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.broker.Publish(ctx, next); err != nil {
		log.Error("failed to reschedule task, leaving it for redelivery",
			slog.String("error", err.Error()))
		return false
	}

	log.Warn("task failed, retry scheduled",
		slog.String("cause", cause),
		slog.Int("next_attempt", next.Attempt),
		slog.Duration("delay", retry.Delay))
	return true
}

// fail logs a permanent failure and buries the task.
func (p *WorkerPool) fail(t *Task, failure *PermanentFailure, log *slog.Logger) {
	log.Error("task failed permanently", slog.String("error", failure.Error()))

	if p.errorHandler != nil {
		p.errorHandler(t, failure)
	}
	if p.graveyard == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.graveyard.Bury(ctx, t, failure.Error()); err != nil {
		log.Error("failed to bury task", slog.String("error", err.Error()))
	}
}
