package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/accounts-api/internal/task"
	"github.com/twmb/franz-go/pkg/kgo"
)

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// MaxPollRecords bounds how many records one poll buffers.
	MaxPollRecords int
}

// Consumer reads tasks from a topic as a consumer group member. Offsets are
// committed manually as deliveries are acked.
type Consumer struct {
	client  *kgo.Client
	tracker *offsetTracker
	logger  *slog.Logger
	maxPoll int

	mu       sync.Mutex
	buffered []*kgo.Record
}

// NewConsumer creates a Consumer and joins the consumer group.
func NewConsumer(cfg ConsumerConfig, logger *slog.Logger) (*Consumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPollRecords <= 0 {
		cfg.MaxPollRecords = 100
	}

	c := &Consumer{
		tracker: newOffsetTracker(),
		logger:  logger.With(slog.String("component", "kafka_consumer"), slog.String("topic", cfg.Topic)),
		maxPoll: cfg.MaxPollRecords,
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.DisableAutoCommit(),
		kgo.OnPartitionsRevoked(c.onRevoked),
		kgo.OnPartitionsLost(c.onRevoked),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	c.client = client
	return c, nil
}

var _ task.DeliverySource = (*Consumer)(nil)

func (c *Consumer) onRevoked(_ context.Context, _ *kgo.Client, revoked map[string][]int32) {
	c.logger.Info("partitions revoked", slog.Any("partitions", revoked))
	c.tracker.forget(revoked)

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.buffered[:0]
	for _, rec := range c.buffered {
		if !contains(revoked[rec.Topic], rec.Partition) {
			kept = append(kept, rec)
		}
	}
	c.buffered = kept
}

func contains(partitions []int32, p int32) bool {
	for _, q := range partitions {
		if q == p {
			return true
		}
	}
	return false
}

// Receive implements task.DeliverySource.
func (c *Consumer) Receive(ctx context.Context) (*task.Delivery, error) {
	for {
		rec, err := c.next(ctx)
		if err != nil {
			return nil, err
		}

		c.tracker.track(rec)
		t, err := DecodeRecord(rec)
		if err != nil {
			// Skip records that will never decode, but keep offsets moving.
			c.logger.Error("dropping undecodable record",
				slog.Int("partition", int(rec.Partition)),
				slog.Int64("offset", rec.Offset),
				slog.String("error", err.Error()))
			if err := c.commit(ctx, rec); err != nil {
				c.logger.Error("failed to commit skipped record", slog.String("error", err.Error()))
			}
			continue
		}

		return task.NewDelivery(t, func(ctx context.Context) error {
			return c.commit(ctx, rec)
		}), nil
	}
}

// next returns the next buffered record, polling when the buffer is empty.
func (c *Consumer) next(ctx context.Context) (*kgo.Record, error) {
	for {
		c.mu.Lock()
		if len(c.buffered) > 0 {
			rec := c.buffered[0]
			c.buffered = c.buffered[1:]
			c.mu.Unlock()
			return rec, nil
		}
		c.mu.Unlock()

		fetches := c.client.PollRecords(ctx, c.maxPoll)
		if fetches.IsClientClosed() {
			return nil, task.ErrBrokerClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var fetchErr error
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("fetch error",
				slog.String("fetch_topic", topic),
				slog.Int("partition", int(partition)),
				slog.String("error", err.Error()))
			fetchErr = err
		})

		records := fetches.Records()
		if len(records) == 0 && fetchErr != nil {
			return nil, fmt.Errorf("poll records: %w", fetchErr)
		}

		c.mu.Lock()
		c.buffered = append(c.buffered, records...)
		c.mu.Unlock()
	}
}

// commit marks rec done and commits the partition's new contiguous offset.
func (c *Consumer) commit(ctx context.Context, rec *kgo.Record) error {
	if !c.tracker.owns(rec) {
		// The partition moved to another member; it will redeliver.
		return nil
	}
	upTo := c.tracker.done(rec)
	if upTo == nil {
		return nil
	}
	if err := c.client.CommitRecords(ctx, upTo); err != nil {
		return fmt.Errorf("commit offset %d on %s/%d: %w", upTo.Offset, upTo.Topic, upTo.Partition, err)
	}
	return nil
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() error {
	c.client.Close()
	return nil
}
