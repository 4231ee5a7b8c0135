package kafka

import (
	"context"
	"fmt"

	"github.com/phrazzld/accounts-api/internal/task"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Publisher produces tasks to a single topic.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// NewProducerClient creates a franz-go client suitable for Publisher.
func NewProducerClient(brokers []string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return client, nil
}

// NewPublisher creates a Publisher writing to topic.
func NewPublisher(client *kgo.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

var _ task.TaskPublisher = (*Publisher)(nil)

// PublishTasks produces all tasks and waits for every record to be
// acknowledged by the brokers.
func (p *Publisher) PublishTasks(ctx context.Context, tasks []*task.Task) error {
	records := make([]*kgo.Record, 0, len(tasks))
	for _, t := range tasks {
		rec, err := EncodeRecord(p.topic, t)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("publish %d tasks: %w", len(records), err)
	}
	return nil
}
