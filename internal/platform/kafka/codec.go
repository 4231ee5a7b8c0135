package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/task"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Record header keys.
const (
	HeaderID         = "id"
	HeaderName       = "name"
	HeaderAttempt    = "attempt"
	HeaderEnqueuedAt = "enqueued_at"
	HeaderLastError  = "last_error"
)

// EncodeRecord turns a task into a record for topic. The key is the task
// name and the value is the JSON payload.
func EncodeRecord(topic string, t *task.Task) (*kgo.Record, error) {
	payload := t.Payload
	if payload == nil {
		payload = map[string]string{}
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload of task %s: %w", t.ID, err)
	}

	headers := []kgo.RecordHeader{
		{Key: HeaderID, Value: []byte(t.ID.String())},
		{Key: HeaderName, Value: []byte(t.Name)},
		{Key: HeaderAttempt, Value: []byte(strconv.Itoa(t.Attempt))},
		{Key: HeaderEnqueuedAt, Value: []byte(t.EnqueuedAt.UTC().Format(time.RFC3339Nano))},
	}
	if t.LastError != "" {
		headers = append(headers, kgo.RecordHeader{Key: HeaderLastError, Value: []byte(t.LastError)})
	}

	return &kgo.Record{Topic: topic, Key: []byte(t.Name), Value: value, Headers: headers}, nil
}

// DecodeRecord reads a task back from a record. The record timestamp
// becomes the task's due time, since records are only produced once due.
func DecodeRecord(rec *kgo.Record) (*task.Task, error) {
	t := &task.Task{Name: string(rec.Key), Due: rec.Timestamp}

	for _, h := range rec.Headers {
		switch h.Key {
		case HeaderID:
			id, err := uuid.ParseBytes(h.Value)
			if err != nil {
				return nil, fmt.Errorf("decode %s header: %w", HeaderID, err)
			}
			t.ID = id
		case HeaderName:
			t.Name = string(h.Value)
		case HeaderAttempt:
			attempt, err := strconv.Atoi(string(h.Value))
			if err != nil {
				return nil, fmt.Errorf("decode %s header: %w", HeaderAttempt, err)
			}
			t.Attempt = attempt
		case HeaderEnqueuedAt:
			at, err := time.Parse(time.RFC3339Nano, string(h.Value))
			if err != nil {
				return nil, fmt.Errorf("decode %s header: %w", HeaderEnqueuedAt, err)
			}
			t.EnqueuedAt = at
		case HeaderLastError:
			t.LastError = string(h.Value)
		}
	}

	if t.ID == uuid.Nil {
		return nil, fmt.Errorf("record at %s/%d@%d has no task id", rec.Topic, rec.Partition, rec.Offset)
	}
	if t.Name == "" {
		return nil, fmt.Errorf("record for task %s has no name", t.ID)
	}
	if len(rec.Value) > 0 {
		if err := json.Unmarshal(rec.Value, &t.Payload); err != nil {
			return nil, fmt.Errorf("decode payload of task %s: %w", t.ID, err)
		}
	}
	return t, nil
}
