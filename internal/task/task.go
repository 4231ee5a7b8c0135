package task

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/store"
)

// Task names known to the system.
const (
	// TaskActivateAccount sends the activation email for a new account.
	TaskActivateAccount = "activate-account"

	// TaskSendCongrats sends the scheduled congratulations broadcast.
	TaskSendCongrats = "send-congrats"
)

// Task is a named unit of deferred work. The payload is copied when the
// task is enqueued and must not be changed afterwards.
type Task struct {
	ID         uuid.UUID
	Name       string
	Payload    map[string]string
	Attempt    int
	Due        time.Time
	LastError  string
	EnqueuedAt time.Time
}

// Get returns a payload value, or the empty string if the key is absent.
func (t *Task) Get(key string) string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload[key]
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	c.Payload = maps.Clone(t.Payload)
	return &c
}

// ToQueued converts the task to its persisted form.
func (t *Task) ToQueued() (*store.QueuedTask, error) {
	payload := t.Payload
	if payload == nil {
		payload = map[string]string{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload for task %s: %w", t.ID, err)
	}
	return &store.QueuedTask{
		ID:         t.ID,
		Name:       t.Name,
		Payload:    data,
		Attempt:    t.Attempt,
		Due:        t.Due,
		LastError:  t.LastError,
		EnqueuedAt: t.EnqueuedAt,
	}, nil
}

// FromQueued converts a persisted task back into a Task.
func FromQueued(q *store.QueuedTask) (*Task, error) {
	t := &Task{
		ID:         q.ID,
		Name:       q.Name,
		Attempt:    q.Attempt,
		Due:        q.Due,
		LastError:  q.LastError,
		EnqueuedAt: q.EnqueuedAt,
	}
	if len(q.Payload) > 0 {
		if err := json.Unmarshal(q.Payload, &t.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload for task %s: %w", q.ID, err)
		}
	}
	return t, nil
}
