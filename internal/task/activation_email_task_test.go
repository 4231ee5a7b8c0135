package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/accounts-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activationTask(t *testing.T, attempt int) (*Task, *domain.Account) {
	t.Helper()
	account, err := domain.NewAccount("alice", "alice@example.com", "password123")
	require.NoError(t, err)
	return &Task{
		ID:      uuid.New(),
		Name:    TaskActivateAccount,
		Payload: ActivationPayload(account),
		Attempt: attempt,
	}, account
}

func TestActivationLink(t *testing.T) {
	link, err := ActivationLink("http://127.0.0.1:8080/", "abc", "a b")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/api/v1/accounts/abc/activate?code=a+b", link)
}

func TestActivationEmailHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("sends activation link", func(t *testing.T) {
		mailer := &mockMailer{}
		handler := NewActivationEmailHandler(mailer, "https://accounts.example.com", setupTestLogger())
		task, account := activationTask(t, 0)

		require.NoError(t, handler(ctx, NewRetryContext(task, time.Minute)))

		sent := mailer.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, TemplateActivation, sent[0].Template)
		assert.Equal(t, TitleActivation, sent[0].Title)
		assert.Equal(t, []string{"alice@example.com"}, sent[0].To)

		data, ok := sent[0].Data.(ActivationEmailData)
		require.True(t, ok)
		assert.Equal(t, "alice", data.Username)
		assert.Equal(t,
			"https://accounts.example.com/api/v1/accounts/"+account.ID.String()+
				"/activate?code="+account.ActivationCode.String(),
			data.Link)
	})

	t.Run("mail failure requests retry with backoff", func(t *testing.T) {
		for attempt, delay := range []time.Duration{60 * time.Second, 120 * time.Second, 180 * time.Second} {
			sendErr := errors.New("smtp timeout")
			mailer := &mockMailer{failures: 1, err: sendErr}
			handler := NewActivationEmailHandler(mailer, "http://localhost", setupTestLogger())
			task, _ := activationTask(t, attempt)

			err := handler(ctx, NewRetryContext(task, 60*time.Second))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRetryRequested)
			assert.ErrorIs(t, err, sendErr)

			var req *RetryRequest
			require.True(t, errors.As(err, &req))
			assert.Equal(t, delay, req.Delay, "attempt %d", attempt)
		}
	})

	t.Run("malformed payload fails without retry", func(t *testing.T) {
		handler := NewActivationEmailHandler(&mockMailer{}, "http://localhost", setupTestLogger())
		task := &Task{ID: uuid.New(), Name: TaskActivateAccount, Payload: map[string]string{}}

		err := handler(ctx, NewRetryContext(task, time.Minute))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrRetryRequested)
	})
}

func TestActivationEmailHandler_ThroughPool(t *testing.T) {
	config := WorkerPoolConfig{WorkerCount: 1, RetryBaseDelay: 60 * time.Second, MaxRetries: 5}
	q, broker, pool, now := newTestPool(t, config)

	mailer := &mockMailer{failures: 2, err: errors.New("smtp down")}
	require.NoError(t, q.RegisterHandler(TaskActivateAccount,
		NewActivationEmailHandler(mailer, "http://localhost", setupTestLogger())))
	pool.Start()

	account, err := domain.NewAccount("bob", "bob@example.com", "password123")
	require.NoError(t, err)
	_, err = q.Enqueue(context.Background(), TaskActivateAccount, ActivationPayload(account))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(mailer.Sent()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, pool.Stop(context.Background()))

	published := broker.Published()
	require.Len(t, published, 3)
	assert.Equal(t, now.Add(60*time.Second), published[1].Due)
	assert.Equal(t, now.Add(120*time.Second), published[2].Due)
	assert.Empty(t, broker.DeadLetters())
}
