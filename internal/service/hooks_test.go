package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/accounts-api/internal/domain"
	"github.com/phrazzld/accounts-api/internal/mocks"
	"github.com/phrazzld/accounts-api/internal/service"
	"github.com/phrazzld/accounts-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivationEmailHook(t *testing.T) {
	ctx := context.Background()

	account, err := domain.NewAccount("alice", "alice@example.com", "password123")
	require.NoError(t, err)

	t.Run("enqueues activation task", func(t *testing.T) {
		queue := &mocks.MockEnqueuer{}
		hook := service.NewActivationEmailHook(queue, discardLogger())

		require.NoError(t, hook.AccountCreated(ctx, account))
		tasks := queue.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, task.TaskActivateAccount, tasks[0].Name)
		assert.Equal(t, account.ActivationCode.String(), tasks[0].Payload["code"])
	})

	t.Run("skips superusers", func(t *testing.T) {
		queue := &mocks.MockEnqueuer{}
		hook := service.NewActivationEmailHook(queue, discardLogger())

		admin := *account
		admin.IsSuperuser = true
		require.NoError(t, hook.AccountCreated(ctx, &admin))
		assert.Empty(t, queue.Tasks())
	})

	t.Run("wraps enqueue errors", func(t *testing.T) {
		brokerErr := errors.New("broker down")
		hook := service.NewActivationEmailHook(&mocks.MockEnqueuer{Err: brokerErr}, discardLogger())

		err := hook.AccountCreated(ctx, account)
		assert.ErrorIs(t, err, brokerErr)
	})
}
