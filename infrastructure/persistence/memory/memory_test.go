package memory

import (
	"context"
	"testing"
	"time"

	"closedesk/domain/model"
	"closedesk/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionUpdateStatusIsConditional(t *testing.T) {
	repo := NewTransactionRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &model.Transaction{
		TransactionID: "txn-1",
		Status:        model.StatusNew,
		CreatedAt:     now,
		UpdatedAt:     now,
	}))

	updated, err := repo.UpdateStatus(ctx, "txn-1", model.StatusNew, model.StatusInProgress, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, updated.Status)

	// Second writer still expects New; the record moved on.
	_, err = repo.UpdateStatus(ctx, "txn-1", model.StatusNew, model.StatusInProgress, now.Add(2*time.Minute))
	require.Error(t, err)
	assert.True(t, errors.IsStaleState(err))

	current, err := repo.Get(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, current.Status)
	assert.Equal(t, now.Add(time.Minute).Unix(), current.UpdatedAt.Unix())
}

func TestTaskUpdateStatusIsConditional(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &model.Task{
		TaskID:    "task-1",
		Status:    model.TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	updated, err := repo.UpdateStatus(ctx, "task-1", model.TaskPending, model.TaskCompleted, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, updated.Status)

	// Second writer still expects pending; completed stays put.
	_, err = repo.UpdateStatus(ctx, "task-1", model.TaskPending, model.TaskInProgress, now.Add(2*time.Minute))
	require.Error(t, err)
	assert.True(t, errors.IsStaleState(err))

	current, err := repo.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, current.Status)
	assert.Equal(t, now.Add(time.Minute).Unix(), current.UpdatedAt.Unix())
}

func TestTransactionListOpenExcludesTerminal(t *testing.T) {
	repo := NewTransactionRepository()
	ctx := context.Background()
	base := time.Now()

	seed := map[string]model.TransactionStatus{
		"txn-open-1": model.StatusPendingDocuments,
		"txn-open-2": model.StatusUnderReview,
		"txn-closed": model.StatusClosed,
		"txn-dead":   model.StatusCancelled,
	}
	i := 0
	for id, status := range seed {
		require.NoError(t, repo.Create(ctx, &model.Transaction{
			TransactionID: id,
			Status:        status,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		}))
		i++
	}

	open, err := repo.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, txn := range open {
		assert.False(t, txn.Status.Terminal())
	}
}

func TestTransactionGetReturnsCopy(t *testing.T) {
	repo := NewTransactionRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Transaction{
		TransactionID: "txn-1",
		Status:        model.StatusNew,
	}))

	first, err := repo.Get(ctx, "txn-1")
	require.NoError(t, err)
	first.Status = model.StatusClosed

	second, err := repo.Get(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, second.Status)
}

func TestMessageUnreadCountExcludesOwnRole(t *testing.T) {
	repo := NewMessageRepository()
	ctx := context.Background()

	post := func(id, role string) {
		require.NoError(t, repo.Append(ctx, &model.Message{
			MessageID:  id,
			TaskID:     "task-1",
			SenderID:   "someone",
			SenderRole: role,
			Body:       "hello",
		}))
	}
	post("m1", "tc")
	post("m2", "tc")
	post("m3", "broker")

	brokerUnread, err := repo.CountUnread(ctx, "task-1", "broker")
	require.NoError(t, err)
	assert.Equal(t, 2, brokerUnread)

	tcUnread, err := repo.CountUnread(ctx, "task-1", "tc")
	require.NoError(t, err)
	assert.Equal(t, 1, tcUnread)
}

func TestMessageMarkReadSweepsOnlyOtherRoles(t *testing.T) {
	repo := NewMessageRepository()
	ctx := context.Background()

	for _, m := range []model.Message{
		{MessageID: "m1", TaskID: "task-1", SenderRole: "tc"},
		{MessageID: "m2", TaskID: "task-1", SenderRole: "broker"},
		{MessageID: "m3", TaskID: "task-1", SenderRole: "tc"},
	} {
		msg := m
		require.NoError(t, repo.Append(ctx, &msg))
	}

	marked, err := repo.MarkRead(ctx, "task-1", "broker")
	require.NoError(t, err)
	require.Len(t, marked, 2)
	for _, msg := range marked {
		assert.Equal(t, "tc", msg.SenderRole)
		assert.True(t, msg.Read)
	}

	// Idempotent: nothing left to mark.
	marked, err = repo.MarkRead(ctx, "task-1", "broker")
	require.NoError(t, err)
	assert.Empty(t, marked)

	count, err := repo.CountUnread(ctx, "task-1", "broker")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDocumentListUnverified(t *testing.T) {
	repo := NewDocumentRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &model.Document{
		DocumentID: "doc-1",
		Status:     model.VerificationVerifying,
		UploadedAt: now,
	}))
	require.NoError(t, repo.Create(ctx, &model.Document{
		DocumentID: "doc-2",
		Status:     model.VerificationVerifying,
		UploadedAt: now.Add(time.Second),
	}))

	pending, err := repo.ListUnverified(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	_, err = repo.UpdateVerification(ctx, "doc-1", 92, nil, model.VerificationVerified, now.Add(time.Minute))
	require.NoError(t, err)

	pending, err = repo.ListUnverified(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "doc-2", pending[0].DocumentID)
}
