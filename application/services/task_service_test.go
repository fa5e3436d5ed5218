package services

import (
	"context"
	"testing"
	"time"

	"closedesk/application/ports"
	"closedesk/domain/events"
	"closedesk/domain/model"
	"closedesk/infrastructure/persistence/memory"
	apperrors "closedesk/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hookedTaskRepo runs a callback between the service's status read and
// the repository write, standing in for a concurrent writer.
type hookedTaskRepo struct {
	ports.TaskRepository
	beforeUpdate func()
}

func (r *hookedTaskRepo) UpdateStatus(ctx context.Context, taskID string, expected, to model.TaskStatus, updatedAt time.Time) (*model.Task, error) {
	if hook := r.beforeUpdate; hook != nil {
		r.beforeUpdate = nil
		hook()
	}
	return r.TaskRepository.UpdateStatus(ctx, taskID, expected, to, updatedAt)
}

func newTaskFixture(t *testing.T) (*TaskService, *recordingEmitter) {
	t.Helper()
	emitter := &recordingEmitter{}
	svc := NewTaskService(memory.NewTaskRepository(), memory.NewMessageRepository(), emitter, testLogger())
	return svc, emitter
}

func createTask(t *testing.T, svc *TaskService) *model.Task {
	t.Helper()
	task, err := svc.Create(context.Background(), &model.Task{
		TransactionID: "txn-1",
		Title:         "Order title search",
		AssignedTo:    "tc-1",
		AssignedBy:    "agent-1",
		DueDate:       time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)
	return task
}

func TestTaskCreateAnnouncesToRoomAndAssignee(t *testing.T) {
	svc, emitter := newTaskFixture(t)
	task := createTask(t, svc)

	assert.Equal(t, model.TaskPending, task.Status)
	assert.Equal(t, model.PriorityMedium, task.Priority)

	rooms := emitter.rooms(events.NameTaskCreated)
	assert.True(t, rooms[events.TaskRoom(task.TaskID)])
	assert.True(t, rooms[events.UserRoom("tc-1")])
}

func TestTaskCompleteIsIdempotent(t *testing.T) {
	svc, emitter := newTaskFixture(t)
	task := createTask(t, svc)

	first, err := svc.Complete(context.Background(), task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, first.Status)

	second, err := svc.Complete(context.Background(), task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, second.Status)

	// Only the first completion announces.
	assert.Len(t, emitter.named(events.NameTaskCompleted), 2)
}

func TestTaskUpdateStatusDelegatesCompletion(t *testing.T) {
	svc, emitter := newTaskFixture(t)
	task := createTask(t, svc)

	updated, err := svc.UpdateStatus(context.Background(), task.TaskID, model.TaskCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, updated.Status)

	assert.NotEmpty(t, emitter.named(events.NameTaskCompleted))
	assert.Empty(t, emitter.named(events.NameTaskUpdated))
}

func TestTaskOverdueIsDerivedNotStored(t *testing.T) {
	svc, _ := newTaskFixture(t)
	task, err := svc.Create(context.Background(), &model.Task{
		TransactionID: "txn-1",
		Title:         "Collect signatures",
		AssignedTo:    "tc-1",
		DueDate:       time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	stored, err := svc.Get(context.Background(), task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskPending, stored.Status)
	assert.Equal(t, model.TaskOverdue, stored.EffectiveStatus(time.Now()))

	// Storing overdue directly is rejected; it only exists as a view.
	_, err = svc.UpdateStatus(context.Background(), task.TaskID, model.TaskOverdue)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	// An overdue task still completes.
	completed, err := svc.Complete(context.Background(), task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, completed.Status)
	assert.Equal(t, model.TaskCompleted, completed.EffectiveStatus(time.Now()))
}

func TestTaskStatusWriteCannotResurrectCompleted(t *testing.T) {
	inner := memory.NewTaskRepository()
	repo := &hookedTaskRepo{TaskRepository: inner}
	emitter := &recordingEmitter{}
	svc := NewTaskService(repo, memory.NewMessageRepository(), emitter, testLogger())
	task := createTask(t, svc)

	// Another writer completes the task between this call's read and
	// its write.
	repo.beforeUpdate = func() {
		_, err := inner.UpdateStatus(context.Background(), task.TaskID, model.TaskPending, model.TaskCompleted, time.Now())
		require.NoError(t, err)
	}

	_, err := svc.UpdateStatus(context.Background(), task.TaskID, model.TaskInProgress)
	require.Error(t, err)
	assert.True(t, apperrors.IsStaleState(err))

	stored, err := svc.Get(context.Background(), task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, stored.Status)
}

func TestTaskCompleteRaceCollapsesToNoop(t *testing.T) {
	inner := memory.NewTaskRepository()
	repo := &hookedTaskRepo{TaskRepository: inner}
	emitter := &recordingEmitter{}
	svc := NewTaskService(repo, memory.NewMessageRepository(), emitter, testLogger())
	task := createTask(t, svc)
	emitter.reset()

	// A concurrent completion lands first; this call's conditional
	// write fails, the retry finds completed and emits nothing.
	repo.beforeUpdate = func() {
		_, err := inner.UpdateStatus(context.Background(), task.TaskID, model.TaskPending, model.TaskCompleted, time.Now())
		require.NoError(t, err)
	}

	completed, err := svc.Complete(context.Background(), task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, completed.Status)
	assert.Empty(t, emitter.named(events.NameTaskCompleted))
}

func TestTaskPostMessageUpdatesUnreadCounts(t *testing.T) {
	svc, emitter := newTaskFixture(t)
	task := createTask(t, svc)
	emitter.reset()

	msg, err := svc.PostMessage(context.Background(), &model.Message{
		TaskID:     task.TaskID,
		SenderID:   "agent-1",
		SenderRole: "agent",
		Body:       "Inspection scheduled for Tuesday",
	})
	require.NoError(t, err)
	assert.False(t, msg.Read)
	assert.NotEmpty(t, msg.MessageID)

	assert.Len(t, emitter.named(events.NameNewMessage), 1)

	// Unread counts move for the two roles that did not send.
	counts := map[string]int{}
	for _, rec := range emitter.named(events.NameUnreadCountUpdate) {
		upd := rec.Event.(events.UnreadCountUpdate)
		counts[upd.Role] = upd.Count
	}
	assert.Equal(t, map[string]int{"tc": 1, "broker": 1}, counts)
}

func TestTaskReadReceiptSweep(t *testing.T) {
	svc, emitter := newTaskFixture(t)
	task := createTask(t, svc)

	for i := 0; i < 3; i++ {
		_, err := svc.PostMessage(context.Background(), &model.Message{
			TaskID:     task.TaskID,
			SenderID:   "agent-1",
			SenderRole: "agent",
			Body:       "update",
		})
		require.NoError(t, err)
	}

	count, err := svc.UnreadCount(context.Background(), task.TaskID, "tc")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	emitter.reset()

	require.NoError(t, svc.MarkMessagesRead(context.Background(), task.TaskID, "tc"))

	// One receipt per marked message, then the zeroed counter.
	assert.Len(t, emitter.named(events.NameMessageRead), 3)
	updates := emitter.named(events.NameUnreadCountUpdate)
	require.Len(t, updates, 1)
	upd := updates[0].Event.(events.UnreadCountUpdate)
	assert.Equal(t, "tc", upd.Role)
	assert.Equal(t, 0, upd.Count)

	count, err = svc.UnreadCount(context.Background(), task.TaskID, "tc")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTaskMarkReadIsIdempotent(t *testing.T) {
	svc, emitter := newTaskFixture(t)
	task := createTask(t, svc)

	_, err := svc.PostMessage(context.Background(), &model.Message{
		TaskID:     task.TaskID,
		SenderID:   "agent-1",
		SenderRole: "agent",
		Body:       "hello",
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkMessagesRead(context.Background(), task.TaskID, "tc"))
	emitter.reset()

	// Second sweep finds nothing to mark: no receipts, counter still 0.
	require.NoError(t, svc.MarkMessagesRead(context.Background(), task.TaskID, "tc"))
	assert.Empty(t, emitter.named(events.NameMessageRead))
	require.Len(t, emitter.named(events.NameUnreadCountUpdate), 1)
}

func TestTaskPostMessageRejectsEmptyBody(t *testing.T) {
	svc, _ := newTaskFixture(t)
	task := createTask(t, svc)

	_, err := svc.PostMessage(context.Background(), &model.Message{
		TaskID:     task.TaskID,
		SenderID:   "agent-1",
		SenderRole: "agent",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
