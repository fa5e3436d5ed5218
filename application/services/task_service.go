package services

import (
	"context"
	"sync"
	"time"

	"closedesk/application/ports"
	"closedesk/domain/events"
	"closedesk/domain/lifecycle"
	"closedesk/domain/model"
	"closedesk/pkg/auth"
	"closedesk/pkg/errors"
	"closedesk/pkg/metrics"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// TaskService owns the task lifecycle and the per-task message log with
// its unread counters.
type TaskService struct {
	tasks    ports.TaskRepository
	messages ports.MessageRepository
	emitter  ports.Emitter
	logger   *zap.Logger
	now      func() time.Time

	// Serializes message appends and read-receipt sweeps against their
	// unread_count_update events: no observer sees the counter move
	// without the event, or the event without the counter.
	countersMu sync.Mutex
}

// NewTaskService creates the task service.
func NewTaskService(
	tasks ports.TaskRepository,
	messages ports.MessageRepository,
	emitter ports.Emitter,
	logger *zap.Logger,
) *TaskService {
	return &TaskService{
		tasks:    tasks,
		messages: messages,
		emitter:  emitter,
		logger:   logger,
		now:      time.Now,
	}
}

// Create persists a new task and announces it to the task room and the
// assignee.
func (s *TaskService) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	if task.TaskID == "" {
		task.TaskID = uuid.NewString()
	}
	now := s.now()
	task.Status = model.TaskPending
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	ev := events.TaskCreated{Task: task}
	s.emitter.EmitToTask(task.TaskID, ev)
	if task.AssignedTo != "" {
		s.emitter.EmitToUser(task.AssignedTo, ev)
	}
	return task, nil
}

// Get returns a task by ID. Overdue is derived by the caller via
// EffectiveStatus; the stored status is returned untouched.
func (s *TaskService) Get(ctx context.Context, taskID string) (*model.Task, error) {
	return s.tasks.Get(ctx, taskID)
}

// ListByTransaction returns the tasks of a transaction.
func (s *TaskService) ListByTransaction(ctx context.Context, transactionID string) ([]*model.Task, error) {
	return s.tasks.ListByTransaction(ctx, transactionID)
}

// UpdateStatus moves a task to pending or in_progress. Completion goes
// through Complete so its idempotence and event contract hold.
func (s *TaskService) UpdateStatus(ctx context.Context, taskID string, to model.TaskStatus) (*model.Task, error) {
	if to == model.TaskCompleted {
		return s.Complete(ctx, taskID)
	}

	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.ValidateTaskStatus(task.Status, to); err != nil {
		return nil, err
	}

	// Conditional on the status the edge was validated against; a
	// racing writer surfaces as StaleState instead of being clobbered.
	task, err = s.tasks.UpdateStatus(ctx, taskID, task.Status, to, s.now())
	if err != nil {
		return nil, err
	}

	ev := events.TaskUpdated{TaskID: taskID, Status: to}
	s.emitter.EmitToTask(taskID, ev)
	if task.AssignedTo != "" {
		s.emitter.EmitToUser(task.AssignedTo, ev)
	}
	return task, nil
}

// Complete marks a task completed. Completing an already-completed task
// is a no-op success; only the first completion emits task_completed.
// When the conditional write loses a race it re-reads and retries, so
// a concurrent completion degrades into the no-op path.
func (s *TaskService) Complete(ctx context.Context, taskID string) (*model.Task, error) {
	for {
		task, err := s.tasks.Get(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if task.Status == model.TaskCompleted {
			return task, nil
		}
		if !lifecycle.CanCompleteTask(task.Status) {
			return nil, errors.NewInvalidTransitionError(string(task.Status), string(model.TaskCompleted))
		}

		task, err = s.tasks.UpdateStatus(ctx, taskID, task.Status, model.TaskCompleted, s.now())
		if errors.IsStaleState(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		metrics.TasksCompleted.Inc()

		ev := events.TaskCompleted{TaskID: task.TaskID, TransactionID: task.TransactionID}
		s.emitter.EmitToTask(task.TaskID, ev)
		if task.AssignedTo != "" {
			s.emitter.EmitToUser(task.AssignedTo, ev)
		}
		return task, nil
	}
}

// PostMessage appends a message to the task log, announces it, and
// pushes the refreshed unread counts for the recipient roles.
func (s *TaskService) PostMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if msg.Body == "" {
		return nil, errors.NewValidationError("message body is required")
	}
	if msg.MessageID == "" {
		msg.MessageID = ulid.Make().String()
	}
	msg.CreatedAt = s.now()
	msg.Read = false

	s.countersMu.Lock()
	defer s.countersMu.Unlock()

	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, err
	}
	metrics.MessagesPosted.Inc()

	s.emitter.EmitToTask(msg.TaskID, events.NewMessage{Message: msg})
	for _, role := range []auth.Role{auth.RoleAgent, auth.RoleTC, auth.RoleBroker} {
		if string(role) == msg.SenderRole {
			continue
		}
		count, err := s.messages.CountUnread(ctx, msg.TaskID, string(role))
		if err != nil {
			s.logger.Warn("unread count failed",
				zap.String("task_id", msg.TaskID),
				zap.String("role", string(role)),
				zap.Error(err))
			continue
		}
		s.emitter.EmitToTask(msg.TaskID, events.UnreadCountUpdate{
			TaskID: msg.TaskID,
			Role:   string(role),
			Count:  count,
		})
	}
	return msg, nil
}

// ListMessages returns the message log of a task.
func (s *TaskService) ListMessages(ctx context.Context, taskID string) ([]*model.Message, error) {
	return s.messages.ListByTask(ctx, taskID)
}

// MarkMessagesRead runs the read-receipt sweep for one (task, role)
// pair. The sweep and its unread_count_update event are atomic with
// respect to message posting: both happen under the counters lock.
func (s *TaskService) MarkMessagesRead(ctx context.Context, taskID, recipientRole string) error {
	s.countersMu.Lock()
	defer s.countersMu.Unlock()

	marked, err := s.messages.MarkRead(ctx, taskID, recipientRole)
	if err != nil {
		return err
	}
	for _, msg := range marked {
		s.emitter.EmitToTask(taskID, events.MessageRead{
			MessageID: msg.MessageID,
			TaskID:    taskID,
		})
	}
	s.emitter.EmitToTask(taskID, events.UnreadCountUpdate{
		TaskID: taskID,
		Role:   recipientRole,
		Count:  0,
	})
	return nil
}

// UnreadCount is the poll-path counterpart of unread_count_update: a
// consumer reading it converges to the same value the push events
// describe.
func (s *TaskService) UnreadCount(ctx context.Context, taskID, recipientRole string) (int, error) {
	s.countersMu.Lock()
	defer s.countersMu.Unlock()
	return s.messages.CountUnread(ctx, taskID, recipientRole)
}
