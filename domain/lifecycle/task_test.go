package lifecycle

import (
	"testing"
	"time"

	"closedesk/domain/model"
	"closedesk/pkg/errors"

	"github.com/stretchr/testify/assert"
)

func TestCanCompleteTask(t *testing.T) {
	assert.True(t, CanCompleteTask(model.TaskPending))
	assert.True(t, CanCompleteTask(model.TaskInProgress))
	assert.True(t, CanCompleteTask(model.TaskOverdue))
	assert.False(t, CanCompleteTask(model.TaskCompleted))
}

func TestValidateTaskStatus(t *testing.T) {
	assert.NoError(t, ValidateTaskStatus(model.TaskPending, model.TaskInProgress))
	assert.NoError(t, ValidateTaskStatus(model.TaskInProgress, model.TaskCompleted))

	// Completed is terminal.
	err := ValidateTaskStatus(model.TaskCompleted, model.TaskInProgress)
	assert.True(t, errors.IsInvalidTransition(err))

	// Overdue is derived, never stored.
	err = ValidateTaskStatus(model.TaskPending, model.TaskOverdue)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestEffectiveStatus_DerivedOverdue(t *testing.T) {
	now := time.Now()
	task := &model.Task{
		Status:  model.TaskPending,
		DueDate: now.Add(-time.Hour),
	}

	// Derived status is overdue while the stored status stays pending.
	assert.Equal(t, model.TaskOverdue, task.EffectiveStatus(now))
	assert.Equal(t, model.TaskPending, task.Status)

	// Completed tasks never read as overdue.
	task.Status = model.TaskCompleted
	assert.Equal(t, model.TaskCompleted, task.EffectiveStatus(now))

	// Not yet due.
	task.Status = model.TaskInProgress
	task.DueDate = now.Add(time.Hour)
	assert.Equal(t, model.TaskInProgress, task.EffectiveStatus(now))
}
