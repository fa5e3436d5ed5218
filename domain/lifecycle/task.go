package lifecycle

import (
	"closedesk/domain/model"
	"closedesk/pkg/errors"
)

// CanCompleteTask reports whether a task in the given stored status may
// move to completed. Completing an already-completed task is treated as
// a no-op by the caller, not an error here.
func CanCompleteTask(from model.TaskStatus) bool {
	switch from {
	case model.TaskPending, model.TaskInProgress, model.TaskOverdue:
		return true
	}
	return false
}

// ValidateTaskStatus returns a typed error when from -> to is not a
// legal task transition. Overdue is a derived status and is never
// written; attempts to store it are rejected.
func ValidateTaskStatus(from, to model.TaskStatus) error {
	if to == model.TaskOverdue {
		return errors.NewValidationError("overdue is derived from the due date, not set directly")
	}
	if from == model.TaskCompleted {
		return errors.NewInvalidTransitionError(string(from), string(to))
	}
	switch to {
	case model.TaskPending, model.TaskInProgress, model.TaskCompleted:
		return nil
	}
	return errors.NewValidationError("unknown task status")
}
