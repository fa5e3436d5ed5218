package model

import "time"

// TaskStatus enumerates the lifecycle states of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskOverdue    TaskStatus = "overdue"
	TaskCompleted  TaskStatus = "completed"
)

// TaskPriority orders tasks for display and reminders.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Task is a unit of work attached to a transaction.
type Task struct {
	TaskID        string       `json:"task_id"`
	TransactionID string       `json:"transaction_id"`
	Title         string       `json:"title"`
	AssignedTo    string       `json:"assigned_to"`
	AssignedBy    string       `json:"assigned_by"`
	DueDate       time.Time    `json:"due_date"`
	Priority      TaskPriority `json:"priority"`
	Status        TaskStatus   `json:"status"`
	AIReminder    bool         `json:"ai_reminder"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// EffectiveStatus returns the status a reader should see. A pending or
// in-progress task past its due date reads as overdue; the stored
// status is not mutated.
func (t *Task) EffectiveStatus(now time.Time) TaskStatus {
	if t.Status != TaskCompleted && now.After(t.DueDate) {
		return TaskOverdue
	}
	return t.Status
}

// Message is an append-only chat entry on a task.
type Message struct {
	MessageID  string    `json:"message_id"`
	TaskID     string    `json:"task_id"`
	SenderID   string    `json:"sender_id"`
	SenderRole string    `json:"sender_role"`
	Body       string    `json:"body"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}
