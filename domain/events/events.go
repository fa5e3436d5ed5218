// Package events defines the typed realtime events and the room
// addressing scheme used to scope their audiences.
package events

import (
	"fmt"
	"strings"
	"time"

	"closedesk/domain/model"
	"closedesk/pkg/auth"
)

// RoomID names an audience group: a role, a user or a task. Rooms have
// no independent existence; membership is their only state.
type RoomID string

// RoleRoom addresses every connected participant with the given role.
func RoleRoom(role auth.Role) RoomID {
	return RoomID("role:" + string(role))
}

// UserRoom addresses every connection of one user.
func UserRoom(userID string) RoomID {
	return RoomID("user:" + userID)
}

// TaskRoom addresses every participant who joined a task's channel.
func TaskRoom(taskID string) RoomID {
	return RoomID("task:" + taskID)
}

// Kind returns the room class ("role", "user" or "task") for metrics.
func (r RoomID) Kind() string {
	if i := strings.IndexByte(string(r), ':'); i > 0 {
		return string(r[:i])
	}
	return "unknown"
}

// Event is a typed realtime event. The name is the wire-level event
// type clients subscribe on.
type Event interface {
	EventName() string
}

const (
	NameAuthenticated     = "authenticated"
	NameAuthError         = "auth_error"
	NameJoinedTask        = "joined_task"
	NameNewMessage        = "new_message"
	NameMessageRead       = "message_read"
	NameUnreadCountUpdate = "unread_count_update"
	NameTaskCreated       = "task_created"
	NameTaskUpdated       = "task_updated"
	NameTaskCompleted     = "task_completed"
	NameStatusChanged     = "transaction_status_changed"
	NameAtRisk            = "transaction_at_risk"
	NameDocumentVerified  = "document_verified"
)

// Authenticated is sent to the caller only, on successful auth.
type Authenticated struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (Authenticated) EventName() string { return NameAuthenticated }

// AuthError is sent to the caller only; the connection stays open.
type AuthError struct {
	Message string `json:"message"`
}

func (AuthError) EventName() string { return NameAuthError }

// JoinedTask acknowledges a join to the caller only.
type JoinedTask struct {
	TaskID string `json:"task_id"`
}

func (JoinedTask) EventName() string { return NameJoinedTask }

// NewMessage announces a posted message to the task room.
type NewMessage struct {
	Message *model.Message `json:"message"`
}

func (NewMessage) EventName() string { return NameNewMessage }

// MessageRead announces a read receipt to the task room.
type MessageRead struct {
	MessageID string `json:"message_id"`
	TaskID    string `json:"task_id"`
}

func (MessageRead) EventName() string { return NameMessageRead }

// UnreadCountUpdate carries the post-sweep unread count for one role.
type UnreadCountUpdate struct {
	TaskID string `json:"task_id"`
	Role   string `json:"role"`
	Count  int    `json:"count"`
}

func (UnreadCountUpdate) EventName() string { return NameUnreadCountUpdate }

// TaskCreated announces a new task.
type TaskCreated struct {
	Task *model.Task `json:"task"`
}

func (TaskCreated) EventName() string { return NameTaskCreated }

// TaskUpdated announces a task status change.
type TaskUpdated struct {
	TaskID string           `json:"task_id"`
	Status model.TaskStatus `json:"status"`
}

func (TaskUpdated) EventName() string { return NameTaskUpdated }

// TaskCompleted announces a completed task.
type TaskCompleted struct {
	TaskID        string `json:"task_id"`
	TransactionID string `json:"transaction_id"`
}

func (TaskCompleted) EventName() string { return NameTaskCompleted }

// TransactionStatusChanged announces an accepted transition.
type TransactionStatusChanged struct {
	TransactionID string                  `json:"transaction_id"`
	From          model.TransactionStatus `json:"from"`
	To            model.TransactionStatus `json:"to"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

func (TransactionStatusChanged) EventName() string { return NameStatusChanged }

// TransactionAtRisk announces a delay-risk assessment above threshold.
type TransactionAtRisk struct {
	Assessment *model.DelayRiskAssessment `json:"assessment"`
}

func (TransactionAtRisk) EventName() string { return NameAtRisk }

// DocumentVerified announces a finished document verification.
type DocumentVerified struct {
	DocumentID    string                   `json:"document_id"`
	TransactionID string                   `json:"transaction_id"`
	Score         int                      `json:"score"`
	Issues        []string                 `json:"issues,omitempty"`
	Status        model.VerificationStatus `json:"status"`
}

func (DocumentVerified) EventName() string { return NameDocumentVerified }

// String implements fmt.Stringer for log fields.
func (r RoomID) String() string { return string(r) }

var _ fmt.Stringer = RoomID("")
