// Package ports defines the interfaces between the application layer
// and its collaborators: durable storage, outbound email, document
// scoring and realtime event emission. All persistence of transaction,
// task, message and document records goes through these interfaces.
package ports

import (
	"context"
	"time"

	"closedesk/domain/model"
)

// TransactionRepository persists transaction records. UpdateStatus is
// the only status mutation path and enforces the optimistic-concurrency
// check: when the persisted status differs from expected it fails with
// a StaleState error and writes nothing.
type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) error
	Get(ctx context.Context, transactionID string) (*model.Transaction, error)
	UpdateStatus(ctx context.Context, transactionID string, expected, to model.TransactionStatus, updatedAt time.Time) (*model.Transaction, error)
	ListByStatus(ctx context.Context, status model.TransactionStatus) ([]*model.Transaction, error)
	// ListOpen returns every transaction not in a terminal status.
	ListOpen(ctx context.Context) ([]*model.Transaction, error)
}

// TaskRepository persists task records. UpdateStatus carries the same
// optimistic-concurrency contract as the transaction store: the
// persisted status must still equal expected or the call fails with a
// StaleState error and writes nothing, so a racing writer can never
// move a task out of completed.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	Get(ctx context.Context, taskID string) (*model.Task, error)
	UpdateStatus(ctx context.Context, taskID string, expected, to model.TaskStatus, updatedAt time.Time) (*model.Task, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]*model.Task, error)
	ListByAssignee(ctx context.Context, userID string) ([]*model.Task, error)
}

// MessageRepository persists the append-only task message log.
// MarkRead flips the read flag on every unread message in the task not
// sent by recipientRole and returns the messages it marked; it is the
// read-receipt sweep of the unread-counter contract.
type MessageRepository interface {
	Append(ctx context.Context, msg *model.Message) error
	ListByTask(ctx context.Context, taskID string) ([]*model.Message, error)
	MarkRead(ctx context.Context, taskID, recipientRole string) ([]*model.Message, error)
	CountUnread(ctx context.Context, taskID, recipientRole string) (int, error)
}

// DocumentRepository persists uploaded document references and their
// verification outcomes.
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	Get(ctx context.Context, documentID string) (*model.Document, error)
	UpdateVerification(ctx context.Context, documentID string, score int, issues []string, status model.VerificationStatus, verifiedAt time.Time) (*model.Document, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]*model.Document, error)
	// ListUnverified returns documents still awaiting verification.
	ListUnverified(ctx context.Context) ([]*model.Document, error)
}
