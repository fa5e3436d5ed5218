// Package memory provides in-process implementations of the repository
// ports. They back local development and the application-layer tests;
// the semantics mirror the DynamoDB repositories, including the
// conditional status update.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"closedesk/application/ports"
	"closedesk/domain/model"
	"closedesk/pkg/errors"
)

var (
	_ ports.TransactionRepository = (*TransactionRepository)(nil)
	_ ports.TaskRepository        = (*TaskRepository)(nil)
	_ ports.MessageRepository     = (*MessageRepository)(nil)
	_ ports.DocumentRepository    = (*DocumentRepository)(nil)
)

// TransactionRepository is the in-memory transaction store.
type TransactionRepository struct {
	mu   sync.RWMutex
	rows map[string]*model.Transaction
}

// NewTransactionRepository creates an empty transaction store.
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{rows: make(map[string]*model.Transaction)}
}

func (r *TransactionRepository) Create(_ context.Context, txn *model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[txn.TransactionID]; ok {
		return errors.NewValidationError("transaction already exists")
	}
	cp := *txn
	r.rows[txn.TransactionID] = &cp
	return nil
}

func (r *TransactionRepository) Get(_ context.Context, transactionID string) (*model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	txn, ok := r.rows[transactionID]
	if !ok {
		return nil, errors.NewNotFoundError("transaction")
	}
	cp := *txn
	return &cp, nil
}

// UpdateStatus applies the conditional write: the stored status must
// still equal expected or the call fails with StaleState and changes
// nothing.
func (r *TransactionRepository) UpdateStatus(_ context.Context, transactionID string, expected, to model.TransactionStatus, updatedAt time.Time) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	txn, ok := r.rows[transactionID]
	if !ok {
		return nil, errors.NewNotFoundError("transaction")
	}
	if txn.Status != expected {
		return nil, errors.NewStaleStateError(string(expected), string(txn.Status))
	}
	txn.Status = to
	txn.UpdatedAt = updatedAt
	cp := *txn
	return &cp, nil
}

func (r *TransactionRepository) ListByStatus(_ context.Context, status model.TransactionStatus) ([]*model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Transaction
	for _, txn := range r.rows {
		if txn.Status == status {
			cp := *txn
			out = append(out, &cp)
		}
	}
	sortTransactions(out)
	return out, nil
}

func (r *TransactionRepository) ListOpen(_ context.Context) ([]*model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Transaction
	for _, txn := range r.rows {
		if !txn.Status.Terminal() {
			cp := *txn
			out = append(out, &cp)
		}
	}
	sortTransactions(out)
	return out, nil
}

func sortTransactions(txns []*model.Transaction) {
	sort.Slice(txns, func(i, j int) bool {
		return txns[i].CreatedAt.Before(txns[j].CreatedAt)
	})
}

// TaskRepository is the in-memory task store.
type TaskRepository struct {
	mu   sync.RWMutex
	rows map[string]*model.Task
}

// NewTaskRepository creates an empty task store.
func NewTaskRepository() *TaskRepository {
	return &TaskRepository{rows: make(map[string]*model.Task)}
}

func (r *TaskRepository) Create(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[task.TaskID]; ok {
		return errors.NewValidationError("task already exists")
	}
	cp := *task
	r.rows[task.TaskID] = &cp
	return nil
}

func (r *TaskRepository) Get(_ context.Context, taskID string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.rows[taskID]
	if !ok {
		return nil, errors.NewNotFoundError("task")
	}
	cp := *task
	return &cp, nil
}

// UpdateStatus applies the conditional write: the stored status must
// still equal expected or the call fails with StaleState and changes
// nothing.
func (r *TaskRepository) UpdateStatus(_ context.Context, taskID string, expected, to model.TaskStatus, updatedAt time.Time) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.rows[taskID]
	if !ok {
		return nil, errors.NewNotFoundError("task")
	}
	if task.Status != expected {
		return nil, errors.NewStaleStateError(string(expected), string(task.Status))
	}
	task.Status = to
	task.UpdatedAt = updatedAt
	cp := *task
	return &cp, nil
}

func (r *TaskRepository) ListByTransaction(_ context.Context, transactionID string) ([]*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Task
	for _, task := range r.rows {
		if task.TransactionID == transactionID {
			cp := *task
			out = append(out, &cp)
		}
	}
	sortTasks(out)
	return out, nil
}

func (r *TaskRepository) ListByAssignee(_ context.Context, userID string) ([]*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Task
	for _, task := range r.rows {
		if task.AssignedTo == userID {
			cp := *task
			out = append(out, &cp)
		}
	}
	sortTasks(out)
	return out, nil
}

func sortTasks(tasks []*model.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}

// MessageRepository is the in-memory message log.
type MessageRepository struct {
	mu     sync.RWMutex
	byTask map[string][]*model.Message
}

// NewMessageRepository creates an empty message log.
func NewMessageRepository() *MessageRepository {
	return &MessageRepository{byTask: make(map[string][]*model.Message)}
}

func (r *MessageRepository) Append(_ context.Context, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *msg
	r.byTask[msg.TaskID] = append(r.byTask[msg.TaskID], &cp)
	return nil
}

func (r *MessageRepository) ListByTask(_ context.Context, taskID string) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := r.byTask[taskID]
	out := make([]*model.Message, 0, len(msgs))
	for _, msg := range msgs {
		cp := *msg
		out = append(out, &cp)
	}
	return out, nil
}

// MarkRead flips every unread message in the task not sent by
// recipientRole and returns copies of the ones it marked.
func (r *MessageRepository) MarkRead(_ context.Context, taskID, recipientRole string) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var marked []*model.Message
	for _, msg := range r.byTask[taskID] {
		if msg.Read || msg.SenderRole == recipientRole {
			continue
		}
		msg.Read = true
		cp := *msg
		marked = append(marked, &cp)
	}
	return marked, nil
}

func (r *MessageRepository) CountUnread(_ context.Context, taskID, recipientRole string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, msg := range r.byTask[taskID] {
		if !msg.Read && msg.SenderRole != recipientRole {
			count++
		}
	}
	return count, nil
}

// DocumentRepository is the in-memory document store.
type DocumentRepository struct {
	mu   sync.RWMutex
	rows map[string]*model.Document
}

// NewDocumentRepository creates an empty document store.
func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{rows: make(map[string]*model.Document)}
}

func (r *DocumentRepository) Create(_ context.Context, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[doc.DocumentID]; ok {
		return errors.NewValidationError("document already exists")
	}
	cp := *doc
	r.rows[doc.DocumentID] = &cp
	return nil
}

func (r *DocumentRepository) Get(_ context.Context, documentID string) (*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.rows[documentID]
	if !ok {
		return nil, errors.NewNotFoundError("document")
	}
	cp := *doc
	return &cp, nil
}

func (r *DocumentRepository) UpdateVerification(_ context.Context, documentID string, score int, issues []string, status model.VerificationStatus, verifiedAt time.Time) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.rows[documentID]
	if !ok {
		return nil, errors.NewNotFoundError("document")
	}
	doc.AIVerified = true
	doc.AIScore = score
	doc.Issues = issues
	doc.Status = status
	doc.VerifiedAt = verifiedAt
	cp := *doc
	return &cp, nil
}

func (r *DocumentRepository) ListByTransaction(_ context.Context, transactionID string) ([]*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Document
	for _, doc := range r.rows {
		if doc.TransactionID == transactionID {
			cp := *doc
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.Before(out[j].UploadedAt)
	})
	return out, nil
}

func (r *DocumentRepository) ListUnverified(_ context.Context) ([]*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Document
	for _, doc := range r.rows {
		if doc.Status == model.VerificationVerifying {
			cp := *doc
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.Before(out[j].UploadedAt)
	})
	return out, nil
}
