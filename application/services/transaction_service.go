// Package services implements the mutation boundary of the
// coordination core: every state-changing operation commits durably
// first and only then publishes events and notifications.
package services

import (
	"context"
	"fmt"
	"time"

	"closedesk/application/ports"
	"closedesk/domain/events"
	"closedesk/domain/lifecycle"
	"closedesk/domain/model"
	"closedesk/pkg/auth"
	"closedesk/pkg/errors"
	"closedesk/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransactionService validates and applies transaction status
// transitions and owns transaction creation.
type TransactionService struct {
	transactions ports.TransactionRepository
	emitter      ports.Emitter
	email        ports.EmailSender
	logger       *zap.Logger
	now          func() time.Time
}

// NewTransactionService creates the transaction service.
func NewTransactionService(
	transactions ports.TransactionRepository,
	emitter ports.Emitter,
	email ports.EmailSender,
	logger *zap.Logger,
) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		emitter:      emitter,
		email:        email,
		logger:       logger,
		now:          time.Now,
	}
}

// Create persists a new transaction in status New.
func (s *TransactionService) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	if txn.TransactionID == "" {
		txn.TransactionID = uuid.NewString()
	}
	now := s.now()
	txn.Status = model.StatusNew
	txn.CreatedAt = now
	txn.UpdatedAt = now

	if err := s.transactions.Create(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Get returns a transaction by ID.
func (s *TransactionService) Get(ctx context.Context, transactionID string) (*model.Transaction, error) {
	return s.transactions.Get(ctx, transactionID)
}

// ListByStatus returns transactions in the given status.
func (s *TransactionService) ListByStatus(ctx context.Context, status model.TransactionStatus) ([]*model.Transaction, error) {
	if !status.Known() {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown status %q", status))
	}
	return s.transactions.ListByStatus(ctx, status)
}

// Transition applies expected -> to on the transaction. The caller
// supplies the status it believes is current; a mismatch with the
// persisted status fails with StaleState so concurrent conflicting
// approvals cannot both succeed. On acceptance the new status is
// committed before anyone is notified; notification failures never
// roll it back.
func (s *TransactionService) Transition(ctx context.Context, transactionID string, expected, to model.TransactionStatus) (*model.Transaction, error) {
	if !expected.Known() {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown status %q", expected))
	}
	if !to.Known() {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown status %q", to))
	}
	if err := lifecycle.ValidateTransition(expected, to); err != nil {
		return nil, err
	}

	txn, err := s.transactions.UpdateStatus(ctx, transactionID, expected, to, s.now())
	if err != nil {
		if errors.IsStaleState(err) {
			metrics.TransitionConflicts.Inc()
		}
		return nil, err
	}
	metrics.TransitionsApplied.WithLabelValues(string(to)).Inc()

	s.logger.Info("transaction transitioned",
		zap.String("transaction_id", transactionID),
		zap.String("from", string(expected)),
		zap.String("to", string(to)))

	s.notifyStatusChange(txn, expected, to)
	return txn, nil
}

// notifyStatusChange fans the accepted transition out to the broker and
// TC roles, the agent's own connections, and the client contact's
// inbox. Best-effort by contract.
func (s *TransactionService) notifyStatusChange(txn *model.Transaction, from, to model.TransactionStatus) {
	ev := events.TransactionStatusChanged{
		TransactionID: txn.TransactionID,
		From:          from,
		To:            to,
		UpdatedAt:     txn.UpdatedAt,
	}
	s.emitter.EmitToRole(auth.RoleBroker, ev)
	s.emitter.EmitToRole(auth.RoleTC, ev)
	if txn.Parties.AgentID != "" {
		s.emitter.EmitToUser(txn.Parties.AgentID, ev)
	}

	if s.email == nil || txn.Parties.ClientContact == "" {
		return
	}
	// One-off status emails are not retried; a failure is logged and
	// the committed status stands.
	go func() {
		subject := fmt.Sprintf("Transaction update: %s", to)
		body := fmt.Sprintf(
			"Your transaction %s has moved to %s (previously %s).",
			txn.TransactionID, to, from)
		if err := s.email.Send(context.Background(), txn.Parties.ClientContact, subject, body); err != nil {
			metrics.NotificationFailures.WithLabelValues("status_change").Inc()
			s.logger.Error("status change email failed",
				zap.String("transaction_id", txn.TransactionID),
				zap.Error(errors.NewNotificationError(txn.Parties.ClientContact, err)))
		}
	}()
}
