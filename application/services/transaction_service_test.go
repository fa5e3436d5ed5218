package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"closedesk/domain/events"
	"closedesk/domain/model"
	"closedesk/infrastructure/persistence/memory"
	apperrors "closedesk/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransactionFixture(t *testing.T, mailErr error) (*TransactionService, *recordingEmitter, *fakeMailer) {
	t.Helper()
	emitter := &recordingEmitter{}
	mailer := newFakeMailer(mailErr)
	svc := NewTransactionService(memory.NewTransactionRepository(), emitter, mailer, testLogger())
	return svc, emitter, mailer
}

func createTransaction(t *testing.T, svc *TransactionService) *model.Transaction {
	t.Helper()
	txn, err := svc.Create(context.Background(), &model.Transaction{
		Parties: model.Parties{
			AgentID:       "agent-1",
			BrokerID:      "broker-1",
			TCID:          "tc-1",
			ClientContact: "client@example.com",
		},
		ClosingDate: time.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusNew, txn.Status)
	return txn
}

func TestTransactionFullLifecycle(t *testing.T) {
	svc, emitter, _ := newTransactionFixture(t, nil)
	txn := createTransaction(t, svc)

	chain := []model.TransactionStatus{
		model.StatusInProgress,
		model.StatusPendingDocuments,
		model.StatusUnderReview,
		model.StatusReadyForClosure,
		model.StatusForwardedToBroker,
		model.StatusApproved,
		model.StatusApprovedForClosure,
		model.StatusClosed,
	}

	current := txn.Status
	for _, next := range chain {
		updated, err := svc.Transition(context.Background(), txn.TransactionID, current, next)
		require.NoError(t, err, "transition %s -> %s", current, next)
		assert.Equal(t, next, updated.Status)
		current = next
	}

	stored, err := svc.Get(context.Background(), txn.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClosed, stored.Status)

	changes := emitter.named(events.NameStatusChanged)
	// Each accepted transition fans out to broker role, tc role and the
	// agent's user room.
	assert.Len(t, changes, len(chain)*3)
	rooms := emitter.rooms(events.NameStatusChanged)
	assert.True(t, rooms["role:broker"])
	assert.True(t, rooms["role:tc"])
	assert.True(t, rooms["user:agent-1"])
}

func TestTransactionTransitionRejectsSkippedStage(t *testing.T) {
	svc, emitter, _ := newTransactionFixture(t, nil)
	txn := createTransaction(t, svc)

	_, err := svc.Transition(context.Background(), txn.TransactionID, model.StatusNew, model.StatusUnderReview)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidTransition(err))

	stored, err := svc.Get(context.Background(), txn.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, stored.Status)
	assert.Empty(t, emitter.named(events.NameStatusChanged))
}

func TestTransactionTransitionRejectsTerminal(t *testing.T) {
	svc, _, _ := newTransactionFixture(t, nil)
	txn := createTransaction(t, svc)

	_, err := svc.Transition(context.Background(), txn.TransactionID, model.StatusNew, model.StatusCancelled)
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), txn.TransactionID, model.StatusCancelled, model.StatusInProgress)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidTransition(err))
}

func TestTransactionConcurrentApprovalLosesWithStaleState(t *testing.T) {
	svc, emitter, _ := newTransactionFixture(t, nil)
	txn := createTransaction(t, svc)

	advance := []model.TransactionStatus{
		model.StatusInProgress, model.StatusPendingDocuments,
		model.StatusUnderReview, model.StatusReadyForClosure,
		model.StatusForwardedToBroker,
	}
	current := txn.Status
	for _, next := range advance {
		_, err := svc.Transition(context.Background(), txn.TransactionID, current, next)
		require.NoError(t, err)
		current = next
	}
	emitter.reset()

	// Two brokers race to approve from the same observed status. The
	// first wins; the second hits the optimistic check.
	_, err := svc.Transition(context.Background(), txn.TransactionID, model.StatusForwardedToBroker, model.StatusApproved)
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), txn.TransactionID, model.StatusForwardedToBroker, model.StatusApproved)
	require.Error(t, err)
	assert.True(t, apperrors.IsStaleState(err))

	stored, err := svc.Get(context.Background(), txn.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, stored.Status)

	// Exactly one accepted transition announced: three rooms, one event
	// each.
	assert.Len(t, emitter.named(events.NameStatusChanged), 3)
}

func TestTransactionInvalidEdgeCheckedBeforeStaleness(t *testing.T) {
	svc, _, _ := newTransactionFixture(t, nil)
	txn := createTransaction(t, svc)

	// The claimed edge is illegal regardless of what is persisted, so
	// the rejection is InvalidTransition, not StaleState.
	_, err := svc.Transition(context.Background(), txn.TransactionID, model.StatusUnderReview, model.StatusClosed)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidTransition(err))
	assert.False(t, apperrors.IsStaleState(err))
}

func TestTransactionClosureRejectedAllowsRetry(t *testing.T) {
	svc, _, _ := newTransactionFixture(t, nil)
	txn := createTransaction(t, svc)

	steps := [][2]model.TransactionStatus{
		{model.StatusNew, model.StatusInProgress},
		{model.StatusInProgress, model.StatusPendingDocuments},
		{model.StatusPendingDocuments, model.StatusUnderReview},
		{model.StatusUnderReview, model.StatusReadyForClosure},
		{model.StatusReadyForClosure, model.StatusForwardedToBroker},
		{model.StatusForwardedToBroker, model.StatusClosureRejected},
		{model.StatusClosureRejected, model.StatusReadyForClosure},
		{model.StatusReadyForClosure, model.StatusForwardedToBroker},
		{model.StatusForwardedToBroker, model.StatusApproved},
	}
	for _, step := range steps {
		_, err := svc.Transition(context.Background(), txn.TransactionID, step[0], step[1])
		require.NoError(t, err, "transition %s -> %s", step[0], step[1])
	}
}

func TestTransactionTransitionRejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTransactionFixture(t, nil)
	txn := createTransaction(t, svc)

	_, err := svc.Transition(context.Background(), txn.TransactionID, model.StatusNew, model.TransactionStatus("Finalized"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestTransactionEmailFailureDoesNotRollBack(t *testing.T) {
	svc, emitter, mailer := newTransactionFixture(t, errors.New("smtp unreachable"))
	txn := createTransaction(t, svc)

	updated, err := svc.Transition(context.Background(), txn.TransactionID, model.StatusNew, model.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, updated.Status)

	// The send was attempted and failed; the committed status and the
	// realtime events stand.
	_, attempted := mailer.awaitSend(2 * time.Second)
	assert.True(t, attempted)

	stored, err := svc.Get(context.Background(), txn.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, stored.Status)
	assert.Len(t, emitter.named(events.NameStatusChanged), 3)
}
