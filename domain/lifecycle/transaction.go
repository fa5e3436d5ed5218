// Package lifecycle defines the legal status transitions for
// transactions and tasks. It is pure: no storage, no side effects.
package lifecycle

import (
	"closedesk/domain/model"
	"closedesk/pkg/errors"
)

// transactionEdges maps each status to the statuses reachable from it
// along the main chain. Side branches (Cancelled, ClosureRejected) are
// handled separately because they are reachable from any non-terminal
// state.
var transactionEdges = map[model.TransactionStatus][]model.TransactionStatus{
	model.StatusNew:                {model.StatusInProgress},
	model.StatusInProgress:         {model.StatusPendingDocuments},
	model.StatusPendingDocuments:   {model.StatusUnderReview},
	model.StatusUnderReview:        {model.StatusReadyForClosure},
	model.StatusReadyForClosure:    {model.StatusForwardedToBroker},
	model.StatusForwardedToBroker:  {model.StatusApproved},
	model.StatusApproved:           {model.StatusApprovedForClosure},
	model.StatusApprovedForClosure: {model.StatusClosed},
	// Retry loop after a rejected closure.
	model.StatusClosureRejected: {model.StatusReadyForClosure},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to model.TransactionStatus) bool {
	if !from.Known() || !to.Known() {
		return false
	}
	if from.Terminal() {
		return false
	}
	if to == model.StatusCancelled || to == model.StatusClosureRejected {
		return from != to
	}
	for _, next := range transactionEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a typed error when from -> to is illegal.
func ValidateTransition(from, to model.TransactionStatus) error {
	if !CanTransition(from, to) {
		return errors.NewInvalidTransitionError(string(from), string(to))
	}
	return nil
}

// NextStatuses returns the statuses legally reachable from the given
// one. Used by the REST layer to tell a UI which actions to offer.
func NextStatuses(from model.TransactionStatus) []model.TransactionStatus {
	if from.Terminal() || !from.Known() {
		return nil
	}
	next := append([]model.TransactionStatus{}, transactionEdges[from]...)
	if from != model.StatusCancelled {
		next = append(next, model.StatusCancelled)
	}
	if from != model.StatusClosureRejected {
		next = append(next, model.StatusClosureRejected)
	}
	return next
}
