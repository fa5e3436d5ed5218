package model

import "time"

// TransactionStatus enumerates the lifecycle states of a transaction.
type TransactionStatus string

const (
	StatusNew                TransactionStatus = "New"
	StatusInProgress         TransactionStatus = "InProgress"
	StatusPendingDocuments   TransactionStatus = "PendingDocuments"
	StatusUnderReview        TransactionStatus = "UnderReview"
	StatusReadyForClosure    TransactionStatus = "ReadyForClosure"
	StatusForwardedToBroker  TransactionStatus = "ForwardedToBroker"
	StatusApproved           TransactionStatus = "Approved"
	StatusApprovedForClosure TransactionStatus = "ApprovedForClosure"
	StatusClosed             TransactionStatus = "Closed"
	StatusCancelled          TransactionStatus = "Cancelled"
	StatusClosureRejected    TransactionStatus = "ClosureRejected"
)

// AllTransactionStatuses lists every known status.
var AllTransactionStatuses = []TransactionStatus{
	StatusNew, StatusInProgress, StatusPendingDocuments, StatusUnderReview,
	StatusReadyForClosure, StatusForwardedToBroker, StatusApproved,
	StatusApprovedForClosure, StatusClosed, StatusCancelled,
	StatusClosureRejected,
}

// Known reports whether s is one of the enumerated statuses.
func (s TransactionStatus) Known() bool {
	for _, known := range AllTransactionStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether the status accepts no further transitions.
func (s TransactionStatus) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// EarlyStage reports whether the transaction is still in its early
// lifecycle, one of the delay-risk factors.
func (s TransactionStatus) EarlyStage() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusPendingDocuments:
		return true
	}
	return false
}

// Parties identifies the participants of a transaction.
type Parties struct {
	AgentID       string `json:"agent_id"`
	BrokerID      string `json:"broker_id"`
	TCID          string `json:"tc_id"`
	ClientContact string `json:"client_contact"`
}

// Transaction is a real-estate transaction moving toward closing. The
// mutation layer owns the record; the state machine only validates and
// applies status changes.
type Transaction struct {
	TransactionID string            `json:"transaction_id"`
	Status        TransactionStatus `json:"status"`
	Parties       Parties           `json:"parties"`
	PropertyAddr  string            `json:"property_address,omitempty"`
	ClosingDate   time.Time         `json:"closing_date"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// DaysToClosing returns whole days until the closing date, negative if
// the date has passed.
func (t *Transaction) DaysToClosing(now time.Time) int {
	return int(t.ClosingDate.Sub(now).Hours() / 24)
}
