package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"closedesk/application/services"
	"closedesk/domain/lifecycle"
	"closedesk/domain/model"
	"closedesk/pkg/validate"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TransactionHandler handles transaction HTTP requests.
type TransactionHandler struct {
	transactions *services.TransactionService
	logger       *zap.Logger
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(transactions *services.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, logger: logger}
}

// CreateTransactionRequest is the request body for creating a
// transaction.
type CreateTransactionRequest struct {
	AgentID       string    `json:"agent_id" validate:"required"`
	BrokerID      string    `json:"broker_id" validate:"required"`
	TCID          string    `json:"tc_id" validate:"required"`
	ClientContact string    `json:"client_contact" validate:"omitempty,email"`
	PropertyAddr  string    `json:"property_address,omitempty" validate:"omitempty,max=500"`
	ClosingDate   time.Time `json:"closing_date" validate:"required"`
}

// TransitionRequest is the request body for a status transition. The
// caller states the status it believes is current.
type TransitionRequest struct {
	Expected string `json:"expected_status" validate:"required"`
	To       string `json:"to_status" validate:"required"`
}

// Create handles POST /transactions.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		respondBadRequest(w, "Validation error: "+err.Error())
		return
	}

	txn, err := h.transactions.Create(r.Context(), &model.Transaction{
		Parties: model.Parties{
			AgentID:       req.AgentID,
			BrokerID:      req.BrokerID,
			TCID:          req.TCID,
			ClientContact: req.ClientContact,
		},
		PropertyAddr: req.PropertyAddr,
		ClosingDate:  req.ClosingDate,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, txn)
}

// Get handles GET /transactions/{transactionID}.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	txn, err := h.transactions.Get(r.Context(), chi.URLParam(r, "transactionID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, txn)
}

// List handles GET /transactions?status=...
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	status := model.TransactionStatus(r.URL.Query().Get("status"))
	if status == "" {
		respondBadRequest(w, "status query parameter is required")
		return
	}

	txns, err := h.transactions.ListByStatus(r.Context(), status)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"transactions": txns})
}

// Transition handles POST /transactions/{transactionID}/transition.
func (h *TransactionHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		respondBadRequest(w, "Validation error: "+err.Error())
		return
	}

	txn, err := h.transactions.Transition(r.Context(),
		chi.URLParam(r, "transactionID"),
		model.TransactionStatus(req.Expected),
		model.TransactionStatus(req.To))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, txn)
}

// NextStatuses handles GET /transactions/{transactionID}/next-statuses.
// It reports the edges currently available, so clients render only
// offerable actions.
func (h *TransactionHandler) NextStatuses(w http.ResponseWriter, r *http.Request) {
	txn, err := h.transactions.Get(r.Context(), chi.URLParam(r, "transactionID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"current":       txn.Status,
		"next_statuses": lifecycle.NextStatuses(txn.Status),
	})
}
