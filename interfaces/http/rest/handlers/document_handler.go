package handlers

import (
	"encoding/json"
	"net/http"

	"closedesk/application/services"
	"closedesk/domain/model"
	"closedesk/pkg/auth"
	"closedesk/pkg/validate"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DocumentHandler handles document HTTP requests.
type DocumentHandler struct {
	documents *services.DocumentService
	logger    *zap.Logger
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(documents *services.DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{documents: documents, logger: logger}
}

// UploadDocumentRequest registers an already-stored document blob. The
// file itself is uploaded to object storage out of band; only the
// reference comes through here.
type UploadDocumentRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
	DocType       string `json:"doc_type" validate:"required,max=100"`
	FileRef       string `json:"file_ref" validate:"required,max=1000"`
}

// Upload handles POST /documents.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req UploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		respondBadRequest(w, "Validation error: "+err.Error())
		return
	}

	identity, err := auth.GetIdentity(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	doc, err := h.documents.Upload(r.Context(), &model.Document{
		TransactionID: req.TransactionID,
		DocType:       req.DocType,
		FileRef:       req.FileRef,
		UploadedBy:    identity.UserID,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, doc)
}

// Get handles GET /documents/{documentID}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.Get(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// ListByTransaction handles GET /transactions/{transactionID}/documents.
func (h *DocumentHandler) ListByTransaction(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.ListByTransaction(r.Context(), chi.URLParam(r, "transactionID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}
