package services

import (
	"context"
	"time"

	"closedesk/application/automation"
	"closedesk/application/ports"
	"closedesk/domain/model"
	"closedesk/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentService registers uploaded documents and runs them through
// verification.
type DocumentService struct {
	documents ports.DocumentRepository
	verifier  *automation.Verifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewDocumentService creates the document service.
func NewDocumentService(
	documents ports.DocumentRepository,
	verifier *automation.Verifier,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		documents: documents,
		verifier:  verifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Upload persists the document reference in verifying state, then runs
// verification inline. A verification failure leaves the document in
// verifying; the hourly sweep retries it.
func (s *DocumentService) Upload(ctx context.Context, doc *model.Document) (*model.Document, error) {
	if doc.TransactionID == "" {
		return nil, errors.NewValidationError("transaction_id is required")
	}
	if doc.DocType == "" {
		return nil, errors.NewValidationError("doc_type is required")
	}
	if doc.FileRef == "" {
		return nil, errors.NewValidationError("file_ref is required")
	}
	if doc.DocumentID == "" {
		doc.DocumentID = uuid.NewString()
	}
	doc.Status = model.VerificationVerifying
	doc.AIVerified = false
	doc.UploadedAt = s.now()

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	verified, err := s.verifier.VerifyDocument(ctx, doc)
	if err != nil {
		s.logger.Error("verification deferred to sweep",
			zap.String("document_id", doc.DocumentID),
			zap.Error(err))
		return doc, nil
	}
	return verified, nil
}

// Get returns a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*model.Document, error) {
	return s.documents.Get(ctx, documentID)
}

// ListByTransaction returns the documents attached to a transaction.
func (s *DocumentService) ListByTransaction(ctx context.Context, transactionID string) ([]*model.Document, error) {
	return s.documents.ListByTransaction(ctx, transactionID)
}
