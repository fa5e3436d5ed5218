package automation

import (
	"context"
	"time"

	"closedesk/application/ports"
	"closedesk/domain/events"
	"closedesk/domain/model"
	"closedesk/pkg/auth"

	"go.uber.org/zap"
)

// Verifier runs document verification: it scores a document, derives
// its status, persists the outcome and announces it. The outcome is
// never hand-edited by a user.
type Verifier struct {
	documents ports.DocumentRepository
	scorer    ports.DocumentScorer
	emitter   ports.Emitter
	logger    *zap.Logger
	now       func() time.Time
}

// NewVerifier creates a document verifier.
func NewVerifier(
	documents ports.DocumentRepository,
	scorer ports.DocumentScorer,
	emitter ports.Emitter,
	logger *zap.Logger,
) *Verifier {
	return &Verifier{
		documents: documents,
		scorer:    scorer,
		emitter:   emitter,
		logger:    logger,
		now:       time.Now,
	}
}

// VerifyDocument scores the document and commits the outcome. Status is
// needs_attention when any issue is found, verified otherwise.
func (v *Verifier) VerifyDocument(ctx context.Context, doc *model.Document) (*model.Document, error) {
	score, issues, err := v.scorer.Score(ctx, doc)
	if err != nil {
		return nil, err
	}

	status := model.VerificationVerified
	if len(issues) > 0 {
		status = model.VerificationNeedsAttention
	}

	updated, err := v.documents.UpdateVerification(ctx, doc.DocumentID, score, issues, status, v.now())
	if err != nil {
		return nil, err
	}

	ev := events.DocumentVerified{
		DocumentID:    updated.DocumentID,
		TransactionID: updated.TransactionID,
		Score:         score,
		Issues:        issues,
		Status:        status,
	}
	v.emitter.EmitToRole(auth.RoleTC, ev)
	if updated.UploadedBy != "" {
		v.emitter.EmitToUser(updated.UploadedBy, ev)
	}

	v.logger.Info("document verified",
		zap.String("document_id", updated.DocumentID),
		zap.Int("score", score),
		zap.Int("issues", len(issues)),
		zap.String("status", string(status)))

	return updated, nil
}
