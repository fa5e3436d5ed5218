package automation

import (
	"context"
	"testing"
	"time"

	"closedesk/domain/events"
	"closedesk/domain/model"
	"closedesk/infrastructure/persistence/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDocument(t *testing.T, repo *memory.DocumentRepository) *model.Document {
	t.Helper()
	doc := &model.Document{
		DocumentID:    "doc-1",
		TransactionID: "txn-1",
		DocType:       "purchase_agreement",
		FileRef:       "s3://bucket/pa.pdf",
		UploadedBy:    "agent-1",
		Status:        model.VerificationVerifying,
		UploadedAt:    time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), doc))
	return doc
}

func TestVerifyDocumentCleanScore(t *testing.T) {
	repo := memory.NewDocumentRepository()
	emitter := &recordingEmitter{}
	verifier := NewVerifier(repo, &stubScorer{score: 92}, emitter, testLogger())
	doc := seedDocument(t, repo)

	verified, err := verifier.VerifyDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, model.VerificationVerified, verified.Status)
	assert.Equal(t, 92, verified.AIScore)
	assert.True(t, verified.AIVerified)
	assert.Empty(t, verified.Issues)

	announced := emitter.named(events.NameDocumentVerified)
	require.Len(t, announced, 2)
	assert.Equal(t, events.RoleRoom("tc"), announced[0].Room)
	assert.Equal(t, events.UserRoom("agent-1"), announced[1].Room)
}

func TestVerifyDocumentWithIssuesNeedsAttention(t *testing.T) {
	repo := memory.NewDocumentRepository()
	emitter := &recordingEmitter{}
	issues := []string{IssueMissingInfo, IssueQuality}
	verifier := NewVerifier(repo, &stubScorer{score: 65, issues: issues}, emitter, testLogger())
	doc := seedDocument(t, repo)

	verified, err := verifier.VerifyDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, model.VerificationNeedsAttention, verified.Status)
	assert.Equal(t, issues, verified.Issues)

	stored, err := repo.Get(context.Background(), doc.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, model.VerificationNeedsAttention, stored.Status)
}

func TestVerifyDocumentScorerFailureLeavesRecord(t *testing.T) {
	repo := memory.NewDocumentRepository()
	emitter := &recordingEmitter{}
	verifier := NewVerifier(repo, &stubScorer{err: assert.AnError}, emitter, testLogger())
	doc := seedDocument(t, repo)

	_, err := verifier.VerifyDocument(context.Background(), doc)
	require.Error(t, err)

	// The record stays in verifying so the sweep picks it up later.
	stored, err := repo.Get(context.Background(), doc.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, model.VerificationVerifying, stored.Status)
	assert.Empty(t, emitter.named(events.NameDocumentVerified))
}
