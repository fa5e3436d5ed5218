package automation

import (
	"testing"
	"time"

	"closedesk/domain/model"

	"github.com/stretchr/testify/assert"
)

func riskTransaction(status model.TransactionStatus, closingIn time.Duration, now time.Time) *model.Transaction {
	return &model.Transaction{
		TransactionID: "txn-risk",
		Status:        status,
		ClosingDate:   now.Add(closingIn),
	}
}

func docsWith(types []string, issueTypes []string) []*model.Document {
	issues := make(map[string]bool, len(issueTypes))
	for _, dt := range issueTypes {
		issues[dt] = true
	}
	var out []*model.Document
	for _, dt := range types {
		doc := &model.Document{DocumentID: "doc-" + dt, DocType: dt, Status: model.VerificationVerified}
		if issues[dt] {
			doc.Issues = []string{IssueQuality}
			doc.Status = model.VerificationNeedsAttention
		}
		out = append(out, doc)
	}
	return out
}

func TestAssessDelayRiskNoFactors(t *testing.T) {
	now := time.Now()
	txn := riskTransaction(model.StatusUnderReview, 30*24*time.Hour, now)
	docs := docsWith(model.RequiredDocumentTypes, nil)

	assessment := AssessDelayRisk(txn, docs, now)
	assert.Equal(t, 0, assessment.RiskScore)
	assert.Empty(t, assessment.RiskFactors)
	assert.False(t, assessment.AtRisk())
}

func TestAssessDelayRiskCombinedFactors(t *testing.T) {
	now := time.Now()
	// Two required documents missing, one with issues, closing in five
	// days, past the early stages: 12 + 20 + 25 = 57.
	txn := riskTransaction(model.StatusUnderReview, 5*24*time.Hour, now)
	docs := docsWith(
		[]string{"purchase_agreement", "seller_disclosure", "inspection_report"},
		[]string{"inspection_report"})

	assessment := AssessDelayRisk(txn, docs, now)
	assert.Equal(t, 57, assessment.RiskScore)
	assert.True(t, assessment.AtRisk())
	assert.Len(t, assessment.RiskFactors, 3)
}

func TestAssessDelayRiskEmptyTransaction(t *testing.T) {
	now := time.Now()
	// Early stage, no documents at all, closing tomorrow. With nothing
	// uploaded there is no issue factor, only the other three.
	txn := riskTransaction(model.StatusPendingDocuments, 24*time.Hour, now)

	assessment := AssessDelayRisk(txn, nil, now)
	assert.Equal(t, 80, assessment.RiskScore)
	assert.True(t, assessment.AtRisk())
	assert.Len(t, assessment.RiskFactors, 3)
}

func TestAssessDelayRiskMissingDocsScalePartially(t *testing.T) {
	now := time.Now()
	txn := riskTransaction(model.StatusUnderReview, 60*24*time.Hour, now)

	// Each additional missing document raises the score; a full set
	// contributes nothing.
	prev := -1
	for present := len(model.RequiredDocumentTypes); present >= 0; present-- {
		docs := docsWith(model.RequiredDocumentTypes[:present], nil)
		score := AssessDelayRisk(txn, docs, now).RiskScore
		assert.Greater(t, score, prev, "score with %d documents present", present)
		prev = score
	}
	assert.Equal(t, 30, prev)
}

func TestAssessDelayRiskEachFactorOnlyRaisesScore(t *testing.T) {
	now := time.Now()
	calmDocs := docsWith(model.RequiredDocumentTypes, nil)
	calm := AssessDelayRisk(riskTransaction(model.StatusUnderReview, 30*24*time.Hour, now), calmDocs, now)
	assert.Equal(t, 0, calm.RiskScore)

	// Toggling any single factor on never lowers the score.
	cases := []struct {
		name string
		txn  *model.Transaction
		docs []*model.Document
	}{
		{
			name: "one required document missing",
			txn:  riskTransaction(model.StatusUnderReview, 30*24*time.Hour, now),
			docs: docsWith(model.RequiredDocumentTypes[1:], nil),
		},
		{
			name: "document with issues",
			txn:  riskTransaction(model.StatusUnderReview, 30*24*time.Hour, now),
			docs: docsWith(model.RequiredDocumentTypes, []string{"loan_approval"}),
		},
		{
			name: "closing soon",
			txn:  riskTransaction(model.StatusUnderReview, 5*24*time.Hour, now),
			docs: calmDocs,
		},
		{
			name: "early lifecycle stage",
			txn:  riskTransaction(model.StatusPendingDocuments, 30*24*time.Hour, now),
			docs: calmDocs,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assessment := AssessDelayRisk(tc.txn, tc.docs, now)
			assert.Greater(t, assessment.RiskScore, calm.RiskScore)
			assert.Len(t, assessment.RiskFactors, 1)
		})
	}
}

func TestAssessDelayRiskBelowThresholdNotFlagged(t *testing.T) {
	now := time.Now()
	// Only the closing-soon and issue factors: 25 + 20 = 45 < 50.
	txn := riskTransaction(model.StatusUnderReview, 3*24*time.Hour, now)
	docs := docsWith(model.RequiredDocumentTypes, []string{"loan_approval"})

	assessment := AssessDelayRisk(txn, docs, now)
	assert.Equal(t, 45, assessment.RiskScore)
	assert.False(t, assessment.AtRisk())
}
