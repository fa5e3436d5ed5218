package model

import "time"

// VerificationStatus enumerates document verification outcomes.
type VerificationStatus string

const (
	VerificationVerifying      VerificationStatus = "verifying"
	VerificationVerified       VerificationStatus = "verified"
	VerificationNeedsAttention VerificationStatus = "needs_attention"
	VerificationRejected       VerificationStatus = "rejected"
)

// RequiredDocumentTypes lists the document types every transaction must
// collect before review.
var RequiredDocumentTypes = []string{
	"purchase_agreement",
	"seller_disclosure",
	"inspection_report",
	"title_commitment",
	"loan_approval",
}

// Document is an uploaded document reference attached to a transaction.
// The blob itself lives in external storage; only the reference and the
// verification outcome are tracked here.
type Document struct {
	DocumentID    string             `json:"document_id"`
	TransactionID string             `json:"transaction_id"`
	DocType       string             `json:"doc_type"`
	FileRef       string             `json:"file_ref"`
	UploadedBy    string             `json:"uploaded_by"`
	AIVerified    bool               `json:"ai_verified"`
	AIScore       int                `json:"ai_score"`
	Issues        []string           `json:"issues,omitempty"`
	Status        VerificationStatus `json:"status"`
	UploadedAt    time.Time          `json:"uploaded_at"`
	VerifiedAt    time.Time          `json:"verified_at,omitempty"`
}

// DelayRiskAssessment is the ephemeral outcome of a delay-risk sweep.
// It is recomputed on every run and never persisted.
type DelayRiskAssessment struct {
	TransactionID string   `json:"transaction_id"`
	RiskScore     int      `json:"risk_score"`
	RiskFactors   []string `json:"risk_factors"`
	DaysToClosing int      `json:"days_to_closing"`
}

// AtRisk reports whether the assessment crosses the alert threshold.
func (a *DelayRiskAssessment) AtRisk() bool {
	return a.RiskScore >= 50
}
