package automation

import (
	"fmt"
	"time"

	"closedesk/domain/model"
)

// Risk factor weights. Each factor contributes independently and never
// lowers the score.
const (
	weightMissingDocs = 30
	weightDocIssues   = 20
	weightClosingSoon = 25
	weightEarlyStage  = 25
	closingSoonDays   = 7
)

// AssessDelayRisk computes the weighted delay-risk score for a
// transaction from a snapshot of its documents. The assessment is
// ephemeral; callers recompute it on every sweep.
func AssessDelayRisk(txn *model.Transaction, docs []*model.Document, now time.Time) *model.DelayRiskAssessment {
	assessment := &model.DelayRiskAssessment{
		TransactionID: txn.TransactionID,
		DaysToClosing: txn.DaysToClosing(now),
	}

	present := make(map[string]bool, len(docs))
	issueDocs := 0
	for _, doc := range docs {
		present[doc.DocType] = true
		if len(doc.Issues) > 0 {
			issueDocs++
		}
	}

	missing := 0
	for _, required := range model.RequiredDocumentTypes {
		if !present[required] {
			missing++
		}
	}

	if missing > 0 {
		// Partial weight: each missing required document contributes
		// its share of the full 30.
		assessment.RiskScore += weightMissingDocs * missing / len(model.RequiredDocumentTypes)
		assessment.RiskFactors = append(assessment.RiskFactors,
			fmt.Sprintf("%d of %d required documents missing", missing, len(model.RequiredDocumentTypes)))
	}
	if issueDocs > 0 {
		assessment.RiskScore += weightDocIssues
		assessment.RiskFactors = append(assessment.RiskFactors,
			fmt.Sprintf("%d documents with unresolved issues", issueDocs))
	}
	if assessment.DaysToClosing < closingSoonDays {
		assessment.RiskScore += weightClosingSoon
		assessment.RiskFactors = append(assessment.RiskFactors,
			fmt.Sprintf("closing within %d days", closingSoonDays))
	}
	if txn.Status.EarlyStage() {
		assessment.RiskScore += weightEarlyStage
		assessment.RiskFactors = append(assessment.RiskFactors,
			fmt.Sprintf("transaction still in %s", txn.Status))
	}

	return assessment
}
