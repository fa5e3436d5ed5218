// Package automation implements the three timer-driven jobs derived
// from committed transaction state: document verification, the
// pending-document reminder sweep and delay-risk detection.
package automation

import (
	"context"
	"hash/fnv"

	"closedesk/domain/model"
)

// Issue strings derived from the verification score thresholds.
const (
	IssueMissingInfo = "possible missing information"
	IssueQuality     = "document quality issue"
	IssueSignature   = "missing or invalid signature"
)

// Score thresholds. A document scoring below a threshold picks up the
// corresponding issue; the checks stack, so a low score collects all of
// them.
const (
	thresholdMissingInfo = 80
	thresholdQuality     = 70
	thresholdSignature   = 60
)

// IssuesForScore derives the issue list from a verification score.
func IssuesForScore(score int) []string {
	var issues []string
	if score < thresholdMissingInfo {
		issues = append(issues, IssueMissingInfo)
	}
	if score < thresholdQuality {
		issues = append(issues, IssueQuality)
	}
	if score < thresholdSignature {
		issues = append(issues, IssueSignature)
	}
	return issues
}

// HeuristicScorer is the stand-in document scorer: a deterministic hash
// of the document reference mapped into [55, 100). It exists so the
// pipeline is exercisable end to end before a real analysis backend is
// plugged in behind the same DocumentScorer contract.
type HeuristicScorer struct{}

// NewHeuristicScorer creates the stand-in scorer.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// Score computes the document's verification score and issues.
func (s *HeuristicScorer) Score(_ context.Context, doc *model.Document) (int, []string, error) {
	h := fnv.New32a()
	h.Write([]byte(doc.DocumentID))
	h.Write([]byte(doc.FileRef))
	score := 55 + int(h.Sum32()%45)
	return score, IssuesForScore(score), nil
}
