package orchestration

import (
	"context"
	"log"
)

type urgencyAssessment struct {
	// classifier stores the optional semantic urgency backend.
	classifier UrgencyClassifier
}

func newUrgencyAssessment(classifier UrgencyClassifier) *urgencyAssessment {
	return &urgencyAssessment{classifier: classifier}
}

func (u *urgencyAssessment) set(classifier UrgencyClassifier) {
	if u != nil {
		u.classifier = classifier
	}
}

func (u *urgencyAssessment) isConfigured() bool {
	return u != nil && u.classifier != nil
}

// assess returns the semantic urgency of an audience message in [0, 1]. A
// missing or failing classifier contributes nothing; keyword scoring alone
// decides in that case.
func (u *urgencyAssessment) assess(ctx context.Context, message string) float64 {
	if !u.isConfigured() {
		return 0
	}

	score, err := u.classifier.Assess(ctx, message)
	if err != nil {
		log.Println("Warning: urgency assessment failed:", err)
		return 0
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
