// Package risk screens generated drafts for policy risk.
package risk

import (
	"fmt"
	"math"

	"TrendPipeline/internal/domain"
)

// Evaluation is the verdict for one draft.
type Evaluation struct {
	Level           domain.RiskLevel
	Score           float64
	Reasons         []string
	SuggestedStatus domain.DraftStatus
}

// Evaluator classifies drafts against the high and medium risk dictionaries.
type Evaluator struct {
	high   *TermSet
	medium *TermSet
}

// NewEvaluator builds an evaluator over the default dictionaries.
func NewEvaluator() *Evaluator {
	return NewEvaluatorWithTerms(HighRiskTerms, MediumRiskTerms)
}

// NewEvaluatorWithTerms builds an evaluator over custom dictionaries.
func NewEvaluatorWithTerms(high, medium []string) *Evaluator {
	return &Evaluator{high: NewTermSet(high), medium: NewTermSet(medium)}
}

// Evaluate scores title and content under the given policy. A high-risk hit
// blocks the draft before any policy is consulted.
func (e *Evaluator) Evaluate(title, content string, policy domain.RiskPolicy) Evaluation {
	text := title + "\n" + content
	highHits := e.high.Count(text)
	mediumHits := e.medium.Count(text)

	score := math.Min(1, math.Max(0, 0.2+0.45*float64(highHits)+0.2*float64(mediumHits)))

	var reasons []string
	if highHits > 0 {
		reasons = append(reasons, fmt.Sprintf("high-risk-term:%d", highHits))
	}
	if mediumHits > 0 {
		reasons = append(reasons, fmt.Sprintf("medium-risk-term:%d", mediumHits))
	}

	if highHits > 0 {
		return Evaluation{Level: domain.RiskHigh, Score: score, Reasons: reasons, SuggestedStatus: domain.DraftStatusBlocked}
	}

	switch policy {
	case domain.PolicyStrict:
		if mediumHits > 0 || score >= 0.45 {
			return Evaluation{Level: domain.RiskMedium, Score: score, Reasons: orDefault(reasons, "strict-policy-review"), SuggestedStatus: domain.DraftStatusReview}
		}
	case domain.PolicyGrowth:
		level := domain.RiskLow
		if mediumHits > 0 {
			level = domain.RiskMedium
		}
		status := domain.DraftStatusReady
		if mediumHits > 1 {
			status = domain.DraftStatusReview
		}
		return Evaluation{Level: level, Score: score, Reasons: reasons, SuggestedStatus: status}
	}

	if mediumHits > 0 || score >= 0.5 {
		return Evaluation{Level: domain.RiskMedium, Score: score, Reasons: orDefault(reasons, "balanced-policy-review"), SuggestedStatus: domain.DraftStatusReview}
	}

	return Evaluation{Level: domain.RiskLow, Score: score, Reasons: reasons, SuggestedStatus: domain.DraftStatusReady}
}

func orDefault(reasons []string, fallback string) []string {
	if len(reasons) > 0 {
		return reasons
	}
	return []string{fallback}
}
