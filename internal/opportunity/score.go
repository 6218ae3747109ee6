package opportunity

import (
	"fmt"
	"math"
	"strings"
	"time"

	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/risk"
)

const (
	// DefaultMinScore is the lowest score that creates a new opportunity.
	DefaultMinScore = 45

	// ExpiryAfterLatest is how long an opportunity stays valid after the latest snapshot.
	ExpiryAfterLatest = 6 * time.Hour

	freshnessHorizonMinutes = 360
	fullResonance           = 5
	riskPenalty             = 16
)

var titleRisk = risk.NewTermSet(risk.TitleRiskTerms)

// Result is a scored pairing with its audit trail.
type Result struct {
	Score   int
	Reasons []string
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}

// Score computes the composite opportunity score for a cluster at now.
func Score(cluster domain.TopicCluster, categoryScore float64, now time.Time) Result {
	heat := clamp(cluster.GrowthScore, 0, 100)
	crossSource := clamp(float64(cluster.ResonanceCount)/fullResonance*100, 0, 100)
	momentum := clamp(cluster.GrowthScore*0.8+cluster.PersistenceScore*0.2, 0, 100)
	ageMinutes := math.Max(0, now.Sub(cluster.LatestSnapshotAt).Minutes())
	freshness := clamp(100*(1-ageMinutes/freshnessHorizonMinutes), 0, 100)
	persistence := clamp(cluster.PersistenceScore, 0, 100)

	penalty := 0.0
	risky := titleRisk.Any(cluster.Title)
	if risky {
		penalty = riskPenalty
	}

	raw := heat*0.30 + crossSource*0.25 + momentum*0.20 + freshness*0.15 + persistence*0.10 + categoryScore - penalty

	reasons := []string{
		fmt.Sprintf("hot:%.1f", heat),
		fmt.Sprintf("cross-source:%.1f", crossSource),
		fmt.Sprintf("momentum:%.1f", momentum),
		fmt.Sprintf("freshness:%.1f", freshness),
		fmt.Sprintf("persistence:%.1f", persistence),
		fmt.Sprintf("category:%.1f", categoryScore),
	}
	if risky {
		reasons = append(reasons, "risk:high-risk-term")
	}

	return Result{Score: int(math.Round(clamp(raw, 0, 100))), Reasons: reasons}
}

// Evaluate matches and scores one cluster for one account. ok is false when the
// account does not match the cluster's categories.
func Evaluate(cluster domain.TopicCluster, accountKeywords []string, now time.Time) (Result, bool) {
	m := CategoryMatch(cluster.Keywords, accountKeywords)
	if m.Skip {
		return Result{}, false
	}

	res := Score(cluster, m.Score, now)
	if len(m.Matched) > 0 {
		res.Reasons = append(res.Reasons, "matched:"+strings.Join(m.Matched, "|"))
	}
	return res, true
}

// ExpiresAt returns when an opportunity on cluster lapses.
func ExpiresAt(cluster domain.TopicCluster) time.Time {
	return cluster.LatestSnapshotAt.Add(ExpiryAfterLatest)
}
