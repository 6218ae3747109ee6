package clustering

import (
	"math"
	"sort"

	"TrendPipeline/internal/domain"
)

// NeutralMomentum is used when a cluster has too few items to compare halves.
const NeutralMomentum = 50

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}

// GrowthScore blends rank prominence (70%) and average heat (30%) into [0,100].
func GrowthScore(items []domain.TrendSnapshot) float64 {
	if len(items) == 0 {
		return 0
	}

	var rankSum float64
	var heatSum float64
	var heatCount int
	for _, item := range items {
		rankSum += clamp(float64(50-item.Rank)/50, 0, 1)
		if h := item.Heat(); h > 0 {
			heatSum += h
			heatCount++
		}
	}
	rankScore := rankSum / float64(len(items))

	avgHeat := 0.0
	if heatCount > 0 {
		avgHeat = heatSum / float64(heatCount)
	}
	hotScore := clamp(math.Log10(avgHeat+1)/6, 0, 1)

	return clamp((rankScore*0.7+hotScore*0.3)*100, 0, 100)
}

// MomentumScore compares the early and late halves of a cluster's items by
// capture time. Rising rank and heat score near 100, cooling near 0.
func MomentumScore(items []domain.TrendSnapshot) float64 {
	if len(items) < 2 {
		return NeutralMomentum
	}

	sorted := make([]domain.TrendSnapshot, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CapturedAt.Before(sorted[j].CapturedAt)
	})

	midpoint := max(1, len(sorted)/2)
	early, late := sorted[:midpoint], sorted[midpoint:]

	earlyRank, earlyHeat := averages(early)
	lateRank, lateHeat := averages(late)

	rankDelta := clamp(((earlyRank-lateRank)+20)/40, 0, 1)

	heatDelta := 0.5
	if earlyHeat > 0 || lateHeat > 0 {
		peak := math.Max(earlyHeat, lateHeat)
		heatDelta = clamp((lateHeat-earlyHeat+peak)/(peak*2+1), 0, 1)
	}

	return clamp((rankDelta*0.7+heatDelta*0.3)*100, 0, 100)
}

func averages(items []domain.TrendSnapshot) (rank, heat float64) {
	for _, item := range items {
		rank += float64(item.Rank)
		heat += item.Heat()
	}
	n := float64(len(items))
	return rank / n, heat / n
}

// PersistenceScore measures how often the footprint repeats per platform.
func PersistenceScore(itemCount, resonanceCount int) float64 {
	if itemCount == 0 || resonanceCount <= 0 {
		return 0
	}
	avgRepeat := float64(itemCount) / float64(resonanceCount)
	return clamp((1-math.Exp(-avgRepeat/2))*100, 0, 100)
}

// BlendGrowth combines the base growth score with momentum into the stored growth score.
func BlendGrowth(growth, momentum float64) float64 {
	return clamp(growth*0.65+momentum*0.35, 0, 100)
}
