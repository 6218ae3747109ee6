package opportunity

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPipeline/internal/domain"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAccountKeywords(t *testing.T) {
	t.Parallel()

	acc := domain.Account{Categories: []domain.Category{
		{Name: "科技", Keywords: []string{"AI", " 芯片 ", ""}},
		{Name: "财经", Keywords: []string{"ai", "股市"}},
	}}
	assert.Equal(t, []string{"ai", "芯片", "股市"}, AccountKeywords(acc))
	assert.Empty(t, AccountKeywords(domain.Account{}))
}

func TestCategoryMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cluster []string
		account []string
		want    Match
	}{
		{name: "no account keywords", cluster: []string{"芯片"}, account: nil, want: Match{Score: 10}},
		{name: "no overlap", cluster: []string{"足球"}, account: []string{"芯片"}, want: Match{Skip: true}},
		{name: "substring both ways", cluster: []string{"芯片新规", "ai"}, account: []string{"芯片", "openai"}, want: Match{Matched: []string{"芯片新规", "ai"}, Score: 12}},
		{name: "capped", cluster: []string{"a1", "a2", "a3", "a4"}, account: []string{"a"}, want: Match{Matched: []string{"a1", "a2", "a3", "a4"}, Score: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CategoryMatch(tt.cluster, tt.account))
		})
	}
}

func TestScoreFreshCrossPlatformCluster(t *testing.T) {
	t.Parallel()

	cluster := domain.TopicCluster{
		Title:            "芯片新规发布",
		ResonanceCount:   5,
		GrowthScore:      80,
		PersistenceScore: 50,
		LatestSnapshotAt: now,
	}

	res := Score(cluster, 10, now)
	// 24 + 25 + 14.8 + 15 + 5 + 10 = 93.8
	assert.Equal(t, 94, res.Score)
	assert.Equal(t, []string{
		"hot:80.0", "cross-source:100.0", "momentum:74.0", "freshness:100.0", "persistence:50.0", "category:10.0",
	}, res.Reasons)
}

func TestScoreRiskPenaltyAndStaleness(t *testing.T) {
	t.Parallel()

	cluster := domain.TopicCluster{
		Title:            "网络赌博案告破",
		ResonanceCount:   1,
		GrowthScore:      50,
		LatestSnapshotAt: now.Add(-7 * time.Hour),
	}

	res := Score(cluster, 0, now)
	// 15 + 5 + 8 + 0 + 0 - 16 = 12
	assert.Equal(t, 12, res.Score)
	assert.Contains(t, res.Reasons, "freshness:0.0")
	assert.Contains(t, res.Reasons, "risk:high-risk-term")
}

func TestScoreAlwaysBounded(t *testing.T) {
	t.Parallel()

	for _, growth := range []float64{-50, 0, 55, 100, 400, math.NaN()} {
		for _, resonance := range []int{0, 1, 9} {
			for _, age := range []time.Duration{-time.Hour, 0, 3 * time.Hour, 48 * time.Hour} {
				for _, category := range []float64{0, 10, 20} {
					c := domain.TopicCluster{
						Title:            "诈骗",
						GrowthScore:      growth,
						PersistenceScore: growth,
						ResonanceCount:   resonance,
						LatestSnapshotAt: now.Add(-age),
					}
					s := Score(c, category, now).Score
					assert.GreaterOrEqual(t, s, 0)
					assert.LessOrEqual(t, s, 100)
				}
			}
		}
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	cluster := domain.TopicCluster{
		Title:            "芯片新规",
		Keywords:         []string{"芯片", "新规"},
		ResonanceCount:   2,
		GrowthScore:      60,
		LatestSnapshotAt: now,
	}

	_, ok := Evaluate(cluster, []string{"足球"}, now)
	assert.False(t, ok)

	res, ok := Evaluate(cluster, []string{"芯片"}, now)
	require.True(t, ok)
	assert.Equal(t, "matched:芯片", res.Reasons[len(res.Reasons)-1])

	res, ok = Evaluate(cluster, nil, now)
	require.True(t, ok)
	assert.Equal(t, "category:10.0", res.Reasons[len(res.Reasons)-1])

	assert.Equal(t, now.Add(6*time.Hour), ExpiresAt(cluster))
}
