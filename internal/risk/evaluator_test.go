package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"TrendPipeline/internal/domain"
)

var allPolicies = []domain.RiskPolicy{domain.PolicyBalanced, domain.PolicyStrict, domain.PolicyGrowth}

func TestHighRiskAlwaysBlocks(t *testing.T) {
	t.Parallel()

	e := NewEvaluator()
	for _, policy := range allPolicies {
		for _, term := range HighRiskTerms {
			got := e.Evaluate("普通标题", "正文里提到"+term+"相关内容", policy)
			assert.Equal(t, domain.RiskHigh, got.Level, "policy=%s term=%s", policy, term)
			assert.Equal(t, domain.DraftStatusBlocked, got.SuggestedStatus, "policy=%s term=%s", policy, term)
		}
	}
}

func TestGrowthPolicyGamblingScenario(t *testing.T) {
	t.Parallel()

	got := NewEvaluator().Evaluate("热点解读", "文章讨论了赌博产业链", domain.PolicyGrowth)
	assert.Equal(t, domain.RiskHigh, got.Level)
	assert.Equal(t, domain.DraftStatusBlocked, got.SuggestedStatus)
	assert.InDelta(t, 0.65, got.Score, 1e-9)
	assert.Equal(t, []string{"high-risk-term:1"}, got.Reasons)
}

func TestCaseFolding(t *testing.T) {
	t.Parallel()

	got := NewEvaluator().Evaluate("GAMBLING boom", "", domain.PolicyBalanced)
	assert.Equal(t, domain.RiskHigh, got.Level)
}

func TestPolicyClassification(t *testing.T) {
	t.Parallel()

	e := NewEvaluator()
	cases := []struct {
		name    string
		content string
		policy  domain.RiskPolicy
		level   domain.RiskLevel
		status  domain.DraftStatus
		reasons []string
	}{
		{"balanced clean", "平稳的行业分析", domain.PolicyBalanced, domain.RiskLow, domain.DraftStatusReady, nil},
		{"balanced one medium", "据传闻将调整", domain.PolicyBalanced, domain.RiskMedium, domain.DraftStatusReview, []string{"medium-risk-term:1"}},
		{"strict clean", "平稳的行业分析", domain.PolicyStrict, domain.RiskLow, domain.DraftStatusReady, nil},
		{"strict one medium", "内幕消息", domain.PolicyStrict, domain.RiskMedium, domain.DraftStatusReview, []string{"medium-risk-term:1"}},
		{"growth one medium", "内幕消息", domain.PolicyGrowth, domain.RiskMedium, domain.DraftStatusReady, []string{"medium-risk-term:1"}},
		{"growth two medium", "内幕爆料", domain.PolicyGrowth, domain.RiskMedium, domain.DraftStatusReview, []string{"medium-risk-term:2"}},
		{"growth clean", "平稳的行业分析", domain.PolicyGrowth, domain.RiskLow, domain.DraftStatusReady, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := e.Evaluate("标题", tc.content, tc.policy)
			assert.Equal(t, tc.level, got.Level)
			assert.Equal(t, tc.status, got.SuggestedStatus)
			assert.Equal(t, tc.reasons, got.Reasons)
		})
	}
}

func TestRepeatedTermCountsOnce(t *testing.T) {
	t.Parallel()

	got := NewEvaluator().Evaluate("谣言", "谣言谣言谣言", domain.PolicyBalanced)
	assert.InDelta(t, 0.4, got.Score, 1e-9)
}

func TestScoreIsBounded(t *testing.T) {
	t.Parallel()

	got := NewEvaluator().Evaluate("赌博 色情 毒品", "暴力 恐怖 诈骗 仇恨 内幕 爆料", domain.PolicyBalanced)
	assert.Equal(t, 1.0, got.Score)
}

func TestTermSetHits(t *testing.T) {
	t.Parallel()

	set := NewTermSet([]string{"Alpha", "beta", " "})
	assert.ElementsMatch(t, []string{"alpha", "beta"}, set.Hits("ALPHA and Beta and alpha"))
	assert.False(t, set.Any("gamma"))
	assert.Equal(t, 0, NewTermSet(nil).Count("anything"))
}
