// Package quality scores generated drafts and gates auto-approval.
package quality

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"TrendPipeline/internal/domain"
)

// ReadyThreshold is the minimum quality score a READY draft must reach.
const ReadyThreshold = 85

const (
	minContentRunes  = 1000
	minEvidence      = 3
	minFitSignals    = 2
	signalPrefixRune = 8
)

// GrowthSignals are call-to-action markers that lift growth potential.
var GrowthSignals = []string{"建议", "下一步", "评论区", "关注", "行动"}

// Input carries everything the scorer looks at.
type Input struct {
	Title         string
	Content       string
	Profile       domain.AccountProfile
	EvidenceCount int
	OutlineCount  int
}

func clampInt(v, lo, hi int) int {
	return min(hi, max(lo, v))
}

func round(v float64) int {
	return int(math.Round(v))
}

// Score computes the multi-dimension quality report.
func Score(in Input) domain.QualityReport {
	textLength := compactLength(in.Content)

	readability := 70
	if in.OutlineCount >= 4 {
		readability = 100
	}

	deviation := math.Abs(float64(textLength - in.Profile.PreferredLength))
	lengthScore := clampInt(round(100-deviation/15), 35, 100)

	evidence := clampInt(in.EvidenceCount*18, 20, 100)

	fitSignals := FitSignals(in.Content, in.Profile.Audience, in.Profile.GrowthGoal, in.Profile.ContentPromise)
	accountFit := clampInt(45+fitSignals*18, 45, 100)

	growthHits := 0
	for _, s := range GrowthSignals {
		if strings.Contains(in.Content, s) {
			growthHits++
		}
	}
	growthPotential := clampInt(50+growthHits*10, 50, 100)

	relevance := clampInt(round(float64(lengthScore)*0.45+float64(accountFit)*0.55), 40, 100)

	score := round(float64(relevance)*0.24 +
		float64(evidence)*0.20 +
		float64(readability)*0.20 +
		float64(growthPotential)*0.20 +
		float64(accountFit)*0.16)

	warnings := []string{}
	if textLength < minContentRunes {
		warnings = append(warnings, "内容长度偏短，建议补充分析层。")
	}
	if in.EvidenceCount < minEvidence {
		warnings = append(warnings, "证据点不足，建议补充跨平台事实。")
	}
	if fitSignals < minFitSignals {
		warnings = append(warnings, "账号画像命中不足，建议强化受众语境。")
	}

	return domain.QualityReport{
		Score: score,
		Dimensions: domain.QualityDimensions{
			Relevance:       relevance,
			Evidence:        evidence,
			Readability:     readability,
			GrowthPotential: growthPotential,
			AccountFit:      accountFit,
		},
		Warnings: warnings,
	}
}

// FitSignals counts profile signals whose leading runes appear in content.
func FitSignals(content string, signals ...string) int {
	hits := 0
	for _, s := range signals {
		if s == "" {
			continue
		}
		if strings.Contains(content, Prefix(s, signalPrefixRune)) {
			hits++
		}
	}
	return hits
}

// Prefix returns at most n leading runes of s.
func Prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func compactLength(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// Gate downgrades a READY suggestion to REVIEW when quality is below the threshold.
func Gate(suggested domain.DraftStatus, score int) domain.DraftStatus {
	if suggested == domain.DraftStatusReady && score < ReadyThreshold {
		return domain.DraftStatusReview
	}
	return suggested
}
