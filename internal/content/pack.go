package content

import (
	"fmt"
	"math"
	"strings"

	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/quality"
)

const (
	maxSections = 6

	DefaultImageCount = 4
	MinImageCount     = 3
	MaxImageCount     = 5
	DefaultStyle      = "news-analysis"
)

var defaultOutline = []string{"事件背景", "事实证据", "影响分析", "行动建议"}

// BuildContentPack plans the editorial angle and sections for a draft.
func BuildContentPack(topicTitle, accountName string, profile domain.AccountProfile, outline []string) domain.ContentPack {
	titles := outline
	if len(titles) == 0 {
		titles = defaultOutline
	}
	if len(titles) > maxSections {
		titles = titles[:maxSections]
	}

	sections := make([]domain.ContentSection, 0, len(titles))
	for i, title := range titles {
		goal := "用事实和分析支撑核心观点"
		switch {
		case i == 0:
			goal = "快速建立场景与阅读动机"
		case i == len(titles)-1:
			goal = "给出可执行建议并引导互动"
		}
		sections = append(sections, domain.ContentSection{Title: title, Goal: goal})
	}

	return domain.ContentPack{
		CoreAngle:    fmt.Sprintf("%s 对 %s 的现实影响", topicTitle, profile.Audience),
		TargetReader: profile.Audience,
		Hook:         fmt.Sprintf("围绕 %s，这不是“知道发生了什么”就够了，而是要看清它如何影响你的下一步。", topicTitle),
		Sections:     sections,
		CTA:          orText(profile.CTAStyle, "在评论区留下你的判断，我们将基于高赞问题做下一篇拆解。"),
		FollowupIdeas: []string{
			topicTitle + " 的后续变量观察清单",
			accountName + " 读者最常见问题答疑",
			"对比历史同类事件的结果与启示",
		},
	}
}

// NormalizeImageCount clamps a requested count to [3,5]; zero means the default.
func NormalizeImageCount(n int) int {
	if n == 0 {
		return DefaultImageCount
	}
	return min(MaxImageCount, max(MinImageCount, n))
}

// BuildImagePlaceholders plans illustration slots, cycling through the pack sections.
func BuildImagePlaceholders(title, topicTitle string, pack domain.ContentPack, imageCount int, style string) []domain.ImagePlaceholder {
	count := NormalizeImageCount(imageCount)
	style = orText(strings.TrimSpace(style), DefaultStyle)

	out := make([]domain.ImagePlaceholder, 0, count)
	for i := 0; i < count; i++ {
		section := domain.ContentSection{Title: "核心观点", Goal: "强化信息表达"}
		if len(pack.Sections) > 0 {
			section = pack.Sections[i%len(pack.Sections)]
		}

		purpose := "封面图"
		if i > 0 {
			purpose = fmt.Sprintf("内文配图-%d", i)
		}

		out = append(out, domain.ImagePlaceholder{
			Slot:            i + 1,
			Purpose:         purpose,
			Prompt:          fmt.Sprintf("为中文热点分析文章生成%s风格插图：主题“%s”，段落“%s”，突出“%s”，信息可视化，简洁专业。", style, topicTitle, section.Title, section.Goal),
			PlacementAnchor: section.Title,
			AltText:         title + " - " + section.Title,
		})
	}
	return out
}

// BuildGenerationTrace fuses the opportunity score with the model-side quality score.
func BuildGenerationTrace(topicScore int, profile domain.AccountProfile, body string, qualityScore int) domain.GenerationTrace {
	signals := quality.FitSignals(body, profile.Audience, profile.GrowthGoal, profile.Tone)
	modelScore := min(100, max(20, int(math.Round(float64(qualityScore)*0.92))))

	return domain.GenerationTrace{
		TopicScore:  topicScore,
		AccountFit:  min(100, 40+signals*18),
		ModelScore:  modelScore,
		FusionScore: int(math.Round(float64(topicScore)*0.4 + float64(modelScore)*0.6)),
	}
}

// AssetFallbackProfile is used when a draft has no stored content pack to plan assets from.
var AssetFallbackProfile = domain.AccountProfile{
	Audience:        "热点读者",
	Tone:            "专业",
	GrowthGoal:      "read",
	PainPoints:      []string{"信息过载"},
	ContentPromise:  "结构化解读热点",
	CTAStyle:        "评论区互动",
	PreferredLength: 1800,
}
