// Package content builds draft prompts and the editorial material delivered with a draft.
package content

import (
	"fmt"
	"strings"
	"time"

	"TrendPipeline/internal/domain"
)

// TemplateVersion identifies the prompt layout stored on every draft.
const TemplateVersion = "wechat-v2-account-growth"

// MaxPromptEvidence bounds the evidence lines rendered into a prompt.
const MaxPromptEvidence = 10

// DiversityChecks are recorded on regenerated drafts.
var DiversityChecks = []string{"core-angle-shift", "hook-shift", "structure-shift"}

// PreviousDraft is the parent a regeneration must diverge from.
type PreviousDraft struct {
	Title   string
	Outline []string
}

// PromptInput is everything rendered into a draft prompt.
type PromptInput struct {
	AccountName    string
	Categories     []string
	TopicTitle     string
	ResonanceCount int
	GrowthScore    float64
	Keywords       []string
	Evidence       []domain.Evidence
	Profile        domain.AccountProfile
	Previous       *PreviousDraft
}

// Prompt is a rendered system/user prompt pair.
type Prompt struct {
	TemplateVersion string
	SystemPrompt    string
	UserPrompt      string
}

var systemPrompt = strings.Join([]string{
	"你是一名资深中文内容策略编辑。",
	"你的任务是为特定账号写一篇“能提升阅读、互动与关注转化”的热点深度稿。",
	"必须遵守：",
	"1) 事实与观点分离，不能捏造未给出的事实；",
	"2) 结构必须完整：开场钩子 -> 事实证据 -> 分析拆解 -> 行动建议 -> 互动收尾；",
	"3) 输出内容要可直接发布为 Markdown。",
}, "\n")

// BuildDraftPrompt renders the account-growth draft prompt.
func BuildDraftPrompt(in PromptInput) Prompt {
	categoryText := orText(strings.Join(in.Categories, " / "), "通用热点解读")
	keywordsText := orText(strings.Join(in.Keywords, "、"), "实时热点")

	evidence := in.Evidence
	if len(evidence) > MaxPromptEvidence {
		evidence = evidence[:MaxPromptEvidence]
	}
	lines := make([]string, 0, len(evidence))
	for i, e := range evidence {
		line := fmt.Sprintf("%d. [%s] %s (rank=%d, snapshot=%s)", i+1, e.Platform, e.Title, e.Rank, e.CapturedAt.UTC().Format(time.RFC3339))
		if e.URL != "" {
			line += " url=" + e.URL
		}
		lines = append(lines, line)
	}
	evidenceText := orText(strings.Join(lines, "\n"), "- 暂无证据")

	p := in.Profile
	profileText := strings.Join([]string{
		"目标读者：" + p.Audience,
		"语气风格：" + p.Tone,
		"增长目标：" + p.GrowthGoal,
		"读者痛点：" + orText(strings.Join(p.PainPoints, "；"), "信息噪音高"),
		"内容承诺：" + orText(p.ContentPromise, "给出高信息密度的分析与行动建议"),
		"禁区：" + orText(strings.Join(p.ForbiddenTopics, "；"), "禁止编造事实"),
		"CTA风格：" + orText(p.CTAStyle, "评论互动+下篇承接"),
		fmt.Sprintf("目标字数：%d", p.PreferredLength),
	}, "\n")

	diversity := "这是首稿，可聚焦当前最具传播价值的分析角度。"
	if in.Previous != nil {
		diversity = strings.Join([]string{
			"这是重生稿，必须与上一个版本保持明显差异。",
			"上稿标题：" + in.Previous.Title,
			"上稿大纲：" + orText(strings.Join(in.Previous.Outline, " / "), "无"),
			"要求本稿至少在“核心观点、开场路径、段落结构”中改变两项，禁止同义改写。",
		}, "\n")
	}

	user := strings.Join([]string{
		"账号名称：" + in.AccountName,
		"账号赛道：" + categoryText,
		"热点主题：" + in.TopicTitle,
		fmt.Sprintf("跨平台共振数：%d", in.ResonanceCount),
		fmt.Sprintf("增长分：%.1f", in.GrowthScore),
		"关键词：" + keywordsText,
		"",
		"账号定位：",
		profileText,
		"",
		"热点证据链：",
		evidenceText,
		"",
		"生成要求：",
		"1) 标题务必具体，不用夸张词；",
		"2) 生成 1400-2200 字；",
		"3) 正文需包含至少 4 个可验证事实点（来源可内隐，不必外链展示）；",
		"4) 给出至少 2 条可执行建议；",
		"5) 结尾包含互动问题与下篇承接。",
		"",
		diversity,
		"",
		`请只输出 JSON：{"title":"","outline":[""],"content":""}`,
	}, "\n")

	return Prompt{
		TemplateVersion: TemplateVersion,
		SystemPrompt:    systemPrompt,
		UserPrompt:      user,
	}
}

func orText(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
