package llm

import (
	"context"
	"fmt"
	"strings"

	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/ports"
)

// TemplateModel is the model name recorded on template-generated drafts.
const TemplateModel = "template-fallback"

// TemplateGenerator writes a fixed four-section draft without calling a model.
type TemplateGenerator struct{}

var _ ports.TextGenerator = TemplateGenerator{}

func (TemplateGenerator) Generate(_ context.Context, req domain.GenerationRequest) (domain.GeneratedDraft, error) {
	topic := req.TopicTitle
	content := strings.Join([]string{
		"# " + topic,
		"",
		"## 开场钩子",
		fmt.Sprintf("今天围绕“%s”的讨论正在加速升温，值得在第一时间解释其核心影响。", topic),
		"",
		"## 热点事实与证据",
		"- 多平台热榜出现同题信号，具备共振传播条件。",
		"- 结合时间线与排名变化，当前话题仍在上行窗口。",
		"",
		"## 观点拆解",
		"把热点拆成“发生了什么、为什么重要、普通人如何行动”三层结构，更容易形成高完读率。",
		"",
		"## 行动建议",
		"建议评论区收集读者观点，下一篇用问答形式承接，形成连续选题。",
	}, "\n")

	return domain.GeneratedDraft{
		Title:   fmt.Sprintf("【%s】今天到底发生了什么？", topic),
		Outline: []string{"开场钩子", "热点事实与证据", "观点拆解", "行动建议"},
		Content: content,
		Model:   TemplateModel,
	}, nil
}
