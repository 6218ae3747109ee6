package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPipeline/internal/config"
	"TrendPipeline/internal/domain"
)

type scriptedReply struct {
	content string
	err     error
}

type fakeChatModel struct {
	mu      sync.Mutex
	replies []scriptedReply
	seen    [][]*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, input)
	r := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	return schema.AssistantMessage(r.content, nil), nil
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func newTestGenerator(chat *fakeChatModel, retries int) *EinoGenerator {
	g := newEinoGenerator(chat, config.LLMConfig{Model: "gpt-4o-mini", RequestsPerMinute: 6000, Burst: 10, MaxRetries: retries}, nil)
	g.retryDelay = 0
	return g
}

var testRequest = domain.GenerationRequest{
	SystemPrompt: "system",
	UserPrompt:   "user",
	TopicTitle:   "芯片新规",
	AccountName:  "硬核科技",
}

func TestEinoGeneratorParsesFencedJSON(t *testing.T) {
	t.Parallel()
	chat := &fakeChatModel{replies: []scriptedReply{{
		content: "好的：\n```json\n{\"title\":\"芯片新规解读\",\"outline\":[\" 背景 \",42,\"影响\"],\"content\":\"正文\"}\n```",
	}}}

	draft, err := newTestGenerator(chat, 0).Generate(context.Background(), testRequest)
	require.NoError(t, err)

	assert.Equal(t, "芯片新规解读", draft.Title)
	assert.Equal(t, []string{"背景", "影响"}, draft.Outline)
	assert.Equal(t, "正文", draft.Content)
	assert.Equal(t, "gpt-4o-mini", draft.Model)

	require.Len(t, chat.seen, 1)
	msgs := chat.seen[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.True(t, strings.HasSuffix(msgs[1].Content, jsonInstruction))
}

func TestEinoGeneratorRetriesRateLimitAndBadJSON(t *testing.T) {
	t.Parallel()
	chat := &fakeChatModel{replies: []scriptedReply{
		{err: errors.New("status 429: Too Many Requests")},
		{content: "not json at all"},
		{content: `前言 {"title":"T","content":"C"} 结尾`},
	}}

	draft, err := newTestGenerator(chat, 3).Generate(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, "T", draft.Title)
	assert.Empty(t, draft.Outline)
	assert.Len(t, chat.seen, 3)
}

func TestEinoGeneratorFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		replies []scriptedReply
		retries int
		calls   int
	}{
		{name: "hard error is not retried", replies: []scriptedReply{{err: errors.New("401 unauthorized")}}, retries: 3, calls: 1},
		{name: "missing content exhausts retries", replies: []scriptedReply{{content: `{"title":"only title"}`}}, retries: 2, calls: 3},
		{name: "empty reply", replies: []scriptedReply{{content: "   "}}, retries: 0, calls: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			chat := &fakeChatModel{replies: tc.replies}
			_, err := newTestGenerator(chat, tc.retries).Generate(context.Background(), testRequest)
			require.Error(t, err)
			assert.Len(t, chat.seen, tc.calls)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":1}`, extractJSON("```JSON\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, extractJSON(`x {"a":{"b":2}} y`))
	assert.Equal(t, "plain", extractJSON("plain"))
}

func TestTemplateGenerator(t *testing.T) {
	t.Parallel()

	draft, err := TemplateGenerator{}.Generate(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, "【芯片新规】今天到底发生了什么？", draft.Title)
	assert.Equal(t, TemplateModel, draft.Model)
	assert.Equal(t, []string{"开场钩子", "热点事实与证据", "观点拆解", "行动建议"}, draft.Outline)
	assert.True(t, strings.HasPrefix(draft.Content, "# 芯片新规\n"))
	assert.Contains(t, draft.Content, "今天围绕“芯片新规”的讨论正在加速升温")
}

func TestNewGeneratorFallsBackWithoutKey(t *testing.T) {
	t.Parallel()

	gen, err := NewGenerator(context.Background(), config.LLMConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, TemplateGenerator{}, gen)
}
