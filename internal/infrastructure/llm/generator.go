package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"TrendPipeline/internal/config"
	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/ports"
)

const jsonInstruction = `请只输出 JSON：{"title":"","outline":[""],"content":""}`

var (
	errEmptyContent   = errors.New("LLM returned empty content")
	errMissingContent = errors.New("LLM response is missing title/content")

	fencedJSON = regexp.MustCompile("(?is)```json\\s*(.*?)```")
)

// EinoGenerator implements ports.TextGenerator on an OpenAI-compatible chat model.
type EinoGenerator struct {
	chat       model.BaseChatModel
	model      string
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

var _ ports.TextGenerator = (*EinoGenerator)(nil)

// NewGenerator returns the chat-model generator, or the deterministic
// template generator when no API key is configured.
func NewGenerator(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (ports.TextGenerator, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn("LLM api key not configured, using template generator")
		return TemplateGenerator{}, nil
	}
	return NewEinoGenerator(ctx, cfg, logger)
}

// NewEinoGenerator builds the chat model from configuration.
func NewEinoGenerator(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*EinoGenerator, error) {
	temperature := cfg.Temperature
	chat, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Timeout:     cfg.Timeout,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	return newEinoGenerator(chat, cfg, logger), nil
}

func newEinoGenerator(chat model.BaseChatModel, cfg config.LLMConfig, logger *slog.Logger) *EinoGenerator {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EinoGenerator{
		chat:       chat,
		model:      cfg.Model,
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		maxRetries: retries,
		retryDelay: 2 * time.Second,
		logger:     logger.With("component", "llm"),
	}
}

type draftPayload struct {
	Title   string `json:"title"`
	Outline []any  `json:"outline"`
	Content string `json:"content"`
}

// Generate asks the model for a JSON draft. Rate-limit responses and
// unparseable output are retried with exponential backoff.
func (g *EinoGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GeneratedDraft, error) {
	messages := []*schema.Message{
		schema.SystemMessage(req.SystemPrompt),
		schema.UserMessage(req.UserPrompt + "\n\n" + jsonInstruction),
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, g.retryDelay*time.Duration(1<<(attempt-1))); err != nil {
				return domain.GeneratedDraft{}, err
			}
		}
		if err := g.limiter.Wait(ctx); err != nil {
			return domain.GeneratedDraft{}, fmt.Errorf("llm rate limit: %w", err)
		}

		resp, err := g.chat.Generate(ctx, messages)
		if err != nil {
			if isRateLimited(err) {
				lastErr = err
				g.logger.Warn("llm rate limited", "attempt", attempt+1, "err", err)
				continue
			}
			return domain.GeneratedDraft{}, fmt.Errorf("LLM request failed: %w", err)
		}

		draft, err := parseDraft(resp)
		if err != nil {
			lastErr = err
			g.logger.Warn("llm output rejected", "attempt", attempt+1, "err", err)
			continue
		}
		draft.Model = g.model
		return draft, nil
	}
	return domain.GeneratedDraft{}, fmt.Errorf("generate draft for %q: %w", req.TopicTitle, lastErr)
}

func parseDraft(resp *schema.Message) (domain.GeneratedDraft, error) {
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return domain.GeneratedDraft{}, errEmptyContent
	}

	var payload draftPayload
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &payload); err != nil {
		return domain.GeneratedDraft{}, fmt.Errorf("decode LLM json: %w", err)
	}
	if strings.TrimSpace(payload.Title) == "" || strings.TrimSpace(payload.Content) == "" {
		return domain.GeneratedDraft{}, errMissingContent
	}

	outline := make([]string, 0, len(payload.Outline))
	for _, item := range payload.Outline {
		if s, ok := item.(string); ok {
			outline = append(outline, strings.TrimSpace(s))
		}
	}
	return domain.GeneratedDraft{Title: payload.Title, Outline: outline, Content: payload.Content}, nil
}

// extractJSON prefers a ```json fenced block, then the outermost braces.
func extractJSON(raw string) string {
	if m := fencedJSON.FindStringSubmatch(raw); len(m) == 2 && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
