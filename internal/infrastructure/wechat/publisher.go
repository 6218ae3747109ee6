package wechat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"TrendPipeline/internal/config"
	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/ports"
)

// ErrNotConfigured is returned in live mode when the endpoint or token is missing.
var ErrNotConfigured = errors.New("WeChat publish is not configured. Set WECHAT_PUBLISH_ENDPOINT and WECHAT_PUBLISH_TOKEN or enable WECHAT_PUBLISH_DRY_RUN")

var externalIDKeys = []string{"externalId", "id", "articleId", "mediaId", "publishId"}

// Publisher posts drafts to a WeChat publishing gateway.
type Publisher struct {
	endpoint string
	token    string
	stage    domain.DeliveryStage
	dryRun   bool
	client   *http.Client
	limiter  *rate.Limiter
	now      func() time.Time
}

var _ ports.Publisher = (*Publisher)(nil)

// NewPublisher builds the transport from configuration.
func NewPublisher(cfg config.PublisherConfig) *Publisher {
	stage := domain.StageDraftbox
	if strings.EqualFold(strings.TrimSpace(cfg.Mode), string(domain.StagePublished)) {
		stage = domain.StagePublished
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	}
	return &Publisher{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		stage:    stage,
		dryRun:   cfg.DryRun,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(limit, 1),
		now:      time.Now,
	}
}

// Publish delivers one draft. Dry-run mode returns a synthetic id without
// any network call.
func (p *Publisher) Publish(ctx context.Context, in domain.PublishRequest) (domain.PublishResponse, error) {
	if p.dryRun {
		raw, err := json.Marshal(map[string]any{
			"dryRun":    true,
			"mode":      p.stage,
			"accountId": in.AccountID,
			"title":     in.Title,
		})
		if err != nil {
			return domain.PublishResponse{}, fmt.Errorf("encode dry-run response: %w", err)
		}
		return domain.PublishResponse{
			ExternalID:    fmt.Sprintf("wechat-dryrun-%d", p.now().UnixMilli()),
			DeliveryStage: p.stage,
			Response:      raw,
		}, nil
	}

	if p.endpoint == "" || p.token == "" {
		return domain.PublishResponse{}, ErrNotConfigured
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return domain.PublishResponse{}, fmt.Errorf("publish rate limit: %w", err)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return domain.PublishResponse{}, fmt.Errorf("marshal publish payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.PublishResponse{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.PublishResponse{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.PublishResponse{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.PublishResponse{}, fmt.Errorf("WeChat publish failed: %d %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}

	raw := json.RawMessage(text)
	var parsed any
	if err := json.Unmarshal(text, &parsed); err != nil {
		// keep non-JSON bodies as a JSON string
		raw, _ = json.Marshal(string(text))
	}

	externalID := resolveExternalID(parsed)
	if externalID == "" {
		externalID = fmt.Sprintf("wechat-%d", p.now().UnixMilli())
	}
	return domain.PublishResponse{ExternalID: externalID, DeliveryStage: p.stage, Response: raw}, nil
}

func resolveExternalID(payload any) string {
	record, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range externalIDKeys {
		if s, ok := record[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
