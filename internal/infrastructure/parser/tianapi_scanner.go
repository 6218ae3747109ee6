package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/scanner"
)

const tianAPIBaseURL = "https://api.tianapi.com"

var (
	titleKeys = []string{"hotword", "word", "raw_hotword", "title", "keyword"}
	heatKeys  = []string{"hotwordnum", "hotindex", "hotnum", "hot", "index"}
	urlKeys   = []string{"url", "mobilurl", "link"}
	descKeys  = []string{"digest", "desc", "description"}
)

// TianAPIScanner reads hot lists from the TianAPI JSON endpoints.
type TianAPIScanner struct {
	client *http.Client
}

// NewTianAPIScanner wires an HTTP client; a nil client gets a 10s timeout.
func NewTianAPIScanner(client *http.Client) *TianAPIScanner {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TianAPIScanner{client: client}
}

func (s *TianAPIScanner) Name() string {
	return "tianapi"
}

type tianAPIResponse struct {
	Code     int              `json:"code"`
	Msg      string           `json:"msg"`
	Message  string           `json:"message"`
	NewsList []map[string]any `json:"newslist"`
	List     []map[string]any `json:"list"`
	Result   struct {
		List []map[string]any `json:"list"`
	} `json:"result"`
}

// Scan fetches one platform list. Ranks follow the list order.
func (s *TianAPIScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.TrendItem, error) {
	if req.APIKey == "" {
		return nil, fmt.Errorf("TIANAPI_KEY is not configured")
	}
	if req.Path == "" {
		return nil, fmt.Errorf("platform %s: tianapi path is empty", req.Platform)
	}

	base := req.Endpoint
	if base == "" {
		base = tianAPIBaseURL
	}
	u, err := url.Parse(strings.TrimSuffix(base, "/") + req.Path)
	if err != nil {
		return nil, fmt.Errorf("parse tianapi url: %w", err)
	}
	q := u.Query()
	q.Set("key", req.APIKey)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request tianapi: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TianAPI request failed: %d", resp.StatusCode)
	}

	var body tianAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode tianapi response: %w", err)
	}
	if body.Code != http.StatusOK {
		msg := body.Msg
		if msg == "" {
			msg = body.Message
		}
		return nil, fmt.Errorf("TianAPI error: %s", msg)
	}

	list := body.NewsList
	if len(list) == 0 {
		list = body.List
	}
	if len(list) == 0 {
		list = body.Result.List
	}

	items := make([]domain.TrendItem, 0, len(list))
	for _, raw := range list {
		title := firstString(raw, titleKeys)
		if title == "" {
			continue
		}
		items = append(items, domain.TrendItem{
			Title:       title,
			HeatValue:   ParseHeat(firstString(raw, heatKeys)),
			URL:         firstString(raw, urlKeys),
			Description: firstString(raw, descKeys),
			Rank:        len(items) + 1,
		})
	}
	return items, nil
}

// firstString returns the first non-empty value under keys, numbers included.
func firstString(record map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := record[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			if v != 0 {
				return fmt.Sprintf("%.0f", v)
			}
		}
	}
	return ""
}
