package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/scanner"
)

// Default selectors, overridable per source through options.
const (
	defaultItemSelector  = "ol > li, ul.hot-list > li"
	defaultTitleSelector = "a"
	defaultHeatSelector  = ".hot, .heat"
)

// HTMLScanner scrapes a rendered hot-list page.
type HTMLScanner struct {
	client *http.Client
	limit  int
}

// NewHTMLScanner wires an HTTP client; at most 50 entries are kept per page.
func NewHTMLScanner(client *http.Client) *HTMLScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLScanner{client: client, limit: 50}
}

func (h *HTMLScanner) Name() string {
	return "html"
}

// Scan fetches req.Endpoint and extracts one item per matched row. The
// options "item", "title" and "heat" override the selectors.
func (h *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.TrendItem, error) {
	if req.Endpoint == "" {
		return nil, fmt.Errorf("platform %s: html endpoint is empty", req.Platform)
	}

	doc, err := h.fetchDocument(ctx, req.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("platform %s: %w", req.Platform, err)
	}

	base, _ := url.Parse(req.Endpoint)
	return extractItems(doc, base, selectors(req.Options), h.limit), nil
}

type selectorSet struct {
	item, title, heat string
}

func selectors(opts map[string]string) selectorSet {
	pick := func(key, def string) string {
		if v := strings.TrimSpace(opts[key]); v != "" {
			return v
		}
		return def
	}
	return selectorSet{
		item:  pick("item", defaultItemSelector),
		title: pick("title", defaultTitleSelector),
		heat:  pick("heat", defaultHeatSelector),
	}
}

func (h *HTMLScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "TrendPipeline/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hot list returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func extractItems(doc *goquery.Document, base *url.URL, sel selectorSet, limit int) []domain.TrendItem {
	var items []domain.TrendItem
	doc.Find(sel.item).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		item, ok := parseRow(row, base, sel)
		if !ok {
			return true
		}
		item.Rank = len(items) + 1
		items = append(items, item)
		return len(items) < limit
	})
	return items
}

func parseRow(row *goquery.Selection, base *url.URL, sel selectorSet) (domain.TrendItem, bool) {
	link := row.Find(sel.title).First()
	title := strings.Join(strings.Fields(link.Text()), " ")
	if title == "" {
		return domain.TrendItem{}, false
	}

	href, _ := link.Attr("href")
	if href != "" && base != nil {
		if ref, err := url.Parse(href); err == nil {
			href = base.ResolveReference(ref).String()
		}
	}

	return domain.TrendItem{
		Title:     title,
		URL:       href,
		HeatValue: ParseHeat(row.Find(sel.heat).First().Text()),
	}, true
}
