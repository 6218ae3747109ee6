package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/infrastructure/memory"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func heat(v float64) *float64 { return &v }

func seedTechAccount(store *memory.Store) domain.Account {
	acc := domain.Account{
		ID:       "acc-tech",
		Name:     "硬核科技",
		Platform: "weixin",
		IsActive: true,
		Categories: []domain.Category{
			{ID: "cat-1", Name: "科技", Keywords: []string{"芯片"}},
		},
	}
	store.PutAccount(acc)
	return acc
}

func seedCrossPlatformTopic(store *memory.Store, now time.Time) {
	store.AddSnapshots(
		domain.TrendSnapshot{Platform: "weibo", Title: "芯片新规发布！", Rank: 1, HeatValue: heat(1_000_000), CapturedAt: now.Add(-10 * time.Minute)},
		domain.TrendSnapshot{Platform: "douyin", Title: "芯片新规发布", Rank: 2, HeatValue: heat(500_000), CapturedAt: now.Add(-5 * time.Minute)},
	)
}

type fakeGenerator struct {
	mu       sync.Mutex
	draft    domain.GeneratedDraft
	err      error
	requests []domain.GenerationRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req domain.GenerationRequest) (domain.GeneratedDraft, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return domain.GeneratedDraft{}, g.err
	}
	return g.draft, nil
}

type publishOutcome struct {
	resp domain.PublishResponse
	err  error
}

type fakePublisher struct {
	mu       sync.Mutex
	outcomes []publishOutcome
	calls    int
}

func (p *fakePublisher) Publish(_ context.Context, _ domain.PublishRequest) (domain.PublishResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.outcomes) == 0 {
		return domain.PublishResponse{}, errors.New("no scripted outcome")
	}
	out := p.outcomes[0]
	if len(p.outcomes) > 1 {
		p.outcomes = p.outcomes[1:]
	}
	return out.resp, out.err
}

func (p *fakePublisher) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeFetcher struct {
	platforms []string
	lists     map[string][]domain.TrendItem
	err       error
}

func (f fakeFetcher) FetchAll(context.Context) (map[string][]domain.TrendItem, error) {
	return f.lists, f.err
}

func (f fakeFetcher) Platforms() []string { return f.platforms }
