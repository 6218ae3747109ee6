package parser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"TrendPipeline/internal/config"
	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/ports"
	"TrendPipeline/internal/scanner"
)

// StrategySource implements TrendFetcher via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	apiKey   string
	cache    ports.TrendCache
	logger   *slog.Logger
}

var _ ports.TrendFetcher = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
// cache may be nil.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, apiKey string, cache ports.TrendCache, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		apiKey:   apiKey,
		cache:    cache,
		logger:   log,
	}
}

// Platforms lists configured platforms in config order.
func (s *StrategySource) Platforms() []string {
	out := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, src.Platform)
	}
	return out
}

// FetchAll scans every source independently. A failing platform is logged
// and left out of the result.
func (s *StrategySource) FetchAll(ctx context.Context) (map[string][]domain.TrendItem, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch all", "sources", len(s.sources))

	var (
		mu  sync.Mutex
		out = make(map[string][]domain.TrendItem, len(s.sources))
		g   errgroup.Group
	)
	g.SetLimit(4)
	for _, src := range s.sources {
		g.Go(func() error {
			items, err := s.fetchOne(ctx, src)
			if err != nil {
				s.warn("source failed", "platform", src.Platform, "scanner", src.Scanner, "err", err)
				return nil
			}
			mu.Lock()
			out[src.Platform] = items
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.debug("strategy source done", "platforms", len(out))
	return out, nil
}

func (s *StrategySource) fetchOne(ctx context.Context, src config.SourceConfig) ([]domain.TrendItem, error) {
	if s.cache != nil {
		items, ok, err := s.cache.Get(ctx, src.Platform)
		if err != nil {
			s.warn("trend cache read failed", "platform", src.Platform, "err", err)
		} else if ok {
			s.debug("trend cache hit", "platform", src.Platform, "count", len(items))
			return items, nil
		}
	}

	strategy, err := s.registry.Resolve(src.Scanner)
	if err != nil {
		return nil, fmt.Errorf("platform %s: %w", src.Platform, err)
	}

	items, err := strategy.Scan(ctx, scanner.Request{
		Platform: src.Platform,
		Endpoint: src.Endpoint,
		Path:     src.Path,
		APIKey:   s.apiKey,
		Options:  src.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("scan platform %s: %w", src.Platform, err)
	}
	s.debug("platform produced items", "platform", src.Platform, "count", len(items))

	if s.cache != nil && len(items) > 0 {
		if err := s.cache.Set(ctx, src.Platform, items); err != nil {
			s.warn("trend cache write failed", "platform", src.Platform, "err", err)
		}
	}
	return items, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
