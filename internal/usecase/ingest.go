package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/metrics"
	"TrendPipeline/internal/ports"
)

const noDataMessage = "No data"

// IngestDeps wires trend ingestion to the scanners and the snapshot store.
type IngestDeps struct {
	Fetcher     ports.TrendFetcher
	Writer      ports.SnapshotWriter
	Metrics     *metrics.Recorder
	Logger      *slog.Logger
	Now         func() time.Time
	Concurrency int
}

// Ingestor saves the current hot lists as snapshots.
type Ingestor struct {
	fetcher     ports.TrendFetcher
	writer      ports.SnapshotWriter
	metrics     *metrics.Recorder
	logger      *slog.Logger
	now         func() time.Time
	concurrency int
}

// NewIngestor constructs the ingestion use case.
func NewIngestor(deps IngestDeps) *Ingestor {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Ingestor{
		fetcher:     deps.Fetcher,
		writer:      deps.Writer,
		metrics:     deps.Metrics,
		logger:      componentLogger(deps.Logger, "ingest"),
		now:         now,
		concurrency: concurrency,
	}
}

// SyncTrends fetches every platform and stores each item independently. All
// snapshots of one pass share the same capture instant.
func (g *Ingestor) SyncTrends(ctx context.Context) (domain.TrendSyncResult, error) {
	lists, err := g.fetcher.FetchAll(ctx)
	if err != nil {
		return domain.TrendSyncResult{}, fmt.Errorf("fetch trends: %w", err)
	}

	capturedAt := g.now()
	result := domain.TrendSyncResult{CapturedAt: capturedAt}
	for _, platform := range g.fetcher.Platforms() {
		res := g.savePlatform(ctx, platform, lists[platform], capturedAt)
		g.metrics.ObserveSnapshots(res)
		result.Platforms = append(result.Platforms, res)
		result.TotalSuccess += res.SuccessCount
		result.TotalFailed += res.FailCount
	}

	g.logger.Info("trend sync done",
		"platforms", len(result.Platforms),
		"saved", result.TotalSuccess,
		"failed", result.TotalFailed,
	)
	return result, nil
}

func (g *Ingestor) savePlatform(ctx context.Context, platform string, items []domain.TrendItem, capturedAt time.Time) domain.SnapshotSaveResult {
	if len(items) == 0 {
		return domain.SnapshotSaveResult{Platform: platform, Error: noDataMessage}
	}

	errs := runIsolated(ctx, len(items), g.concurrency, func(ctx context.Context, i int) error {
		return g.writer.SaveSnapshotItem(ctx, platform, items[i], capturedAt)
	})
	ok, failed := tally(errs)

	res := domain.SnapshotSaveResult{Platform: platform, SuccessCount: ok, FailCount: failed}
	for _, err := range errs {
		if err != nil {
			res.Error = err.Error()
			g.logger.Warn("snapshot save failed", "platform", platform, "err", err)
			break
		}
	}
	return res
}
