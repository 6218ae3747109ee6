package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"TrendPipeline/internal/domain"
)

// PipelineDeps wires the recurring ingestion and sync passes together.
type PipelineDeps struct {
	Ingestor    *Ingestor
	Syncer      *Syncer
	WindowHours int
	Logger      *slog.Logger
}

// Pipeline runs trend ingestion followed by an opportunity sync.
type Pipeline struct {
	ingestor    *Ingestor
	syncer      *Syncer
	windowHours int
	logger      *slog.Logger
}

// CycleResult is what one scheduled cycle produced.
type CycleResult struct {
	Trends *domain.TrendSyncResult `json:"trends,omitempty"`
	Sync   domain.SyncResult        `json:"sync"`
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		ingestor:    deps.Ingestor,
		syncer:      deps.Syncer,
		windowHours: deps.WindowHours,
		logger:      componentLogger(deps.Logger, "pipeline"),
	}
}

// RunCycle ingests fresh hot lists, then rebuilds clusters and opportunities.
// An ingestion failure is logged and the sync still runs on stored snapshots.
func (p *Pipeline) RunCycle(ctx context.Context, trigger time.Time) (CycleResult, error) {
	var out CycleResult
	if p.syncer == nil {
		return out, nil
	}

	if p.ingestor != nil {
		trends, err := p.ingestor.SyncTrends(ctx)
		if err != nil {
			p.logger.Error("trend ingestion failed", "trigger", trigger, "err", err)
		} else {
			out.Trends = &trends
		}
	}

	res, err := p.syncer.Sync(ctx, p.windowHours)
	if err != nil {
		return out, fmt.Errorf("sync opportunities: %w", err)
	}
	out.Sync = res
	return out, nil
}
