package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"TrendPipeline/internal/clustering"
	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/metrics"
	"TrendPipeline/internal/opportunity"
	"TrendPipeline/internal/ports"
)

// Sync window bounds in hours. Requests outside [MinWindowHours,
// MaxWindowHours] are clamped; an absent window uses DefaultWindowHours.
const (
	DefaultWindowHours = 2
	MinWindowHours     = 1
	MaxWindowHours     = 24
	defaultConcurrency = 4
)

// SyncOptions tunes an opportunity sync pass.
type SyncOptions struct {
	MinScore           int
	DefaultWindowHours int
	MinWindowHours     int
	MaxWindowHours     int
	Concurrency        int
	Keywords           clustering.KeywordOptions
}

func (o SyncOptions) withDefaults() SyncOptions {
	if o.MinScore <= 0 {
		o.MinScore = opportunity.DefaultMinScore
	}
	if o.MinWindowHours <= 0 {
		o.MinWindowHours = MinWindowHours
	}
	if o.MaxWindowHours <= 0 || o.MaxWindowHours < o.MinWindowHours {
		o.MaxWindowHours = max(MaxWindowHours, o.MinWindowHours)
	}
	if o.DefaultWindowHours <= 0 {
		o.DefaultWindowHours = DefaultWindowHours
	}
	o.DefaultWindowHours = min(o.MaxWindowHours, max(o.MinWindowHours, o.DefaultWindowHours))
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	return o
}

// SyncDeps wires the sync pass to its collaborators.
type SyncDeps struct {
	Snapshots     ports.SnapshotSource
	Accounts      ports.AccountStore
	Clusters      ports.ClusterRepository
	Opportunities ports.OpportunityRepository
	Metrics       *metrics.Recorder
	Logger        *slog.Logger
	Now           func() time.Time
	Options       SyncOptions
}

// Syncer turns windowed snapshots into persisted clusters and opportunities.
type Syncer struct {
	snapshots     ports.SnapshotSource
	accounts      ports.AccountStore
	clusters      ports.ClusterRepository
	opportunities ports.OpportunityRepository
	metrics       *metrics.Recorder
	logger        *slog.Logger
	now           func() time.Time
	opts          SyncOptions
	engine        *clustering.Engine
}

// NewSyncer constructs the sync use case.
func NewSyncer(deps SyncDeps) *Syncer {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	opts := deps.Options.withDefaults()
	return &Syncer{
		snapshots:     deps.Snapshots,
		accounts:      deps.Accounts,
		clusters:      deps.Clusters,
		opportunities: deps.Opportunities,
		metrics:       deps.Metrics,
		logger:        componentLogger(deps.Logger, "sync"),
		now:           now,
		opts:          opts,
		engine:        clustering.NewEngine(opts.Keywords),
	}
}

// ClampWindow bounds a requested window; zero or negative selects the default.
func (s *Syncer) ClampWindow(hours int) int {
	if hours <= 0 {
		return s.opts.DefaultWindowHours
	}
	return min(s.opts.MaxWindowHours, max(s.opts.MinWindowHours, hours))
}

type clusterOutcome struct {
	upserted bool
	touched  int
	skipped  int
	failed   int
}

// Sync runs one pass over the last windowHours of snapshots. Per-item write
// failures are counted; only listing failures abort the pass.
func (s *Syncer) Sync(ctx context.Context, windowHours int) (domain.SyncResult, error) {
	started := time.Now()
	end := s.now()
	start := end.Add(-time.Duration(s.ClampWindow(windowHours)) * time.Hour)

	accounts, err := s.accounts.ListActiveAccounts(ctx)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("list active accounts: %w", err)
	}
	snaps, err := s.snapshots.ListSnapshots(ctx, start, end)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("list snapshots: %w", err)
	}

	candidates := s.engine.Build(snaps, start, end)
	keywords := make([][]string, len(accounts))
	for i, a := range accounts {
		keywords[i] = opportunity.AccountKeywords(a)
	}

	outcomes := make([]clusterOutcome, len(candidates))
	errs := runIsolated(ctx, len(candidates), s.opts.Concurrency, func(ctx context.Context, i int) error {
		out, err := s.syncCluster(ctx, candidates[i], accounts, keywords, end)
		outcomes[i] = out
		return err
	})

	result := domain.SyncResult{
		SourceCount: len(snaps),
		WindowStart: start,
		WindowEnd:   end,
	}
	for i, out := range outcomes {
		if errs[i] != nil {
			s.logger.Warn("cluster upsert failed", "fingerprint", candidates[i].Fingerprint, "err", errs[i])
		}
		if out.upserted {
			result.ClustersUpserted++
		}
		result.OpportunitiesUpserted += out.touched
		result.SkippedAccounts += out.skipped
		result.FailedUpserts += out.failed
	}

	s.metrics.ObserveSync(result, time.Since(started))
	s.logger.Info("sync done",
		"clusters", result.ClustersUpserted,
		"opportunities", result.OpportunitiesUpserted,
		"skipped_accounts", result.SkippedAccounts,
		"failed", result.FailedUpserts,
		"snapshots", result.SourceCount,
	)
	return result, nil
}

func (s *Syncer) syncCluster(ctx context.Context, candidate domain.TopicCluster, accounts []domain.Account, keywords [][]string, now time.Time) (clusterOutcome, error) {
	var out clusterOutcome

	cluster, err := s.clusters.UpsertCluster(ctx, candidate)
	if err != nil {
		out.failed++
		return out, fmt.Errorf("upsert cluster: %w", err)
	}
	out.upserted = true

	for i, account := range accounts {
		res, ok := opportunity.Evaluate(cluster, keywords[i], now)
		if !ok {
			out.skipped++
			continue
		}

		touched, err := s.upsertOpportunity(ctx, cluster, account.ID, res)
		if err != nil {
			out.failed++
			s.logger.Warn("opportunity upsert failed", "cluster_id", cluster.ID, "account_id", account.ID, "err", err)
			continue
		}
		if touched {
			out.touched++
		}
	}
	return out, nil
}

// upsertOpportunity creates a qualifying opportunity or refreshes an existing
// one. Refresh never moves a non-NEW status back to NEW.
func (s *Syncer) upsertOpportunity(ctx context.Context, cluster domain.TopicCluster, accountID string, res opportunity.Result) (bool, error) {
	opp := domain.Opportunity{
		TopicClusterID: cluster.ID,
		AccountID:      accountID,
		Score:          res.Score,
		Reasons:        res.Reasons,
		Status:         domain.OpportunityNew,
		ExpiresAt:      opportunity.ExpiresAt(cluster),
	}

	_, err := s.opportunities.FindOpportunity(ctx, cluster.ID, accountID)
	switch {
	case err == nil:
		return true, s.opportunities.RefreshOpportunity(ctx, opp)
	case !errors.Is(err, domain.ErrNotFound):
		return false, fmt.Errorf("find opportunity: %w", err)
	}

	if res.Score < s.opts.MinScore {
		return false, nil
	}

	opp.ID = uuid.NewString()
	created, err := s.opportunities.CreateOpportunity(ctx, opp)
	if err != nil {
		return false, fmt.Errorf("create opportunity: %w", err)
	}
	if !created {
		// lost a race with a concurrent pass
		return true, s.opportunities.RefreshOpportunity(ctx, opp)
	}
	return true, nil
}

// OpportunityPage is one page of ranked opportunities.
type OpportunityPage struct {
	Items      []domain.Opportunity
	Pagination domain.Pagination
}

// ListOpportunities returns opportunities ordered by score, newest first on ties.
func (s *Syncer) ListOpportunities(ctx context.Context, filter domain.OpportunityFilter) (OpportunityPage, error) {
	filter.Page, filter.PageSize = domain.NormalizePage(filter.Page, filter.PageSize)
	items, total, err := s.opportunities.ListOpportunities(ctx, filter)
	if err != nil {
		return OpportunityPage{}, fmt.Errorf("list opportunities: %w", err)
	}
	return OpportunityPage{
		Items:      items,
		Pagination: domain.NewPagination(filter.Page, filter.PageSize, total),
	}, nil
}

func componentLogger(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger.With("component", name)
}
