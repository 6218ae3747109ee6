package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/infrastructure/memory"
	"TrendPipeline/internal/opportunity"
)

func newTestSyncer(store *memory.Store, clock *testClock, opts SyncOptions) *Syncer {
	return NewSyncer(SyncDeps{
		Snapshots:     store,
		Accounts:      store,
		Clusters:      store,
		Opportunities: store,
		Now:           clock.Now,
		Options:       opts,
	})
}

func TestSyncCrossPlatformTopicBecomesOneCluster(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newTestClock()
	store := memory.New(clock.Now)
	seedTechAccount(store)
	seedCrossPlatformTopic(store, clock.Now())

	res, err := newTestSyncer(store, clock, SyncOptions{}).Sync(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, res.ClustersUpserted)
	assert.Equal(t, 1, res.OpportunitiesUpserted)
	assert.Equal(t, 2, res.SourceCount)
	assert.Zero(t, res.SkippedAccounts)
	assert.Equal(t, clock.Now().Add(-2*time.Hour), res.WindowStart)

	items, total, err := store.ListOpportunities(ctx, domain.OpportunityFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	opp := items[0]
	require.NotNil(t, opp.Cluster)
	assert.Equal(t, 2, opp.Cluster.ResonanceCount)
	assert.Equal(t, "芯片新规发布！", opp.Cluster.Title)
	assert.Equal(t, domain.OpportunityNew, opp.Status)
	assert.Contains(t, opp.Reasons, "matched:芯片新规发布")
	assert.Equal(t, opp.Cluster.LatestSnapshotAt.Add(6*time.Hour), opp.ExpiresAt)
	assert.GreaterOrEqual(t, opp.Score, 45)
	assert.LessOrEqual(t, opp.Score, 100)
}

func TestSyncIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newTestClock()
	store := memory.New(clock.Now)
	seedTechAccount(store)
	seedCrossPlatformTopic(store, clock.Now())
	syncer := newTestSyncer(store, clock, SyncOptions{})

	first, err := syncer.Sync(ctx, 2)
	require.NoError(t, err)
	before, _, err := store.ListOpportunities(ctx, domain.OpportunityFilter{})
	require.NoError(t, err)

	second, err := syncer.Sync(ctx, 2)
	require.NoError(t, err)
	after, total, err := store.ListOpportunities(ctx, domain.OpportunityFilter{})
	require.NoError(t, err)

	assert.Equal(t, first.ClustersUpserted, second.ClustersUpserted)
	assert.Equal(t, first.OpportunitiesUpserted, second.OpportunitiesUpserted)
	require.Equal(t, 1, total)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, before[0].TopicClusterID, after[0].TopicClusterID)
	assert.Equal(t, before[0].Cluster.Fingerprint, after[0].Cluster.Fingerprint)
}

func TestSyncNeverRevivesSelectedOpportunity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newTestClock()
	store := memory.New(clock.Now)
	acc := seedTechAccount(store)
	seedCrossPlatformTopic(store, clock.Now())
	syncer := newTestSyncer(store, clock, SyncOptions{})

	_, err := syncer.Sync(ctx, 6)
	require.NoError(t, err)
	items, _, err := store.ListOpportunities(ctx, domain.OpportunityFilter{})
	require.NoError(t, err)
	opp := items[0]

	require.NoError(t, store.UpdateOpportunityStatus(ctx, opp.ID, domain.OpportunitySelected))
	opp.Score = 70
	require.NoError(t, store.RefreshOpportunity(ctx, opp))

	// the topic cools: freshness drops and the recomputed score falls
	clock.Advance(3 * time.Hour)
	_, err = syncer.Sync(ctx, 6)
	require.NoError(t, err)

	got, err := store.GetOpportunity(ctx, opp.ID)
	require.NoError(t, err)
	cluster, err := store.GetCluster(ctx, opp.TopicClusterID)
	require.NoError(t, err)
	want, ok := opportunity.Evaluate(cluster, opportunity.AccountKeywords(acc), clock.Now())
	require.True(t, ok)

	assert.Equal(t, domain.OpportunitySelected, got.Status)
	assert.Equal(t, want.Score, got.Score)
	assert.Less(t, got.Score, 70)
}

func TestSyncRefreshesExistingBelowMinScoreButDoesNotCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newTestClock()
	store := memory.New(clock.Now)
	seedTechAccount(store)
	seedCrossPlatformTopic(store, clock.Now())

	_, err := newTestSyncer(store, clock, SyncOptions{}).Sync(ctx, 2)
	require.NoError(t, err)

	store.AddSnapshots(domain.TrendSnapshot{Platform: "zhihu", Title: "芯片 价格 回落", Rank: 49, CapturedAt: clock.Now().Add(-time.Minute)})

	strict := newTestSyncer(store, clock, SyncOptions{MinScore: 99})
	res, err := strict.Sync(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, res.ClustersUpserted)
	assert.Equal(t, 1, res.OpportunitiesUpserted)
	_, total, err := store.ListOpportunities(ctx, domain.OpportunityFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestSyncSkipsAccountsWithoutCategoryMatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newTestClock()
	store := memory.New(clock.Now)
	seedTechAccount(store)
	store.PutAccount(domain.Account{ID: "acc-sport", Name: "体育", IsActive: true, Categories: []domain.Category{{Keywords: []string{"足球"}}}})
	store.PutAccount(domain.Account{ID: "acc-any", Name: "综合", IsActive: true})
	store.PutAccount(domain.Account{ID: "acc-off", Name: "停用", IsActive: false})
	seedCrossPlatformTopic(store, clock.Now())

	res, err := newTestSyncer(store, clock, SyncOptions{}).Sync(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, res.SkippedAccounts)
	assert.Equal(t, 2, res.OpportunitiesUpserted)

	sport, _, err := store.ListOpportunities(ctx, domain.OpportunityFilter{AccountID: "acc-sport"})
	require.NoError(t, err)
	assert.Empty(t, sport)
}

type failingAccounts struct{ *memory.Store }

func (failingAccounts) ListActiveAccounts(context.Context) ([]domain.Account, error) {
	return nil, errors.New("connection refused")
}

func TestSyncAccountListingFailureIsFatal(t *testing.T) {
	t.Parallel()
	clock := newTestClock()
	store := memory.New(clock.Now)

	syncer := NewSyncer(SyncDeps{
		Snapshots:     store,
		Accounts:      failingAccounts{store},
		Clusters:      store,
		Opportunities: store,
		Now:           clock.Now,
	})
	_, err := syncer.Sync(context.Background(), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list active accounts")
}

type flakyClusters struct {
	*memory.Store
	failTitle string
}

func (f flakyClusters) UpsertCluster(ctx context.Context, c domain.TopicCluster) (domain.TopicCluster, error) {
	if c.Title == f.failTitle {
		return domain.TopicCluster{}, errors.New("deadlock detected")
	}
	return f.Store.UpsertCluster(ctx, c)
}

func TestSyncCountsIsolatedFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newTestClock()
	store := memory.New(clock.Now)
	seedTechAccount(store)
	seedCrossPlatformTopic(store, clock.Now())
	store.AddSnapshots(domain.TrendSnapshot{Platform: "zhihu", Title: "芯片 出口", Rank: 3, CapturedAt: clock.Now()})

	syncer := NewSyncer(SyncDeps{
		Snapshots:     store,
		Accounts:      store,
		Clusters:      flakyClusters{Store: store, failTitle: "芯片 出口"},
		Opportunities: store,
		Now:           clock.Now,
	})
	res, err := syncer.Sync(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, res.ClustersUpserted)
	assert.Equal(t, 1, res.FailedUpserts)
	assert.Equal(t, 1, res.OpportunitiesUpserted)
}

func TestClampWindow(t *testing.T) {
	t.Parallel()

	s := newTestSyncer(memory.New(nil), newTestClock(), SyncOptions{})
	assert.Equal(t, 2, s.ClampWindow(0))
	assert.Equal(t, 2, s.ClampWindow(-5))
	assert.Equal(t, 1, s.ClampWindow(1))
	assert.Equal(t, 24, s.ClampWindow(100))
	assert.Equal(t, 6, s.ClampWindow(6))
}

func TestListOpportunitiesPagination(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newTestClock()
	store := memory.New(clock.Now)
	for i, score := range []int{50, 80, 60} {
		_, err := store.CreateOpportunity(ctx, domain.Opportunity{
			ID:             string(rune('a' + i)),
			TopicClusterID: string(rune('x' + i)),
			AccountID:      "acc",
			Score:          score,
			Status:         domain.OpportunityNew,
		})
		require.NoError(t, err)
	}

	page, err := newTestSyncer(store, clock, SyncOptions{}).ListOpportunities(ctx, domain.OpportunityFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 50, page.Items[0].Score)
	assert.Equal(t, domain.Pagination{Page: 2, PageSize: 2, Total: 3, TotalPages: 2, HasPrev: true, HasNext: false}, page.Pagination)
}
