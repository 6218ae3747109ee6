package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPipeline/internal/domain"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestSaveSnapshotItemUpsertsContentThenSnapshot(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)
	captured := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	heat := 1200.0

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO trend_contents .* ON CONFLICT \\(platform, title, url\\)").
		WithArgs(sqlmock.AnyArg(), "weibo", "芯片新规", "https://s.weibo.com/1", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("content-1"))
	mock.ExpectExec("INSERT INTO trend_snapshots").
		WithArgs("content-1", 3, sqlmock.AnyArg(), captured).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.SaveSnapshotItem(context.Background(), "weibo", domain.TrendItem{
		Title: "芯片新规", URL: "https://s.weibo.com/1", Rank: 3, HeatValue: &heat,
	}, captured)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSnapshotItemRejectsEmptyTitle(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	err := repo.SaveSnapshotItem(context.Background(), "weibo", domain.TrendItem{Rank: 1}, time.Now())
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSnapshotsKeepsMissingHeatNil(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	mock.ExpectQuery("SELECT c.platform, c.title, c.url, s.rank, s.heat_value, s.captured_at FROM trend_snapshots s JOIN trend_contents c .+ ORDER BY s.captured_at DESC").
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"platform", "title", "url", "rank", "heat_value", "captured_at"}).
			AddRow("douyin", "b", "", 2, nil, end).
			AddRow("weibo", "a", "", 1, 99.5, start))

	snaps, err := repo.ListSnapshots(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Nil(t, snaps[0].HeatValue)
	require.NotNil(t, snaps[1].HeatValue)
	assert.Equal(t, 99.5, *snaps[1].HeatValue)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveAccountsGroupsCategories(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM accounts a LEFT JOIN account_categories ac").
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "platform", "is_active", "cid", "cname", "keywords"}).
			AddRow("a1", "硬核科技", "weixin", true, "c1", "科技", "{芯片,AI}").
			AddRow("a1", "硬核科技", "weixin", true, "c2", "财经", "{}").
			AddRow("a2", "空白号", "weixin", true, nil, nil, nil))

	accounts, err := repo.ListActiveAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.Len(t, accounts[0].Categories, 2)
	assert.Equal(t, []string{"芯片", "AI"}, accounts[0].Categories[0].Keywords)
	assert.Equal(t, "财经", accounts[0].Categories[1].Name)
	assert.Empty(t, accounts[1].Categories)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountAndProfileNotFound(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM accounts a").WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "platform", "is_active", "cid", "cname", "keywords"}))
	mock.ExpectQuery("SELECT profile FROM account_profiles").WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetAccount(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetProfile(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOpportunityReportsConflict(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)
	opp := domain.Opportunity{ID: "o1", TopicClusterID: "c1", AccountID: "a1", Score: 60, Status: domain.OpportunityNew}

	mock.ExpectExec("INSERT INTO opportunities .* ON CONFLICT \\(topic_cluster_id, account_id\\) DO NOTHING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO opportunities").
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.CreateOpportunity(context.Background(), opp)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateOpportunity(context.Background(), opp)
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshOpportunityGatesStatusInSQL(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)
	expires := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE opportunities SET score = \\$1, reasons = \\$2, expires_at = \\$3, status = CASE WHEN status = \\$4 THEN \\$5 ELSE status END").
		WithArgs(70, sqlmock.AnyArg(), expires, "NEW", "NEW", "a1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE opportunities").
		WillReturnResult(sqlmock.NewResult(0, 0))

	opp := domain.Opportunity{TopicClusterID: "c1", AccountID: "a1", Score: 70, Reasons: []string{"hot:40.0"}, Status: domain.OpportunityNew, ExpiresAt: expires}
	require.NoError(t, repo.RefreshOpportunity(context.Background(), opp))

	err := repo.RefreshOpportunity(context.Background(), opp)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListOpportunitiesAttachesRelations(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM opportunities o WHERE o.account_id = \\$1").
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery("ORDER BY o.score DESC, o.created_at DESC LIMIT 20 OFFSET 20").
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "topic_cluster_id", "account_id", "score", "reasons", "status", "expires_at", "created_at", "updated_at",
			"title", "keywords", "resonance_count", "growth_score", "latest_snapshot_at", "name", "platform",
		}).AddRow("o21", "c1", "a1", 50, "{hot:10.0,momentum}", "NEW", now, now, now,
			"芯片新规", "{芯片}", 2, 12.5, now, "硬核科技", "weixin"))

	items, total, err := repo.ListOpportunities(context.Background(), domain.OpportunityFilter{AccountID: "a1", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"hot:10.0", "momentum"}, items[0].Reasons)
	require.NotNil(t, items[0].Cluster)
	assert.Equal(t, "c1", items[0].Cluster.ID)
	assert.Equal(t, 2, items[0].Cluster.ResonanceCount)
	require.NotNil(t, items[0].Account)
	assert.Equal(t, "硬核科技", items[0].Account.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJobDecodesNullableColumns(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)
	queued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM publish_jobs WHERE id = \\$1").
		WithArgs("j1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "draft_id", "account_id", "provider", "status", "delivery_stage", "attempt", "external_id",
			"error_message", "request_payload", "response_payload", "queued_at", "started_at", "finished_at",
		}).AddRow("j1", "d1", "a1", "wechat", "QUEUED", "draftbox", 0, "", "", []byte(`{"title":"t"}`), nil, queued, nil, nil))

	job, err := repo.GetJob(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobQueued, job.Status)
	assert.JSONEq(t, `{"title":"t"}`, string(job.RequestPayload))
	assert.Nil(t, job.ResponsePayload)
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.FinishedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDraftStatusMissingRow(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE drafts SET status = \\$1").
		WithArgs("READY", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateDraftStatus(context.Background(), "missing", domain.DraftStatusReady)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListMetricsSummaryAndPage(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)
	at := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE\\(SUM\\(impressions\\), 0\\)").
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"count", "i", "r", "l", "s", "c", "b", "ctr"}).
			AddRow(2, 300, 120, 10, 4, 2, 1, 0.05))
	mock.ExpectQuery("FROM performance_metrics WHERE \\(account_id = \\$1\\) ORDER BY collected_at DESC LIMIT 20 OFFSET 0").
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "account_id", "opportunity_id", "draft_id", "publish_job_id", "impressions", "reads",
			"likes", "shares", "comments", "bookmarks", "ctr", "collected_at",
		}).AddRow("m1", "a1", "o1", "d1", "j1", 200, 80, 6, 3, 1, 1, 0.04, at).
			AddRow("m2", "a1", "o2", "d2", "j2", 100, 40, 4, 1, 1, 0, 0.06, at.Add(-time.Hour)))

	page, err := repo.ListMetrics(context.Background(), domain.MetricFilter{AccountID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, int64(120), page.Summary.Reads)
	assert.InDelta(t, 0.05, page.Summary.CTR, 1e-9)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Pagination.Total)
	assert.False(t, page.Pagination.HasNext)
	require.NoError(t, mock.ExpectationsWereMet())
}
