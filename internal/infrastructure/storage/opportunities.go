package storage

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"TrendPipeline/internal/domain"
)

var clusterColumns = []string{
	"id", "fingerprint", "title", "keywords", "evidence", "resonance_count", "growth_score",
	"persistence_score", "latest_snapshot_at", "window_start", "window_end", "created_at", "updated_at",
}

// UpsertCluster inserts a cluster or overwrites the row holding the same fingerprint.
func (r *PostgresRepository) UpsertCluster(ctx context.Context, cluster domain.TopicCluster) (domain.TopicCluster, error) {
	evidence, err := json.Marshal(cluster.Evidence)
	if err != nil {
		return domain.TopicCluster{}, fmt.Errorf("encode evidence: %w", err)
	}

	row, err := r.queryRow(ctx, r.db, r.sb.Insert("topic_clusters").
		Columns("id", "fingerprint", "title", "keywords", "evidence", "resonance_count", "growth_score",
			"persistence_score", "latest_snapshot_at", "window_start", "window_end").
		Values(uuid.NewString(), cluster.Fingerprint, cluster.Title, pq.Array(cluster.Keywords), evidence,
			cluster.ResonanceCount, cluster.GrowthScore, cluster.PersistenceScore,
			cluster.LatestSnapshotAt, cluster.WindowStart, cluster.WindowEnd).
		Suffix(`ON CONFLICT (fingerprint) DO UPDATE SET
			title = EXCLUDED.title,
			keywords = EXCLUDED.keywords,
			evidence = EXCLUDED.evidence,
			resonance_count = EXCLUDED.resonance_count,
			growth_score = EXCLUDED.growth_score,
			persistence_score = EXCLUDED.persistence_score,
			latest_snapshot_at = EXCLUDED.latest_snapshot_at,
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			updated_at = NOW()
			RETURNING id, created_at, updated_at`))
	if err != nil {
		return domain.TopicCluster{}, err
	}
	if err := row.Scan(&cluster.ID, &cluster.CreatedAt, &cluster.UpdatedAt); err != nil {
		return domain.TopicCluster{}, fmt.Errorf("upsert cluster: %w", err)
	}
	return cluster, nil
}

func (r *PostgresRepository) GetCluster(ctx context.Context, id string) (domain.TopicCluster, error) {
	row, err := r.queryRow(ctx, r.db, r.sb.Select(clusterColumns...).From("topic_clusters").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.TopicCluster{}, err
	}
	var (
		c        domain.TopicCluster
		keywords pq.StringArray
		evidence []byte
	)
	err = row.Scan(&c.ID, &c.Fingerprint, &c.Title, &keywords, &evidence, &c.ResonanceCount, &c.GrowthScore,
		&c.PersistenceScore, &c.LatestSnapshotAt, &c.WindowStart, &c.WindowEnd, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.TopicCluster{}, notFound(err, "cluster", id)
	}
	c.Keywords = []string(keywords)
	if err := json.Unmarshal(evidence, &c.Evidence); err != nil {
		return domain.TopicCluster{}, fmt.Errorf("decode evidence: %w", err)
	}
	return c, nil
}

var opportunityColumns = []string{
	"o.id", "o.topic_cluster_id", "o.account_id", "o.score", "o.reasons", "o.status",
	"o.expires_at", "o.created_at", "o.updated_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOpportunity(row rowScanner, extra ...any) (domain.Opportunity, error) {
	var (
		o       domain.Opportunity
		reasons pq.StringArray
	)
	dest := append([]any{&o.ID, &o.TopicClusterID, &o.AccountID, &o.Score, &reasons, &o.Status,
		&o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Opportunity{}, err
	}
	o.Reasons = []string(reasons)
	return o, nil
}

func (r *PostgresRepository) FindOpportunity(ctx context.Context, clusterID, accountID string) (domain.Opportunity, error) {
	row, err := r.queryRow(ctx, r.db, r.sb.Select(opportunityColumns...).From("opportunities o").
		Where(sq.Eq{"o.topic_cluster_id": clusterID, "o.account_id": accountID}))
	if err != nil {
		return domain.Opportunity{}, err
	}
	o, err := scanOpportunity(row)
	if err != nil {
		return domain.Opportunity{}, notFound(err, "opportunity", clusterID+"/"+accountID)
	}
	return o, nil
}

// CreateOpportunity relies on the (topic_cluster_id, account_id) unique key;
// a conflicting insert affects no rows and reports created=false.
func (r *PostgresRepository) CreateOpportunity(ctx context.Context, opp domain.Opportunity) (bool, error) {
	if opp.ID == "" {
		opp.ID = uuid.NewString()
	}
	res, err := r.exec(ctx, r.db, r.sb.Insert("opportunities").
		Columns("id", "topic_cluster_id", "account_id", "score", "reasons", "status", "expires_at").
		Values(opp.ID, opp.TopicClusterID, opp.AccountID, opp.Score, pq.Array(opp.Reasons), opp.Status, opp.ExpiresAt).
		Suffix("ON CONFLICT (topic_cluster_id, account_id) DO NOTHING"))
	if err != nil {
		return false, fmt.Errorf("insert opportunity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// RefreshOpportunity overwrites score, reasons and expiry. The status column
// only takes the proposed value while it is still NEW.
func (r *PostgresRepository) RefreshOpportunity(ctx context.Context, opp domain.Opportunity) error {
	res, err := r.exec(ctx, r.db, r.sb.Update("opportunities").
		Set("score", opp.Score).
		Set("reasons", pq.Array(opp.Reasons)).
		Set("expires_at", opp.ExpiresAt).
		Set("status", sq.Expr("CASE WHEN status = ? THEN ? ELSE status END", domain.OpportunityNew, opp.Status)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"topic_cluster_id": opp.TopicClusterID, "account_id": opp.AccountID}))
	if err != nil {
		return fmt.Errorf("refresh opportunity: %w", err)
	}
	return requireAffected(res, "opportunity", opp.TopicClusterID+"/"+opp.AccountID)
}

func (r *PostgresRepository) GetOpportunity(ctx context.Context, id string) (domain.Opportunity, error) {
	row, err := r.queryRow(ctx, r.db, r.sb.Select(opportunityColumns...).From("opportunities o").Where(sq.Eq{"o.id": id}))
	if err != nil {
		return domain.Opportunity{}, err
	}
	o, err := scanOpportunity(row)
	if err != nil {
		return domain.Opportunity{}, notFound(err, "opportunity", id)
	}
	return o, nil
}

func (r *PostgresRepository) UpdateOpportunityStatus(ctx context.Context, id string, status domain.OpportunityStatus) error {
	res, err := r.exec(ctx, r.db, r.sb.Update("opportunities").
		Set("status", status).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("update opportunity status: %w", err)
	}
	return requireAffected(res, "opportunity", id)
}

// ListOpportunities returns one page ordered by score then recency, with the
// cluster and account summaries attached, plus the total row count.
func (r *PostgresRepository) ListOpportunities(ctx context.Context, filter domain.OpportunityFilter) ([]domain.Opportunity, int, error) {
	where := sq.Eq{}
	if filter.AccountID != "" {
		where["o.account_id"] = filter.AccountID
	}
	if filter.Status != "" {
		where["o.status"] = filter.Status
	}

	row, err := r.queryRow(ctx, r.db, r.sb.Select("COUNT(*)").From("opportunities o").Where(where))
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count opportunities: %w", err)
	}

	_, size := domain.NormalizePage(filter.Page, filter.PageSize)
	cols := append(append([]string{}, opportunityColumns...),
		"c.title", "c.keywords", "c.resonance_count", "c.growth_score", "c.latest_snapshot_at",
		"a.name", "a.platform")
	rows, err := r.query(ctx, r.sb.Select(cols...).
		From("opportunities o").
		Join("topic_clusters c ON c.id = o.topic_cluster_id").
		Join("accounts a ON a.id = o.account_id").
		Where(where).
		OrderBy("o.score DESC", "o.created_at DESC").
		Limit(uint64(size)).
		Offset(uint64(domain.Offset(filter.Page, filter.PageSize))))
	if err != nil {
		return nil, 0, fmt.Errorf("query opportunities: %w", err)
	}

	out := []domain.Opportunity{}
	for rows.Next() {
		var (
			cluster  domain.TopicCluster
			account  domain.Account
			keywords pq.StringArray
		)
		o, err := scanOpportunity(rows, &cluster.Title, &keywords, &cluster.ResonanceCount, &cluster.GrowthScore,
			&cluster.LatestSnapshotAt, &account.Name, &account.Platform)
		if err != nil {
			return nil, 0, closeRows(rows, fmt.Errorf("scan opportunity: %w", err))
		}
		cluster.ID = o.TopicClusterID
		cluster.Keywords = []string(keywords)
		account.ID = o.AccountID
		o.Cluster, o.Account = &cluster, &account
		out = append(out, o)
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
