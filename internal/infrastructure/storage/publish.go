package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"TrendPipeline/internal/domain"
)

// nullJSON stores an empty payload as SQL NULL.
func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func (r *PostgresRepository) CreateJob(ctx context.Context, job domain.PublishJob) error {
	_, err := r.exec(ctx, r.db, r.sb.Insert("publish_jobs").
		Columns("id", "draft_id", "account_id", "provider", "status", "delivery_stage", "attempt",
			"request_payload", "queued_at").
		Values(job.ID, job.DraftID, job.AccountID, job.Provider, job.Status, job.DeliveryStage, job.Attempt,
			nullJSON(job.RequestPayload), job.QueuedAt))
	if err != nil {
		return fmt.Errorf("insert publish job: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetJob(ctx context.Context, id string) (domain.PublishJob, error) {
	row, err := r.queryRow(ctx, r.db, r.sb.
		Select("id", "draft_id", "account_id", "provider", "status", "delivery_stage", "attempt", "external_id",
			"error_message", "request_payload", "response_payload", "queued_at", "started_at", "finished_at").
		From("publish_jobs").
		Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.PublishJob{}, err
	}

	var (
		j                 domain.PublishJob
		request, response []byte
		started, finished sql.NullTime
	)
	err = row.Scan(&j.ID, &j.DraftID, &j.AccountID, &j.Provider, &j.Status, &j.DeliveryStage, &j.Attempt,
		&j.ExternalID, &j.ErrorMessage, &request, &response, &j.QueuedAt, &started, &finished)
	if err != nil {
		return domain.PublishJob{}, notFound(err, "publish job", id)
	}
	j.RequestPayload = request
	j.ResponsePayload = response
	j.StartedAt = timePtr(started)
	j.FinishedAt = timePtr(finished)
	return j, nil
}

func (r *PostgresRepository) UpdateJob(ctx context.Context, job domain.PublishJob) error {
	res, err := r.exec(ctx, r.db, r.sb.Update("publish_jobs").
		SetMap(map[string]any{
			"status":           job.Status,
			"delivery_stage":   job.DeliveryStage,
			"attempt":          job.Attempt,
			"external_id":      job.ExternalID,
			"error_message":    job.ErrorMessage,
			"response_payload": nullJSON(job.ResponsePayload),
			"started_at":       nullTime(job.StartedAt),
			"finished_at":      nullTime(job.FinishedAt),
		}).
		Where(sq.Eq{"id": job.ID}))
	if err != nil {
		return fmt.Errorf("update publish job: %w", err)
	}
	return requireAffected(res, "publish job", job.ID)
}

func (r *PostgresRepository) CreateMetric(ctx context.Context, metric domain.PerformanceMetric) error {
	if metric.ID == "" {
		metric.ID = uuid.NewString()
	}
	_, err := r.exec(ctx, r.db, r.sb.Insert("performance_metrics").
		Columns("id", "account_id", "opportunity_id", "draft_id", "publish_job_id", "impressions", "reads",
			"likes", "shares", "comments", "bookmarks", "ctr", "collected_at").
		Values(metric.ID, metric.AccountID, metric.OpportunityID, metric.DraftID, metric.PublishJobID,
			metric.Impressions, metric.Reads, metric.Likes, metric.Shares, metric.Comments, metric.Bookmarks,
			metric.CTR, metric.CollectedAt))
	if err != nil {
		return fmt.Errorf("insert metric: %w", err)
	}
	return nil
}

// ListMetrics returns one page of metrics, newest first, with sums and the
// average CTR over every row the filter matches.
func (r *PostgresRepository) ListMetrics(ctx context.Context, filter domain.MetricFilter) (domain.MetricPage, error) {
	where := sq.And{}
	if filter.AccountID != "" {
		where = append(where, sq.Eq{"account_id": filter.AccountID})
	}
	if filter.From != nil {
		where = append(where, sq.GtOrEq{"collected_at": *filter.From})
	}
	if filter.To != nil {
		where = append(where, sq.LtOrEq{"collected_at": *filter.To})
	}

	row, err := r.queryRow(ctx, r.db, r.sb.
		Select("COUNT(*)",
			"COALESCE(SUM(impressions), 0)", "COALESCE(SUM(reads), 0)", "COALESCE(SUM(likes), 0)",
			"COALESCE(SUM(shares), 0)", "COALESCE(SUM(comments), 0)", "COALESCE(SUM(bookmarks), 0)",
			"COALESCE(AVG(ctr), 0)").
		From("performance_metrics").
		Where(where))
	if err != nil {
		return domain.MetricPage{}, err
	}
	var (
		total int
		sum   domain.MetricSummary
	)
	if err := row.Scan(&total, &sum.Impressions, &sum.Reads, &sum.Likes, &sum.Shares, &sum.Comments,
		&sum.Bookmarks, &sum.CTR); err != nil {
		return domain.MetricPage{}, fmt.Errorf("summarize metrics: %w", err)
	}

	_, size := domain.NormalizePage(filter.Page, filter.PageSize)
	rows, err := r.query(ctx, r.sb.
		Select("id", "account_id", "opportunity_id", "draft_id", "publish_job_id", "impressions", "reads",
			"likes", "shares", "comments", "bookmarks", "ctr", "collected_at").
		From("performance_metrics").
		Where(where).
		OrderBy("collected_at DESC").
		Limit(uint64(size)).
		Offset(uint64(domain.Offset(filter.Page, filter.PageSize))))
	if err != nil {
		return domain.MetricPage{}, fmt.Errorf("query metrics: %w", err)
	}

	items := []domain.PerformanceMetric{}
	for rows.Next() {
		var m domain.PerformanceMetric
		if err := rows.Scan(&m.ID, &m.AccountID, &m.OpportunityID, &m.DraftID, &m.PublishJobID, &m.Impressions,
			&m.Reads, &m.Likes, &m.Shares, &m.Comments, &m.Bookmarks, &m.CTR, &m.CollectedAt); err != nil {
			return domain.MetricPage{}, closeRows(rows, fmt.Errorf("scan metric: %w", err))
		}
		items = append(items, m)
	}
	if err := closeRows(rows, nil); err != nil {
		return domain.MetricPage{}, err
	}

	return domain.MetricPage{
		Items:      items,
		Summary:    sum,
		Pagination: domain.NewPagination(filter.Page, filter.PageSize, total),
	}, nil
}
