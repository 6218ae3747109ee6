package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/ports"
)

// PostgresRepository persists the pipeline state into Postgres.
type PostgresRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var (
	_ ports.SnapshotSource        = (*PostgresRepository)(nil)
	_ ports.SnapshotWriter        = (*PostgresRepository)(nil)
	_ ports.AccountStore          = (*PostgresRepository)(nil)
	_ ports.ProfileRepository     = (*PostgresRepository)(nil)
	_ ports.ClusterRepository     = (*PostgresRepository)(nil)
	_ ports.OpportunityRepository = (*PostgresRepository)(nil)
	_ ports.DraftRepository       = (*PostgresRepository)(nil)
	_ ports.PublishJobRepository  = (*PostgresRepository)(nil)
	_ ports.MetricRepository      = (*PostgresRepository)(nil)
)

// runner is satisfied by both *sql.DB and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *PostgresRepository) exec(ctx context.Context, on runner, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return on.ExecContext(ctx, query, args...)
}

func (r *PostgresRepository) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.db.QueryContext(ctx, query, args...)
}

func (r *PostgresRepository) queryRow(ctx context.Context, on runner, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return on.QueryRowContext(ctx, query, args...), nil
}

// notFound maps sql.ErrNoRows onto domain.ErrNotFound.
func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

func requireAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
	}
	return nil
}

func closeRows(rows *sql.Rows, err error) error {
	if rowsErr := rows.Err(); rowsErr != nil && err == nil {
		err = fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close rows: %w", closeErr)
	}
	return err
}

// SaveSnapshotItem upserts the content row for (platform, title, url) and
// appends a snapshot pointing at it.
func (r *PostgresRepository) SaveSnapshotItem(ctx context.Context, platform string, item domain.TrendItem, capturedAt time.Time) error {
	if item.Title == "" {
		return fmt.Errorf("save snapshot: empty title: %w", domain.ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row, err := r.queryRow(ctx, tx, r.sb.Insert("trend_contents").
		Columns("id", "platform", "title", "url", "description").
		Values(uuid.NewString(), platform, item.Title, item.URL, item.Description).
		Suffix("ON CONFLICT (platform, title, url) DO UPDATE SET description = EXCLUDED.description RETURNING id"))
	if err != nil {
		return err
	}
	var contentID string
	if err := row.Scan(&contentID); err != nil {
		return fmt.Errorf("upsert content: %w", err)
	}

	var heat sql.NullFloat64
	if item.HeatValue != nil {
		heat = sql.NullFloat64{Float64: *item.HeatValue, Valid: true}
	}
	if _, err := r.exec(ctx, tx, r.sb.Insert("trend_snapshots").
		Columns("content_id", "rank", "heat_value", "captured_at").
		Values(contentID, item.Rank, heat, capturedAt)); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns snapshots captured inside [start, end], newest first.
func (r *PostgresRepository) ListSnapshots(ctx context.Context, start, end time.Time) ([]domain.TrendSnapshot, error) {
	rows, err := r.query(ctx, r.sb.
		Select("c.platform", "c.title", "c.url", "s.rank", "s.heat_value", "s.captured_at").
		From("trend_snapshots s").
		Join("trend_contents c ON c.id = s.content_id").
		Where(sq.GtOrEq{"s.captured_at": start}).
		Where(sq.LtOrEq{"s.captured_at": end}).
		OrderBy("s.captured_at DESC"))
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}

	var out []domain.TrendSnapshot
	for rows.Next() {
		var (
			snap domain.TrendSnapshot
			heat sql.NullFloat64
		)
		if err := rows.Scan(&snap.Platform, &snap.Title, &snap.URL, &snap.Rank, &heat, &snap.CapturedAt); err != nil {
			return nil, closeRows(rows, fmt.Errorf("scan snapshot: %w", err))
		}
		if heat.Valid {
			h := heat.Float64
			snap.HeatValue = &h
		}
		out = append(out, snap)
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) ListActiveAccounts(ctx context.Context) ([]domain.Account, error) {
	return r.loadAccounts(ctx, sq.Eq{"a.is_active": true})
}

func (r *PostgresRepository) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	accounts, err := r.loadAccounts(ctx, sq.Eq{"a.id": id})
	if err != nil {
		return domain.Account{}, err
	}
	if len(accounts) == 0 {
		return domain.Account{}, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	return accounts[0], nil
}

func (r *PostgresRepository) loadAccounts(ctx context.Context, where sq.Sqlizer) ([]domain.Account, error) {
	rows, err := r.query(ctx, r.sb.
		Select("a.id", "a.name", "a.platform", "a.is_active", "c.id", "c.name", "c.keywords").
		From("accounts a").
		LeftJoin("account_categories ac ON ac.account_id = a.id").
		LeftJoin("categories c ON c.id = ac.category_id").
		Where(where).
		OrderBy("a.id", "c.name"))
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}

	var out []domain.Account
	for rows.Next() {
		var (
			acc            domain.Account
			catID, catName sql.NullString
			keywords       pq.StringArray
		)
		if err := rows.Scan(&acc.ID, &acc.Name, &acc.Platform, &acc.IsActive, &catID, &catName, &keywords); err != nil {
			return nil, closeRows(rows, fmt.Errorf("scan account: %w", err))
		}
		if n := len(out); n == 0 || out[n-1].ID != acc.ID {
			out = append(out, acc)
		}
		if catID.Valid {
			last := &out[len(out)-1]
			last.Categories = append(last.Categories, domain.Category{
				ID:       catID.String,
				Name:     catName.String,
				Keywords: []string(keywords),
			})
		}
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) GetProfile(ctx context.Context, accountID string) (domain.AccountProfile, error) {
	row, err := r.queryRow(ctx, r.db, r.sb.Select("profile").From("account_profiles").Where(sq.Eq{"account_id": accountID}))
	if err != nil {
		return domain.AccountProfile{}, err
	}
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return domain.AccountProfile{}, notFound(err, "profile", accountID)
	}
	var profile domain.AccountProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return domain.AccountProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	profile.AccountID = accountID
	return profile, nil
}

func (r *PostgresRepository) SaveProfile(ctx context.Context, profile domain.AccountProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = r.exec(ctx, r.db, r.sb.Insert("account_profiles").
		Columns("account_id", "profile", "updated_at").
		Values(profile.AccountID, raw, sq.Expr("NOW()")).
		Suffix("ON CONFLICT (account_id) DO UPDATE SET profile = EXCLUDED.profile, updated_at = NOW()"))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
