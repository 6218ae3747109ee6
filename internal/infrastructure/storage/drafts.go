package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"TrendPipeline/internal/domain"
)

func (r *PostgresRepository) CreateDraft(ctx context.Context, draft domain.Draft) error {
	metadata, err := json.Marshal(draft.Metadata)
	if err != nil {
		return fmt.Errorf("encode draft metadata: %w", err)
	}
	parent := sql.NullString{String: draft.ParentDraftID, Valid: draft.ParentDraftID != ""}

	_, err = r.exec(ctx, r.db, r.sb.Insert("drafts").
		Columns("id", "opportunity_id", "account_id", "parent_draft_id", "regeneration_index", "title", "outline",
			"content", "template_version", "model", "risk_level", "risk_score", "status", "metadata").
		Values(draft.ID, draft.OpportunityID, draft.AccountID, parent, draft.RegenerationIndex, draft.Title,
			pq.Array(draft.Outline), draft.Content, draft.TemplateVersion, draft.Model, draft.RiskLevel,
			draft.RiskScore, draft.Status, metadata))
	if err != nil {
		return fmt.Errorf("insert draft: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetDraft(ctx context.Context, id string) (domain.Draft, error) {
	row, err := r.queryRow(ctx, r.db, r.sb.
		Select("id", "opportunity_id", "account_id", "parent_draft_id", "regeneration_index", "title", "outline",
			"content", "template_version", "model", "risk_level", "risk_score", "status", "metadata",
			"created_at", "updated_at").
		From("drafts").
		Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Draft{}, err
	}

	var (
		d        domain.Draft
		parent   sql.NullString
		outline  pq.StringArray
		metadata []byte
	)
	err = row.Scan(&d.ID, &d.OpportunityID, &d.AccountID, &parent, &d.RegenerationIndex, &d.Title, &outline,
		&d.Content, &d.TemplateVersion, &d.Model, &d.RiskLevel, &d.RiskScore, &d.Status, &metadata,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return domain.Draft{}, notFound(err, "draft", id)
	}
	d.ParentDraftID = parent.String
	d.Outline = []string(outline)
	if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
		return domain.Draft{}, fmt.Errorf("decode draft metadata: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) UpdateDraftStatus(ctx context.Context, id string, status domain.DraftStatus) error {
	res, err := r.exec(ctx, r.db, r.sb.Update("drafts").
		Set("status", status).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("update draft status: %w", err)
	}
	return requireAffected(res, "draft", id)
}

func (r *PostgresRepository) UpdateDraftMetadata(ctx context.Context, id string, metadata domain.DraftMetadata) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode draft metadata: %w", err)
	}
	res, err := r.exec(ctx, r.db, r.sb.Update("drafts").
		Set("metadata", raw).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("update draft metadata: %w", err)
	}
	return requireAffected(res, "draft", id)
}
