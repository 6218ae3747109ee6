package ports

import (
	"context"
	"time"

	"TrendPipeline/internal/domain"
)

// SnapshotSource reads immutable trend snapshots captured inside a window.
type SnapshotSource interface {
	ListSnapshots(ctx context.Context, start, end time.Time) ([]domain.TrendSnapshot, error)
}

// SnapshotWriter stores one hot-list item as a snapshot.
type SnapshotWriter interface {
	SaveSnapshotItem(ctx context.Context, platform string, item domain.TrendItem, capturedAt time.Time) error
}

// TrendFetcher pulls current hot lists from every configured platform.
type TrendFetcher interface {
	FetchAll(ctx context.Context) (map[string][]domain.TrendItem, error)
	Platforms() []string
}

// TrendCache keeps recently fetched hot lists per platform.
type TrendCache interface {
	Get(ctx context.Context, platform string) ([]domain.TrendItem, bool, error)
	Set(ctx context.Context, platform string, items []domain.TrendItem) error
}

// AccountStore exposes accounts with their category keyword lists.
type AccountStore interface {
	ListActiveAccounts(ctx context.Context) ([]domain.Account, error)
	GetAccount(ctx context.Context, id string) (domain.Account, error)
}

// ProfileRepository persists account profiles.
type ProfileRepository interface {
	GetProfile(ctx context.Context, accountID string) (domain.AccountProfile, error)
	SaveProfile(ctx context.Context, profile domain.AccountProfile) error
}

// ClusterRepository upserts topic clusters keyed by fingerprint.
type ClusterRepository interface {
	UpsertCluster(ctx context.Context, cluster domain.TopicCluster) (domain.TopicCluster, error)
	GetCluster(ctx context.Context, id string) (domain.TopicCluster, error)
}

// OpportunityRepository stores one opportunity per (cluster, account) pair.
type OpportunityRepository interface {
	FindOpportunity(ctx context.Context, clusterID, accountID string) (domain.Opportunity, error)
	// CreateOpportunity inserts a new row; created is false when the pair already exists.
	CreateOpportunity(ctx context.Context, opp domain.Opportunity) (created bool, err error)
	// RefreshOpportunity overwrites score, reasons and expiry; the status is only
	// applied while the stored status is still NEW.
	RefreshOpportunity(ctx context.Context, opp domain.Opportunity) error
	GetOpportunity(ctx context.Context, id string) (domain.Opportunity, error)
	UpdateOpportunityStatus(ctx context.Context, id string, status domain.OpportunityStatus) error
	ListOpportunities(ctx context.Context, filter domain.OpportunityFilter) ([]domain.Opportunity, int, error)
}

// DraftRepository persists generated drafts.
type DraftRepository interface {
	CreateDraft(ctx context.Context, draft domain.Draft) error
	GetDraft(ctx context.Context, id string) (domain.Draft, error)
	UpdateDraftStatus(ctx context.Context, id string, status domain.DraftStatus) error
	UpdateDraftMetadata(ctx context.Context, id string, metadata domain.DraftMetadata) error
}

// PublishJobRepository persists publish jobs.
type PublishJobRepository interface {
	CreateJob(ctx context.Context, job domain.PublishJob) error
	GetJob(ctx context.Context, id string) (domain.PublishJob, error)
	UpdateJob(ctx context.Context, job domain.PublishJob) error
}

// MetricRepository stores performance metrics for live publications.
type MetricRepository interface {
	CreateMetric(ctx context.Context, metric domain.PerformanceMetric) error
	ListMetrics(ctx context.Context, filter domain.MetricFilter) (domain.MetricPage, error)
}

// TextGenerator produces a draft title, outline and body from a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.GeneratedDraft, error)
}

// Publisher delivers a draft to the outbound publishing transport.
type Publisher interface {
	Publish(ctx context.Context, req domain.PublishRequest) (domain.PublishResponse, error)
}

// Scheduler controls when recurring passes execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
