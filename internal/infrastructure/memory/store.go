// Package memory is an in-process implementation of every repository port.
// It backs the service when no database is configured and drives use case tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/ports"
)

var (
	_ ports.SnapshotSource        = (*Store)(nil)
	_ ports.SnapshotWriter        = (*Store)(nil)
	_ ports.AccountStore          = (*Store)(nil)
	_ ports.ProfileRepository     = (*Store)(nil)
	_ ports.ClusterRepository     = (*Store)(nil)
	_ ports.OpportunityRepository = (*Store)(nil)
	_ ports.DraftRepository       = (*Store)(nil)
	_ ports.PublishJobRepository  = (*Store)(nil)
	_ ports.MetricRepository      = (*Store)(nil)
)

type contentKey struct {
	platform string
	title    string
	url      string
}

type pairKey struct {
	clusterID string
	accountID string
}

// Store keeps all pipeline state in maps guarded by one mutex.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	contents  map[contentKey]string
	snapshots []domain.TrendSnapshot

	accounts map[string]domain.Account
	profiles map[string]domain.AccountProfile

	clusters      map[string]domain.TopicCluster
	byFingerprint map[string]string

	opportunities map[string]domain.Opportunity
	byPair        map[pairKey]string

	drafts  map[string]domain.Draft
	jobs    map[string]domain.PublishJob
	metrics []domain.PerformanceMetric
}

// New returns an empty store; now defaults to time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:           now,
		contents:      map[contentKey]string{},
		accounts:      map[string]domain.Account{},
		profiles:      map[string]domain.AccountProfile{},
		clusters:      map[string]domain.TopicCluster{},
		byFingerprint: map[string]string{},
		opportunities: map[string]domain.Opportunity{},
		byPair:        map[pairKey]string{},
		drafts:        map[string]domain.Draft{},
		jobs:          map[string]domain.PublishJob{},
	}
}

// PutAccount registers or replaces an account.
func (s *Store) PutAccount(account domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
}

// AddSnapshots appends raw snapshots.
func (s *Store) AddSnapshots(snaps ...domain.TrendSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snaps...)
}

func (s *Store) ListSnapshots(_ context.Context, start, end time.Time) ([]domain.TrendSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.TrendSnapshot
	for _, snap := range s.snapshots {
		if snap.CapturedAt.Before(start) || snap.CapturedAt.After(end) {
			continue
		}
		out = append(out, snap)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CapturedAt.After(out[j].CapturedAt)
	})
	return out, nil
}

func (s *Store) SaveSnapshotItem(_ context.Context, platform string, item domain.TrendItem, capturedAt time.Time) error {
	if item.Title == "" {
		return fmt.Errorf("save snapshot: empty title: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := contentKey{platform: platform, title: item.Title, url: item.URL}
	if _, ok := s.contents[key]; !ok {
		s.contents[key] = uuid.NewString()
	}
	s.snapshots = append(s.snapshots, domain.TrendSnapshot{
		Platform:   platform,
		Title:      item.Title,
		URL:        item.URL,
		Rank:       item.Rank,
		HeatValue:  item.HeatValue,
		CapturedAt: capturedAt,
	})
	return nil
}

func (s *Store) ListActiveAccounts(_ context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if a.IsActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	return a, nil
}

func (s *Store) GetProfile(_ context.Context, accountID string) (domain.AccountProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[accountID]
	if !ok {
		return domain.AccountProfile{}, fmt.Errorf("profile %s: %w", accountID, domain.ErrNotFound)
	}
	return p, nil
}

func (s *Store) SaveProfile(_ context.Context, profile domain.AccountProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.AccountID] = profile
	return nil
}

func (s *Store) UpsertCluster(_ context.Context, cluster domain.TopicCluster) (domain.TopicCluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if id, ok := s.byFingerprint[cluster.Fingerprint]; ok {
		existing := s.clusters[id]
		cluster.ID = existing.ID
		cluster.CreatedAt = existing.CreatedAt
	} else {
		cluster.ID = uuid.NewString()
		cluster.CreatedAt = now
		s.byFingerprint[cluster.Fingerprint] = cluster.ID
	}
	cluster.UpdatedAt = now
	s.clusters[cluster.ID] = cluster
	return cluster, nil
}

func (s *Store) GetCluster(_ context.Context, id string) (domain.TopicCluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clusters[id]
	if !ok {
		return domain.TopicCluster{}, fmt.Errorf("cluster %s: %w", id, domain.ErrNotFound)
	}
	return c, nil
}

func (s *Store) FindOpportunity(_ context.Context, clusterID, accountID string) (domain.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPair[pairKey{clusterID, accountID}]
	if !ok {
		return domain.Opportunity{}, fmt.Errorf("opportunity %s/%s: %w", clusterID, accountID, domain.ErrNotFound)
	}
	return s.opportunities[id], nil
}

func (s *Store) CreateOpportunity(_ context.Context, opp domain.Opportunity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{opp.TopicClusterID, opp.AccountID}
	if _, ok := s.byPair[key]; ok {
		return false, nil
	}
	if opp.ID == "" {
		opp.ID = uuid.NewString()
	}
	now := s.now()
	opp.CreatedAt, opp.UpdatedAt = now, now
	opp.Reasons = append([]string(nil), opp.Reasons...)
	s.opportunities[opp.ID] = opp
	s.byPair[key] = opp.ID
	return true, nil
}

func (s *Store) RefreshOpportunity(_ context.Context, opp domain.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byPair[pairKey{opp.TopicClusterID, opp.AccountID}]
	if !ok {
		return fmt.Errorf("refresh opportunity: %w", domain.ErrNotFound)
	}
	existing := s.opportunities[id]
	existing.Score = opp.Score
	existing.Reasons = append([]string(nil), opp.Reasons...)
	existing.ExpiresAt = opp.ExpiresAt
	existing.Status = domain.NextOpportunityStatus(existing.Status, opp.Status)
	existing.UpdatedAt = s.now()
	s.opportunities[id] = existing
	return nil
}

func (s *Store) GetOpportunity(_ context.Context, id string) (domain.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	opp, ok := s.opportunities[id]
	if !ok {
		return domain.Opportunity{}, fmt.Errorf("opportunity %s: %w", id, domain.ErrNotFound)
	}
	return s.withRelations(opp), nil
}

func (s *Store) UpdateOpportunityStatus(_ context.Context, id string, status domain.OpportunityStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opp, ok := s.opportunities[id]
	if !ok {
		return fmt.Errorf("opportunity %s: %w", id, domain.ErrNotFound)
	}
	opp.Status = status
	opp.UpdatedAt = s.now()
	s.opportunities[id] = opp
	return nil
}

func (s *Store) ListOpportunities(_ context.Context, filter domain.OpportunityFilter) ([]domain.Opportunity, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Opportunity
	for _, opp := range s.opportunities {
		if filter.AccountID != "" && opp.AccountID != filter.AccountID {
			continue
		}
		if filter.Status != "" && opp.Status != filter.Status {
			continue
		}
		matched = append(matched, opp)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Score != matched[j].Score {
			return matched[i].Score > matched[j].Score
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	_, size := domain.NormalizePage(filter.Page, filter.PageSize)
	offset := domain.Offset(filter.Page, filter.PageSize)
	if offset >= total {
		return []domain.Opportunity{}, total, nil
	}
	page := matched[offset:min(total, offset+size)]

	out := make([]domain.Opportunity, 0, len(page))
	for _, opp := range page {
		out = append(out, s.withRelations(opp))
	}
	return out, total, nil
}

func (s *Store) withRelations(opp domain.Opportunity) domain.Opportunity {
	if c, ok := s.clusters[opp.TopicClusterID]; ok {
		opp.Cluster = &c
	}
	if a, ok := s.accounts[opp.AccountID]; ok {
		opp.Account = &a
	}
	return opp
}

func (s *Store) CreateDraft(_ context.Context, draft domain.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[draft.ID]; ok {
		return fmt.Errorf("draft %s already exists: %w", draft.ID, domain.ErrInvalidInput)
	}
	now := s.now()
	draft.CreatedAt, draft.UpdatedAt = now, now
	s.drafts[draft.ID] = cloneDraft(draft)
	return nil
}

func (s *Store) GetDraft(_ context.Context, id string) (domain.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drafts[id]
	if !ok {
		return domain.Draft{}, fmt.Errorf("draft %s: %w", id, domain.ErrNotFound)
	}
	return cloneDraft(d), nil
}

func (s *Store) UpdateDraftStatus(_ context.Context, id string, status domain.DraftStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok {
		return fmt.Errorf("draft %s: %w", id, domain.ErrNotFound)
	}
	d.Status = status
	d.UpdatedAt = s.now()
	s.drafts[id] = d
	return nil
}

func (s *Store) UpdateDraftMetadata(_ context.Context, id string, metadata domain.DraftMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok {
		return fmt.Errorf("draft %s: %w", id, domain.ErrNotFound)
	}
	d.Metadata = metadata
	d.UpdatedAt = s.now()
	s.drafts[id] = cloneDraft(d)
	return nil
}

// cloneDraft deep-copies a draft, metadata included.
func cloneDraft(d domain.Draft) domain.Draft {
	d.Outline = append([]string(nil), d.Outline...)
	raw, err := json.Marshal(d.Metadata)
	if err == nil {
		var md domain.DraftMetadata
		if json.Unmarshal(raw, &md) == nil {
			d.Metadata = md
		}
	}
	return d
}

func (s *Store) CreateJob(_ context.Context, job domain.PublishJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("publish job %s already exists: %w", job.ID, domain.ErrInvalidInput)
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *Store) GetJob(_ context.Context, id string) (domain.PublishJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return domain.PublishJob{}, fmt.Errorf("publish job %s: %w", id, domain.ErrNotFound)
	}
	return j, nil
}

func (s *Store) UpdateJob(_ context.Context, job domain.PublishJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("publish job %s: %w", job.ID, domain.ErrNotFound)
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *Store) CreateMetric(_ context.Context, metric domain.PerformanceMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, metric)
	return nil
}

func (s *Store) ListMetrics(_ context.Context, filter domain.MetricFilter) (domain.MetricPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.PerformanceMetric
	for _, m := range s.metrics {
		if filter.AccountID != "" && m.AccountID != filter.AccountID {
			continue
		}
		if filter.From != nil && m.CollectedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && m.CollectedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, m)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CollectedAt.After(matched[j].CollectedAt) })

	var summary domain.MetricSummary
	for _, m := range matched {
		summary.Impressions += m.Impressions
		summary.Reads += m.Reads
		summary.Likes += m.Likes
		summary.Shares += m.Shares
		summary.Comments += m.Comments
		summary.Bookmarks += m.Bookmarks
		summary.CTR += m.CTR
	}
	if len(matched) > 0 {
		summary.CTR /= float64(len(matched))
	}

	total := len(matched)
	_, size := domain.NormalizePage(filter.Page, filter.PageSize)
	offset := domain.Offset(filter.Page, filter.PageSize)
	items := []domain.PerformanceMetric{}
	if offset < total {
		items = append(items, matched[offset:min(total, offset+size)]...)
	}

	return domain.MetricPage{
		Items:      items,
		Summary:    summary,
		Pagination: domain.NewPagination(filter.Page, filter.PageSize, total),
	}, nil
}
