package domain

import (
	"fmt"
	"strings"
	"time"
)

// OpportunityStatus is the lifecycle state of an opportunity.
type OpportunityStatus string

const (
	OpportunityNew       OpportunityStatus = "NEW"
	OpportunitySelected  OpportunityStatus = "SELECTED"
	OpportunityExpired   OpportunityStatus = "EXPIRED"
	OpportunityDiscarded OpportunityStatus = "DISCARDED"
)

// ParseOpportunityStatus accepts the closed status set, case-insensitively.
func ParseOpportunityStatus(raw string) (OpportunityStatus, error) {
	switch s := OpportunityStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case OpportunityNew, OpportunitySelected, OpportunityExpired, OpportunityDiscarded:
		return s, nil
	default:
		return "", fmt.Errorf("opportunity status %q: %w", raw, ErrInvalidInput)
	}
}

// NextOpportunityStatus applies the one-way gate: only an opportunity that is
// still NEW takes the proposed status; any other status is kept as is.
func NextOpportunityStatus(current, proposed OpportunityStatus) OpportunityStatus {
	if current == OpportunityNew {
		return proposed
	}
	return current
}

// Opportunity pairs one topic cluster with one account.
type Opportunity struct {
	ID             string            `json:"id"`
	TopicClusterID string            `json:"topicClusterId"`
	AccountID      string            `json:"accountId"`
	Score          int               `json:"score"`
	Reasons        []string          `json:"reasons"`
	Status         OpportunityStatus `json:"status"`
	ExpiresAt      time.Time         `json:"expiresAt"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`

	// Populated by list queries only.
	Cluster *TopicCluster `json:"cluster,omitempty"`
	Account *Account      `json:"account,omitempty"`
}

// OpportunityFilter narrows opportunity listings.
type OpportunityFilter struct {
	AccountID string
	Status    OpportunityStatus
	Page      int
	PageSize  int
}

// SyncResult reports what an opportunity sync pass touched.
type SyncResult struct {
	ClustersUpserted      int       `json:"clustersUpserted"`
	OpportunitiesUpserted int       `json:"opportunitiesUpserted"`
	SkippedAccounts       int       `json:"skippedAccounts"`
	FailedUpserts         int       `json:"failedUpserts"`
	SourceCount           int       `json:"sourceCount"`
	WindowStart           time.Time `json:"windowStart"`
	WindowEnd             time.Time `json:"windowEnd"`
}
