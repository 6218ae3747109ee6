package domain

import (
	"encoding/json"
	"time"
)

// PublishJobStatus is the state of one publish attempt lineage.
type PublishJobStatus string

const (
	JobQueued   PublishJobStatus = "QUEUED"
	JobRunning  PublishJobStatus = "RUNNING"
	JobReview   PublishJobStatus = "REVIEW"
	JobSuccess  PublishJobStatus = "SUCCESS"
	JobFailed   PublishJobStatus = "FAILED"
	JobCanceled PublishJobStatus = "CANCELED"
)

// DeliveryStage tells whether a publish landed in the draft box or went live.
type DeliveryStage string

const (
	StageDraftbox  DeliveryStage = "draftbox"
	StagePublished DeliveryStage = "published"
)

// PublishJob tracks a draft's publish attempts.
type PublishJob struct {
	ID              string
	DraftID         string
	AccountID       string
	Provider        string
	Status          PublishJobStatus
	DeliveryStage   DeliveryStage
	Attempt         int
	ExternalID      string
	ErrorMessage    string
	RequestPayload  json.RawMessage
	ResponsePayload json.RawMessage
	QueuedAt        time.Time
	StartedAt       *time.Time
	FinishedAt      *time.Time
}

// PublishJobResult is the outward view of a publish job.
type PublishJobResult struct {
	ID            string           `json:"id"`
	Status        PublishJobStatus `json:"status"`
	DeliveryStage DeliveryStage    `json:"deliveryStage"`
	Attempt       int              `json:"attempt"`
	ExternalID    string           `json:"externalId,omitempty"`
	ErrorMessage  string           `json:"errorMessage,omitempty"`
}

// Result converts the job into its outward view.
func (j PublishJob) Result() PublishJobResult {
	stage := j.DeliveryStage
	if stage != StagePublished {
		stage = StageDraftbox
	}
	return PublishJobResult{
		ID:            j.ID,
		Status:        j.Status,
		DeliveryStage: stage,
		Attempt:       j.Attempt,
		ExternalID:    j.ExternalID,
		ErrorMessage:  j.ErrorMessage,
	}
}

// PublishRequest is handed to the publishing transport.
type PublishRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	AccountID string `json:"accountId"`
}

// PublishResponse is what the publishing transport reports back.
type PublishResponse struct {
	ExternalID    string
	DeliveryStage DeliveryStage
	Response      json.RawMessage
}

// PerformanceMetric records engagement for a live publication.
type PerformanceMetric struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"accountId"`
	OpportunityID string    `json:"opportunityId"`
	DraftID       string    `json:"draftId"`
	PublishJobID  string    `json:"publishJobId"`
	Impressions   int64     `json:"impressions"`
	Reads         int64     `json:"reads"`
	Likes         int64     `json:"likes"`
	Shares        int64     `json:"shares"`
	Comments      int64     `json:"comments"`
	Bookmarks     int64     `json:"bookmarks"`
	CTR           float64   `json:"ctr"`
	CollectedAt   time.Time `json:"collectedAt"`
}

// MetricFilter narrows performance listings.
type MetricFilter struct {
	AccountID string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// MetricSummary sums engagement over a filtered metric set.
type MetricSummary struct {
	Impressions int64   `json:"impressions"`
	Reads       int64   `json:"reads"`
	Likes       int64   `json:"likes"`
	Shares      int64   `json:"shares"`
	Comments    int64   `json:"comments"`
	Bookmarks   int64   `json:"bookmarks"`
	CTR         float64 `json:"ctr"`
}

// MetricPage is one page of performance metrics with the filter-wide summary.
type MetricPage struct {
	Items      []PerformanceMetric `json:"items"`
	Summary    MetricSummary       `json:"summary"`
	Pagination Pagination          `json:"pagination"`
}
