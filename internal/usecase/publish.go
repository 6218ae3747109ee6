package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/metrics"
	"TrendPipeline/internal/ports"
)

const (
	DefaultProvider = "wechat"

	blockedMessage = "Draft is blocked by risk policy."
	reviewMessage  = "Draft requires manual review before publish."
)

// PublishDeps wires the publish job state machine to its collaborators.
type PublishDeps struct {
	Drafts    ports.DraftRepository
	Jobs      ports.PublishJobRepository
	Metrics   ports.MetricRepository
	Publisher ports.Publisher
	Provider  string
	Recorder  *metrics.Recorder
	Logger    *slog.Logger
	Now       func() time.Time
}

// PublishService drives drafts through publish jobs.
type PublishService struct {
	drafts    ports.DraftRepository
	jobs      ports.PublishJobRepository
	metrics   ports.MetricRepository
	publisher ports.Publisher
	provider  string
	recorder  *metrics.Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewPublishService constructs the publish use case.
func NewPublishService(deps PublishDeps) *PublishService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	provider := deps.Provider
	if provider == "" {
		provider = DefaultProvider
	}
	return &PublishService{
		drafts:    deps.Drafts,
		jobs:      deps.Jobs,
		metrics:   deps.Metrics,
		publisher: deps.Publisher,
		provider:  provider,
		recorder:  deps.Recorder,
		logger:    componentLogger(deps.Logger, "publish"),
		now:       now,
	}
}

// CreateJob enqueues a publish job for draftID and runs it unless autoRun is false.
func (s *PublishService) CreateJob(ctx context.Context, draftID string, autoRun bool) (domain.PublishJobResult, error) {
	draft, err := s.drafts.GetDraft(ctx, draftID)
	if err != nil {
		return domain.PublishJobResult{}, fmt.Errorf("get draft: %w", err)
	}
	if draft.Status == domain.DraftStatusSubmitted || draft.Status == domain.DraftStatusPublished {
		return domain.PublishJobResult{}, fmt.Errorf("draft %s: %w", draftID, domain.ErrDraftAlreadyDelivered)
	}

	payload, err := json.Marshal(domain.PublishRequest{Title: draft.Title, Content: draft.Content, AccountID: draft.AccountID})
	if err != nil {
		return domain.PublishJobResult{}, fmt.Errorf("encode request payload: %w", err)
	}

	job := domain.PublishJob{
		ID:             uuid.NewString(),
		DraftID:        draft.ID,
		AccountID:      draft.AccountID,
		Provider:       s.provider,
		Status:         domain.JobQueued,
		DeliveryStage:  domain.StageDraftbox,
		RequestPayload: payload,
		QueuedAt:       s.now(),
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return domain.PublishJobResult{}, fmt.Errorf("create publish job: %w", err)
	}
	s.logger.Info("publish job queued", "job_id", job.ID, "draft_id", draft.ID, "auto_run", autoRun)

	if !autoRun {
		return job.Result(), nil
	}
	return s.Process(ctx, job.ID)
}

// Process executes a queued job. BLOCKED and REVIEW drafts park the job in
// REVIEW without calling the transport; a SUCCESS job is returned unchanged.
func (s *PublishService) Process(ctx context.Context, jobID string) (domain.PublishJobResult, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return domain.PublishJobResult{}, fmt.Errorf("get publish job: %w", err)
	}
	if job.Status == domain.JobSuccess {
		return job.Result(), nil
	}

	draft, err := s.drafts.GetDraft(ctx, job.DraftID)
	if err != nil {
		return domain.PublishJobResult{}, fmt.Errorf("get draft: %w", err)
	}

	switch draft.Status {
	case domain.DraftStatusBlocked:
		finished := s.now()
		job.Status = domain.JobReview
		job.ErrorMessage = blockedMessage
		job.FinishedAt = &finished
		return s.finish(ctx, job)
	case domain.DraftStatusReview:
		job.Status = domain.JobReview
		job.ErrorMessage = reviewMessage
		return s.finish(ctx, job)
	}

	started := s.now()
	job.Status = domain.JobRunning
	job.Attempt++
	job.ErrorMessage = ""
	job.StartedAt = &started
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return domain.PublishJobResult{}, fmt.Errorf("mark job running: %w", err)
	}

	resp, pubErr := s.publisher.Publish(ctx, domain.PublishRequest{
		Title:     draft.Title,
		Content:   draft.Content,
		AccountID: draft.AccountID,
	})
	finished := s.now()
	job.FinishedAt = &finished

	if pubErr != nil {
		job.Status = domain.JobFailed
		job.ErrorMessage = pubErr.Error()
		s.logger.Warn("publish attempt failed", "job_id", job.ID, "attempt", job.Attempt, "err", pubErr)
		return s.finish(ctx, job)
	}

	stage := domain.StageDraftbox
	if resp.DeliveryStage == domain.StagePublished {
		stage = domain.StagePublished
	}
	job.Status = domain.JobSuccess
	job.DeliveryStage = stage
	job.ExternalID = resp.ExternalID
	job.ResponsePayload = resp.Response
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return domain.PublishJobResult{}, fmt.Errorf("mark job succeeded: %w", err)
	}

	draftStatus := domain.DraftStatusSubmitted
	if stage == domain.StagePublished {
		draftStatus = domain.DraftStatusPublished
	}
	if err := s.drafts.UpdateDraftStatus(ctx, draft.ID, draftStatus); err != nil {
		return domain.PublishJobResult{}, fmt.Errorf("update draft status: %w", err)
	}

	if stage == domain.StagePublished && s.metrics != nil {
		err := s.metrics.CreateMetric(ctx, domain.PerformanceMetric{
			ID:            uuid.NewString(),
			AccountID:     draft.AccountID,
			OpportunityID: draft.OpportunityID,
			DraftID:       draft.ID,
			PublishJobID:  job.ID,
			CollectedAt:   finished,
		})
		if err != nil {
			return domain.PublishJobResult{}, fmt.Errorf("create performance metric: %w", err)
		}
	}

	s.recorder.ObservePublishJob(job.Status)
	s.logger.Info("publish job finished", "job_id", job.ID, "status", job.Status, "stage", stage, "external_id", job.ExternalID)
	return job.Result(), nil
}

func (s *PublishService) finish(ctx context.Context, job domain.PublishJob) (domain.PublishJobResult, error) {
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return domain.PublishJobResult{}, fmt.Errorf("update publish job: %w", err)
	}
	s.recorder.ObservePublishJob(job.Status)
	s.logger.Info("publish job finished", "job_id", job.ID, "status", job.Status, "attempt", job.Attempt)
	return job.Result(), nil
}

// Retry requeues a FAILED or REVIEW job and runs it again. A REVIEW draft is
// forced to READY only when allowReview is set.
func (s *PublishService) Retry(ctx context.Context, jobID string, allowReview bool) (domain.PublishJobResult, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return domain.PublishJobResult{}, fmt.Errorf("get publish job: %w", err)
	}
	if job.Status == domain.JobSuccess {
		return domain.PublishJobResult{}, fmt.Errorf("retry job %s: %w", jobID, domain.ErrJobAlreadySucceeded)
	}

	draft, err := s.drafts.GetDraft(ctx, job.DraftID)
	if err != nil {
		return domain.PublishJobResult{}, fmt.Errorf("get draft: %w", err)
	}
	switch {
	case draft.Status == domain.DraftStatusBlocked:
		return domain.PublishJobResult{}, fmt.Errorf("retry job %s: %w", jobID, domain.ErrDraftBlocked)
	case draft.Status == domain.DraftStatusReview && !allowReview:
		return domain.PublishJobResult{}, fmt.Errorf("retry job %s: %w", jobID, domain.ErrReviewRequired)
	case draft.Status == domain.DraftStatusReview:
		if err := s.drafts.UpdateDraftStatus(ctx, draft.ID, domain.DraftStatusReady); err != nil {
			return domain.PublishJobResult{}, fmt.Errorf("force draft ready: %w", err)
		}
	}

	job.Status = domain.JobQueued
	job.ErrorMessage = ""
	job.FinishedAt = nil
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return domain.PublishJobResult{}, fmt.Errorf("requeue publish job: %w", err)
	}
	s.logger.Info("publish job requeued", "job_id", job.ID, "allow_review", allowReview)

	return s.Process(ctx, job.ID)
}
