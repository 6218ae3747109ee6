// Package httpapi exposes the pipeline operations over HTTP.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/usecase"
)

// TrendIngester pulls the hot lists and stores snapshots.
type TrendIngester interface {
	SyncTrends(ctx context.Context) (domain.TrendSyncResult, error)
}

// OpportunitySyncer clusters recent snapshots and ranks opportunities.
type OpportunitySyncer interface {
	ClampWindow(hours int) int
	Sync(ctx context.Context, windowHours int) (domain.SyncResult, error)
	ListOpportunities(ctx context.Context, filter domain.OpportunityFilter) (usecase.OpportunityPage, error)
}

// DraftGenerator covers draft generation and lookup.
type DraftGenerator interface {
	Generate(ctx context.Context, opportunityID string, opts usecase.GenerateOptions) (domain.DraftGenerationResult, error)
	Regenerate(ctx context.Context, draftID string) (domain.DraftGenerationResult, error)
	PlanAssets(ctx context.Context, draftID string, imageCount int, style string) (domain.AssetPlan, error)
	GetDraft(ctx context.Context, id string) (domain.Draft, error)
}

// JobPublisher enqueues and retries publish jobs.
type JobPublisher interface {
	CreateJob(ctx context.Context, draftID string, autoRun bool) (domain.PublishJobResult, error)
	Retry(ctx context.Context, jobID string, allowReview bool) (domain.PublishJobResult, error)
}

// PerformanceLister pages collected performance metrics.
type PerformanceLister interface {
	List(ctx context.Context, filter domain.MetricFilter) (domain.MetricPage, error)
}

// Handler serves the pipeline routes.
type Handler struct {
	trends      TrendIngester
	syncer      OpportunitySyncer
	drafts      DraftGenerator
	publisher   JobPublisher
	performance PerformanceLister
	now         func() time.Time
}

// Services groups the use cases a Handler dispatches to.
type Services struct {
	Trends      TrendIngester
	Syncer      OpportunitySyncer
	Drafts      DraftGenerator
	Publisher   JobPublisher
	Performance PerformanceLister
}

// NewHandler creates a new handler.
func NewHandler(svc Services) *Handler {
	return &Handler{
		trends:      svc.Trends,
		syncer:      svc.Syncer,
		drafts:      svc.Drafts,
		publisher:   svc.Publisher,
		performance: svc.Performance,
		now:         time.Now,
	}
}

// bindOptionalJSON decodes the body when one is present. An empty body
// leaves dst untouched.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// SyncTrends handles POST /api/trends/sync.
func (h *Handler) SyncTrends(c *gin.Context) {
	res, err := h.trends.SyncTrends(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "TREND_SYNC_FAILED")
		return
	}
	respondOK(c, res)
}

type syncOpportunitiesRequest struct {
	WindowHours *int `json:"windowHours"`
}

// SyncOpportunities handles POST /api/pipeline/opportunities/sync.
func (h *Handler) SyncOpportunities(c *gin.Context) {
	var req syncOpportunitiesRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		req = syncOpportunitiesRequest{}
	}

	hours := 0
	if req.WindowHours != nil {
		hours = *req.WindowHours
		if hours < 1 {
			hours = 1
		}
	}

	res, err := h.syncer.Sync(c.Request.Context(), h.syncer.ClampWindow(hours))
	if err != nil {
		respondServiceError(c, err, "OPPORTUNITY_SYNC_FAILED")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"data":      res,
		"updatedAt": h.now().UTC().Format(time.RFC3339),
	})
}

// ListOpportunities handles GET /api/opportunities.
func (h *Handler) ListOpportunities(c *gin.Context) {
	filter := domain.OpportunityFilter{
		AccountID: strings.TrimSpace(c.Query("accountId")),
		Page:      positiveInt(c.Query("page"), 1),
		PageSize:  positiveInt(c.Query("pageSize"), domain.DefaultPageSize),
	}
	if raw := c.Query("status"); raw != "" {
		status, err := domain.ParseOpportunityStatus(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_STATUS",
				"Invalid status. Supported: NEW, SELECTED, EXPIRED, DISCARDED")
			return
		}
		filter.Status = status
	}

	page, err := h.syncer.ListOpportunities(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err, "OPPORTUNITY_LIST_FAILED")
		return
	}
	items := page.Items
	if items == nil {
		items = []domain.Opportunity{}
	}
	respondOK(c, gin.H{"items": items, "pagination": page.Pagination})
}

type generateDraftRequest struct {
	OpportunityID   string                  `json:"opportunityId"`
	ProfileOverride *domain.ProfileOverride `json:"profileOverride"`
}

// GenerateDraft handles POST /api/drafts/generate.
func (h *Handler) GenerateDraft(c *gin.Context) {
	var req generateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if strings.TrimSpace(req.OpportunityID) == "" {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", "opportunityId is required.")
		return
	}

	res, err := h.drafts.Generate(c.Request.Context(), req.OpportunityID, usecase.GenerateOptions{
		ProfileOverride: req.ProfileOverride,
	})
	if err != nil {
		respondServiceError(c, err, "DRAFT_GENERATION_FAILED")
		return
	}
	respondOK(c, res)
}

// RegenerateDraft handles POST /api/drafts/:id/regenerate.
func (h *Handler) RegenerateDraft(c *gin.Context) {
	res, err := h.drafts.Regenerate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "DRAFT_REGENERATION_FAILED")
		return
	}
	respondOK(c, res)
}

type planAssetsRequest struct {
	ImageCount  int    `json:"imageCount"`
	StylePreset string `json:"stylePreset"`
}

// PlanAssets handles POST /api/drafts/:id/assets/plan.
func (h *Handler) PlanAssets(c *gin.Context) {
	var req planAssetsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	plan, err := h.drafts.PlanAssets(c.Request.Context(), c.Param("id"), req.ImageCount, req.StylePreset)
	if err != nil {
		respondServiceError(c, err, "ASSET_PLAN_FAILED")
		return
	}
	respondOK(c, plan)
}

// GetDraft handles GET /api/drafts/:id.
func (h *Handler) GetDraft(c *gin.Context) {
	draft, err := h.drafts.GetDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "DRAFT_FETCH_FAILED")
		return
	}
	respondOK(c, draft)
}

type publishRequest struct {
	DraftID string `json:"draftId"`
	AutoRun *bool  `json:"autoRun"`
}

// PublishWechat handles POST /api/publish/wechat. autoRun defaults to true.
func (h *Handler) PublishWechat(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if strings.TrimSpace(req.DraftID) == "" {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", "draftId is required.")
		return
	}
	autoRun := true
	if req.AutoRun != nil {
		autoRun = *req.AutoRun
	}

	res, err := h.publisher.CreateJob(c.Request.Context(), req.DraftID, autoRun)
	if err != nil {
		respondServiceError(c, err, "PUBLISH_FAILED")
		return
	}
	respondOK(c, res)
}

type retryRequest struct {
	AllowReview bool `json:"allowReview"`
}

// RetryJob handles POST /api/publish/jobs/:id/retry.
func (h *Handler) RetryJob(c *gin.Context) {
	var req retryRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	res, err := h.publisher.Retry(c.Request.Context(), c.Param("id"), req.AllowReview)
	if err != nil {
		respondServiceError(c, err, "PUBLISH_RETRY_FAILED")
		return
	}
	respondOK(c, res)
}

// ListPerformance handles GET /api/performance.
func (h *Handler) ListPerformance(c *gin.Context) {
	from, okFrom := parseTime(c.Query("from"))
	to, okTo := parseTime(c.Query("to"))
	if !okFrom || !okTo {
		respondError(c, http.StatusBadRequest, "INVALID_DATE",
			"Invalid date format for from/to. Use ISO datetime.")
		return
	}

	page, err := h.performance.List(c.Request.Context(), domain.MetricFilter{
		AccountID: strings.TrimSpace(c.Query("accountId")),
		From:      from,
		To:        to,
		Page:      positiveInt(c.Query("page"), 1),
		PageSize:  positiveInt(c.Query("pageSize"), domain.DefaultPageSize),
	})
	if err != nil {
		respondServiceError(c, err, "PERFORMANCE_LIST_FAILED")
		return
	}
	respondOK(c, page)
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": h.now().UTC().Format(time.RFC3339)})
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// parseTime accepts RFC 3339 or a bare date. Empty input is absent, not invalid.
func parseTime(raw string) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	return nil, false
}
