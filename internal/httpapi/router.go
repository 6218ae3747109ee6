package httpapi

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SecretHeader carries the shared pipeline secret.
const SecretHeader = "x-pipeline-secret"

// RouterConfig holds the secrets guarding the API and the metrics endpoint.
type RouterConfig struct {
	APISecret  string
	SyncSecret string
	Metrics    http.Handler
	Logger     *slog.Logger
}

// NewRouter builds a gin engine with all pipeline routes registered.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger))
	SetupRoutes(router, h, cfg)
	return router
}

// SetupRoutes configures all API routes.
// Sync triggers use the sync secret, everything else under /api the API secret.
func SetupRoutes(router *gin.Engine, h *Handler, cfg RouterConfig) {
	router.GET("/healthz", h.Health)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	syncAuth := requireSecret("PIPELINE_SYNC_SECRET", cfg.SyncSecret)
	apiAuth := requireSecret("PIPELINE_API_SECRET", cfg.APISecret)

	api := router.Group("/api")
	api.POST("/trends/sync", syncAuth, h.SyncTrends)
	api.POST("/pipeline/opportunities/sync", syncAuth, h.SyncOpportunities)

	protected := api.Group("", apiAuth)
	protected.GET("/opportunities", h.ListOpportunities)
	protected.POST("/drafts/generate", h.GenerateDraft)
	protected.GET("/drafts/:id", h.GetDraft)
	protected.POST("/drafts/:id/regenerate", h.RegenerateDraft)
	protected.POST("/drafts/:id/assets/plan", h.PlanAssets)
	protected.POST("/publish/wechat", h.PublishWechat)
	protected.POST("/publish/jobs/:id/retry", h.RetryJob)
	protected.GET("/performance", h.ListPerformance)
}

// requireSecret rejects requests whose secret header does not match. A blank
// expected secret is a deployment error and fails every request.
func requireSecret(name, expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			respondError(c, http.StatusInternalServerError, name+"_NOT_CONFIGURED", name+" is not configured.")
			return
		}
		got := c.GetHeader(SecretHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized request.")
			return
		}
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		return func(c *gin.Context) { c.Next() }
	}
	logger = logger.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
