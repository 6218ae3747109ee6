package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"TrendPipeline/internal/config"
	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/httpapi"
	"TrendPipeline/internal/infrastructure/cache"
	"TrendPipeline/internal/infrastructure/llm"
	"TrendPipeline/internal/infrastructure/memory"
	"TrendPipeline/internal/infrastructure/parser"
	"TrendPipeline/internal/infrastructure/scheduler"
	"TrendPipeline/internal/infrastructure/storage"
	"TrendPipeline/internal/infrastructure/wechat"
	"TrendPipeline/internal/logging"
	"TrendPipeline/internal/metrics"
	"TrendPipeline/internal/ports"
	"TrendPipeline/internal/profile"
	"TrendPipeline/internal/risk"
	"TrendPipeline/internal/scanner"
	"TrendPipeline/internal/usecase"
)

// repositories is satisfied by both the Postgres repository and the memory store.
type repositories interface {
	ports.SnapshotSource
	ports.SnapshotWriter
	ports.AccountStore
	ports.ProfileRepository
	ports.ClusterRepository
	ports.OpportunityRepository
	ports.DraftRepository
	ports.PublishJobRepository
	ports.MetricRepository
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db    *sql.DB
	redis *redis.Client

	recorder  *metrics.Recorder
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	server    *http.Server
}

// OpenDatabase opens the Postgres pool and verifies the connection.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is required")
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// New builds the application. Without a database DSN every repository is
// served from memory; without a Redis address hot lists are not cached.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger, recorder: metrics.New()}

	repos, err := a.openRepositories(ctx)
	if err != nil {
		return nil, err
	}

	var trendCache ports.TrendCache
	if cfg.Redis.Addr != "" {
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		trendCache = cache.NewRedisTrendCache(client, cfg.Redis.TrendTTL)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewTianAPIScanner(nil))
	registry.Register(parser.NewHTMLScanner(nil))
	source := parser.NewStrategySource(registry, cfg.Sources.Items, cfg.Sources.TianAPIKey, trendCache,
		baseLogger.With("component", "source"))

	policy, err := domain.ParseRiskPolicy(cfg.Pipeline.RiskPolicy)
	if err != nil {
		a.Close()
		return nil, err
	}

	generator, err := llm.NewGenerator(ctx, cfg.LLM, baseLogger.With("component", "llm"))
	if err != nil {
		a.Close()
		return nil, err
	}

	ingestor := usecase.NewIngestor(usecase.IngestDeps{
		Fetcher:     source,
		Writer:      repos,
		Metrics:     a.recorder,
		Logger:      baseLogger,
		Concurrency: cfg.Pipeline.IngestConcurrency,
	})
	syncer := usecase.NewSyncer(usecase.SyncDeps{
		Snapshots:     repos,
		Accounts:      repos,
		Clusters:      repos,
		Opportunities: repos,
		Metrics:       a.recorder,
		Logger:        baseLogger,
		Options: usecase.SyncOptions{
			MinScore:           cfg.Pipeline.MinScore,
			DefaultWindowHours: cfg.Pipeline.DefaultWindowHours,
			MinWindowHours:     cfg.Pipeline.MinWindowHours,
			MaxWindowHours:     cfg.Pipeline.MaxWindowHours,
			Concurrency:        cfg.Pipeline.SyncConcurrency,
			Keywords:           cfg.Pipeline.Keywords,
		},
	})
	drafts := usecase.NewDraftService(usecase.DraftDeps{
		Opportunities: repos,
		Clusters:      repos,
		Accounts:      repos,
		Drafts:        repos,
		Profiles:      profile.NewService(repos, repos, baseLogger.With("component", "profile")),
		Generator:     generator,
		Evaluator:     risk.NewEvaluator(),
		Policy:        policy,
		Metrics:       a.recorder,
		Logger:        baseLogger,
	})
	publish := usecase.NewPublishService(usecase.PublishDeps{
		Drafts:    repos,
		Jobs:      repos,
		Metrics:   repos,
		Publisher: wechat.NewPublisher(cfg.Publisher),
		Provider:  cfg.Publisher.Provider,
		Recorder:  a.recorder,
		Logger:    baseLogger,
	})

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Ingestor:    ingestor,
		Syncer:      syncer,
		WindowHours: cfg.Pipeline.DefaultWindowHours,
		Logger:      baseLogger,
	})
	if cfg.Scheduler.Enabled {
		driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(),
			cfg.Scheduler.RunOnStart, baseLogger.With("component", "cron"))
		a.scheduler = usecase.NewScheduler(driver, a.pipeline, baseLogger)
	}

	handler := httpapi.NewHandler(httpapi.Services{
		Trends:      ingestor,
		Syncer:      syncer,
		Drafts:      drafts,
		Publisher:   publish,
		Performance: usecase.NewPerformanceService(repos),
	})
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		APISecret:  cfg.Auth.APISecret,
		SyncSecret: cfg.Auth.SyncSecret,
		Metrics:    a.recorder.Handler(),
		Logger:     baseLogger,
	})
	a.server = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	return a, nil
}

func (a *Application) openRepositories(ctx context.Context) (repositories, error) {
	if a.cfg.Database.DSN == "" {
		a.logger.Warn("database dsn not set, using in-memory store")
		return memory.New(time.Now), nil
	}
	db, err := OpenDatabase(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	a.db = db
	return storage.NewPostgresRepository(db), nil
}

// Serve runs the HTTP server and the optional cron schedule until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		a.logger.Info("shutting down")
	}

	timeout := a.cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	//nolint:contextcheck // ctx is already cancelled here
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.scheduler != nil {
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			a.logger.Warn("scheduler stop", "err", err)
		}
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return errors.Join(serveErr, fmt.Errorf("server shutdown error: %w", err))
	}
	return serveErr
}

// RunOnce performs a single ingestion and sync cycle.
func (a *Application) RunOnce(ctx context.Context) (usecase.CycleResult, error) {
	now := time.Now().In(a.cfg.Scheduler.Location())
	return a.pipeline.RunCycle(ctx, now)
}

// Close releases the database and Redis connections.
func (a *Application) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", "err", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", "err", err)
		}
	}
}
