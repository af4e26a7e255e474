// Package app wires the review service components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/config"
	"github.com/bizrank/review-service/internal/achievements"
	"github.com/bizrank/review-service/internal/analysis"
	"github.com/bizrank/review-service/internal/database"
	"github.com/bizrank/review-service/internal/handlers"
	providerhttp "github.com/bizrank/review-service/internal/http"
	"github.com/bizrank/review-service/internal/http/ratelimit"
	"github.com/bizrank/review-service/internal/jobs"
	"github.com/bizrank/review-service/internal/places"
	"github.com/bizrank/review-service/internal/publisher"
	"github.com/bizrank/review-service/internal/ranking"
	"github.com/bizrank/review-service/internal/reports"
	"github.com/bizrank/review-service/internal/resilience"
	"github.com/bizrank/review-service/internal/reviews"
	"github.com/bizrank/review-service/internal/storage"
	"github.com/bizrank/review-service/internal/storage/memory"
	"github.com/bizrank/review-service/internal/sweepers"
	"github.com/bizrank/review-service/internal/syncqueue"
	"github.com/bizrank/review-service/internal/taskqueue"
	"github.com/bizrank/review-service/internal/types"
	"github.com/bizrank/review-service/internal/workers"
)

// Store is everything the service persists. Both the Postgres store and the
// in-memory store implement it.
type Store interface {
	taskqueue.Store
	syncqueue.Store
	ranking.Store
	achievements.Store
	reports.ArchiveStore
	reviews.ReviewStore
	workers.ReviewStore
	handlers.BusinessDirectory
	jobs.RunStore
	PutBusiness(ctx context.Context, b types.Business) error
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*database.Store)(nil)
)

// Options select the runtime backends
type Options struct {
	// Memory keeps all state in process instead of Postgres
	Memory bool
}

// App holds the wired components
type App struct {
	Config       *config.Config
	Store        Store
	Tasks        *taskqueue.Queue
	Syncs        *syncqueue.Queue
	Rankings     *ranking.Engine
	Achievements *achievements.Engine
	Analyzer     *analysis.Analyzer
	Places       *places.Resolver // nil without a maps key
	Publisher    publisher.Publisher
	Reports      *reports.Service
	Pipeline     *workers.Pipeline
	Worker       *workers.Worker
	SyncJob      *workers.SyncJob
	Pool         *syncqueue.Pool
	Sweeper      *sweepers.QueueSweeper
	Scheduler    *jobs.Scheduler

	metricSink *providerhttp.AsyncSink
	closers    []func() error
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	logger     *zerolog.Logger
}

// New connects the store and builds every component
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, opts Options) (*App, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	a := &App{Config: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close() //nolint:errcheck
		}
	}()

	if err := a.openStore(ctx, opts); err != nil {
		return nil, err
	}

	a.Tasks = taskqueue.New(a.Store, logger)
	a.Syncs = syncqueue.New(a.Store, cfg.Sync.Ceiling, logger)
	a.Rankings = ranking.NewEngine(a.Store, a.Store, logger)

	catalog, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	a.Achievements = achievements.NewEngine(catalog, a.Store, a.Store, logger)
	a.Analyzer = newAnalyzer(cfg.OpenAI, logger)

	if cfg.Maps.APIKey != "" {
		client, err := places.NewClient(cfg.Maps.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create maps client: %w", err)
		}
		limiter := ratelimit.NewRateLimiter(ratelimit.Config{
			RequestsPerSecond: cfg.Maps.RequestsPerSecond,
			Burst:             1,
			MaxAttempts:       1,
		})
		a.Places = places.NewResolver(client, limiter, logger)
	}

	a.Publisher = publisher.Nop{}
	if cfg.RabbitMQ.URL != "" {
		mq, err := publisher.NewRabbitMQ(cfg.RabbitMQ, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		a.Publisher = mq
		a.closers = append(a.closers, mq.Close)
	}

	files, err := storage.NewLocal(cfg.Storage.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open report storage: %w", err)
	}
	a.Reports = reports.NewService(a.Rankings, files, a.Store, logger)

	a.buildWorkers(logger)

	a.Scheduler = jobs.NewScheduler(logger).WithStore(a.Store)
	if err := jobs.RegisterServiceJobs(a.Scheduler, jobs.ServiceDeps{
		Businesses:   a.Store,
		Reviews:      a.Store,
		Tasks:        a.Tasks,
		Syncs:        a.Syncs,
		Rankings:     a.Rankings,
		Achievements: a.Achievements,
		Reports:      a.Reports,
		Cleaner:      jobs.NewCleaner(a.Tasks, a.Syncs, a.Reports, cfg.Cleanup, logger),
	}, logger); err != nil {
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}
	ok = true
	return a, nil
}

func (a *App) openStore(ctx context.Context, opts Options) error {
	if opts.Memory {
		a.logger.Warn().Msg("Using in-memory store, state is lost on exit")
		a.Store = memory.New()
		return nil
	}

	dbURL := a.Config.Database.URL
	if dbURL == "" {
		dbURL = config.GetDatabaseURL()
	}
	if dbURL == "" {
		return errors.New("DATABASE_URL not set")
	}
	if err := database.Connect(ctx, dbURL, a.Config.Database.PoolOptions()); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.closers = append(a.closers, func() error { database.Close(); return nil })

	if err := database.Migrate(ctx, database.Pool()); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	a.logger.Info().Msg("Database connected")
	a.Store = database.NewStore(database.Pool())
	return nil
}

func (a *App) buildWorkers(logger *zerolog.Logger) {
	cfg := a.Config

	a.metricSink = providerhttp.NewAsyncSink(providerhttp.PrometheusSink{}, 256, logger)
	client := providerhttp.NewRetryableClient(providerhttp.Config{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: cfg.Provider.Timeout,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.Provider.RequestsPerSecond,
			Burst:             cfg.Provider.Burst,
			MaxAttempts:       cfg.Provider.MaxAttempts,
			BaseDelayMs:       cfg.Provider.BaseDelayMs,
			NetworkDelayMs:    cfg.Provider.NetworkDelayMs,
		},
	}, a.metricSink, logger)

	a.SyncJob = workers.NewSyncJob(
		reviews.NewFetcher(client, cfg.Provider.Endpoint, logger),
		reviews.NewImporter(a.Store, logger),
		a.Tasks,
		logger,
	).WithMaxReviews(cfg.Provider.MaxReviews)
	if a.Places != nil {
		a.SyncJob.WithPlaces(a.Places)
	}
	a.Pool = syncqueue.NewPool(a.Syncs, cfg.Sync.PoolSize, cfg.Sync.JobTimeout, a.SyncJob.Run, logger)

	a.Pipeline = workers.NewPipeline(workers.PipelineDeps{
		Queue:        a.Tasks,
		Reviews:      a.Store,
		Businesses:   a.Store,
		Analyzer:     a.Analyzer,
		Rankings:     a.Rankings,
		Achievements: a.Achievements,
		Publisher:    a.Publisher,
	}, logger)

	host, _ := os.Hostname()
	a.Worker = workers.New(a.Tasks, workers.WorkerConfig{
		WorkerID:    host,
		PollDelay:   cfg.Workers.PollDelay,
		TaskTimeout: cfg.Workers.TaskTimeout,
	}, logger)
	a.Pipeline.Register(a.Worker)

	a.Sweeper = sweepers.NewQueueSweeper(a.Tasks, a.Syncs, cfg.Sweeper.Interval, cfg.Sweeper.StuckTimeout, logger)
}

// API returns the HTTP handlers over the wired components
func (a *App) API() *handlers.API {
	return handlers.NewAPI(handlers.Deps{
		Rankings:     a.Rankings,
		Achievements: a.Achievements,
		Syncs:        a.Syncs,
		Tasks:        a.Tasks,
		Jobs:         a.Scheduler,
		Businesses:   a.Store,
		Reports:      a.Reports,
	}, a.logger)
}

// Start runs the lanes, the sync pool, the sweeper and the scheduler in the
// background
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)

	a.Worker.Start(ctx)
	a.Scheduler.Start(ctx)

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.Pool.Run(ctx, a.Config.Sync.PollInterval)
	}()
	go func() {
		defer a.wg.Done()
		a.Sweeper.Start(ctx)
	}()
	a.logger.Info().Int("sync_ceiling", a.Syncs.Ceiling()).Msg("Background processing started")
}

// Stop halts background processing and waits for in-flight work
func (a *App) Stop() {
	if a.cancel == nil {
		return
	}
	a.Scheduler.Stop()
	a.Sweeper.Stop()
	a.Worker.Stop()
	a.cancel()
	a.wg.Wait()
	a.logger.Info().Msg("Background processing stopped")
}

// Close releases the broker, metric dispatcher and database connections
func (a *App) Close() error {
	if a.metricSink != nil {
		a.metricSink.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func loadCatalog(path string) (*achievements.Catalog, error) {
	if path == "" {
		return achievements.DefaultCatalog()
	}
	catalog, err := achievements.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievement catalog: %w", err)
	}
	return catalog, nil
}

// newAnalyzer uses the generative backend when a key is configured, behind
// a circuit breaker, with the heuristic as fallback
func newAnalyzer(cfg config.OpenAIConfig, logger *zerolog.Logger) *analysis.Analyzer {
	if !cfg.Enabled() {
		return analysis.NewAnalyzer(nil, nil, nil, logger)
	}
	oa := analysis.OpenAIConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	breaker := resilience.NewCircuitBreaker("openai", resilience.DefaultConfig(), logger)
	return analysis.NewAnalyzer(analysis.NewOpenAIStrategy(analysis.NewChatClient(oa), oa), nil, breaker, logger)
}
