package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/margin/internal/analysis"
	"github.com/ternarybob/margin/internal/common"
	"github.com/ternarybob/margin/internal/handlers"
	"github.com/ternarybob/margin/internal/interfaces"
	"github.com/ternarybob/margin/internal/services/scheduler"
	"github.com/ternarybob/margin/internal/services/screener"
	"github.com/ternarybob/margin/internal/storage"
	"github.com/ternarybob/margin/internal/tushare"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// ctx spans the application lifetime; Close cancels it so background
	// work (async screens) winds down with the process.
	ctx    context.Context
	cancel context.CancelFunc

	// Market data
	Provider interfaces.MarketDataProvider

	// Valuation engine
	Analyzer *analysis.GrahamAnalyzer

	// Services
	ScreenerService  *screener.Service
	SchedulerService *scheduler.Service

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	StockHandler     *handlers.StockHandler
	AnalysisHandler  *handlers.AnalysisHandler
	IndustryHandler  *handlers.IndustryHandler
	SchedulerHandler *handlers.SchedulerHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}
	app.ctx, app.cancel = context.WithCancel(context.Background())

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Int("screener_concurrency", cfg.Screener.Concurrency).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	if a.Config.Tushare.Token == "" {
		a.Logger.Warn().Msg("No Tushare token configured, provider calls will be rejected upstream")
	}

	client := tushare.NewClient(
		a.Config.Tushare.Token,
		tushare.WithBaseURL(a.Config.Tushare.BaseURL),
		tushare.WithLogger(a.Logger),
		tushare.WithRateLimit(a.Config.Tushare.RateLimit),
		tushare.WithRetries(a.Config.Tushare.MaxRetries, a.Config.Tushare.RetryDelay),
		tushare.WithHTTPClient(&http.Client{Timeout: a.Config.Tushare.RequestTimeout}),
	)
	a.Provider = tushare.NewFetcher(client, a.Logger)
	a.Logger.Debug().
		Str("base_url", a.Config.Tushare.BaseURL).
		Int("rate_limit", a.Config.Tushare.RateLimit).
		Msg("Market data provider initialized")

	a.Analyzer = analysis.NewGrahamAnalyzer(a.Config.Graham, a.Logger)

	a.ScreenerService = screener.NewService(
		a.Provider,
		a.StorageManager,
		a.Analyzer,
		a.Config.Screener,
		a.Logger,
	)
	a.Logger.Debug().Msg("Screener service initialized")

	a.SchedulerService = scheduler.NewService(a.Config.Scheduler, a.Logger)

	if a.Config.Scheduler.Enabled {
		if err := a.registerScheduledJobs(); err != nil {
			return fmt.Errorf("failed to register scheduled jobs: %w", err)
		}
		if err := a.SchedulerService.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		a.Logger.Debug().Msg("Scheduler disabled by configuration")
	}

	return nil
}

// registerScheduledJobs wires the recurring market jobs onto the scheduler.
func (a *App) registerScheduledJobs() error {
	schedule := a.Config.Scheduler.Schedule

	err := a.SchedulerService.RegisterJob(
		"daily_screen",
		schedule,
		"Full market valuation screen",
		func() error {
			ctx, cancel := newJobContext()
			defer cancel()
			_, err := a.ScreenerService.ScreenAll(ctx)
			return err
		},
	)
	if err != nil {
		return err
	}

	err = a.SchedulerService.RegisterJob(
		"industry_refresh",
		schedule,
		"Refresh industry index snapshots",
		func() error {
			ctx, cancel := newJobContext()
			defer cancel()
			_, err := a.ScreenerService.RefreshIndustries(ctx)
			return err
		},
	)
	if err != nil {
		return err
	}

	return a.SchedulerService.RegisterJob(
		"storage_gc",
		schedule,
		"Storage value-log garbage collection",
		a.StorageManager.Maintain,
	)
}

// newJobContext bounds scheduled runs so a wedged provider cannot hold the
// global job lock forever.
func newJobContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Hour)
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.StockHandler = handlers.NewStockHandler(a.ctx, a.Provider, a.ScreenerService, a.Logger)
	a.AnalysisHandler = handlers.NewAnalysisHandler(a.ScreenerService, a.Logger)
	a.IndustryHandler = handlers.NewIndustryHandler(a.ScreenerService, a.Logger)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.SchedulerService)
}

// Close closes all application resources
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}

	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
