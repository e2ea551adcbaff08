// Package app wires the pipeline components into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"wellbeing/internal/aggregator"
	"wellbeing/internal/categories"
	"wellbeing/internal/clock"
	"wellbeing/internal/config"
	"wellbeing/internal/database"
	"wellbeing/internal/diagnostics"
	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/infrastructure/logging"
	"wellbeing/internal/metrics"
	"wellbeing/internal/platform"
	"wellbeing/internal/repository"
	"wellbeing/internal/sampler"
	"wellbeing/internal/scheduler"
)

const (
	// shutdownTimeout bounds the whole shutdown sequence started by Run
	shutdownTimeout = 30 * time.Second
	startupTimeout  = 30 * time.Second
)

// Options overrides collaborators, mainly for tests
type Options struct {
	Clock     clock.Clock
	Source    platform.WindowSource
	LogOutput io.Writer
	Logger    logging.Logger
}

// App owns every pipeline component and their shared resources
type App struct {
	cfg    *config.Config
	logger logging.Logger
	clock  clock.Clock

	dbService  *database.SQLiteService
	repository *repository.SQLiteRepository
	mapping    *categories.FileSource
	resolver   *categories.Resolver
	metrics    *metrics.Metrics
	sampler    *sampler.Sampler
	aggregator *aggregator.Aggregator
	reporter   *diagnostics.Reporter
	scheduler  *scheduler.Scheduler
	server     *http.Server

	shutdownOnce sync.Once
	shutdownErr  error
}

// New opens storage and builds every component. Storage initialization
// failure is the only error that stops the pipeline from starting; a broken
// category file is reported by diagnostics and retried by each aggregation run.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}

	logger := opts.Logger
	if logger == nil {
		out := opts.LogOutput
		if out == nil {
			out = os.Stderr
		}
		logger = logging.NewLogger(out, cfg.LogLevel())
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	dbService, err := database.Open(startCtx, cfg.Database, logger)
	if err != nil {
		return nil, repoerrors.NewWithContext("startup", err, repoerrors.ClassifyError(err),
			map[string]string{"db_path": cfg.Database.Path})
	}

	repo := repository.NewSQLiteRepositoryWithConfig(dbService, repoerrors.DefaultRetryConfig(), loc, logger)

	mapping := categories.NewFileSource(cfg.Categories.Path)
	if created, err := mapping.WriteDefaults(); err != nil {
		logger.Warn("Could not write default categories", "path", mapping.Path(), "error", err)
	} else if created {
		logger.Info("Wrote default categories", "path", mapping.Path())
	}
	resolver := categories.NewResolver(mapping, logger)
	if _, err := resolver.Reload(startCtx); err != nil {
		logger.Warn("Category rules unavailable at startup", "path", mapping.Path(), "error", err)
	}

	m := metrics.New()
	source := opts.Source
	if source == nil {
		source = platform.NewWindowSource()
	}

	smp := sampler.New(source, repo, clk, sampler.Config{
		Interval:   cfg.Sampler.Interval,
		Timeout:    cfg.Sampler.Timeout,
		DeviceType: cfg.Sampler.DeviceType,
	}, logger, m)

	agg := aggregator.New(repo, resolver, clk, aggregator.Config{
		Interval:       cfg.Aggregator.Interval,
		MaxRunDuration: cfg.Aggregator.MaxRunDuration,
		Location:       loc,
		BackfillDays:   cfg.Aggregator.BackfillDays,
	}, logger, m)

	reporter := diagnostics.NewReporter(repo, resolver, smp, clk, diagnostics.Config{
		SampleInterval:      cfg.Sampler.Interval,
		AggregationInterval: cfg.Aggregator.Interval,
		NoEventsWarning:     cfg.Diagnostics.NoEventsWarning,
		DatabasePath:        cfg.Database.Path,
	}, logger, m)

	a := &App{
		cfg:        cfg,
		logger:     logger,
		clock:      clk,
		dbService:  dbService,
		repository: repo,
		mapping:    mapping,
		resolver:   resolver,
		metrics:    m,
		sampler:    smp,
		aggregator: agg,
		reporter:   reporter,
		scheduler:  scheduler.New(clk, logger),
	}
	if err := a.registerTasks(); err != nil {
		dbService.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) registerTasks() error {
	if err := a.scheduler.Add(scheduler.Task{
		Name:       a.sampler.Name(),
		Interval:   a.sampler.Interval(),
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			_, err := a.sampler.Tick(ctx)
			return err
		},
	}); err != nil {
		return err
	}

	return a.scheduler.Add(scheduler.Task{
		Name:       a.aggregator.Name(),
		Interval:   a.aggregator.Interval(),
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			_, err := a.aggregator.Tick(ctx)
			if errors.Is(err, aggregator.ErrRunInProgress) {
				return nil
			}
			return err
		},
	})
}

// Run starts the scheduler and the diagnostics server, blocks until ctx is
// done, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	if err := a.startServer(); err != nil {
		return err
	}
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}

	a.logger.Info("Pipeline started",
		"sample_interval", a.cfg.Sampler.Interval,
		"aggregate_interval", a.cfg.Aggregator.Interval,
		"device_type", a.cfg.Sampler.DeviceType,
		"db_path", a.cfg.Database.Path)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown stops the scheduler, the HTTP server and the database, in that
// order. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		a.logger.Info("Starting shutdown sequence")

		a.scheduler.Stop()

		var errs []error
		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("http shutdown: %w", err))
			}
		}
		if err := a.closeDatabaseConnection(ctx); err != nil {
			errs = append(errs, err)
		}

		a.shutdownErr = errors.Join(errs...)
		a.logger.Info("Shutdown completed")
	})
	return a.shutdownErr
}

// Close shuts down with the default timeout
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.Shutdown(ctx)
}

// closeDatabaseConnection closes the database, giving up when ctx expires
func (a *App) closeDatabaseConnection(ctx context.Context) error {
	if a.dbService == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- a.dbService.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return repoerrors.NewWithContext("shutdown", err, repoerrors.ClassifyError(err),
				map[string]string{"operation": "close_connection"})
		}
		return nil
	case <-ctx.Done():
		a.logger.Warn("Database close timed out")
		return repoerrors.New("shutdown", ctx.Err(), repoerrors.ErrCodeTimeout)
	}
}

// Aggregator returns the aggregator for on-demand runs
func (a *App) Aggregator() *aggregator.Aggregator { return a.aggregator }

// Reporter returns the diagnostics reporter
func (a *App) Reporter() *diagnostics.Reporter { return a.reporter }

// Resolver returns the category resolver
func (a *App) Resolver() *categories.Resolver { return a.resolver }

// Usage returns the query-layer reads
func (a *App) Usage() repository.UsageReader { return a.repository }

// Database returns the database service for maintenance commands
func (a *App) Database() *database.SQLiteService { return a.dbService }

// Logger returns the application's structured logger
func (a *App) Logger() logging.Logger { return a.logger }
