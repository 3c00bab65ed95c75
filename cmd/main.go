package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/creditscope/internal/adapters/artifact"
	"github.com/okian/creditscope/internal/adapters/dataset"
	"github.com/okian/creditscope/internal/adapters/http/api"
	"github.com/okian/creditscope/internal/adapters/http/site"
	"github.com/okian/creditscope/internal/adapters/http/swagger"
	"github.com/okian/creditscope/internal/adapters/scoring/httpclient"
	service "github.com/okian/creditscope/internal/app"
	"github.com/okian/creditscope/internal/config"
	"github.com/okian/creditscope/internal/domain/explain"
	"github.com/okian/creditscope/internal/domain/gauge"
	"github.com/okian/creditscope/internal/domain/model"
	"github.com/okian/creditscope/internal/domain/scoring"
	"github.com/okian/creditscope/pkg/logger"
	"github.com/okian/creditscope/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second

	// writeSlack is added to the two sequential remote calls a prediction makes.
	writeSlack = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr since the logger depends on the configured format
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "dashboard stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	metrics.Configure(metricsOptions(cfg.Metrics)...)

	appCtx, err := loadContext(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info(ctx, "startup data loaded",
		logger.Int("clients", appCtx.Dataset.Len()),
		logger.Int("explanations", appCtx.Explanations.Len()),
		logger.Float64("threshold", appCtx.Gauge.Threshold()))

	scorer := httpclient.New(cfg.Scoring.BaseURL, cfg.Scoring.Timeout, httpclient.WithLogger(log.Named("scoring")))
	handler, err := newHandler(ctx, cfg, appCtx, scorer, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      2*cfg.Scoring.Timeout + writeSlack,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("scoring_url", scorer.BaseURL()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info(ctx, "server stopped")
	return nil
}

// metricsOptions maps the metrics section onto the global manager.
func metricsOptions(cfg config.MetricsConfig) []metrics.Option {
	return []metrics.Option{
		metrics.WithNamespace(cfg.Namespace),
		metrics.WithSubsystem(cfg.Subsystem),
		metrics.WithHistogramBuckets(cfg.LatencyBuckets),
		metrics.WithConstLabels(cfg.Labels),
	}
}

// loadContext reads the dataset and the attribution export concurrently.
// Both are read-only afterwards.
func loadContext(ctx context.Context, cfg *config.Config) (service.Context, error) {
	g, err := gauge.New(cfg.Gauge.Threshold)
	if err != nil {
		return service.Context{}, err
	}

	var (
		ds   *dataset.Dataset
		expl *explain.Set
	)
	eg, _ := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		ds, err = dataset.Load(cfg.DatasetPath)
		return err
	})
	if cfg.ExplanationsPath != "" {
		eg.Go(func() error {
			var err error
			expl, err = artifact.LoadExplanations(cfg.ExplanationsPath)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return service.Context{}, err
	}

	metrics.SetDatasetRows(ds.Len())
	metrics.SetExplanationRows(expl.Len())

	return service.Context{
		Dataset:      ds,
		Explanations: expl,
		Schema:       model.DefaultSchema(),
		Gauge:        g,
	}, nil
}

// newHandler registers the JSON API, its documentation and the dashboard
// on one mux.
func newHandler(ctx context.Context, cfg *config.Config, appCtx service.Context, scorer scoring.Scorer, log logger.Logger) (http.Handler, error) {
	svc := service.New(appCtx, scorer,
		service.WithLogger(log.Named("service")),
		service.WithMaxDisplay(cfg.Explain.MaxDisplay),
	)

	dashboard, err := site.New(svc, site.WithLogger(log.Named("site")))
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	swagger.Register(ctx, mux)
	dashboard.Register(ctx, mux)

	return api.RequestIDMiddleware(mux), nil
}
