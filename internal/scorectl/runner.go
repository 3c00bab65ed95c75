package scorectl

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/creditscope/internal/adapters/dataset"
	"github.com/okian/creditscope/internal/adapters/scoring/httpclient"
	service "github.com/okian/creditscope/internal/app"
	"github.com/okian/creditscope/internal/domain/gauge"
	"github.com/okian/creditscope/internal/domain/model"
	"github.com/okian/creditscope/internal/domain/scoring"
	"github.com/okian/creditscope/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Runner executes predictions and prints their results.
type Runner struct {
	cfg *Config
	svc *service.Service
	ids []int64
	log logger.Logger
}

// Open loads the dataset when needed and connects to the scoring service.
func Open(cfg *Config, withDataset bool, log logger.Logger) (*Runner, error) {
	format, err := normalizeFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	cfg.Format = format
	if log == nil {
		log = logger.Nop()
	}

	appCtx := service.Context{Schema: model.DefaultSchema(), Gauge: gauge.Default()}
	if withDataset {
		ds, err := dataset.Load(cfg.DatasetPath)
		if err != nil {
			return nil, err
		}
		appCtx.Dataset = ds
		log.Debug(context.Background(), "dataset loaded", logger.String("path", cfg.DatasetPath), logger.Int("clients", ds.Len()))
	}

	scorer := httpclient.New(cfg.BaseURL, cfg.Timeout, httpclient.WithLogger(log.Named("scoring")))
	return NewRunner(cfg, appCtx, scorer, log), nil
}

// NewRunner builds a Runner over an already loaded context.
func NewRunner(cfg *Config, appCtx service.Context, scorer scoring.Scorer, log logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		cfg: cfg,
		svc: service.New(appCtx, scorer, service.WithLogger(log)),
		ids: appCtx.Dataset.IDs(),
		log: log,
	}
}

// PredictID scores one dataset client and prints the result. A failed
// prediction is printed and then reported as ErrPredictionFailed.
func (r *Runner) PredictID(ctx context.Context, id int64) error {
	out, err := r.svc.PredictExisting(ctx, id)
	if err != nil {
		return err
	}
	return r.print(out)
}

// PredictRecord scores a record read from a file.
func (r *Runner) PredictRecord(ctx context.Context, rec model.Record) error {
	return r.print(r.svc.Predict(ctx, rec))
}

func (r *Runner) print(out service.Outcome) error {
	if err := encode(r.cfg.out(), r.cfg.Format, resultOf(out)); err != nil {
		return err
	}
	if out.State != service.StateSucceeded {
		return fmt.Errorf("%w: %s", ErrPredictionFailed, out.Err.Message())
	}
	return nil
}

// Batch scores the first limit dataset clients (all when limit <= 0) with at
// most workers predictions in flight. Each client still gets its
// probability only after its classification succeeded. Individual failures
// are part of the report, only cancellation aborts the run.
func (r *Runner) Batch(ctx context.Context, limit, workers int) (Report, error) {
	ids := r.ids
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	r.log.Info(ctx, "starting batch", logger.Int("clients", len(ids)), logger.Int("workers", workers))
	start := time.Now()

	results := make([]Result, len(ids))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := r.svc.PredictExisting(ctx, id)
			if err != nil {
				return err
			}
			results[i] = resultOf(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{Stats: newStats(results, time.Since(start)), Results: results}
	r.log.Info(ctx, "batch finished",
		logger.Int("succeeded", report.Stats.Succeeded),
		logger.Int("failed", report.Stats.Failed),
		logger.String("duration", report.Stats.Duration))

	if err := encode(r.cfg.out(), r.cfg.Format, report); err != nil {
		return Report{}, err
	}
	return report, nil
}
