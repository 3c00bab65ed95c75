// Package service implements the dashboard use cases on top of the loaded
// client data and a remote Scorer.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/creditscope/internal/adapters/dataset"
	"github.com/okian/creditscope/internal/domain/explain"
	"github.com/okian/creditscope/internal/domain/gauge"
	"github.com/okian/creditscope/internal/domain/model"
	"github.com/okian/creditscope/internal/domain/scoring"
	"github.com/okian/creditscope/pkg/logger"
	"github.com/okian/creditscope/pkg/metrics"
)

// ErrClientNotFound is returned when an id is not in the dataset.
var ErrClientNotFound = errors.New("client not found")

// State is the lifecycle of one prediction request.
type State string

// Prediction states.
const (
	StatePending   State = "pending"
	StateFailed    State = "failed"
	StateSucceeded State = "succeeded"
)

// Outcome is the result of one prediction request. It is built per request
// and never cached.
type Outcome struct {
	State       State                      `json:"state"`
	ClientID    int64                      `json:"client_id"`
	Score       *scoring.ScoreResult       `json:"score,omitempty"`
	Probability *scoring.ProbabilityResult `json:"probability,omitempty"`
	Err         *scoring.Error             `json:"-"`
	Gauge       gauge.View                 `json:"gauge"`
	Waterfall   *explain.Waterfall         `json:"waterfall,omitempty"`
}

// Service implements the API and site dependencies.
type Service struct {
	app    Context
	scorer scoring.Scorer

	// Configuration
	maxDisplay int

	// State
	startedAt   time.Time
	predictions atomic.Int64
	failures    atomic.Int64
	refusals    atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxDisplay caps the number of waterfall steps; 0 shows all features.
func WithMaxDisplay(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxDisplay = n
		}
	}
}

// New constructs a Service over the loaded context.
func New(app Context, scorer scoring.Scorer, opts ...Option) *Service {
	s := &Service{
		app:       app,
		scorer:    scorer,
		startedAt: time.Now(),
		logger:    logger.Nop(),
	}
	if len(s.app.Schema.Features) == 0 {
		s.app.Schema = model.DefaultSchema()
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Predict scores one record. The probability is requested only once the
// classification has succeeded: the operator is shown a probability only
// alongside a decision. Failures are returned inside the Outcome.
func (s *Service) Predict(ctx context.Context, rec model.Record) Outcome {
	id, _ := rec.ID()
	out := Outcome{State: StatePending, ClientID: id, Gauge: s.app.Gauge.Render(nil)}
	s.predictions.Add(1)

	if err := s.app.Schema.Validate(rec); err != nil {
		return s.fail(ctx, out, &scoring.Error{
			Op: scoring.OpClassify, Kind: scoring.KindInvalidRecord, Msg: "schema check", Err: err,
		})
	}

	score, err := s.scorer.Classify(ctx, rec)
	if err != nil {
		return s.fail(ctx, out, asScoringError(scoring.OpClassify, err))
	}
	out.Score = &score
	metrics.RecordDecision(string(score.Decision))
	if score.Prediction == scoring.PredictionRefused {
		s.refusals.Add(1)
	}

	prob, err := s.scorer.Probability(ctx, rec)
	if err != nil {
		return s.fail(ctx, out, asScoringError(scoring.OpProbability, err))
	}
	out.Probability = &prob
	out.Gauge = s.app.Gauge.Render(&prob.Probability)
	out.State = StateSucceeded

	s.logger.Info(ctx, "prediction completed",
		logger.Int64("client_id", id),
		logger.String("decision", string(score.Decision)),
		logger.Float64("probability", prob.Probability),
	)
	return out
}

// PredictExisting scores a dataset client and attaches its waterfall when
// attributions exist for it.
func (s *Service) PredictExisting(ctx context.Context, id int64) (Outcome, error) {
	rec, ok := s.app.Dataset.ByID(id)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %d", ErrClientNotFound, id)
	}

	out := s.Predict(ctx, rec)
	if out.State != StateSucceeded || !s.app.Explanations.Has(id) {
		return out, nil
	}

	w, err := s.app.Explanations.Waterfall(id, rec, s.maxDisplay)
	if err != nil {
		s.logger.Warn(ctx, "waterfall unavailable", logger.Int64("client_id", id), logger.Error(err))
		return out, nil
	}
	out.Waterfall = &w
	return out, nil
}

func (s *Service) fail(ctx context.Context, out Outcome, err *scoring.Error) Outcome {
	s.failures.Add(1)
	out.State = StateFailed
	out.Err = err
	s.logger.Warn(ctx, "prediction failed",
		logger.Int64("client_id", out.ClientID),
		logger.String("op", err.Op),
		logger.String("kind", string(err.Kind)),
		logger.Error(err),
	)
	return out
}

func asScoringError(op string, err error) *scoring.Error {
	var se *scoring.Error
	if errors.As(err, &se) {
		return se
	}
	return &scoring.Error{Op: op, Kind: scoring.KindTransport, Err: err}
}

// Client returns a copy of one dataset row.
func (s *Service) Client(id int64) (model.Record, error) {
	rec, ok := s.app.Dataset.ByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrClientNotFound, id)
	}
	return rec, nil
}

// ClientIDs returns the dataset ids in file order.
func (s *Service) ClientIDs() []int64 {
	return s.app.Dataset.IDs()
}

// Columns returns the dataset header.
func (s *Service) Columns() []string {
	return s.app.Dataset.Columns()
}

// Summary returns per-column dataset statistics.
func (s *Service) Summary() []dataset.ColumnSummary {
	return s.app.Dataset.Summary()
}

// Explanation returns the full waterfall of one client.
func (s *Service) Explanation(id int64) (explain.Waterfall, error) {
	rec, ok := s.app.Dataset.ByID(id)
	if !ok {
		return explain.Waterfall{}, fmt.Errorf("%w: %d", ErrClientNotFound, id)
	}
	return s.app.Explanations.Waterfall(id, rec, s.maxDisplay)
}

// GlobalImportance ranks features across all clients; nil without attributions.
func (s *Service) GlobalImportance() []explain.Importance {
	return s.app.Explanations.Summary()
}

// Schema returns the feature set sent to the model.
func (s *Service) Schema() model.Schema {
	return s.app.Schema
}

// Gauge returns the configured gauge.
func (s *Service) Gauge() gauge.Gauge {
	return s.app.Gauge
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"clients":          s.app.Dataset.Len(),
		"explanations":     s.app.Explanations.Len(),
		"features":         len(s.app.Schema.Features),
		"threshold":        s.app.Gauge.Threshold(),
		"predictions":      s.predictions.Load(),
		"failures":         s.failures.Load(),
		"refusals":         s.refusals.Load(),
		"uptime_seconds":   int64(time.Since(s.startedAt).Seconds()),
		"explanations_set": s.app.Explanations != nil,
	}
}
