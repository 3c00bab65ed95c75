// Package stub is a deterministic stand-in for the remote prediction service.
// It serves /predict/ and /predict_proba/ with the same request and response
// shapes so the dashboard and CLI can run without the real model.
package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/okian/creditscope/internal/domain/model"
	"github.com/okian/creditscope/pkg/logger"
)

// Default stub configuration constants.
const (
	defaultThreshold  = 0.52
	defaultBias       = 0.5
	defaultRandomSeed = 42
	maxRequestBytes   = 1 << 20
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLatencyRange sets the simulated latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Service) {
		if minLatency >= 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithWeights replaces the linear weights applied to the features.
func WithWeights(weights map[string]float64, bias float64) Option {
	return func(s *Service) {
		// Copy the weights map to avoid external modifications
		s.weights = make(map[string]float64, len(weights))
		for name, w := range weights {
			s.weights[name] = w
		}
		s.bias = bias
	}
}

// WithThreshold sets the probability at or above which a client is refused.
func WithThreshold(p float64) Option {
	return func(s *Service) {
		if p > 0 && p < 1 {
			s.threshold = p
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// Service scores records with a fixed logistic model.
type Service struct {
	weights   map[string]float64
	bias      float64
	threshold float64
	// Simulated latency range
	minLatency time.Duration
	maxLatency time.Duration

	mu  sync.Mutex
	rng *rand.Rand

	log logger.Logger
}

// New creates a stub service with configuration options.
func New(opts ...Option) *Service {
	s := &Service{
		weights:   defaultWeights(),
		bias:      defaultBias,
		threshold: defaultThreshold,
		rng:       rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible latency
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultWeights() map[string]float64 {
	return map[string]float64{
		"EXT_SOURCE_1":                        -1.5,
		"EXT_SOURCE_2":                        -2.0,
		"EXT_SOURCE_3":                        -2.0,
		"CODE_GENDER":                         0.3,
		"FLAG_OWN_CAR":                        -0.2,
		"NAME_EDUCATION_TYPE_Highereducation": -0.4,
		"NAME_CONTRACT_TYPE_Cashloans":        0.3,
		"NAME_FAMILY_STATUS_Married":          -0.1,
		"FLAG_DOCUMENT_3":                     0.1,
		"INCOME_CREDIT_PERC":                  -0.2,
	}
}

// Probability returns the probability of default for rec. Missing and
// non-numeric values contribute nothing.
func (s *Service) Probability(rec model.Record) float64 {
	z := s.bias
	for name, w := range s.weights {
		if v, ok := rec.Float(name); ok {
			z += w * v
		}
	}
	return 1 / (1 + math.Exp(-z))
}

// Prediction returns 1 when the probability reaches the threshold.
func (s *Service) Prediction(rec model.Record) int {
	if s.Probability(rec) >= s.threshold {
		return 1
	}
	return 0
}

// Handler returns the HTTP routes of the stub service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /predict/", s.handlePredict)
	mux.HandleFunc("POST /predict_proba/", s.handlePredictProba)
	return mux
}

func (s *Service) handlePredict(w http.ResponseWriter, r *http.Request) {
	if err := s.wait(r.Context()); err != nil {
		return
	}

	var rec model.Record
	if err := decodeBody(w, r, &rec); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	pred := s.Prediction(rec)
	s.log.Debug(r.Context(), "stub prediction", logger.Int("prediction", pred))
	writeJSON(w, http.StatusOK, map[string]any{"prediction": pred})
}

func (s *Service) handlePredictProba(w http.ResponseWriter, r *http.Request) {
	if err := s.wait(r.Context()); err != nil {
		return
	}

	var recs []model.Record
	if err := decodeBody(w, r, &recs); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if len(recs) == 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "expected a non-empty list of records")
		return
	}

	probs := make([]float64, len(recs))
	for i, rec := range recs {
		probs[i] = s.Probability(rec)
	}
	s.log.Debug(r.Context(), "stub probability", logger.Float64("probability", probs[0]))
	writeJSON(w, http.StatusOK, map[string]any{"predicted_proba": probs})
}

// wait simulates model latency, honoring ctx for cancellation.
func (s *Service) wait(ctx context.Context) error {
	if s.maxLatency <= s.minLatency {
		return nil
	}
	s.mu.Lock()
	latency := s.minLatency + time.Duration(s.rng.Int63n(int64(s.maxLatency-s.minLatency)))
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-time.After(latency):
		return nil
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid body: %w", err)
	}
	return nil
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
