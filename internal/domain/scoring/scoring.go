// Package scoring defines the contract between the dashboard and the remote
// credit model: typed results, failure kinds and the Scorer interface.
package scoring

import (
	"context"

	"github.com/okian/creditscope/internal/domain/model"
)

// Prediction is the binary classifier output: 0 approves, 1 refuses.
type Prediction int

// Known predictions.
const (
	PredictionApproved Prediction = 0
	PredictionRefused  Prediction = 1
)

// Decision is the user-facing label derived from a Prediction.
type Decision string

// Decision labels as shown to the operator.
const (
	DecisionApproved Decision = "Accordé"
	DecisionRefused  Decision = "Refusé"
)

// DecisionFor maps a prediction to its label. Any value other than 1 is
// treated as approval; callers only pass validated predictions.
func DecisionFor(p Prediction) Decision {
	if p == PredictionRefused {
		return DecisionRefused
	}
	return DecisionApproved
}

// Valid reports whether p is 0 or 1.
func (p Prediction) Valid() bool {
	return p == PredictionApproved || p == PredictionRefused
}

// ScoreResult is a successful classification.
type ScoreResult struct {
	Prediction Prediction `json:"prediction" yaml:"prediction"`
	Decision   Decision   `json:"decision" yaml:"decision"`
}

// NewScoreResult builds a result with its derived decision.
func NewScoreResult(p Prediction) ScoreResult {
	return ScoreResult{Prediction: p, Decision: DecisionFor(p)}
}

// ProbabilityResult is the probability of default in [0,1].
type ProbabilityResult struct {
	Probability float64 `json:"probability" yaml:"probability"`
}

// Percent returns the probability scaled to 0-100.
func (r ProbabilityResult) Percent() float64 {
	return r.Probability * 100
}

// Scorer issues the two remote calls. Implementations return a *Error on
// failure and never panic.
type Scorer interface {
	// Classify returns the decision for a record.
	Classify(ctx context.Context, rec model.Record) (ScoreResult, error)

	// Probability returns the probability of default for a record.
	Probability(ctx context.Context, rec model.Record) (ProbabilityResult, error)
}
