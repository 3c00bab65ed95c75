package scorectl

import (
	"encoding/json"
	"io"
	"time"

	service "github.com/okian/creditscope/internal/app"
	"github.com/okian/creditscope/internal/domain/scoring"
	"gopkg.in/yaml.v3"
)

// Result is the printable form of one prediction.
type Result struct {
	ClientID    int64               `json:"client_id" yaml:"client_id"`
	State       service.State       `json:"state" yaml:"state"`
	Decision    scoring.Decision    `json:"decision,omitempty" yaml:"decision,omitempty"`
	Prediction  *scoring.Prediction `json:"prediction,omitempty" yaml:"prediction,omitempty"`
	Probability *float64            `json:"probability,omitempty" yaml:"probability,omitempty"`
	Kind        scoring.Kind        `json:"kind,omitempty" yaml:"kind,omitempty"`
	Error       string              `json:"error,omitempty" yaml:"error,omitempty"`
}

func resultOf(out service.Outcome) Result {
	r := Result{ClientID: out.ClientID, State: out.State}
	if out.Score != nil {
		p := out.Score.Prediction
		r.Prediction = &p
		r.Decision = out.Score.Decision
	}
	if out.Probability != nil {
		v := out.Probability.Probability
		r.Probability = &v
	}
	if out.Err != nil {
		r.Kind = out.Err.Kind
		r.Error = out.Err.Message()
	}
	return r
}

// Stats summarizes a batch run.
type Stats struct {
	Requested int     `json:"requested" yaml:"requested"`
	Succeeded int     `json:"succeeded" yaml:"succeeded"`
	Failed    int     `json:"failed" yaml:"failed"`
	Refused   int     `json:"refused" yaml:"refused"`
	Duration  string  `json:"duration" yaml:"duration"`
	PerSecond float64 `json:"per_second" yaml:"per_second"`
}

// Report is the output of a batch run, results in dataset order.
type Report struct {
	Stats   Stats    `json:"stats" yaml:"stats"`
	Results []Result `json:"results" yaml:"results"`
}

func newStats(results []Result, elapsed time.Duration) Stats {
	s := Stats{Requested: len(results), Duration: elapsed.String()}
	for _, r := range results {
		switch {
		case r.State == service.StateSucceeded:
			s.Succeeded++
		default:
			s.Failed++
		}
		if r.Prediction != nil && *r.Prediction == scoring.PredictionRefused {
			s.Refused++
		}
	}
	if elapsed > 0 {
		s.PerSecond = float64(s.Requested) / elapsed.Seconds()
	}
	return s
}

// encode writes v in the requested format.
func encode(w io.Writer, format string, v any) error {
	if format == FormatYAML {
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
