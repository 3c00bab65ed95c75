// Package explain holds precomputed feature attributions and derives the
// local waterfall and the global importance ranking from them. Values are
// passed through as exported; nothing here recomputes them.
package explain

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/okian/creditscope/internal/domain/model"
)

// Sentinel errors for this package.
var (
	ErrNoExplanation = errors.New("no attributions for client")
	ErrInvalidSet    = errors.New("invalid attribution set")
)

// Set is one attribution export: a baseline plus one value per feature for
// each client.
type Set struct {
	ExpectedValue float64             `json:"expected_value" yaml:"expected_value"`
	Features      []string            `json:"features" yaml:"features"`
	Rows          map[int64][]float64 `json:"rows" yaml:"rows"`
}

// Validate checks the shape of the set.
func (s *Set) Validate() error {
	if len(s.Features) == 0 {
		return fmt.Errorf("%w: no features", ErrInvalidSet)
	}
	seen := make(map[string]struct{}, len(s.Features))
	for _, f := range s.Features {
		if _, dup := seen[f]; dup {
			return fmt.Errorf("%w: duplicate feature %q", ErrInvalidSet, f)
		}
		seen[f] = struct{}{}
	}
	for id, row := range s.Rows {
		if len(row) != len(s.Features) {
			return fmt.Errorf("%w: client %d has %d values, want %d", ErrInvalidSet, id, len(row), len(s.Features))
		}
	}
	return nil
}

// Len returns the number of clients with attributions.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Has reports whether attributions exist for id.
func (s *Set) Has(id int64) bool {
	if s == nil {
		return false
	}
	_, ok := s.Rows[id]
	return ok
}

// Step is one bar of the waterfall.
type Step struct {
	Feature      string  `json:"feature" yaml:"feature"`
	Value        any     `json:"value" yaml:"value"`
	Contribution float64 `json:"contribution" yaml:"contribution"`
	Start        float64 `json:"start" yaml:"start"`
	End          float64 `json:"end" yaml:"end"`
	// Collapsed counts the features folded into this step; 0 for a single feature.
	Collapsed int `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
}

// Waterfall is the local attribution view for one client.
type Waterfall struct {
	ClientID int64   `json:"client_id" yaml:"client_id"`
	Base     float64 `json:"base" yaml:"base"`
	Final    float64 `json:"final" yaml:"final"`
	Steps    []Step  `json:"steps" yaml:"steps"`
}

// Waterfall builds the view for id, largest contributions first. When
// maxDisplay > 0 and there are more features, the tail is folded into one
// "other features" step so that at most maxDisplay steps remain. Feature
// values are taken from rec when present.
func (s *Set) Waterfall(id int64, rec model.Record, maxDisplay int) (Waterfall, error) {
	if s == nil {
		return Waterfall{}, fmt.Errorf("%w: %d", ErrNoExplanation, id)
	}
	row, ok := s.Rows[id]
	if !ok {
		return Waterfall{}, fmt.Errorf("%w: %d", ErrNoExplanation, id)
	}

	order := make([]int, len(row))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(row[order[a]]) > math.Abs(row[order[b]])
	})

	keep := len(order)
	if maxDisplay > 0 && len(order) > maxDisplay {
		keep = maxDisplay - 1
	}

	w := Waterfall{ClientID: id, Base: s.ExpectedValue}
	running := s.ExpectedValue
	for _, i := range order[:keep] {
		step := Step{
			Feature:      s.Features[i],
			Value:        rec[s.Features[i]],
			Contribution: row[i],
			Start:        running,
		}
		running += row[i]
		step.End = running
		w.Steps = append(w.Steps, step)
	}

	if rest := order[keep:]; len(rest) > 0 {
		sum := 0.0
		for _, i := range rest {
			sum += row[i]
		}
		w.Steps = append(w.Steps, Step{
			Feature:      fmt.Sprintf("%d other features", len(rest)),
			Contribution: sum,
			Start:        running,
			End:          running + sum,
			Collapsed:    len(rest),
		})
		running += sum
	}

	w.Final = running
	return w, nil
}

// Importance is the mean absolute attribution of one feature.
type Importance struct {
	Feature string  `json:"feature" yaml:"feature"`
	MeanAbs float64 `json:"mean_abs" yaml:"mean_abs"`
}

// Summary ranks features by mean absolute attribution across all clients.
func (s *Set) Summary() []Importance {
	if s == nil {
		return nil
	}
	sums := make([]float64, len(s.Features))
	for _, row := range s.Rows {
		for i, v := range row {
			if i < len(sums) {
				sums[i] += math.Abs(v)
			}
		}
	}

	out := make([]Importance, len(s.Features))
	for i, f := range s.Features {
		mean := 0.0
		if len(s.Rows) > 0 {
			mean = sums[i] / float64(len(s.Rows))
		}
		out[i] = Importance{Feature: f, MeanAbs: mean}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].MeanAbs != out[b].MeanAbs {
			return out[a].MeanAbs > out[b].MeanAbs
		}
		return out[a].Feature < out[b].Feature
	})
	return out
}
