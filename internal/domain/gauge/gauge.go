// Package gauge maps a probability of default onto the 0-100 gauge shown to
// the operator: fixed colour bands and a configurable decision threshold.
package gauge

import (
	"errors"
	"fmt"
)

// Scale bounds and fixed band edges.
const (
	Min = 0.0
	Max = 100.0

	greenUpper = 20.0
	limeUpper  = 45.0

	// DefaultThreshold is the decision boundary in percent.
	DefaultThreshold = 52.0
)

// ErrInvalidThreshold is returned when the threshold would overlap the fixed bands.
var ErrInvalidThreshold = errors.New("gauge threshold must be in (45, 100]")

// Color names a band.
type Color string

// Band colours, from safest to riskiest.
const (
	Green  Color = "green"
	Lime   Color = "lime"
	Orange Color = "orange"
	Red    Color = "red"
)

// Band is a half-open range [From, To) of the scale; the last band also
// includes Max.
type Band struct {
	From  float64 `json:"from" yaml:"from"`
	To    float64 `json:"to" yaml:"to"`
	Color Color   `json:"color" yaml:"color"`
}

// Gauge holds the decision threshold.
type Gauge struct {
	threshold float64
}

// New returns a gauge with the given threshold in percent.
func New(threshold float64) (Gauge, error) {
	if threshold <= limeUpper || threshold > Max {
		return Gauge{}, fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	return Gauge{threshold: threshold}, nil
}

// Default returns the gauge with DefaultThreshold.
func Default() Gauge {
	return Gauge{threshold: DefaultThreshold}
}

// Threshold returns the decision boundary in percent.
func (g Gauge) Threshold() float64 {
	if g.threshold == 0 {
		return DefaultThreshold
	}
	return g.threshold
}

// Bands returns the four bands in ascending order. They cover [Min, Max]
// without overlap.
func (g Gauge) Bands() []Band {
	t := g.Threshold()
	return []Band{
		{From: Min, To: greenUpper, Color: Green},
		{From: greenUpper, To: limeUpper, Color: Lime},
		{From: limeUpper, To: t, Color: Orange},
		{From: t, To: Max, Color: Red},
	}
}

// BandFor returns the band containing v after clamping to [Min, Max].
func (g Gauge) BandFor(v float64) Band {
	v = clamp(v)
	bands := g.Bands()
	for _, b := range bands[:len(bands)-1] {
		if v >= b.From && v < b.To {
			return b
		}
	}
	return bands[len(bands)-1]
}

// View is everything a renderer needs to draw the gauge.
type View struct {
	// Value is probability*100 clamped to the scale; 0 when absent.
	Value float64 `json:"value" yaml:"value"`
	// Delta is Value minus the threshold.
	Delta     float64 `json:"delta" yaml:"delta"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Band      Band    `json:"band" yaml:"band"`
	Bands     []Band  `json:"bands" yaml:"bands"`
	// Present is false when no probability was available.
	Present bool `json:"present" yaml:"present"`
}

// Render builds the view for an optional probability in [0,1].
func (g Gauge) Render(probability *float64) View {
	v := 0.0
	if probability != nil {
		v = clamp(*probability * 100)
	}
	t := g.Threshold()
	return View{
		Value:     v,
		Delta:     v - t,
		Threshold: t,
		Band:      g.BandFor(v),
		Bands:     g.Bands(),
		Present:   probability != nil,
	}
}

func clamp(v float64) float64 {
	switch {
	case v != v: // NaN
		return Min
	case v < Min:
		return Min
	case v > Max:
		return Max
	}
	return v
}
