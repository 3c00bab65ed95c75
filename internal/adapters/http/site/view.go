package site

import (
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"

	"github.com/okian/creditscope/internal/domain/explain"
	"github.com/okian/creditscope/internal/domain/gauge"
	"github.com/okian/creditscope/internal/domain/model"
)

var funcs = template.FuncMap{
	"value":   model.FormatValue,
	"percent": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"signed":  func(v float64) string { return fmt.Sprintf("%+.3f", v) },
	"fixed":   func(v float64) string { return fmt.Sprintf("%.3f", v) },
	"gauge":   gaugeSVG,
}

func nowMillis() float64 {
	return float64(time.Now().UnixNano()) / 1e6
}

// Gauge geometry: a half circle centred on (cx, cy).
const (
	gaugeCX     = 150.0
	gaugeCY     = 140.0
	gaugeRadius = 110.0
	gaugeWidth  = 28.0
)

// angle maps a scale value to radians, Min on the left and Max on the right.
func angle(v float64) float64 {
	return math.Pi * (1 - (v-gauge.Min)/(gauge.Max-gauge.Min))
}

func point(v, r float64) (float64, float64) {
	a := angle(v)
	return gaugeCX + r*math.Cos(a), gaugeCY - r*math.Sin(a)
}

// gaugeSVG draws the bands, the threshold marker and, when a probability
// is present, the needle and the value with its delta to the threshold.
func gaugeSVG(v gauge.View) template.HTML {
	var b strings.Builder
	b.WriteString(`<svg class="gauge" viewBox="0 0 300 180" role="img" aria-label="Probabilité de défaut">`)

	for _, band := range v.Bands {
		x1, y1 := point(band.From, gaugeRadius)
		x2, y2 := point(band.To, gaugeRadius)
		fmt.Fprintf(&b, `<path d="M %.2f %.2f A %.0f %.0f 0 0 1 %.2f %.2f" stroke="%s" stroke-width="%.0f" fill="none"/>`,
			x1, y1, gaugeRadius, gaugeRadius, x2, y2, band.Color, gaugeWidth)
	}

	tx1, ty1 := point(v.Threshold, gaugeRadius-gaugeWidth/2-4)
	tx2, ty2 := point(v.Threshold, gaugeRadius+gaugeWidth/2+4)
	fmt.Fprintf(&b, `<line class="threshold" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="black" stroke-width="4"/>`,
		tx1, ty1, tx2, ty2)

	if v.Present {
		nx, ny := point(v.Value, gaugeRadius-gaugeWidth)
		fmt.Fprintf(&b, `<line class="needle" x1="%.0f" y1="%.0f" x2="%.2f" y2="%.2f" stroke="#333" stroke-width="3"/>`,
			gaugeCX, gaugeCY, nx, ny)
		fmt.Fprintf(&b, `<text x="%.0f" y="%.0f" text-anchor="middle" class="gauge-value">%.2f</text>`,
			gaugeCX, gaugeCY+30, v.Value)
		fmt.Fprintf(&b, `<text x="%.0f" y="%.0f" text-anchor="middle" class="gauge-delta %s">%+.2f</text>`,
			gaugeCX, gaugeCY-30, deltaClass(v.Delta), v.Delta)
	} else {
		fmt.Fprintf(&b, `<text x="%.0f" y="%.0f" text-anchor="middle" class="gauge-value">-</text>`, gaugeCX, gaugeCY+30)
	}

	b.WriteString(`</svg>`)
	// Only numbers and the fixed band colours reach the markup.
	return template.HTML(b.String())
}

func deltaClass(d float64) string {
	if d > 0 {
		return "above"
	}
	return "below"
}

// waterfallRow is one table line of the local explanation.
type waterfallRow struct {
	Feature      string
	Value        string
	Contribution float64
	Start        float64
	End          float64
	// Width is the bar length in percent of the largest contribution.
	Width    float64
	Positive bool
}

type waterfallView struct {
	Base  float64
	Final float64
	Rows  []waterfallRow
}

func newWaterfallView(w *explain.Waterfall) *waterfallView {
	if w == nil {
		return nil
	}
	largest := 0.0
	for _, s := range w.Steps {
		largest = math.Max(largest, math.Abs(s.Contribution))
	}

	view := &waterfallView{Base: w.Base, Final: w.Final, Rows: make([]waterfallRow, 0, len(w.Steps))}
	for _, s := range w.Steps {
		row := waterfallRow{
			Feature:      s.Feature,
			Value:        model.FormatValue(s.Value),
			Contribution: s.Contribution,
			Start:        s.Start,
			End:          s.End,
			Positive:     s.Contribution > 0,
		}
		if s.Collapsed > 0 {
			row.Value = ""
		}
		if largest > 0 {
			row.Width = math.Abs(s.Contribution) / largest * 100
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

// attribute is one labelled cell of a client record.
type attribute struct {
	Name  string
	Value string
}

func attributes(rec model.Record) []attribute {
	keys := rec.Keys()
	out := make([]attribute, 0, len(keys))
	for _, k := range keys {
		out = append(out, attribute{Name: k, Value: model.FormatValue(rec[k])})
	}
	return out
}

// formField is one input of the new-client form.
type formField struct {
	Name  string
	Label string
	Step  string
	Value string
}

func formFields(schema model.Schema, get func(string) string) []formField {
	out := make([]formField, 0, len(schema.Features))
	for _, f := range schema.Features {
		step := "1"
		if f.Kind == model.KindFloat {
			step = "any"
		}
		v := ""
		if get != nil {
			v = get(f.Name)
		}
		out = append(out, formField{Name: f.Name, Label: f.Label, Step: step, Value: v})
	}
	return out
}
