// Package dataset loads the client table once at startup and serves
// read-only lookups and per-column statistics from it.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/okian/creditscope/internal/domain/model"
)

// Sentinel errors for this package.
var (
	ErrMissingIDColumn = errors.New("dataset has no " + model.IDKey + " column")
	ErrDuplicateID     = errors.New("duplicate client id")
	ErrInvalidID       = errors.New("invalid client id")
	ErrEmpty           = errors.New("dataset has no rows")
)

// Dataset is an immutable in-memory client table.
type Dataset struct {
	columns []string
	ids     []int64
	rows    map[int64]model.Record
}

// Load reads the CSV file at path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Read parses a CSV stream with a header row. Cells parse as int, then
// float, then string; empty and NaN cells become nil.
func Read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idCol := -1
	for i, name := range header {
		if name == model.IDKey {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, ErrMissingIDColumn
	}

	ds := &Dataset{
		columns: header,
		rows:    make(map[int64]model.Record),
	}

	for line := 2; ; line++ {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		rec := make(model.Record, len(header))
		for i, name := range header {
			rec[name] = parseCell(cells[i])
		}

		id, ok := rec.ID()
		if !ok {
			return nil, fmt.Errorf("%w: row %d: %q", ErrInvalidID, line, cells[idCol])
		}
		rec[model.IDKey] = id
		if _, dup := ds.rows[id]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, id)
		}
		ds.rows[id] = rec
		ds.ids = append(ds.ids, id)
	}

	if len(ds.ids) == 0 {
		return nil, ErrEmpty
	}
	return ds, nil
}

func parseCell(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	}
	return s
}

// Len returns the number of clients.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.ids)
}

// Columns returns the header in file order.
func (d *Dataset) Columns() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.columns...)
}

// IDs returns the client ids in file order.
func (d *Dataset) IDs() []int64 {
	if d == nil {
		return nil
	}
	return append([]int64(nil), d.ids...)
}

// ByID returns a copy of the client's row.
func (d *Dataset) ByID(id int64) (model.Record, bool) {
	if d == nil {
		return nil, false
	}
	rec, ok := d.rows[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// ColumnSummary describes one column across all rows.
type ColumnSummary struct {
	Name    string  `json:"name" yaml:"name"`
	Count   int     `json:"count" yaml:"count"`
	Missing int     `json:"missing" yaml:"missing"`
	Numeric bool    `json:"numeric" yaml:"numeric"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Mean    float64 `json:"mean" yaml:"mean"`
}

// Summary returns per-column statistics in column order. Min, Max and Mean
// are only set for columns whose present values are all numeric.
func (d *Dataset) Summary() []ColumnSummary {
	if d == nil {
		return nil
	}
	out := make([]ColumnSummary, 0, len(d.columns))
	for _, name := range d.columns {
		cs := ColumnSummary{Name: name, Numeric: true, Min: math.Inf(1), Max: math.Inf(-1)}
		sum := 0.0
		for _, id := range d.ids {
			rec := d.rows[id]
			if rec[name] == nil {
				cs.Missing++
				continue
			}
			cs.Count++
			v, ok := rec.Float(name)
			if !ok {
				cs.Numeric = false
				continue
			}
			sum += v
			cs.Min = math.Min(cs.Min, v)
			cs.Max = math.Max(cs.Max, v)
		}
		if !cs.Numeric || cs.Count == 0 {
			cs.Numeric = cs.Numeric && cs.Count > 0
			cs.Min, cs.Max = 0, 0
		} else {
			cs.Mean = sum / float64(cs.Count)
		}
		out = append(out, cs)
	}
	return out
}
