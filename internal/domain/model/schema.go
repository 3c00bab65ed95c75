package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrSchemaMismatch is returned when a record's keys differ from the schema.
var ErrSchemaMismatch = errors.New("record does not match feature schema")

// ErrInvalidValue is returned when a submitted form value cannot be parsed.
var ErrInvalidValue = errors.New("invalid feature value")

// Kind is the numeric type of a feature.
type Kind string

// Feature kinds.
const (
	KindInt   Kind = "int"
	KindFloat Kind = "float"
)

// Feature describes one model input.
type Feature struct {
	Name  string `json:"name" yaml:"name"`
	Label string `json:"label" yaml:"label"`
	Kind  Kind   `json:"kind" yaml:"kind"`
}

// Schema is the ordered feature set the remote model was trained on.
// IDKey is always part of the key set and is not listed in Features.
type Schema struct {
	Features []Feature `json:"features" yaml:"features"`
}

// DefaultSchema returns the feature set of the deployed credit model.
func DefaultSchema() Schema {
	return Schema{Features: []Feature{
		{Name: "DAYS_EMPLOYED", Label: "Jours d'emploi", Kind: KindInt},
		{Name: "DAYS_BIRTH", Label: "Jours de naissance", Kind: KindInt},
		{Name: "EXT_SOURCE_3", Label: "EXT_SOURCE_3", Kind: KindFloat},
		{Name: "DAYS_ID_PUBLISH", Label: "DAYS_ID_PUBLISH", Kind: KindInt},
		{Name: "CODE_GENDER", Label: "CODE_GENDER", Kind: KindInt},
		{Name: "FLAG_OWN_CAR", Label: "FLAG_OWN_CAR", Kind: KindInt},
		{Name: "EXT_SOURCE_2", Label: "EXT_SOURCE_2", Kind: KindFloat},
		{Name: "EXT_SOURCE_1", Label: "EXT_SOURCE_1", Kind: KindFloat},
		{Name: "NAME_EDUCATION_TYPE_Highereducation", Label: "NAME_EDUCATION_TYPE_Highereducation", Kind: KindInt},
		{Name: "NAME_CONTRACT_TYPE_Cashloans", Label: "NAME_CONTRACT_TYPE_Cashloans", Kind: KindInt},
		{Name: "HOUR_APPR_PROCESS_START", Label: "HOUR_APPR_PROCESS_START", Kind: KindInt},
		{Name: "NAME_FAMILY_STATUS_Married", Label: "NAME_FAMILY_STATUS_Married", Kind: KindInt},
		{Name: "FLAG_PHONE", Label: "FLAG_PHONE", Kind: KindInt},
		{Name: "AMT_INCOME_TOTAL", Label: "AMT_INCOME_TOTAL", Kind: KindFloat},
		{Name: "AMT_CREDIT", Label: "AMT_CREDIT", Kind: KindFloat},
		{Name: "DAYS_REGISTRATION", Label: "DAYS_REGISTRATION", Kind: KindInt},
		{Name: "INCOME_CREDIT_PERC", Label: "INCOME_CREDIT_PERC", Kind: KindFloat},
		{Name: "FLAG_DOCUMENT_3", Label: "FLAG_DOCUMENT_3", Kind: KindInt},
		{Name: "EMERGENCYSTATE_MODE_No", Label: "EMERGENCYSTATE_MODE_No", Kind: KindInt},
		{Name: "WALLSMATERIAL_MODE_Panel", Label: "WALLSMATERIAL_MODE_Panel", Kind: KindInt},
	}}
}

// Names returns the feature names in schema order, without IDKey.
func (s Schema) Names() []string {
	names := make([]string, len(s.Features))
	for i, f := range s.Features {
		names[i] = f.Name
	}
	return names
}

// Validate reports ErrSchemaMismatch when the record keys are not exactly
// the schema features plus IDKey.
func (s Schema) Validate(r Record) error {
	want := make(map[string]struct{}, len(s.Features)+1)
	want[IDKey] = struct{}{}
	for _, f := range s.Features {
		want[f.Name] = struct{}{}
	}

	var missing, extra []string
	for _, k := range r.Keys() {
		if _, ok := want[k]; !ok {
			extra = append(extra, k)
		}
	}
	if _, ok := r[IDKey]; !ok {
		missing = append(missing, IDKey)
	}
	for _, f := range s.Features {
		if _, ok := r[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}

	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing=[%s] extra=[%s]", ErrSchemaMismatch,
		strings.Join(missing, ","), strings.Join(extra, ","))
}

// ParseForm builds a new-client record from submitted form strings.
// Blank values default to zero; int features reject decimals.
func (s Schema) ParseForm(get func(name string) string) (Record, error) {
	rec := Record{IDKey: NewClientID}
	for _, f := range s.Features {
		raw := strings.TrimSpace(get(f.Name))
		switch f.Kind {
		case KindFloat:
			if raw == "" {
				rec[f.Name] = 0.0
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: %s=%q", ErrInvalidValue, f.Name, raw)
			}
			rec[f.Name] = v
		default:
			if raw == "" {
				rec[f.Name] = int64(0)
				continue
			}
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s=%q", ErrInvalidValue, f.Name, raw)
			}
			rec[f.Name] = v
		}
	}
	return rec, nil
}
