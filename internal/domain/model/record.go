// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"sort"
	"strconv"
)

// IDKey is the reserved record key that identifies a client.
const IDKey = "SK_ID_CURR"

// NewClientID marks a client entered through the form and not yet saved.
const NewClientID int64 = -1

// Record is one applicant as a flat feature -> value mapping. Values are
// int64, float64, string or nil (missing cell, encoded as JSON null).
type Record map[string]any

// ID returns the client identifier held under IDKey.
func (r Record) ID() (int64, bool) {
	switch v := r[IDKey].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

// Keys returns the record keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy safe to mutate.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Float returns the value under key as a float64 when it is numeric.
func (r Record) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// FormatValue renders a record value for display.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
