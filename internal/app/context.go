package service

import (
	"github.com/okian/creditscope/internal/adapters/dataset"
	"github.com/okian/creditscope/internal/domain/explain"
	"github.com/okian/creditscope/internal/domain/gauge"
	"github.com/okian/creditscope/internal/domain/model"
)

// Context is the read-only state loaded once at startup and shared by every
// request. Explanations may be nil when no attribution export is configured.
type Context struct {
	Dataset      *dataset.Dataset
	Explanations *explain.Set
	Schema       model.Schema
	Gauge        gauge.Gauge
}
