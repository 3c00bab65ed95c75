package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/okian/creditscope/internal/domain/gauge"
	"github.com/okian/creditscope/internal/domain/model"
)

// SchemaDependencies exposes the model contract and the gauge.
type SchemaDependencies interface {
	Schema() model.Schema
	Gauge() gauge.Gauge
}

// SchemaHandler handles schema and gauge requests.
type SchemaHandler struct {
	deps SchemaDependencies
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(deps SchemaDependencies) *SchemaHandler {
	return &SchemaHandler{deps: deps}
}

type schemaResponse struct {
	IDKey       string          `json:"id_key"`
	NewClientID int64           `json:"new_client_id"`
	Features    []model.Feature `json:"features"`
}

// HandleSchema handles GET /api/v1/schema requests.
func (h *SchemaHandler) HandleSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, schemaResponse{
		IDKey:       model.IDKey,
		NewClientID: model.NewClientID,
		Features:    h.deps.Schema().Features,
	})
}

// HandleGauge handles GET /api/v1/gauge?probability=p requests. A missing
// probability renders the empty gauge.
func (h *SchemaHandler) HandleGauge(w http.ResponseWriter, r *http.Request) {
	const op = "api.gauge"
	raw := r.URL.Query().Get("probability")
	if raw == "" {
		writeJSON(w, http.StatusOK, h.deps.Gauge().Render(nil))
		return
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(p) || p < 0 || p > 1 {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, fmt.Errorf("probability must be a number in [0,1], got %q", raw)))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Gauge().Render(&p))
}
