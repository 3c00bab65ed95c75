package api

import (
	"net/http"

	"github.com/okian/creditscope/internal/domain/explain"
)

// ExplanationDependencies defines the attribution queries.
type ExplanationDependencies interface {
	Explanation(id int64) (explain.Waterfall, error)
	GlobalImportance() []explain.Importance
}

// ExplanationHandler handles attribution requests.
type ExplanationHandler struct {
	deps ExplanationDependencies
}

// NewExplanationHandler creates a new explanation handler.
func NewExplanationHandler(deps ExplanationDependencies) *ExplanationHandler {
	return &ExplanationHandler{deps: deps}
}

// HandleClient handles GET /api/v1/clients/{id}/explanation requests.
func (h *ExplanationHandler) HandleClient(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_explanation"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	wf, err := h.deps.Explanation(id)
	if err != nil {
		writeLookupError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

type summaryResponse struct {
	Features []explain.Importance `json:"features"`
}

// HandleSummary handles GET /api/v1/explanations/summary requests.
func (h *ExplanationHandler) HandleSummary(w http.ResponseWriter, _ *http.Request) {
	const op = "api.explanation_summary"
	summary := h.deps.GlobalImportance()
	if summary == nil {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Features: summary})
}
