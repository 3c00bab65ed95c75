package api

import (
	"net/http"

	"github.com/okian/creditscope/internal/domain/model"
)

// ClientDependencies defines the dataset lookups.
type ClientDependencies interface {
	ClientIDs() []int64
	Client(id int64) (model.Record, error)
}

// ClientsHandler handles client listing and lookup.
type ClientsHandler struct {
	deps ClientDependencies
}

// NewClientsHandler creates a new clients handler.
func NewClientsHandler(deps ClientDependencies) *ClientsHandler {
	return &ClientsHandler{deps: deps}
}

type clientListResponse struct {
	Count int     `json:"count"`
	IDs   []int64 `json:"ids"`
}

// HandleList handles GET /api/v1/clients requests.
func (h *ClientsHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	ids := h.deps.ClientIDs()
	writeJSON(w, http.StatusOK, clientListResponse{Count: len(ids), IDs: ids})
}

// HandleGet handles GET /api/v1/clients/{id} requests.
func (h *ClientsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_client"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := h.deps.Client(id)
	if err != nil {
		writeLookupError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
