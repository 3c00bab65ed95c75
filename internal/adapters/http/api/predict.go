package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/creditscope/internal/app"
	"github.com/okian/creditscope/internal/domain/model"
)

const maxPredictBodyBytes = 1 << 20

// PredictDependencies defines the prediction use cases.
type PredictDependencies interface {
	Predict(ctx context.Context, rec model.Record) service.Outcome
	PredictExisting(ctx context.Context, id int64) (service.Outcome, error)
}

// PredictHandler handles prediction requests.
type PredictHandler struct {
	deps PredictDependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps PredictDependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// predictRequest selects an existing client or carries a full record.
type predictRequest struct {
	ClientID *int64       `json:"client_id,omitempty"`
	Record   model.Record `json:"record,omitempty"`
}

func (p predictRequest) validate() error {
	switch {
	case p.ClientID == nil && p.Record == nil:
		return errors.New("one of client_id or record is required")
	case p.ClientID != nil && p.Record != nil:
		return errors.New("client_id and record are mutually exclusive")
	}
	return nil
}

type upstreamError struct {
	Code       string `json:"code"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
}

type predictResponse struct {
	service.Outcome
	Error *upstreamError `json:"error,omitempty"`
}

// HandlePredict handles POST /api/v1/predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	var req predictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPredictBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var out service.Outcome
	if req.ClientID != nil {
		var err error
		out, err = h.deps.PredictExisting(r.Context(), *req.ClientID)
		if err != nil {
			writeLookupError(w, op, err)
			return
		}
	} else {
		out = h.deps.Predict(r.Context(), req.Record)
	}

	if out.Err == nil {
		writeJSON(w, http.StatusOK, predictResponse{Outcome: out})
		return
	}

	status, code := statusForScoring(out.Err.Kind)
	writeJSON(w, status, predictResponse{
		Outcome: out,
		Error: &upstreamError{
			Code:       code,
			Kind:       string(out.Err.Kind),
			Message:    out.Err.Message(),
			StatusCode: out.Err.StatusCode,
			Body:       out.Err.Body,
		},
	})
}
