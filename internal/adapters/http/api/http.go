// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	service "github.com/okian/creditscope/internal/app"
	"github.com/okian/creditscope/internal/domain/explain"
	"github.com/okian/creditscope/internal/domain/scoring"
)

// Prefix is the base path of the versioned JSON API.
const Prefix = "/api/v1"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ClientDependencies
	PredictDependencies
	ExplanationDependencies
	SchemaDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	clientsHandler     *ClientsHandler
	predictHandler     *PredictHandler
	explanationHandler *ExplanationHandler
	schemaHandler      *SchemaHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		clientsHandler:     NewClientsHandler(deps),
		predictHandler:     NewPredictHandler(deps),
		explanationHandler: NewExplanationHandler(deps),
		schemaHandler:      NewSchemaHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET "+Prefix+"/clients", MetricsMiddleware(s.clientsHandler.HandleList, "clients"))
	mux.HandleFunc("GET "+Prefix+"/clients/{id}", MetricsMiddleware(s.clientsHandler.HandleGet, "client"))
	mux.HandleFunc("GET "+Prefix+"/clients/{id}/explanation", MetricsMiddleware(s.explanationHandler.HandleClient, "explanation"))
	mux.HandleFunc("GET "+Prefix+"/explanations/summary", MetricsMiddleware(s.explanationHandler.HandleSummary, "explanations_summary"))
	mux.HandleFunc("POST "+Prefix+"/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("GET "+Prefix+"/schema", MetricsMiddleware(s.schemaHandler.HandleSchema, "schema"))
	mux.HandleFunc("GET "+Prefix+"/gauge", MetricsMiddleware(s.schemaHandler.HandleGauge, "gauge"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeLookupError maps service lookup failures to 404 or 500.
func writeLookupError(w http.ResponseWriter, op string, err error) {
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
}

// isNotFound reports the not-found sentinels of the service and domain layers.
func isNotFound(err error) bool {
	return errors.Is(err, service.ErrClientNotFound) ||
		errors.Is(err, explain.ErrNoExplanation) ||
		errors.Is(err, ErrNotFound)
}

// statusForScoring maps a scoring failure kind to an HTTP status and code.
// Local record rejections are the caller's fault; everything else is upstream.
func statusForScoring(kind scoring.Kind) (int, string) {
	if kind == scoring.KindInvalidRecord {
		return http.StatusBadRequest, "invalid_record"
	}
	return http.StatusBadGateway, "upstream_" + string(kind)
}

// pathID parses the {id} path value as a client id.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
