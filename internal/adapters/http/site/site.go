// Package site renders the operator dashboard: home, prediction with
// explainability, client visualization and the dataset analysis views.
package site

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/okian/creditscope/internal/adapters/dataset"
	service "github.com/okian/creditscope/internal/app"
	"github.com/okian/creditscope/internal/domain/explain"
	"github.com/okian/creditscope/internal/domain/gauge"
	"github.com/okian/creditscope/internal/domain/model"
	"github.com/okian/creditscope/pkg/logger"
	"github.com/okian/creditscope/pkg/metrics"
)

// Error constants
var (
	ErrTemplate = errors.New("site template failed")
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Dependencies are the service calls the pages need.
type Dependencies interface {
	ClientIDs() []int64
	Client(id int64) (model.Record, error)
	Columns() []string
	Summary() []dataset.ColumnSummary
	Predict(ctx context.Context, rec model.Record) service.Outcome
	PredictExisting(ctx context.Context, id int64) (service.Outcome, error)
	GlobalImportance() []explain.Importance
	Schema() model.Schema
	Gauge() gauge.Gauge
}

// Site holds the parsed page templates.
type Site struct {
	deps  Dependencies
	pages map[string]*template.Template
	log   logger.Logger
}

// Option configures a Site.
type Option func(*Site)

// WithLogger sets the logger used for render failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Site) {
		if l != nil {
			s.log = l
		}
	}
}

var pageFiles = []string{"home.html", "predict.html", "clients.html", "analysis.html"}

// New parses the embedded templates.
func New(deps Dependencies, opts ...Option) (*Site, error) {
	s := &Site{deps: deps, pages: make(map[string]*template.Template, len(pageFiles)), log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	for _, page := range pageFiles {
		t, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTemplate, page, err)
		}
		s.pages[page] = t
	}
	return s, nil
}

// Register attaches the dashboard routes to mux.
func (s *Site) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /{$}", s.wrap(s.handleHome, "site_home"))
	mux.HandleFunc("GET /predict", s.wrap(s.handlePredictForm, "site_predict"))
	mux.HandleFunc("POST /predict", s.wrap(s.handlePredictSubmit, "site_predict"))
	mux.HandleFunc("GET /clients", s.wrap(s.handleClients, "site_clients"))
	mux.HandleFunc("GET /analysis", s.wrap(s.handleAnalysis, "site_analysis"))

	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		sub = staticFS
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
}

// wrap records request metrics with the same labels as the JSON API.
func (s *Site) wrap(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := nowMillis()
		next(rec, r)
		metrics.RecordHTTPRequest(endpoint, r.Method, fmt.Sprint(rec.status), nowMillis()-start)
	}
}

// render executes a page into a buffer first so a template error never
// leaves a half-written response.
func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	t, ok := s.pages[page]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.Error(r.Context(), "render page failed", logger.String("page", page), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
