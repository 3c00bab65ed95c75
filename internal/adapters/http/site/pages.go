package site

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/okian/creditscope/internal/adapters/dataset"
	service "github.com/okian/creditscope/internal/app"
	"github.com/okian/creditscope/internal/domain/explain"
	"github.com/okian/creditscope/internal/domain/gauge"
	"github.com/okian/creditscope/internal/domain/scoring"
)

// Prediction modes of the predict page.
const (
	modeExisting = "existing"
	modeNew      = "new"
)

type page struct {
	Title  string
	Active string
}

type homePage struct {
	page
	Clients   int
	Threshold float64
}

type predictPage struct {
	page
	Mode     string
	IDs      []int64
	Selected int64
	// Client is shown when the operator asks for the record of the selection.
	Client []attribute
	Fields []formField
	Error  string
	Result *predictResult
}

type predictResult struct {
	ClientID    int64
	Decision    scoring.Decision
	Refused     bool
	Prediction  int
	Probability float64
	Gauge       gauge.View
	Waterfall   *waterfallView
	Importance  []explain.Importance
	// Scored is set once a decision exists, even if the probability failed.
	Scored  bool
	Message string
	// Detail is the raw upstream body of an unparseable response.
	Detail string
}

type clientsPage struct {
	page
	IDs      []int64
	Selected int64
	Client   []attribute
	Error    string
}

type analysisPage struct {
	page
	Rows       int
	Columns    []dataset.ColumnSummary
	Importance []explain.Importance
}

func (s *Site) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home.html", homePage{
		page:      page{Title: "Accueil", Active: "home"},
		Clients:   len(s.deps.ClientIDs()),
		Threshold: s.deps.Gauge().Threshold(),
	})
}

func (s *Site) predictPage(mode string) predictPage {
	if mode != modeNew {
		mode = modeExisting
	}
	p := predictPage{
		page: page{Title: "Prédiction", Active: "predict"},
		Mode: mode,
		IDs:  s.deps.ClientIDs(),
	}
	if mode == modeNew {
		p.Fields = formFields(s.deps.Schema(), nil)
	}
	return p
}

func (s *Site) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := s.predictPage(q.Get("mode"))

	if p.Mode == modeExisting {
		p.Selected = s.selected(q.Get("id"), p.IDs)
		if q.Get("show") != "" && p.Selected != 0 {
			rec, err := s.deps.Client(p.Selected)
			if err != nil {
				p.Error = "Client introuvable."
				s.render(w, r, http.StatusNotFound, "predict.html", p)
				return
			}
			p.Client = attributes(rec)
		}
	}
	s.render(w, r, http.StatusOK, "predict.html", p)
}

func (s *Site) handlePredictSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		p := s.predictPage(modeExisting)
		p.Error = "Formulaire invalide."
		s.render(w, r, http.StatusBadRequest, "predict.html", p)
		return
	}

	p := s.predictPage(r.PostFormValue("mode"))
	var out service.Outcome

	switch p.Mode {
	case modeNew:
		p.Fields = formFields(s.deps.Schema(), r.PostFormValue)
		rec, err := s.deps.Schema().ParseForm(r.PostFormValue)
		if err != nil {
			p.Error = "Valeurs invalides : " + err.Error()
			s.render(w, r, http.StatusBadRequest, "predict.html", p)
			return
		}
		out = s.deps.Predict(r.Context(), rec)
	default:
		id, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("client_id")), 10, 64)
		if err != nil {
			p.Error = "Identifiant client invalide."
			s.render(w, r, http.StatusBadRequest, "predict.html", p)
			return
		}
		p.Selected = id
		out, err = s.deps.PredictExisting(r.Context(), id)
		if errors.Is(err, service.ErrClientNotFound) {
			p.Error = "Client introuvable."
			s.render(w, r, http.StatusNotFound, "predict.html", p)
			return
		}
		if err != nil {
			p.Error = err.Error()
			s.render(w, r, http.StatusInternalServerError, "predict.html", p)
			return
		}
	}

	p.Result = s.result(out)
	s.render(w, r, http.StatusOK, "predict.html", p)
}

// maxDetailBytes caps the raw upstream body shown under a decode failure.
const maxDetailBytes = 4 << 10

// result keeps the decision when only the probability call failed. The
// probability, gauge and explanation appear only after both calls succeeded.
func (s *Site) result(out service.Outcome) *predictResult {
	res := &predictResult{ClientID: out.ClientID}
	if out.Score != nil {
		res.Scored = true
		res.Decision = out.Score.Decision
		res.Refused = out.Score.Prediction == scoring.PredictionRefused
		res.Prediction = int(out.Score.Prediction)
	}

	if out.State != service.StateSucceeded {
		res.Message = "La prédiction n'est pas disponible."
		if out.Err != nil {
			res.Message = out.Err.Message()
			if out.Err.Kind == scoring.KindDecode {
				res.Detail = truncate(out.Err.Body, maxDetailBytes)
			}
		}
		return res
	}

	res.Probability = out.Probability.Percent()
	res.Gauge = out.Gauge
	res.Waterfall = newWaterfallView(out.Waterfall)
	if out.Waterfall != nil {
		res.Importance = s.deps.GlobalImportance()
	}
	return res
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func (s *Site) handleClients(w http.ResponseWriter, r *http.Request) {
	p := clientsPage{
		page: page{Title: "Clients", Active: "clients"},
		IDs:  s.deps.ClientIDs(),
	}
	p.Selected = s.selected(r.URL.Query().Get("id"), p.IDs)

	if p.Selected != 0 {
		rec, err := s.deps.Client(p.Selected)
		if err != nil {
			p.Error = "Client introuvable."
			s.render(w, r, http.StatusNotFound, "clients.html", p)
			return
		}
		p.Client = attributes(rec)
	}
	s.render(w, r, http.StatusOK, "clients.html", p)
}

func (s *Site) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "analysis.html", analysisPage{
		page:       page{Title: "Analyse", Active: "analysis"},
		Rows:       len(s.deps.ClientIDs()),
		Columns:    s.deps.Summary(),
		Importance: s.deps.GlobalImportance(),
	})
}

// selected parses the id query value, falling back to the first client.
// Unparseable input yields 0 which selects nothing.
func (s *Site) selected(raw string, ids []int64) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if len(ids) > 0 {
			return ids[0]
		}
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
