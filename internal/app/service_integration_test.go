package service_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/okian/creditscope/internal/adapters/scoring/httpclient"
	service "github.com/okian/creditscope/internal/app"
	"github.com/okian/creditscope/internal/domain/model"
	"github.com/okian/creditscope/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

// remote mimics the prediction service and records every request body.
type remote struct {
	mu       sync.Mutex
	bodies   map[string][]string
	classify func(w http.ResponseWriter)
}

func newRemote() *remote {
	return &remote{
		bodies: map[string][]string{},
		classify: func(w http.ResponseWriter) {
			_, _ = io.WriteString(w, `{"prediction": 1}`)
		},
	}
}

func (r *remote) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.bodies[req.URL.Path] = append(r.bodies[req.URL.Path], string(body))
	classify := r.classify
	r.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch req.URL.Path {
	case httpclient.ClassifyPath:
		classify(w)
	case httpclient.ProbabilityPath:
		_, _ = io.WriteString(w, `{"predicted_proba": [0.73]}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (r *remote) calls(path string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.bodies[path]...)
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a dataset with client 100002 and a remote prediction service", t, func() {
		rm := newRemote()
		server := httptest.NewServer(rm)
		defer server.Close()

		svc := service.New(testContext(true), httpclient.New(server.URL, 2*time.Second))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Convey("When the client is submitted for prediction", func() {
			out, err := svc.PredictExisting(ctx, 100002)
			So(err, ShouldBeNil)

			Convey("Then the classification endpoint is called once with the full row", func() {
				calls := rm.calls(httpclient.ClassifyPath)
				So(calls, ShouldHaveLength, 1)

				var sent map[string]any
				So(json.Unmarshal([]byte(calls[0]), &sent), ShouldBeNil)
				So(sent, ShouldHaveLength, len(model.DefaultSchema().Features)+1)
				So(sent[model.IDKey], ShouldEqual, 100002.0)
				So(sent["EXT_SOURCE_3"], ShouldEqual, 0.5)
			})

			Convey("And the probability endpoint is called once with a one-element list", func() {
				calls := rm.calls(httpclient.ProbabilityPath)
				So(calls, ShouldHaveLength, 1)

				var sent []map[string]any
				So(json.Unmarshal([]byte(calls[0]), &sent), ShouldBeNil)
				So(sent, ShouldHaveLength, 1)
				So(sent[0][model.IDKey], ShouldEqual, 100002.0)
			})

			Convey("And the outcome carries decision, probability and waterfall", func() {
				So(out.State, ShouldEqual, service.StateSucceeded)
				So(out.Score.Decision, ShouldEqual, scoring.DecisionRefused)
				So(out.Probability.Probability, ShouldEqual, 0.73)
				So(out.Gauge.Value, ShouldAlmostEqual, 73, 1e-9)
				So(out.Waterfall, ShouldNotBeNil)
			})
		})

		Convey("When the classification fails", func() {
			rm.mu.Lock()
			rm.classify = func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"detail": "model unavailable"}`)
			}
			rm.mu.Unlock()
			out, err := svc.PredictExisting(ctx, 100002)
			So(err, ShouldBeNil)

			Convey("Then the probability endpoint is never called", func() {
				So(rm.calls(httpclient.ClassifyPath), ShouldHaveLength, 1)
				So(rm.calls(httpclient.ProbabilityPath), ShouldBeEmpty)
				So(out.State, ShouldEqual, service.StateFailed)
				So(out.Err.Kind, ShouldEqual, scoring.KindStatus)
				So(out.Err.StatusCode, ShouldEqual, http.StatusInternalServerError)
				So(out.Waterfall, ShouldBeNil)
			})
		})
	})
}
