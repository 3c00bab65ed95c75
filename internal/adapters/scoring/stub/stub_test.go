package stub_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/creditscope/internal/adapters/scoring/httpclient"
	"github.com/okian/creditscope/internal/adapters/scoring/stub"
	"github.com/okian/creditscope/internal/domain/model"
	"github.com/okian/creditscope/internal/domain/scoring"
)

func riskyRecord() model.Record {
	return model.Record{model.IDKey: int64(100002), "EXT_SOURCE_2": 0.05, "EXT_SOURCE_3": 0.1}
}

func safeRecord() model.Record {
	return model.Record{model.IDKey: int64(100003), "EXT_SOURCE_1": 0.9, "EXT_SOURCE_2": 0.8, "EXT_SOURCE_3": 0.85}
}

func TestScoring(t *testing.T) {
	Convey("Given a stub with default weights", t, func() {
		s := stub.New()

		Convey("Then the probability is deterministic and bounded", func() {
			p1 := s.Probability(riskyRecord())
			So(s.Probability(riskyRecord()), ShouldEqual, p1)
			So(p1, ShouldBeGreaterThan, 0.0)
			So(p1, ShouldBeLessThan, 1.0)
		})

		Convey("Then good external scores lower the risk", func() {
			So(s.Probability(safeRecord()), ShouldBeLessThan, s.Probability(riskyRecord()))
			So(s.Prediction(riskyRecord()), ShouldEqual, 1)
			So(s.Prediction(safeRecord()), ShouldEqual, 0)
		})
	})

	Convey("Given a stub with custom weights and threshold", t, func() {
		s := stub.New(stub.WithWeights(map[string]float64{"X": 1}, 0), stub.WithThreshold(0.9))

		Convey("Then a missing feature sits at the midpoint", func() {
			So(s.Probability(model.Record{"X": nil}), ShouldEqual, 0.5)
		})

		Convey("Then the raised threshold approves", func() {
			So(s.Prediction(model.Record{"X": 1.0}), ShouldEqual, 0)
		})
	})
}

func TestClientContract(t *testing.T) {
	Convey("Given the stub served over HTTP", t, func() {
		server := httptest.NewServer(stub.New().Handler())
		defer server.Close()

		client := httpclient.New(server.URL, 2*time.Second)
		ctx := context.Background()

		Convey("When records are classified", func() {
			risky, err := client.Classify(ctx, riskyRecord())
			So(err, ShouldBeNil)
			safe, err := client.Classify(ctx, safeRecord())
			So(err, ShouldBeNil)

			Convey("Then the decisions follow the risk", func() {
				So(risky.Decision, ShouldEqual, scoring.DecisionRefused)
				So(safe.Decision, ShouldEqual, scoring.DecisionApproved)
			})
		})

		Convey("When a probability is requested", func() {
			res, err := client.Probability(ctx, riskyRecord())

			Convey("Then it matches the local computation", func() {
				So(err, ShouldBeNil)
				So(res.Probability, ShouldAlmostEqual, stub.New().Probability(riskyRecord()), 1e-12)
			})
		})
	})
}

func TestRejectsWrongShapes(t *testing.T) {
	Convey("Given the stub served over HTTP", t, func() {
		server := httptest.NewServer(stub.New().Handler())
		defer server.Close()

		status := func(path, body string) int {
			resp, err := http.Post(server.URL+path, "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			return resp.StatusCode
		}

		Convey("Then a list on /predict/ is rejected", func() {
			So(status("/predict/", `[{"EXT_SOURCE_1": 0.5}]`), ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("Then an object on /predict_proba/ is rejected", func() {
			So(status("/predict_proba/", `{"EXT_SOURCE_1": 0.5}`), ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("Then an empty list on /predict_proba/ is rejected", func() {
			So(status("/predict_proba/", `[]`), ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("Then GET is not routed", func() {
			resp, err := http.Get(server.URL + "/predict/")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestLatency(t *testing.T) {
	Convey("Given a stub with a simulated latency", t, func() {
		s := stub.New(stub.WithLatencyRange(20*time.Millisecond, 30*time.Millisecond))
		server := httptest.NewServer(s.Handler())
		defer server.Close()

		start := time.Now()
		_, err := httpclient.New(server.URL, time.Second).Classify(context.Background(), safeRecord())

		Convey("Then the answer waits at least the lower bound", func() {
			So(err, ShouldBeNil)
			So(time.Since(start), ShouldBeGreaterThanOrEqualTo, 20*time.Millisecond)
		})
	})
}
