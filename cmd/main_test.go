package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/creditscope/internal/adapters/http/api"
	"github.com/okian/creditscope/internal/adapters/scoring/httpclient"
	"github.com/okian/creditscope/internal/adapters/scoring/stub"
	"github.com/okian/creditscope/internal/config"
	"github.com/okian/creditscope/internal/domain/gauge"
	"github.com/okian/creditscope/internal/domain/model"
	"github.com/okian/creditscope/pkg/logger"
	"github.com/okian/creditscope/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func datasetCSV() string {
	names := append([]string{model.IDKey}, model.DefaultSchema().Names()...)
	row := make([]string, len(names))
	row[0] = "100002"
	for i := 1; i < len(row); i++ {
		row[i] = "0"
	}
	return strings.Join(names, ",") + "\n" + strings.Join(row, ",") + "\n"
}

const explanationsYAML = `expected_value: -0.2
features: [EXT_SOURCE_2, DAYS_BIRTH]
rows:
  100002: [0.4, -0.1]
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadContext(t *testing.T) {
	convey.Convey("Given a configuration with both data files", t, func() {
		cfg := config.New(context.Background())
		cfg.DatasetPath = writeTemp(t, "clients.csv", datasetCSV())
		cfg.ExplanationsPath = writeTemp(t, "shap.yaml", explanationsYAML)

		convey.Convey("When the startup context is loaded", func() {
			appCtx, err := loadContext(context.Background(), cfg)

			convey.Convey("Then the dataset and the attributions should be available", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(appCtx.Dataset.Len(), convey.ShouldEqual, 1)
				convey.So(appCtx.Explanations.Has(100002), convey.ShouldBeTrue)
				convey.So(appCtx.Gauge.Threshold(), convey.ShouldEqual, gauge.DefaultThreshold)
			})
		})

		convey.Convey("When no attribution file is configured", func() {
			cfg.ExplanationsPath = ""
			appCtx, err := loadContext(context.Background(), cfg)

			convey.Convey("Then explanations should be absent", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(appCtx.Explanations, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the dataset is missing", func() {
			cfg.DatasetPath = filepath.Join(t.TempDir(), "missing.csv")
			_, err := loadContext(context.Background(), cfg)

			convey.Convey("Then startup should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the threshold overlaps the fixed bands", func() {
			cfg.Gauge.Threshold = 40
			_, err := loadContext(context.Background(), cfg)

			convey.Convey("Then startup should fail", func() {
				convey.So(errors.Is(err, gauge.ErrInvalidThreshold), convey.ShouldBeTrue)
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the wired handler and a stub scoring service", t, func() {
		remote := httptest.NewServer(stub.New().Handler())
		defer remote.Close()

		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.DatasetPath = writeTemp(t, "clients.csv", datasetCSV())
		cfg.ExplanationsPath = writeTemp(t, "shap.yaml", explanationsYAML)

		appCtx, err := loadContext(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)

		handler, err := newHandler(ctx, cfg, appCtx, httpclient.New(remote.URL, cfg.Scoring.Timeout), logger.Nop())
		convey.So(err, convey.ShouldBeNil)

		serve := func(req *http.Request) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			return w
		}

		convey.Convey("Then the health, docs and dashboard routes should answer", func() {
			for _, path := range []string{"/healthz", "/api-docs", "/openapi.yaml", "/", "/predict", "/analysis"} {
				w := serve(httptest.NewRequest(http.MethodGet, path, nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get(api.RequestIDHeader), convey.ShouldNotBeEmpty)
			}
		})

		convey.Convey("When an existing client is predicted through the API", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(`{"client_id":100002}`))
			req.Header.Set("Content-Type", "application/json")
			w := serve(req)

			convey.Convey("Then the outcome should carry the decision and the waterfall", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				var body map[string]any
				convey.So(json.Unmarshal(w.Body.Bytes(), &body), convey.ShouldBeNil)
				convey.So(body["state"], convey.ShouldEqual, "succeeded")
				convey.So(body, convey.ShouldContainKey, "score")
				convey.So(body, convey.ShouldContainKey, "waterfall")
			})
		})
	})
}

func TestMetricsOptions(t *testing.T) {
	convey.Convey("Given a metrics section with a namespace and an env label", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.DatasetPath = writeTemp(t, "clients.csv", datasetCSV())
		cfg.Metrics.Namespace = "scoring"
		cfg.Metrics.Labels = map[string]string{"env": "staging"}

		metrics.Configure(metricsOptions(cfg.Metrics)...)
		convey.Reset(func() { metrics.Configure() })

		appCtx, err := loadContext(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		handler, err := newHandler(ctx, cfg, appCtx, httpclient.New("http://127.0.0.1:1", cfg.Scoring.Timeout), logger.Nop())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When /metrics is scraped", func() {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			convey.Convey("Then the series carry the configured name and label", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `scoring_dashboard_dataset_rows{env="staging"} 1`)
			})
		})
	})
}
