// Package httpclient is the Scorer backed by the remote prediction service.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/creditscope/internal/domain/model"
	"github.com/okian/creditscope/internal/domain/scoring"
	"github.com/okian/creditscope/pkg/logger"
	"github.com/okian/creditscope/pkg/metrics"
	"github.com/okian/creditscope/pkg/requestid"
)

// Remote endpoints, relative to the base URL. ClassifyPath takes the bare
// record while ProbabilityPath takes a one-element list of records; both
// shapes are fixed by the remote service.
const (
	ClassifyPath    = "/predict/"
	ProbabilityPath = "/predict_proba/"

	// RequestIDHeader carries the id of the inbound request, or a fresh one,
	// for log correlation.
	RequestIDHeader = requestid.Header

	predictionKey  = "prediction"
	probabilityKey = "predicted_proba"

	maxBodyBytes = 1 << 20
)

var _ scoring.Scorer = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for call diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Client calls /predict/ and /predict_proba/ on a prediction service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

// New creates a client for baseURL with a per-call timeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// Classify posts the record as a bare JSON object to /predict/.
func (c *Client) Classify(ctx context.Context, rec model.Record) (res scoring.ScoreResult, err error) {
	defer c.observe(ctx, ClassifyPath, time.Now(), &err)

	body, status, err := c.post(ctx, scoring.OpClassify, ClassifyPath, rec)
	if err != nil {
		return scoring.ScoreResult{}, err
	}

	payload, err := decode(scoring.OpClassify, status, body)
	if err != nil {
		return scoring.ScoreResult{}, err
	}

	pred, ok := predictionFrom(payload)
	if !ok {
		return scoring.ScoreResult{}, &scoring.Error{
			Op:         scoring.OpClassify,
			Kind:       scoring.KindContract,
			StatusCode: status,
			Body:       compact(body),
			Msg:        "prediction unavailable",
		}
	}
	return scoring.NewScoreResult(pred), nil
}

// Probability posts the record wrapped in a single-element JSON array to
// /predict_proba/. The service expects the list form on this endpoint only;
// the shape differs from Classify on purpose and must not be unified here.
func (c *Client) Probability(ctx context.Context, rec model.Record) (res scoring.ProbabilityResult, err error) {
	defer c.observe(ctx, ProbabilityPath, time.Now(), &err)

	body, status, err := c.post(ctx, scoring.OpProbability, ProbabilityPath, []model.Record{rec})
	if err != nil {
		return scoring.ProbabilityResult{}, err
	}

	payload, err := decode(scoring.OpProbability, status, body)
	if err != nil {
		return scoring.ProbabilityResult{}, err
	}

	p, ok := probabilityFrom(payload)
	if !ok {
		return scoring.ProbabilityResult{}, &scoring.Error{
			Op:         scoring.OpProbability,
			Kind:       scoring.KindContract,
			StatusCode: status,
			Body:       compact(body),
			Msg:        "probability unavailable",
		}
	}
	return scoring.ProbabilityResult{Probability: p}, nil
}

// post sends payload and returns the raw body and status. Only transport and
// local encoding failures are reported here.
func (c *Client) post(ctx context.Context, op, path string, payload any) ([]byte, int, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, &scoring.Error{Op: op, Kind: scoring.KindInvalidRecord, Msg: "encode record", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, 0, &scoring.Error{Op: op, Kind: scoring.KindTransport, Msg: "create request", Err: err}
	}
	requestID := requestid.Ensure(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &scoring.Error{Op: op, Kind: scoring.KindTransport, Msg: "send request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, &scoring.Error{
			Op: op, Kind: scoring.KindTransport, StatusCode: resp.StatusCode, Msg: "read response", Err: err,
		}
	}

	c.log.Debug(ctx, "scoring response received",
		logger.String("path", path),
		logger.String("request_id", requestID),
		logger.Int("status", resp.StatusCode),
	)
	return body, resp.StatusCode, nil
}

// observe logs and records the outcome of one remote call.
func (c *Client) observe(ctx context.Context, path string, start time.Time, errp *error) {
	endpoint := strings.Trim(path, "/")
	elapsed := time.Since(start)

	outcome := metrics.OutcomeSuccess
	if err := *errp; err != nil {
		outcome = "error"
		if kind, ok := scoring.KindOf(err); ok {
			outcome = string(kind)
		}
		c.log.Warn(ctx, "scoring call failed",
			logger.String("endpoint", endpoint),
			logger.String("kind", outcome),
			logger.Duration("elapsed", elapsed),
			logger.Error(err),
		)
	} else {
		c.log.Debug(ctx, "scoring call succeeded",
			logger.String("endpoint", endpoint),
			logger.Duration("elapsed", elapsed),
		)
	}
	metrics.RecordScoringCall(endpoint, outcome, float64(elapsed.Milliseconds()))
}

// decode parses the body first and checks the status second, so a non-JSON
// error page reports as a decode failure with its raw text.
func decode(op string, status int, body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, &scoring.Error{Op: op, Kind: scoring.KindDecode, StatusCode: status, Body: string(body), Err: err}
	}
	if dec.More() {
		return nil, &scoring.Error{Op: op, Kind: scoring.KindDecode, StatusCode: status, Body: string(body),
			Err: errors.New("trailing data after JSON value")}
	}

	if status != http.StatusOK {
		return nil, &scoring.Error{Op: op, Kind: scoring.KindStatus, StatusCode: status, Body: compact(body)}
	}
	return payload, nil
}

func predictionFrom(payload any) (scoring.Prediction, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return 0, false
	}
	n, ok := obj[predictionKey].(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	p := scoring.Prediction(int(f))
	if float64(p) != f || !p.Valid() {
		return 0, false
	}
	return p, true
}

func probabilityFrom(payload any) (float64, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return 0, false
	}
	list, ok := obj[probabilityKey].([]any)
	if !ok || len(list) == 0 {
		return 0, false
	}
	n, ok := list[0].(json.Number)
	if !ok {
		return 0, false
	}
	p, err := n.Float64()
	if err != nil || p < 0 || p > 1 {
		return 0, false
	}
	return p, true
}

func compact(body []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return string(body)
	}
	return buf.String()
}
