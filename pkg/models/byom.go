package models

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/tidwall/gjson"
)

// DefaultValuePath is where the prediction is read from in a BYOM response.
const DefaultValuePath = "prediction"

// BYOMModel delegates predictions to an external HTTP service, so any model
// stack can be plugged in as long as it accepts the request below and returns
// a number at ValuePath.
//
// Request:
//
//	{"features": {"atemp": 0.63, ...}, "vector": [0.63, ...]}
//
// The features object is only sent when feature names are configured.
type BYOMModel struct {
	endpoint  string
	valuePath string
	names     []string
	client    *http.Client
	cb        *gobreaker.CircuitBreaker[float64]
	logger    *slog.Logger
}

// BYOMOptions configures a BYOMModel. Zero values select the defaults.
type BYOMOptions struct {
	// ValuePath is a gjson path into the response body.
	ValuePath string

	// Timeout bounds each HTTP call.
	Timeout time.Duration

	// FeatureNames labels vector positions in the request.
	FeatureNames []string

	// FailureThreshold is the number of consecutive failures that opens the
	// breaker.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration

	Logger *slog.Logger
}

type byomRequest struct {
	Features map[string]float64 `json:"features,omitempty"`
	Vector   []float64          `json:"vector"`
}

// NewBYOMModel creates a remote regressor calling endpoint.
func NewBYOMModel(endpoint string, opts BYOMOptions) *BYOMModel {
	if opts.ValuePath == "" {
		opts.ValuePath = DefaultValuePath
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	m := &BYOMModel{
		endpoint:  endpoint,
		valuePath: opts.ValuePath,
		names:     append([]string(nil), opts.FeatureNames...),
		logger:    opts.Logger,
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		},
	}

	threshold := opts.FailureThreshold
	m.cb = gobreaker.NewCircuitBreaker[float64](gobreaker.Settings{
		Name:        "byom:" + endpoint,
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// The caller giving up is not the remote's fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.logger.Warn("byom circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return m
}

func (m *BYOMModel) Name() string { return "byom" }

func (m *BYOMModel) NumFeatures() int { return len(m.names) }

func (m *BYOMModel) FeatureNames() []string { return append([]string(nil), m.names...) }

// State returns the circuit breaker state.
func (m *BYOMModel) State() gobreaker.State { return m.cb.State() }

// Predict posts x to the remote service. When the breaker is open it fails
// fast with an error wrapping gobreaker.ErrOpenState.
func (m *BYOMModel) Predict(ctx context.Context, x []float64) (float64, error) {
	if len(x) == 0 {
		return 0, fmt.Errorf("byom: features cannot be empty")
	}
	if err := checkLen("byom", len(m.names), x); err != nil {
		return 0, err
	}

	v, err := m.cb.Execute(func() (float64, error) {
		return m.call(ctx, x)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, fmt.Errorf("byom: remote unavailable: %w", err)
		}
		return 0, err
	}
	return v, nil
}

func (m *BYOMModel) call(ctx context.Context, x []float64) (float64, error) {
	req := byomRequest{Vector: x}
	if len(m.names) > 0 {
		req.Features = make(map[string]float64, len(m.names))
		for i, name := range m.names {
			req.Features[name] = x[i]
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("byom: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("byom: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("byom: http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("byom: http %d: %s", resp.StatusCode, string(bodyBytes))
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("byom: read response: %w", err)
	}
	if !gjson.ValidBytes(respBody) {
		return 0, fmt.Errorf("byom: response is not valid JSON")
	}

	res := gjson.GetBytes(respBody, m.valuePath)
	if res.Type != gjson.Number {
		return 0, fmt.Errorf("byom: no number at %q in response", m.valuePath)
	}
	return res.Float(), nil
}
