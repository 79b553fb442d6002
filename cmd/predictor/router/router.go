// Package router configures HTTP routes for the predictor's HTTP API.
//
// Routes configured:
//   - POST /predictions/daily - Predict daily rentals from a JSON record
//   - POST /predictions/hourly - Predict hourly rentals from a JSON record
//   - POST /predictions/document?type=daily|hourly - Extract a record from a
//     plain-text document, then predict
//   - GET /predictions/history?limit=N - The caller's latest predictions
//     (bearer token required)
//   - GET /healthz - Liveness (always 200 OK)
//   - GET /readyz - Readiness (503 unless both models are loaded and the log answers)
//   - GET /metrics - Prometheus metrics endpoint
//
// Prediction routes are rate limited per client IP. A valid bearer token on a
// prediction request attaches the caller's id, and the prediction is then
// appended to the caller's history.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/ridewise/pkg/auth"
	"github.com/HatiCode/ridewise/pkg/document"
	"github.com/HatiCode/ridewise/pkg/features"
	"github.com/HatiCode/ridewise/pkg/httpx"
	"github.com/HatiCode/ridewise/pkg/prediction"
	"github.com/HatiCode/ridewise/pkg/storage"
)

const (
	// DefaultHistoryLimit is the number of history entries returned when the
	// request has no limit parameter.
	DefaultHistoryLimit = 20

	defaultMaxBodyBytes = 1 << 20
	storeTimeout        = 2 * time.Second
)

// Options wires the router. Service is required; every other field is
// optional.
type Options struct {
	Service *prediction.Service

	// Store receives predictions made by identified callers and serves
	// history. Nil disables both.
	Store storage.Store

	// Auth verifies bearer tokens. Nil disables identity and history.
	Auth *auth.Manager

	// Gatherer backs /metrics. Nil uses the default Prometheus registry.
	Gatherer prometheus.Gatherer

	Logger         *slog.Logger
	CORSOrigins    []string
	RateLimit      int
	RateWindow     time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// SetupRoutes returns the predictor's HTTP handler with all middleware
// applied.
func SetupRoutes(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	h := &handlers{
		svc:      opts.Service,
		store:    opts.Store,
		logger:   opts.Logger,
		maxBytes: opts.MaxBodyBytes,
	}

	predictMW := []func(http.Handler) http.Handler{
		rateLimit(opts.RateLimit, opts.RateWindow),
		auth.Identify(opts.Auth, opts.Logger),
	}

	mux := http.NewServeMux()

	mux.Handle("POST /predictions/daily", httpx.Chain(h.predict(features.Daily), predictMW...))
	mux.Handle("POST /predictions/hourly", httpx.Chain(h.predict(features.Hourly), predictMW...))
	mux.Handle("POST /predictions/document", httpx.Chain(http.HandlerFunc(h.document), predictMW...))
	mux.Handle("GET /predictions/history", auth.RequireUser(opts.Auth, http.HandlerFunc(h.history)))

	mux.Handle("GET /healthz", httpx.HealthHandler())
	mux.Handle("GET /readyz", httpx.HealthHandlerWithCheck(h.ready))

	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return httpx.Chain(mux,
		httpx.RecoveryMiddleware(opts.Logger),
		httpx.LoggingMiddleware(opts.Logger),
		corsHandler(opts.CORSOrigins),
		httpx.TimeoutMiddleware(opts.RequestTimeout),
	)
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	})
}

// rateLimit limits requests per client IP. A non-positive limit disables it.
func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.WriteErrorMessage(w, http.StatusTooManyRequests, "too many requests")
		}),
	)
}

type handlers struct {
	svc      *prediction.Service
	store    storage.Store
	logger   *slog.Logger
	maxBytes int64
}

type predictResponse struct {
	Success       bool             `json:"success"`
	Prediction    int              `json:"prediction"`
	Type          features.Variant `json:"type"`
	ExtractedData features.Record  `json:"extracted_data,omitempty"`
	Message       string           `json:"message"`
}

type historyItem struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
}

type historyResponse struct {
	Success     bool          `json:"success"`
	Predictions []historyItem `json:"predictions"`
}

func (h *handlers) predict(v features.Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var record features.Record
		if err := httpx.DecodeJSON(w, r, h.maxBytes, &record); err != nil {
			h.writeBodyError(w, err)
			return
		}
		if len(record) == 0 {
			httpx.WriteError(w, http.StatusBadRequest, httpx.ErrEmptyBody)
			return
		}

		res, err := h.svc.Predict(r.Context(), record, v)
		if err != nil {
			h.writePredictError(w, err)
			return
		}
		h.logPrediction(r, res, record)

		h.writeJSON(w, predictResponse{
			Success:    true,
			Prediction: res.Count(),
			Type:       v,
			Message:    fmt.Sprintf("Predicted %s bike demand: %d bikes", v, res.Count()),
		})
	}
}

func (h *handlers) document(w http.ResponseWriter, r *http.Request) {
	typ := r.URL.Query().Get("type")
	if typ == "" {
		typ = string(features.Daily)
	}
	v, err := features.ParseVariant(typ)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}

	body, err := httpx.ReadBody(w, r, h.maxBytes)
	if err != nil {
		h.writeBodyError(w, err)
		return
	}

	record, err := document.Extract(string(body))
	if err != nil {
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "could not extract data from document: "+err.Error())
		return
	}

	res, err := h.svc.Predict(r.Context(), record, v)
	if err != nil {
		h.writePredictError(w, err)
		return
	}
	h.logPrediction(r, res, record)

	h.writeJSON(w, predictResponse{
		Success:       true,
		Prediction:    res.Count(),
		Type:          v,
		ExtractedData: record,
		Message:       fmt.Sprintf("Document processed successfully. Predicted %d bikes.", res.Count()),
	})
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserFromContext(r.Context())

	limit := DefaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > storage.MaxRecent {
			httpx.WriteErrorMessage(w, http.StatusBadRequest,
				fmt.Sprintf("limit must be an integer between 1 and %d", storage.MaxRecent))
			return
		}
		limit = n
	}

	items := []historyItem{}
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
		defer cancel()

		entries, err := h.store.Recent(ctx, userID, limit)
		if err != nil {
			h.logger.Error("failed to read prediction history", "user_id", userID, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}
		for _, e := range entries {
			items = append(items, historyItem{
				ID:        e.ID.String(),
				Type:      e.Type,
				Value:     int(e.Value),
				CreatedAt: e.CreatedAt,
			})
		}
	}

	h.writeJSON(w, historyResponse{Success: true, Predictions: items})
}

func (h *handlers) ready(ctx context.Context) error {
	ready := h.svc.Ready()
	for _, v := range []features.Variant{features.Daily, features.Hourly} {
		if !ready[v] {
			return fmt.Errorf("%s model not loaded", v)
		}
	}

	if p, ok := h.store.(storage.Pinger); ok {
		ctx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("prediction log unreachable", "error", err)
			return errors.New("prediction log unreachable")
		}
	}
	return nil
}

// logPrediction appends the result to the caller's history. Failures are
// logged and never reach the caller.
func (h *handlers) logPrediction(r *http.Request, res prediction.Result, record features.Record) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok || h.store == nil {
		return
	}

	input, err := record.JSON()
	if err != nil {
		h.logger.Warn("failed to encode prediction input", "user_id", userID, "error", err)
		input = []byte("{}")
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), storeTimeout)
	defer cancel()

	entry := storage.NewEntry(userID, string(res.Variant), string(input), float64(res.Count()))
	if err := h.store.Append(ctx, entry); err != nil {
		h.logger.Error("failed to save prediction",
			"user_id", userID,
			"variant", res.Variant,
			"error", err,
		)
	}
}

func (h *handlers) writeBodyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, httpx.ErrBodyTooLarge):
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, err)
	case errors.Is(err, httpx.ErrEmptyBody):
		httpx.WriteError(w, http.StatusBadRequest, err)
	default:
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid request body")
	}
}

func (h *handlers) writePredictError(w http.ResponseWriter, err error) {
	var (
		verr *prediction.ValidationError
		cerr *prediction.ConfigurationError
	)
	switch {
	case errors.As(err, &verr):
		httpx.WriteErrorMessage(w, http.StatusBadRequest, verr.Message)
	case errors.As(err, &cerr):
		h.logger.Error("prediction unavailable", "variant", cerr.Variant, "error", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, cerr)
	default:
		// Inference errors are logged by the service with full context.
		httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *handlers) writeJSON(w http.ResponseWriter, v any) {
	if err := httpx.WriteJSON(w, http.StatusOK, v); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
