package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jaijaijai353/nika-analytics/internal/ai"
	"github.com/jaijaijai353/nika-analytics/internal/anomaly"
	"github.com/jaijaijai353/nika-analytics/internal/forecast"
	"github.com/jaijaijai353/nika-analytics/internal/insights"
	"github.com/jaijaijai353/nika-analytics/internal/model"
	"github.com/jaijaijai353/nika-analytics/internal/table"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	forecaster          *forecast.Forecaster
	detector            *anomaly.Detector
	completer           ai.Completer
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Completer may be nil when no LLM backend is configured; the query endpoint
// then degrades to its fallback answer.
type HandlersDeps struct {
	Forecaster          *forecast.Forecaster
	Detector            *anomaly.Detector
	Completer           ai.Completer
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		forecaster:          d.Forecaster,
		detector:            d.Detector,
		completer:           d.Completer,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
	}
}

// HandleInsights handles POST /api/insights.
func (h *Handlers) HandleInsights(w http.ResponseWriter, r *http.Request) {
	var req model.InsightsRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := model.ValidateRows(req.Data); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	t := table.Infer(req.Data)
	writeJSON(w, r, http.StatusOK, insights.Generate(t))
}

// HandleForecast handles POST /api/forecast.
func (h *Handlers) HandleForecast(w http.ResponseWriter, r *http.Request) {
	var req model.ForecastRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if err := model.ValidateRows(req.Data); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	t := table.Infer(req.Data)
	writeJSON(w, r, http.StatusOK, h.forecaster.Forecast(t, req.TargetColumn, req.DateColumn))
}

// HandleAnomaly handles POST /api/anomaly.
func (h *Handlers) HandleAnomaly(w http.ResponseWriter, r *http.Request) {
	var req model.AnomalyRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := model.ValidateRows(req.Data); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	t := table.Infer(req.Data)
	writeJSON(w, r, http.StatusOK, h.detector.Detect(t, req.NumericColumns))
}

// HandleQuery handles POST /api/query. Completer failures never surface as
// HTTP errors; the glue returns a fallback answer payload instead.
func (h *Handlers) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req model.QueryRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if err := model.ValidateRows(req.Data); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	writeJSON(w, r, http.StatusOK, ai.Answer(r.Context(), h.completer, req.Data, req.Question))
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, model.HealthResponse{
		Status:  "healthy",
		Version: h.version,
		Uptime:  int64(time.Since(h.startedAt).Seconds()),
	})
}
