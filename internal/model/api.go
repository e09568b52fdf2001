// Package model defines the request and response types of the analytics API.
package model

import (
	"fmt"
	"time"

	"github.com/jaijaijai353/nika-analytics/internal/table"
)

// Standard error codes used in error envelopes.
const (
	ErrCodeInvalidInput  = "invalid_input"
	ErrCodeNotFound      = "not_found"
	ErrCodeInternalError = "internal_error"
)

// MaxRows bounds the number of rows accepted per request. Requests above it
// are rejected before any inference runs.
const MaxRows = 100_000

// InsightsRequest is the body of POST /api/insights.
type InsightsRequest struct {
	Data []table.Record `json:"data"`
}

// ForecastRequest is the body of POST /api/forecast.
type ForecastRequest struct {
	Data         []table.Record `json:"data"`
	DateColumn   string         `json:"date_column,omitempty"`
	TargetColumn string         `json:"target_column"`
}

// AnomalyRequest is the body of POST /api/anomaly.
type AnomalyRequest struct {
	Data           []table.Record `json:"data"`
	NumericColumns []string       `json:"numeric_columns,omitempty"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Data     []table.Record `json:"data"`
	Question string         `json:"question"`
}

// Validate checks the forecast request's required parameters.
func (r ForecastRequest) Validate() error {
	if r.TargetColumn == "" {
		return fmt.Errorf("target_column is required")
	}
	return nil
}

// Validate checks the query request's required parameters.
func (r QueryRequest) Validate() error {
	if r.Question == "" {
		return fmt.Errorf("question is required")
	}
	return nil
}

// ValidateRows rejects oversized datasets before inference.
func ValidateRows(records []table.Record) error {
	if len(records) > MaxRows {
		return fmt.Errorf("data exceeds maximum of %d rows", MaxRows)
	}
	return nil
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  int64  `json:"uptime_seconds"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ErrorDetail carries a stable machine-readable code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta carries per-request metadata on error envelopes.
type ResponseMeta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
