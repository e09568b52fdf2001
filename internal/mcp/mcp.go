// Package mcp implements the Model Context Protocol surface for the
// analytics service.
//
// The MCP server exposes the same four operations as the HTTP API as tools,
// so MCP-compatible AI agents can run ad-hoc analysis over datasets they
// hold in context. Dataset rows are passed as a JSON array string and are
// parsed with the same order-preserving record decoding the HTTP boundary
// uses, so results are identical across the two transports.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/jaijaijai353/nika-analytics/internal/ai"
	"github.com/jaijaijai353/nika-analytics/internal/anomaly"
	"github.com/jaijaijai353/nika-analytics/internal/forecast"
	"github.com/jaijaijai353/nika-analytics/internal/insights"
	"github.com/jaijaijai353/nika-analytics/internal/model"
	"github.com/jaijaijai353/nika-analytics/internal/table"
)

// Server wraps the MCP server with the analytics components.
type Server struct {
	mcpServer  *mcpserver.MCPServer
	forecaster *forecast.Forecaster
	detector   *anomaly.Detector
	completer  ai.Completer
	logger     *slog.Logger
}

// New creates and configures a new MCP server with all tools registered.
func New(forecaster *forecast.Forecaster, detector *anomaly.Detector, completer ai.Completer, logger *slog.Logger, version string) *Server {
	s := &Server{
		forecaster: forecaster,
		detector:   detector,
		completer:  completer,
		logger:     logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"nika-analytics",
		version,
		mcpserver.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	// nika_insights — descriptive findings over a dataset.
	s.mcpServer.AddTool(
		mcplib.NewTool("nika_insights",
			mcplib.WithDescription("Generate descriptive insights over a tabular dataset: column summaries, time trend, strongest correlation, and IQR outlier counts"),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("data",
				mcplib.Description("Dataset rows as a JSON array of objects"),
				mcplib.Required(),
			),
		),
		s.handleInsights,
	)

	// nika_forecast — 12-step projection of a numeric column.
	s.mcpServer.AddTool(
		mcplib.NewTool("nika_forecast",
			mcplib.WithDescription("Forecast a numeric column 12 steps forward, using the dataset's time column when one exists"),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("data",
				mcplib.Description("Dataset rows as a JSON array of objects"),
				mcplib.Required(),
			),
			mcplib.WithString("target_column",
				mcplib.Description("Numeric column to forecast"),
				mcplib.Required(),
			),
			mcplib.WithString("date_column",
				mcplib.Description("Optional: datetime column to use as the time axis"),
			),
		),
		s.handleForecast,
	)

	// nika_anomalies — anomalous row identifiers.
	s.mcpServer.AddTool(
		mcplib.NewTool("nika_anomalies",
			mcplib.WithDescription("Detect anomalous rows in a tabular dataset. Returns original row positions."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("data",
				mcplib.Description("Dataset rows as a JSON array of objects"),
				mcplib.Required(),
			),
			mcplib.WithString("numeric_columns",
				mcplib.Description("Optional: JSON array of numeric column names to score (default: all numeric columns)"),
			),
		),
		s.handleAnomalies,
	)

	// nika_query — natural-language question delegated to the LLM backend.
	s.mcpServer.AddTool(
		mcplib.NewTool("nika_query",
			mcplib.WithDescription("Ask a natural-language question about a tabular dataset. Answers with business-friendly text plus visualization suggestions."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithString("data",
				mcplib.Description("Dataset rows as a JSON array of objects"),
				mcplib.Required(),
			),
			mcplib.WithString("question",
				mcplib.Description("Natural language question about the dataset"),
				mcplib.Required(),
			),
		),
		s.handleQuery,
	)
}

// parseRecords decodes the data argument shared by every tool.
func parseRecords(request mcplib.CallToolRequest) ([]table.Record, error) {
	raw := request.GetString("data", "")
	if raw == "" {
		return nil, fmt.Errorf("data is required")
	}
	var records []table.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("data must be a JSON array of objects: %w", err)
	}
	if err := model.ValidateRows(records); err != nil {
		return nil, err
	}
	return records, nil
}

func toolJSON(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal result: %w", err)
	}
	return mcplib.NewToolResultText(string(data)), nil
}

func (s *Server) handleInsights(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	records, err := parseRecords(request)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return toolJSON(insights.Generate(table.Infer(records)))
}

func (s *Server) handleForecast(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	records, err := parseRecords(request)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	target := request.GetString("target_column", "")
	if target == "" {
		return mcplib.NewToolResultError("target_column is required"), nil
	}
	dateCol := request.GetString("date_column", "")
	return toolJSON(s.forecaster.Forecast(table.Infer(records), target, dateCol))
}

func (s *Server) handleAnomalies(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	records, err := parseRecords(request)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	var columns []string
	if raw := request.GetString("numeric_columns", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &columns); err != nil {
			return mcplib.NewToolResultError("numeric_columns must be a JSON array of strings"), nil
		}
	}
	return toolJSON(s.detector.Detect(table.Infer(records), columns))
}

func (s *Server) handleQuery(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	records, err := parseRecords(request)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	question := request.GetString("question", "")
	if question == "" {
		return mcplib.NewToolResultError("question is required"), nil
	}
	return toolJSON(ai.Answer(ctx, s.completer, records, question))
}
