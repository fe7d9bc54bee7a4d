package mcp

import (
	"context"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
)

// Tool call outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeToolError = "tool_error"
	OutcomeError     = "error"
)

// ToolMetrics records tool calls as Prometheus metrics and debug logs.
type ToolMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	logger   *zap.Logger

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewToolMetrics registers the tool call collectors with reg.
func NewToolMetrics(reg prometheus.Registerer, logger *zap.Logger) *ToolMetrics {
	m := &ToolMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notebook",
			Subsystem: "mcp",
			Name:      "tool_calls_total",
			Help:      "MCP tool calls by tool and outcome.",
		}, []string{"tool", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "notebook",
			Subsystem: "mcp",
			Name:      "tool_call_duration_seconds",
			Help:      "MCP tool call latency.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		}, []string{"tool"}),
		logger: logger.Named("mcp-tools"),
	}
	reg.MustRegister(m.calls, m.duration)
	return m
}

// Hooks returns mcp-go Hooks that feed these metrics.
func (m *ToolMetrics) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(m.beforeCallTool)
	hooks.AddAfterCallTool(m.afterCallTool)
	hooks.AddOnError(m.onError)
	return hooks
}

func (m *ToolMetrics) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	m.startTimes.Store(id, time.Now())
}

func (m *ToolMetrics) afterCallTool(ctx context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	outcome := OutcomeOK
	if result != nil && result.IsError {
		outcome = OutcomeToolError
	}
	m.observe(ctx, id, req.Params.Name, outcome, nil)
}

func (m *ToolMetrics) onError(ctx context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}
	m.observe(ctx, id, req.Params.Name, OutcomeError, err)
}

func (m *ToolMetrics) observe(ctx context.Context, id any, tool, outcome string, err error) {
	elapsed := time.Duration(0)
	if v, ok := m.startTimes.LoadAndDelete(id); ok {
		elapsed = time.Since(v.(time.Time))
	}

	m.calls.WithLabelValues(tool, outcome).Inc()
	m.duration.WithLabelValues(tool).Observe(elapsed.Seconds())

	fields := []zap.Field{
		zap.String("tool", tool),
		zap.String("outcome", outcome),
		zap.Duration("duration", elapsed),
		zap.String("user_id", auth.GetUserIDFromContext(ctx)),
	}
	if err != nil {
		m.logger.Warn("MCP tool call failed", append(fields, zap.Error(err))...)
		return
	}
	m.logger.Debug("MCP tool call", fields...)
}
