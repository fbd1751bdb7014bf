package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/audit"
	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
)

const maxPreviewLength = 200

// ToolAuditLogger records every tool call with its duration and a compact
// result summary.
type ToolAuditLogger struct {
	logger *zap.Logger

	// startTimes is keyed by JSON-RPC request ID.
	startTimes sync.Map
}

// NewToolAuditLogger creates a ToolAuditLogger.
func NewToolAuditLogger(logger *zap.Logger) *ToolAuditLogger {
	return &ToolAuditLogger{logger: logger.Named("mcp_audit")}
}

// Hooks returns mcp-go hooks that feed the audit log.
func (a *ToolAuditLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *ToolAuditLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, time.Now())
}

func (a *ToolAuditLogger) afterCallTool(ctx context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	fields := append(a.baseFields(ctx, id, req), summarizeResult(result)...)
	a.logger.Info("MCP tool call", fields...)
}

func (a *ToolAuditLogger) onError(ctx context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}

	fields := append(a.baseFields(ctx, id, req), zap.String("error", logging.SanitizeError(err)))
	a.logger.Warn("MCP tool error", fields...)
}

func (a *ToolAuditLogger) baseFields(ctx context.Context, id any, req *mcplib.CallToolRequest) []zap.Field {
	start := time.Now()
	if v, ok := a.startTimes.LoadAndDelete(id); ok {
		start = v.(time.Time)
	}

	fields := []zap.Field{
		zap.String("tool", req.Params.Name),
		zap.Duration("duration", time.Since(start)),
	}
	if ip := audit.ClientIPFromContext(ctx); ip != "" {
		fields = append(fields, zap.String("client_ip", ip))
	}
	return fields
}

// summarizeResult reports the error flag, the row count of ask_database
// replies and a truncated preview of the first text content.
func summarizeResult(result *mcplib.CallToolResult) []zap.Field {
	if result == nil {
		return nil
	}

	fields := []zap.Field{zap.Bool("is_error", result.IsError)}
	for _, c := range result.Content {
		tc, ok := c.(mcplib.TextContent)
		if !ok {
			continue
		}

		var partial struct {
			RowCount  *int   `json:"row_count"`
			RequestID string `json:"request_id"`
		}
		if err := json.Unmarshal([]byte(tc.Text), &partial); err == nil {
			if partial.RowCount != nil {
				fields = append(fields, zap.Int("row_count", *partial.RowCount))
			}
			if partial.RequestID != "" {
				fields = append(fields, zap.String("request_id", partial.RequestID))
			}
		}
		fields = append(fields, zap.String("preview", logging.TruncateString(tc.Text, maxPreviewLength)))
		break
	}
	return fields
}
