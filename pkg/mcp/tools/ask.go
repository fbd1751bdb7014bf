package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

// AskToolDeps holds the dependencies of the question-answering tools.
type AskToolDeps struct {
	AskService services.AskService
	Logger     *zap.Logger
}

// askDatabaseResponse is the tool's view of an AskResult: display SQL only,
// no stage trace.
type askDatabaseResponse struct {
	OK        bool             `json:"ok"`
	RequestID string           `json:"request_id"`
	SQL       string           `json:"sql,omitempty"`
	Answer    string           `json:"answer"`
	Columns   []string         `json:"columns,omitempty"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	ErrorKind string           `json:"error_kind,omitempty"`
}

type listTablesResponse struct {
	Tables []tableInfo `json:"tables"`
}

type tableInfo struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
}

// RegisterAskTools adds ask_database and list_tables to the MCP server.
func RegisterAskTools(s *server.MCPServer, deps *AskToolDeps) {
	registerAskDatabaseTool(s, deps)
	registerListTablesTool(s, deps)
}

func registerAskDatabaseTool(s *server.MCPServer, deps *AskToolDeps) {
	tool := mcp.NewTool(
		"ask_database",
		mcp.WithDescription(
			"Answer a natural-language question about the connected database. "+
				"Generates a read-only SQL query restricted to the database's base tables, runs it and summarizes the result. "+
				"Example: ask_database(question='top 5 products by price')",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question, in any language"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return nil, err
		}
		question = strings.TrimSpace(question)
		if question == "" {
			return NewErrorResult("invalid_parameters", "parameter 'question' cannot be empty"), nil
		}

		result, err := deps.AskService.Ask(ctx, question)
		if errors.Is(err, apperrors.ErrCatalogUnavailable) {
			return NewErrorResultWithDetails("catalog_unavailable", result.Answer,
				map[string]any{"request_id": result.RequestID.String()}), nil
		}
		if err != nil {
			return nil, fmt.Errorf("ask_database failed: %w", err)
		}

		sqlText := result.SQLClean
		if sqlText == "" {
			sqlText = result.SQL
		}
		response := askDatabaseResponse{
			OK:        result.OK,
			RequestID: result.RequestID.String(),
			SQL:       sqlText,
			Answer:    result.Answer,
			Columns:   result.Columns,
			Rows:      result.Rows,
			RowCount:  len(result.Rows),
			ErrorKind: string(result.ErrorKind),
		}

		jsonResult, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal ask_database result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

func registerListTablesTool(s *server.MCPServer, deps *AskToolDeps) {
	tool := mcp.NewTool(
		"list_tables",
		mcp.WithDescription("List the base tables ask_database can query, with their columns."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		catalog, err := deps.AskService.Schema(ctx)
		if err != nil {
			deps.Logger.Warn("list_tables: catalog unavailable", zap.Error(err))
			return NewErrorResult("catalog_unavailable", "the database schema could not be read"), nil
		}

		response := listTablesResponse{Tables: make([]tableInfo, 0, len(catalog.Tables))}
		for _, t := range catalog.Tables {
			info := tableInfo{Table: t.Ref().Qualified(), Columns: make([]string, len(t.Columns))}
			for i, c := range t.Columns {
				info.Columns[i] = c.Name + " " + c.DataType
			}
			response.Tables = append(response.Tables, info)
		}

		jsonResult, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal list_tables result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
