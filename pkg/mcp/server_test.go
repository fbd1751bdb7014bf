package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

type stubAskService struct{}

func (stubAskService) Ask(ctx context.Context, question string) (*services.AskResult, error) {
	return &services.AskResult{OK: true, Question: question, Answer: "ok", Rows: []map[string]any{}}, nil
}

func (stubAskService) Schema(ctx context.Context) (*models.SchemaCatalog, error) {
	return &models.SchemaCatalog{}, nil
}

func TestNewServer(t *testing.T) {
	logger := zap.NewNop()
	s := NewServer("test-server", "1.0.0", logger)

	require.NotNil(t, s)
	assert.NotNil(t, s.MCP())
	assert.Same(t, logger, s.logger)
	assert.NotNil(t, s.NewStreamableHTTPServer())
}

func TestServer_RegisterTool(t *testing.T) {
	s := NewServer("test-server", "1.0.0", zap.NewNop())
	called := false
	s.RegisterTool(mcp.NewTool("echo", mcp.WithDescription("echo")), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("echoed"), nil
	})
	assert.False(t, called, "registration does not call the handler")

	s.MCP().HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo"}}`))
	assert.True(t, called)
}

func TestNewAskServer_Tools(t *testing.T) {
	s := NewAskServer("1.2.3", stubAskService{}, nil, zap.NewNop())

	raw, err := json.Marshal(s.MCP().HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`)))
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &response))

	var names []string
	for _, tool := range response.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"ask_database", "list_tables", "health"}, names)
}
