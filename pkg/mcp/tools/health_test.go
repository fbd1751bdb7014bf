package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

// toolCallResponse is the JSON-RPC envelope of a tools/call reply.
type toolCallResponse struct {
	Result struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// callTool sends a tools/call request through the server's JSON-RPC entry
// point.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) toolCallResponse {
	t.Helper()
	params := map[string]any{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	request, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  params,
	})
	require.NoError(t, err)

	raw, err := json.Marshal(s.HandleMessage(context.Background(), request))
	require.NoError(t, err)

	var response toolCallResponse
	require.NoError(t, json.Unmarshal(raw, &response))
	return response
}

func listToolNames(t *testing.T, s *server.MCPServer) []string {
	t.Helper()
	raw, err := json.Marshal(s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`)))
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &response))

	names := make([]string, len(response.Result.Tools))
	for i, tool := range response.Result.Tools {
		names[i] = tool.Name
	}
	return names
}

func newTestMCPServer() *server.MCPServer {
	return server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
}

func TestRegisterHealthTool(t *testing.T) {
	s := newTestMCPServer()
	RegisterHealthTool(s, "test-version", nil)

	assert.Contains(t, listToolNames(t, s), "health")
}

func TestHealthTool_Execute(t *testing.T) {
	tests := []struct {
		name         string
		db           Pinger
		wantStatus   string
		wantDatabase string
	}{
		{"no database", nil, "ok", ""},
		{"database up", stubPinger{}, "ok", "ok"},
		{"database down", stubPinger{err: errors.New("connection refused")}, "degraded", "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestMCPServer()
			RegisterHealthTool(s, `1.2.3-beta"x`, tt.db)

			response := callTool(t, s, "health", nil)
			require.Nil(t, response.Error)
			require.Len(t, response.Result.Content, 1)

			var health healthResult
			require.NoError(t, json.Unmarshal([]byte(response.Result.Content[0].Text), &health))
			assert.Equal(t, tt.wantStatus, health.Status)
			assert.Equal(t, `1.2.3-beta"x`, health.Version)
			assert.Equal(t, tt.wantDatabase, health.Database)
		})
	}
}
