// ABOUTME: Tests for the MCP HTTP server including sessions, tools, and resources.
// ABOUTME: Validates auth handling, capability filtering, and error responses.

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mce-gateway/internal/auth"
	"github.com/2389/mce-gateway/internal/docs"
	"github.com/2389/mce-gateway/internal/metrics"
	"github.com/2389/mce-gateway/internal/store"
	"github.com/2389/mce-gateway/internal/tools"
)

// mockVerifier implements auth.TokenVerifier for testing.
type mockVerifier struct {
	ident *auth.Identity
	err   error
}

func (m *mockVerifier) Verify(token string) (*auth.Identity, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ident, nil
}

// memoryAudit collects tool-call records in memory.
type memoryAudit struct {
	mu    sync.Mutex
	calls []store.ToolCall
}

func (m *memoryAudit) RecordToolCall(ctx context.Context, c *store.ToolCall) error {
	m.mu.Lock()
	m.calls = append(m.calls, *c)
	m.mu.Unlock()
	return nil
}

func testRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	registry := tools.NewRegistry(nil)

	require.NoError(t, registry.RegisterAll([]*tools.Tool{
		{
			Definition: tools.Definition{
				Name:        "echo",
				Description: "echoes input back",
				InputSchema: json.RawMessage(`{"type":"object"}`),
			},
			Handler: func(ctx context.Context, callerID string, input json.RawMessage) (json.RawMessage, error) {
				return json.Marshal(map[string]any{"caller": callerID, "input": json.RawMessage(input)})
			},
		},
		{
			Definition: tools.Definition{
				Name:               "restricted",
				Description:        "needs the mce capability",
				InputSchema:        json.RawMessage(`{"type":"object"}`),
				RequiredCapability: "mce",
			},
			Handler: func(ctx context.Context, callerID string, input json.RawMessage) (json.RawMessage, error) {
				return json.RawMessage(`{"ok":true}`), nil
			},
		},
		{
			Definition: tools.Definition{
				Name:        "failing",
				Description: "always fails",
				InputSchema: json.RawMessage(`{"type":"object"}`),
			},
			Handler: func(ctx context.Context, callerID string, input json.RawMessage) (json.RawMessage, error) {
				return nil, errors.New("upstream exploded")
			},
		},
	}))
	return registry
}

type serverFixture struct {
	mux     *http.ServeMux
	server  *Server
	metrics *metrics.Metrics
	audit   *memoryAudit
}

func newServerFixture(t *testing.T, mutate func(*Config)) *serverFixture {
	t.Helper()

	m := metrics.New()
	audit := &memoryAudit{}
	cfg := Config{
		Registry: testRegistry(t),
		Library:  docs.NewLibrary(),
		Metrics:  m,
		Audit:    audit,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	server, err := NewServer(cfg)
	require.NoError(t, err)

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	return &serverFixture{mux: mux, server: server, metrics: m, audit: audit}
}

// rpc posts a JSON-RPC request and decodes the response.
func (f *serverFixture) rpc(t *testing.T, sessionID, body string) (*httptest.ResponseRecorder, *JSONRPCResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	if rr.Code == http.StatusAccepted || rr.Body.Len() == 0 {
		return rr, nil
	}
	var resp JSONRPCResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		return rr, nil
	}
	return rr, &resp
}

// initialize runs the handshake and returns the session ID.
func (f *serverFixture) initialize(t *testing.T) string {
	t.Helper()
	rr, resp := f.rpc(t, "", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	sessionID := rr.Header().Get("Mcp-Session-Id")
	require.NotEmpty(t, sessionID)
	return sessionID
}

func TestInitializeAdvertisesToolsAndResources(t *testing.T) {
	f := newServerFixture(t, nil)

	rr, resp := f.rpc(t, "", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]any)
	assert.Equal(t, latestProtocolVersion, result["protocolVersion"])

	caps := result["capabilities"].(map[string]any)
	assert.Contains(t, caps, "tools")
	assert.Contains(t, caps, "resources")

	info := result["serverInfo"].(map[string]any)
	assert.Equal(t, "mce-gateway", info["name"])
}

func TestToolsListViaSession(t *testing.T) {
	f := newServerFixture(t, nil)
	sessionID := f.initialize(t)

	rr, resp := f.rpc(t, sessionID, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result MCPListToolsResult
	require.NoError(t, json.Unmarshal(raw, &result))

	// Anonymous session (no capability list) sees everything.
	require.Len(t, result.Tools, 3)
	assert.Equal(t, "echo", result.Tools[0].Name)
}

func TestToolsCall(t *testing.T) {
	f := newServerFixture(t, nil)
	sessionID := f.initialize(t)

	rr, resp := f.rpc(t, sessionID,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"x":1}}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result MCPCallToolResult
	require.NoError(t, json.Unmarshal(raw, &result))

	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Contains(t, result.Content[0].Text, `"caller":"anonymous"`)
}

func TestToolsCallHandlerErrorIsToolResult(t *testing.T) {
	f := newServerFixture(t, nil)
	sessionID := f.initialize(t)

	rr, resp := f.rpc(t, sessionID,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"failing"}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Nil(t, resp.Error, "handler errors are tool results, not protocol errors")

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result MCPCallToolResult
	require.NoError(t, json.Unmarshal(raw, &result))

	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "upstream exploded")
}

func TestToolsCallUnknownTool(t *testing.T) {
	f := newServerFixture(t, nil)
	sessionID := f.initialize(t)

	_, resp := f.rpc(t, sessionID,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"nope"}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCInvalidParams, resp.Error.Code)
}

func TestToolsCallAudited(t *testing.T) {
	f := newServerFixture(t, nil)
	sessionID := f.initialize(t)

	f.rpc(t, sessionID, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"echo"}}`)
	f.rpc(t, sessionID, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"failing"}}`)

	f.audit.mu.Lock()
	defer f.audit.mu.Unlock()
	require.Len(t, f.audit.calls, 2)
	assert.Equal(t, store.OutcomeOK, f.audit.calls[0].Outcome)
	assert.Equal(t, "6", f.audit.calls[0].RequestID)
	assert.Equal(t, store.OutcomeError, f.audit.calls[1].Outcome)
	assert.Equal(t, "upstream exploded", f.audit.calls[1].Error)
}

func TestResourcesList(t *testing.T) {
	f := newServerFixture(t, nil)
	sessionID := f.initialize(t)

	_, resp := f.rpc(t, sessionID, `{"jsonrpc":"2.0","id":8,"method":"resources/list"}`)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result MCPListResourcesResult
	require.NoError(t, json.Unmarshal(raw, &result))

	require.NotEmpty(t, result.Resources)
	assert.Equal(t, "mce://guides/editable-emails", result.Resources[0].URI)
}

func TestResourcesReadCountsMetrics(t *testing.T) {
	f := newServerFixture(t, nil)
	sessionID := f.initialize(t)

	_, resp := f.rpc(t, sessionID,
		`{"jsonrpc":"2.0","id":9,"method":"resources/read","params":{"uri":"mce://guides/editable-emails"}}`)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result MCPReadResourceResult
	require.NoError(t, json.Unmarshal(raw, &result))

	require.Len(t, result.Contents, 1)
	assert.Equal(t, "text/markdown", result.Contents[0].MimeType)
	assert.Contains(t, result.Contents[0].Text, "207")

	// Re-reading the same URI counts once.
	f.rpc(t, sessionID,
		`{"jsonrpc":"2.0","id":10,"method":"resources/read","params":{"uri":"mce://guides/editable-emails"}}`)
	assert.Equal(t, 1, f.metrics.Snapshot().DocsRead)
}

func TestResourcesReadUnknown(t *testing.T) {
	f := newServerFixture(t, nil)
	sessionID := f.initialize(t)

	_, resp := f.rpc(t, sessionID,
		`{"jsonrpc":"2.0","id":11,"method":"resources/read","params":{"uri":"mce://guides/missing"}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCInvalidParams, resp.Error.Code)
}

func TestNonInitializeRequiresSession(t *testing.T) {
	f := newServerFixture(t, nil)

	rr, _ := f.rpc(t, "", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = f.rpc(t, "no-such-session", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNotificationAccepted(t *testing.T) {
	f := newServerFixture(t, nil)
	sessionID := f.initialize(t)

	rr, _ := f.rpc(t, sessionID, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestUnsupportedProtocolVersion(t *testing.T) {
	f := newServerFixture(t, nil)
	sessionID := f.initialize(t)

	req := httptest.NewRequest(http.MethodPost, "/mcp",
		bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	req.Header.Set("Mcp-Session-Id", sessionID)
	req.Header.Set("Mcp-Protocol-Version", "1999-01-01")
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestInvalidJSONRPC(t *testing.T) {
	f := newServerFixture(t, nil)

	rr, resp := f.rpc(t, "", `{not json`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCParseError, resp.Error.Code)

	_, resp = f.rpc(t, "", `{"jsonrpc":"1.0","id":1,"method":"initialize"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCInvalidRequest, resp.Error.Code)
}

func TestUnknownMethod(t *testing.T) {
	f := newServerFixture(t, nil)
	sessionID := f.initialize(t)

	_, resp := f.rpc(t, sessionID, `{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, JSONRPCMethodNotFound, resp.Error.Code)
}

func TestDeleteSession(t *testing.T) {
	f := newServerFixture(t, nil)
	sessionID := f.initialize(t)

	req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	req.Header.Set("Mcp-Session-Id", sessionID)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	// Session is gone.
	rr2, _ := f.rpc(t, sessionID, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	assert.Equal(t, http.StatusNotFound, rr2.Code)
}

func TestDeleteSessionOwnership(t *testing.T) {
	ts := NewTokenStore()
	token := ts.CreateToken("ops-team", nil)

	f := newServerFixture(t, func(cfg *Config) {
		cfg.TokenStore = ts
		cfg.RequireAuth = true
	})

	// Initialize with the path token.
	req := httptest.NewRequest(http.MethodPost, "/mcp/"+token,
		bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	sessionID := rr.Header().Get("Mcp-Session-Id")
	require.NotEmpty(t, sessionID)

	// DELETE without the owning token is forbidden.
	del := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	del.Header.Set("Mcp-Session-Id", sessionID)
	rr = httptest.NewRecorder()
	f.mux.ServeHTTP(rr, del)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// DELETE with the owning token succeeds.
	del = httptest.NewRequest(http.MethodDelete, "/mcp/"+token, nil)
	del.Header.Set("Mcp-Session-Id", sessionID)
	rr = httptest.NewRecorder()
	f.mux.ServeHTTP(rr, del)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	f := newServerFixture(t, func(cfg *Config) {
		cfg.TokenStore = NewTokenStore()
		cfg.RequireAuth = true
	})

	_, resp := f.rpc(t, "", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "authentication required")
}

func TestInvalidPathTokenRejected(t *testing.T) {
	f := newServerFixture(t, func(cfg *Config) {
		cfg.TokenStore = NewTokenStore()
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp/bogus-token",
		bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	var resp JSONRPCResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "invalid or expired token")
}

func TestQueryTokenIdentity(t *testing.T) {
	ts := NewTokenStore()
	token := ts.CreateToken("ops-team", nil)

	f := newServerFixture(t, func(cfg *Config) {
		cfg.TokenStore = ts
		cfg.RequireAuth = true
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp?token="+token,
		bytesReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	sessionID := rr.Header().Get("Mcp-Session-Id")

	// Calls bound to this session run as the token's caller.
	_, resp := f.rpc(t, sessionID,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo"}}`)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result MCPCallToolResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Contains(t, result.Content[0].Text, `"caller":"ops-team"`)
}

func TestBearerJWTIdentityAndCapabilityFilter(t *testing.T) {
	verifier := &mockVerifier{ident: &auth.Identity{CallerID: "runner", Capabilities: []string{"docs"}}}

	f := newServerFixture(t, func(cfg *Config) {
		cfg.TokenVerifier = verifier
		cfg.RequireAuth = true
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp",
		bytesReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	req.Header.Set("Authorization", "Bearer good-token")
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	sessionID := rr.Header().Get("Mcp-Session-Id")

	// "restricted" needs the mce capability, which this caller lacks.
	_, resp := f.rpc(t, sessionID, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var list MCPListToolsResult
	require.NoError(t, json.Unmarshal(raw, &list))
	names := make([]string, len(list.Tools))
	for i, tool := range list.Tools {
		names[i] = tool.Name
	}
	assert.NotContains(t, names, "restricted")

	_, resp = f.rpc(t, sessionID,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"restricted"}}`)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "insufficient capabilities")
}

func TestExpiredBearerRejected(t *testing.T) {
	verifier := &mockVerifier{err: auth.ErrExpiredToken}

	f := newServerFixture(t, func(cfg *Config) {
		cfg.TokenVerifier = verifier
		cfg.RequireAuth = true
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp",
		bytesReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	req.Header.Set("Authorization", "Bearer stale")
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	var resp JSONRPCResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "invalid or expired token")
}

func TestGetMethodNotAllowed(t *testing.T) {
	f := newServerFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func bytesReader(s string) *bytes.Buffer {
	return bytes.NewBufferString(s)
}
