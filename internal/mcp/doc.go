// Package mcp implements the Model Context Protocol server for external tool access.
//
// # Overview
//
// MCP (Model Context Protocol) is a standard for AI tool integration. This package
// provides an MCP-compatible HTTP server that exposes the mce_v1 tool pack and the
// embedded documentation library to external AI clients (like Claude Desktop,
// other LLMs, or custom applications).
//
// # Protocol
//
// The server implements the Streamable HTTP transport (spec 2025-11-25) using
// JSON-RPC 2.0 over a single endpoint:
//
//   - POST /mcp - JSON-RPC requests (initialize, tools/list, tools/call,
//     resources/list, resources/read, notifications)
//   - DELETE /mcp - session termination
//
// Sessions are created on initialize and carried via the Mcp-Session-Id header.
// Server-initiated SSE streams are not supported; every tool completes inline.
//
// # Authentication
//
// Three access patterns, tried in order:
//
//   - Path token: POST /mcp/<token> (tokens minted by the TokenStore)
//   - Query token: POST /mcp?token=<token>
//   - JWT bearer: Authorization: Bearer <jwt> (HS256, see internal/auth)
//
// Each resolves to a caller Identity with optional capabilities; only tools
// matching the caller's capabilities are listed and callable. With RequireAuth
// off, unauthenticated callers run as anonymous with full access.
//
// # Resources
//
// The documentation library is exposed through resources/list and
// resources/read using mce:// URIs, for example:
//
//	{
//	  "jsonrpc": "2.0",
//	  "method": "resources/read",
//	  "params": {"uri": "mce://guides/editable-emails"},
//	  "id": 2
//	}
//
// Reads are counted in the gateway metrics (distinct URIs), which feed the
// preflight and health tools.
//
// # Tool Execution
//
// Clients call tools/call to execute a tool:
//
//	{
//	  "jsonrpc": "2.0",
//	  "method": "tools/call",
//	  "params": {
//	    "name": "mce_v1_rest_request",
//	    "arguments": {"method": "GET", "path": "/asset/v1/content/assets"}
//	  },
//	  "id": 3
//	}
//
// Handler failures come back as tool results with isError set so the client
// can read the message and correct its request; protocol-level problems
// (unknown tool, missing capability) are JSON-RPC errors.
//
// # Integration with Claude Desktop
//
// Add to Claude Desktop's MCP configuration:
//
//	{
//	  "mcpServers": {
//	    "mce": {
//	      "url": "http://localhost:3000/mcp",
//	      "authorization": "Bearer <token>"
//	    }
//	  }
//	}
package mcp
