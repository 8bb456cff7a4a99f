// ABOUTME: Package documentation for the gateway orchestrator
// ABOUTME: Describes component assembly and HTTP surface

// Package gateway wires the mce-gateway components into a running HTTP
// server.
//
// New assembles the MCE client, clearance gate, metrics, documentation
// library, and tool registry from a config.Config, then mounts three HTTP
// surfaces on one server:
//
//   - /mcp          MCP Streamable HTTP endpoint (see internal/mcp)
//   - /docs/        human-readable documentation browser
//   - /health       liveness; /health/ready reports vendor readiness
//
// Run blocks until the context is canceled, then shuts the server down
// within the configured shutdown timeout. The SQLite audit store is only
// opened when database.path is configured; without it tool calls are not
// persisted but everything else works the same.
package gateway
