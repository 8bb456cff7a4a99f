// Package store persists the tool-call audit log in SQLite.
//
// The store is optional: when no database path is configured the gateway
// runs without persistence and nothing is recorded. With a path set, every
// tool invocation is appended to the tool_calls table with caller, tool
// name, request id, outcome, and duration.
//
// The implementation uses modernc.org/sqlite (pure Go, no cgo) with WAL
// journaling. Schema creation is automatic on open.
package store
