// Package tools holds the gateway's in-process tool registry and the
// mce_v1 tool pack.
//
// # Registry
//
// Tools are registered once at startup and dispatched by name. Listings
// and calls are filtered by the caller's capabilities: a tool with a
// RequiredCapability is hidden from callers that do not hold it.
//
// # The mce_v1 pack
//
// The pack exposes the gateway's whole surface:
//
//   - mce_v1_preflight_check: guidance bundle plus a one-time clearance token
//   - mce_v1_validate_request: static request validation, no network I/O
//   - mce_v1_rest_request: REST proxy; email asset creation is clearance-gated
//   - mce_v1_soap_request: SOAP proxy for the partner API
//   - mce_v1_build_email: assembles an editable email payload
//   - mce_v1_health: liveness plus usage counters
//
// The clearance gate fails closed: a gated call without a valid token is
// rejected before any request leaves the process.
package tools
