// Package mce implements the Salesforce Marketing Cloud Engagement client.
//
// The Client owns the per-business-unit OAuth token cache and exposes two
// call paths: Rest, a verbatim pass-through to the REST API, and Soap,
// which wraps requests in the legacy partner-API envelope. Tokens are
// obtained with the client-credentials grant and reused until 60 seconds
// before their reported expiry.
//
// The client never retries. Authentication rejections, transport failures,
// and SOAP faults surface as distinct error types so callers can map them
// to user-facing messages; vendor non-2xx REST responses are not errors
// and pass through with their status code.
package mce
