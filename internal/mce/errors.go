// ABOUTME: Error taxonomy for Marketing Cloud Engagement API interactions.
// ABOUTME: Distinguishes configuration, auth, transport, and SOAP fault failures.

package mce

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials indicates the MCE subdomain, client ID, or client
// secret is absent from configuration. Fatal to any upstream call.
var ErrMissingCredentials = errors.New("missing MCE credentials (subdomain, client id, client secret)")

// ErrUnsupportedAction indicates a SOAP action with no envelope construction
// rule. Perform is referenced in tool schemas but intentionally unimplemented.
var ErrUnsupportedAction = errors.New("unsupported SOAP action")

// AuthError indicates the vendor token endpoint rejected the credential
// exchange or returned a malformed body. Never retried by the client.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("token endpoint returned malformed response: %s", e.Body)
	}
	return fmt.Sprintf("token endpoint rejected request: status %d: %s", e.Status, e.Body)
}

// TransportError indicates a network-level failure reaching the vendor
// (DNS, timeout, connection reset). Distinct from vendor-reported non-2xx
// responses, which pass through to the caller.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SoapFault indicates a non-200 response from the SOAP endpoint. Detail
// carries the parsed fault body, or the raw response when unparsable.
type SoapFault struct {
	Status int
	Detail any
}

func (e *SoapFault) Error() string {
	return fmt.Sprintf("SOAP request failed: status %d", e.Status)
}
