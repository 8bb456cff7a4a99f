// ABOUTME: Caller identity for tracking who is invoking tools
// ABOUTME: Provides WithIdentity/FromContext for propagating identity via context

package auth

import (
	"context"
	"slices"
)

// Identity holds the authenticated caller information extracted from a request.
// This is populated by the HTTP middleware and read by tool handlers.
type Identity struct {
	CallerID     string   // subject from the JWT, or "anonymous"
	Capabilities []string // capability names this caller may use
}

// Can reports whether the identity holds the named capability. An identity
// with no capabilities listed is unrestricted.
func (i *Identity) Can(capability string) bool {
	if len(i.Capabilities) == 0 {
		return true
	}
	return slices.Contains(i.Capabilities, capability)
}

// identityKey is the key type for storing Identity in context.Context.
type identityKey struct{}

// WithIdentity returns a new context with the Identity attached.
func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, ident)
}

// FromContext retrieves the Identity from the context, returning nil if not present.
func FromContext(ctx context.Context) *Identity {
	val := ctx.Value(identityKey{})
	if val == nil {
		return nil
	}
	ident, ok := val.(*Identity)
	if !ok {
		return nil
	}
	return ident
}

// Anonymous is the identity used when authentication is disabled.
func Anonymous() *Identity {
	return &Identity{CallerID: "anonymous"}
}
