// Package auth provides authentication for mce-gateway.
//
// # Authentication
//
// MCP clients authenticate with JWT tokens signed with HS256 using the
// configured jwt_secret. When no secret is configured, authentication is
// disabled and every caller runs as the anonymous identity.
//
// # Identity
//
// Verified callers are represented as an Identity:
//
//   - CallerID: subject from the JWT "sub" claim
//   - Capabilities: names from the optional "caps" claim; an empty list
//     means the caller is unrestricted
//
// The identity travels on the request context via WithIdentity/FromContext
// and is consulted by the tool registry when filtering restricted tools.
//
// # Token Management
//
//	verifier := auth.NewJWTVerifier(secret)
//	token, err := verifier.Generate("ops-team", []string{"mce"}, 24*time.Hour)
//	ident, err := verifier.Verify(token)
package auth
