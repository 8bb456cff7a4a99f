// ABOUTME: MCP token store mapping access tokens to caller identities.
// ABOUTME: Tokens are created at startup or via admin tooling and validated on MCP requests.

package mcp

import (
	"sync"

	"github.com/google/uuid"

	"github.com/2389/mce-gateway/internal/auth"
)

// TokenStore manages MCP access tokens and their associated identities.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*auth.Identity
}

// NewTokenStore creates a new token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: make(map[string]*auth.Identity),
	}
}

// CreateToken generates a new token bound to the given caller and
// capabilities. Returns the token string to include in MCP URLs.
func (s *TokenStore) CreateToken(callerID string, capabilities []string) string {
	token := uuid.New().String()

	// Copy capabilities to avoid aliasing
	caps := make([]string, len(capabilities))
	copy(caps, capabilities)

	s.mu.Lock()
	s.tokens[token] = &auth.Identity{CallerID: callerID, Capabilities: caps}
	s.mu.Unlock()

	return token
}

// GetIdentity returns the identity for a token, or nil if not found.
func (s *TokenStore) GetIdentity(token string) *auth.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ident, ok := s.tokens[token]
	if !ok {
		return nil
	}

	// Return a copy to prevent modification
	caps := make([]string, len(ident.Capabilities))
	copy(caps, ident.Capabilities)
	return &auth.Identity{CallerID: ident.CallerID, Capabilities: caps}
}

// InvalidateToken removes a token from the store.
func (s *TokenStore) InvalidateToken(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// TokenCount returns the number of active tokens (for monitoring).
func (s *TokenStore) TokenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
