// ABOUTME: One-time clearance tokens gating email asset creation.
// ABOUTME: Issued on preflight, consumed at most once, expired after 30 minutes.

package clearance

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Validity is how long an issued token can be consumed.
const Validity = 30 * time.Minute

// Gate issues and consumes clearance tokens. It is a workflow nudge, not a
// security boundary: the token forces a documentation-reading step before a
// mutating call, nothing more.
type Gate struct {
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	issued map[string]time.Time // token -> issuance time
}

// Config configures a Gate.
type Config struct {
	Logger *slog.Logger
	// Now supplies the current time; defaults to time.Now. Injected so
	// TTL behavior is testable without waiting.
	Now func() time.Time
}

// NewGate creates a Gate.
func NewGate(cfg Config) *Gate {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Gate{
		logger: logger,
		now:    now,
		issued: make(map[string]time.Time),
	}
}

// Issue creates a clearance token for the given operation type and returns
// it with the operation's guidance bundle. Issue always succeeds.
func (g *Gate) Issue(operationType, userIntent string) (string, Guidance) {
	issuedAt := g.now()
	token := fmt.Sprintf("CLEARANCE-%d-%s", issuedAt.UnixMilli(), randomSuffix())

	g.mu.Lock()
	g.issued[token] = issuedAt
	g.prune(issuedAt)
	g.mu.Unlock()

	g.logger.Info("clearance token issued",
		"operation_type", operationType,
		"user_intent", userIntent,
	)

	return token, guidanceFor(operationType)
}

// Consume removes the token from the valid set and reports whether it was
// present and within its validity window. A second call with the same token
// returns false; consumption is at-most-once even under racing callers.
func (g *Gate) Consume(token string) bool {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	issuedAt, ok := g.issued[token]
	if !ok {
		return false
	}
	delete(g.issued, token)

	if now.Sub(issuedAt) > Validity {
		return false
	}
	return true
}

// Pending returns the number of unconsumed, unexpired tokens.
func (g *Gate) Pending() int {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	count := 0
	for _, issuedAt := range g.issued {
		if now.Sub(issuedAt) <= Validity {
			count++
		}
	}
	return count
}

// prune drops expired tokens so the set cannot grow without bound.
// Caller must hold mu.
func (g *Gate) prune(now time.Time) {
	for token, issuedAt := range g.issued {
		if now.Sub(issuedAt) > Validity {
			delete(g.issued, token)
		}
	}
}

// randomSuffix returns a short random token suffix. The token carries no
// cryptographic weight; a readable suffix is all that is needed.
func randomSuffix() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand read failures are effectively fatal platform
		// problems; degrade to a constant rather than panic.
		return "000000000000"
	}
	return hex.EncodeToString(buf)
}
