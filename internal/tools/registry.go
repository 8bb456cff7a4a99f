// ABOUTME: Thread-safe registry for in-process tools exposed over MCP.
// ABOUTME: Manages registration, listing, and capability-based filtering.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/mce-gateway/internal/auth"
)

// ErrToolNotFound indicates the named tool is not registered.
var ErrToolNotFound = errors.New("tool not found")

// ErrToolCollision indicates a tool name is already registered.
var ErrToolCollision = errors.New("tool name collision")

// ErrForbidden indicates the caller lacks the tool's required capability.
var ErrForbidden = errors.New("capability required")

// Handler executes a tool. It receives the caller's ID and the tool input
// as JSON, and returns the result as JSON or an error.
type Handler func(ctx context.Context, callerID string, input json.RawMessage) (json.RawMessage, error)

// Definition describes a tool for listings.
type Definition struct {
	Name               string
	Description        string
	InputSchema        json.RawMessage
	RequiredCapability string // empty means available to every caller
}

// Tool pairs a definition with its handler.
type Tool struct {
	Definition Definition
	Handler    Handler
}

// Registry holds the gateway's tool set.
type Registry struct {
	logger *slog.Logger

	mu     sync.RWMutex
	byName map[string]*Tool
	order  []string // registration order, for stable listings
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger.With("component", "tools"),
		byName: make(map[string]*Tool),
	}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t *Tool) error {
	if t.Definition.Name == "" {
		return fmt.Errorf("tool has no name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s has no handler", t.Definition.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[t.Definition.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolCollision, t.Definition.Name)
	}
	r.byName[t.Definition.Name] = t
	r.order = append(r.order, t.Definition.Name)

	r.logger.Debug("registered tool", "name", t.Definition.Name)
	return nil
}

// RegisterAll registers every tool, stopping at the first error.
func (r *Registry) RegisterAll(ts []*Tool) error {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// List returns the definitions visible to the identity, in registration
// order. A nil identity sees only unrestricted tools.
func (r *Registry) List(ident *auth.Identity) []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		t := r.byName[name]
		if !visible(ident, t.Definition.RequiredCapability) {
			continue
		}
		out = append(out, t.Definition)
	}
	return out
}

// Call executes the named tool for the identity. Returns ErrToolNotFound
// for unknown names and ErrForbidden when the capability check fails.
func (r *Registry) Call(ctx context.Context, ident *auth.Identity, name string, input json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	t, ok := r.byName[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if !visible(ident, t.Definition.RequiredCapability) {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, t.Definition.RequiredCapability)
	}

	callerID := "anonymous"
	if ident != nil {
		callerID = ident.CallerID
	}
	return t.Handler(ctx, callerID, input)
}

func visible(ident *auth.Identity, capability string) bool {
	if capability == "" {
		return true
	}
	if ident == nil {
		return false
	}
	return ident.Can(capability)
}
