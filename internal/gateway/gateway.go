// ABOUTME: Gateway orchestrator that assembles the MCE client, tool registry, and HTTP server
// ABOUTME: Manages the MCP endpoint, documentation browser, and health endpoints lifecycle

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/2389/mce-gateway/internal/auth"
	"github.com/2389/mce-gateway/internal/clearance"
	"github.com/2389/mce-gateway/internal/config"
	"github.com/2389/mce-gateway/internal/docs"
	"github.com/2389/mce-gateway/internal/mce"
	"github.com/2389/mce-gateway/internal/mcp"
	"github.com/2389/mce-gateway/internal/metrics"
	"github.com/2389/mce-gateway/internal/store"
	"github.com/2389/mce-gateway/internal/tools"
)

// Gateway orchestrates the mce-gateway server components. It owns the MCE
// client, the clearance gate, the tool registry, and the HTTP server that
// exposes the MCP endpoint alongside health and documentation routes.
type Gateway struct {
	config     *config.Config
	logger     *slog.Logger
	mceClient  *mce.Client
	gate       *clearance.Gate
	metrics    *metrics.Metrics
	library    *docs.Library
	registry   *tools.Registry
	store      *store.SQLiteStore
	mcpTokens  *mcp.TokenStore
	mcpServer  *mcp.Server
	httpServer *http.Server
}

// New creates a Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	client := mce.NewClient(mce.Config{
		Credentials: mce.Credentials{
			Subdomain:    cfg.MCE.Subdomain,
			ClientID:     cfg.MCE.ClientID,
			ClientSecret: cfg.MCE.ClientSecret,
			DefaultMID:   cfg.MCE.DefaultMID,
		},
		Logger: logger.With("component", "mce"),
	})
	if !cfg.HasCredentials() {
		logger.Warn("MCE credentials not configured - vendor calls will fail until they are set")
	}

	gate := clearance.NewGate(clearance.Config{
		Logger: logger.With("component", "clearance"),
	})
	m := metrics.New()
	library := docs.NewLibrary()

	registry := tools.NewRegistry(logger.With("component", "tools"))
	if err := registry.RegisterAll(tools.MCEPack(client, gate, m, logger.With("component", "tools"), "")); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}

	gw := &Gateway{
		config:    cfg,
		logger:    logger.With("component", "gateway"),
		mceClient: client,
		gate:      gate,
		metrics:   m,
		library:   library,
		registry:  registry,
		mcpTokens: mcp.NewTokenStore(),
	}

	mcpCfg := mcp.Config{
		Registry:    registry,
		Library:     library,
		Metrics:     m,
		Logger:      logger.With("component", "mcp"),
		TokenStore:  gw.mcpTokens,
		RequireAuth: cfg.Auth.RequireAuth,
	}

	if cfg.Database.Path != "" {
		s, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("initializing audit store: %w", err)
		}
		gw.store = s
		mcpCfg.Audit = s
		logger.Info("tool call audit log enabled", "path", cfg.Database.Path)
	}

	if cfg.Auth.JWTSecret != "" {
		mcpCfg.TokenVerifier = auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		logger.Info("JWT auth enabled")
	} else {
		logger.Warn("auth disabled - no jwt_secret configured")
	}

	mcpServer, err := mcp.NewServer(mcpCfg)
	if err != nil {
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}
	gw.mcpServer = mcpServer

	mux := http.NewServeMux()
	mux.HandleFunc("/health", gw.handleHealth)
	mux.HandleFunc("/health/ready", gw.handleReady)
	mux.HandleFunc("/docs", gw.handleDocsRedirect)
	mux.HandleFunc("/docs/", gw.handleDocs)
	mcpServer.RegisterRoutes(mux)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and the configured
// timeout. Uses context.Background() intentionally since the run context is
// already canceled.
func (g *Gateway) gracefulShutdown() error {
	timeout := g.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if g.store != nil {
		if err := g.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the gateway can reach the vendor, meaning
// credentials are configured. The documentation and validation tools work
// either way, so this only gates readiness for vendor traffic.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if !g.config.HasCredentials() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("MCE credentials not configured"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d pending clearances)", g.gate.Pending())
}
