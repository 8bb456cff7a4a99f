// ABOUTME: Marketing Cloud Engagement API client with per-business-unit token caching.
// ABOUTME: Performs OAuth2 client-credentials exchanges and reuses unexpired tokens.

package mce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// defaultCacheKey is used when no business unit ID is supplied.
const defaultCacheKey = "default"

// expiryMargin is subtracted from the vendor-reported token lifetime so a
// token is never used right at its expiry boundary.
const expiryMargin = 60 * time.Second

// TokenRecord holds a cached bearer token and the instance URLs returned
// alongside it. Records are immutable once created; refresh overwrites.
type TokenRecord struct {
	AccessToken string
	RestBaseURL string
	SoapBaseURL string
	ExpiresAt   time.Time
}

// Usable reports whether the record can still authenticate a request at now.
func (r *TokenRecord) Usable(now time.Time) bool {
	return r != nil && now.Before(r.ExpiresAt)
}

// Credentials holds the client-credentials grant inputs sourced from the
// environment.
type Credentials struct {
	Subdomain    string
	ClientID     string
	ClientSecret string
	// DefaultMID is the business unit used when a call does not name one.
	DefaultMID string
}

// Config configures a Client.
type Config struct {
	Credentials Credentials
	// AuthURL overrides the token endpoint. Defaults to the vendor endpoint
	// derived from the subdomain. Used by tests.
	AuthURL string
	// HTTPClient is the transport for all vendor calls. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Now supplies the current time. Defaults to time.Now. Injected so
	// expiry behavior is testable without sleeping.
	Now func() time.Time
}

// Client talks to the MCE REST and SOAP APIs. The token cache map is the
// only shared mutable state; it is guarded by mu. A refresh race between
// two callers is resolved last-writer-wins, which is safe because records
// are immutable.
type Client struct {
	creds      Credentials
	authURL    string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu     sync.Mutex
	tokens map[string]*TokenRecord
}

// NewClient creates a Client. Credentials are validated lazily on the first
// token exchange, not here, so a gateway can start without them and surface
// the configuration error per call.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		creds:      cfg.Credentials,
		authURL:    cfg.AuthURL,
		httpClient: httpClient,
		logger:     logger,
		now:        now,
		tokens:     make(map[string]*TokenRecord),
	}
}

// tokenEndpoint returns the OAuth2 token URL for the configured subdomain.
func (c *Client) tokenEndpoint() string {
	if c.authURL != "" {
		return c.authURL
	}
	return fmt.Sprintf("https://%s.auth.marketingcloudapis.com/v2/token", c.creds.Subdomain)
}

// tokenRequest is the client-credentials grant body for the v2/token endpoint.
type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AccountID    string `json:"account_id,omitempty"`
}

// tokenResponse is the subset of the vendor token response we keep.
type tokenResponse struct {
	AccessToken     string `json:"access_token"`
	RestInstanceURL string `json:"rest_instance_url"`
	SoapInstanceURL string `json:"soap_instance_url"`
	ExpiresIn       int    `json:"expires_in"`
}

// GetToken returns a usable token record for the given business unit,
// reusing the cached record when it has not expired. An empty businessUnitID
// maps to the default cache key.
func (c *Client) GetToken(ctx context.Context, businessUnitID string) (*TokenRecord, error) {
	key := businessUnitID
	if key == "" {
		key = defaultCacheKey
	}

	c.mu.Lock()
	cached := c.tokens[key]
	c.mu.Unlock()

	if cached.Usable(c.now()) {
		return cached, nil
	}

	if c.creds.Subdomain == "" || c.creds.ClientID == "" || c.creds.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}

	record, err := c.exchangeToken(ctx, businessUnitID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tokens[key] = record
	c.mu.Unlock()

	c.logger.Debug("obtained MCE access token",
		"business_unit", key,
		"expires_at", record.ExpiresAt,
	)
	return record, nil
}

// exchangeToken performs the client-credentials grant against the vendor
// token endpoint.
func (c *Client) exchangeToken(ctx context.Context, businessUnitID string) (*TokenRecord, error) {
	accountID := businessUnitID
	if accountID == "" {
		accountID = c.creds.DefaultMID
	}

	payload := tokenRequest{
		GrantType:    "client_credentials",
		ClientID:     c.creds.ClientID,
		ClientSecret: c.creds.ClientSecret,
		AccountID:    accountID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "token exchange", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "token exchange", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &AuthError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return nil, &AuthError{Body: err.Error()}
	}
	if tr.AccessToken == "" {
		return nil, &AuthError{Body: "response missing access_token"}
	}

	return &TokenRecord{
		AccessToken: tr.AccessToken,
		RestBaseURL: tr.RestInstanceURL,
		SoapBaseURL: tr.SoapInstanceURL,
		ExpiresAt:   c.now().Add(time.Duration(tr.ExpiresIn)*time.Second - expiryMargin),
	}, nil
}
