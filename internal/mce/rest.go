// ABOUTME: Pass-through REST proxy for the Marketing Cloud REST API.
// ABOUTME: Joins base URL, path, and query; returns vendor status and body verbatim.

package mce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RestRequest describes a single REST call to forward to the vendor.
type RestRequest struct {
	Method         string
	Path           string
	Query          map[string]string
	Body           any
	BusinessUnitID string
}

// RestResponse carries the vendor's status code and parsed body. Non-2xx
// statuses are returned here, not as errors; the caller inspects Status.
type RestResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Rest forwards the request to the vendor REST API using a cached token.
// HTTP-level failures from the vendor pass through; only credential,
// transport, and encoding failures produce errors.
func (c *Client) Rest(ctx context.Context, r RestRequest) (*RestResponse, error) {
	token, err := c.GetToken(ctx, r.BusinessUnitID)
	if err != nil {
		return nil, err
	}

	target, err := joinURL(token.RestBaseURL, r.Path, r.Query)
	if err != nil {
		return nil, fmt.Errorf("building request URL: %w", err)
	}

	var bodyReader io.Reader
	if r.Body != nil {
		encoded, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "REST request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "REST request", Err: err}
	}

	c.logger.Debug("MCE REST call",
		"method", r.Method,
		"path", r.Path,
		"status", resp.StatusCode,
	)

	return &RestResponse{
		Status: resp.StatusCode,
		Body:   normalizeJSON(respBody),
	}, nil
}

// joinURL combines the instance base URL with a path and URL-encoded query.
func joinURL(base, path string, query map[string]string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("empty REST base URL")
	}

	u := strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
	if len(query) == 0 {
		return u, nil
	}

	values := url.Values{}
	for k, v := range query {
		values.Set(k, v)
	}
	return u + "?" + values.Encode(), nil
}

// normalizeJSON returns the body as raw JSON, quoting it as a JSON string
// when the vendor responds with a non-JSON payload.
func normalizeJSON(body []byte) json.RawMessage {
	if len(body) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return json.RawMessage("null")
	}
	return json.RawMessage(quoted)
}
