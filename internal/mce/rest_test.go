// ABOUTME: Tests for the REST proxy covering URL joining, passthrough, and transport errors.
// ABOUTME: Runs a fake vendor REST endpoint alongside a fake token endpoint.

package mce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRestFixture wires a token server whose rest_instance_url points at the
// given handler.
func newRestFixture(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	restSrv := httptest.NewServer(handler)
	t.Cleanup(restSrv.Close)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":      "token-abc",
			"rest_instance_url": restSrv.URL,
			"soap_instance_url": restSrv.URL,
			"expires_in":        3600,
		})
	}))
	t.Cleanup(tokenSrv.Close)

	return NewClient(Config{
		Credentials: testCredentials(),
		AuthURL:     tokenSrv.URL,
	})
}

func TestRestPassesThroughSuccess(t *testing.T) {
	var gotPath, gotAuth, gotQuery string
	client := newRestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[]}`))
	})

	resp, err := client.Rest(context.Background(), RestRequest{
		Method: http.MethodGet,
		Path:   "/asset/v1/content/assets",
		Query:  map[string]string{"pageSize": "50"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"items":[]}`, string(resp.Body))
	assert.Equal(t, "/asset/v1/content/assets", gotPath)
	assert.Equal(t, "Bearer token-abc", gotAuth)
	assert.Equal(t, "pageSize=50", gotQuery)
}

func TestRestPassesThroughVendorError(t *testing.T) {
	client := newRestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errorcode":118077,"message":"assetType.name required"}`))
	})

	resp, err := client.Rest(context.Background(), RestRequest{
		Method: http.MethodPost,
		Path:   "/asset/v1/content/assets",
		Body:   map[string]any{"name": "x"},
	})
	require.NoError(t, err, "non-2xx vendor status is not an error")
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Contains(t, string(resp.Body), "118077")
}

func TestRestSerializesBodyAsJSON(t *testing.T) {
	var gotBody map[string]any
	client := newRestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{}`))
	})

	_, err := client.Rest(context.Background(), RestRequest{
		Method: http.MethodPost,
		Path:   "/interaction/v1/interactions",
		Body:   map[string]any{"name": "Welcome Journey"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Welcome Journey", gotBody["name"])
}

func TestRestNonJSONBodyIsQuoted(t *testing.T) {
	client := newRestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text response"))
	})

	resp, err := client.Rest(context.Background(), RestRequest{
		Method: http.MethodGet,
		Path:   "/platform/v1/endpoints",
	})
	require.NoError(t, err)

	var s string
	require.NoError(t, json.Unmarshal(resp.Body, &s))
	assert.Equal(t, "plain text response", s)
}

func TestRestTransportError(t *testing.T) {
	// Point the instance URL at a listener that has already closed.
	deadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := deadSrv.URL
	deadSrv.Close()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":      "token-abc",
			"rest_instance_url": deadURL,
			"soap_instance_url": deadURL,
			"expires_in":        3600,
		})
	}))
	defer tokenSrv.Close()

	client := NewClient(Config{
		Credentials: testCredentials(),
		AuthURL:     tokenSrv.URL,
	})

	_, err := client.Rest(context.Background(), RestRequest{
		Method: http.MethodGet,
		Path:   "/asset/v1/content/assets",
	})
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		path  string
		query map[string]string
		want  string
	}{
		{
			name: "trailing slash on base",
			base: "https://rest.example.com/",
			path: "/asset/v1/content/assets",
			want: "https://rest.example.com/asset/v1/content/assets",
		},
		{
			name: "no slashes",
			base: "https://rest.example.com",
			path: "asset/v1/content/assets",
			want: "https://rest.example.com/asset/v1/content/assets",
		},
		{
			name:  "query encoding",
			base:  "https://rest.example.com",
			path:  "/asset/v1/content/assets",
			query: map[string]string{"$filter": "assetType.id eq 207"},
			want:  "https://rest.example.com/asset/v1/content/assets?%24filter=assetType.id+eq+207",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := joinURL(tt.base, tt.path, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
