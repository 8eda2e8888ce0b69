package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paxoscn/avalon-sub003/pkg/models"
	"github.com/paxoscn/avalon-sub003/pkg/observability"
)

func newTestClient(serverURL string) *ToolsClient {
	return NewToolsClient(NewRESTClient(ClientConfig{
		BaseURL:         serverURL,
		APIKey:          "test-key",
		TenantID:        "tenant-1",
		Timeout:         5 * time.Second,
		RetryMaxElapsed: 100 * time.Millisecond,
		Logger:          observability.NewNoopLogger(),
	}))
}

func TestGetToolDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/tools/tool-1", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "tenant-1", r.Header.Get("X-Tenant-ID"))

		_ = json.NewEncoder(w).Encode(models.Tool{
			ID:             "tool-1",
			TenantID:       "tenant-1",
			Name:           "jira",
			CurrentVersion: 3,
		})
	}))
	defer server.Close()

	tool, err := newTestClient(server.URL).GetTool(context.Background(), "tool-1")
	require.NoError(t, err)
	assert.Equal(t, "jira", tool.Name)
	assert.Equal(t, 3, tool.CurrentVersion)
}

func TestGetToolVersionsUnwrapsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tools/tool-1/versions", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"versions": []models.ToolVersion{
				{ID: "v2", ToolID: "tool-1", Version: 2},
				{ID: "v1", ToolID: "tool-1", Version: 1},
			},
			"count": 2,
		})
	}))
	defer server.Close()

	versions, err := newTestClient(server.URL).GetToolVersions(context.Background(), "tool-1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)
}

func TestRollbackToolPostsVersion(t *testing.T) {
	var got models.RollbackRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/tools/tool-1/rollback", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := newTestClient(server.URL).RollbackTool(context.Background(), "tool-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
}

func TestClientErrorResponseIsPermanentAndCarriesMessage(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "tool not found"})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetTool(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "tool not found", apiErr.Message)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "4xx responses are not retried")
}

func TestServerErrorSurfacesBackendMessage(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "storage unavailable"})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetTool(context.Background(), "tool-1")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "storage unavailable", apiErr.Message)
	assert.GreaterOrEqual(t, atomic.LoadInt64(&calls), int64(1))
}

func TestServerErrorWithoutBodyFallsBackToStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetTool(context.Background(), "tool-1")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Empty(t, apiErr.Message)
	assert.Contains(t, apiErr.Error(), "502")
}

func TestOpenBreakerShortCircuitsRequests(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for i := 0; i < 5; i++ {
		_, _ = client.GetTool(context.Background(), "tool-1")
	}

	before := atomic.LoadInt64(&calls)
	_, err := client.GetTool(context.Background(), "tool-1")
	require.Error(t, err)
	assert.Equal(t, before, atomic.LoadInt64(&calls), "an open breaker stops requests reaching the backend")
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).GetTool(ctx, "tool-1")
	require.Error(t, err)
}
