// Package rest provides a typed client for the platform REST API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/paxoscn/avalon-sub003/pkg/observability"
)

// APIError carries the backend-provided error string and HTTP status
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// RESTClient is a client for the REST API. Requests are retried with
// exponential backoff on transport errors and 5xx responses, behind a
// circuit breaker so a failing backend is not hammered.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	tenantID   string
	logger     observability.Logger
	breaker    *gobreaker.CircuitBreaker
	maxElapsed time.Duration
}

// ClientConfig holds configuration for the REST client
type ClientConfig struct {
	BaseURL         string
	APIKey          string
	TenantID        string
	Timeout         time.Duration
	RetryMaxElapsed time.Duration
	Logger          observability.Logger
}

// NewRESTClient creates a new REST API client
func NewRESTClient(config ClientConfig) *RESTClient {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxElapsed := config.RetryMaxElapsed
	if maxElapsed == 0 {
		maxElapsed = 2 * time.Minute
	}
	logger := config.Logger
	if logger == nil {
		logger = observability.NewLogger("rest-client")
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "rest-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &RESTClient{
		baseURL:    config.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     config.APIKey,
		tenantID:   config.TenantID,
		logger:     logger,
		breaker:    breaker,
		maxElapsed: maxElapsed,
	}
}

// Get performs a GET request and decodes the response into result
func (c *RESTClient) Get(ctx context.Context, path string, result interface{}) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, result)
}

// Post performs a POST request
func (c *RESTClient) Post(ctx context.Context, path string, body, result interface{}) error {
	return c.doRequest(ctx, http.MethodPost, path, body, result)
}

// Put performs a PUT request
func (c *RESTClient) Put(ctx context.Context, path string, body, result interface{}) error {
	return c.doRequest(ctx, http.MethodPut, path, body, result)
}

// Delete performs a DELETE request
func (c *RESTClient) Delete(ctx context.Context, path string) error {
	return c.doRequest(ctx, http.MethodDelete, path, nil, nil)
}

func (c *RESTClient) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	// Open-state breaker errors stay retryable so backoff waits out the
	// breaker's half-open window instead of failing immediately.
	operation := func() error {
		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, c.doOnce(ctx, method, path, reqBody, result)
		})
		return err
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(c.maxElapsed),
	), ctx)

	return backoff.Retry(operation, policy)
}

// doOnce performs a single HTTP exchange. 4xx responses are permanent;
// transport errors and 5xx responses are retried by the caller.
func (c *RESTClient) doOnce(ctx context.Context, method, path string, body []byte, result interface{}) error {
	url := c.baseURL + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.tenantID != "" {
		req.Header.Set("X-Tenant-ID", c.tenantID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Request failed, will retry", map[string]interface{}{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		if resp.StatusCode >= 500 {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
	}
	return nil
}
