// Package httputil provides HTTP client utilities for service-to-service communication.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	svcerrors "github.com/postboard/service_layer/internal/errors"
	"github.com/postboard/service_layer/internal/logging"
	"github.com/postboard/service_layer/internal/metrics"
)

// =============================================================================
// Service Client
// =============================================================================

// ServiceClient issues JSON requests to one downstream service.
// Every call is a single round trip: nothing is retried.
type ServiceClient struct {
	httpClient *http.Client
	service    string
	baseURL    string
}

// ServiceClientConfig configures the service client.
type ServiceClientConfig struct {
	// Service names the downstream for errors and metrics ("auth", "storage", ...).
	Service string
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// NewServiceClient creates a new service client.
func NewServiceClient(cfg ServiceClientConfig) *ServiceClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &ServiceClient{
		httpClient: httpClient,
		service:    cfg.Service,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Service returns the downstream service name.
func (c *ServiceClient) Service() string { return c.service }

// BaseURL returns the downstream base URL.
func (c *ServiceClient) BaseURL() string { return c.baseURL }

// Do executes an HTTP request. The trace ID in ctx is forwarded as X-Trace-ID.
// Transport failures are returned as SERVICE_UNAVAILABLE errors.
func (c *ServiceClient) Do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if traceID := logging.GetTraceID(ctx); traceID != "" {
		req.Header.Set(logging.TraceIDHeader, traceID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordDownstreamCall(c.service, method, "error", time.Since(start))
		return nil, svcerrors.ServiceUnavailable(c.service, err)
	}
	metrics.RecordDownstreamCall(c.service, method, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	return resp, nil
}

// Get performs a GET request.
func (c *ServiceClient) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with JSON body.
func (c *ServiceClient) Post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put performs a PUT request with JSON body.
func (c *ServiceClient) Put(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Delete performs a DELETE request. body may be nil.
func (c *ServiceClient) Delete(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, path, body)
}

// CallJSON performs a request and decodes a 2xx JSON response into target.
// Non-2xx responses become service errors mapped from the status code.
func (c *ServiceClient) CallJSON(ctx context.Context, method, path string, body, target interface{}) error {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, target)
}

// CheckHealth calls GET /health and fails unless the service answers 200.
func (c *ServiceClient) CheckHealth(ctx context.Context) error {
	resp, err := c.Get(ctx, "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s health returned status %d", c.service, resp.StatusCode)
	}
	return nil
}

// DecodeResponse decodes a JSON response into the target struct.
// Error statuses are converted with errors.FromStatus using the body's "error" or
// "message" field; the raw body is never surfaced.
func DecodeResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _, err := ReadAllWithLimit(resp.Body, 64<<10)
		if err != nil {
			return fmt.Errorf("read error response body: %w", err)
		}
		return svcerrors.FromStatus(resp.StatusCode, errorMessage(body))
	}

	if target == nil {
		if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, 8<<20)); err != nil {
			return fmt.Errorf("discard response body: %w", err)
		}
		return nil
	}

	body, err := ReadAllStrict(resp.Body, 8<<20)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}

// Relay copies a downstream response (status, content type and body) to w unchanged.
func Relay(w http.ResponseWriter, resp *http.Response) error {
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	_, err := io.Copy(w, io.LimitReader(resp.Body, 8<<20))
	return err
}
