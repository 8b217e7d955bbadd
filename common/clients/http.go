package clients

import (
	"context"
	"io"
	"net/http"
)

// Logger interface for client logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// HTTPClient wraps http.Client with context-aware helpers
// It extracts metadata from context and adds the matching headers
type HTTPClient struct {
	client    *http.Client
	logger    Logger
	userAgent string
}

// NewHTTPClient creates a new HTTP client wrapper
func NewHTTPClient(client *http.Client, userAgent string, logger Logger) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{
		client:    client,
		logger:    logger,
		userAgent: userAgent,
	}
}

// DoRequest creates and executes an HTTP request, extracting metadata from context
func (c *HTTPClient) DoRequest(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if requestID, ok := GetRequestID(ctx); ok {
		req.Header.Set("X-Request-ID", requestID)
	}

	c.logger.Debug("outbound request", "method", method, "url", url)
	return c.client.Do(req)
}

// Get is a shorthand for DoRequest with GET and no body
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	return c.DoRequest(ctx, http.MethodGet, url, nil)
}
