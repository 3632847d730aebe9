// Package clients provides the pooled HTTP client owned by each Airtable
// client instance.
package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/oauth2"

	"github.com/ajitpratap0/airtable/pkg/metrics"
	"github.com/ajitpratap0/airtable/pkg/observability"
)

// RequestIDHeader carries the client-generated request id
const RequestIDHeader = "X-Request-Id"

// ErrClientClosed is returned by Do after Close
var ErrClientClosed = fmt.Errorf("http client is closed")

// HTTPClient is an HTTP client with its own connection pool. It stamps
// default headers and a request id on every request and records metrics
// and a trace span per call. It never retries.
type HTTPClient struct {
	config     *HTTPConfig
	logger     *zap.Logger
	httpClient *http.Client
	transport  *http.Transport

	closed         atomic.Bool
	totalRequests  atomic.Int64
	failedRequests atomic.Int64
}

// HTTPConfig configures the HTTP client
type HTTPConfig struct {
	// Connection settings
	MaxIdleConns        int           `json:"max_idle_conns"`
	MaxIdleConnsPerHost int           `json:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `json:"idle_conn_timeout"`

	// HTTP/2 settings
	EnableHTTP2 bool `json:"enable_http2"`

	// Timeouts
	DialTimeout         time.Duration `json:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `json:"tls_handshake_timeout"`
	RequestTimeout      time.Duration `json:"request_timeout"`
	KeepAlive           time.Duration `json:"keep_alive"`

	UserAgent string `json:"user_agent"`

	// TokenSource attaches OAuth2 bearer tokens when set
	TokenSource oauth2.TokenSource `json:"-"`
}

// DefaultHTTPConfig returns the default configuration
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		EnableHTTP2:         true,
		DialTimeout:         30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		RequestTimeout:      30 * time.Second,
		KeepAlive:           30 * time.Second,
		UserAgent:           "airtable-go/1.0",
	}
}

// NewHTTPClient creates a new HTTP client with a dedicated transport
func NewHTTPClient(config *HTTPConfig, logger *zap.Logger) *HTTPClient {
	if config == nil {
		config = DefaultHTTPConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := &HTTPClient{
		config: config,
		logger: logger.With(zap.String("component", "http_client")),
	}

	client.transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	if config.EnableHTTP2 {
		if err := http2.ConfigureTransport(client.transport); err != nil {
			client.logger.Warn("failed to configure HTTP/2", zap.Error(err))
		} else {
			client.logger.Debug("HTTP/2 enabled")
		}
	}

	var rt http.RoundTripper = client.transport
	if config.TokenSource != nil {
		rt = &oauth2.Transport{Source: config.TokenSource, Base: client.transport}
	}

	client.httpClient = &http.Client{
		Transport: rt,
		Timeout:   config.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return client
}

// Do sends req. Non-2xx responses are returned as responses, not errors;
// classification is the caller's concern.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	if req.Header.Get("User-Agent") == "" && c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		req.Header.Set(RequestIDHeader, requestID)
	}

	ctx, span := observability.StartSpan(req.Context(), "HTTP "+req.Method,
		attribute.String("http.method", req.Method),
		attribute.String("http.url", req.URL.Redacted()),
		attribute.String("airtable.request_id", requestID),
	)
	observability.InjectHeaders(ctx, propagation.HeaderCarrier(req.Header))
	req = req.WithContext(ctx)

	c.totalRequests.Add(1)
	metrics.InFlightRequests.Inc()
	timer := metrics.NewTimer()

	resp, err := c.httpClient.Do(req)

	duration := timer.Stop()
	metrics.InFlightRequests.Dec()

	code := 0
	if resp != nil {
		code = resp.StatusCode
		span.SetAttributes(attribute.Int("http.status_code", code))
	}
	metrics.ObserveRequest(req.Method, code, duration)
	observability.EndSpan(span, err)

	if err != nil {
		c.failedRequests.Add(1)
		c.logger.Debug("request failed",
			zap.String("request_id", requestID),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, err
	}

	c.logger.Debug("request completed",
		zap.String("request_id", requestID),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", code),
		zap.Duration("duration", duration))

	return resp, nil
}

// SetTokenSource makes the client attach OAuth2 bearer tokens from ts. It
// must be called before the first request.
func (c *HTTPClient) SetTokenSource(ts oauth2.TokenSource) {
	c.httpClient.Transport = &oauth2.Transport{Source: ts, Base: c.transport}
}

// BaseClient returns an *http.Client sharing this client's pool but without
// token injection, suitable for OAuth2 token refreshes.
func (c *HTTPClient) BaseClient() *http.Client {
	return &http.Client{Transport: c.transport, Timeout: c.config.RequestTimeout}
}

// Context returns ctx carrying the base client for golang.org/x/oauth2
func (c *HTTPClient) Context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.BaseClient())
}

// GetStats returns current client statistics
func (c *HTTPClient) GetStats() HTTPStats {
	total := c.totalRequests.Load()
	failed := c.failedRequests.Load()

	stats := HTTPStats{
		TotalRequests:  total,
		FailedRequests: failed,
		Closed:         c.closed.Load(),
	}
	if total > 0 {
		stats.SuccessRate = float64(total-failed) / float64(total) * 100
	}
	return stats
}

// Close releases idle connections. Calling Close more than once is safe and
// Do fails after the first call.
func (c *HTTPClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.logger.Debug("closing HTTP client")
	c.transport.CloseIdleConnections()
	return nil
}

// HTTPStats represents HTTP client statistics
type HTTPStats struct {
	TotalRequests  int64   `json:"total_requests"`
	FailedRequests int64   `json:"failed_requests"`
	SuccessRate    float64 `json:"success_rate"`
	Closed         bool    `json:"closed"`
}
