package airtable

import (
	"context"
	"math"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/airtable/pkg/clients"
	"github.com/ajitpratap0/airtable/pkg/config"
	"github.com/ajitpratap0/airtable/pkg/errors"
	"github.com/ajitpratap0/airtable/pkg/logger"
	"github.com/ajitpratap0/airtable/pkg/ratelimit"
)

// Doer sends HTTP requests. *http.Client and *clients.HTTPClient satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the blocking Airtable client for one base. It is safe for
// concurrent use. Call Close to release its connection pool.
type Client struct {
	baseID          string
	apiKey          string
	endpoint        string
	contentEndpoint string
	pageSize        int
	timeout         time.Duration

	doer    Doer
	owned   *clients.HTTPClient
	limiter ratelimit.Limiter
	gate    *ratelimit.Gate
	logger  *zap.Logger

	schemaMu sync.RWMutex
	schema   *Schema

	closed atomic.Bool
}

type options struct {
	logger  *zap.Logger
	doer    Doer
	limiter ratelimit.Limiter
	mutate  []func(*config.Config)
}

// Option configures a Client
type Option func(*options)

// WithLogger sets the logger. The default is logger.Get().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient sends requests through d instead of a pooled client owned
// by the Client. Close does not close d.
func WithHTTPClient(d Doer) Option {
	return func(o *options) { o.doer = d }
}

// WithLimiter applies l around every request, after the limiters built from
// configuration.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithEndpoint overrides the REST API root
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.mutate = append(o.mutate, func(c *config.Config) { c.Endpoint = endpoint })
	}
}

// WithContentEndpoint overrides the attachment upload root
func WithContentEndpoint(endpoint string) Option {
	return func(o *options) {
		o.mutate = append(o.mutate, func(c *config.Config) { c.ContentEndpoint = endpoint })
	}
}

// WithTimeout bounds each request
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.mutate = append(o.mutate, func(c *config.Config) { c.Timeout = d })
	}
}

// WithPageSize sets the default list page size (1-100)
func WithPageSize(n int) Option {
	return func(o *options) {
		o.mutate = append(o.mutate, func(c *config.Config) { c.PageSize = n })
	}
}

// WithMaxConcurrency bounds in-flight requests (0 = unlimited)
func WithMaxConcurrency(n int) Option {
	return func(o *options) {
		o.mutate = append(o.mutate, func(c *config.Config) { c.MaxConcurrency = n })
	}
}

// WithPostCallDelay suspends the caller for d after each request
func WithPostCallDelay(d time.Duration) Option {
	return func(o *options) {
		o.mutate = append(o.mutate, func(c *config.Config) { c.PostCallDelay = d })
	}
}

// WithRequestsPerSecond throttles request starts (0 = unlimited)
func WithRequestsPerSecond(rps float64) Option {
	return func(o *options) {
		o.mutate = append(o.mutate, func(c *config.Config) { c.RequestsPerSecond = rps })
	}
}

// New creates a client for baseID authenticated with a personal access
// token, using default configuration.
func New(baseID, apiKey string, opts ...Option) (*Client, error) {
	return NewFromConfig(config.New(baseID, apiKey), opts...)
}

// NewFromConfig creates a client from cfg. cfg is not modified.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "config is required")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	c := *cfg
	for _, m := range o.mutate {
		m(&c)
	}
	c.ApplyDefaults()

	if c.APIKey == "" && c.OAuth == nil {
		return nil, errors.New(errors.ErrorTypeAuthentication, "missing credentials: api_key or oauth is required")
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}

	log := o.logger
	if log == nil {
		log = logger.Get()
	}
	log = log.Named("airtable").With(zap.String("base_id", c.BaseID))

	client := &Client{
		baseID:          c.BaseID,
		apiKey:          c.APIKey,
		endpoint:        strings.TrimRight(c.Endpoint, "/"),
		contentEndpoint: strings.TrimRight(c.ContentEndpoint, "/"),
		pageSize:        c.PageSize,
		timeout:         c.Timeout,
		doer:            o.doer,
		logger:          log,
	}

	if client.doer == nil {
		client.owned = clients.NewHTTPClient(&clients.HTTPConfig{
			MaxIdleConns:        c.HTTP.MaxIdleConns,
			MaxIdleConnsPerHost: c.HTTP.MaxIdleConnsPerHost,
			IdleConnTimeout:     c.HTTP.IdleConnTimeout,
			EnableHTTP2:         c.HTTP.EnableHTTP2,
			DialTimeout:         30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			KeepAlive:           30 * time.Second,
			RequestTimeout:      c.Timeout,
			UserAgent:           c.HTTP.UserAgent,
		}, log)
		client.doer = client.owned

		if c.OAuth != nil {
			ts, err := clients.NewTokenSource(client.owned.Context(context.Background()), &clients.OAuth2Config{
				ClientID:     c.OAuth.ClientID,
				ClientSecret: c.OAuth.ClientSecret,
				RefreshToken: c.OAuth.RefreshToken,
				TokenURL:     c.OAuth.TokenURL,
				Scopes:       c.OAuth.Scopes,
			}, log)
			if err != nil {
				_ = client.owned.Close()
				return nil, errors.Wrap(err, errors.ErrorTypeAuthentication, "failed to configure oauth2")
			}
			client.owned.SetTokenSource(ts)
			client.apiKey = ""
		}
	} else if c.OAuth != nil {
		return nil, errors.New(errors.ErrorTypeConfig, "oauth cannot be combined with a custom HTTP client")
	}

	client.gate = ratelimit.NewGate(c.MaxConcurrency)
	client.limiter = ratelimit.Chain(
		ratelimit.NewDelay(c.PostCallDelay),
		client.gate,
		ratelimit.NewThrottle(c.RequestsPerSecond, int(math.Ceil(c.RequestsPerSecond))),
		o.limiter,
	)

	log.Debug("airtable client created",
		zap.Int("page_size", c.PageSize),
		zap.Int("max_concurrency", c.MaxConcurrency),
		zap.Duration("post_call_delay", c.PostCallDelay),
		zap.Float64("requests_per_second", c.RequestsPerSecond))

	return client, nil
}

// BaseID returns the base this client talks to
func (c *Client) BaseID() string {
	return c.baseID
}

// Gate returns the concurrency gate built from max_concurrency, or nil when
// concurrency is unlimited.
func (c *Client) Gate() *ratelimit.Gate {
	return c.gate
}

// Logger returns the client logger
func (c *Client) Logger() *zap.Logger {
	return c.logger
}

// Close releases the connection pool owned by the client. It is safe to
// call more than once; requests fail with a transport error afterwards.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.owned != nil {
		return c.owned.Close()
	}
	return nil
}
