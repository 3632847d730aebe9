package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ajitpratap0/airtable/pkg/logger"
)

const (
	// DefaultEndpoint is the Airtable REST API root
	DefaultEndpoint = "https://api.airtable.com"
	// DefaultContentEndpoint serves attachment uploads
	DefaultContentEndpoint = "https://content.airtable.com"
	// MaxPageSize is the largest page Airtable returns for list requests
	MaxPageSize = 100
)

// Config is the single configuration structure for an Airtable client.
// Each section maps to a concern of the client: credentials, transport,
// rate limiting and logging.
type Config struct {
	// BaseID identifies the Airtable base (required)
	BaseID string `yaml:"base_id" mapstructure:"base_id"`
	// APIKey is the personal access token sent as a bearer token. Required
	// unless OAuth is configured.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// Endpoint overrides the REST API root
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// ContentEndpoint overrides the attachment upload root
	ContentEndpoint string `yaml:"content_endpoint" mapstructure:"content_endpoint"`

	// Timeout bounds each HTTP request
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// PageSize is the number of records requested per list page (1-100)
	PageSize int `yaml:"page_size" mapstructure:"page_size"`

	// MaxConcurrency limits in-flight requests per client (0 = unlimited)
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	// PostCallDelay suspends the caller after each request completes
	PostCallDelay time.Duration `yaml:"post_call_delay" mapstructure:"post_call_delay"`
	// RequestsPerSecond throttles request starts (0 = unlimited)
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`

	HTTP  HTTPConfig    `yaml:"http" mapstructure:"http"`
	OAuth *OAuthConfig  `yaml:"oauth" mapstructure:"oauth"`
	Log   logger.Config `yaml:"log" mapstructure:"log"`
}

// HTTPConfig tunes the pooled transport owned by each client
type HTTPConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout" mapstructure:"idle_conn_timeout"`
	EnableHTTP2         bool          `yaml:"enable_http2" mapstructure:"enable_http2"`
	UserAgent           string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// OAuthConfig configures an OAuth2 refresh-token flow instead of a static key
type OAuthConfig struct {
	ClientID     string   `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string   `yaml:"client_secret" mapstructure:"client_secret"`
	RefreshToken string   `yaml:"refresh_token" mapstructure:"refresh_token"`
	TokenURL     string   `yaml:"token_url" mapstructure:"token_url"`
	Scopes       []string `yaml:"scopes" mapstructure:"scopes"`
}

// Default creates a Config with defaults suited to Airtable's published
// limits (5 requests per second per base, 100 records per page).
func Default() *Config {
	return &Config{
		Endpoint:          DefaultEndpoint,
		ContentEndpoint:   DefaultContentEndpoint,
		Timeout:           30 * time.Second,
		PageSize:          MaxPageSize,
		MaxConcurrency:    5,
		RequestsPerSecond: 5,
		HTTP: HTTPConfig{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			EnableHTTP2:         true,
			UserAgent:           "airtable-go/1.0",
		},
		Log: logger.DefaultConfig(),
	}
}

// New creates a default Config for the given base and key
func New(baseID, apiKey string) *Config {
	cfg := Default()
	cfg.BaseID = baseID
	cfg.APIKey = apiKey
	return cfg
}

// ApplyDefaults fills zero values from Default
func (c *Config) ApplyDefaults() {
	d := Default()
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.ContentEndpoint == "" {
		c.ContentEndpoint = d.ContentEndpoint
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.PageSize == 0 {
		c.PageSize = d.PageSize
	}
	if c.HTTP.MaxIdleConns == 0 {
		c.HTTP.MaxIdleConns = d.HTTP.MaxIdleConns
	}
	if c.HTTP.MaxIdleConnsPerHost == 0 {
		c.HTTP.MaxIdleConnsPerHost = d.HTTP.MaxIdleConnsPerHost
	}
	if c.HTTP.IdleConnTimeout == 0 {
		c.HTTP.IdleConnTimeout = d.HTTP.IdleConnTimeout
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = d.HTTP.UserAgent
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = d.Log.Encoding
	}
}

// Validate validates the configuration for correctness.
// Identifiers are only checked for presence; their format is the vendor's
// concern.
func (c *Config) Validate() error {
	if c.BaseID == "" {
		return fmt.Errorf("base_id is required")
	}
	if c.APIKey == "" && c.OAuth == nil {
		return fmt.Errorf("api_key is required")
	}
	if c.OAuth != nil {
		if c.OAuth.ClientID == "" || c.OAuth.RefreshToken == "" {
			return fmt.Errorf("oauth requires client_id and refresh_token")
		}
	}
	for name, raw := range map[string]string{"endpoint": c.Endpoint, "content_endpoint": c.ContentEndpoint} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s must use http or https scheme, got: %q", name, u.Scheme)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.PageSize < 0 || c.PageSize > MaxPageSize {
		return fmt.Errorf("page_size must be between 1 and %d", MaxPageSize)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency cannot be negative")
	}
	if c.PostCallDelay < 0 {
		return fmt.Errorf("post_call_delay cannot be negative")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second cannot be negative")
	}
	return nil
}

// IsRateLimited returns true if any client-side limiter is configured
func (c *Config) IsRateLimited() bool {
	return c.MaxConcurrency > 0 || c.PostCallDelay > 0 || c.RequestsPerSecond > 0
}
