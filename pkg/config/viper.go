package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by NewViper
const EnvPrefix = "AIRTABLE"

// NewViper returns a viper instance seeded with Default values and bound to
// AIRTABLE_* environment variables (AIRTABLE_API_KEY, AIRTABLE_BASE_ID,
// AIRTABLE_HTTP_ENABLE_HTTP2 ...).
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("base_id", "")
	v.SetDefault("api_key", "")
	v.SetDefault("endpoint", d.Endpoint)
	v.SetDefault("content_endpoint", d.ContentEndpoint)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("page_size", d.PageSize)
	v.SetDefault("max_concurrency", d.MaxConcurrency)
	v.SetDefault("post_call_delay", d.PostCallDelay)
	v.SetDefault("requests_per_second", d.RequestsPerSecond)
	v.SetDefault("http.max_idle_conns", d.HTTP.MaxIdleConns)
	v.SetDefault("http.max_idle_conns_per_host", d.HTTP.MaxIdleConnsPerHost)
	v.SetDefault("http.idle_conn_timeout", d.HTTP.IdleConnTimeout)
	v.SetDefault("http.enable_http2", d.HTTP.EnableHTTP2)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)

	return v
}

// FromViper decodes a Config from v, reading the config file first when one
// has been set, then applies defaults and validates.
func FromViper(v *viper.Viper) (*Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
