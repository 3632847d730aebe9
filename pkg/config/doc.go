// Package config provides configuration for Airtable clients.
//
// A single Config structure carries everything a client needs:
//   - Credentials: BaseID plus either APIKey or an OAuth refresh-token flow
//   - Transport: endpoints, request timeout and pooled connection settings
//   - Rate limiting: MaxConcurrency, PostCallDelay and RequestsPerSecond
//   - Logging: a logger.Config section
//
// # Usage
//
//	cfg := config.New("appXXXXXXXXXXXXXX", os.Getenv("AIRTABLE_API_KEY"))
//	cfg.MaxConcurrency = 2
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// # File Loading
//
// Load reads YAML and substitutes ${VAR_NAME} references from the
// environment before parsing:
//
//	base_id: appXXXXXXXXXXXXXX
//	api_key: ${AIRTABLE_API_KEY}
//	timeout: 15s
//	max_concurrency: 2
//
// # Environment Binding
//
// NewViper binds AIRTABLE_* variables and FromViper decodes them, which is
// what the CLI uses together with its flags.
package config
