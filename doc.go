// Package airtablego is a Go client and command-line tool for the Airtable
// REST API.
//
// The client talks to one base at a time. It reads the base schema, resolves
// table names to ids, lists records with filtering, sorting and offset
// pagination, writes records in batches of ten, uploads attachments, and
// creates tables and fields. Every operation has a blocking form on
// airtable.Client and a non-blocking form on airtable.AsyncClient that
// returns a Future.
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/airtable/pkg/airtable"
//	)
//
//	client, err := airtable.New("appXXXXXXXXXXXXXX", os.Getenv("AIRTABLE_API_KEY"),
//	    airtable.WithMaxConcurrency(2))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	records, err := client.FetchAll(ctx, "Tasks", airtable.ListOptions{
//	    Filter: "{Status}='Todo'",
//	})
//
// # Key Packages
//
//	pkg/airtable      - Blocking and non-blocking client facade
//	pkg/clients       - Pooled HTTP transport with OAuth2 and tracing
//	pkg/ratelimit     - Concurrency gate, post-call delay and rps throttle
//	pkg/config        - YAML and environment configuration
//	pkg/errors        - Structured error taxonomy and batch reports
//	pkg/logger        - Structured logging
//	pkg/metrics       - Prometheus collectors
//	pkg/observability - OpenTelemetry tracing
//	pkg/testutil      - In-memory Airtable fake and test helpers
//
// # Errors
//
// Failures are classified as authentication (401, 403), not_found (404),
// rate_limit (429), validation (other 4xx), server (5xx) or transport
// (connection, timeout and cancellation). The client never retries;
// errors.IsRetryable tells callers which failures a retry could fix.
//
// # Configuration
//
// Settings load from YAML with ${VAR_NAME} substitution or from AIRTABLE_*
// environment variables:
//
//	base_id: appXXXXXXXXXXXXXX
//	api_key: ${AIRTABLE_API_KEY}
//	max_concurrency: 2
//	post_call_delay: 200ms
//	requests_per_second: 5
//
// # Command line
//
//	go install github.com/ajitpratap0/airtable/cmd/airtable@latest
//	airtable --base appXXXXXXXXXXXXXX schema --tables
//	airtable records list Tasks --filter "{Status}='Todo'" --sort=-Estimate
package airtablego
