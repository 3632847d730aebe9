// Package airtable is a client for the Airtable REST API.
//
// A Client talks to one base. It covers schema retrieval and table/field
// creation, record CRUD with filtering and pagination, and attachment
// upload:
//
//	client, err := airtable.New("appXXXXXXXXXXXXXX", os.Getenv("AIRTABLE_API_KEY"))
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	tableID, err := client.ResolveTableID(ctx, "Tasks")
//	if err != nil {
//		return err
//	}
//	it := client.FetchRecords(tableID, airtable.ListOptions{Filter: "{Status}='Todo'"})
//	for it.Next(ctx) {
//		fmt.Println(it.Record().Fields["Name"])
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
//
// # Blocking and non-blocking calls
//
// Client methods block. Client.Async returns an AsyncClient whose methods run
// the same Client methods on goroutines and return a Future:
//
//	a := client.Async()
//	open := a.FetchAll(ctx, tableID, airtable.ListOptions{Filter: "{Status}='Todo'"})
//	done := a.FetchAll(ctx, tableID, airtable.ListOptions{Filter: "{Status}='Done'"})
//	results, err := airtable.AwaitAll(ctx, open, done)
//
// # Errors
//
// Failures are *errors.Error values from pkg/errors classified as
// authentication, not_found, rate_limit, validation, server or transport.
// Nothing is retried; errors.IsRetryable helps callers build their own
// policy. Batched writes that fail part way return the committed records
// together with an *errors.BatchError.
//
// # Rate limiting
//
// max_concurrency, post_call_delay and requests_per_second build a
// ratelimit chain applied around every request. WithLimiter adds more.
package airtable
