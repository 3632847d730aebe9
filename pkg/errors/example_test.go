package errors_test

import (
	"fmt"

	"github.com/ajitpratap0/airtable/pkg/errors"
)

// Example demonstrates basic error creation.
func Example() {
	err := errors.New(errors.ErrorTypeNotFound, "record not found").
		WithStatus(404).
		WithDetail("record_id", "rec123")

	fmt.Println(err.Error())

	// Output:
	// not_found: record not found
}

// ExampleIsRetryable shows how callers decide on their own retry policy.
func ExampleIsRetryable() {
	throttled := errors.New(errors.ErrorTypeRateLimit, "too many requests")
	rejected := errors.New(errors.ErrorTypeValidation, "unknown field name")

	fmt.Println(errors.IsRetryable(throttled))
	fmt.Println(errors.IsRetryable(rejected))

	// Output:
	// true
	// false
}
