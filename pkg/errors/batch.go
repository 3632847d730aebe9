package errors

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// BatchFailure describes one rejected request of a batched write.
type BatchFailure struct {
	// Batch is the 1-based position of the request within the operation
	Batch int
	// Indices are the input positions carried by the failed request
	Indices []int
	// Err is the classified transport or vendor error
	Err error
}

func (f *BatchFailure) Error() string {
	return fmt.Sprintf("batch %d (inputs %s): %v", f.Batch, formatIndices(f.Indices), f.Err)
}

// Unwrap returns the classified cause so IsType sees through the failure.
func (f *BatchFailure) Unwrap() error {
	return f.Err
}

// BatchError reports a batched write that did not fully succeed. Records
// from committed batches stay committed at the vendor.
type BatchError struct {
	Operation string
	// Batches is the number of requests the operation was split into
	Batches int
	// Succeeded are the input indices the vendor confirmed
	Succeeded []int
	// Skipped are the input indices never sent because processing stopped
	Skipped []int
	Failures []*BatchFailure
	// Stopped is why processing ended before every batch was sent, such as
	// a canceled context. Nil when processing ran to the end or stopped on
	// a failed batch.
	Stopped error

	merr *multierror.Error
}

// NewBatchError creates an empty batch report for the named operation.
func NewBatchError(operation string, batches int) *BatchError {
	return &BatchError{Operation: operation, Batches: batches}
}

// AddSuccess records confirmed input indices.
func (b *BatchError) AddSuccess(indices ...int) {
	b.Succeeded = append(b.Succeeded, indices...)
}

// AddFailure records a rejected batch.
func (b *BatchError) AddFailure(batch int, indices []int, err error) {
	f := &BatchFailure{Batch: batch, Indices: indices, Err: err}
	b.Failures = append(b.Failures, f)
	b.merr = multierror.Append(b.merr, f)
	b.merr.ErrorFormat = joinErrors
}

// AddSkipped records input indices that were never attempted.
func (b *BatchError) AddSkipped(indices ...int) {
	b.Skipped = append(b.Skipped, indices...)
}

// Stop records why the remaining batches were not sent.
func (b *BatchError) Stop(err error) {
	b.Stopped = err
}

// Failed returns every input index carried by a failed batch, in order.
func (b *BatchError) Failed() []int {
	var out []int
	for _, f := range b.Failures {
		out = append(out, f.Indices...)
	}
	return out
}

// FailedBatches returns the 1-based numbers of the rejected batches.
func (b *BatchError) FailedBatches() []int {
	out := make([]int, 0, len(b.Failures))
	for _, f := range b.Failures {
		out = append(out, f.Batch)
	}
	return out
}

// ErrorOrNil returns nil when no batch failed and processing was not
// stopped early.
func (b *BatchError) ErrorOrNil() error {
	if b == nil || (len(b.Failures) == 0 && b.Stopped == nil) {
		return nil
	}
	return b
}

func (b *BatchError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d of %d batches failed (%d succeeded, %d failed, %d skipped)",
		b.Operation, len(b.Failures), b.Batches, len(b.Succeeded), len(b.Failed()), len(b.Skipped))
	if b.merr != nil {
		sb.WriteString(": ")
		sb.WriteString(b.merr.Error())
	}
	if b.Stopped != nil {
		sb.WriteString(": stopped: ")
		sb.WriteString(b.Stopped.Error())
	}
	return sb.String()
}

// Unwrap exposes each failure so errors.As and IsType can match the
// underlying vendor classification.
func (b *BatchError) Unwrap() []error {
	var errs []error
	if b.merr != nil {
		errs = append(errs, b.merr.WrappedErrors()...)
	}
	if b.Stopped != nil {
		errs = append(errs, b.Stopped)
	}
	return errs
}

func joinErrors(errs []error) string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

func formatIndices(indices []int) string {
	if len(indices) == 0 {
		return "none"
	}
	if len(indices) == 1 {
		return fmt.Sprintf("%d", indices[0])
	}
	contiguous := true
	for i := 1; i < len(indices); i++ {
		if indices[i] != indices[i-1]+1 {
			contiguous = false
			break
		}
	}
	if contiguous {
		return fmt.Sprintf("%d-%d", indices[0], indices[len(indices)-1])
	}
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return strings.Join(parts, ",")
}
