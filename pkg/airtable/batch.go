package airtable

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/airtable/pkg/errors"
	"github.com/ajitpratap0/airtable/pkg/metrics"
)

// runBatches sends items in sequential chunks of MaxRecordsPerRequest.
// Results of committed chunks are returned in input order even when a later
// chunk fails; the error is then a *errors.BatchError. Processing stops at
// the first failure unless continueOnError is set, and always stops when ctx
// is done. Inputs of batches that were never sent are reported as skipped.
func runBatches[T, R any](
	ctx context.Context,
	c *Client,
	operation string,
	items []T,
	continueOnError bool,
	send func(ctx context.Context, batch []T) ([]R, error),
) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}

	batches := (len(items) + MaxRecordsPerRequest - 1) / MaxRecordsPerRequest
	report := errors.NewBatchError(operation, batches)
	results := make([]R, 0, len(items))
	log := c.logger.With(zap.String("operation", operation))

	for b := 0; b < batches; b++ {
		start := b * MaxRecordsPerRequest
		end := min(start+MaxRecordsPerRequest, len(items))

		if len(report.Failures) > 0 && !continueOnError {
			skipAfter(report, operation, start, len(items))
			break
		}
		if err := ctx.Err(); err != nil {
			report.Stop(errors.Wrap(err, errors.ErrorTypeTransport, "batches not sent"))
			skipAfter(report, operation, start, len(items))
			break
		}

		out, err := send(ctx, items[start:end])
		if err == nil && len(out) != end-start {
			err = errors.Newf(errors.ErrorTypeData, "expected %d records in response, got %d", end-start, len(out))
		}
		if err != nil {
			report.AddFailure(b+1, indexRange(start, end), err)
			metrics.AddRecords(operation, "failure", end-start)
			log.Debug("batch failed", zap.Int("batch", b+1), zap.Int("batches", batches), zap.Error(err))
			continue
		}

		results = append(results, out...)
		report.AddSuccess(indexRange(start, end)...)
		metrics.AddRecords(operation, "success", end-start)
	}

	if err := report.ErrorOrNil(); err != nil {
		log.Warn("batched write partially failed",
			zap.Int("batches", batches),
			zap.Ints("failed_batches", report.FailedBatches()),
			zap.Int("succeeded", len(report.Succeeded)),
			zap.Int("skipped", len(report.Skipped)))
		return results, err
	}
	return results, nil
}

func skipAfter(report *errors.BatchError, operation string, start, end int) {
	if start >= end {
		return
	}
	report.AddSkipped(indexRange(start, end)...)
	metrics.AddRecords(operation, "skipped", end-start)
}

func indexRange(start, end int) []int {
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}
