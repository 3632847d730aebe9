package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "error", StatusLabel(0))
	assert.Equal(t, "429", StatusLabel(http.StatusTooManyRequests))
}

func TestObserveRequest(t *testing.T) {
	counter := RequestsTotal.WithLabelValues(http.MethodPatch, "422")
	before := testutil.ToFloat64(counter)

	ObserveRequest(http.MethodPatch, 422, 10*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestAddRecords(t *testing.T) {
	counter := RecordsProcessed.WithLabelValues("create", "skipped")
	before := testutil.ToFloat64(counter)

	AddRecords("create", "skipped", 0)
	AddRecords("create", "skipped", 30)

	assert.Equal(t, before+30, testutil.ToFloat64(counter))
}

func TestTimer(t *testing.T) {
	timer := NewTimer()
	time.Sleep(5 * time.Millisecond)
	first := timer.Stop()
	assert.GreaterOrEqual(t, first, 5*time.Millisecond)
	assert.GreaterOrEqual(t, timer.Stop(), first)
}
