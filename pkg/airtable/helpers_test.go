package airtable

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/airtable/pkg/testutil"
)

const testBase = "appTESTBASE00000"

// newTestClient returns a client wired to a fresh fake with client-side
// limiters disabled unless opts enable them.
func newTestClient(t *testing.T, opts ...Option) (*Client, *testutil.FakeAirtable) {
	t.Helper()

	fake := testutil.NewFakeAirtable(t, testBase)
	base := []Option{
		WithEndpoint(fake.URL()),
		WithContentEndpoint(fake.URL()),
		WithLogger(testutil.TestLogger(t)),
		WithMaxConcurrency(0),
		WithRequestsPerSecond(0),
	}

	client, err := New(testBase, testutil.FakeAPIKey, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, fake
}

func tasksTable(fake *testutil.FakeAirtable) testutil.FakeTable {
	return fake.AddTable("Tasks",
		testutil.FakeField{Name: "Name", Type: "singleLineText"},
		testutil.FakeField{Name: "Estimate", Type: "number"},
		testutil.FakeField{Name: "Status", Type: "singleSelect"},
		testutil.FakeField{Name: "Files", Type: "multipleAttachments"},
	)
}

func seedTasks(fake *testutil.FakeAirtable, tableID string, n int) []string {
	rows := make([]map[string]any, n)
	for i := range rows {
		status := "Todo"
		if i%2 == 1 {
			status = "Done"
		}
		rows[i] = map[string]any{"Name": taskName(i), "Estimate": float64(i), "Status": status}
	}
	return fake.SeedRecords(tableID, rows...)
}

func taskName(i int) string {
	return "task-" + strconv.Itoa(i)
}
