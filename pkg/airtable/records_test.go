package airtable

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/airtable/pkg/errors"
	"github.com/ajitpratap0/airtable/pkg/ratelimit"
)

func TestFetchRecordsPaginates(t *testing.T) {
	client, fake := newTestClient(t)
	table := tasksTable(fake)
	ids := seedTasks(fake, table.ID, 250)

	ctx := context.Background()
	it := client.FetchRecords("Tasks", ListOptions{})

	var got []string
	for it.Next(ctx) {
		got = append(got, it.Record().ID)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, ids, got)
	assert.Equal(t, 3, it.Pages())
	assert.Equal(t, 3, fake.RequestCount(http.MethodGet, "/v0/"+testBase+"/"))

	reqs := fake.Requests()
	assert.Empty(t, reqs[0].Query.Get("offset"))
	assert.Equal(t, "itr100", reqs[1].Query.Get("offset"))
	assert.Equal(t, "itr200", reqs[2].Query.Get("offset"))
	assert.False(t, it.Next(ctx), "exhausted iterator stays exhausted")

	it.Reset()
	require.True(t, it.Next(ctx))
	assert.Equal(t, ids[0], it.Record().ID)
	assert.Equal(t, 4, fake.RequestCount(http.MethodGet, "/v0/"+testBase+"/"), "reset refetches")
}

func TestFetchRecordsIdempotent(t *testing.T) {
	client, fake := newTestClient(t)
	table := tasksTable(fake)
	ids := seedTasks(fake, table.ID, 45)

	var done []string
	for i, id := range ids {
		if i%2 == 1 {
			done = append(done, id)
		}
	}

	ctx := context.Background()
	opts := ListOptions{Filter: "{Status}='Done'", PageSize: 5}
	drain := func() []string {
		records, err := client.FetchAll(ctx, "Tasks", opts)
		require.NoError(t, err)
		out := make([]string, len(records))
		for i, r := range records {
			out[i] = r.ID
		}
		return out
	}

	first := drain()
	second := drain()
	assert.ElementsMatch(t, done, first)
	assert.ElementsMatch(t, first, second)

	it := client.FetchRecords("Tasks", opts)
	var viaIterator []string
	for rec, err := range it.All(ctx) {
		require.NoError(t, err)
		viaIterator = append(viaIterator, rec.ID)
	}
	it.Reset()
	var afterReset []string
	for rec, err := range it.All(ctx) {
		require.NoError(t, err)
		afterReset = append(afterReset, rec.ID)
	}
	assert.ElementsMatch(t, first, viaIterator)
	assert.ElementsMatch(t, viaIterator, afterReset)
}

func TestFetchRecordsIsLazy(t *testing.T) {
	client, fake := newTestClient(t)
	table := tasksTable(fake)
	seedTasks(fake, table.ID, 30)

	it := client.FetchRecords(table.ID, ListOptions{PageSize: 10})
	assert.Empty(t, fake.Requests())

	require.True(t, it.Next(context.Background()))
	assert.Len(t, fake.Requests(), 1)
	assert.Equal(t, 1, it.Pages())
}

func TestFetchRecordsAll(t *testing.T) {
	client, fake := newTestClient(t)
	table := tasksTable(fake)
	seedTasks(fake, table.ID, 42)

	it := client.FetchRecords("Tasks", ListOptions{PageSize: 20})
	n := 0
	for rec, err := range it.All(context.Background()) {
		require.NoError(t, err)
		assert.Equal(t, taskName(n), rec.Fields["Name"])
		n++
	}
	assert.Equal(t, 42, n)
	assert.Equal(t, 3, it.Pages())
}

func TestFetchAllEmptyTable(t *testing.T) {
	client, fake := newTestClient(t)
	tasksTable(fake)

	records, err := client.FetchAll(context.Background(), "Tasks", ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFetchAllQueryParameters(t *testing.T) {
	client, fake := newTestClient(t)
	table := tasksTable(fake)
	seedTasks(fake, table.ID, 20)

	records, err := client.FetchAll(context.Background(), "Tasks", ListOptions{
		Filter:     "{Status}='Done'",
		Fields:     []string{"Name", "Estimate"},
		PageSize:   5,
		MaxRecords: 8,
		View:       "Grid view",
		Sort:       []Sort{{Field: "Estimate", Direction: SortDesc}},
	})
	require.NoError(t, err)
	require.Len(t, records, 8)
	assert.Equal(t, 19.0, records[0].Fields["Estimate"])
	assert.Equal(t, 5.0, records[7].Fields["Estimate"])
	assert.NotContains(t, records[0].Fields, "Status")

	q := fake.Requests()[0].Query
	assert.Equal(t, "{Status}='Done'", q.Get("filterByFormula"))
	assert.Equal(t, []string{"Name", "Estimate"}, q["fields[]"])
	assert.Equal(t, "5", q.Get("pageSize"))
	assert.Equal(t, "8", q.Get("maxRecords"))
	assert.Equal(t, "Grid view", q.Get("view"))
	assert.Equal(t, "Estimate", q.Get("sort[0][field]"))
	assert.Equal(t, "desc", q.Get("sort[0][direction]"))
}

func TestFetchAllRejectsBadOptions(t *testing.T) {
	client, fake := newTestClient(t)
	tasksTable(fake)

	tests := []struct {
		name  string
		table string
		opts  ListOptions
	}{
		{"page size too large", "Tasks", ListOptions{PageSize: 101}},
		{"negative page size", "Tasks", ListOptions{PageSize: -1}},
		{"negative max records", "Tasks", ListOptions{MaxRecords: -1}},
		{"sort without field", "Tasks", ListOptions{Sort: []Sort{{Direction: SortAsc}}}},
		{"no table", "", ListOptions{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.FetchAll(context.Background(), tt.table, tt.opts)
			assert.True(t, errors.IsValidation(err))
		})
	}
	assert.Empty(t, fake.Requests())
}

func TestFetchAllInvalidFormula(t *testing.T) {
	client, fake := newTestClient(t)
	tasksTable(fake)

	_, err := client.FetchAll(context.Background(), "Tasks", ListOptions{Filter: "NOT A FORMULA("})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "formula")
}

func TestFetchAllUnknownTable(t *testing.T) {
	client, _ := newTestClient(t)

	records, err := client.FetchAll(context.Background(), "Nope", ListOptions{})
	assert.Nil(t, records)
	assert.True(t, errors.IsNotFound(err))
}

func TestCreateAndGetRecord(t *testing.T) {
	client, fake := newTestClient(t)
	table := tasksTable(fake)

	ctx := context.Background()
	created, err := client.CreateRecords(ctx, "Tasks", []Fields{
		{"Name": "write docs", "Estimate": 3.0},
		{"Name": "ship", "Status": "Todo"},
	}, WriteOptions{})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.NotEmpty(t, created[0].ID)
	assert.False(t, created[0].CreatedTime.IsZero())
	assert.Equal(t, 2, fake.RecordCount(table.ID))

	got, err := client.GetRecord(ctx, "Tasks", created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, created[0], *got)
	assert.Equal(t, Fields{"Name": "write docs", "Estimate": 3.0}, got.Fields)

	again, err := client.GetRecord(ctx, table.ID, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestGetRecordNotFound(t *testing.T) {
	client, fake := newTestClient(t)
	tasksTable(fake)

	_, err := client.GetRecord(context.Background(), "Tasks", "recMISSING")
	assert.True(t, errors.IsNotFound(err))

	_, err = client.GetRecord(context.Background(), "Tasks", "")
	assert.True(t, errors.IsValidation(err))
}

func TestCreateRecordsBatchesInOrder(t *testing.T) {
	client, fake := newTestClient(t)
	table := tasksTable(fake)

	rows := make([]Fields, 25)
	for i := range rows {
		rows[i] = Fields{"Name": taskName(i)}
	}
	created, err := client.CreateRecords(context.Background(), "Tasks", rows, WriteOptions{})
	require.NoError(t, err)
	require.Len(t, created, 25)
	for i, rec := range created {
		assert.Equal(t, taskName(i), rec.Fields["Name"])
	}
	assert.Equal(t, 3, fake.RequestCount(http.MethodPost, "/v0/"+testBase+"/"))
	assert.Equal(t, 25, fake.RecordCount(table.ID))
}

func TestCreateRecordsEmpty(t *testing.T) {
	client, fake := newTestClient(t)
	tasksTable(fake)

	created, err := client.CreateRecords(context.Background(), "Tasks", nil, WriteOptions{})
	require.NoError(t, err)
	assert.NotNil(t, created)
	assert.Empty(t, created)
	assert.Empty(t, fake.Requests())
}

func TestCreateRecordsTypecast(t *testing.T) {
	client, fake := newTestClient(t)
	tasksTable(fake)

	_, err := client.CreateRecords(context.Background(), "Tasks", []Fields{{"Name": "a"}}, WriteOptions{Typecast: true})
	require.NoError(t, err)
	assert.Contains(t, string(fake.Requests()[0].Body), `"typecast":true`)
}

func TestCreateRecordsStopsAtFailedBatch(t *testing.T) {
	client, fake := newTestClient(t)
	table := tasksTable(fake)
	fake.FailBatch(http.MethodPost, 7, http.StatusUnprocessableEntity)

	rows := make([]Fields, 150)
	for i := range rows {
		rows[i] = Fields{"Name": taskName(i)}
	}
	created, err := client.CreateRecords(context.Background(), "Tasks", rows, WriteOptions{})
	require.Error(t, err)
	require.Len(t, created, 60)
	assert.Equal(t, taskName(59), created[59].Fields["Name"])
	assert.Equal(t, 60, fake.RecordCount(table.ID))
	assert.Equal(t, 7, fake.RequestCount(http.MethodPost, "/v0/"+testBase+"/"))

	var batchErr *errors.BatchError
	require.True(t, stderrors.As(err, &batchErr))
	assert.Equal(t, "create", batchErr.Operation)
	assert.Equal(t, 15, batchErr.Batches)
	assert.Equal(t, []int{7}, batchErr.FailedBatches())
	assert.Equal(t, indexRange(60, 70), batchErr.Failed())
	assert.Equal(t, indexRange(0, 60), batchErr.Succeeded)
	assert.Equal(t, indexRange(70, 150), batchErr.Skipped)
	assert.True(t, errors.IsValidation(err))
}

func TestCreateRecordsContinueOnError(t *testing.T) {
	client, fake := newTestClient(t)
	table := tasksTable(fake)
	fake.FailBatch(http.MethodPost, 7, http.StatusUnprocessableEntity)

	rows := make([]Fields, 150)
	for i := range rows {
		rows[i] = Fields{"Name": taskName(i)}
	}
	created, err := client.CreateRecords(context.Background(), "Tasks", rows, WriteOptions{ContinueOnError: true})
	require.Error(t, err)
	assert.Len(t, created, 140)
	assert.Equal(t, taskName(70), created[60].Fields["Name"])
	assert.Equal(t, 140, fake.RecordCount(table.ID))

	var batchErr *errors.BatchError
	require.True(t, stderrors.As(err, &batchErr))
	assert.Equal(t, []int{7}, batchErr.FailedBatches())
	assert.Equal(t, indexRange(60, 70), batchErr.Failed())
	assert.Empty(t, batchErr.Skipped)
	assert.Len(t, batchErr.Succeeded, 140)
}

func TestCreateRecordsCanceledContext(t *testing.T) {
	client, fake := newTestClient(t)
	tasksTable(fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	created, err := client.CreateRecords(ctx, "Tasks", make([]Fields, 15), WriteOptions{})
	assert.Empty(t, created)
	assert.True(t, errors.IsTransport(err))
	assert.True(t, stderrors.Is(err, context.Canceled))

	var batchErr *errors.BatchError
	require.True(t, stderrors.As(err, &batchErr))
	assert.Empty(t, batchErr.Failures, "unsent batches are not failures")
	assert.Equal(t, indexRange(0, 15), batchErr.Skipped)
	assert.Empty(t, batchErr.Succeeded)
	assert.Empty(t, fake.Requests())
}

func TestCreateRecordsCanceledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var released atomic.Int32
	limiter := limiterFunc(func(context.Context) (ratelimit.Release, error) {
		return func(context.Context) {
			if released.Add(1) == 2 {
				cancel()
			}
		}, nil
	})
	client, fake := newTestClient(t, WithLimiter(limiter))
	table := tasksTable(fake)

	created, err := client.CreateRecords(ctx, "Tasks", make([]Fields, 100), WriteOptions{})
	assert.Len(t, created, 20)
	assert.True(t, errors.IsTransport(err))
	assert.True(t, stderrors.Is(err, context.Canceled))

	var batchErr *errors.BatchError
	require.True(t, stderrors.As(err, &batchErr))
	assert.Empty(t, batchErr.Failures)
	assert.Equal(t, indexRange(0, 20), batchErr.Succeeded)
	assert.Equal(t, indexRange(20, 100), batchErr.Skipped)
	assert.Equal(t, 2, fake.RequestCount(http.MethodPost, "/v0/"+testBase+"/"))
	assert.Equal(t, 20, fake.RecordCount(table.ID))
}

func TestCreateRecordsCanceledDuringBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var acquired atomic.Int32
	limiter := limiterFunc(func(context.Context) (ratelimit.Release, error) {
		if acquired.Add(1) == 3 {
			cancel()
		}
		return func(context.Context) {}, nil
	})
	client, fake := newTestClient(t, WithLimiter(limiter))
	table := tasksTable(fake)

	created, err := client.CreateRecords(ctx, "Tasks", make([]Fields, 100), WriteOptions{})
	assert.Len(t, created, 20)
	assert.True(t, stderrors.Is(err, context.Canceled))

	var batchErr *errors.BatchError
	require.True(t, stderrors.As(err, &batchErr))
	assert.Equal(t, []int{3}, batchErr.FailedBatches())
	assert.Equal(t, indexRange(20, 30), batchErr.Failed())
	assert.Equal(t, indexRange(30, 100), batchErr.Skipped, "batches after the interrupted one are skipped")
	assert.Equal(t, 20, fake.RecordCount(table.ID))
}

func TestCreateRecordsUnknownField(t *testing.T) {
	client, fake := newTestClient(t)
	tasksTable(fake)

	_, err := client.CreateRecords(context.Background(), "Tasks", []Fields{{"Nope": 1}}, WriteOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, "UNKNOWN_FIELD_NAME", e.Details["vendor_type"])
}

func TestUpdateRecordsMerges(t *testing.T) {
	client, fake := newTestClient(t)
	table := tasksTable(fake)
	ids := seedTasks(fake, table.ID, 3)

	updated, err := client.UpdateRecords(context.Background(), "Tasks", []Record{
		{ID: ids[1], Fields: Fields{"Estimate": 42.0}},
	}, WriteOptions{})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, 42.0, updated[0].Fields["Estimate"])
	assert.Equal(t, taskName(1), updated[0].Fields["Name"])
	assert.Equal(t, 1, fake.RequestCount(http.MethodPatch, "/v0/"))
}

func TestUpdateRecordsDestructive(t *testing.T) {
	client, fake := newTestClient(t)
	table := tasksTable(fake)
	ids := seedTasks(fake, table.ID, 1)

	updated, err := client.UpdateRecords(context.Background(), "Tasks", []Record{
		{ID: ids[0], Fields: Fields{"Estimate": 7.0}},
	}, WriteOptions{Destructive: true})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, Fields{"Estimate": 7.0}, updated[0].Fields)
	assert.Equal(t, 1, fake.RequestCount(http.MethodPut, "/v0/"))
	assert.Equal(t, map[string]any{"Estimate": 7.0}, fake.RecordFields(table.ID, ids[0]))
}

func TestUpdateRecordsRequiresIDs(t *testing.T) {
	client, fake := newTestClient(t)
	table := tasksTable(fake)
	ids := seedTasks(fake, table.ID, 2)

	_, err := client.UpdateRecords(context.Background(), "Tasks", []Record{
		{ID: ids[0], Fields: Fields{"Estimate": 1.0}},
		{Fields: Fields{"Estimate": 2.0}},
	}, WriteOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, []int{1}, e.Details["indices"])
	assert.Empty(t, fake.Requests())
}

func TestUpdateRecordsMissingRecord(t *testing.T) {
	client, fake := newTestClient(t)
	tasksTable(fake)

	_, err := client.UpdateRecords(context.Background(), "Tasks", []Record{
		{ID: "recMISSING", Fields: Fields{"Estimate": 1.0}},
	}, WriteOptions{})
	assert.True(t, errors.IsValidation(err))
}

func TestDeleteRecords(t *testing.T) {
	client, fake := newTestClient(t)
	table := tasksTable(fake)
	ids := seedTasks(fake, table.ID, 25)

	deleted, err := client.DeleteRecords(context.Background(), "Tasks", ids)
	require.NoError(t, err)
	assert.Equal(t, ids, deleted)
	assert.Equal(t, 0, fake.RecordCount(table.ID))

	reqs := fake.Requests()
	require.Len(t, reqs, 3)
	for _, r := range reqs {
		assert.Equal(t, http.MethodDelete, r.Method)
	}
	assert.Len(t, reqs[0].Query["records[]"], 10)
	assert.Len(t, reqs[2].Query["records[]"], 5)
}

func TestDeleteRecordsPartialFailure(t *testing.T) {
	client, fake := newTestClient(t)
	table := tasksTable(fake)
	ids := seedTasks(fake, table.ID, 20)

	// the second batch references a record that does not exist
	input := append(append([]string{}, ids[:10]...), "recMISSING")
	deleted, err := client.DeleteRecords(context.Background(), "Tasks", input)
	require.Error(t, err)
	assert.Equal(t, ids[:10], deleted)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, 10, fake.RecordCount(table.ID))
}

func TestDeleteRecordsRejectsEmptyIDs(t *testing.T) {
	client, fake := newTestClient(t)
	tasksTable(fake)

	_, err := client.DeleteRecords(context.Background(), "Tasks", []string{"rec1", ""})
	assert.True(t, errors.IsValidation(err))
	assert.Empty(t, fake.Requests())
}
