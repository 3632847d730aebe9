package airtable

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ajitpratap0/airtable/pkg/config"
	"github.com/ajitpratap0/airtable/pkg/errors"
)

// FetchRecords returns a lazy iterator over the records of table (id or
// name) matching opts. No request is sent until Next is called.
func (c *Client) FetchRecords(table string, opts ListOptions) *RecordIterator {
	it := &RecordIterator{client: c, table: table}

	if table == "" {
		it.initErr = errors.New(errors.ErrorTypeValidation, "table is required")
		return it
	}
	query, err := c.listQuery(opts)
	if err != nil {
		it.initErr = err
		return it
	}
	it.query = query
	return it
}

// FetchAll drains FetchRecords into a slice
func (c *Client) FetchAll(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	it := c.FetchRecords(table, opts)
	records := []Record{}
	for it.Next(ctx) {
		records = append(records, it.Record())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) listQuery(opts ListOptions) (url.Values, error) {
	pageSize := opts.PageSize
	if pageSize == 0 {
		pageSize = c.pageSize
	}
	if pageSize < 1 || pageSize > config.MaxPageSize {
		return nil, errors.Newf(errors.ErrorTypeValidation, "page size must be between 1 and %d, got %d", config.MaxPageSize, pageSize)
	}
	if opts.MaxRecords < 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "max records cannot be negative")
	}

	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(pageSize))
	if opts.Filter != "" {
		q.Set("filterByFormula", opts.Filter)
	}
	for _, f := range opts.Fields {
		q.Add("fields[]", f)
	}
	if opts.MaxRecords > 0 {
		q.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
	}
	if opts.View != "" {
		q.Set("view", opts.View)
	}
	for i, s := range opts.Sort {
		if s.Field == "" {
			return nil, errors.Newf(errors.ErrorTypeValidation, "sort %d has no field", i)
		}
		prefix := "sort[" + strconv.Itoa(i) + "]"
		q.Set(prefix+"[field]", s.Field)
		if s.Direction != "" {
			q.Set(prefix+"[direction]", string(s.Direction))
		}
	}
	return q, nil
}

// GetRecord fetches a single record by id
func (c *Client) GetRecord(ctx context.Context, table, id string) (*Record, error) {
	if table == "" || id == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "table and record id are required")
	}

	var rec Record
	if err := c.do(ctx, call{
		method: http.MethodGet,
		url:    c.apiURL(c.baseID, table, id),
	}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

type writeRecord struct {
	ID     string `json:"id,omitempty"`
	Fields Fields `json:"fields"`
}

type writeRequest struct {
	Records  []writeRecord `json:"records"`
	Typecast bool          `json:"typecast,omitempty"`
}

// CreateRecords creates one record per element of rows, in sequential
// batches of MaxRecordsPerRequest. Created records are returned in input
// order. When a batch fails the records of committed batches are returned
// with a *errors.BatchError; those records stay created.
func (c *Client) CreateRecords(ctx context.Context, table string, rows []Fields, opts WriteOptions) ([]Record, error) {
	if table == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "table is required")
	}

	return runBatches(ctx, c, "create", rows, opts.ContinueOnError, func(ctx context.Context, batch []Fields) ([]Record, error) {
		req := writeRequest{Records: make([]writeRecord, len(batch)), Typecast: opts.Typecast}
		for i, fields := range batch {
			if fields == nil {
				fields = Fields{}
			}
			req.Records[i] = writeRecord{Fields: fields}
		}
		return c.writeBatch(ctx, http.MethodPost, table, req)
	})
}

// UpdateRecords updates records by id, merging the given fields (PATCH) or
// replacing them when opts.Destructive is set (PUT). Every record must carry
// an id; this is checked before any request is sent.
func (c *Client) UpdateRecords(ctx context.Context, table string, records []Record, opts WriteOptions) ([]Record, error) {
	if table == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "table is required")
	}

	var missing []int
	for i, r := range records {
		if r.ID == "" {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Newf(errors.ErrorTypeValidation, "%d of %d records have no id", len(missing), len(records)).
			WithDetail("indices", missing)
	}

	method := http.MethodPatch
	if opts.Destructive {
		method = http.MethodPut
	}

	return runBatches(ctx, c, "update", records, opts.ContinueOnError, func(ctx context.Context, batch []Record) ([]Record, error) {
		req := writeRequest{Records: make([]writeRecord, len(batch)), Typecast: opts.Typecast}
		for i, r := range batch {
			fields := r.Fields
			if fields == nil {
				fields = Fields{}
			}
			req.Records[i] = writeRecord{ID: r.ID, Fields: fields}
		}
		return c.writeBatch(ctx, method, table, req)
	})
}

func (c *Client) writeBatch(ctx context.Context, method, table string, req writeRequest) ([]Record, error) {
	var resp struct {
		Records []Record `json:"records"`
	}
	if err := c.do(ctx, call{
		method: method,
		url:    c.apiURL(c.baseID, table),
		body:   req,
	}, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// DeleteRecords deletes records by id in sequential batches and returns the
// ids Airtable confirmed deleted, in input order.
func (c *Client) DeleteRecords(ctx context.Context, table string, ids []string) ([]string, error) {
	if table == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "table is required")
	}

	var missing []int
	for i, id := range ids {
		if id == "" {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Newf(errors.ErrorTypeValidation, "%d of %d record ids are empty", len(missing), len(ids)).
			WithDetail("indices", missing)
	}

	deleted, err := runBatches(ctx, c, "delete", ids, false, func(ctx context.Context, batch []string) ([]DeletedRecord, error) {
		q := url.Values{}
		for _, id := range batch {
			q.Add("records[]", id)
		}

		var resp struct {
			Records []DeletedRecord `json:"records"`
		}
		if err := c.do(ctx, call{
			method: http.MethodDelete,
			url:    c.apiURL(c.baseID, table),
			query:  q,
		}, &resp); err != nil {
			return nil, err
		}
		return resp.Records, nil
	})

	confirmed := make([]string, 0, len(deleted))
	for _, d := range deleted {
		if d.Deleted {
			confirmed = append(confirmed, d.ID)
		}
	}
	return confirmed, err
}
