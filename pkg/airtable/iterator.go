package airtable

import (
	"context"
	"iter"
	"net/http"
	"net/url"

	"github.com/ajitpratap0/airtable/pkg/metrics"
)

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// RecordIterator lazily pages through a table. Pages are requested as Next
// consumes them, following Airtable's offset token until none is returned.
// Reset restarts from the first page. An iterator is not safe for concurrent
// use.
type RecordIterator struct {
	client *Client
	table  string
	query  url.Values

	initErr error
	err     error

	page    []Record
	pos     int
	offset  string
	started bool
	pages   int
	current Record
}

// Next advances to the next record, requesting the next page when the
// current one is exhausted. It returns false at the end or on error.
func (it *RecordIterator) Next(ctx context.Context) bool {
	if it.initErr != nil {
		it.err = it.initErr
	}
	if it.err != nil {
		return false
	}

	for it.pos >= len(it.page) {
		if it.started && it.offset == "" {
			return false
		}
		if err := it.fetch(ctx); err != nil {
			it.err = err
			return false
		}
	}

	it.current = it.page[it.pos]
	it.pos++
	return true
}

func (it *RecordIterator) fetch(ctx context.Context) error {
	q := url.Values{}
	for k, v := range it.query {
		q[k] = v
	}
	if it.offset != "" {
		q.Set("offset", it.offset)
	}

	var resp listResponse
	err := it.client.do(ctx, call{
		method: http.MethodGet,
		url:    it.client.apiURL(it.client.baseID, it.table),
		query:  q,
	}, &resp)
	if err != nil {
		return err
	}

	it.started = true
	it.page = resp.Records
	it.pos = 0
	it.offset = resp.Offset
	it.pages++
	metrics.AddRecords("fetch", "success", len(resp.Records))
	return nil
}

// Page is one response of a paged listing.
type Page struct {
	Records []Record
	// More reports whether another page follows
	More bool
}

// NextPage returns the rest of the current page, or requests the next one
// when the current page is consumed. After the last page it returns an
// empty Page with More unset.
func (it *RecordIterator) NextPage(ctx context.Context) (Page, error) {
	if it.initErr != nil {
		it.err = it.initErr
	}
	if it.err != nil {
		return Page{}, it.err
	}

	if it.pos >= len(it.page) {
		if it.started && it.offset == "" {
			return Page{Records: []Record{}}, nil
		}
		if err := it.fetch(ctx); err != nil {
			it.err = err
			return Page{}, err
		}
	}

	records := it.page[it.pos:]
	it.pos = len(it.page)
	if len(records) > 0 {
		it.current = records[len(records)-1]
	}
	return Page{Records: records, More: it.offset != ""}, nil
}

// Record returns the current record
func (it *RecordIterator) Record() Record {
	return it.current
}

// Err returns the error that stopped iteration, if any
func (it *RecordIterator) Err() error {
	return it.err
}

// Pages returns how many pages were requested since the last Reset
func (it *RecordIterator) Pages() int {
	return it.pages
}

// Reset rewinds the iterator to the first page. Records are refetched.
func (it *RecordIterator) Reset() {
	it.err = nil
	it.page = nil
	it.pos = 0
	it.offset = ""
	it.started = false
	it.pages = 0
	it.current = Record{}
}

// All resets the iterator and yields every record. Iteration stops after
// yielding a non-nil error.
func (it *RecordIterator) All(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		it.Reset()
		for it.Next(ctx) {
			if !yield(it.Record(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(Record{}, err)
		}
	}
}
