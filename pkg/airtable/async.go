package airtable

import (
	"context"
	"io"
)

// AsyncClient is the non-blocking surface of a Client. Every method starts
// the corresponding Client method on a goroutine and returns a Future, so
// both surfaces share request building, parsing and error classification.
type AsyncClient struct {
	c *Client
}

// Async returns the non-blocking surface of c
func (c *Client) Async() *AsyncClient {
	return &AsyncClient{c: c}
}

// Client returns the underlying blocking client
func (a *AsyncClient) Client() *Client {
	return a.c
}

// GetSchema is the non-blocking form of Client.GetSchema
func (a *AsyncClient) GetSchema(ctx context.Context) *Future[*Schema] {
	return spawn(ctx, a.c.GetSchema)
}

// ResolveTableID is the non-blocking form of Client.ResolveTableID. A
// duplicate-name warning is returned by Await along with the id.
func (a *AsyncClient) ResolveTableID(ctx context.Context, name string) *Future[string] {
	return spawn(ctx, func(ctx context.Context) (string, error) {
		return a.c.ResolveTableID(ctx, name)
	})
}

// AsyncRecordIterator is the non-blocking form of RecordIterator. It
// requests one page per future; await each page before asking for the next.
type AsyncRecordIterator struct {
	it *RecordIterator
}

// FetchRecords is the non-blocking form of Client.FetchRecords. No request
// is sent until NextPage is called.
func (a *AsyncClient) FetchRecords(table string, opts ListOptions) *AsyncRecordIterator {
	return &AsyncRecordIterator{it: a.c.FetchRecords(table, opts)}
}

// NextPage requests the next page in the background
func (ai *AsyncRecordIterator) NextPage(ctx context.Context) *Future[Page] {
	return spawn(ctx, ai.it.NextPage)
}

// Reset rewinds to the first page
func (ai *AsyncRecordIterator) Reset() {
	ai.it.Reset()
}

// FetchAll is the non-blocking form of Client.FetchAll
func (a *AsyncClient) FetchAll(ctx context.Context, table string, opts ListOptions) *Future[[]Record] {
	return spawn(ctx, func(ctx context.Context) ([]Record, error) {
		return a.c.FetchAll(ctx, table, opts)
	})
}

// GetRecord is the non-blocking form of Client.GetRecord
func (a *AsyncClient) GetRecord(ctx context.Context, table, id string) *Future[*Record] {
	return spawn(ctx, func(ctx context.Context) (*Record, error) {
		return a.c.GetRecord(ctx, table, id)
	})
}

// CreateRecords is the non-blocking form of Client.CreateRecords
func (a *AsyncClient) CreateRecords(ctx context.Context, table string, rows []Fields, opts WriteOptions) *Future[[]Record] {
	return spawn(ctx, func(ctx context.Context) ([]Record, error) {
		return a.c.CreateRecords(ctx, table, rows, opts)
	})
}

// UpdateRecords is the non-blocking form of Client.UpdateRecords
func (a *AsyncClient) UpdateRecords(ctx context.Context, table string, records []Record, opts WriteOptions) *Future[[]Record] {
	return spawn(ctx, func(ctx context.Context) ([]Record, error) {
		return a.c.UpdateRecords(ctx, table, records, opts)
	})
}

// DeleteRecords is the non-blocking form of Client.DeleteRecords
func (a *AsyncClient) DeleteRecords(ctx context.Context, table string, ids []string) *Future[[]string] {
	return spawn(ctx, func(ctx context.Context) ([]string, error) {
		return a.c.DeleteRecords(ctx, table, ids)
	})
}

// UploadAttachment is the non-blocking form of Client.UploadAttachment.
// content must not be read by the caller until the future completes.
func (a *AsyncClient) UploadAttachment(ctx context.Context, table, recordID, field string, content io.Reader, filename, mimeType string) *Future[[]Attachment] {
	return spawn(ctx, func(ctx context.Context) ([]Attachment, error) {
		return a.c.UploadAttachment(ctx, table, recordID, field, content, filename, mimeType)
	})
}

// AttachURL is the non-blocking form of Client.AttachURL
func (a *AsyncClient) AttachURL(ctx context.Context, table, recordID, field, url, filename string) *Future[[]Attachment] {
	return spawn(ctx, func(ctx context.Context) ([]Attachment, error) {
		return a.c.AttachURL(ctx, table, recordID, field, url, filename)
	})
}

// CreateField is the non-blocking form of Client.CreateField
func (a *AsyncClient) CreateField(ctx context.Context, table string, spec FieldSpec) *Future[*Field] {
	return spawn(ctx, func(ctx context.Context) (*Field, error) {
		return a.c.CreateField(ctx, table, spec)
	})
}

// CreateTable is the non-blocking form of Client.CreateTable
func (a *AsyncClient) CreateTable(ctx context.Context, spec TableSpec) *Future[*Table] {
	return spawn(ctx, func(ctx context.Context) (*Table, error) {
		return a.c.CreateTable(ctx, spec)
	})
}
