package testutil

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ajitpratap0/airtable/pkg/json"
)

// FakeAPIKey is the bearer token a FakeAirtable accepts by default
const FakeAPIKey = "patFAKE.0000000000"

const (
	fakeMaxPageSize   = 100
	fakeMaxBatch      = 10
	fakeMaxUploadSize = 5 * 1024 * 1024
)

var fakeEpoch = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// FakeField is a field definition served by FakeAirtable
type FakeField struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
}

// FakeView is a view definition served by FakeAirtable
type FakeView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// FakeTable is a table definition served by FakeAirtable
type FakeTable struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	PrimaryFieldID string      `json:"primaryFieldId"`
	Fields         []FakeField `json:"fields"`
	Views          []FakeView  `json:"views"`
}

// RecordedRequest is a request received by FakeAirtable
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// FakeUpload is an attachment received by the upload endpoint
type FakeUpload struct {
	RecordID    string
	FieldID     string
	Filename    string
	ContentType string
	Data        []byte
}

type fakeRecord struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

type fakeOverride struct {
	method string
	prefix string
	status int
	body   string
}

// FakeAirtable is an in-memory implementation of the subset of the Airtable
// REST and content APIs used by the client. It supports fault injection,
// artificial latency and in-flight request tracking.
type FakeAirtable struct {
	Server *httptest.Server
	BaseID string
	APIKey string

	mu        sync.Mutex
	tables    []*FakeTable
	records   map[string][]*fakeRecord
	seq       int
	requests  []RecordedRequest
	uploads   []FakeUpload
	writes    map[string]int
	failures  map[string]map[int]int
	overrides []fakeOverride
	latency   time.Duration

	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewFakeAirtable starts a fake serving baseID. The server is closed when
// the test completes.
func NewFakeAirtable(t testing.TB, baseID string) *FakeAirtable {
	f := &FakeAirtable{
		BaseID:   baseID,
		APIKey:   FakeAPIKey,
		records:  make(map[string][]*fakeRecord),
		writes:   make(map[string]int),
		failures: make(map[string]map[int]int),
	}
	f.Server = httptest.NewServer(f)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the server root, usable as both API and content endpoint
func (f *FakeAirtable) URL() string {
	return f.Server.URL
}

// AddTable registers a table. Missing ids are generated, the first field
// becomes the primary field and a default grid view is added.
func (f *FakeAirtable) AddTable(name string, fields ...FakeField) FakeTable {
	f.mu.Lock()
	defer f.mu.Unlock()

	table := &FakeTable{ID: f.nextID("tbl"), Name: name}
	for _, fld := range fields {
		if fld.ID == "" {
			fld.ID = f.nextID("fld")
		}
		table.Fields = append(table.Fields, fld)
	}
	if len(table.Fields) > 0 {
		table.PrimaryFieldID = table.Fields[0].ID
	}
	table.Views = []FakeView{{ID: f.nextID("viw"), Name: "Grid view", Type: "grid"}}

	f.tables = append(f.tables, table)
	return *table
}

// SeedRecords inserts records directly and returns their ids
func (f *FakeAirtable) SeedRecords(tableID string, rows ...map[string]any) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(rows))
	for _, fields := range rows {
		rec := f.newRecord(fields)
		f.records[tableID] = append(f.records[tableID], rec)
		ids = append(ids, rec.ID)
	}
	return ids
}

// RecordFields returns the stored fields of a record, or nil
func (f *FakeAirtable) RecordFields(tableID, recordID string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rec := range f.records[tableID] {
		if rec.ID == recordID {
			out := make(map[string]any, len(rec.Fields))
			for k, v := range rec.Fields {
				out[k] = v
			}
			return out
		}
	}
	return nil
}

// RecordCount returns the number of stored records in a table
func (f *FakeAirtable) RecordCount(tableID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records[tableID])
}

// FailBatch makes the n-th (1-based) record write request with method fail
// with status.
func (f *FakeAirtable) FailBatch(method string, n, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures[method] == nil {
		f.failures[method] = make(map[int]int)
	}
	f.failures[method][n] = status
}

// Override answers every request whose method matches (empty matches all)
// and whose path starts with prefix with status and body.
func (f *FakeAirtable) Override(method, prefix string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides = append(f.overrides, fakeOverride{method: method, prefix: prefix, status: status, body: body})
}

// ClearOverrides removes all overrides
func (f *FakeAirtable) ClearOverrides() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides = nil
}

// SetLatency delays every response by d
func (f *FakeAirtable) SetLatency(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
}

// PeakInFlight returns the highest number of concurrent requests observed
func (f *FakeAirtable) PeakInFlight() int {
	return int(f.peak.Load())
}

// Requests returns a copy of every request received
func (f *FakeAirtable) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// RequestCount counts received requests by method and path prefix
func (f *FakeAirtable) RequestCount(method, prefix string) int {
	n := 0
	for _, r := range f.Requests() {
		if (method == "" || r.Method == method) && strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

// Uploads returns a copy of every attachment received
func (f *FakeAirtable) Uploads() []FakeUpload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeUpload(nil), f.uploads...)
}

// ServeHTTP implements http.Handler
func (f *FakeAirtable) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if current <= peak || f.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeFakeError(w, http.StatusBadRequest, "INVALID_REQUEST_BODY", err.Error())
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	latency := f.latency
	f.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		select {
		case <-timer.C:
		case <-r.Context().Done():
			timer.Stop()
			return
		}
	}

	if r.Header.Get("Authorization") != "Bearer "+f.APIKey {
		writeFakeError(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "Authentication required")
		return
	}

	if ov, ok := f.override(r); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(ov.status)
		_, _ = io.WriteString(w, ov.body)
		return
	}

	segs := splitPath(r.URL.EscapedPath())
	if len(segs) < 3 || segs[0] != "v0" {
		writeFakeNotFound(w)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case segs[1] == "meta" && len(segs) == 5 && segs[2] == "bases" && segs[4] == "tables":
		if segs[3] != f.BaseID {
			writeFakeNotFound(w)
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeFakeJSON(w, http.StatusOK, map[string]any{"tables": f.tables})
		case http.MethodPost:
			f.createTable(w, body)
		default:
			writeFakeNotFound(w)
		}

	case segs[1] == "meta" && len(segs) == 7 && segs[2] == "bases" && segs[6] == "fields" && r.Method == http.MethodPost:
		if segs[3] != f.BaseID {
			writeFakeNotFound(w)
			return
		}
		f.createField(w, segs[5], body)

	case len(segs) == 5 && segs[4] == "uploadAttachment" && r.Method == http.MethodPost:
		if segs[1] != f.BaseID {
			writeFakeNotFound(w)
			return
		}
		f.upload(w, segs[2], segs[3], body)

	case len(segs) == 3:
		if segs[1] != f.BaseID {
			writeFakeNotFound(w)
			return
		}
		table := f.table(segs[2])
		if table == nil {
			writeFakeNotFound(w)
			return
		}
		switch r.Method {
		case http.MethodGet:
			f.listRecords(w, table, r.URL.Query())
		case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
			if status, failed := f.injectedFailure(r.Method); failed {
				writeFakeError(w, status, "INVALID_REQUEST_UNKNOWN", "injected failure")
				return
			}
			switch r.Method {
			case http.MethodPost:
				f.createRecords(w, table, body)
			case http.MethodDelete:
				f.deleteRecords(w, table, r.URL.Query()["records[]"])
			default:
				f.updateRecords(w, table, body, r.Method == http.MethodPut)
			}
		default:
			writeFakeNotFound(w)
		}

	case len(segs) == 4 && r.Method == http.MethodGet:
		if segs[1] != f.BaseID {
			writeFakeNotFound(w)
			return
		}
		table := f.table(segs[2])
		if table == nil {
			writeFakeNotFound(w)
			return
		}
		rec := f.record(table.ID, segs[3])
		if rec == nil {
			writeFakeNotFound(w)
			return
		}
		writeFakeJSON(w, http.StatusOK, rec)

	default:
		writeFakeNotFound(w)
	}
}

func (f *FakeAirtable) override(r *http.Request) (fakeOverride, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ov := range f.overrides {
		if (ov.method == "" || ov.method == r.Method) && strings.HasPrefix(r.URL.Path, ov.prefix) {
			return ov, true
		}
	}
	return fakeOverride{}, false
}

func (f *FakeAirtable) injectedFailure(method string) (int, bool) {
	f.writes[method]++
	status, ok := f.failures[method][f.writes[method]]
	return status, ok
}

func (f *FakeAirtable) createTable(w http.ResponseWriter, body []byte) {
	var req struct {
		Name        string      `json:"name"`
		Description string      `json:"description"`
		Fields      []FakeField `json:"fields"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY", err.Error())
		return
	}
	if req.Name == "" || len(req.Fields) == 0 {
		writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_TABLE_DEFINITION", "a table needs a name and at least one field")
		return
	}
	for _, t := range f.tables {
		if t.Name == req.Name {
			writeFakeError(w, http.StatusUnprocessableEntity, "DUPLICATE_TABLE_NAME", "table name already in use")
			return
		}
	}

	table := &FakeTable{ID: f.nextID("tbl"), Name: req.Name, Description: req.Description}
	for _, fld := range req.Fields {
		fld.ID = f.nextID("fld")
		table.Fields = append(table.Fields, fld)
	}
	table.PrimaryFieldID = table.Fields[0].ID
	table.Views = []FakeView{{ID: f.nextID("viw"), Name: "Grid view", Type: "grid"}}
	f.tables = append(f.tables, table)

	writeFakeJSON(w, http.StatusOK, table)
}

func (f *FakeAirtable) createField(w http.ResponseWriter, tableRef string, body []byte) {
	table := f.table(tableRef)
	if table == nil {
		writeFakeNotFound(w)
		return
	}

	var fld FakeField
	if err := json.Unmarshal(body, &fld); err != nil {
		writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY", err.Error())
		return
	}
	if fld.Name == "" || fld.Type == "" {
		writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_FIELD_TYPE", "a field needs a name and a type")
		return
	}
	if table.field(fld.Name) != nil {
		writeFakeError(w, http.StatusUnprocessableEntity, "DUPLICATE_OR_EMPTY_FIELD_NAME", "field name already in use")
		return
	}

	fld.ID = f.nextID("fld")
	table.Fields = append(table.Fields, fld)
	writeFakeJSON(w, http.StatusOK, fld)
}

func (f *FakeAirtable) listRecords(w http.ResponseWriter, table *FakeTable, q url.Values) {
	pageSize := fakeMaxPageSize
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > fakeMaxPageSize {
			writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_PAGE_SIZE", "pageSize must be between 1 and 100")
			return
		}
		pageSize = n
	}

	maxRecords := -1
	if v := q.Get("maxRecords"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_MAX_RECORDS", "maxRecords must be positive")
			return
		}
		maxRecords = n
	}

	if view := q.Get("view"); view != "" {
		found := false
		for _, v := range table.Views {
			if v.ID == view || v.Name == view {
				found = true
			}
		}
		if !found {
			writeFakeError(w, http.StatusUnprocessableEntity, "VIEW_NAME_NOT_FOUND", "view not found")
			return
		}
	}

	match, err := compileFormula(q.Get("filterByFormula"))
	if err != nil {
		writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_FILTER_BY_FORMULA", err.Error())
		return
	}

	var rows []*fakeRecord
	for _, rec := range f.records[table.ID] {
		if match(rec.Fields) {
			rows = append(rows, rec)
		}
	}

	if field := q.Get("sort[0][field]"); field != "" {
		desc := q.Get("sort[0][direction]") == "desc"
		sort.SliceStable(rows, func(i, j int) bool {
			if desc {
				return lessValue(rows[j].Fields[field], rows[i].Fields[field])
			}
			return lessValue(rows[i].Fields[field], rows[j].Fields[field])
		})
	}

	if maxRecords >= 0 && len(rows) > maxRecords {
		rows = rows[:maxRecords]
	}

	start := 0
	if offset := q.Get("offset"); offset != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(offset, "itr"))
		if !strings.HasPrefix(offset, "itr") || err != nil || n < 0 || n > len(rows) {
			writeFakeError(w, http.StatusUnprocessableEntity, "LIST_RECORDS_ITERATOR_NOT_AVAILABLE", "invalid offset")
			return
		}
		start = n
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}

	projection := q["fields[]"]
	page := make([]*fakeRecord, 0, end-start)
	for _, rec := range rows[start:end] {
		page = append(page, project(rec, projection))
	}

	resp := map[string]any{"records": page}
	if end < len(rows) {
		resp["offset"] = "itr" + strconv.Itoa(end)
	}
	writeFakeJSON(w, http.StatusOK, resp)
}

func (f *FakeAirtable) createRecords(w http.ResponseWriter, table *FakeTable, body []byte) {
	var req struct {
		Records []struct {
			Fields map[string]any `json:"fields"`
		} `json:"records"`
		Typecast bool `json:"typecast"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY", err.Error())
		return
	}
	if len(req.Records) == 0 || len(req.Records) > fakeMaxBatch {
		writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_RECORDS", "between 1 and 10 records are required")
		return
	}

	staged := make([]map[string]any, len(req.Records))
	for i, r := range req.Records {
		fields, err := table.normalize(r.Fields, f)
		if err != nil {
			writeFakeError(w, http.StatusUnprocessableEntity, "UNKNOWN_FIELD_NAME", err.Error())
			return
		}
		staged[i] = fields
	}

	created := make([]*fakeRecord, 0, len(staged))
	for _, fields := range staged {
		rec := f.newRecord(fields)
		f.records[table.ID] = append(f.records[table.ID], rec)
		created = append(created, rec)
	}
	writeFakeJSON(w, http.StatusOK, map[string]any{"records": created})
}

func (f *FakeAirtable) updateRecords(w http.ResponseWriter, table *FakeTable, body []byte, replace bool) {
	var req struct {
		Records []struct {
			ID     string         `json:"id"`
			Fields map[string]any `json:"fields"`
		} `json:"records"`
		Typecast bool `json:"typecast"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY", err.Error())
		return
	}
	if len(req.Records) == 0 || len(req.Records) > fakeMaxBatch {
		writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_RECORDS", "between 1 and 10 records are required")
		return
	}

	targets := make([]*fakeRecord, len(req.Records))
	staged := make([]map[string]any, len(req.Records))
	for i, r := range req.Records {
		if r.ID == "" {
			writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_RECORDS", "record id is required")
			return
		}
		targets[i] = f.record(table.ID, r.ID)
		if targets[i] == nil {
			writeFakeError(w, http.StatusUnprocessableEntity, "ROW_DOES_NOT_EXIST", "record "+r.ID+" does not exist")
			return
		}
		fields, err := table.normalize(r.Fields, f)
		if err != nil {
			writeFakeError(w, http.StatusUnprocessableEntity, "UNKNOWN_FIELD_NAME", err.Error())
			return
		}
		staged[i] = fields
	}

	updated := make([]*fakeRecord, len(targets))
	for i, rec := range targets {
		previous := rec.Fields
		if replace {
			rec.Fields = map[string]any{}
		}
		for k, v := range staged[i] {
			rec.Fields[k] = keepAttachments(previous[k], v)
		}
		updated[i] = rec
	}
	writeFakeJSON(w, http.StatusOK, map[string]any{"records": updated})
}

func (f *FakeAirtable) deleteRecords(w http.ResponseWriter, table *FakeTable, ids []string) {
	if len(ids) == 0 || len(ids) > fakeMaxBatch {
		writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_RECORDS", "between 1 and 10 record ids are required")
		return
	}
	for _, id := range ids {
		if f.record(table.ID, id) == nil {
			writeFakeNotFound(w)
			return
		}
	}

	deleted := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		rows := f.records[table.ID]
		for i, rec := range rows {
			if rec.ID == id {
				f.records[table.ID] = append(rows[:i:i], rows[i+1:]...)
				break
			}
		}
		deleted = append(deleted, map[string]any{"id": id, "deleted": true})
	}
	writeFakeJSON(w, http.StatusOK, map[string]any{"records": deleted})
}

func (f *FakeAirtable) upload(w http.ResponseWriter, recordID, fieldRef string, body []byte) {
	var req struct {
		ContentType string `json:"contentType"`
		File        string `json:"file"`
		Filename    string `json:"filename"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY", err.Error())
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.File)
	if err != nil {
		writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_ATTACHMENT", "file is not valid base64")
		return
	}
	if len(data) > fakeMaxUploadSize {
		writeFakeError(w, http.StatusRequestEntityTooLarge, "ATTACHMENT_TOO_LARGE", "attachment exceeds 5 MB")
		return
	}

	for _, table := range f.tables {
		rec := f.record(table.ID, recordID)
		if rec == nil {
			continue
		}
		fld := table.field(fieldRef)
		if fld == nil {
			writeFakeNotFound(w)
			return
		}
		if fld.Type != "multipleAttachments" {
			writeFakeError(w, http.StatusUnprocessableEntity, "INVALID_ATTACHMENT_FIELD", "field does not accept attachments")
			return
		}

		id := f.nextID("att")
		att := map[string]any{
			"id":       id,
			"url":      "https://dl.airtable.test/" + id + "/" + url.PathEscape(req.Filename),
			"filename": req.Filename,
			"size":     len(data),
			"type":     req.ContentType,
		}
		existing, _ := rec.Fields[fld.Name].([]any)
		list := append(append([]any(nil), existing...), att)
		rec.Fields[fld.Name] = list

		f.uploads = append(f.uploads, FakeUpload{
			RecordID:    recordID,
			FieldID:     fld.ID,
			Filename:    req.Filename,
			ContentType: req.ContentType,
			Data:        data,
		})

		writeFakeJSON(w, http.StatusOK, map[string]any{
			"id":          rec.ID,
			"createdTime": rec.CreatedTime,
			"fields":      map[string]any{fld.ID: list},
		})
		return
	}
	writeFakeNotFound(w)
}

func (f *FakeAirtable) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%014d", prefix, f.seq)
}

func (f *FakeAirtable) newRecord(fields map[string]any) *fakeRecord {
	if fields == nil {
		fields = map[string]any{}
	}
	id := f.nextID("rec")
	return &fakeRecord{
		ID:          id,
		CreatedTime: fakeEpoch.Add(time.Duration(f.seq) * time.Second).Format("2006-01-02T15:04:05.000Z"),
		Fields:      fields,
	}
}

func (f *FakeAirtable) table(ref string) *FakeTable {
	for _, t := range f.tables {
		if t.ID == ref || t.Name == ref {
			return t
		}
	}
	return nil
}

func (f *FakeAirtable) record(tableID, recordID string) *fakeRecord {
	for _, rec := range f.records[tableID] {
		if rec.ID == recordID {
			return rec
		}
	}
	return nil
}

func (t *FakeTable) field(ref string) *FakeField {
	for i := range t.Fields {
		if t.Fields[i].ID == ref || t.Fields[i].Name == ref {
			return &t.Fields[i]
		}
	}
	return nil
}

// normalize keys fields by name and assigns ids to new attachment entries
func (t *FakeTable) normalize(fields map[string]any, f *FakeAirtable) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		fld := t.field(key)
		if fld == nil {
			return nil, fmt.Errorf("unknown field name: %q", key)
		}
		if list, ok := value.([]any); ok && fld.Type == "multipleAttachments" {
			for _, item := range list {
				if att, ok := item.(map[string]any); ok && att["id"] == nil {
					att["id"] = f.nextID("att")
				}
			}
		}
		out[fld.Name] = value
	}
	return out, nil
}

// keepAttachments expands id-only attachment entries in next to the stored
// attachment with that id
func keepAttachments(prev, next any) any {
	stored, ok := prev.([]any)
	if !ok {
		return next
	}
	list, ok := next.([]any)
	if !ok {
		return next
	}
	byID := make(map[any]any, len(stored))
	for _, item := range stored {
		if att, ok := item.(map[string]any); ok {
			byID[att["id"]] = att
		}
	}
	out := make([]any, len(list))
	for i, item := range list {
		out[i] = item
		if att, ok := item.(map[string]any); ok && len(att) == 1 {
			if full, ok := byID[att["id"]]; ok {
				out[i] = full
			}
		}
	}
	return out
}

func project(rec *fakeRecord, fields []string) *fakeRecord {
	if len(fields) == 0 {
		return rec
	}
	out := &fakeRecord{ID: rec.ID, CreatedTime: rec.CreatedTime, Fields: map[string]any{}}
	for _, name := range fields {
		if v, ok := rec.Fields[name]; ok {
			out.Fields[name] = v
		}
	}
	return out
}

var formulaEquals = regexp.MustCompile(`^\{([^}]+)\}\s*=\s*(?:'([^']*)'|"([^"]*)"|(-?\d+(?:\.\d+)?))$`)

// compileFormula supports TRUE(), FALSE() and {Field} = literal
func compileFormula(formula string) (func(map[string]any) bool, error) {
	formula = strings.TrimSpace(formula)
	switch formula {
	case "", "TRUE()":
		return func(map[string]any) bool { return true }, nil
	case "FALSE()":
		return func(map[string]any) bool { return false }, nil
	}

	m := formulaEquals.FindStringSubmatch(formula)
	if m == nil {
		return nil, fmt.Errorf("the formula for filtering records is invalid: %s", formula)
	}
	field := m[1]
	if m[4] != "" {
		want, _ := strconv.ParseFloat(m[4], 64)
		return func(fields map[string]any) bool {
			got, ok := toFloat(fields[field])
			return ok && got == want
		}, nil
	}
	want := m[2] + m[3]
	return func(fields map[string]any) bool {
		v, ok := fields[field]
		return ok && fmt.Sprint(v) == want
	}, nil
}

func lessValue(a, b any) bool {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		return fa < fb
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func splitPath(escaped string) []string {
	parts := strings.Split(strings.Trim(escaped, "/"), "/")
	for i, p := range parts {
		if s, err := url.PathUnescape(p); err == nil {
			parts[i] = s
		}
	}
	return parts
}

func writeFakeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeFakeError(w http.ResponseWriter, status int, typ, message string) {
	writeFakeJSON(w, status, map[string]any{
		"error": map[string]string{"type": typ, "message": message},
	})
}

func writeFakeNotFound(w http.ResponseWriter) {
	writeFakeJSON(w, http.StatusNotFound, map[string]string{"error": "NOT_FOUND"})
}
