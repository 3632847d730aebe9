package airtable

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MaxRecordsPerRequest is Airtable's limit for batched writes and deletes
	MaxRecordsPerRequest = 10
	// MaxUploadSize is the largest attachment accepted by the upload endpoint
	MaxUploadSize = 5 * 1024 * 1024
)

// FieldType is Airtable's field type tag
type FieldType string

// Common field types
const (
	FieldSingleLineText      FieldType = "singleLineText"
	FieldMultilineText       FieldType = "multilineText"
	FieldRichText            FieldType = "richText"
	FieldEmail               FieldType = "email"
	FieldURL                 FieldType = "url"
	FieldNumber              FieldType = "number"
	FieldCurrency            FieldType = "currency"
	FieldPercent             FieldType = "percent"
	FieldCheckbox            FieldType = "checkbox"
	FieldDate                FieldType = "date"
	FieldDateTime            FieldType = "dateTime"
	FieldSingleSelect        FieldType = "singleSelect"
	FieldMultipleSelects     FieldType = "multipleSelects"
	FieldMultipleAttachments FieldType = "multipleAttachments"
	FieldMultipleRecordLinks FieldType = "multipleRecordLinks"
	FieldFormula             FieldType = "formula"
	FieldAutoNumber          FieldType = "autoNumber"
)

// Schema is the normalized description of a base
type Schema struct {
	BaseID string   `json:"baseId"`
	Tables []*Table `json:"tables"`
}

// Table returns the table with the given id, or else the first table with
// the given name, or nil.
func (s *Schema) Table(idOrName string) *Table {
	if s == nil {
		return nil
	}
	for _, t := range s.Tables {
		if t.ID == idOrName {
			return t
		}
	}
	for _, t := range s.Tables {
		if t.Name == idOrName {
			return t
		}
	}
	return nil
}

// Table is a table definition
type Table struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	PrimaryFieldID string   `json:"primaryFieldId"`
	Fields         []*Field `json:"fields"`
	Views          []*View  `json:"views,omitempty"`
}

// Field returns the field with the given id, or else the first field with
// the given name, or nil.
func (t *Table) Field(idOrName string) *Field {
	if t == nil {
		return nil
	}
	for _, f := range t.Fields {
		if f.ID == idOrName {
			return f
		}
	}
	for _, f := range t.Fields {
		if f.Name == idOrName {
			return f
		}
	}
	return nil
}

// PrimaryField returns the table's primary field, or nil
func (t *Table) PrimaryField() *Field {
	return t.Field(t.PrimaryFieldID)
}

// Field is a field (column) definition
type Field struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        FieldType      `json:"type"`
	Description string         `json:"description,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
}

// View is a saved view of a table
type View struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Fields maps field names (or ids) to values
type Fields map[string]any

// Record is a row of a table. Values are whatever Airtable returned; numbers
// decode as float64.
type Record struct {
	ID          string    `json:"id"`
	CreatedTime time.Time `json:"createdTime"`
	Fields      Fields    `json:"fields"`
}

// Attachment is an element of a multipleAttachments field value
type Attachment struct {
	ID         string                `json:"id,omitempty"`
	URL        string                `json:"url,omitempty"`
	Filename   string                `json:"filename,omitempty"`
	Size       int64                 `json:"size,omitempty"`
	Type       string                `json:"type,omitempty"`
	Width      int                   `json:"width,omitempty"`
	Height     int                   `json:"height,omitempty"`
	Thumbnails map[string]*Thumbnail `json:"thumbnails,omitempty"`
}

// Thumbnail is a resized image of an attachment
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// DeletedRecord is an element of a delete response
type DeletedRecord struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// SortDirection orders list results
type SortDirection string

// Sort directions
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sort orders list results by a field
type Sort struct {
	Field     string
	Direction SortDirection
}

// ListOptions controls FetchRecords
type ListOptions struct {
	// Filter is an Airtable formula passed verbatim as filterByFormula
	Filter string
	// Fields limits the returned fields
	Fields []string
	// PageSize overrides the client page size (1-100)
	PageSize int
	// MaxRecords caps the total number of records returned
	MaxRecords int
	// View returns records of a view, in the view's order
	View string
	Sort []Sort
}

// WriteOptions controls CreateRecords and UpdateRecords
type WriteOptions struct {
	// Typecast lets Airtable convert string values to the field type
	Typecast bool
	// Destructive replaces records (PUT) instead of merging (PATCH), clearing
	// fields not given. Ignored by CreateRecords.
	Destructive bool
	// ContinueOnError sends the remaining batches after a failed one
	ContinueOnError bool
}

// FieldSpec describes a field to create
type FieldSpec struct {
	Name        string         `json:"name"`
	Type        FieldType      `json:"type"`
	Description string         `json:"description,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
}

// TableSpec describes a table to create. The first field becomes the
// primary field.
type TableSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Fields      []FieldSpec `json:"fields"`
}

// DuplicateNameWarning is returned alongside a table id when more than one
// table carries the requested name. The first table listed by Airtable wins.
type DuplicateNameWarning struct {
	Name     string
	Chosen   string
	Matching []string
}

func (w *DuplicateNameWarning) Error() string {
	return fmt.Sprintf("table name %q matches %d tables (%s); using %s",
		w.Name, len(w.Matching), strings.Join(w.Matching, ", "), w.Chosen)
}
