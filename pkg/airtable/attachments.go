package airtable

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ajitpratap0/airtable/pkg/errors"
	"github.com/ajitpratap0/airtable/pkg/json"
)

var errUploadTooLarge = stderrors.New("attachment exceeds the 5 MB upload limit")

type uploadResponse struct {
	ID     string                     `json:"id"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// UploadAttachment uploads content as a new attachment of a record field
// and returns the field's attachments after the upload.
//
// The field is looked up on the schema first and must be a
// multipleAttachments field. content is base64-encoded while it is streamed
// to the content API; uploads larger than MaxUploadSize fail with a
// validation error. An interrupted upload fails with a transport error and
// must be restarted from scratch.
func (c *Client) UploadAttachment(ctx context.Context, table, recordID, field string, content io.Reader, filename, mimeType string) ([]Attachment, error) {
	if table == "" || recordID == "" || field == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "table, record id and field are required")
	}
	if content == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "attachment content is required")
	}
	if filename == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "attachment filename is required")
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	fld, err := c.attachmentField(ctx, table, field)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	encoded := make(chan error, 1)
	go func() {
		err := writeUploadBody(pw, content, filename, mimeType)
		pw.CloseWithError(err)
		encoded <- err
	}()

	var resp uploadResponse
	sendErr := c.do(ctx, call{
		method: http.MethodPost,
		url:    c.contentURL(c.baseID, recordID, fld.ID, "uploadAttachment"),
		stream: pr,
	}, &resp)
	_ = pr.Close()
	encodeErr := <-encoded

	if stderrors.Is(encodeErr, errUploadTooLarge) {
		return nil, errors.Wrap(encodeErr, errors.ErrorTypeValidation, "attachment too large").
			WithDetail("max_bytes", MaxUploadSize).
			WithDetail("filename", filename)
	}
	if encodeErr != nil && !stderrors.Is(encodeErr, io.ErrClosedPipe) {
		return nil, errors.Wrap(encodeErr, errors.ErrorTypeTransport, "upload interrupted").
			WithDetail("filename", filename)
	}
	if sendErr != nil {
		return nil, sendErr
	}

	raw, ok := resp.Fields[fld.ID]
	if !ok {
		raw, ok = resp.Fields[fld.Name]
	}
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeData, "upload response has no value for field %q", fld.Name)
	}
	var attachments []Attachment
	if err := json.Unmarshal(raw, &attachments); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode attachments")
	}

	c.logger.Debug("attachment uploaded",
		zap.String("record_id", recordID),
		zap.String("field", fld.Name),
		zap.String("filename", filename),
		zap.Int("attachments", len(attachments)))
	return attachments, nil
}

// writeUploadBody writes {"contentType":..,"filename":..,"file":"<base64>"}
// to w, reading at most MaxUploadSize bytes from content.
func writeUploadBody(w io.Writer, content io.Reader, filename, mimeType string) error {
	contentType, err := json.Marshal(mimeType)
	if err != nil {
		return err
	}
	name, err := json.Marshal(filename)
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, `{"contentType":`); err != nil {
		return err
	}
	if _, err := w.Write(contentType); err != nil {
		return err
	}
	if _, err := io.WriteString(w, `,"filename":`); err != nil {
		return err
	}
	if _, err := w.Write(name); err != nil {
		return err
	}
	if _, err := io.WriteString(w, `,"file":"`); err != nil {
		return err
	}

	enc := base64.NewEncoder(base64.StdEncoding, w)
	n, err := io.Copy(enc, io.LimitReader(content, MaxUploadSize+1))
	if err != nil {
		return err
	}
	if n > MaxUploadSize {
		return errUploadTooLarge
	}
	if err := enc.Close(); err != nil {
		return err
	}

	_, err = io.WriteString(w, `"}`)
	return err
}

// AttachURL appends an attachment that Airtable downloads from url to a
// record field, keeping the existing attachments, and returns the field's
// attachments after the update.
func (c *Client) AttachURL(ctx context.Context, table, recordID, field, url, filename string) ([]Attachment, error) {
	if table == "" || recordID == "" || field == "" || url == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "table, record id, field and url are required")
	}

	fld, err := c.attachmentField(ctx, table, field)
	if err != nil {
		return nil, err
	}

	rec, err := c.GetRecord(ctx, table, recordID)
	if err != nil {
		return nil, err
	}
	existing, err := decodeAttachments(rec.Fields[fld.Name])
	if err != nil {
		return nil, err
	}

	value := make([]Attachment, 0, len(existing)+1)
	for _, a := range existing {
		// existing attachments are kept by id
		value = append(value, Attachment{ID: a.ID})
	}
	value = append(value, Attachment{URL: url, Filename: filename})

	updated, err := c.writeBatch(ctx, http.MethodPatch, table, writeRequest{
		Records: []writeRecord{{ID: recordID, Fields: Fields{fld.Name: value}}},
	})
	if err != nil {
		return nil, err
	}
	if len(updated) != 1 {
		return nil, errors.Newf(errors.ErrorTypeData, "expected 1 record in response, got %d", len(updated))
	}
	return decodeAttachments(updated[0].Fields[fld.Name])
}

// attachmentField resolves field on table and checks that it accepts
// attachments.
func (c *Client) attachmentField(ctx context.Context, table, field string) (*Field, error) {
	t, err := c.resolveTable(ctx, table)
	if err != nil {
		return nil, err
	}
	fld := t.Field(field)
	if fld == nil {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "field %q not found in table %q", field, t.Name).
			WithDetail("table", t.ID).
			WithDetail("field", field)
	}
	if fld.Type != FieldMultipleAttachments {
		return nil, errors.Newf(errors.ErrorTypeValidation, "field %q has type %s and does not accept attachments", fld.Name, fld.Type).
			WithDetail("field", fld.ID).
			WithDetail("field_type", string(fld.Type))
	}
	return fld, nil
}

// decodeAttachments converts a decoded field value to attachments
func decodeAttachments(v any) ([]Attachment, error) {
	if v == nil {
		return []Attachment{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode attachment value")
	}
	var out []Attachment
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "field value is not an attachment list")
	}
	return out, nil
}
