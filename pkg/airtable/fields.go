package airtable

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ajitpratap0/airtable/pkg/errors"
)

// CreateField adds a field to table (id or name). Fields are append-only;
// existing definitions are never modified. The cached schema is invalidated.
func (c *Client) CreateField(ctx context.Context, table string, spec FieldSpec) (*Field, error) {
	if table == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "table is required")
	}
	if err := validateFieldSpec(spec); err != nil {
		return nil, err
	}

	t, err := c.resolveTable(ctx, table)
	if err != nil {
		return nil, err
	}

	var field Field
	if err := c.do(ctx, call{
		method: http.MethodPost,
		url:    c.apiURL("meta", "bases", c.baseID, "tables", t.ID, "fields"),
		body:   spec,
	}, &field); err != nil {
		return nil, err
	}

	c.InvalidateSchema()
	c.logger.Info("field created",
		zap.String("table", t.ID),
		zap.String("field_id", field.ID),
		zap.String("field", field.Name),
		zap.String("type", string(field.Type)))
	return &field, nil
}

// CreateTable adds a table to the base. The cached schema is invalidated.
func (c *Client) CreateTable(ctx context.Context, spec TableSpec) (*Table, error) {
	if spec.Name == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "table name is required")
	}
	if len(spec.Fields) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "a table needs at least one field")
	}
	for _, f := range spec.Fields {
		if err := validateFieldSpec(f); err != nil {
			return nil, err
		}
	}

	var table Table
	if err := c.do(ctx, call{
		method: http.MethodPost,
		url:    c.apiURL("meta", "bases", c.baseID, "tables"),
		body:   spec,
	}, &table); err != nil {
		return nil, err
	}

	c.InvalidateSchema()
	c.logger.Info("table created", zap.String("table_id", table.ID), zap.String("table", table.Name))
	return &table, nil
}

func validateFieldSpec(spec FieldSpec) error {
	if spec.Name == "" {
		return errors.New(errors.ErrorTypeValidation, "field name is required")
	}
	if spec.Type == "" {
		return errors.Newf(errors.ErrorTypeValidation, "field %q needs a type", spec.Name)
	}
	return nil
}
