package airtable

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ajitpratap0/airtable/pkg/errors"
)

// GetSchema fetches every table of the base and replaces the cached schema.
func (c *Client) GetSchema(ctx context.Context) (*Schema, error) {
	var resp struct {
		Tables []*Table `json:"tables"`
	}
	err := c.do(ctx, call{
		method: http.MethodGet,
		url:    c.apiURL("meta", "bases", c.baseID, "tables"),
	}, &resp)
	if err != nil {
		return nil, err
	}

	schema := &Schema{BaseID: c.baseID, Tables: resp.Tables}
	if schema.Tables == nil {
		schema.Tables = []*Table{}
	}

	c.schemaMu.Lock()
	c.schema = schema
	c.schemaMu.Unlock()

	c.logger.Debug("schema fetched", zap.Int("tables", len(schema.Tables)))
	return schema, nil
}

// CachedSchema returns the schema from the last GetSchema, or nil
func (c *Client) CachedSchema() *Schema {
	c.schemaMu.RLock()
	defer c.schemaMu.RUnlock()
	return c.schema
}

// InvalidateSchema drops the cached schema so the next lookup refetches it
func (c *Client) InvalidateSchema() {
	c.schemaMu.Lock()
	c.schema = nil
	c.schemaMu.Unlock()
}

// ResolveTableID returns the id of the table whose display name is exactly
// name. The cached schema is used when present and refetched once when it
// lacks the name. When several tables share the name the first one listed
// wins and a *DuplicateNameWarning is returned along with its id.
func (c *Client) ResolveTableID(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", errors.New(errors.ErrorTypeValidation, "table name is required")
	}

	schema, fresh, err := c.schemaForLookup(ctx)
	if err != nil {
		return "", err
	}

	matching := tablesNamed(schema, name)
	if len(matching) == 0 && !fresh {
		if schema, err = c.GetSchema(ctx); err != nil {
			return "", err
		}
		matching = tablesNamed(schema, name)
	}

	switch len(matching) {
	case 0:
		return "", errors.Newf(errors.ErrorTypeNotFound, "no table named %q", name).
			WithDetail("base_id", c.baseID).
			WithDetail("table", name)
	case 1:
		return matching[0], nil
	}

	warning := &DuplicateNameWarning{Name: name, Chosen: matching[0], Matching: matching}
	c.logger.Warn("duplicate table name",
		zap.String("table", name),
		zap.String("chosen", warning.Chosen),
		zap.Strings("matching", matching))
	return warning.Chosen, warning
}

// resolveTable finds a table by id or name, refetching the schema once when
// the cached one does not know it.
func (c *Client) resolveTable(ctx context.Context, idOrName string) (*Table, error) {
	schema, fresh, err := c.schemaForLookup(ctx)
	if err != nil {
		return nil, err
	}

	table := schema.Table(idOrName)
	if table == nil && !fresh {
		if schema, err = c.GetSchema(ctx); err != nil {
			return nil, err
		}
		table = schema.Table(idOrName)
	}
	if table == nil {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "table %q not found", idOrName).
			WithDetail("base_id", c.baseID).
			WithDetail("table", idOrName)
	}
	return table, nil
}

// schemaForLookup returns the cached schema or fetches one. fresh reports
// whether it was just fetched.
func (c *Client) schemaForLookup(ctx context.Context) (schema *Schema, fresh bool, err error) {
	if schema = c.CachedSchema(); schema != nil {
		return schema, false, nil
	}
	schema, err = c.GetSchema(ctx)
	return schema, true, err
}

func tablesNamed(schema *Schema, name string) []string {
	var ids []string
	for _, t := range schema.Tables {
		if t.Name == name {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
