// Package schema builds and caches a description of the target dataset for
// prompt construction and table browsing.
package schema

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
	"github.com/datalens-ai/datalens-engine/pkg/datasource"
)

// Column describes one column of a catalog table.
type Column struct {
	Name             string `json:"name"`
	Type             string `json:"type"`
	Nullable         bool   `json:"nullable"`
	PrimaryKey       bool   `json:"primary_key"`
	ForeignKeyTarget string `json:"foreign_key_target,omitempty"` // "table.column" or empty
}

// Table describes one table of the dataset.
type Table struct {
	Name     string   `json:"name"`
	Schema   string   `json:"schema,omitempty"`
	RowCount int64    `json:"row_count"`
	Columns  []Column `json:"columns"`
}

// Description is the full dataset description. Tables keep introspection
// order; the struct is read-only to consumers.
type Description struct {
	Tables   []Table `json:"tables"`
	Degraded bool    `json:"degraded"` // true when the static fallback is in use
}

// TableNames returns ordered table names.
func (d *Description) TableNames() []string {
	names := make([]string, len(d.Tables))
	for i, t := range d.Tables {
		names[i] = t.Name
	}
	return names
}

// Table returns the named table or apperrors.ErrNotFound.
func (d *Description) Table(name string) (*Table, error) {
	for i := range d.Tables {
		if d.Tables[i].Name == name {
			return &d.Tables[i], nil
		}
	}
	return nil, fmt.Errorf("table %q: %w", name, apperrors.ErrNotFound)
}

// Text renders the description as a prompt block.
func (d *Description) Text() string {
	var sb strings.Builder
	sb.WriteString("Database schema:\n")

	for _, t := range d.Tables {
		sb.WriteString("\n")
		sb.WriteString(t.Name)
		sb.WriteString(":\n")
		for _, c := range t.Columns {
			sb.WriteString("  - ")
			sb.WriteString(c.Name)
			sb.WriteString(": ")
			sb.WriteString(c.Type)
			if c.PrimaryKey {
				sb.WriteString(" (primary key)")
			}
			if !c.Nullable && !c.PrimaryKey {
				sb.WriteString(" (not null)")
			}
			if c.ForeignKeyTarget != "" {
				sb.WriteString(" -> ")
				sb.WriteString(c.ForeignKeyTarget)
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// Catalog lazily introspects the dataset and caches the result for its
// lifetime. Concurrent readers never block each other once the cache is
// populated; re-introspection happens only through Refresh.
type Catalog struct {
	introspector datasource.SchemaIntrospector
	logger       *zap.Logger

	mu   sync.RWMutex
	desc *Description
}

// NewCatalog creates a catalog over the given introspector.
func NewCatalog(introspector datasource.SchemaIntrospector, logger *zap.Logger) *Catalog {
	return &Catalog{
		introspector: introspector,
		logger:       logger.Named("schema"),
	}
}

// Describe returns the dataset description, introspecting on first call.
// If introspection fails or finds no tables, a static fallback description
// is cached and returned instead, so prompt building never fails.
func (c *Catalog) Describe(ctx context.Context) *Description {
	c.mu.RLock()
	if c.desc != nil {
		desc := c.desc
		c.mu.RUnlock()
		return desc
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.desc != nil {
		return c.desc
	}

	desc, err := c.introspect(ctx)
	if err != nil || len(desc.Tables) == 0 {
		if err != nil {
			c.logger.Warn("schema introspection failed, using fallback description",
				zap.Error(err))
		} else {
			c.logger.Warn("schema introspection found no tables, using fallback description")
		}
		desc = FallbackDescription()
	}

	c.desc = desc
	return c.desc
}

// TableNames returns the ordered table names of the cached description.
func (c *Catalog) TableNames(ctx context.Context) []string {
	return c.Describe(ctx).TableNames()
}

// TableDetail returns metadata for one table or apperrors.ErrNotFound.
func (c *Catalog) TableDetail(ctx context.Context, name string) (*Table, error) {
	return c.Describe(ctx).Table(name)
}

// Refresh drops the cached description and re-introspects.
// Returns the error when re-introspection fails; the fallback description
// is cached in that case so subsequent reads still work.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	desc, err := c.introspect(ctx)
	if err != nil || len(desc.Tables) == 0 {
		c.desc = FallbackDescription()
		if err != nil {
			return fmt.Errorf("refresh schema: %w", err)
		}
		return nil
	}

	c.desc = desc
	return nil
}

// introspect builds a fresh description from the database.
func (c *Catalog) introspect(ctx context.Context) (*Description, error) {
	tables, err := c.introspector.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	fks, err := c.introspector.ListForeignKeys(ctx)
	if err != nil {
		c.logger.Warn("foreign key discovery failed", zap.Error(err))
		fks = nil
	}

	// Index FK targets by source table.column for O(1) lookup.
	fkTargets := make(map[string]string, len(fks))
	for _, fk := range fks {
		key := fk.SourceTable + "." + fk.SourceColumn
		fkTargets[key] = fk.TargetTable + "." + fk.TargetColumn
	}

	desc := &Description{Tables: make([]Table, 0, len(tables))}
	for _, t := range tables {
		columnsMeta, err := c.introspector.ListColumns(ctx, t.SchemaName, t.TableName)
		if err != nil {
			return nil, fmt.Errorf("list columns for %s: %w", t.TableName, err)
		}

		columns := make([]Column, 0, len(columnsMeta))
		for _, cm := range columnsMeta {
			columns = append(columns, Column{
				Name:             cm.ColumnName,
				Type:             cm.DataType,
				Nullable:         cm.IsNullable,
				PrimaryKey:       cm.IsPrimaryKey,
				ForeignKeyTarget: fkTargets[t.TableName+"."+cm.ColumnName],
			})
		}

		desc.Tables = append(desc.Tables, Table{
			Name:     t.TableName,
			Schema:   t.SchemaName,
			RowCount: t.RowCount,
			Columns:  columns,
		})
	}

	return desc, nil
}
