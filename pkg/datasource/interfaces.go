// Package datasource defines the contracts between the query pipeline and
// the backing analytical database.
package datasource

import "context"

// Column describes one column of a query result.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult holds the outcome of executing a read query.
// Columns preserves the select-list order; Rows are keyed by column name.
type QueryResult struct {
	Columns  []Column         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// ColumnNames returns the ordered column names.
func (r *QueryResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// QueryExecutor executes read-only SQL against the dataset.
type QueryExecutor interface {
	// ExecuteQuery runs a SQL query. A positive limit wraps the query so no
	// more than limit rows are fetched from the database.
	ExecuteQuery(ctx context.Context, sqlQuery string, limit int) (*QueryResult, error)

	// Close releases the executor's resources.
	Close() error
}

// TableMetadata describes a table discovered by introspection.
type TableMetadata struct {
	SchemaName string
	TableName  string
	RowCount   int64 // Planner estimate, not exact
}

// ColumnMetadata describes a column discovered by introspection.
type ColumnMetadata struct {
	ColumnName      string
	DataType        string
	IsNullable      bool
	IsPrimaryKey    bool
	OrdinalPosition int
	DefaultValue    *string
}

// ForeignKeyMetadata describes a foreign key relationship.
type ForeignKeyMetadata struct {
	ConstraintName string
	SourceTable    string
	SourceColumn   string
	TargetTable    string
	TargetColumn   string
}

// SchemaIntrospector discovers the dataset's structure.
type SchemaIntrospector interface {
	// ListTables returns all user tables, excluding system schemas.
	ListTables(ctx context.Context) ([]TableMetadata, error)

	// ListColumns returns the columns of one table in ordinal order.
	ListColumns(ctx context.Context, schemaName, tableName string) ([]ColumnMetadata, error)

	// ListForeignKeys returns all foreign key relationships between user tables.
	ListForeignKeys(ctx context.Context) ([]ForeignKeyMetadata, error)
}
