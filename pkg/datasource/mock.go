package datasource

import "context"

// MockQueryExecutor is a configurable mock for testing query consumers.
type MockQueryExecutor struct {
	// ExecuteQueryFunc is called when ExecuteQuery is invoked.
	// If nil, returns an empty result.
	ExecuteQueryFunc func(ctx context.Context, sqlQuery string, limit int) (*QueryResult, error)

	// Call tracking for verification
	ExecuteQueryCalls int
	// Queries records the SQL of each call, in order.
	Queries []string
}

// ExecuteQuery implements QueryExecutor.
func (m *MockQueryExecutor) ExecuteQuery(ctx context.Context, sqlQuery string, limit int) (*QueryResult, error) {
	m.ExecuteQueryCalls++
	m.Queries = append(m.Queries, sqlQuery)
	if m.ExecuteQueryFunc != nil {
		return m.ExecuteQueryFunc(ctx, sqlQuery, limit)
	}
	return &QueryResult{Rows: []map[string]any{}}, nil
}

// Close implements QueryExecutor.
func (m *MockQueryExecutor) Close() error {
	return nil
}

// MockSchemaIntrospector is a configurable mock for testing schema consumers.
type MockSchemaIntrospector struct {
	ListTablesFunc      func(ctx context.Context) ([]TableMetadata, error)
	ListColumnsFunc     func(ctx context.Context, schemaName, tableName string) ([]ColumnMetadata, error)
	ListForeignKeysFunc func(ctx context.Context) ([]ForeignKeyMetadata, error)

	ListTablesCalls int
}

// ListTables implements SchemaIntrospector.
func (m *MockSchemaIntrospector) ListTables(ctx context.Context) ([]TableMetadata, error) {
	m.ListTablesCalls++
	if m.ListTablesFunc != nil {
		return m.ListTablesFunc(ctx)
	}
	return nil, nil
}

// ListColumns implements SchemaIntrospector.
func (m *MockSchemaIntrospector) ListColumns(ctx context.Context, schemaName, tableName string) ([]ColumnMetadata, error) {
	if m.ListColumnsFunc != nil {
		return m.ListColumnsFunc(ctx, schemaName, tableName)
	}
	return nil, nil
}

// ListForeignKeys implements SchemaIntrospector.
func (m *MockSchemaIntrospector) ListForeignKeys(ctx context.Context) ([]ForeignKeyMetadata, error) {
	if m.ListForeignKeysFunc != nil {
		return m.ListForeignKeysFunc(ctx)
	}
	return nil, nil
}

// Compile-time interface checks.
var (
	_ QueryExecutor      = (*MockQueryExecutor)(nil)
	_ SchemaIntrospector = (*MockSchemaIntrospector)(nil)
)
