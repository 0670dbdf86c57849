package schema

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
	"github.com/datalens-ai/datalens-engine/pkg/datasource"
)

func fakeIntrospector() *datasource.MockSchemaIntrospector {
	return &datasource.MockSchemaIntrospector{
		ListTablesFunc: func(ctx context.Context) ([]datasource.TableMetadata, error) {
			return []datasource.TableMetadata{
				{SchemaName: "public", TableName: "orders", RowCount: 1200},
				{SchemaName: "public", TableName: "users", RowCount: 300},
			}, nil
		},
		ListColumnsFunc: func(ctx context.Context, schemaName, tableName string) ([]datasource.ColumnMetadata, error) {
			switch tableName {
			case "orders":
				return []datasource.ColumnMetadata{
					{ColumnName: "order_id", DataType: "integer", IsPrimaryKey: true, OrdinalPosition: 1},
					{ColumnName: "user_id", DataType: "integer", OrdinalPosition: 2},
					{ColumnName: "total_amount", DataType: "numeric", OrdinalPosition: 3},
				}, nil
			case "users":
				return []datasource.ColumnMetadata{
					{ColumnName: "user_id", DataType: "integer", IsPrimaryKey: true, OrdinalPosition: 1},
					{ColumnName: "username", DataType: "character varying", OrdinalPosition: 2},
				}, nil
			}
			return nil, errors.New("unknown table")
		},
		ListForeignKeysFunc: func(ctx context.Context) ([]datasource.ForeignKeyMetadata, error) {
			return []datasource.ForeignKeyMetadata{
				{ConstraintName: "orders_user_id_fkey", SourceTable: "orders", SourceColumn: "user_id", TargetTable: "users", TargetColumn: "user_id"},
			}, nil
		},
	}
}

func TestCatalogDescribe(t *testing.T) {
	introspector := fakeIntrospector()
	catalog := NewCatalog(introspector, zap.NewNop())

	desc := catalog.Describe(context.Background())
	if desc.Degraded {
		t.Fatal("expected live description, got degraded fallback")
	}
	if got := desc.TableNames(); len(got) != 2 || got[0] != "orders" || got[1] != "users" {
		t.Errorf("TableNames() = %v", got)
	}

	orders, err := desc.Table("orders")
	if err != nil {
		t.Fatalf("Table(orders) error = %v", err)
	}
	if orders.Columns[1].ForeignKeyTarget != "users.user_id" {
		t.Errorf("user_id fk target = %q", orders.Columns[1].ForeignKeyTarget)
	}
	if !orders.Columns[0].PrimaryKey {
		t.Error("order_id should be primary key")
	}
}

func TestCatalogDescribe_CachesAcrossCalls(t *testing.T) {
	introspector := fakeIntrospector()
	catalog := NewCatalog(introspector, zap.NewNop())

	catalog.Describe(context.Background())
	catalog.Describe(context.Background())
	catalog.TableNames(context.Background())

	if introspector.ListTablesCalls != 1 {
		t.Errorf("ListTables called %d times, want 1", introspector.ListTablesCalls)
	}
}

func TestCatalogDescribe_FallbackOnError(t *testing.T) {
	introspector := &datasource.MockSchemaIntrospector{
		ListTablesFunc: func(ctx context.Context) ([]datasource.TableMetadata, error) {
			return nil, errors.New("connection refused")
		},
	}
	catalog := NewCatalog(introspector, zap.NewNop())

	desc := catalog.Describe(context.Background())
	if !desc.Degraded {
		t.Fatal("expected degraded fallback description")
	}
	if _, err := desc.Table("orders"); err != nil {
		t.Errorf("fallback should include orders table: %v", err)
	}
	if len(desc.Tables) != 10 {
		t.Errorf("fallback table count = %d, want 10", len(desc.Tables))
	}
}

func TestCatalogDescribe_FallbackOnEmptySchema(t *testing.T) {
	introspector := &datasource.MockSchemaIntrospector{
		ListTablesFunc: func(ctx context.Context) ([]datasource.TableMetadata, error) {
			return nil, nil
		},
	}
	catalog := NewCatalog(introspector, zap.NewNop())

	if desc := catalog.Describe(context.Background()); !desc.Degraded {
		t.Error("expected fallback when no tables are found")
	}
}

func TestCatalogRefresh(t *testing.T) {
	introspector := fakeIntrospector()
	catalog := NewCatalog(introspector, zap.NewNop())

	catalog.Describe(context.Background())
	if err := catalog.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if introspector.ListTablesCalls != 2 {
		t.Errorf("ListTables called %d times after refresh, want 2", introspector.ListTablesCalls)
	}
}

func TestCatalogRefresh_FailureKeepsCatalogUsable(t *testing.T) {
	failing := &datasource.MockSchemaIntrospector{
		ListTablesFunc: func(ctx context.Context) ([]datasource.TableMetadata, error) {
			return nil, errors.New("connection reset")
		},
	}
	catalog := NewCatalog(failing, zap.NewNop())

	if err := catalog.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() expected error")
	}
	// Reads after a failed refresh still serve the fallback.
	if desc := catalog.Describe(context.Background()); !desc.Degraded {
		t.Error("expected degraded description after failed refresh")
	}
}

func TestTableDetail_NotFound(t *testing.T) {
	catalog := NewCatalog(fakeIntrospector(), zap.NewNop())

	_, err := catalog.TableDetail(context.Background(), "nonexistent")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("TableDetail() error = %v, want ErrNotFound", err)
	}
}

func TestDescriptionText(t *testing.T) {
	desc := FallbackDescription()
	text := desc.Text()

	for _, want := range []string{
		"Database schema:",
		"orders:",
		"order_id: INTEGER (primary key)",
		"user_id: INTEGER (not null) -> users.user_id",
		"suppliers:",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Text() missing %q", want)
		}
	}
}
