package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/datasource"
	sqlguard "github.com/datalens-ai/datalens-engine/pkg/sql"
)

func newSQLHandler(executor datasource.QueryExecutor) *SQLHandler {
	return NewSQLHandler(sqlguard.NewGuard(nil), executor, 100, zap.NewNop())
}

func TestSQLExecuteSuccess(t *testing.T) {
	var gotSQL string
	executor := &datasource.MockQueryExecutor{
		ExecuteQueryFunc: func(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
			gotSQL = sqlQuery
			return &datasource.QueryResult{
				Columns:  []datasource.Column{{Name: "id", Type: "int8"}},
				Rows:     []map[string]any{{"id": int64(1)}},
				RowCount: 1,
			}, nil
		},
	}
	h := newSQLHandler(executor)

	rec := postJSON(t, h.Execute, `{"query": "SELECT id FROM orders;"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Fatalf("success = false: %+v", resp)
	}
	if !strings.Contains(strings.ToUpper(gotSQL), "LIMIT 100") {
		t.Errorf("row cap not applied: %q", gotSQL)
	}
	if strings.HasSuffix(strings.TrimSpace(gotSQL), ";") {
		t.Errorf("trailing semicolon not stripped: %q", gotSQL)
	}
}

func TestSQLExecuteRejectsWrites(t *testing.T) {
	executor := &datasource.MockQueryExecutor{}
	h := newSQLHandler(executor)

	rec := postJSON(t, h.Execute, `{"query": "DROP TABLE users"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if executor.ExecuteQueryCalls != 0 {
		t.Errorf("unsafe SQL reached the executor")
	}
}

func TestSQLExecuteRejectsMultipleStatements(t *testing.T) {
	executor := &datasource.MockQueryExecutor{}
	h := newSQLHandler(executor)

	rec := postJSON(t, h.Execute, `{"query": "SELECT 1; SELECT 2"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "multiple_statements") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestSQLExecuteRejectsInjectionParam(t *testing.T) {
	executor := &datasource.MockQueryExecutor{}
	h := newSQLHandler(executor)

	body := `{"query": "SELECT id FROM orders", "params": {"status": "' OR 1=1 --"}}`
	rec := postJSON(t, h.Execute, body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if executor.ExecuteQueryCalls != 0 {
		t.Errorf("injection param reached the executor")
	}
}

func TestSQLExecuteClampsMaxRows(t *testing.T) {
	var gotLimit int
	executor := &datasource.MockQueryExecutor{
		ExecuteQueryFunc: func(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
			gotLimit = limit
			return &datasource.QueryResult{Rows: []map[string]any{}}, nil
		},
	}
	h := newSQLHandler(executor)

	postJSON(t, h.Execute, `{"query": "SELECT id FROM orders", "max_rows": 5000}`)
	if gotLimit != 100 {
		t.Errorf("limit = %d, want clamped 100", gotLimit)
	}

	postJSON(t, h.Execute, `{"query": "SELECT id FROM orders", "max_rows": 10}`)
	if gotLimit != 10 {
		t.Errorf("limit = %d, want 10", gotLimit)
	}
}

func TestSQLExecuteMissingQuery(t *testing.T) {
	h := newSQLHandler(&datasource.MockQueryExecutor{})
	rec := postJSON(t, h.Execute, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSQLExecuteExecutionError(t *testing.T) {
	executor := &datasource.MockQueryExecutor{
		ExecuteQueryFunc: func(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
			return nil, context.DeadlineExceeded
		},
	}
	h := newSQLHandler(executor)

	rec := postJSON(t, h.Execute, `{"query": "SELECT id FROM orders"}`)
	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Error != "execution_failed" {
		t.Errorf("error = %q", resp.Error)
	}
}
