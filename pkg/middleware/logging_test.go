package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLoggerLogsQueryRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Message != "request served" {
		t.Errorf("message = %q", entry.Message)
	}
	fields := entry.ContextMap()
	if fields["method"] != http.MethodPost {
		t.Errorf("method = %v", fields["method"])
	}
	if fields["path"] != "/api/query" {
		t.Errorf("path = %v", fields["path"])
	}
	if fields["status"] != int64(http.StatusOK) {
		t.Errorf("status = %v", fields["status"])
	}
}

func TestRequestLoggerNilLoggerPassesThrough(t *testing.T) {
	called := false
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tables", nil))
	if !called {
		t.Error("expected handler to be called")
	}
}

func TestRequestLoggerCapturesErrorStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_request"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/sql", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry := logs.All()[0]
	if got := entry.ContextMap()["status"]; got != int64(http.StatusBadRequest) {
		t.Errorf("status = %v, want %d", got, http.StatusBadRequest)
	}
}

func TestStatusRecorderIgnoresDuplicateWriteHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

	sr.WriteHeader(http.StatusNotFound)
	sr.WriteHeader(http.StatusInternalServerError)

	if sr.status != http.StatusNotFound {
		t.Errorf("status = %d, want %d", sr.status, http.StatusNotFound)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("recorded status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestStatusRecorderWriteDefaultsToOK(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

	if _, err := sr.Write([]byte("ok")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sr.headerWritten {
		t.Error("implicit write did not mark the header as written")
	}
	if sr.status != http.StatusOK {
		t.Errorf("status = %d", sr.status)
	}
}
