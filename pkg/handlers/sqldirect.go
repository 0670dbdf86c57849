package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/datasource"
	"github.com/datalens-ai/datalens-engine/pkg/logging"
	sqlguard "github.com/datalens-ai/datalens-engine/pkg/sql"
)

// SQLRequest for POST /api/sql body. Params carries user-supplied values
// that are screened for injection before execution.
type SQLRequest struct {
	Query   string            `json:"query"`
	MaxRows int               `json:"max_rows,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
}

// SQLData is the payload of a direct SQL execution response.
type SQLData struct {
	SQL      string           `json:"sql"`
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// SQLHandler serves direct SQL execution. It bypasses generation but still
// applies normalization, the safety guard, and the row cap.
type SQLHandler struct {
	guard    *sqlguard.Guard
	executor datasource.QueryExecutor
	rowCap   int
	logger   *zap.Logger
}

// NewSQLHandler creates a direct SQL handler.
func NewSQLHandler(guard *sqlguard.Guard, executor datasource.QueryExecutor, rowCap int, logger *zap.Logger) *SQLHandler {
	if rowCap <= 0 {
		rowCap = 100
	}
	return &SQLHandler{
		guard:    guard,
		executor: executor,
		rowCap:   rowCap,
		logger:   logger,
	}
}

// RegisterRoutes registers the SQL handler's routes on the given mux.
func (h *SQLHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sql", h.Execute)
}

// Execute handles POST /api/sql.
func (h *SQLHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req SQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.writeError(w, http.StatusBadRequest, "missing_query", "SQL query is required")
		return
	}

	for name, value := range req.Params {
		if check := sqlguard.CheckForInjection(value); check.IsSQLi {
			h.logger.Warn("injection attempt in parameter",
				zap.String("param", name),
				zap.String("fingerprint", check.Fingerprint))
			h.writeError(w, http.StatusBadRequest, "invalid_parameter",
				"Parameter "+name+" failed the injection check")
			return
		}
	}

	validation := sqlguard.ValidateAndNormalize(req.Query)
	if validation.Error != nil {
		code := "invalid_sql"
		if errors.Is(validation.Error, sqlguard.ErrMultipleStatements) {
			code = "multiple_statements"
		}
		h.writeError(w, http.StatusBadRequest, code, validation.Error.Error())
		return
	}

	if result := h.guard.Validate(validation.NormalizedSQL); !result.Valid {
		h.logger.Warn("direct SQL rejected",
			zap.String("reason", result.Reason),
			zap.String("sql", logging.SanitizeQuery(req.Query)))
		h.writeError(w, http.StatusBadRequest, "unsafe_sql", result.Reason)
		return
	}

	limit := req.MaxRows
	if limit <= 0 || limit > h.rowCap {
		limit = h.rowCap
	}
	safeSQL := h.guard.EnforceLimit(validation.NormalizedSQL, limit)

	result, err := h.executor.ExecuteQuery(r.Context(), safeSQL, limit)
	if err != nil {
		h.logger.Error("direct SQL execution failed",
			zap.String("sql", logging.SanitizeQuery(safeSQL)),
			zap.Error(err))
		h.writeJSON(w, http.StatusOK, ApiResponse{
			Success: false,
			Error:   "execution_failed",
			Message: logging.SanitizeError(err),
		})
		return
	}

	rows := result.Rows
	if len(rows) > limit {
		rows = rows[:limit]
	}
	h.writeJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: SQLData{
			SQL:      safeSQL,
			Columns:  result.ColumnNames(),
			Rows:     rows,
			RowCount: len(rows),
		},
	})
}

func (h *SQLHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *SQLHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
