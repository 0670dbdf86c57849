package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
	"github.com/datalens-ai/datalens-engine/pkg/schema"
	sqlguard "github.com/datalens-ai/datalens-engine/pkg/sql"
)

// ListTablesData is the payload of a table listing response.
type ListTablesData struct {
	Tables   []string `json:"tables"`
	Degraded bool     `json:"degraded,omitempty"`
}

// TablesHandler serves schema catalog endpoints.
type TablesHandler struct {
	catalog *schema.Catalog
	logger  *zap.Logger
}

// NewTablesHandler creates a tables handler.
func NewTablesHandler(catalog *schema.Catalog, logger *zap.Logger) *TablesHandler {
	return &TablesHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers the tables handler's routes on the given mux.
func (h *TablesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tables", h.List)
	mux.HandleFunc("GET /api/tables/{name}", h.Detail)
	mux.HandleFunc("POST /api/tables/refresh", h.Refresh)
}

// List handles GET /api/tables.
func (h *TablesHandler) List(w http.ResponseWriter, r *http.Request) {
	desc := h.catalog.Describe(r.Context())
	h.writeJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: ListTablesData{
			Tables:   desc.TableNames(),
			Degraded: desc.Degraded,
		},
	})
}

// Detail handles GET /api/tables/{name}.
func (h *TablesHandler) Detail(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if check := sqlguard.CheckForInjection(name); check.IsSQLi {
		h.logger.Warn("injection attempt in table name",
			zap.String("fingerprint", check.Fingerprint))
		h.writeError(w, http.StatusBadRequest, "invalid_table_name", "Invalid table name")
		return
	}

	table, err := h.catalog.TableDetail(r.Context(), name)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "table_not_found", "Table "+name+" not found")
			return
		}
		h.logger.Error("table detail lookup failed", zap.String("table", name), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load table detail")
		return
	}

	h.writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: table})
}

// Refresh handles POST /api/tables/refresh. It re-runs introspection and
// replaces the cached catalog.
func (h *TablesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Refresh(r.Context()); err != nil {
		h.logger.Error("catalog refresh failed", zap.Error(err))
		h.writeJSON(w, http.StatusOK, ApiResponse{
			Success: false,
			Error:   "refresh_failed",
			Message: "Schema introspection failed; serving fallback schema",
		})
		return
	}

	desc := h.catalog.Describe(r.Context())
	h.writeJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: ListTablesData{
			Tables:   desc.TableNames(),
			Degraded: desc.Degraded,
		},
	})
}

func (h *TablesHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *TablesHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
