package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/cache"
	"github.com/datalens-ai/datalens-engine/pkg/explain"
	"github.com/datalens-ai/datalens-engine/pkg/llm"
	"github.com/datalens-ai/datalens-engine/pkg/logging"
	"github.com/datalens-ai/datalens-engine/pkg/pipeline"
	"github.com/datalens-ai/datalens-engine/pkg/prompts"
	"github.com/datalens-ai/datalens-engine/pkg/viz"
)

// QueryRequest for POST /api/query body. The boolean knobs default to true
// when omitted.
type QueryRequest struct {
	Query              string `json:"query"`
	NeedVisualization  *bool  `json:"need_visualization,omitempty"`
	IncludeSuggestions *bool  `json:"include_suggestions,omitempty"`
	UseCache           *bool  `json:"use_cache,omitempty"`
}

// QueryData is the payload of a successful query response.
type QueryData struct {
	SQL           string           `json:"sql"`
	Columns       []string         `json:"columns"`
	Rows          []map[string]any `json:"rows"`
	RowCount      int              `json:"row_count"`
	Explanation   string           `json:"explanation,omitempty"`
	Visualization *viz.Spec        `json:"visualization,omitempty"`
	Suggestions   []string         `json:"suggestions"`
	Degraded      bool             `json:"degraded,omitempty"`
	RequestID     string           `json:"request_id"`
	Cached        bool             `json:"cached,omitempty"`
}

// NL2SQLRequest for POST /api/nl2sql body.
type NL2SQLRequest struct {
	Query string `json:"query"`
}

// NL2SQLData is the payload of a generation-only response.
type NL2SQLData struct {
	SQL         string   `json:"sql"`
	Suggestions []string `json:"suggestions"`
	Degraded    bool     `json:"degraded,omitempty"`
	RequestID   string   `json:"request_id"`
}

// ExplainRequest for POST /api/explain body.
type ExplainRequest struct {
	Query string           `json:"query"`
	SQL   string           `json:"sql"`
	Rows  []map[string]any `json:"rows"`
}

// ClearCacheData is the payload of a cache clear response.
type ClearCacheData struct {
	Cleared int `json:"cleared"`
}

// QueryHandler serves the natural language query endpoints.
type QueryHandler struct {
	pipeline   *pipeline.Pipeline
	explainer  *explain.Explainer
	inferencer *viz.Inferencer
	completer  llm.Completer
	cache      *cache.QueryCache
	vizTimeout time.Duration
	logger     *zap.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(
	p *pipeline.Pipeline,
	explainer *explain.Explainer,
	inferencer *viz.Inferencer,
	completer llm.Completer,
	queryCache *cache.QueryCache,
	vizTimeout time.Duration,
	logger *zap.Logger,
) *QueryHandler {
	if vizTimeout <= 0 {
		vizTimeout = 60 * time.Second
	}
	return &QueryHandler{
		pipeline:   p,
		explainer:  explainer,
		inferencer: inferencer,
		completer:  completer,
		cache:      queryCache,
		vizTimeout: vizTimeout,
		logger:     logger,
	}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.Query)
	mux.HandleFunc("POST /api/nl2sql", h.NL2SQL)
	mux.HandleFunc("POST /api/explain", h.Explain)
	mux.HandleFunc("DELETE /api/cache", h.ClearCache)
}

// Query handles POST /api/query. It runs the full pipeline and enriches the
// result with an explanation and a chart configuration.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "missing_query", "Query is required")
		return
	}

	useCache := boolOrTrue(req.UseCache)
	if useCache {
		if cached, ok := h.cache.Get(query); ok {
			if data, ok := cached.(*QueryData); ok {
				h.logger.Debug("query cache hit",
					zap.String("query", logging.SanitizeQuery(query)))
				hit := *data
				hit.Cached = true
				h.writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: &hit})
				return
			}
		}
	}

	outcome := h.pipeline.Run(r.Context(), query)

	data := &QueryData{
		SQL:         outcome.SQL,
		Columns:     outcome.Columns,
		Rows:        outcome.Rows,
		RowCount:    outcome.RowCount,
		Suggestions: outcome.Suggestions,
		Degraded:    outcome.Degraded,
		RequestID:   outcome.RequestID,
	}
	if !boolOrTrue(req.IncludeSuggestions) {
		data.Suggestions = nil
	}

	if outcome.Degraded {
		h.writeJSON(w, http.StatusOK, ApiResponse{
			Success: false,
			Error:   "generation_failed",
			Message: outcome.Error,
			Data:    data,
		})
		return
	}
	if !outcome.Success {
		h.writeJSON(w, http.StatusOK, ApiResponse{
			Success: false,
			Error:   "execution_failed",
			Message: outcome.Error,
			Data:    data,
		})
		return
	}

	// Explanation and visualization only need the fetched rows, so they
	// run concurrently.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		data.Explanation = h.explainer.Explain(r.Context(), query, outcome.SQL, outcome.Columns, outcome.Rows)
	}()
	if boolOrTrue(req.NeedVisualization) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data.Visualization = h.inferVisualization(r.Context(), query, outcome.SQL, outcome.Columns, outcome.Rows)
		}()
	}
	wg.Wait()

	if useCache {
		h.cache.Set(query, data)
	}
	h.writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data})
}

// NL2SQL handles POST /api/nl2sql. It generates and validates SQL without
// executing it.
func (h *QueryHandler) NL2SQL(w http.ResponseWriter, r *http.Request) {
	var req NL2SQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "missing_query", "Query is required")
		return
	}

	outcome := h.pipeline.Generate(r.Context(), query)
	data := &NL2SQLData{
		SQL:         outcome.SQL,
		Suggestions: outcome.Suggestions,
		Degraded:    outcome.Degraded,
		RequestID:   outcome.RequestID,
	}
	if outcome.Degraded {
		h.writeJSON(w, http.StatusOK, ApiResponse{
			Success: false,
			Error:   "generation_failed",
			Message: outcome.Error,
			Data:    data,
		})
		return
	}
	h.writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data})
}

// Explain handles POST /api/explain. It summarizes already-fetched rows.
func (h *QueryHandler) Explain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.writeError(w, http.StatusBadRequest, "missing_query", "Query is required")
		return
	}

	explanation := h.explainer.Explain(r.Context(), req.Query, req.SQL, nil, req.Rows)
	h.writeJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    map[string]string{"explanation": explanation},
	})
}

// ClearCache handles DELETE /api/cache.
func (h *QueryHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	cleared := h.cache.Clear()
	h.writeJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    ClearCacheData{Cleared: cleared},
	})
}

// inferVisualization asks the completion gateway for a chart spec, falling
// back to heuristic inference when the call fails or returns garbage.
func (h *QueryHandler) inferVisualization(ctx context.Context, query, sqlQuery string, columns []string, rows []map[string]any) *viz.Spec {
	if h.completer == nil || len(rows) == 0 {
		return h.inferencer.Infer(columns, rows)
	}

	sample := rows
	if len(sample) > 3 {
		sample = sample[:3]
	}
	prompt := prompts.BuildVisualizationPrompt(query, sqlQuery, columns, sample)

	callCtx, cancel := context.WithTimeout(ctx, h.vizTimeout)
	defer cancel()

	raw, err := h.completer.Complete(callCtx, prompts.VisualizationSystemPrompt, prompt)
	if err != nil {
		h.logger.Warn("visualization generation failed, inferring", zap.Error(err))
		return h.inferencer.Infer(columns, rows)
	}
	return h.inferencer.InferWithHint(columns, rows, raw)
}

func (h *QueryHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *QueryHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// boolOrTrue dereferences an optional request flag that defaults to true.
func boolOrTrue(b *bool) bool {
	return b == nil || *b
}
