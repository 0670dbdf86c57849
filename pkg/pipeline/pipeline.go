package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/datasource"
	"github.com/datalens-ai/datalens-engine/pkg/llm"
	"github.com/datalens-ai/datalens-engine/pkg/logging"
	"github.com/datalens-ai/datalens-engine/pkg/prompts"
	"github.com/datalens-ai/datalens-engine/pkg/schema"
	sqlguard "github.com/datalens-ai/datalens-engine/pkg/sql"
)

// State names one step of the pipeline.
type State string

const (
	StateGenerating State = "GENERATING"
	StateExtracting State = "EXTRACTING"
	StateValidating State = "VALIDATING"
	StateExecuting  State = "EXECUTING"
	StateDone       State = "DONE"
	StateDegraded   State = "DEGRADED"
)

// ErrorSentinel prefixes the SQL field of a degraded outcome. Consumers must
// check for this prefix instead of treating the string as SQL.
const ErrorSentinel = "__ERROR__"

// degradedSQL is the full sentinel string returned when no usable SQL could
// be produced.
const degradedSQL = ErrorSentinel + ": SQL generation failed, please rephrase your question or try again later"

// IsDegradedSQL reports whether a SQL string is the degraded sentinel.
func IsDegradedSQL(s string) bool {
	return strings.HasPrefix(s, ErrorSentinel+":")
}

// Config holds pipeline tuning.
type Config struct {
	// MaxRetries bounds regeneration attempts after the first.
	MaxRetries int
	// RetryDelay is the fixed wait between attempts. Deliberately not
	// exponential: the gateway is a paid call and the user is waiting.
	RetryDelay time.Duration
	// RowCap is the hard cap on returned rows.
	RowCap int
	// CallTimeout applies to each external completion call independently.
	CallTimeout time.Duration
}

// Outcome is the aggregate result of one pipeline run.
type Outcome struct {
	Success     bool             `json:"success"`
	SQL         string           `json:"sql"`
	Columns     []string         `json:"columns,omitempty"`
	Rows        []map[string]any `json:"rows"`
	RowCount    int              `json:"row_count"`
	Suggestions []string         `json:"suggestions"`
	Error       string           `json:"error,omitempty"`
	Degraded    bool             `json:"degraded,omitempty"`
	RequestID   string           `json:"request_id"`
}

// Pipeline orchestrates prompt building, completion, extraction, validation,
// and execution for one natural language query at a time.
type Pipeline struct {
	completer llm.Completer
	catalog   *schema.Catalog
	guard     *sqlguard.Guard
	executor  datasource.QueryExecutor
	extractor *Extractor
	cfg       Config
	logger    *zap.Logger
}

// New creates a pipeline.
func New(completer llm.Completer, catalog *schema.Catalog, guard *sqlguard.Guard, executor datasource.QueryExecutor, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.RowCap <= 0 {
		cfg.RowCap = 100
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	return &Pipeline{
		completer: completer,
		catalog:   catalog,
		guard:     guard,
		executor:  executor,
		extractor: NewExtractor(),
		cfg:       cfg,
		logger:    logger.Named("pipeline"),
	}
}

// Run executes the full pipeline for one query.
//
// Generation, extraction, and validation failures are retried up to
// MaxRetries with a fixed delay; exhausting retries yields a degraded
// outcome carrying the error sentinel and default suggestions. Execution
// failures are never retried by regenerating: a well-formed query that the
// database rejects will not be fixed by asking the model again.
func (p *Pipeline) Run(ctx context.Context, query string) *Outcome {
	requestID := uuid.NewString()
	log := p.logger.With(zap.String("request_id", requestID))
	log.Info("pipeline started",
		zap.String("query", logging.SanitizeQuery(query)))

	chosen, suggestions, degraded := p.generate(ctx, log, query, requestID)
	if degraded != nil {
		return degraded
	}

	// EXECUTING
	log.Debug("state transition", zap.String("state", string(StateExecuting)))
	safeSQL := p.guard.EnforceLimit(chosen.SQL, p.cfg.RowCap)

	start := time.Now()
	result, err := p.executor.ExecuteQuery(ctx, safeSQL, p.cfg.RowCap)
	if err != nil {
		log.Error("query execution failed",
			zap.String("sql", logging.SanitizeQuery(safeSQL)),
			zap.Error(err))
		return &Outcome{
			Success:     false,
			SQL:         safeSQL,
			Rows:        []map[string]any{},
			Suggestions: suggestions,
			Error:       logging.SanitizeError(err),
			RequestID:   requestID,
		}
	}

	rows := result.Rows
	if len(rows) > p.cfg.RowCap {
		rows = rows[:p.cfg.RowCap]
		log.Info("result truncated", zap.Int("row_cap", p.cfg.RowCap))
	}

	log.Info("pipeline finished",
		zap.String("state", string(StateDone)),
		zap.Int("row_count", len(rows)),
		zap.Duration("execution_time", time.Since(start)),
		zap.String("sql_source", string(chosen.Source)))

	return &Outcome{
		Success:     true,
		SQL:         safeSQL,
		Columns:     result.ColumnNames(),
		Rows:        rows,
		RowCount:    len(rows),
		Suggestions: suggestions,
		RequestID:   requestID,
	}
}

// Generate runs the pipeline through validation and returns the chosen SQL
// without executing it.
func (p *Pipeline) Generate(ctx context.Context, query string) *Outcome {
	requestID := uuid.NewString()
	log := p.logger.With(zap.String("request_id", requestID))
	log.Info("generation started",
		zap.String("query", logging.SanitizeQuery(query)))

	chosen, suggestions, degraded := p.generate(ctx, log, query, requestID)
	if degraded != nil {
		return degraded
	}

	log.Info("generation finished", zap.String("sql_source", string(chosen.Source)))
	return &Outcome{
		Success:     true,
		SQL:         chosen.SQL,
		Rows:        []map[string]any{},
		Suggestions: suggestions,
		RequestID:   requestID,
	}
}

// generate runs the retry loop over generation, extraction, and validation.
// A non-nil third return value is the terminal degraded outcome.
func (p *Pipeline) generate(ctx context.Context, log *zap.Logger, query, requestID string) (Candidate, []string, *Outcome) {
	schemaText := p.catalog.Describe(ctx).Text()
	prompt := prompts.BuildGenerationPrompt(schemaText, query)

	attempts := p.cfg.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			log.Info("retrying generation", zap.Int("attempt", attempt))
			select {
			case <-time.After(p.cfg.RetryDelay):
			case <-ctx.Done():
				return Candidate{}, nil, p.degraded(query, requestID, ctx.Err().Error())
			}
		}

		if candidate, sugg, ok := p.attempt(ctx, log, prompt, query); ok {
			return candidate, sugg, nil
		}
	}

	log.Warn("retries exhausted, degrading")
	return Candidate{}, nil, p.degraded(query, requestID, "no valid SQL could be generated")
}

// attempt runs one GENERATING -> EXTRACTING -> VALIDATING pass.
// Returns ok=false when the pass produced no usable candidate.
func (p *Pipeline) attempt(ctx context.Context, log *zap.Logger, prompt, query string) (Candidate, []string, bool) {
	// GENERATING
	log.Debug("state transition", zap.String("state", string(StateGenerating)))
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	raw, err := p.completer.Complete(callCtx, prompts.GenerationSystemPrompt, prompt)
	cancel()
	if err != nil {
		log.Warn("generation failed", zap.Error(err))
		return Candidate{}, nil, false
	}
	if strings.TrimSpace(raw) == "" {
		log.Warn("generation returned empty response")
		return Candidate{}, nil, false
	}

	// EXTRACTING
	log.Debug("state transition", zap.String("state", string(StateExtracting)))
	ext := p.extractor.Extract(raw, query)
	if !ext.HasSQL() {
		log.Warn("no SQL candidates in response")
		return Candidate{}, nil, false
	}

	// VALIDATING
	log.Debug("state transition", zap.String("state", string(StateValidating)))
	if ext.Primary.SQL != "" {
		if candidate, ok := p.vet(log, ext.Primary); ok {
			return candidate, ext.Suggestions, true
		}
	}
	if ext.Fallback.SQL != "" {
		if candidate, ok := p.vet(log, ext.Fallback); ok {
			log.Info("using fallback SQL")
			return candidate, ext.Suggestions, true
		}
	}

	return Candidate{}, nil, false
}

// vet normalizes a candidate and runs it through the safety guard. The
// normalized form (trailing semicolon stripped) is what downstream limit
// wrapping and execution see.
func (p *Pipeline) vet(log *zap.Logger, c Candidate) (Candidate, bool) {
	norm := sqlguard.ValidateAndNormalize(c.SQL)
	if norm.Error != nil {
		log.Warn("candidate SQL rejected",
			zap.String("source", string(c.Source)),
			zap.Error(norm.Error))
		return Candidate{}, false
	}
	if norm.NormalizedSQL == "" {
		return Candidate{}, false
	}
	result := p.guard.Validate(norm.NormalizedSQL)
	if !result.Valid {
		log.Warn("candidate SQL rejected",
			zap.String("source", string(c.Source)),
			zap.String("reason", result.Reason))
		return Candidate{}, false
	}
	c.SQL = norm.NormalizedSQL
	return c, true
}

// degraded builds the terminal DEGRADED outcome.
func (p *Pipeline) degraded(query, requestID, reason string) *Outcome {
	p.logger.Warn("pipeline degraded",
		zap.String("request_id", requestID),
		zap.String("reason", reason))
	return &Outcome{
		Success:     false,
		SQL:         degradedSQL,
		Rows:        []map[string]any{},
		Suggestions: DefaultSuggestions(query),
		Error:       reason,
		Degraded:    true,
		RequestID:   requestID,
	}
}
