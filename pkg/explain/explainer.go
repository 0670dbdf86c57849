// Package explain turns query results into short natural language summaries.
package explain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/llm"
	"github.com/datalens-ai/datalens-engine/pkg/prompts"
)

// aggregatePrefixes and aggregateNames identify single-row aggregate results
// that get a templated explanation without an external call.
var aggregatePrefixes = []string{"sum_", "avg_", "count_", "max_", "min_"}

var aggregateNames = map[string]bool{
	"total":         true,
	"average":       true,
	"count":         true,
	"minimum":       true,
	"maximum":       true,
	"monthly_sales": true,
}

// Config holds explainer tuning.
type Config struct {
	// Enabled gates the external call. Disabled explainers always use the
	// deterministic template.
	Enabled bool
	// SampleSize bounds how many rows are shown to the model.
	SampleSize int
	// CallTimeout applies to the external call.
	CallTimeout time.Duration
}

// Explainer produces a human readable summary of a query result.
type Explainer struct {
	completer llm.Completer
	cfg       Config
	logger    *zap.Logger
}

// New creates an explainer. completer may be nil, in which case only
// templated explanations are produced.
func New(completer llm.Completer, cfg Config, logger *zap.Logger) *Explainer {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 5
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	return &Explainer{
		completer: completer,
		cfg:       cfg,
		logger:    logger.Named("explain"),
	}
}

// Explain summarizes the result of a query. Empty results and disabled
// explainers get a deterministic template; external call failures fall back
// to the same template instead of surfacing an error.
func (e *Explainer) Explain(ctx context.Context, query, sqlQuery string, columns []string, rows []map[string]any) string {
	if !e.cfg.Enabled || e.completer == nil || len(rows) == 0 {
		return defaultExplanation(columns, rows)
	}

	sample := rows
	if len(sample) > e.cfg.SampleSize {
		sample = sample[:e.cfg.SampleSize]
	}
	prompt := prompts.BuildExplanationPrompt(query, sqlQuery, sample, len(rows))

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	explanation, err := e.completer.Complete(callCtx, prompts.ExplanationSystemPrompt, prompt)
	if err != nil {
		e.logger.Warn("explanation generation failed",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)))
		return defaultExplanation(columns, rows)
	}
	explanation = strings.TrimSpace(explanation)
	if explanation == "" {
		e.logger.Warn("explanation generation returned empty response")
		return defaultExplanation(columns, rows)
	}

	e.logger.Debug("explanation generated",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("length", len(explanation)))
	return explanation
}

// defaultExplanation builds the deterministic fallback summary.
func defaultExplanation(columns []string, rows []map[string]any) string {
	if len(rows) == 0 {
		return "The query returned no results. There may be no matching data, or the query conditions are too strict."
	}

	if len(rows) == 1 && isAggregateRow(rows[0]) {
		parts := make([]string, 0, len(rows[0]))
		for _, k := range rowKeys(columns, rows[0]) {
			parts = append(parts, fmt.Sprintf("%s: %v", k, rows[0][k]))
		}
		return "The query produced the following aggregate values: " + strings.Join(parts, ", ")
	}

	fields := strings.Join(rowKeys(columns, rows[0]), ", ")
	return fmt.Sprintf("The query returned %d rows with the following fields: %s.", len(rows), fields)
}

func isAggregateRow(row map[string]any) bool {
	for k := range row {
		lower := strings.ToLower(k)
		if aggregateNames[lower] {
			return true
		}
		for _, prefix := range aggregatePrefixes {
			if strings.HasPrefix(lower, prefix) {
				return true
			}
		}
	}
	return false
}

// rowKeys returns the row's keys in column order, or sorted when no column
// order is known.
func rowKeys(columns []string, row map[string]any) []string {
	if len(columns) > 0 {
		return columns
	}
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
