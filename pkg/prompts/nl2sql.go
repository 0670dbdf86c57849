// Package prompts builds the prompt text sent to the completion gateway.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Section markers the generation prompt instructs the model to emit.
// The extractor searches for these.
const (
	PrimarySQLMarker  = "-- Primary SQL"
	FallbackSQLMarker = "-- Fallback SQL"
	SuggestionsMarker = "-- Follow-up suggestions"
)

// GenerationSystemPrompt is the system role for SQL generation.
const GenerationSystemPrompt = "You are an e-commerce data analyst who translates natural language questions into SQL queries and proposes follow-up questions."

// BuildGenerationPrompt creates the SQL generation prompt from the schema
// description and the user's question.
func BuildGenerationPrompt(schemaText, query string) string {
	var prompt strings.Builder

	prompt.WriteString("## Task\n")
	prompt.WriteString("Your task has two parts:\n")
	prompt.WriteString("1. Generate two SQL queries for the question below:\n")
	prompt.WriteString("   - Primary SQL: a complete, optimized query that answers the question precisely\n")
	prompt.WriteString("   - Fallback SQL: a simplified query to use when the primary fails due to complexity or unsupported functions\n")
	prompt.WriteString("2. Propose 3 related follow-up questions that help the user explore further\n\n")

	prompt.WriteString("## Database Schema\n")
	prompt.WriteString(schemaText)
	prompt.WriteString("\n")

	prompt.WriteString("## SQL Requirements\n")
	prompt.WriteString("- The primary SQL should answer the question as completely as possible\n")
	prompt.WriteString("- The fallback SQL should be simpler but still informative\n")
	prompt.WriteString("- Use clear column names, explicit joins, and meaningful aliases\n")
	prompt.WriteString("- Limit results to 100 rows unless more are explicitly requested\n")
	prompt.WriteString("- Use standard SQL functions (COUNT, SUM, AVG, MAX, MIN)\n\n")

	prompt.WriteString("## Follow-up Requirements\n")
	prompt.WriteString("- Each suggestion must be a natural language question ending with a question mark\n")
	prompt.WriteString("- Suggestions should build on the current result and lead to deeper insight\n\n")

	prompt.WriteString("## Question\n")
	prompt.WriteString(query)
	prompt.WriteString("\n\n")

	prompt.WriteString("## Output Format\n")
	prompt.WriteString("Respond in exactly this format:\n\n")
	prompt.WriteString("```sql\n")
	prompt.WriteString(PrimarySQLMarker + "\n")
	prompt.WriteString("SELECT ...\n\n")
	prompt.WriteString(FallbackSQLMarker + "\n")
	prompt.WriteString("SELECT ...\n\n")
	prompt.WriteString(SuggestionsMarker + "\n")
	prompt.WriteString("1. [first suggestion]\n")
	prompt.WriteString("2. [second suggestion]\n")
	prompt.WriteString("3. [third suggestion]\n")
	prompt.WriteString("```\n")

	return prompt.String()
}

// ExplanationSystemPrompt is the system role for result explanation.
const ExplanationSystemPrompt = "You are an e-commerce data analyst who explains SQL query results and surfaces business insight for non-technical readers."

// BuildExplanationPrompt creates the result explanation prompt. sampleRows
// should already be capped by the caller.
func BuildExplanationPrompt(query, sqlQuery string, sampleRows []map[string]any, totalRows int) string {
	var prompt strings.Builder

	prompt.WriteString("## Context\n")
	prompt.WriteString(fmt.Sprintf("Question: %s\n", query))
	prompt.WriteString(fmt.Sprintf("SQL: %s\n\n", sqlQuery))

	prompt.WriteString("## Results\n")
	prompt.WriteString(fmt.Sprintf("Total rows: %d\n", totalRows))
	prompt.WriteString("Sample rows:\n")
	prompt.WriteString(marshalRows(sampleRows))
	prompt.WriteString("\n\n")

	prompt.WriteString("## Instructions\n")
	prompt.WriteString("Summarize the key findings in one or two short paragraphs, then list the most important insights with their likely business meaning. ")
	prompt.WriteString("Stay concrete, avoid technical jargon, and focus on what matters for a business decision rather than restating the data.\n")

	return prompt.String()
}

// VisualizationSystemPrompt is the system role for chart inference.
const VisualizationSystemPrompt = "You are a data visualization expert who recommends the best chart for a query result."

// BuildVisualizationPrompt creates the chart recommendation prompt.
func BuildVisualizationPrompt(query, sqlQuery string, columns []string, sampleRows []map[string]any) string {
	var prompt strings.Builder

	prompt.WriteString("## Query\n")
	prompt.WriteString(fmt.Sprintf("Question: %s\n", query))
	prompt.WriteString(fmt.Sprintf("SQL: %s\n\n", sqlQuery))

	prompt.WriteString("## Result Structure\n")
	prompt.WriteString("Columns: ")
	prompt.WriteString(strings.Join(columns, ", "))
	prompt.WriteString("\nSample rows:\n")
	prompt.WriteString(marshalRows(sampleRows))
	prompt.WriteString("\n\n")

	prompt.WriteString("## Chart Types\n")
	prompt.WriteString("- line: time series, trend analysis\n")
	prompt.WriteString("- bar: categorical comparison, rankings\n")
	prompt.WriteString("- horizontal-bar: comparisons with long labels\n")
	prompt.WriteString("- pie: part-to-whole with at most 7 categories\n")
	prompt.WriteString("- scatter: correlation and distribution\n")
	prompt.WriteString("- area: stacked or cumulative values\n")
	prompt.WriteString("- heatmap: matrix data, density\n")
	prompt.WriteString("- table: precise values, many dimensions\n")
	prompt.WriteString("- card: a single headline number\n\n")

	prompt.WriteString("## Response Format\n")
	prompt.WriteString("Return only a JSON object with fields: chart_type, title, description, x_axis, y_axis, category, series, aggregation, sort_by, sort_order, limit. ")
	prompt.WriteString("Omit fields that do not apply. Do not include any other text.\n")

	return prompt.String()
}

// marshalRows renders sample rows as indented JSON for prompt inclusion.
func marshalRows(rows []map[string]any) string {
	if len(rows) == 0 {
		return "(no rows)"
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", rows)
	}
	return string(data)
}
