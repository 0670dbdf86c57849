// Package sql vets SQL before it reaches the database: single-statement
// normalization, a read-only keyword guard, and injection detection.
package sql

import (
	"errors"
	"strings"
)

// ErrMultipleStatements indicates the query contains more than one statement.
var ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

// ValidationResult carries the normalized SQL or the rejection error.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize reduces a query to a single bare statement. Model
// output routinely ends in a semicolon, which breaks the limit-wrapping
// subselect the executor builds, so the trailing terminator is stripped
// before anything else. Any semicolon left after that (outside string
// literals and quoted identifiers) means stacked statements and the query
// is rejected rather than repaired.
func ValidateAndNormalize(sqlQuery string) ValidationResult {
	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return ValidationResult{NormalizedSQL: sqlQuery}
	}

	normalized := stripTrailingSemicolon(sqlQuery)
	if hasSemicolonOutsideStrings(normalized) {
		return ValidationResult{Error: ErrMultipleStatements}
	}
	return ValidationResult{NormalizedSQL: normalized}
}

// hasSemicolonOutsideStrings scans with a small quote-state machine so that
// literals like 'shipped;returned' or identifiers like "status;log" do not
// count as statement separators. Both SQL doubled quotes ('') and backslash
// escapes are tolerated inside literals.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		bare = iota
		inSingleQuote
		inDoubleQuote
	)

	state := bare
	var prev rune

	for _, ch := range sqlQuery {
		switch state {
		case bare:
			switch ch {
			case ';':
				return true
			case '\'':
				state = inSingleQuote
			case '"':
				state = inDoubleQuote
			}
		case inSingleQuote:
			// A doubled quote ('') exits here and re-enters on the next
			// rune, which keeps the scan inside the literal.
			if ch == '\'' && prev != '\\' {
				state = bare
			}
		case inDoubleQuote:
			if ch == '"' && prev != '\\' {
				state = bare
			}
		}
		prev = ch
	}
	return false
}

// stripTrailingSemicolon removes at most one terminator plus surrounding
// trailing whitespace. A doubled terminator leaves one behind on purpose:
// that case falls through to the multi-statement check.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimRight(strings.TrimSuffix(sqlQuery, ";"), " \t\n\r")
	}
	return sqlQuery
}
