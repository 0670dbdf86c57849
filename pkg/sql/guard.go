package sql

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// DefaultDenyKeywords are the statement keywords rejected by the guard
// unless they appear in a safe context.
var DefaultDenyKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE", "TRUNCATE",
}

// readClauses are keywords that mark read-only statement context. A denied
// keyword preceded by one of these (with no semicolon between) is treated as
// an identifier or subquery reference, not a statement.
var readClauses = []string{
	"SELECT", "FROM", "WHERE", "GROUP BY", "HAVING",
	"ORDER BY", "LIMIT", "JOIN", "UNION", "WITH",
}

// GuardResult reports the outcome of a safety check.
type GuardResult struct {
	Valid  bool
	Reason string // Populated when Valid is false, names the offending keyword
}

// Guard classifies SQL strings as safe-read-only or rejects them.
//
// This is a heuristic classifier, not a parser. A denied keyword occurrence
// is tolerated when it appears after a read clause, inside a quoted literal,
// or as part of a longer identifier (e.g. created_at). The heuristic is
// deliberately permissive toward legitimate read queries whose column names
// embed a denied word.
type Guard struct {
	denyKeywords []string

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// NewGuard creates a guard with the given deny-list.
// A nil or empty list selects DefaultDenyKeywords.
func NewGuard(denyKeywords []string) *Guard {
	if len(denyKeywords) == 0 {
		denyKeywords = DefaultDenyKeywords
	}
	upper := make([]string, len(denyKeywords))
	for i, kw := range denyKeywords {
		upper[i] = strings.ToUpper(kw)
	}
	return &Guard{
		denyKeywords: upper,
		patterns:     make(map[string]*regexp.Regexp),
	}
}

// Validate scans the SQL for deny-listed keywords in statement position.
// Every whole-word occurrence of a denied keyword must be in a safe context,
// otherwise the result names the keyword and the query is rejected.
func (g *Guard) Validate(sqlQuery string) GuardResult {
	sqlUpper := strings.ToUpper(sqlQuery)

	for _, keyword := range g.denyKeywords {
		pattern := g.wordPattern(keyword)
		for _, loc := range pattern.FindAllStringIndex(sqlUpper, -1) {
			if !occurrenceIsSafe(sqlQuery, sqlUpper, loc[0]) {
				return GuardResult{
					Valid:  false,
					Reason: fmt.Sprintf("statement keyword %s is not allowed", keyword),
				}
			}
		}
	}

	return GuardResult{Valid: true}
}

// occurrenceIsSafe reports whether a denied keyword at pos is in a context
// that cannot start a write statement.
func occurrenceIsSafe(sqlQuery, sqlUpper string, pos int) bool {
	// A read clause earlier in the same statement means the keyword is part
	// of an expression, identifier, or subquery the clause introduced.
	for _, clause := range readClauses {
		clausePos := strings.LastIndex(sqlUpper[:pos], clause)
		if clausePos != -1 {
			if !strings.Contains(sqlUpper[clausePos:pos], ";") {
				return true
			}
		}
	}

	// Inside a quoted literal or quoted identifier.
	prefix := sqlQuery[:pos]
	quotes := strings.Count(prefix, `"`) + strings.Count(prefix, "'")
	if quotes%2 == 1 {
		return true
	}

	// Part of a longer identifier, e.g. the tail of "last_update".
	if pos > 0 {
		prev := sqlQuery[pos-1]
		if isIdentChar(prev) {
			return true
		}
	}

	return false
}

// EnforceLimit ensures the SQL carries a row limit. If a LIMIT keyword is
// already present anywhere in the query the SQL is returned unchanged, so
// the operation is idempotent. Otherwise `LIMIT <n>` is inserted before the
// trailing semicolon, or appended when there is none.
func (g *Guard) EnforceLimit(sqlQuery string, limit int) string {
	if strings.Contains(strings.ToUpper(sqlQuery), "LIMIT") {
		return sqlQuery
	}

	trimmed := strings.TrimRight(sqlQuery, " \t\n\r")
	if strings.HasSuffix(trimmed, ";") {
		body := strings.TrimRight(strings.TrimSuffix(trimmed, ";"), " \t\n\r")
		return fmt.Sprintf("%s LIMIT %d;", body, limit)
	}
	return fmt.Sprintf("%s LIMIT %d", trimmed, limit)
}

// wordPattern returns a cached whole-word regexp for an upper-cased keyword.
func (g *Guard) wordPattern(keyword string) *regexp.Regexp {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.patterns[keyword]; ok {
		return p
	}
	p := regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
	g.patterns[keyword] = p
	return p
}

func isIdentChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
