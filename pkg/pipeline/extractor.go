// Package pipeline turns natural language questions into executed SQL.
package pipeline

import (
	"regexp"
	"strings"
)

// CandidateSource tags where an extracted SQL candidate came from.
type CandidateSource string

const (
	SourcePrimary  CandidateSource = "primary"
	SourceFallback CandidateSource = "fallback"
	SourceGeneric  CandidateSource = "generic"
)

// Candidate is one extracted SQL string with its provenance.
type Candidate struct {
	SQL    string
	Source CandidateSource
}

// Extraction is the parsed outcome of one model response.
type Extraction struct {
	Primary     Candidate
	Fallback    Candidate
	Suggestions []string
}

// HasSQL reports whether extraction produced at least one candidate.
func (e *Extraction) HasSQL() bool {
	return e.Primary.SQL != "" || e.Fallback.SQL != ""
}

// defaultSuggestions pads thin suggestion lists so the user always has
// somewhere to go next.
var defaultSuggestions = []string{
	"What were the top selling products in the last 30 days?",
	"Which customers contributed the most revenue over the past year?",
	"What is the average profit margin per product category?",
	"What do the products with the highest return rates have in common?",
	"How do sales trends change with the seasons?",
}

var (
	fencePattern = regexp.MustCompile("(?s)```(?:sql)?[ \t]*\n?(.*?)```")

	// Tolerant section markers: optional whitespace, optional trailing colon.
	primaryMarker     = regexp.MustCompile(`(?i)--[ \t]*Primary SQL[ \t]*[:：]?[ \t]*\n`)
	fallbackMarker    = regexp.MustCompile(`(?i)--[ \t]*Fallback SQL[ \t]*[:：]?[ \t]*\n`)
	suggestionsMarker = regexp.MustCompile(`(?i)--[ \t]*Follow-up suggestions[ \t]*[:：]?[ \t]*\n`)

	// Legacy label format: "Primary SQL:" followed by its own fence.
	legacyPrimary  = regexp.MustCompile("(?is)Primary SQL[:：]\\s*```(?:sql)?\\s*(.*?)\\s*```")
	legacyFallback = regexp.MustCompile("(?is)Fallback SQL[:：]\\s*```(?:sql)?\\s*(.*?)\\s*```")

	enumPrefix = regexp.MustCompile(`^\d+[.、)]?\s*`)

	// Enumerated questions anywhere in the text, used when no suggestions
	// section was found.
	looseQuestion = regexp.MustCompile(`\d+[.、)]\s*([^\n]*?[?？])`)
)

// Extractor parses raw model output into SQL candidates and follow-up
// suggestions using layered pattern recognition. Each layer only runs when
// the previous one left gaps.
type Extractor struct{}

// NewExtractor creates an extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses rawText. The original user query is needed to exclude
// default suggestions that would just repeat the question.
func (x *Extractor) Extract(rawText, query string) *Extraction {
	ext := &Extraction{}

	// Layer 1: section markers inside fenced code blocks.
	for _, m := range fencePattern.FindAllStringSubmatch(rawText, -1) {
		block := m[1]
		x.extractSections(block, ext)
		if ext.Primary.SQL != "" && ext.Fallback.SQL != "" && len(ext.Suggestions) > 0 {
			break
		}
	}

	// Layer 2: same markers over the whole response.
	if ext.Primary.SQL == "" || ext.Fallback.SQL == "" || len(ext.Suggestions) == 0 {
		x.extractSections(rawText, ext)
	}
	if len(ext.Suggestions) == 0 {
		for _, m := range looseQuestion.FindAllStringSubmatch(rawText, -1) {
			if s := strings.TrimSpace(m[1]); s != "" {
				ext.Suggestions = append(ext.Suggestions, s)
			}
		}
	}

	// Layer 3: legacy labels with their own fences.
	if ext.Primary.SQL == "" {
		if m := legacyPrimary.FindStringSubmatch(rawText); m != nil {
			ext.Primary = Candidate{SQL: strings.TrimSpace(m[1]), Source: SourcePrimary}
		}
	}
	if ext.Fallback.SQL == "" {
		if m := legacyFallback.FindStringSubmatch(rawText); m != nil {
			ext.Fallback = Candidate{SQL: strings.TrimSpace(m[1]), Source: SourceFallback}
		}
	}

	// Layer 4: no markers at all, take the first two fences as-is.
	if ext.Primary.SQL == "" && ext.Fallback.SQL == "" {
		fences := fencePattern.FindAllStringSubmatch(rawText, -1)
		if len(fences) > 0 {
			ext.Primary = Candidate{SQL: strings.TrimSpace(fences[0][1]), Source: SourceGeneric}
		}
		if len(fences) > 1 {
			ext.Fallback = Candidate{SQL: strings.TrimSpace(fences[1][1]), Source: SourceGeneric}
		}
	}

	ext.Suggestions = padSuggestions(ext.Suggestions, query)
	return ext
}

// extractSections fills any still-empty fields from marker-delimited
// sections of text.
func (x *Extractor) extractSections(text string, ext *Extraction) {
	pLoc := primaryMarker.FindStringIndex(text)
	fLoc := fallbackMarker.FindStringIndex(text)
	sLoc := suggestionsMarker.FindStringIndex(text)

	if ext.Primary.SQL == "" && pLoc != nil {
		end := len(text)
		if fLoc != nil && fLoc[0] > pLoc[1] {
			end = fLoc[0]
		} else if sLoc != nil && sLoc[0] > pLoc[1] {
			end = sLoc[0]
		}
		if sql := strings.TrimSpace(text[pLoc[1]:end]); sql != "" {
			ext.Primary = Candidate{SQL: sql, Source: SourcePrimary}
		}
	}

	if ext.Fallback.SQL == "" && fLoc != nil {
		end := len(text)
		if sLoc != nil && sLoc[0] > fLoc[1] {
			end = sLoc[0]
		}
		if sql := strings.TrimSpace(text[fLoc[1]:end]); sql != "" {
			ext.Fallback = Candidate{SQL: sql, Source: SourceFallback}
		}
	}

	if len(ext.Suggestions) == 0 && sLoc != nil {
		ext.Suggestions = parseSuggestionLines(text[sLoc[1]:])
	}
}

// parseSuggestionLines extracts question lines, stripping enumeration.
// Only lines ending in an ASCII or full-width question mark count.
func parseSuggestionLines(text string) []string {
	var suggestions []string
	for _, line := range strings.Split(text, "\n") {
		clean := enumPrefix.ReplaceAllString(strings.TrimSpace(line), "")
		if clean == "" {
			continue
		}
		if strings.HasSuffix(clean, "?") || strings.HasSuffix(clean, "？") {
			suggestions = append(suggestions, clean)
		}
	}
	return suggestions
}

// padSuggestions tops up thin lists from the defaults, skipping any default
// that equals the original query (case-insensitive), and caps at 5.
func padSuggestions(suggestions []string, query string) []string {
	if len(suggestions) < 3 {
		queryLower := strings.ToLower(strings.TrimSpace(query))
		for _, d := range defaultSuggestions {
			if len(suggestions) >= 3 {
				break
			}
			if strings.ToLower(d) == queryLower {
				continue
			}
			if containsFold(suggestions, d) {
				continue
			}
			suggestions = append(suggestions, d)
		}
	}
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	return suggestions
}

// DefaultSuggestions returns the fixed fallback list, excluding entries
// equal to the query, capped at 3. Used by the degraded pipeline path.
func DefaultSuggestions(query string) []string {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	var out []string
	for _, d := range defaultSuggestions {
		if strings.ToLower(d) == queryLower {
			continue
		}
		out = append(out, d)
		if len(out) == 3 {
			break
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
