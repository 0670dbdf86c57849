package viz

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
)

// ColumnClass is the inferred role of a result column.
type ColumnClass string

const (
	ClassNumerical   ColumnClass = "numerical"
	ClassDatetime    ColumnClass = "datetime"
	ClassCategorical ColumnClass = "categorical"
	ClassText        ColumnClass = "text"
)

// featureSampleSize bounds how many values are inspected per column.
const featureSampleSize = 10

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`),
	regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`),
	regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`),
	regexp.MustCompile(`^\d{4}/\d{1,2}/\d{1,2}$`),
	regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2} \d{1,2}:\d{1,2}:\d{1,2}$`),
}

// Features summarizes the shape of a result set for chart selection.
type Features struct {
	Empty       bool
	RowCount    int
	ColumnCount int
	ColumnTypes map[string]ColumnClass
	Numerical   []string
	Datetime    []string
	Categorical []string
	Text        []string
}

// AnalyzeFeatures classifies each column of the result set. The columns slice
// fixes the column order; if nil, the keys of the first row are used in
// sorted order.
func AnalyzeFeatures(columns []string, rows []map[string]any) *Features {
	if len(rows) == 0 {
		return &Features{Empty: true, ColumnTypes: map[string]ColumnClass{}}
	}
	if len(columns) == 0 {
		for name := range rows[0] {
			columns = append(columns, name)
		}
		sort.Strings(columns)
	}

	f := &Features{
		RowCount:    len(rows),
		ColumnCount: len(columns),
		ColumnTypes: make(map[string]ColumnClass, len(columns)),
	}

	for _, col := range columns {
		class := classifyColumn(col, rows)
		f.ColumnTypes[col] = class
		switch class {
		case ClassNumerical:
			f.Numerical = append(f.Numerical, col)
		case ClassDatetime:
			f.Datetime = append(f.Datetime, col)
		case ClassCategorical:
			f.Categorical = append(f.Categorical, col)
		default:
			f.Text = append(f.Text, col)
		}
	}
	return f
}

func classifyColumn(col string, rows []map[string]any) ColumnClass {
	if isNumericColumn(col, rows) {
		return ClassNumerical
	}
	if isDatetimeColumn(col, rows) {
		return ClassDatetime
	}
	// Categorical when the distinct count stays under max(10, 20% of rows).
	// The threshold is real-valued so e.g. 51 rows allow 10 distinct values.
	threshold := math.Max(10, 0.2*float64(len(rows)))
	if float64(distinctCount(col, rows)) < threshold {
		return ClassCategorical
	}
	return ClassText
}

// isNumericColumn reports whether every sampled non-nil value is a number.
func isNumericColumn(col string, rows []map[string]any) bool {
	seen := 0
	for _, row := range rows {
		if seen >= featureSampleSize {
			break
		}
		v := row[col]
		if v == nil {
			continue
		}
		seen++
		if _, ok := toFloat(v); !ok {
			return false
		}
	}
	return seen > 0
}

// isDatetimeColumn reports whether at least 70% of sampled string values
// match a known date format.
func isDatetimeColumn(col string, rows []map[string]any) bool {
	var sample []string
	for _, row := range rows {
		if len(sample) >= featureSampleSize {
			break
		}
		if s, ok := row[col].(string); ok && s != "" {
			sample = append(sample, s)
		}
	}
	if len(sample) == 0 {
		return false
	}
	matches := 0
	for _, s := range sample {
		for _, p := range datePatterns {
			if p.MatchString(s) {
				matches++
				break
			}
		}
	}
	return float64(matches)/float64(len(sample)) >= 0.7
}

func distinctCount(col string, rows []map[string]any) int {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		seen[stringify(row[col])] = struct{}{}
	}
	return len(seen)
}

// toFloat converts the numeric representations the executor can produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
