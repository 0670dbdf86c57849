package viz

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/jsonutil"
	"github.com/datalens-ai/datalens-engine/pkg/llm"
)

// Chart types understood by the frontend.
const (
	ChartLine          = "line"
	ChartBar           = "bar"
	ChartHorizontalBar = "horizontal-bar"
	ChartPie           = "pie"
	ChartScatter       = "scatter"
	ChartArea          = "area"
	ChartHeatmap       = "heatmap"
	ChartTable         = "table"
	ChartCard          = "card"
)

var supportedChartTypes = map[string]bool{
	ChartLine:          true,
	ChartBar:           true,
	ChartHorizontalBar: true,
	ChartPie:           true,
	ChartScatter:       true,
	ChartArea:          true,
	ChartHeatmap:       true,
	ChartTable:         true,
	ChartCard:          true,
}

// horizontalBarLimit caps how many sorted categories a horizontal bar shows.
const horizontalBarLimit = 15

// Axis describes one chart axis.
type Axis struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
	Data []any  `json:"data,omitempty"`
}

// Series is one data series of a chart.
type Series struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
	Data []any  `json:"data"`
	Area bool   `json:"area,omitempty"`
}

// TableColumn is one column definition of a table rendering.
type TableColumn struct {
	Title     string `json:"title"`
	DataIndex string `json:"data_index"`
}

// Metric is one value of a card rendering.
type Metric struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Spec is the chart configuration handed to the client. Fields are populated
// per chart type; unused ones are omitted.
type Spec struct {
	ChartType   string           `json:"chart_type"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	XAxis       *Axis            `json:"x_axis,omitempty"`
	YAxis       *Axis            `json:"y_axis,omitempty"`
	Series      []Series         `json:"series,omitempty"`
	Columns     []TableColumn    `json:"columns,omitempty"`
	Data        []map[string]any `json:"data,omitempty"`
	Metrics     []Metric         `json:"metrics,omitempty"`
	ValueField  string           `json:"value_field,omitempty"`
	Aggregation string           `json:"aggregation,omitempty"`
	SortBy      string           `json:"sort_by,omitempty"`
	SortOrder   string           `json:"sort_order,omitempty"`
	Limit       int              `json:"limit,omitempty"`
	Empty       bool             `json:"empty,omitempty"`
}

// externalSpec is the shape the completion gateway is asked to return.
// Tolerant raw fields absorb the type drift LLMs produce.
type externalSpec struct {
	ChartType   string          `json:"chart_type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	XAxis       json.RawMessage `json:"x_axis"`
	YAxis       json.RawMessage `json:"y_axis"`
	SortBy      json.RawMessage `json:"sort_by"`
	SortOrder   string          `json:"sort_order"`
	Limit       json.RawMessage `json:"limit"`
}

// Inferencer derives chart configurations from query results.
type Inferencer struct {
	logger *zap.Logger
}

// NewInferencer creates an inferencer.
func NewInferencer(logger *zap.Logger) *Inferencer {
	return &Inferencer{logger: logger.Named("viz")}
}

// Infer picks a chart type from the data shape and builds its configuration.
func (v *Inferencer) Infer(columns []string, rows []map[string]any) *Spec {
	features := AnalyzeFeatures(columns, rows)
	chartType := RecommendChartType(features)
	return v.build(chartType, columns, rows, features)
}

// InferWithHint applies a chart spec produced by the completion gateway when
// it carries a recognized chart type; otherwise it falls back to heuristic
// inference. rawResponse is the unprocessed gateway output.
func (v *Inferencer) InferWithHint(columns []string, rows []map[string]any, rawResponse string) *Spec {
	features := AnalyzeFeatures(columns, rows)

	ext, err := parseExternalSpec(rawResponse)
	if err != nil || !supportedChartTypes[ext.ChartType] {
		if err != nil {
			v.logger.Debug("external chart spec unusable, inferring", zap.Error(err))
		}
		chartType := RecommendChartType(features)
		return v.build(chartType, columns, rows, features)
	}

	spec := v.build(ext.ChartType, columns, rows, features)
	if ext.Title != "" {
		spec.Title = ext.Title
	}
	if ext.Description != "" {
		spec.Description = ext.Description
	}
	if s := jsonutil.FlexibleStringValue(ext.SortBy); s != "" {
		spec.SortBy = s
	}
	if ext.SortOrder != "" {
		spec.SortOrder = ext.SortOrder
	}
	if n := jsonutil.FlexibleIntValue(ext.Limit); n > 0 {
		spec.Limit = n
	}
	return spec
}

func parseExternalSpec(rawResponse string) (*externalSpec, error) {
	if strings.TrimSpace(rawResponse) == "" {
		return nil, fmt.Errorf("empty chart spec response")
	}
	jsonText, err := llm.ExtractJSON(rawResponse)
	if err != nil {
		return nil, fmt.Errorf("extracting chart spec: %w", err)
	}
	var ext externalSpec
	if err := json.Unmarshal([]byte(jsonText), &ext); err != nil {
		return nil, fmt.Errorf("parsing chart spec: %w", err)
	}
	return &ext, nil
}

// RecommendChartType picks a chart type from data features. Rules are
// ordered; the first match wins.
func RecommendChartType(f *Features) string {
	if f.Empty {
		return ChartTable
	}
	if len(f.Datetime) > 0 && len(f.Numerical) > 0 {
		return ChartLine
	}
	if len(f.Categorical) == 1 && len(f.Numerical) == 1 {
		if f.RowCount <= 10 {
			return ChartPie
		}
		return ChartBar
	}
	if len(f.Categorical) > 0 && len(f.Numerical) == 1 {
		return ChartBar
	}
	if f.RowCount == 1 && f.ColumnCount <= 3 && len(f.Numerical) == f.ColumnCount {
		return ChartCard
	}
	if len(f.Numerical) == 2 && len(f.Categorical) <= 1 {
		return ChartScatter
	}
	if len(f.Numerical) > 1 {
		return ChartLine
	}
	return ChartTable
}

func (v *Inferencer) build(chartType string, columns []string, rows []map[string]any, f *Features) *Spec {
	if f.Empty {
		return &Spec{ChartType: ChartTable, Empty: true}
	}

	switch chartType {
	case ChartLine:
		return buildLine(rows, f, false)
	case ChartArea:
		return buildLine(rows, f, true)
	case ChartBar:
		return buildBar(columns, rows, f)
	case ChartHorizontalBar:
		return buildHorizontalBar(columns, rows, f)
	case ChartPie:
		return buildPie(columns, rows, f)
	case ChartScatter:
		return buildScatter(columns, rows, f)
	case ChartHeatmap:
		return buildHeatmap(columns, rows, f)
	case ChartCard:
		return buildCard(columns, rows)
	default:
		return buildTable(columns, rows)
	}
}

func buildLine(rows []map[string]any, f *Features, area bool) *Spec {
	var xCol, xType string
	switch {
	case len(f.Datetime) > 0:
		xCol, xType = f.Datetime[0], "time"
	case len(f.Categorical) > 0:
		xCol, xType = f.Categorical[0], "category"
	case len(f.Numerical) > 0:
		xCol, xType = f.Numerical[0], "value"
	}

	seriesType := ChartLine
	var series []Series
	for _, col := range f.Numerical {
		if col == xCol {
			continue
		}
		series = append(series, Series{
			Name: col,
			Type: seriesType,
			Data: columnValues(rows, col),
			Area: area,
		})
	}

	chartType := ChartLine
	if area {
		chartType = ChartArea
	}
	return &Spec{
		ChartType: chartType,
		XAxis:     &Axis{Name: xCol, Type: xType, Data: columnValues(rows, xCol)},
		YAxis:     &Axis{Type: "value"},
		Series:    series,
	}
}

func buildBar(columns []string, rows []map[string]any, f *Features) *Spec {
	xCol := firstColumn(columns, rows)
	if len(f.Categorical) > 0 {
		xCol = f.Categorical[0]
	}

	var series []Series
	for _, col := range f.Numerical {
		if col == xCol {
			continue
		}
		series = append(series, Series{
			Name: col,
			Type: ChartBar,
			Data: columnValues(rows, col),
		})
	}

	xData := make([]any, len(rows))
	for i, row := range rows {
		xData[i] = stringify(row[xCol])
	}
	return &Spec{
		ChartType: ChartBar,
		XAxis:     &Axis{Name: xCol, Type: "category", Data: xData},
		YAxis:     &Axis{Type: "value"},
		Series:    series,
	}
}

// buildHorizontalBar sorts rows by the numeric column descending and keeps
// the top entries. Better than a vertical bar when category labels are long.
func buildHorizontalBar(columns []string, rows []map[string]any, f *Features) *Spec {
	if len(f.Categorical) == 0 || len(f.Numerical) == 0 {
		return buildTable(columns, rows)
	}
	catCol := f.Categorical[0]
	numCol := f.Numerical[0]

	sorted := make([]map[string]any, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, _ := toFloat(sorted[i][numCol])
		b, _ := toFloat(sorted[j][numCol])
		return a > b
	})
	if len(sorted) > horizontalBarLimit {
		sorted = sorted[:horizontalBarLimit]
	}

	return &Spec{
		ChartType: ChartHorizontalBar,
		XAxis:     &Axis{Name: numCol, Type: "value"},
		YAxis:     &Axis{Name: catCol, Type: "category"},
		Data:      sorted,
		SortBy:    numCol,
		SortOrder: "desc",
		Limit:     horizontalBarLimit,
	}
}

func buildPie(columns []string, rows []map[string]any, f *Features) *Spec {
	var nameCol, valueCol string
	switch {
	case len(f.Categorical) > 0 && len(f.Numerical) > 0:
		nameCol, valueCol = f.Categorical[0], f.Numerical[0]
	case len(f.Categorical) > 0:
		nameCol = f.Categorical[0]
	default:
		cols := orderedColumns(columns, rows)
		nameCol = cols[0]
		if len(cols) > 1 {
			valueCol = cols[1]
		}
	}

	data := make([]any, 0, len(rows))
	for _, row := range rows {
		value := any(1)
		if valueCol != "" {
			value = row[valueCol]
		}
		data = append(data, map[string]any{
			"name":  stringify(row[nameCol]),
			"value": value,
		})
	}

	name := valueCol
	if name == "" {
		name = "count"
	}
	return &Spec{
		ChartType: ChartPie,
		Series:    []Series{{Name: name, Type: ChartPie, Data: data}},
	}
}

func buildScatter(columns []string, rows []map[string]any, f *Features) *Spec {
	cols := orderedColumns(columns, rows)
	xCol, yCol := cols[0], cols[0]
	if len(f.Numerical) >= 2 {
		xCol, yCol = f.Numerical[0], f.Numerical[1]
	} else if len(cols) > 1 {
		yCol = cols[1]
	}

	var series []Series
	if len(f.Categorical) > 0 {
		groupCol := f.Categorical[0]
		groups := map[string][]any{}
		var order []string
		for _, row := range rows {
			key := stringify(row[groupCol])
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], []any{row[xCol], row[yCol]})
		}
		for _, key := range order {
			series = append(series, Series{Name: key, Type: ChartScatter, Data: groups[key]})
		}
	} else {
		points := make([]any, len(rows))
		for i, row := range rows {
			points[i] = []any{row[xCol], row[yCol]}
		}
		series = []Series{{Type: ChartScatter, Data: points}}
	}

	return &Spec{
		ChartType: ChartScatter,
		XAxis:     &Axis{Name: xCol, Type: "value"},
		YAxis:     &Axis{Name: yCol, Type: "value"},
		Series:    series,
	}
}

// buildHeatmap pivots two categorical columns against a summed numeric value.
func buildHeatmap(columns []string, rows []map[string]any, f *Features) *Spec {
	if len(f.Categorical) < 2 || len(f.Numerical) == 0 {
		return buildTable(columns, rows)
	}
	xCol := f.Categorical[0]
	yCol := f.Categorical[1]
	valCol := f.Numerical[0]

	type cell struct{ x, y string }
	sums := map[cell]float64{}
	var order []cell
	for _, row := range rows {
		c := cell{x: stringify(row[xCol]), y: stringify(row[yCol])}
		if _, ok := sums[c]; !ok {
			order = append(order, c)
		}
		val, _ := toFloat(row[valCol])
		sums[c] += val
	}

	data := make([]map[string]any, 0, len(order))
	for _, c := range order {
		data = append(data, map[string]any{
			xCol:   c.x,
			yCol:   c.y,
			valCol: sums[c],
		})
	}

	return &Spec{
		ChartType:   ChartHeatmap,
		XAxis:       &Axis{Name: xCol, Type: "category"},
		YAxis:       &Axis{Name: yCol, Type: "category"},
		ValueField:  valCol,
		Aggregation: "sum",
		Data:        data,
	}
}

func buildTable(columns []string, rows []map[string]any) *Spec {
	cols := orderedColumns(columns, rows)
	tableCols := make([]TableColumn, len(cols))
	for i, col := range cols {
		tableCols[i] = TableColumn{Title: col, DataIndex: col}
	}
	return &Spec{
		ChartType: ChartTable,
		Columns:   tableCols,
		Data:      rows,
	}
}

// buildCard renders a single aggregate row as labeled metrics.
func buildCard(columns []string, rows []map[string]any) *Spec {
	cols := orderedColumns(columns, rows)
	metrics := make([]Metric, 0, len(cols))
	for _, col := range cols {
		metrics = append(metrics, Metric{Label: col, Value: rows[0][col]})
	}
	return &Spec{ChartType: ChartCard, Metrics: metrics}
}

func columnValues(rows []map[string]any, col string) []any {
	if col == "" {
		return nil
	}
	out := make([]any, len(rows))
	for i, row := range rows {
		out[i] = row[col]
	}
	return out
}

func orderedColumns(columns []string, rows []map[string]any) []string {
	if len(columns) > 0 {
		return columns
	}
	var cols []string
	for name := range rows[0] {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}

func firstColumn(columns []string, rows []map[string]any) string {
	return orderedColumns(columns, rows)[0]
}
