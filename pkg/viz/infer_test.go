package viz

import (
	"testing"

	"go.uber.org/zap"
)

func testInferencer() *Inferencer {
	return NewInferencer(zap.NewNop())
}

func TestInferEmptyRows(t *testing.T) {
	spec := testInferencer().Infer(nil, nil)
	if spec.ChartType != ChartTable {
		t.Errorf("chart type = %q, want table", spec.ChartType)
	}
	if !spec.Empty {
		t.Error("expected Empty flag")
	}
}

func TestInferTimeSeriesIsLine(t *testing.T) {
	rows := []map[string]any{
		{"day": "2025-01-01", "sales": 100.0},
		{"day": "2025-01-02", "sales": 150.0},
		{"day": "2025-01-03", "sales": 120.0},
	}
	spec := testInferencer().Infer([]string{"day", "sales"}, rows)
	if spec.ChartType != ChartLine {
		t.Fatalf("chart type = %q, want line", spec.ChartType)
	}
	if spec.XAxis == nil || spec.XAxis.Name != "day" || spec.XAxis.Type != "time" {
		t.Errorf("x axis = %+v", spec.XAxis)
	}
	if len(spec.Series) != 1 || spec.Series[0].Name != "sales" {
		t.Errorf("series = %+v", spec.Series)
	}
	if len(spec.Series[0].Data) != 3 {
		t.Errorf("series data = %v", spec.Series[0].Data)
	}
}

func TestInferSmallCategoricalIsPie(t *testing.T) {
	rows := []map[string]any{
		{"category": "Electronics", "total": 5000.0},
		{"category": "Books", "total": 1200.0},
		{"category": "Clothing", "total": 3400.0},
	}
	spec := testInferencer().Infer([]string{"category", "total"}, rows)
	if spec.ChartType != ChartPie {
		t.Fatalf("chart type = %q, want pie", spec.ChartType)
	}
	if len(spec.Series) != 1 || len(spec.Series[0].Data) != 3 {
		t.Errorf("series = %+v", spec.Series)
	}
}

func TestInferLargeCategoricalIsBar(t *testing.T) {
	rows := make([]map[string]any, 12)
	names := []string{"a", "b", "c", "d", "e", "f"}
	for i := range rows {
		rows[i] = map[string]any{
			"category": names[i%len(names)],
			"total":    float64(i * 10),
		}
	}
	spec := testInferencer().Infer([]string{"category", "total"}, rows)
	if spec.ChartType != ChartBar {
		t.Fatalf("chart type = %q, want bar", spec.ChartType)
	}
	if spec.XAxis == nil || spec.XAxis.Name != "category" {
		t.Errorf("x axis = %+v", spec.XAxis)
	}
}

func TestInferTwoNumericIsScatter(t *testing.T) {
	rows := []map[string]any{
		{"price": 10.0, "rating": 4.5},
		{"price": 25.0, "rating": 3.8},
		{"price": 8.0, "rating": 4.9},
	}
	spec := testInferencer().Infer([]string{"price", "rating"}, rows)
	if spec.ChartType != ChartScatter {
		t.Fatalf("chart type = %q, want scatter", spec.ChartType)
	}
	if spec.XAxis.Name != "price" || spec.YAxis.Name != "rating" {
		t.Errorf("axes = %+v / %+v", spec.XAxis, spec.YAxis)
	}
}

func TestInferSingleAggregateRowIsCard(t *testing.T) {
	rows := []map[string]any{
		{"total_sales": 12345.67},
	}
	spec := testInferencer().Infer([]string{"total_sales"}, rows)
	if spec.ChartType != ChartCard {
		t.Fatalf("chart type = %q, want card", spec.ChartType)
	}
	if len(spec.Metrics) != 1 || spec.Metrics[0].Label != "total_sales" {
		t.Errorf("metrics = %+v", spec.Metrics)
	}
}

func TestInferFallbackTable(t *testing.T) {
	rows := make([]map[string]any, 60)
	for i := range rows {
		rows[i] = map[string]any{"description": uniqueText(i)}
	}
	spec := testInferencer().Infer([]string{"description"}, rows)
	if spec.ChartType != ChartTable {
		t.Fatalf("chart type = %q, want table", spec.ChartType)
	}
	if len(spec.Columns) != 1 || spec.Columns[0].Title != "description" {
		t.Errorf("columns = %+v", spec.Columns)
	}
}

func uniqueText(i int) string {
	return "free text value with suffix " + string(rune('a'+i%26)) + string(rune('a'+i/26))
}

func TestInferWithHintRecognizedType(t *testing.T) {
	rows := []map[string]any{
		{"category": "Electronics", "total": 5000.0},
		{"category": "Books", "total": 1200.0},
	}
	raw := "```json\n" +
		`{"chart_type": "horizontal-bar", "title": "Revenue by category", "sort_by": "total", "sort_order": "desc", "limit": "10"}` +
		"\n```"

	spec := testInferencer().InferWithHint([]string{"category", "total"}, rows, raw)
	if spec.ChartType != ChartHorizontalBar {
		t.Fatalf("chart type = %q, want horizontal-bar", spec.ChartType)
	}
	if spec.Title != "Revenue by category" {
		t.Errorf("title = %q", spec.Title)
	}
	if spec.Limit != 10 {
		t.Errorf("limit = %d, want 10 (coerced from string)", spec.Limit)
	}
	if spec.SortBy != "total" || spec.SortOrder != "desc" {
		t.Errorf("sort = %q %q", spec.SortBy, spec.SortOrder)
	}
}

func TestInferWithHintUnparseableFallsBack(t *testing.T) {
	rows := []map[string]any{
		{"day": "2025-01-01", "sales": 100.0},
		{"day": "2025-01-02", "sales": 150.0},
	}
	spec := testInferencer().InferWithHint([]string{"day", "sales"}, rows, "sorry, no chart today")
	if spec.ChartType != ChartLine {
		t.Errorf("chart type = %q, want heuristic line", spec.ChartType)
	}
}

func TestInferWithHintUnknownTypeFallsBack(t *testing.T) {
	rows := []map[string]any{
		{"category": "a", "total": 1.0},
	}
	raw := `{"chart_type": "hologram"}`
	spec := testInferencer().InferWithHint([]string{"category", "total"}, rows, raw)
	if spec.ChartType == "hologram" {
		t.Error("unknown chart type accepted")
	}
}

func TestBuildHorizontalBarSortsAndLimits(t *testing.T) {
	rows := make([]map[string]any, 20)
	for i := range rows {
		rows[i] = map[string]any{
			"product": "p" + string(rune('a'+i%8)),
			"sold":    float64(i),
		}
	}
	f := AnalyzeFeatures([]string{"product", "sold"}, rows)
	spec := buildHorizontalBar([]string{"product", "sold"}, rows, f)
	if spec.ChartType != ChartHorizontalBar {
		t.Fatalf("chart type = %q", spec.ChartType)
	}
	if len(spec.Data) != horizontalBarLimit {
		t.Errorf("data len = %d, want %d", len(spec.Data), horizontalBarLimit)
	}
	first, _ := toFloat(spec.Data[0]["sold"])
	last, _ := toFloat(spec.Data[len(spec.Data)-1]["sold"])
	if first < last {
		t.Errorf("not sorted descending: first=%v last=%v", first, last)
	}
}

func TestBuildHeatmapAggregatesSum(t *testing.T) {
	rows := []map[string]any{
		{"region": "north", "category": "Books", "sales": 10.0},
		{"region": "north", "category": "Books", "sales": 5.0},
		{"region": "south", "category": "Books", "sales": 7.0},
	}
	f := AnalyzeFeatures([]string{"region", "category", "sales"}, rows)
	spec := buildHeatmap([]string{"region", "category", "sales"}, rows, f)
	if spec.ChartType != ChartHeatmap {
		t.Fatalf("chart type = %q", spec.ChartType)
	}
	if spec.Aggregation != "sum" || spec.ValueField != "sales" {
		t.Errorf("agg=%q field=%q", spec.Aggregation, spec.ValueField)
	}
	if len(spec.Data) != 2 {
		t.Fatalf("data = %+v", spec.Data)
	}
	if got, _ := toFloat(spec.Data[0]["sales"]); got != 15.0 {
		t.Errorf("north/Books sum = %v, want 15", got)
	}
}
