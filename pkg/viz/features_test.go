package viz

import (
	"testing"
)

func TestAnalyzeFeaturesEmpty(t *testing.T) {
	f := AnalyzeFeatures(nil, nil)
	if !f.Empty {
		t.Error("expected empty features")
	}
}

func TestAnalyzeFeaturesClassification(t *testing.T) {
	rows := []map[string]any{
		{"day": "2025-01-01", "revenue": 120.5, "category": "Electronics", "note": "first"},
		{"day": "2025-01-02", "revenue": int64(98), "category": "Books", "note": "second"},
		{"day": "2025-01-03", "revenue": "150.25", "category": "Electronics", "note": "third"},
	}
	f := AnalyzeFeatures([]string{"day", "revenue", "category", "note"}, rows)

	if f.RowCount != 3 || f.ColumnCount != 4 {
		t.Fatalf("rows=%d cols=%d", f.RowCount, f.ColumnCount)
	}
	wants := map[string]ColumnClass{
		"day":      ClassDatetime,
		"revenue":  ClassNumerical,
		"category": ClassCategorical,
		"note":     ClassCategorical,
	}
	for col, want := range wants {
		if got := f.ColumnTypes[col]; got != want {
			t.Errorf("%s classified %q, want %q", col, got, want)
		}
	}
}

func TestAnalyzeFeaturesTextColumn(t *testing.T) {
	rows := make([]map[string]any, 100)
	for i := range rows {
		rows[i] = map[string]any{"comment": "unique review text number " + string(rune('a'+i%26)) + string(rune('a'+i/26))}
	}
	f := AnalyzeFeatures([]string{"comment"}, rows)
	if got := f.ColumnTypes["comment"]; got != ClassText {
		t.Errorf("comment classified %q, want text", got)
	}
}

func TestCategoricalThresholdBoundary(t *testing.T) {
	// 51 rows with 10 distinct values sit just under max(10, 10.2).
	rows := make([]map[string]any, 51)
	for i := range rows {
		rows[i] = map[string]any{"region": "region-" + string(rune('a'+i%10))}
	}
	f := AnalyzeFeatures([]string{"region"}, rows)
	if got := f.ColumnTypes["region"]; got != ClassCategorical {
		t.Errorf("region classified %q, want categorical", got)
	}

	// 50 rows with 10 distinct values hit the threshold exactly and stay text.
	rows = rows[:50]
	f = AnalyzeFeatures([]string{"region"}, rows)
	if got := f.ColumnTypes["region"]; got != ClassText {
		t.Errorf("region classified %q, want text", got)
	}
}

func TestIsDatetimeColumnMajority(t *testing.T) {
	rows := []map[string]any{
		{"d": "2025-01-01"},
		{"d": "2025-01-02"},
		{"d": "2025-01-03 10:30:00"},
		{"d": "01/15/2025"},
		{"d": "not a date"},
	}
	if !isDatetimeColumn("d", rows) {
		t.Error("80% date matches should classify as datetime")
	}

	rows = []map[string]any{
		{"d": "2025-01-01"},
		{"d": "hello"},
		{"d": "world"},
	}
	if isDatetimeColumn("d", rows) {
		t.Error("33% date matches should not classify as datetime")
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(1.5), 1.5, true},
		{int64(7), 7, true},
		{int(3), 3, true},
		{"42.5", 42.5, true},
		{"abc", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := toFloat(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("toFloat(%v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
