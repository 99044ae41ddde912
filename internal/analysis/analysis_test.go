package analysis

import (
	"errors"
	"testing"

	"github.com/excelytics/backend/internal/models"
	"github.com/excelytics/backend/internal/sheets"
)

func sampleRows() []sheets.Row {
	return []sheets.Row{
		{"value": float64(10), "age": float64(15), "name": "widget"},
		{"value": float64(20), "age": float64(18), "name": "Gadget"},
		{"value": "x", "age": float64(65), "name": "gizmo"},
		{"age": float64(70), "name": "sprocket"},
		{"value": float64(30), "age": "n/a", "name": "doohickey"},
	}
}

func TestNumeric(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		want   float64
		wantOK bool
	}{
		{name: "float64", value: float64(12.5), want: 12.5, wantOK: true},
		{name: "numeric string", value: "42", want: 42, wantOK: true},
		{name: "padded numeric string", value: " 7 ", want: 7, wantOK: true},
		{name: "non-numeric string", value: "x", wantOK: false},
		{name: "empty string", value: "", wantOK: false},
		{name: "nil", value: nil, wantOK: false},
		{name: "bool", value: true, wantOK: false},
		{name: "nan string", value: "NaN", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Numeric(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("Numeric(%v) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("Numeric(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestDisplayForm(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{name: "whole float drops decimals", value: float64(10), want: "10"},
		{name: "fractional float keeps digits", value: 10.25, want: "10.25"},
		{name: "string passes through", value: "hello", want: "hello"},
		{name: "bool", value: true, want: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayForm(tt.value); got != tt.want {
				t.Fatalf("DisplayForm(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	result := Summarize(sampleRows(), []string{"value", "name"})
	summary := result["summary"].(map[string]interface{})

	value := summary["value"].(map[string]interface{})
	if value["count"] != 4 {
		t.Fatalf("expected count 4 (absent cell excluded), got %v", value["count"])
	}
	if value["uniqueCount"] != 4 {
		t.Fatalf("expected uniqueCount 4, got %v", value["uniqueCount"])
	}
	if value["min"] != float64(10) || value["max"] != float64(30) {
		t.Fatalf("expected min 10 max 30, got %v / %v", value["min"], value["max"])
	}
	if value["sum"] != float64(60) || value["avg"] != float64(20) {
		t.Fatalf("expected sum 60 avg 20 over numeric subset, got %v / %v", value["sum"], value["avg"])
	}

	name := summary["name"].(map[string]interface{})
	if name["count"] != 5 || name["uniqueCount"] != 5 {
		t.Fatalf("expected 5 distinct names, got %v", name)
	}
	if _, exists := name["min"]; exists {
		t.Fatal("expected numeric fields omitted for a text-only column")
	}
}

func TestSummarizeCollapsesEquivalentDisplayForms(t *testing.T) {
	rows := []sheets.Row{
		{"v": float64(10)},
		{"v": "10"},
		{"v": float64(11)},
	}
	result := Summarize(rows, []string{"v"})
	stats := result["summary"].(map[string]interface{})["v"].(map[string]interface{})
	if stats["uniqueCount"] != 2 {
		t.Fatalf("expected 10 and \"10\" to collapse to one form, got %v", stats["uniqueCount"])
	}
}

func TestChart(t *testing.T) {
	result := Chart(sampleRows(), ChartConfig{ChartType: "line", XColumn: "name", YColumn: "value"})

	if result["chartType"] != "line" {
		t.Fatalf("expected chartType carried through, got %v", result["chartType"])
	}

	points := result["chartData"].([]map[string]interface{})
	if len(points) != 5 {
		t.Fatalf("expected one point per row, got %d", len(points))
	}
	if points[0]["x"] != "widget" || points[0]["y"] != float64(10) {
		t.Fatalf("unexpected first point %v", points[0])
	}
	// "x" and the absent cell both coerce to 0
	if points[2]["y"] != float64(0) || points[3]["y"] != float64(0) {
		t.Fatalf("expected unparseable y values coerced to 0, got %v / %v", points[2]["y"], points[3]["y"])
	}
	if points[4]["y"] != float64(30) {
		t.Fatalf("expected row order preserved, got %v", points[4])
	}
}

func TestFilter(t *testing.T) {
	minVal := func(v float64) *float64 { return &v }

	t.Run("range is boundary-inclusive and drops non-numeric cells", func(t *testing.T) {
		result := Filter(sampleRows(), FilterConfig{Filters: map[string]FilterSpec{
			"age": {Type: "range", Min: minVal(18), Max: minVal(65)},
		}})
		kept := result["data"].([]sheets.Row)
		if len(kept) != 2 {
			t.Fatalf("expected 2 rows kept, got %d", len(kept))
		}
		if kept[0]["age"] != float64(18) || kept[1]["age"] != float64(65) {
			t.Fatalf("expected boundary rows kept, got %v", kept)
		}
	})

	t.Run("equals is exact typed equality", func(t *testing.T) {
		result := Filter(sampleRows(), FilterConfig{Filters: map[string]FilterSpec{
			"value": {Type: "equals", Value: float64(10)},
		}})
		kept := result["data"].([]sheets.Row)
		if len(kept) != 1 || kept[0]["name"] != "widget" {
			t.Fatalf("expected only the widget row, got %v", kept)
		}

		// a string "10" does not equal the number 10
		result = Filter(sampleRows(), FilterConfig{Filters: map[string]FilterSpec{
			"value": {Type: "equals", Value: "10"},
		}})
		if kept := result["data"].([]sheets.Row); len(kept) != 0 {
			t.Fatalf("expected no rows for mismatched type, got %v", kept)
		}
	})

	t.Run("contains is case-insensitive and skips absent values", func(t *testing.T) {
		result := Filter(sampleRows(), FilterConfig{Filters: map[string]FilterSpec{
			"name": {Type: "contains", Value: "GAD"},
		}})
		kept := result["data"].([]sheets.Row)
		if len(kept) != 1 || kept[0]["name"] != "Gadget" {
			t.Fatalf("expected case-insensitive match on Gadget, got %v", kept)
		}

		result = Filter(sampleRows(), FilterConfig{Filters: map[string]FilterSpec{
			"value": {Type: "contains", Value: "1"},
		}})
		// the sprocket row has no value cell and must not match
		for _, row := range result["data"].([]sheets.Row) {
			if row["name"] == "sprocket" {
				t.Fatal("expected absent values to never match contains")
			}
		}
	})

	t.Run("filters apply as an AND conjunction", func(t *testing.T) {
		result := Filter(sampleRows(), FilterConfig{Filters: map[string]FilterSpec{
			"age":  {Type: "range", Min: minVal(0), Max: minVal(100)},
			"name": {Type: "contains", Value: "g"},
		}})
		kept := result["data"].([]sheets.Row)
		if len(kept) != 3 {
			t.Fatalf("expected 3 rows matching both predicates, got %d", len(kept))
		}
	})

	t.Run("unrecognized filter kind passes every row", func(t *testing.T) {
		result := Filter(sampleRows(), FilterConfig{Filters: map[string]FilterSpec{
			"name": {Type: "regex", Value: ".*"},
		}})
		if kept := result["data"].([]sheets.Row); len(kept) != 5 {
			t.Fatalf("expected all rows to pass, got %d", len(kept))
		}
	})
}

func TestFallbackCapsRows(t *testing.T) {
	rows := make([]sheets.Row, 150)
	for i := range rows {
		rows[i] = sheets.Row{"i": float64(i)}
	}

	result := Fallback(rows)
	data := result["data"].([]sheets.Row)
	if len(data) != 100 {
		t.Fatalf("expected 100 rows, got %d", len(data))
	}
	if data[0]["i"] != float64(0) || data[99]["i"] != float64(99) {
		t.Fatal("expected the first 100 rows in order")
	}
}

func TestRun(t *testing.T) {
	t.Run("summary kind dispatches with typed config", func(t *testing.T) {
		result, err := Run(models.AnalysisKindSummary, map[string]interface{}{
			"columns": []interface{}{"value"},
		}, sampleRows())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if _, ok := result["summary"]; !ok {
			t.Fatalf("expected summary payload, got %v", result)
		}
	})

	t.Run("unknown kinds take the fallback", func(t *testing.T) {
		result, err := Run(models.AnalysisKindPivot, map[string]interface{}{}, sampleRows())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if _, ok := result["data"]; !ok {
			t.Fatalf("expected raw-row fallback payload, got %v", result)
		}
	})

	invalidConfigs := []struct {
		name   string
		kind   models.AnalysisKind
		config map[string]interface{}
	}{
		{name: "summary without columns", kind: models.AnalysisKindSummary, config: map[string]interface{}{}},
		{name: "summary with wrong column type", kind: models.AnalysisKindSummary, config: map[string]interface{}{"columns": "value"}},
		{name: "chart without axes", kind: models.AnalysisKindChart, config: map[string]interface{}{"chartType": "bar"}},
		{name: "filter without specs", kind: models.AnalysisKindFilter, config: map[string]interface{}{}},
		{name: "range filter missing bounds", kind: models.AnalysisKindFilter, config: map[string]interface{}{
			"filters": map[string]interface{}{"age": map[string]interface{}{"type": "range", "min": 18}},
		}},
		{name: "equals filter missing value", kind: models.AnalysisKindFilter, config: map[string]interface{}{
			"filters": map[string]interface{}{"name": map[string]interface{}{"type": "equals"}},
		}},
	}

	for _, tt := range invalidConfigs {
		t.Run(tt.name+" is rejected", func(t *testing.T) {
			if _, err := Run(tt.kind, tt.config, sampleRows()); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
