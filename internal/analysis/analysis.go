// Package analysis computes derived results over parsed sheet rows: column
// summaries, chart series shaping, and row filtering. Each kind has a typed
// configuration parsed from the request's options bag, so malformed configs
// are rejected at the boundary instead of failing mid-computation.
package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/excelytics/backend/internal/models"
	"github.com/excelytics/backend/internal/sheets"
)

// ErrInvalidConfig marks a config that fails validation for its kind.
var ErrInvalidConfig = errors.New("invalid analysis config")

// fallbackRowLimit caps the raw-row result returned for unrecognized kinds.
const fallbackRowLimit = 100

type SummaryConfig struct {
	SheetName string   `json:"sheetName"`
	Columns   []string `json:"columns"`
}

type ChartConfig struct {
	SheetName string `json:"sheetName"`
	ChartType string `json:"chartType"`
	XColumn   string `json:"xColumn"`
	YColumn   string `json:"yColumn"`
}

type FilterSpec struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
	Min   *float64    `json:"min"`
	Max   *float64    `json:"max"`
}

type FilterConfig struct {
	SheetName string                `json:"sheetName"`
	Filters   map[string]FilterSpec `json:"filters"`
}

// Run computes the result payload for one analysis. Unrecognized kinds
// (pivot and formula included) deliberately do not fail: they return a capped
// prefix of the raw rows. Any panic during computation is converted to an
// error so the caller never persists a partial result.
func Run(kind models.AnalysisKind, config map[string]interface{}, rows []sheets.Row) (result map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis computation failed: %v", r)
		}
	}()

	switch kind {
	case models.AnalysisKindSummary:
		cfg, err := parseSummaryConfig(config)
		if err != nil {
			return nil, err
		}
		return Summarize(rows, cfg.Columns), nil
	case models.AnalysisKindChart:
		cfg, err := parseChartConfig(config)
		if err != nil {
			return nil, err
		}
		return Chart(rows, cfg), nil
	case models.AnalysisKindFilter:
		cfg, err := parseFilterConfig(config)
		if err != nil {
			return nil, err
		}
		return Filter(rows, cfg), nil
	default:
		return Fallback(rows), nil
	}
}

// Summarize computes, per requested column, the count of present values and
// the count of distinct display forms. When at least one value is numeric it
// also reports min, max, sum and mean over the numeric subset; columns with
// no numeric values omit the numeric fields entirely.
func Summarize(rows []sheets.Row, columns []string) map[string]interface{} {
	summary := map[string]interface{}{}

	for _, column := range columns {
		distinct := map[string]struct{}{}
		count := 0
		var numeric []float64

		for _, row := range rows {
			value, ok := row[column]
			if !ok {
				continue
			}
			count++
			distinct[DisplayForm(value)] = struct{}{}
			if parsed, ok := Numeric(value); ok {
				numeric = append(numeric, parsed)
			}
		}

		stats := map[string]interface{}{
			"count":       count,
			"uniqueCount": len(distinct),
		}
		if len(numeric) > 0 {
			minValue, maxValue, sum := numeric[0], numeric[0], 0.0
			for _, v := range numeric {
				if v < minValue {
					minValue = v
				}
				if v > maxValue {
					maxValue = v
				}
				sum += v
			}
			stats["min"] = minValue
			stats["max"] = maxValue
			stats["sum"] = sum
			stats["avg"] = sum / float64(len(numeric))
		}
		summary[column] = stats
	}

	return map[string]interface{}{"summary": summary}
}

// Chart shapes rows into an ordered {x, y} series. Row order is preserved;
// an unparseable y cell contributes 0 rather than dropping the point.
func Chart(rows []sheets.Row, cfg ChartConfig) map[string]interface{} {
	points := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		y := 0.0
		if parsed, ok := Numeric(row[cfg.YColumn]); ok {
			y = parsed
		}
		points = append(points, map[string]interface{}{
			"x": row[cfg.XColumn],
			"y": y,
		})
	}

	return map[string]interface{}{
		"chartData": points,
		"chartType": cfg.ChartType,
	}
}

// Filter keeps the rows matching every configured column spec (an AND
// conjunction of independent predicates).
func Filter(rows []sheets.Row, cfg FilterConfig) map[string]interface{} {
	kept := make([]sheets.Row, 0, len(rows))
	for _, row := range rows {
		matches := true
		for column, spec := range cfg.Filters {
			if !matchesSpec(row[column], spec) {
				matches = false
				break
			}
		}
		if matches {
			kept = append(kept, row)
		}
	}

	return map[string]interface{}{"data": kept}
}

// Fallback returns a capped prefix of the raw rows without computation.
func Fallback(rows []sheets.Row) map[string]interface{} {
	if len(rows) > fallbackRowLimit {
		rows = rows[:fallbackRowLimit]
	}
	return map[string]interface{}{"data": rows}
}

func matchesSpec(value interface{}, spec FilterSpec) bool {
	switch spec.Type {
	case "equals":
		return value == spec.Value
	case "contains":
		if value == nil {
			return false
		}
		needle := strings.ToLower(DisplayForm(spec.Value))
		return strings.Contains(strings.ToLower(DisplayForm(value)), needle)
	case "range":
		parsed, ok := Numeric(value)
		if !ok {
			return false
		}
		return parsed >= *spec.Min && parsed <= *spec.Max
	default:
		// unrecognized filter kinds pass every row
		return true
	}
}

// Numeric is the single definition of "this cell is numeric", shared by
// summary aggregation, chart y-coercion and range filters.
func Numeric(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// DisplayForm renders a cell value the way a spreadsheet UI would show it.
// Floats drop their trailing zeros so 10.0 and "10" collapse to one form.
func DisplayForm(value interface{}) string {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func parseSummaryConfig(config map[string]interface{}) (SummaryConfig, error) {
	var cfg SummaryConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return cfg, err
	}
	if len(cfg.Columns) == 0 {
		return cfg, fmt.Errorf("%w: summary requires at least one column", ErrInvalidConfig)
	}
	return cfg, nil
}

func parseChartConfig(config map[string]interface{}) (ChartConfig, error) {
	var cfg ChartConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return cfg, err
	}
	if strings.TrimSpace(cfg.XColumn) == "" || strings.TrimSpace(cfg.YColumn) == "" {
		return cfg, fmt.Errorf("%w: chart requires xColumn and yColumn", ErrInvalidConfig)
	}
	return cfg, nil
}

func parseFilterConfig(config map[string]interface{}) (FilterConfig, error) {
	var cfg FilterConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return cfg, err
	}
	if len(cfg.Filters) == 0 {
		return cfg, fmt.Errorf("%w: filter requires at least one column spec", ErrInvalidConfig)
	}
	for column, spec := range cfg.Filters {
		switch spec.Type {
		case "equals", "contains":
			if spec.Value == nil {
				return cfg, fmt.Errorf("%w: filter on %s requires a value", ErrInvalidConfig, column)
			}
		case "range":
			if spec.Min == nil || spec.Max == nil {
				return cfg, fmt.Errorf("%w: range filter on %s requires min and max", ErrInvalidConfig, column)
			}
		}
	}
	return cfg, nil
}

func decodeConfig(config map[string]interface{}, target interface{}) error {
	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
