package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ChartType is the kind of chart a ChartSpec asks for.
type ChartType string

const (
	ChartBar  ChartType = "bar"
	ChartPie  ChartType = "pie"
	ChartLine ChartType = "line"
)

// ErrNoChartData is returned when a chart has nothing numeric to plot.
var ErrNoChartData = errors.New("no chartable data")

// Field is one column of a report row.
type Field struct {
	Key   string
	Value any
}

// Row is a flat, ordered record.
type Row []Field

// Get looks up a column value by key.
func (r Row) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Stat is one labelled entry of the totals/averages block.
type Stat struct {
	Label string
	Value any
}

// Point is one category/value pair of a chart series.
type Point struct {
	Label string
	Value float64
}

// ChartSpec describes a chart independently of any drawing engine. An empty
// Series means the chart plots the report rows.
type ChartSpec struct {
	Type   ChartType
	Title  string
	Series string
}

// ReportModel is the format agnostic report produced by the aggregator.
type ReportModel struct {
	Title         string
	GeneratedAt   time.Time
	Summary       string
	Rows          []Row
	TotalsHeading string
	Totals        []Stat
	Charts        []ChartSpec
	Series        map[string][]Point
	Fallback      bool
}

// Columns returns the column order defined by the first row.
func (m ReportModel) Columns() []string {
	if len(m.Rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(m.Rows[0]))
	for _, f := range m.Rows[0] {
		cols = append(cols, f.Key)
	}
	return cols
}

// ChartPoints resolves the data a chart draws. Row based charts take their
// category from the department or name column and their value from the first
// numeric column.
func (m ReportModel) ChartPoints(spec ChartSpec) ([]Point, error) {
	if spec.Series != "" {
		points, ok := m.Series[spec.Series]
		if !ok || len(points) == 0 {
			return nil, fmt.Errorf("series %q: %w", spec.Series, ErrNoChartData)
		}
		return points, nil
	}

	if len(m.Rows) == 0 {
		return nil, ErrNoChartData
	}

	labelKey := ""
	for _, candidate := range []string{"department", "name"} {
		if _, ok := m.Rows[0].Get(candidate); ok {
			labelKey = candidate
			break
		}
	}
	if labelKey == "" {
		return nil, fmt.Errorf("no category column: %w", ErrNoChartData)
	}

	valueKey := ""
	for _, f := range m.Rows[0] {
		if f.Key == labelKey {
			continue
		}
		if _, ok := ToFloat(f.Value); ok {
			valueKey = f.Key
			break
		}
	}
	if valueKey == "" {
		return nil, fmt.Errorf("no numeric column: %w", ErrNoChartData)
	}

	points := make([]Point, 0, len(m.Rows))
	for _, row := range m.Rows {
		label, _ := row.Get(labelKey)
		raw, _ := row.Get(valueKey)
		value, _ := ToFloat(raw)
		points = append(points, Point{Label: fmt.Sprint(label), Value: value})
	}
	return points, nil
}

// ToFloat converts numeric column values.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// FormatValue renders a cell for textual outputs.
func FormatValue(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		if n == math.Trunc(n) {
			return fmt.Sprintf("%.0f", n)
		}
		return fmt.Sprintf("%.2f", n)
	case float32:
		return FormatValue(float64(n))
	case time.Time:
		return n.Format("2006-01-02")
	default:
		return fmt.Sprint(n)
	}
}

// RenderedReport is an encoded report ready to be attached to an email.
type RenderedReport struct {
	Data      []byte
	Extension string
	MIMEType  string
}
