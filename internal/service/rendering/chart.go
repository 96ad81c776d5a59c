package rendering

import (
	"fmt"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

// LineChartDisclaimer is printed where a line chart is drawn as bars.
const LineChartDisclaimer = "Line charts are not supported in this format; the series is shown as a bar chart."

// ChartCanvas is the drawing surface a document engine exposes for charts.
type ChartCanvas interface {
	DrawBarSeries(title string, points []models.Point) error
	DrawPieSeries(title string, points []models.Point) error
}

// DrawChart resolves a chart's data and draws it on the canvas. Line charts
// have no primitive of their own and use the bar series.
func DrawChart(canvas ChartCanvas, model models.ReportModel, spec models.ChartSpec) error {
	points, err := model.ChartPoints(spec)
	if err != nil {
		return err
	}

	switch spec.Type {
	case models.ChartPie:
		return canvas.DrawPieSeries(spec.Title, points)
	case models.ChartBar, models.ChartLine:
		return canvas.DrawBarSeries(spec.Title, points)
	default:
		return fmt.Errorf("unsupported chart type %q", spec.Type)
	}
}
