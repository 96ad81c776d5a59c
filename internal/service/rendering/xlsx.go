package rendering

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

const (
	reportSheet = "Report"
	chartsSheet = "Charts"
	chartBlock  = 18
	columnWidth = 18
)

// XLSXRenderer writes a native workbook with a report sheet and, when charts
// are requested, a charts sheet.
type XLSXRenderer struct {
	logger *zap.Logger
}

// NewXLSXRenderer builds the workbook renderer.
func NewXLSXRenderer(logger *zap.Logger) *XLSXRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &XLSXRenderer{logger: logger}
}

func (r *XLSXRenderer) Render(model models.ReportModel, filters models.ReportFilters) (models.RenderedReport, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return models.RenderedReport{}, fmt.Errorf("rename sheet: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return models.RenderedReport{}, fmt.Errorf("create style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return models.RenderedReport{}, fmt.Errorf("create style: %w", err)
	}

	w := &sheetWriter{f: f, sheet: reportSheet}
	w.set(1, 1, model.Title)
	w.style(1, 1, boldStyle)
	w.set(1, 2, "Generated: "+model.GeneratedAt.Format(dateLayout))
	w.set(1, 3, "Department: "+departmentLabel(filters))
	w.set(1, 4, "Date range: "+filters.DateRange.String())
	row := 6

	if filters.IncludeSummary && model.Summary != "" {
		w.set(1, row, "Summary")
		w.style(1, row, boldStyle)
		w.set(1, row+1, model.Summary)
		row += 3
	}

	if filters.IncludeTable {
		columns := model.Columns()
		if len(columns) == 0 {
			w.set(1, row, NoDataPayload)
			row += 2
		} else {
			for i, col := range columns {
				w.set(i+1, row, col)
				w.style(i+1, row, headerStyle)
			}
			row++
			for _, record := range model.Rows {
				for i, col := range columns {
					value, _ := record.Get(col)
					w.set(i+1, row, value)
				}
				row++
			}
			row++
			w.widths(len(columns), columnWidth)
		}

		if len(model.Totals) > 0 {
			w.set(1, row, model.TotalsHeading)
			w.style(1, row, boldStyle)
			row++
			for _, stat := range model.Totals {
				w.set(1, row, stat.Label)
				w.set(2, row, stat.Value)
				row++
			}
		}
	}
	if w.err != nil {
		return models.RenderedReport{}, fmt.Errorf("write report sheet: %w", w.err)
	}

	if filters.IncludeCharts && len(model.Charts) > 0 {
		if _, err := f.NewSheet(chartsSheet); err != nil {
			return models.RenderedReport{}, fmt.Errorf("create charts sheet: %w", err)
		}
		canvas := &xlsxCanvas{f: f, row: 1}
		for _, spec := range model.Charts {
			if err := DrawChart(canvas, model, spec); err != nil {
				// the workbook is still useful without this chart
				r.logger.Warn("skip xlsx chart", zap.String("chart", spec.Title), zap.Error(&RenderError{Section: "chart " + spec.Title, Err: err}))
			}
		}
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return models.RenderedReport{}, fmt.Errorf("write xlsx: %w", err)
	}

	return models.RenderedReport{Data: buffer.Bytes(), Extension: "xlsx", MIMEType: MIMEXLSX}, nil
}

type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) set(col, row int, value any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellValue(w.sheet, cell, value)
}

func (w *sheetWriter) widths(columns int, width float64) {
	if w.err != nil || columns == 0 {
		return
	}
	last, err := excelize.ColumnNumberToName(columns)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetColWidth(w.sheet, "A", last, width)
}

func (w *sheetWriter) style(col, row, style int) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellStyle(w.sheet, cell, cell, style)
}

// xlsxCanvas writes each series into the charts sheet and anchors a native
// chart next to it.
type xlsxCanvas struct {
	f   *excelize.File
	row int
}

func (c *xlsxCanvas) DrawBarSeries(title string, points []models.Point) error {
	return c.draw(excelize.Col, title, points)
}

func (c *xlsxCanvas) DrawPieSeries(title string, points []models.Point) error {
	return c.draw(excelize.Pie, title, points)
}

func (c *xlsxCanvas) draw(kind excelize.ChartType, title string, points []models.Point) error {
	if len(points) == 0 {
		return models.ErrNoChartData
	}

	w := &sheetWriter{f: c.f, sheet: chartsSheet}
	start := c.row
	w.set(1, start, title)
	for i, p := range points {
		w.set(1, start+1+i, p.Label)
		w.set(2, start+1+i, p.Value)
	}
	if w.err != nil {
		return w.err
	}

	first, last := start+1, start+len(points)
	anchor, err := excelize.CoordinatesToCellName(4, start)
	if err != nil {
		return err
	}
	err = c.f.AddChart(chartsSheet, anchor, &excelize.Chart{
		Type: kind,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$A$%d", chartsSheet, start),
			Categories: fmt.Sprintf("%s!$A$%d:$A$%d", chartsSheet, first, last),
			Values:     fmt.Sprintf("%s!$B$%d:$B$%d", chartsSheet, first, last),
		}},
		Title: []excelize.RichTextRun{{Text: title}},
	})
	if err != nil {
		return fmt.Errorf("add chart: %w", err)
	}

	c.row += max(len(points)+2, chartBlock)
	return nil
}
