package rendering

import (
	"bytes"
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

const (
	pdfFont      = "Helvetica"
	pdfMargin    = 15.0
	chartHeight  = 100.0
	pieRadius    = 45.0
	pieArcStepDg = 2.0
)

var chartPalette = [][3]int{
	{54, 162, 235},
	{255, 99, 132},
	{75, 192, 192},
	{255, 159, 64},
	{153, 102, 255},
	{201, 203, 207},
}

// PDFRenderer lays the report out as a paginated A4 document.
type PDFRenderer struct {
	logger    *zap.Logger
	compress  bool
	newCanvas func(pdf *fpdf.Fpdf, tr func(string) string) ChartCanvas
}

// NewPDFRenderer builds the paginated document renderer.
func NewPDFRenderer(logger *zap.Logger) *PDFRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFRenderer{
		logger:   logger,
		compress: true,
		newCanvas: func(pdf *fpdf.Fpdf, tr func(string) string) ChartCanvas {
			return &pdfCanvas{pdf: pdf, tr: tr}
		},
	}
}

// Render produces the PDF. Failures while drawing the table or a chart are
// replaced by an inline error line for that section.
func (r *PDFRenderer) Render(model models.ReportModel, filters models.ReportFilters) (models.RenderedReport, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(model.Title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if lost := unencodableText(model); len(lost) > 0 {
		r.logger.Warn("pdf core fonts cannot encode some report text", zap.Strings("text", lost))
	}

	pdf.AddPage()
	pdf.SetFont(pdfFont, "B", 18)
	pdf.CellFormat(0, 10, tr(model.Title), "", 1, "L", false, 0, "")
	pdf.SetFont(pdfFont, "", 10)
	pdf.CellFormat(0, 6, tr("Generated: "+model.GeneratedAt.Format(dateLayout)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Department: "+departmentLabel(filters)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Date range: "+filters.DateRange.String()), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if filters.IncludeSummary && model.Summary != "" {
		pdf.SetFont(pdfFont, "B", 13)
		pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
		pdf.SetFont(pdfFont, "", 10)
		pdf.MultiCell(0, 5, tr(model.Summary), "", "L", false)
		pdf.Ln(4)
	}

	if filters.IncludeTable {
		r.section(pdf, "table", func() error {
			return drawTables(pdf, tr, model)
		})
	}

	if filters.IncludeCharts {
		canvas := r.newCanvas(pdf, tr)
		for _, spec := range model.Charts {
			pdf.AddPage()
			pdf.SetFont(pdfFont, "B", 14)
			pdf.CellFormat(0, 10, tr(spec.Title), "", 1, "L", false, 0, "")
			if spec.Type == models.ChartLine {
				pdf.SetFont(pdfFont, "I", 9)
				pdf.MultiCell(0, 5, LineChartDisclaimer, "", "L", false)
			}
			r.section(pdf, "chart "+spec.Title, func() error {
				return DrawChart(canvas, model, spec)
			})
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return models.RenderedReport{}, fmt.Errorf("write pdf: %w", err)
	}

	return models.RenderedReport{Data: buf.Bytes(), Extension: "pdf", MIMEType: MIMEPDF}, nil
}

// section runs one drawing step and swaps any error or panic for a text note.
func (r *PDFRenderer) section(pdf *fpdf.Fpdf, name string, draw func() error) {
	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		err = draw()
	}()
	if err == nil && pdf.Err() {
		err = pdf.Error()
	}
	if err == nil {
		return
	}

	renderErr := &RenderError{Section: name, Err: err}
	r.logger.Warn("pdf section replaced by error note", zap.String("section", name), zap.Error(renderErr))

	pdf.ClearError()
	pdf.SetFont(pdfFont, "I", 10)
	pdf.SetTextColor(180, 0, 0)
	pdf.MultiCell(0, 6, fmt.Sprintf("Unable to render %s: %v", name, err), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(2)
}

func drawTables(pdf *fpdf.Fpdf, tr func(string) string, model models.ReportModel) error {
	columns := model.Columns()
	if len(columns) == 0 {
		pdf.SetFont(pdfFont, "", 10)
		pdf.CellFormat(0, 6, "No data available", "", 1, "L", false, 0, "")
		return nil
	}

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colW := (pageW - left - right) / float64(len(columns))

	pdf.SetFont(pdfFont, "B", 9)
	pdf.SetFillColor(224, 224, 224)
	for _, col := range columns {
		pdf.CellFormat(colW, 7, tr(fitText(pdf, col, colW)), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(pdfFont, "", 9)
	for _, row := range model.Rows {
		for _, col := range columns {
			value, _ := row.Get(col)
			pdf.CellFormat(colW, 6, tr(fitText(pdf, models.FormatValue(value), colW)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(model.Totals) == 0 {
		return nil
	}

	pdf.Ln(4)
	pdf.SetFont(pdfFont, "B", 10)
	pdf.CellFormat(0, 7, tr(model.TotalsHeading), "", 1, "L", false, 0, "")
	pdf.SetFont(pdfFont, "", 9)
	for _, stat := range model.Totals {
		pdf.CellFormat(70, 6, tr(stat.Label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, tr(models.FormatValue(stat.Value)), "1", 1, "R", false, 0, "")
	}
	return nil
}

// unencodableText lists report strings the cp1252 core fonts cannot show.
func unencodableText(model models.ReportModel) []string {
	enc := charmap.Windows1252.NewEncoder()
	var lost []string
	check := func(text string) {
		if len(lost) >= 5 || text == "" {
			return
		}
		if _, err := enc.String(text); err != nil {
			lost = append(lost, text)
		}
	}

	check(model.Title)
	check(model.Summary)
	for _, row := range model.Rows {
		for _, f := range row {
			if text, ok := f.Value.(string); ok {
				check(text)
			}
		}
	}
	for _, stat := range model.Totals {
		check(stat.Label)
	}
	for _, points := range model.Series {
		for _, p := range points {
			check(p.Label)
		}
	}
	return lost
}

func fitText(pdf *fpdf.Fpdf, text string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 1 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

type pdfCanvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (c *pdfCanvas) color(i int) {
	rgb := chartPalette[i%len(chartPalette)]
	c.pdf.SetFillColor(rgb[0], rgb[1], rgb[2])
}

func (c *pdfCanvas) DrawBarSeries(_ string, points []models.Point) error {
	if len(points) == 0 {
		return models.ErrNoChartData
	}

	pdf := c.pdf
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	x0 := left + 15
	width := pageW - left - right - 20
	top := pdf.GetY() + 8
	base := top + chartHeight

	maxValue := 0.0
	for _, p := range points {
		maxValue = math.Max(maxValue, p.Value)
	}
	if maxValue <= 0 {
		maxValue = 1
	}

	pdf.SetDrawColor(80, 80, 80)
	pdf.Line(x0, top, x0, base)
	pdf.Line(x0, base, x0+width, base)

	pdf.SetFont(pdfFont, "", 7)
	pdf.SetXY(left, top-2)
	pdf.CellFormat(14, 4, models.FormatValue(math.Round(maxValue*100)/100), "", 0, "R", false, 0, "")

	slot := width / float64(len(points))
	barW := slot * 0.7
	for i, p := range points {
		h := math.Max(p.Value, 0) / maxValue * chartHeight
		x := x0 + float64(i)*slot + (slot-barW)/2
		c.color(i)
		pdf.Rect(x, base-h, barW, h, "F")

		pdf.SetXY(x0+float64(i)*slot, base-h-5)
		pdf.CellFormat(slot, 4, models.FormatValue(p.Value), "", 0, "C", false, 0, "")
		pdf.SetXY(x0+float64(i)*slot, base+1)
		pdf.CellFormat(slot, 4, c.tr(fitText(pdf, p.Label, slot)), "", 0, "C", false, 0, "")
	}

	pdf.SetXY(left, base+8)
	return nil
}

func (c *pdfCanvas) DrawPieSeries(_ string, points []models.Point) error {
	total := 0.0
	for _, p := range points {
		if p.Value > 0 {
			total += p.Value
		}
	}
	if total <= 0 {
		return models.ErrNoChartData
	}

	pdf := c.pdf
	left, _, _, _ := pdf.GetMargins()
	cx := left + pieRadius + 5
	cy := pdf.GetY() + pieRadius + 10

	start := -90.0
	for i, p := range points {
		if p.Value <= 0 {
			continue
		}
		sweep := p.Value / total * 360
		c.color(i)
		pdf.Polygon(wedge(cx, cy, pieRadius, start, start+sweep), "F")
		start += sweep
	}

	legendX := cx + pieRadius + 15
	legendY := cy - pieRadius
	pdf.SetFont(pdfFont, "", 9)
	for i, p := range points {
		c.color(i)
		pdf.Rect(legendX, legendY+float64(i)*7, 4, 4, "F")
		pdf.SetXY(legendX+6, legendY+float64(i)*7)
		pdf.CellFormat(70, 4, c.tr(fmt.Sprintf("%s: %s (%.1f%%)", p.Label, models.FormatValue(p.Value), math.Max(p.Value, 0)/total*100)), "", 0, "L", false, 0, "")
	}

	pdf.SetXY(left, cy+pieRadius+8)
	return nil
}

// wedge approximates a pie slice between two angles (degrees) as a polygon.
func wedge(cx, cy, radius, fromDeg, toDeg float64) []fpdf.PointType {
	points := []fpdf.PointType{{X: cx, Y: cy}}
	for a := fromDeg; ; a += pieArcStepDg {
		if a > toDeg {
			a = toDeg
		}
		rad := a * math.Pi / 180
		points = append(points, fpdf.PointType{X: cx + radius*math.Cos(rad), Y: cy + radius*math.Sin(rad)})
		if a >= toDeg {
			break
		}
	}
	return points
}
