package rendering

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

func sampleModel() models.ReportModel {
	return models.ReportModel{
		Title:       "Financial Performance Report",
		GeneratedAt: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC),
		Summary:     `Revenue grew "steadily" this period.`,
		Rows: []models.Row{
			{{Key: "department", Value: "Cardiology"}, {Key: "revenue", Value: 200.0}, {Key: "profit", Value: 50.5}},
			{{Key: "department", Value: "Neurology"}, {Key: "revenue", Value: 100.0}, {Key: "profit", Value: 25.0}},
		},
		TotalsHeading: "Totals",
		Totals:        []models.Stat{{Label: "Total Revenue", Value: 300.0}},
		Charts: []models.ChartSpec{
			{Type: models.ChartBar, Title: "Revenue by Department"},
			{Type: models.ChartPie, Title: "Payment Distribution", Series: "payments"},
			{Type: models.ChartLine, Title: "Trend"},
		},
		Series: map[string][]models.Point{
			"payments": {{Label: "Insurance", Value: 60}, {Label: "Other", Value: 40}},
		},
	}
}

type recordingCanvas struct {
	calls []string
	err   error
}

func (c *recordingCanvas) DrawBarSeries(title string, _ []models.Point) error {
	c.calls = append(c.calls, "bar:"+title)
	return c.err
}

func (c *recordingCanvas) DrawPieSeries(title string, _ []models.Point) error {
	c.calls = append(c.calls, "pie:"+title)
	return c.err
}

func TestDrawChartDispatchesByType(t *testing.T) {
	model := sampleModel()
	canvas := &recordingCanvas{}

	for _, spec := range model.Charts {
		require.NoError(t, DrawChart(canvas, model, spec))
	}

	assert.Equal(t, []string{"bar:Revenue by Department", "pie:Payment Distribution", "bar:Trend"}, canvas.calls)
}

func TestDrawChartMissingSeries(t *testing.T) {
	err := DrawChart(&recordingCanvas{}, sampleModel(), models.ChartSpec{Type: models.ChartPie, Title: "x", Series: "missing"})
	assert.ErrorIs(t, err, models.ErrNoChartData)
}

func TestCSVRenderer(t *testing.T) {
	out, err := NewCSVRenderer().Render(sampleModel(), models.DefaultFilters())
	require.NoError(t, err)

	assert.Equal(t, "csv", out.Extension)
	assert.Equal(t, MIMECSV, out.MIMEType)

	text := string(out.Data)
	assert.True(t, strings.HasPrefix(text, "\"Financial Performance Report\"\n"))
	assert.Contains(t, text, `"Revenue grew ""steadily"" this period."`)
	assert.Contains(t, text, "\"department\",\"revenue\",\"profit\"\n")
	assert.Contains(t, text, "\"Cardiology\",\"200\",\"50.50\"\n")
	assert.Contains(t, text, "\"Total Revenue\",\"300\"\n")
	assert.Contains(t, text, `"Department: All departments"`)
}

func TestCSVRendererWithoutRows(t *testing.T) {
	model := sampleModel()
	model.Rows = nil

	out, err := NewCSVRenderer().Render(model, models.DefaultFilters())
	require.NoError(t, err)
	assert.Equal(t, NoDataPayload, string(out.Data))
}

func TestCSVRendererSkipsSummaryWhenExcluded(t *testing.T) {
	filters := models.DefaultFilters()
	filters.IncludeSummary = false

	out, err := NewCSVRenderer().Render(sampleModel(), filters)
	require.NoError(t, err)
	assert.NotContains(t, string(out.Data), "steadily")
}

func TestExcelRendererIsCSVWithSpreadsheetMIME(t *testing.T) {
	csv := NewCSVRenderer()
	plain, err := csv.Render(sampleModel(), models.DefaultFilters())
	require.NoError(t, err)

	out, err := NewExcelRenderer(csv).Render(sampleModel(), models.DefaultFilters())
	require.NoError(t, err)

	assert.Equal(t, "csv", out.Extension)
	assert.Equal(t, MIMEExcel, out.MIMEType)
	assert.Equal(t, plain.Data, out.Data)
}

func TestHTMLRenderer(t *testing.T) {
	model := sampleModel()
	model.Fallback = true

	out, err := NewHTMLRenderer().Render(model, models.DefaultFilters())
	require.NoError(t, err)

	assert.Equal(t, "html", out.Extension)
	assert.Equal(t, MIMEHTML, out.MIMEType)

	doc := string(out.Data)
	assert.Contains(t, doc, "<h1")
	assert.Contains(t, doc, "Financial Performance Report")
	assert.Contains(t, doc, "Fallback report")
	assert.Contains(t, doc, "<td style=\"border:1px solid #ccc;padding:6px;\">Cardiology</td>")
	assert.Contains(t, doc, "Total Revenue")
	assert.Contains(t, doc, "pie chart (charts are available in the PDF format)")
}

func TestHTMLRendererEscapesContent(t *testing.T) {
	model := sampleModel()
	model.Summary = "<script>alert(1)</script>"

	out, err := NewHTMLRenderer().Render(model, models.DefaultFilters())
	require.NoError(t, err)
	assert.NotContains(t, string(out.Data), "<script>")
}

func TestHTMLRendererNoRows(t *testing.T) {
	model := sampleModel()
	model.Rows = nil
	filters := models.DefaultFilters()
	filters.IncludeCharts = false

	out, err := NewHTMLRenderer().Render(model, filters)
	require.NoError(t, err)

	doc := string(out.Data)
	assert.Contains(t, doc, "No data available")
	assert.NotContains(t, doc, "chart (charts are available")
}

func TestPDFRenderer(t *testing.T) {
	out, err := NewPDFRenderer(nil).Render(sampleModel(), models.DefaultFilters())
	require.NoError(t, err)

	assert.Equal(t, "pdf", out.Extension)
	assert.Equal(t, MIMEPDF, out.MIMEType)
	assert.True(t, bytes.HasPrefix(out.Data, []byte("%PDF")))
}

func TestPDFRendererReplacesFailedChart(t *testing.T) {
	r := NewPDFRenderer(nil)
	r.compress = false
	r.newCanvas = func(*fpdf.Fpdf, func(string) string) ChartCanvas {
		return &recordingCanvas{err: errors.New("canvas exploded")}
	}

	out, err := r.Render(sampleModel(), models.DefaultFilters())
	require.NoError(t, err)
	assert.Contains(t, string(out.Data), "Unable to render chart Revenue by Department: canvas exploded")
}

func TestPDFRendererEmptyChartData(t *testing.T) {
	r := NewPDFRenderer(nil)
	r.compress = false
	model := sampleModel()
	model.Series = nil

	out, err := r.Render(model, models.DefaultFilters())
	require.NoError(t, err)
	assert.Contains(t, string(out.Data), "Unable to render chart Payment Distribution")
}

func TestPDFRendererWarnsOnUnencodableText(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	model := sampleModel()
	model.Rows[0][0].Value = "Кардиология"
	model.Title = "病院 Report"

	out, err := NewPDFRenderer(zap.New(core)).Render(model, models.DefaultFilters())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out.Data, []byte("%PDF")))

	warnings := logs.FilterMessage("pdf core fonts cannot encode some report text").All()
	require.Len(t, warnings, 1)
	assert.ElementsMatch(t, []any{"病院 Report", "Кардиология"}, warnings[0].ContextMap()["text"])
}

func TestUnencodableTextAcceptsLatin(t *testing.T) {
	model := sampleModel()
	model.Rows[0][0].Value = "Cardiologie Générale"
	assert.Empty(t, unencodableText(model))
}

func TestXLSXRenderer(t *testing.T) {
	out, err := NewXLSXRenderer(nil).Render(sampleModel(), models.DefaultFilters())
	require.NoError(t, err)

	assert.Equal(t, "xlsx", out.Extension)
	assert.Equal(t, MIMEXLSX, out.MIMEType)

	f, err := excelize.OpenReader(bytes.NewReader(out.Data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{reportSheet, chartsSheet}, f.GetSheetList())

	title, err := f.GetCellValue(reportSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Financial Performance Report", title)

	rows, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	var found bool
	for _, row := range rows {
		if len(row) > 0 && row[0] == "Cardiology" {
			found = true
			assert.Equal(t, "200", row[1])
		}
	}
	assert.True(t, found, "department row missing")
}

func TestXLSXRendererColumnWidths(t *testing.T) {
	out, err := NewXLSXRenderer(nil).Render(sampleModel(), models.DefaultFilters())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out.Data))
	require.NoError(t, err)
	defer f.Close()

	for _, col := range []string{"A", "C"} {
		width, err := f.GetColWidth(reportSheet, col)
		require.NoError(t, err)
		assert.Equal(t, float64(columnWidth), width, col)
	}
}

func TestSheetWriterKeepsWidthError(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	w := &sheetWriter{f: f, sheet: "Sheet1"}
	w.widths(excelize.MaxColumns+1, columnWidth)
	require.Error(t, w.err)

	w.set(1, 1, "ignored after failure")
	value, err := f.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestXLSXRendererWithoutRows(t *testing.T) {
	model := sampleModel()
	model.Rows = nil
	filters := models.DefaultFilters()
	filters.IncludeCharts = false

	out, err := NewXLSXRenderer(nil).Render(model, filters)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out.Data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{reportSheet}, f.GetSheetList())
	rows, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	assert.Contains(t, rows, []string{NoDataPayload})
}

func TestRegistryFallsBackToPDF(t *testing.T) {
	reg := NewRegistry(nil)

	assert.IsType(t, &PDFRenderer{}, reg.For(models.Format("docx")))
	assert.IsType(t, &ExcelRenderer{}, reg.For(models.FormatExcel))
	assert.IsType(t, &XLSXRenderer{}, reg.For(models.FormatXLSX))

	out, err := reg.Render(models.FormatCSV, sampleModel(), models.DefaultFilters())
	require.NoError(t, err)
	assert.Equal(t, "csv", out.Extension)
}
