package rendering

import (
	"strings"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

// NoDataPayload is the delimited text returned for a report without rows.
const NoDataPayload = "No data available"

// CSVRenderer writes delimited text with every field double-quoted.
type CSVRenderer struct{}

// NewCSVRenderer builds the delimited text renderer.
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

// Render never fails; an empty row list yields NoDataPayload.
func (r *CSVRenderer) Render(model models.ReportModel, filters models.ReportFilters) (models.RenderedReport, error) {
	out := models.RenderedReport{Extension: "csv", MIMEType: MIMECSV}
	if len(model.Rows) == 0 {
		out.Data = []byte(NoDataPayload)
		return out, nil
	}

	var b strings.Builder
	writeRecord(&b, model.Title)
	writeRecord(&b, "Generated: "+model.GeneratedAt.Format(dateLayout))
	writeRecord(&b, "Department: "+departmentLabel(filters), "Date range: "+filters.DateRange.String())
	b.WriteString("\n")

	if filters.IncludeSummary && model.Summary != "" {
		writeRecord(&b, "Summary")
		writeRecord(&b, model.Summary)
		b.WriteString("\n")
	}

	columns := model.Columns()
	writeRecord(&b, columns...)
	for _, row := range model.Rows {
		fields := make([]string, len(columns))
		for i, col := range columns {
			value, _ := row.Get(col)
			fields[i] = models.FormatValue(value)
		}
		writeRecord(&b, fields...)
	}

	if len(model.Totals) > 0 {
		b.WriteString("\n")
		writeRecord(&b, model.TotalsHeading)
		for _, stat := range model.Totals {
			writeRecord(&b, stat.Label, models.FormatValue(stat.Value))
		}
	}

	out.Data = []byte(b.String())
	return out, nil
}

func writeRecord(b *strings.Builder, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\n")
}

// ExcelRenderer is the "excel" format: the CSV output declared with the
// spreadsheet MIME type. It is not a native workbook.
type ExcelRenderer struct {
	csv *CSVRenderer
}

// NewExcelRenderer wraps the CSV renderer.
func NewExcelRenderer(csv *CSVRenderer) *ExcelRenderer {
	return &ExcelRenderer{csv: csv}
}

func (r *ExcelRenderer) Render(model models.ReportModel, filters models.ReportFilters) (models.RenderedReport, error) {
	out, err := r.csv.Render(model, filters)
	if err != nil {
		return models.RenderedReport{}, err
	}
	out.MIMEType = MIMEExcel
	return out, nil
}
