package rendering

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

const htmlReportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Model.Title}}</title>
</head>
<body style="font-family:Helvetica,Arial,sans-serif;color:#222;margin:24px;">
<h1 style="font-size:22px;margin-bottom:4px;">{{.Model.Title}}</h1>
<p style="color:#666;font-size:12px;margin-top:0;">Generated {{.Generated}} &middot; {{.Department}} &middot; {{.DateRange}}</p>
{{- if .Model.Fallback}}
<p style="background:#fff4e5;border:1px solid #ffb74d;padding:8px;font-size:12px;">Fallback report: no dedicated generator exists for this report type.</p>
{{- end}}
{{- if and .Filters.IncludeSummary .Model.Summary}}
<h2 style="font-size:16px;">Summary</h2>
<p style="font-size:13px;line-height:1.5;">{{.Model.Summary}}</p>
{{- end}}
{{- if .Filters.IncludeTable}}
{{- if .Columns}}
<table style="border-collapse:collapse;width:100%;font-size:12px;margin-top:12px;">
<thead><tr>{{range .Columns}}<th style="border:1px solid #ccc;background:#e0e0e0;padding:6px;text-align:left;">{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Cells}}
<tr>{{range .}}<td style="border:1px solid #ccc;padding:6px;">{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
{{- else}}
<p style="font-size:13px;">No data available</p>
{{- end}}
{{- if .Model.Totals}}
<h3 style="font-size:14px;margin-top:16px;">{{.Model.TotalsHeading}}</h3>
<table style="border-collapse:collapse;font-size:12px;">
{{- range .Model.Totals}}
<tr><td style="border:1px solid #ccc;padding:4px 8px;">{{.Label}}</td><td style="border:1px solid #ccc;padding:4px 8px;text-align:right;">{{fmtValue .Value}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- end}}
{{- if .Filters.IncludeCharts}}
{{- range .Model.Charts}}
<div style="border:1px dashed #999;padding:16px;margin-top:16px;text-align:center;color:#555;">
<strong>{{.Title}}</strong><br>
<span style="font-size:12px;">{{.Type}} chart (charts are available in the PDF format)</span>
</div>
{{- end}}
{{- end}}
</body>
</html>
`

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"fmtValue": models.FormatValue,
}).Parse(htmlReportTemplate))

type htmlView struct {
	Model      models.ReportModel
	Filters    models.ReportFilters
	Generated  string
	Department string
	DateRange  string
	Columns    []string
	Cells      [][]string
}

// HTMLRenderer emits a self-contained document with inline styling.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer builds the templated hypertext renderer.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{tmpl: htmlTemplate}
}

func (r *HTMLRenderer) Render(model models.ReportModel, filters models.ReportFilters) (models.RenderedReport, error) {
	columns := model.Columns()
	cells := make([][]string, 0, len(model.Rows))
	for _, row := range model.Rows {
		line := make([]string, len(columns))
		for i, col := range columns {
			value, _ := row.Get(col)
			line[i] = models.FormatValue(value)
		}
		cells = append(cells, line)
	}

	view := htmlView{
		Model:      model,
		Filters:    filters,
		Generated:  model.GeneratedAt.Format(dateLayout),
		Department: departmentLabel(filters),
		DateRange:  filters.DateRange.String(),
		Columns:    columns,
		Cells:      cells,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return models.RenderedReport{}, fmt.Errorf("execute html template: %w", err)
	}

	return models.RenderedReport{Data: buf.Bytes(), Extension: "html", MIMEType: MIMEHTML}, nil
}
