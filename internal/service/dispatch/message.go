package dispatch

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

const subjectPrefix = "Scheduled Report: "

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

const htmlBodyTemplate = `<div style="font-family:Helvetica,Arial,sans-serif;color:#222;">
<h2 style="font-size:18px;">{{.Name}}</h2>
<p style="font-size:13px;">Your scheduled {{.Title}} generated on {{.Generated}} is attached as <strong>{{.Filename}}</strong>.</p>
{{- if .Summary}}
<p style="font-size:13px;line-height:1.5;">{{.Summary}}</p>
{{- end}}
{{- if .Totals}}
<table style="border-collapse:collapse;font-size:12px;">
{{- range .Totals}}
<tr><td style="border:1px solid #ccc;padding:4px 8px;">{{.Label}}</td><td style="border:1px solid #ccc;padding:4px 8px;text-align:right;">{{.Value}}</td></tr>
{{- end}}
</table>
{{- end}}
</div>`

var htmlBody = template.Must(template.New("mail").Parse(htmlBodyTemplate))

type mailView struct {
	Name      string
	Title     string
	Generated string
	Filename  string
	Summary   string
	Totals    []totalLine
}

type totalLine struct {
	Label string
	Value string
}

// AttachmentName derives the attachment file name from a schedule name.
func AttachmentName(name, extension string) string {
	base := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "report"
	}
	return base + "." + extension
}

func composeMessage(s models.ScheduledReport, report models.ReportModel, rendered models.RenderedReport) (models.MailMessage, error) {
	filename := AttachmentName(s.Name, rendered.Extension)

	totals := make([]totalLine, 0, len(report.Totals))
	for _, stat := range report.Totals {
		totals = append(totals, totalLine{Label: stat.Label, Value: models.FormatValue(stat.Value)})
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Your scheduled report %q is attached (%s).\n\n", s.Name, filename)
	if report.Summary != "" {
		text.WriteString(report.Summary)
		text.WriteString("\n\n")
	}
	if len(totals) > 0 {
		text.WriteString(report.TotalsHeading)
		text.WriteString("\n")
		table := tablewriter.NewWriter(&text)
		table.SetHeader([]string{"Metric", "Value"})
		table.SetAutoWrapText(false)
		table.SetAutoFormatHeaders(true)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
		for _, stat := range totals {
			table.Append([]string{stat.Label, stat.Value})
		}
		table.Render()
	}

	view := mailView{
		Name:      s.Name,
		Title:     report.Title,
		Generated: report.GeneratedAt.Format("2006-01-02 15:04"),
		Filename:  filename,
		Summary:   report.Summary,
		Totals:    totals,
	}
	var html bytes.Buffer
	if err := htmlBody.Execute(&html, view); err != nil {
		return models.MailMessage{}, fmt.Errorf("compose mail body: %w", err)
	}

	return models.MailMessage{
		To:      s.Recipients,
		Subject: subjectPrefix + s.Name,
		Text:    text.String(),
		HTML:    html.String(),
		Attachments: []models.Attachment{
			{Data: rendered.Data, Filename: filename},
		},
	}, nil
}
