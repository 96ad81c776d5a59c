package rendering

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

const dateLayout = "2006-01-02"

// MIME types of the rendered payloads.
const (
	MIMEPDF   = "application/pdf"
	MIMECSV   = "text/csv"
	MIMEHTML  = "text/html"
	MIMEExcel = "application/vnd.ms-excel"
	MIMEXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Renderer encodes a report model. Renderers never mutate the model.
type Renderer interface {
	Render(model models.ReportModel, filters models.ReportFilters) (models.RenderedReport, error)
}

// RenderError describes a failure while drawing one section of a document.
type RenderError struct {
	Section string
	Err     error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Section, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Registry maps output formats to renderers. Unknown formats use PDF.
type Registry struct {
	renderers map[models.Format]Renderer
	fallback  Renderer
}

// NewRegistry wires every built-in renderer.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	pdf := NewPDFRenderer(logger.Named("pdf"))
	csv := NewCSVRenderer()

	return &Registry{
		renderers: map[models.Format]Renderer{
			models.FormatPDF:   pdf,
			models.FormatCSV:   csv,
			models.FormatHTML:  NewHTMLRenderer(),
			models.FormatExcel: NewExcelRenderer(csv),
			models.FormatXLSX:  NewXLSXRenderer(logger.Named("xlsx")),
		},
		fallback: pdf,
	}
}

// For returns the renderer of a format.
func (r *Registry) For(format models.Format) Renderer {
	if renderer, ok := r.renderers[format]; ok {
		return renderer
	}
	return r.fallback
}

// Render encodes the model with the renderer matching format.
func (r *Registry) Render(format models.Format, model models.ReportModel, filters models.ReportFilters) (models.RenderedReport, error) {
	return r.For(format).Render(model, filters)
}

func departmentLabel(filters models.ReportFilters) string {
	if filters.IsAllDepartments() {
		return "All departments"
	}
	return filters.DepartmentFilter
}
