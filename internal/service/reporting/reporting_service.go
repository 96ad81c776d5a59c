package reporting

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
	repo "github.com/mamadbah2/hospital-reports/internal/repository/mongodb"
)

const unknownDepartment = "Unknown"

// Report titles per category.
const (
	FinancialTitle   = "Financial Performance Report"
	ClinicalTitle    = "Clinical Outcomes Report"
	OperationalTitle = "Operational Efficiency Report"
	ComplianceTitle  = "Compliance & Risk Report"
	FallbackTitle    = "General Hospital Report"
)

// DataFetchError wraps a domain store failure for one source table.
type DataFetchError struct {
	Source string
	Err    error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *DataFetchError) Unwrap() error { return e.Err }

// Service aggregates hospital data into report models.
type Service struct {
	store  repo.DomainStore
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(store repo.DomainStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Generate builds the report model for a category. Categories without a
// dedicated generator produce the general fallback report.
func (s *Service) Generate(ctx context.Context, category models.Category, filters models.ReportFilters) (models.ReportModel, error) {
	s.logger.Debug("generating report", zap.String("category", string(category)), zap.String("department", filters.DepartmentFilter))

	var (
		report models.ReportModel
		err    error
	)
	switch category {
	case models.CategoryFinancial:
		report, err = s.financialReport(ctx, filters)
	case models.CategoryClinical:
		report, err = s.clinicalReport(ctx, filters)
	case models.CategoryOperational:
		report, err = s.operationalReport(ctx, filters)
	case models.CategoryCompliance:
		report, err = s.complianceReport(ctx, filters)
	default:
		report, err = s.fallbackReport(ctx, filters)
	}
	if err != nil {
		return models.ReportModel{}, err
	}

	report.GeneratedAt = s.now()
	return report, nil
}

func fetchErr(source string, err error) error {
	return &DataFetchError{Source: source, Err: err}
}

// departmentNames builds the id -> name lookup used by every join.
func departmentNames(departments []models.Department) map[string]string {
	names := make(map[string]string, len(departments))
	for _, d := range departments {
		names[d.ID] = d.Name
	}
	return names
}

// staffDepartments builds the staff id -> department id lookup.
func staffDepartments(staff []models.Staff) map[string]string {
	lookup := make(map[string]string, len(staff))
	for _, st := range staff {
		if st.DepartmentID != "" {
			lookup[st.ID] = st.DepartmentID
		}
	}
	return lookup
}

func percent(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
