package reporting

import (
	"context"
	"fmt"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

// fallbackReport covers categories without a dedicated generator. The
// performance score is synthetic.
func (s *Service) fallbackReport(ctx context.Context, filters models.ReportFilters) (models.ReportModel, error) {
	departments, err := s.store.ListDepartments(ctx)
	if err != nil {
		return models.ReportModel{}, fetchErr("departments", err)
	}
	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return models.ReportModel{}, fetchErr("staff", err)
	}

	headcount := map[string]int{}
	for _, st := range staff {
		headcount[st.DepartmentID]++
	}

	var rows []models.Row
	var totalStaff int
	for _, d := range departments {
		totalStaff += headcount[d.ID]
		if !filters.MatchesDepartment(d.ID, d.Name) {
			continue
		}
		rows = append(rows, models.Row{
			{Key: "department", Value: d.Name},
			{Key: "staffCount", Value: headcount[d.ID]},
			{Key: "performanceScore", Value: float64(70 + len(d.Name)%30)},
		})
	}

	return models.ReportModel{
		Title:         FallbackTitle,
		Summary:       fmt.Sprintf("General overview of %d departments and %d staff members. This is a fallback report with synthetic performance metrics for a report type without a dedicated generator.", len(departments), totalStaff),
		Rows:          rows,
		TotalsHeading: "Totals",
		Totals: []models.Stat{
			{Label: "Departments", Value: len(departments)},
			{Label: "Staff", Value: totalStaff},
		},
		Charts: []models.ChartSpec{
			{Type: models.ChartBar, Title: "Staff by Department"},
		},
		Fallback: true,
	}, nil
}
