package reporting

import (
	"context"
	"fmt"
	"strings"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

type appointmentStats struct {
	total     int
	completed int
	noShow    int
	pending   int
}

func (a appointmentStats) completionRate() float64 {
	return round1(percent(float64(a.completed), float64(a.total)))
}

func (a appointmentStats) noShowRate() float64 {
	return round1(percent(float64(a.noShow), float64(a.total)))
}

type departmentBeds struct {
	id       string
	name     string
	total    int
	occupied int
}

func (d departmentBeds) available() int {
	if d.occupied >= d.total {
		return 0
	}
	return d.total - d.occupied
}

func (d departmentBeds) occupancyRate() float64 {
	return round1(percent(float64(d.occupied), float64(d.total)))
}

func (s *Service) operationalReport(ctx context.Context, filters models.ReportFilters) (models.ReportModel, error) {
	appointments, err := s.store.ListAppointments(ctx, filters.DateRange)
	if err != nil {
		return models.ReportModel{}, fetchErr("appointments", err)
	}
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return models.ReportModel{}, fetchErr("rooms", err)
	}
	departments, err := s.store.ListDepartments(ctx)
	if err != nil {
		return models.ReportModel{}, fetchErr("departments", err)
	}

	stats := tallyAppointments(appointments)
	beds := bedsByDepartment(rooms, departments)

	var rows []models.Row
	var overall departmentBeds
	for _, d := range beds {
		overall.total += d.total
		overall.occupied += d.occupied
		if !filters.MatchesDepartment(d.id, d.name) {
			continue
		}
		rows = append(rows, models.Row{
			{Key: "department", Value: d.name},
			{Key: "occupancyRate", Value: d.occupancyRate()},
			{Key: "totalBeds", Value: d.total},
			{Key: "occupiedBeds", Value: d.occupied},
			{Key: "availableBeds", Value: d.available()},
		})
	}

	return models.ReportModel{
		Title: OperationalTitle,
		Summary: fmt.Sprintf("%d appointments in the period: %.1f%% completed, %.1f%% no-shows, %d pending. Overall bed occupancy %.1f%% (%d of %d beds).",
			stats.total, stats.completionRate(), stats.noShowRate(), stats.pending, overall.occupancyRate(), overall.occupied, overall.total),
		Rows:          rows,
		TotalsHeading: "Totals",
		Totals: []models.Stat{
			{Label: "Total Appointments", Value: stats.total},
			{Label: "Completion Rate (%)", Value: stats.completionRate()},
			{Label: "No-Show Rate (%)", Value: stats.noShowRate()},
			{Label: "Pending Appointments", Value: stats.pending},
			{Label: "Overall Occupancy (%)", Value: overall.occupancyRate()},
		},
		Charts: []models.ChartSpec{
			{Type: models.ChartBar, Title: "Bed Occupancy by Department"},
			{Type: models.ChartLine, Title: "Occupancy Trend"},
		},
	}, nil
}

func tallyAppointments(appointments []models.Appointment) appointmentStats {
	stats := appointmentStats{total: len(appointments)}
	for _, a := range appointments {
		switch strings.ToLower(strings.TrimSpace(a.Status)) {
		case "completed":
			stats.completed++
		case "no-show", "no_show", "noshow", "missed":
			stats.noShow++
		case "pending", "scheduled":
			stats.pending++
		}
	}
	return stats
}

func bedsByDepartment(rooms []models.Room, departments []models.Department) []departmentBeds {
	names := departmentNames(departments)
	byDept := map[string]*departmentBeds{}
	for _, r := range rooms {
		deptID := r.DepartmentID
		if _, ok := names[deptID]; !ok {
			deptID = ""
		}
		d, ok := byDept[deptID]
		if !ok {
			d = &departmentBeds{id: deptID, name: unknownDepartment}
			if name, known := names[deptID]; known {
				d.name = name
			}
			byDept[deptID] = d
		}
		d.total += r.Capacity
		d.occupied += r.Occupied
	}

	out := make([]departmentBeds, 0, len(byDept))
	for _, dept := range departments {
		if d, ok := byDept[dept.ID]; ok {
			out = append(out, *d)
		}
	}
	if d, ok := byDept[""]; ok {
		out = append(out, *d)
	}
	return out
}
