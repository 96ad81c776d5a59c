package reporting

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

const (
	genderSeries = "gender_distribution"
	ageSeries    = "age_groups"
)

var ageBuckets = []struct {
	label string
	max   int
}{
	{"0-18", 18},
	{"19-35", 35},
	{"36-50", 50},
	{"51-65", 65},
	{"66+", math.MaxInt},
}

type departmentOutcome struct {
	id          string
	name        string
	total       int
	successes   int
	readmission int
}

func (d departmentOutcome) successRate() float64 {
	return math.Round(percent(float64(d.successes), float64(d.total)))
}

func (d departmentOutcome) readmissionRate() float64 {
	return math.Round(percent(float64(d.readmission), float64(d.total)))
}

func (s *Service) clinicalReport(ctx context.Context, filters models.ReportFilters) (models.ReportModel, error) {
	patients, err := s.store.ListPatients(ctx)
	if err != nil {
		return models.ReportModel{}, fetchErr("patients", err)
	}
	records, err := s.store.ListMedicalRecords(ctx, filters.DateRange)
	if err != nil {
		return models.ReportModel{}, fetchErr("medical_records", err)
	}
	// the patient -> department link is not bounded by the report window
	appointments, err := s.store.ListAppointments(ctx, models.DateRange{})
	if err != nil {
		return models.ReportModel{}, fetchErr("appointments", err)
	}
	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return models.ReportModel{}, fetchErr("staff", err)
	}
	departments, err := s.store.ListDepartments(ctx)
	if err != nil {
		return models.ReportModel{}, fetchErr("departments", err)
	}

	genders, ages := s.demographics(patients)
	outcomes := departmentOutcomes(records, patientDepartments(appointments, staffDepartments(staff)), departments)

	var (
		rows                   []models.Row
		totalRecords           int
		successSum, readmitSum float64
	)
	for _, d := range outcomes {
		totalRecords += d.total
		successSum += d.successRate()
		readmitSum += d.readmissionRate()
		if !filters.MatchesDepartment(d.id, d.name) {
			continue
		}
		rows = append(rows, models.Row{
			{Key: "department", Value: d.name},
			{Key: "successRate", Value: d.successRate()},
			{Key: "patients", Value: d.total},
			{Key: "readmissionRate", Value: d.readmissionRate()},
		})
	}

	var avgSuccess, avgReadmit float64
	if len(outcomes) > 0 {
		avgSuccess = round1(successSum / float64(len(outcomes)))
		avgReadmit = round1(readmitSum / float64(len(outcomes)))
	}

	return models.ReportModel{
		Title: ClinicalTitle,
		Summary: fmt.Sprintf("%d medical records across %d departments for %d registered patients. Average treatment success rate %.1f%%, average readmission rate %.1f%%.",
			totalRecords, len(outcomes), len(patients), avgSuccess, avgReadmit),
		Rows:          rows,
		TotalsHeading: "Averages",
		Totals: []models.Stat{
			{Label: "Average Success Rate (%)", Value: avgSuccess},
			{Label: "Average Readmission Rate (%)", Value: avgReadmit},
			{Label: "Total Patients", Value: totalRecords},
		},
		Charts: []models.ChartSpec{
			{Type: models.ChartBar, Title: "Success Rate by Department"},
			{Type: models.ChartPie, Title: "Patient Gender Distribution", Series: genderSeries},
			{Type: models.ChartBar, Title: "Age Distribution", Series: ageSeries},
		},
		Series: map[string][]models.Point{
			genderSeries: genders,
			ageSeries:    ages,
		},
	}, nil
}

func (s *Service) demographics(patients []models.Patient) (genders, ages []models.Point) {
	genderCounts := map[string]int{}
	ageCounts := make([]int, len(ageBuckets))
	currentYear := s.now().Year()

	for _, p := range patients {
		genderCounts[genderLabel(p.Gender)]++

		if p.DateOfBirth.IsZero() {
			s.logger.Debug("skip patient without birth date", zap.String("patient_id", p.ID))
			continue
		}
		age := currentYear - p.DateOfBirth.Year()
		for i, bucket := range ageBuckets {
			if age <= bucket.max {
				ageCounts[i]++
				break
			}
		}
	}

	for _, label := range []string{"Male", "Female", "Other"} {
		genders = append(genders, models.Point{Label: label, Value: float64(genderCounts[label])})
	}
	for i, bucket := range ageBuckets {
		ages = append(ages, models.Point{Label: bucket.label, Value: float64(ageCounts[i])})
	}
	return genders, ages
}

func genderLabel(gender string) string {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "male", "m":
		return "Male"
	case "female", "f":
		return "Female"
	default:
		return "Other"
	}
}

// patientDepartments resolves patient -> department through appointment -> staff.
// The first linked appointment wins.
func patientDepartments(appointments []models.Appointment, staffDept map[string]string) map[string]string {
	lookup := make(map[string]string, len(appointments))
	for _, a := range appointments {
		if _, seen := lookup[a.PatientID]; seen {
			continue
		}
		if deptID, ok := staffDept[a.StaffID]; ok {
			lookup[a.PatientID] = deptID
		}
	}
	return lookup
}

func departmentOutcomes(records []models.MedicalRecord, patientDept map[string]string, departments []models.Department) []departmentOutcome {
	byDept := map[string]*departmentOutcome{}
	for _, r := range records {
		deptID := patientDept[r.PatientID]
		d, ok := byDept[deptID]
		if !ok {
			d = &departmentOutcome{id: deptID}
			byDept[deptID] = d
		}
		d.total++
		switch strings.ToLower(strings.TrimSpace(r.Outcome)) {
		case "improved", "cured":
			d.successes++
		}
		if r.Readmission {
			d.readmission++
		}
	}

	out := make([]departmentOutcome, 0, len(byDept))
	for _, dept := range departments {
		if d, ok := byDept[dept.ID]; ok && dept.ID != "" {
			d.name = dept.Name
			out = append(out, *d)
			delete(byDept, dept.ID)
		}
	}
	// records with no resolvable department, including links to unknown department ids
	unknown := departmentOutcome{id: "", name: unknownDepartment}
	for _, d := range byDept {
		unknown.total += d.total
		unknown.successes += d.successes
		unknown.readmission += d.readmission
	}
	if unknown.total > 0 {
		out = append(out, unknown)
	}
	return out
}
