package reporting

import (
	"context"
	"fmt"
	"strings"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

// Department revenue is an estimate spread by appointment volume; expenses and
// profit are fixed 75/25 shares of that estimate, not ledger figures.
const (
	expenseShare = 0.75
	profitShare  = 0.25
)

const paymentDistributionSeries = "payment_distribution"

// Payment buckets in display order.
const (
	paymentInsurance  = "Insurance"
	paymentGovernment = "Government"
	paymentOutOfPock  = "Out-of-Pocket"
	paymentOther      = "Other"
)

var paymentKeywords = []struct {
	bucket   string
	keywords []string
}{
	{paymentInsurance, []string{"insurance", "insur"}},
	{paymentGovernment, []string{"medicare", "medicaid", "government", "gov"}},
	{paymentOutOfPock, []string{"cash", "card", "self", "pocket", "debit", "credit"}},
}

type financialTotals struct {
	revenue     float64
	outstanding float64
	paid        float64
}

func (t financialTotals) collectionRate() float64 {
	return round1(percent(t.paid, t.revenue))
}

type departmentFinance struct {
	id           string
	name         string
	appointments int
	revenue      float64
}

func (s *Service) financialReport(ctx context.Context, filters models.ReportFilters) (models.ReportModel, error) {
	bills, err := s.store.ListBilling(ctx, filters.DateRange)
	if err != nil {
		return models.ReportModel{}, fetchErr("billing", err)
	}
	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return models.ReportModel{}, fetchErr("staff", err)
	}
	appointments, err := s.store.ListAppointments(ctx, filters.DateRange)
	if err != nil {
		return models.ReportModel{}, fetchErr("appointments", err)
	}
	departments, err := s.store.ListDepartments(ctx)
	if err != nil {
		return models.ReportModel{}, fetchErr("departments", err)
	}

	totals := sumBilling(bills)
	perDept := departmentRevenue(totals.revenue, departments, staffDepartments(staff), appointments)

	rows := make([]models.Row, 0, len(perDept))
	for _, d := range perDept {
		if !filters.MatchesDepartment(d.id, d.name) {
			continue
		}
		rows = append(rows, models.Row{
			{Key: "department", Value: d.name},
			{Key: "appointments", Value: d.appointments},
			{Key: "revenue", Value: round2(d.revenue)},
			{Key: "expenses", Value: round2(d.revenue * expenseShare)},
			{Key: "profit", Value: round2(d.revenue * profitShare)},
		})
	}

	return models.ReportModel{
		Title: FinancialTitle,
		Summary: fmt.Sprintf("Total revenue of %.2f across %d invoices with a collection rate of %.1f%%. Paid: %.2f, outstanding: %.2f. Department revenue, expenses and profit are estimates based on appointment volume.",
			round2(totals.revenue), len(bills), totals.collectionRate(), round2(totals.paid), round2(totals.outstanding)),
		Rows:          rows,
		TotalsHeading: "Totals",
		Totals: []models.Stat{
			{Label: "Total Revenue", Value: round2(totals.revenue)},
			{Label: "Outstanding Bills", Value: round2(totals.outstanding)},
			{Label: "Paid Bills", Value: round2(totals.paid)},
			{Label: "Collection Rate (%)", Value: totals.collectionRate()},
		},
		Charts: []models.ChartSpec{
			{Type: models.ChartBar, Title: "Revenue by Department"},
			{Type: models.ChartPie, Title: "Payment Distribution", Series: paymentDistributionSeries},
		},
		Series: map[string][]models.Point{
			paymentDistributionSeries: paymentDistribution(bills),
		},
	}, nil
}

func sumBilling(bills []models.BillingRecord) financialTotals {
	var totals financialTotals
	for _, b := range bills {
		totals.revenue += b.Amount
		switch strings.ToLower(strings.TrimSpace(b.Status)) {
		case "pending":
			totals.outstanding += b.Amount
		case "paid":
			totals.paid += b.Amount
		}
	}
	return totals
}

func departmentRevenue(totalRevenue float64, departments []models.Department, staffDept map[string]string, appointments []models.Appointment) []departmentFinance {
	counts := make(map[string]int, len(departments))
	for _, a := range appointments {
		if deptID, ok := staffDept[a.StaffID]; ok {
			counts[deptID]++
		}
	}

	var perAppointment float64
	if len(appointments) > 0 {
		perAppointment = totalRevenue / float64(len(appointments))
	}

	out := make([]departmentFinance, 0, len(departments))
	for _, d := range departments {
		out = append(out, departmentFinance{
			id:           d.ID,
			name:         d.Name,
			appointments: counts[d.ID],
			revenue:      perAppointment * float64(counts[d.ID]),
		})
	}
	return out
}

func paymentBucket(method string) string {
	m := strings.ToLower(method)
	for _, group := range paymentKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(m, kw) {
				return group.bucket
			}
		}
	}
	return paymentOther
}

func paymentDistribution(bills []models.BillingRecord) []models.Point {
	sums := map[string]float64{}
	var total float64
	for _, b := range bills {
		sums[paymentBucket(b.PaymentMethod)] += b.Amount
		total += b.Amount
	}

	buckets := []string{paymentInsurance, paymentGovernment, paymentOutOfPock, paymentOther}
	points := make([]models.Point, 0, len(buckets))
	for _, bucket := range buckets {
		points = append(points, models.Point{Label: bucket, Value: round1(percent(sums[bucket], total))})
	}
	return points
}
