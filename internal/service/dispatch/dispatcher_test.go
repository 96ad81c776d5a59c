package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
	"github.com/mamadbah2/hospital-reports/internal/service/rendering"
	"github.com/mamadbah2/hospital-reports/internal/service/reporting"
)

var fixedNow = time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)

type memoryStore struct {
	schedules map[string]*models.ScheduledReport
	order     []string
	dueErr    error
	markErr   error
}

func newMemoryStore(items ...models.ScheduledReport) *memoryStore {
	s := &memoryStore{schedules: map[string]*models.ScheduledReport{}}
	for i := range items {
		item := items[i]
		s.schedules[item.ID] = &item
		s.order = append(s.order, item.ID)
	}
	return s
}

func (m *memoryStore) DueSchedules(_ context.Context, now time.Time) ([]models.ScheduledReport, error) {
	if m.dueErr != nil {
		return nil, m.dueErr
	}
	var due []models.ScheduledReport
	for _, id := range m.order {
		if s := m.schedules[id]; !s.NextRun.After(now) {
			due = append(due, *s)
		}
	}
	return due, nil
}

func (m *memoryStore) MarkRun(_ context.Context, id string, lastRun, nextRun time.Time) error {
	if m.markErr != nil {
		return m.markErr
	}
	s := m.schedules[id]
	s.LastRun = &lastRun
	s.NextRun = nextRun
	return nil
}

type fakeAggregator struct {
	failFor map[models.Category]error
	seen    []models.ReportFilters
}

func (f *fakeAggregator) Generate(_ context.Context, category models.Category, filters models.ReportFilters) (models.ReportModel, error) {
	f.seen = append(f.seen, filters)
	if err := f.failFor[category]; err != nil {
		return models.ReportModel{}, err
	}
	return models.ReportModel{
		Title:         "Report " + string(category),
		GeneratedAt:   fixedNow,
		Summary:       "All systems nominal.",
		Rows:          []models.Row{{{Key: "department", Value: "Cardiology"}, {Key: "revenue", Value: 120.0}}},
		TotalsHeading: "Totals",
		Totals:        []models.Stat{{Label: "Total Revenue", Value: 120.0}},
	}, nil
}

type fakeMailer struct {
	sent []models.MailMessage
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg models.MailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newTestDispatcher(store *memoryStore, agg *fakeAggregator, mail *fakeMailer) *Dispatcher {
	d := NewDispatcher(Dependencies{
		Schedules:  store,
		Aggregator: agg,
		Renderers:  rendering.NewRegistry(nil),
		Mail:       mail,
	}, nil)
	d.now = func() time.Time { return fixedNow }
	d.newRunID = func() string { return "run-1" }
	return d
}

func schedules() []models.ScheduledReport {
	past := fixedNow.Add(-time.Hour)
	return []models.ScheduledReport{
		{ID: "s1", Name: "Monthly Finance", ReportType: "financial", Frequency: models.FrequencyMonthly, Recipients: []string{"cfo@example.org"}, Format: "csv", NextRun: past},
		{ID: "s2", Name: "Clinical Weekly", ReportType: "clinical", Frequency: models.FrequencyWeekly, Recipients: []string{"cmo@example.org"}, Format: "pdf", NextRun: past},
		{ID: "s3", Name: "Ops Daily", ReportType: "operational", Frequency: models.FrequencyDaily, Recipients: []string{"coo@example.org"}, Format: "html", NextRun: past},
	}
}

func TestRunIsolatesItemFailures(t *testing.T) {
	store := newMemoryStore(schedules()...)
	agg := &fakeAggregator{failFor: map[models.Category]error{
		models.CategoryClinical: &reporting.DataFetchError{Source: "medical_records", Err: errors.New("timeout")},
	}}
	mail := &fakeMailer{}

	summary, err := newTestDispatcher(store, agg, mail).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 3, summary.Processed)
	require.Len(t, summary.Results, 3)

	assert.True(t, summary.Results[0].Success)
	assert.False(t, summary.Results[1].Success)
	assert.Contains(t, summary.Results[1].Error, "fetch medical_records")
	assert.True(t, summary.Results[2].Success)
	assert.Len(t, mail.sent, 2)

	assert.Equal(t, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), store.schedules["s1"].NextRun)
	assert.Equal(t, fixedNow, *store.schedules["s1"].LastRun)
	assert.Nil(t, store.schedules["s2"].LastRun)
	assert.Equal(t, fixedNow.Add(-time.Hour), store.schedules["s2"].NextRun)
	assert.Equal(t, time.Date(2024, 5, 21, 8, 0, 0, 0, time.UTC), store.schedules["s3"].NextRun)
}

func TestRunOnlyRetriesFailedSchedules(t *testing.T) {
	store := newMemoryStore(schedules()...)
	agg := &fakeAggregator{failFor: map[models.Category]error{
		models.CategoryClinical: &reporting.DataFetchError{Source: "patients", Err: errors.New("down")},
	}}
	d := newTestDispatcher(store, agg, &fakeMailer{})

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "s2", summary.Results[0].ID)
}

func TestRunRecoversUnreadableFilters(t *testing.T) {
	item := schedules()[0]
	item.Filters = "{not json"
	store := newMemoryStore(item)
	agg := &fakeAggregator{}

	summary, err := newTestDispatcher(store, agg, &fakeMailer{}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.True(t, summary.Results[0].Success)
	require.Len(t, agg.seen, 1)
	assert.Equal(t, models.DefaultFilters(), agg.seen[0])
}

func TestRunDeliveryFailureKeepsScheduleDue(t *testing.T) {
	item := schedules()[0]
	store := newMemoryStore(item)
	mail := &fakeMailer{err: errors.New("relay unavailable")}

	summary, err := newTestDispatcher(store, &fakeAggregator{}, mail).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.False(t, summary.Results[0].Success)
	assert.Contains(t, summary.Results[0].Error, "relay unavailable")
	assert.Nil(t, store.schedules["s1"].LastRun)
	assert.Equal(t, item.NextRun, store.schedules["s1"].NextRun)
}

func TestRunTimestampFailureIsItemFailure(t *testing.T) {
	store := newMemoryStore(schedules()[0])
	store.markErr = errors.New("write conflict")
	mail := &fakeMailer{}

	summary, err := newTestDispatcher(store, &fakeAggregator{}, mail).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, mail.sent, 1)
	require.Len(t, summary.Results, 1)
	assert.False(t, summary.Results[0].Success)
	assert.Contains(t, summary.Results[0].Error, "write conflict")
}

func TestRunDueSetFailure(t *testing.T) {
	store := newMemoryStore()
	store.dueErr = errors.New("no reachable servers")

	_, err := newTestDispatcher(store, &fakeAggregator{}, &fakeMailer{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reachable servers")
}

func TestRunRejectsOverlap(t *testing.T) {
	d := newTestDispatcher(newMemoryStore(), &fakeAggregator{}, &fakeMailer{})
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestRunUnknownFormatFallsBackToPDF(t *testing.T) {
	item := schedules()[0]
	item.Format = "docx"
	mail := &fakeMailer{}

	summary, err := newTestDispatcher(newMemoryStore(item), &fakeAggregator{}, mail).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "pdf", summary.Results[0].Format)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "Monthly_Finance.pdf", mail.sent[0].Attachments[0].Filename)
}

func TestComposeMessage(t *testing.T) {
	item := schedules()[0]
	report, err := (&fakeAggregator{}).Generate(context.Background(), models.CategoryFinancial, models.DefaultFilters())
	require.NoError(t, err)

	msg, err := composeMessage(item, report, models.RenderedReport{Data: []byte("a,b"), Extension: "csv"})
	require.NoError(t, err)

	assert.Equal(t, []string{"cfo@example.org"}, msg.To)
	assert.Equal(t, "Scheduled Report: Monthly Finance", msg.Subject)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "Monthly_Finance.csv", msg.Attachments[0].Filename)
	assert.Equal(t, []byte("a,b"), msg.Attachments[0].Data)

	assert.Contains(t, msg.Text, "All systems nominal.")
	assert.Contains(t, msg.Text, "Total Revenue")
	assert.True(t, strings.Contains(msg.Text, "120 |"), msg.Text)
	assert.Contains(t, msg.HTML, "<h2 style=\"font-size:18px;\">Monthly Finance</h2>")
}

func TestAttachmentName(t *testing.T) {
	tests := map[string]string{
		"Monthly Finance":        "Monthly_Finance.pdf",
		"  Q1/Q2 risk: review ":  "Q1_Q2_risk_review.pdf",
		"../../etc/passwd":       "etc_passwd.pdf",
		"":                       "report.pdf",
		"Compliance & Risk 2024": "Compliance_Risk_2024.pdf",
	}
	for in, want := range tests {
		assert.Equal(t, want, AttachmentName(in, "pdf"), in)
	}
}
