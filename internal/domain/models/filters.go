package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AllDepartments disables department filtering.
const AllDepartments = "all"

const filterDateLayout = "2006-01-02"

// DateRange bounds a report. A nil bound is open.
type DateRange struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

// ReportFilters is the normalized filter set of a scheduled report.
type ReportFilters struct {
	DateRange        DateRange `json:"dateRange"`
	DepartmentFilter string    `json:"departmentFilter"`
	ReportTypeFilter string    `json:"reportTypeFilter"`
	IncludeSummary   bool      `json:"includeSummary"`
	IncludeTable     bool      `json:"includeTable"`
	IncludeCharts    bool      `json:"includeCharts"`
}

// DefaultFilters is used whenever a stored payload is missing or unreadable.
func DefaultFilters() ReportFilters {
	return ReportFilters{
		DepartmentFilter: AllDepartments,
		ReportTypeFilter: "all",
		IncludeSummary:   true,
		IncludeTable:     true,
		IncludeCharts:    true,
	}
}

// IsAllDepartments reports whether the department filter is disabled.
func (f ReportFilters) IsAllDepartments() bool {
	d := strings.TrimSpace(f.DepartmentFilter)
	return d == "" || strings.EqualFold(d, AllDepartments)
}

// MatchesDepartment reports whether a department passes the filter by id or name.
func (f ReportFilters) MatchesDepartment(id, name string) bool {
	if f.IsAllDepartments() {
		return true
	}
	want := strings.TrimSpace(f.DepartmentFilter)
	return strings.EqualFold(want, id) || strings.EqualFold(want, name)
}

// Contains reports whether t falls within the range. Open bounds always match.
func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// String renders the range for report headers.
func (r DateRange) String() string {
	from, to := "beginning", "now"
	if r.From != nil {
		from = r.From.Format(filterDateLayout)
	}
	if r.To != nil {
		to = r.To.Format(filterDateLayout)
	}
	if r.From == nil && r.To == nil {
		return "All time"
	}
	return from + " to " + to
}

// FilterParseError means a stored filter payload could not be decoded.
type FilterParseError struct {
	Payload string
	Err     error
}

func (e *FilterParseError) Error() string {
	return fmt.Sprintf("parse report filters: %v", e.Err)
}

func (e *FilterParseError) Unwrap() error { return e.Err }

type rawDateRange struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

type rawFilters struct {
	DateRange        *rawDateRange `json:"dateRange"`
	DepartmentFilter *string       `json:"departmentFilter"`
	ReportTypeFilter *string       `json:"reportTypeFilter"`
	IncludeSummary   *bool         `json:"includeSummary"`
	IncludeTable     *bool         `json:"includeTable"`
	IncludeCharts    *bool         `json:"includeCharts"`
}

// ParseFilters decodes and normalizes a stored filter payload. Legacy payloads
// without dateRange are completed with open bounds. On failure the default
// filter set is returned together with a *FilterParseError.
func ParseFilters(payload string) (ReportFilters, error) {
	filters := DefaultFilters()
	if strings.TrimSpace(payload) == "" {
		return filters, nil
	}

	var raw rawFilters
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return DefaultFilters(), &FilterParseError{Payload: payload, Err: err}
	}

	if raw.DateRange != nil {
		from, err := parseFilterDate(raw.DateRange.From)
		if err != nil {
			return DefaultFilters(), &FilterParseError{Payload: payload, Err: err}
		}
		to, err := parseFilterDate(raw.DateRange.To)
		if err != nil {
			return DefaultFilters(), &FilterParseError{Payload: payload, Err: err}
		}
		if to != nil && len(strings.TrimSpace(*raw.DateRange.To)) == len(filterDateLayout) {
			// a bare date includes the whole day
			end := to.Add(24*time.Hour - time.Nanosecond)
			to = &end
		}
		filters.DateRange = DateRange{From: from, To: to}
	}

	if raw.DepartmentFilter != nil && strings.TrimSpace(*raw.DepartmentFilter) != "" {
		filters.DepartmentFilter = strings.TrimSpace(*raw.DepartmentFilter)
	}
	if raw.ReportTypeFilter != nil && strings.TrimSpace(*raw.ReportTypeFilter) != "" {
		filters.ReportTypeFilter = strings.TrimSpace(*raw.ReportTypeFilter)
	}
	if raw.IncludeSummary != nil {
		filters.IncludeSummary = *raw.IncludeSummary
	}
	if raw.IncludeTable != nil {
		filters.IncludeTable = *raw.IncludeTable
	}
	if raw.IncludeCharts != nil {
		filters.IncludeCharts = *raw.IncludeCharts
	}

	return filters, nil
}

func parseFilterDate(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	str := strings.TrimSpace(*value)
	if str == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, str); err == nil {
		return &t, nil
	}
	t, err := time.Parse(filterDateLayout, str)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", str, err)
	}
	return &t, nil
}
