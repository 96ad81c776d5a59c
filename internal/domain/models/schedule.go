package models

import (
	"strings"
	"time"
)

// Category identifies which aggregation a scheduled report runs.
type Category string

const (
	CategoryFinancial   Category = "financial"
	CategoryClinical    Category = "clinical"
	CategoryOperational Category = "operational"
	CategoryCompliance  Category = "compliance"
	CategoryOther       Category = "other"
)

// ParseCategory maps a stored category string to a known Category.
// Anything unrecognized becomes CategoryOther.
func ParseCategory(value string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(value))) {
	case CategoryFinancial:
		return CategoryFinancial
	case CategoryClinical:
		return CategoryClinical
	case CategoryOperational:
		return CategoryOperational
	case CategoryCompliance:
		return CategoryCompliance
	default:
		return CategoryOther
	}
}

// Frequency controls how far next_run advances after a successful run.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// Format is the requested output encoding of a scheduled report.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatCSV   Format = "csv"
	FormatHTML  Format = "html"
	FormatExcel Format = "excel"
	FormatXLSX  Format = "xlsx"
)

// ParseFormat normalizes the stored format. Empty or unknown values fall back to PDF.
func ParseFormat(value string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatCSV:
		return FormatCSV
	case FormatHTML:
		return FormatHTML
	case FormatExcel:
		return FormatExcel
	case FormatXLSX:
		return FormatXLSX
	default:
		return FormatPDF
	}
}

// ScheduledReport is a persisted report schedule row. The pipeline only writes
// LastRun and NextRun.
type ScheduledReport struct {
	ID         string     `bson:"_id" json:"id"`
	UserID     string     `bson:"user_id" json:"user_id"`
	Name       string     `bson:"name" json:"name"`
	ReportType string     `bson:"report_type" json:"report_type"`
	Frequency  Frequency  `bson:"frequency" json:"frequency"`
	Recipients []string   `bson:"recipients" json:"recipients"`
	Filters    string     `bson:"filters" json:"filters"`
	Format     string     `bson:"format" json:"format"`
	LastRun    *time.Time `bson:"last_run,omitempty" json:"last_run,omitempty"`
	NextRun    time.Time  `bson:"next_run" json:"next_run"`
}

// Category returns the typed report category of the schedule.
func (s ScheduledReport) Category() Category {
	return ParseCategory(s.ReportType)
}

// DispatchResult is the per-schedule outcome returned by the trigger.
type DispatchResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Format  string `json:"format"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RunSummary aggregates every attempted schedule of one invocation.
type RunSummary struct {
	RunID     string           `json:"run_id"`
	StartedAt time.Time        `json:"started_at"`
	Processed int              `json:"processed"`
	Results   []DispatchResult `json:"results"`
}
