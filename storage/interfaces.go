package storage

import "adreport-forensics/models"

// ReportWriter is the interface any findings backend must satisfy.
type ReportWriter interface {
	WriteReport(report *models.AnalysisReport) error
	Close() error
}

// RunLister lists previously stored analysis runs.
type RunLister interface {
	RecentRuns(limit int) ([]models.RunSummary, error)
}
