package storage

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"adreport-forensics/models"
)

// Rule names used in exported and stored findings.
const (
	RuleGhostClick = "ghost_click"
	RuleFlooding   = "flooding"
)

var findingsHeader = []string{
	"run_id", "source", "generated_at", "rule", "rank", "row", "day", "ad_name",
	"impressions", "link_clicks", "landing_page_views", "ctr", "lp_view_rate",
	"cpm", "spend", "criteria",
}

// CSVWriter writes flagged rows of analysis reports to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(findingsHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteReport appends one line per flagged record: ghost clicks first, then
// flooding, each in ranked order.
func (c *CSVWriter) WriteReport(r *models.AnalysisReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := r.Result.GhostClicks
	ghostCriteria := fmt.Sprintf("ctr>%g;lp_view_rate<%g", g.CTRHigh, g.QualityLow)
	for i, rec := range g.Records {
		if err := c.writer.Write(findingRow(r, RuleGhostClick, i+1, rec, ghostCriteria)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	f := r.Result.Flooding
	floodCriteria := fmt.Sprintf("impressions>%g(p%g);ctr<%g", f.ImpressionCutoff, f.ImpPercentile, f.CTRLow)
	for i, rec := range f.Records {
		if err := c.writer.Write(findingRow(r, RuleFlooding, i+1, rec, floodCriteria)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}

func findingRow(r *models.AnalysisReport, rule string, rank int, rec models.Record, criteria string) []string {
	return []string{
		r.RunID,
		r.Source,
		r.GeneratedAt.Format(time.RFC3339),
		rule,
		strconv.Itoa(rank),
		strconv.Itoa(rec.Row),
		rec.Day,
		rec.AdName,
		formatFloat(rec.Impressions),
		formatFloat(rec.LinkClicks),
		formatFloat(rec.LandingPageViews),
		formatFloat(rec.CTR),
		formatFloat(rec.LPViewRate),
		formatFloat(rec.CPM),
		formatFloat(rec.Spend),
		criteria,
	}
}

// formatFloat writes missing values as empty cells.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
