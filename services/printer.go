package services

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"adreport-forensics/models"
)

// Output formats accepted by EncodeReport.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ReportPrinter renders an AnalysisReport for a terminal.
type ReportPrinter struct {
	out io.Writer
	top int
}

// NewReportPrinter creates a printer showing at most top rows per rule
// (0 shows every row).
func NewReportPrinter(out io.Writer, top int) *ReportPrinter {
	return &ReportPrinter{out: out, top: top}
}

func (p *ReportPrinter) Print(r *models.AnalysisReport) {
	sep := strings.Repeat("═", 72)
	thin := strings.Repeat("─", 72)
	w := p.out

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🕵  TRAFFIC ANOMALY REPORT: %s\033[0m\n", r.Source)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Rows read           : \033[1m%s\033[0m\n", humanize.Comma(int64(r.RawRows)))
	fmt.Fprintf(w, "  Rows analysed       : \033[1m%s\033[0m\n", humanize.Comma(int64(r.CleanRows)))
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  \033[33m⚠ %s\033[0m\n", warn)
	}
	if len(r.CoercionGaps) > 0 {
		cols := make([]string, 0, len(r.CoercionGaps))
		for c := range r.CoercionGaps {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		for _, c := range cols {
			fmt.Fprintf(w, "  Unreadable cells    : %s (%d)\n", c, r.CoercionGaps[c])
		}
	}
	fmt.Fprintln(w)

	if r.Empty() {
		fmt.Fprintf(w, "  No rows above the impression noise floor: nothing to analyse.\n")
		fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
		return
	}

	b := r.Baseline
	fmt.Fprintf(w, "\033[1;33m  Baseline\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  CTR mean / median   : %.2f%% / %.2f%%\n", b.MeanCTR, b.MedianCTR)
	fmt.Fprintf(w, "  CTR Q1 / Q3 (IQR)   : %.2f%% / %.2f%% (%.2f)\n", b.Q1CTR, b.Q3CTR, b.IQRCTR)
	fmt.Fprintf(w, "  LP view rate mean   : %.2f (std %.2f)\n", b.MeanQuality, b.StdQuality)
	fmt.Fprintf(w, "  Suggested           : ctr_high %.2f%% | quality_low %.2f | ctr_low %.2f%% | imp pct %.0f\n",
		b.CTRHighThreshold, b.QualityLowThreshold, b.CTRLowThreshold, b.ImpPercentileThreshold)
	fmt.Fprintln(w)

	g := r.Result.GhostClicks
	fmt.Fprintf(w, "\033[1;33m  Ghost clicks\033[0m  (ctr > %.2f%% and lp view rate < %.2f)\n", g.CTRHigh, g.QualityLow)
	fmt.Fprintf(w, "  %s\n", thin)
	p.printRows(g.Records, func(rec models.Record) string {
		return fmt.Sprintf("\033[1;31mCTR %6.2f%%\033[0m  LP %s", rec.CTR, formatRate(rec.LPViewRate))
	})
	fmt.Fprintln(w)

	f := r.Result.Flooding
	fmt.Fprintf(w, "\033[1;33m  Impression flooding\033[0m  (impressions > %s [p%.0f] and ctr < %.2f%%)\n",
		humanize.Commaf(math.Round(f.ImpressionCutoff)), f.ImpPercentile, f.CTRLow)
	fmt.Fprintf(w, "  %s\n", thin)
	p.printRows(f.Records, func(rec models.Record) string {
		return fmt.Sprintf("\033[1;31m%12s imp\033[0m  CTR %.2f%%", formatCount(rec.Impressions), rec.CTR)
	})

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func (p *ReportPrinter) printRows(records []models.Record, detail func(models.Record) string) {
	if len(records) == 0 {
		fmt.Fprintf(p.out, "  None flagged\n")
		return
	}
	shown := records
	if p.top > 0 && len(shown) > p.top {
		shown = shown[:p.top]
	}
	for i, rec := range shown {
		label := truncate(strings.TrimSpace(rec.Day+" "+rec.AdName), 36)
		fmt.Fprintf(p.out, "  \033[1m%2d.\033[0m %-38s %s\n", i+1, label, detail(rec))
	}
	if len(shown) < len(records) {
		fmt.Fprintf(p.out, "  … %d more\n", len(records)-len(shown))
	}
}

// EncodeReport writes r as json or yaml.
func EncodeReport(w io.Writer, format string, r *models.AnalysisReport) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func formatRate(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func formatCount(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return humanize.Comma(int64(math.Round(v)))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
