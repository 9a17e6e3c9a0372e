package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"adreport-forensics/config"
	"adreport-forensics/models"
	"adreport-forensics/services"
	"adreport-forensics/storage"
	"adreport-forensics/utils"
)

var (
	noiseFloor    int
	ctrHigh       float64
	qualityLow    float64
	impPercentile float64
	ctrLow        float64
	outputFormat  string
	csvOut        string
	storeRuns     bool
	topRows       int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [report.csv ...]",
	Short: "Detect ghost clicks and impression flooding in ad reports",
	Long: `Analyse one or more ad performance exports. Each file is cleaned,
baselined and classified on its own; files run concurrently.

Examples:
  adscan analyze report.csv
  adscan analyze report.csv --ctr-high 5 --quality-low 0.4
  adscan analyze june.csv july.csv --format json
  adscan analyze report.csv --csv-out findings.csv --store`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	f := analyzeCmd.Flags()
	f.IntVar(&noiseFloor, "noise-floor", 0, "Drop rows with impressions <= this value (default from config)")
	f.Float64Var(&ctrHigh, "ctr-high", 0, "Ghost clicks: CTR (%) must exceed this (default: suggested)")
	f.Float64Var(&qualityLow, "quality-low", 0, "Ghost clicks: LP view rate must be below this (default: suggested)")
	f.Float64Var(&impPercentile, "imp-percentile", 0, "Flooding: impressions must exceed this percentile (50-99)")
	f.Float64Var(&ctrLow, "ctr-low", 0, "Flooding: CTR (%) must be below this (default: suggested)")
	f.StringVarP(&outputFormat, "format", "o", services.FormatText, "Output format: text, json, yaml")
	f.StringVar(&csvOut, "csv-out", "", "Write flagged rows to this CSV file (overrides CSV_OUTPUT_PATH)")
	f.BoolVar(&storeRuns, "store", false, "Persist runs to PostgreSQL (overrides STORE_ENABLED)")
	f.IntVar(&topRows, "top", 20, "Rows shown per rule in text output (0 = all)")
}

type fileOutcome struct {
	report *models.AnalysisReport
	err    error
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	switch outputFormat {
	case services.FormatText, services.FormatJSON, services.FormatYAML:
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}

	analyzer := services.NewAnalyzer(logger, services.AnalyzerOptions{
		NoiseFloor:    cfg.NoiseFloorImpressions,
		ImpPercentile: cfg.ImpPercentileThreshold,
		Policy:        services.MissingFieldPolicy(cfg.MissingFieldPolicy),
		Fallback:      cfg.Fallback(),
	})

	writers, err := openWriters(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, w := range writers {
			if err := w.Close(); err != nil {
				logger.Error("Closing writer: %v", err)
			}
		}
	}()

	outcomes := analyzeFiles(analyzer, cfg, args, logger)

	var failed []error
	for i, path := range args {
		out := outcomes[i]
		if out.err != nil {
			logger.Error("%s: %v", path, out.err)
			failed = append(failed, fmt.Errorf("%s: %w", path, out.err))
			continue
		}
		if out.report == nil {
			continue
		}
		if err := render(cmd.OutOrStdout(), out.report); err != nil {
			return err
		}
		for _, w := range writers {
			if err := w.WriteReport(out.report); err != nil {
				logger.Error("Storing findings for %s failed: %v", path, err)
			}
		}
	}
	return errors.Join(failed...)
}

// analyzeFiles runs every file through its own analysis pass. Results keep
// argument order; a repeated path is analysed once.
func analyzeFiles(analyzer *services.Analyzer, cfg *config.Config, paths []string, logger *utils.Logger) []fileOutcome {
	outcomes := make([]fileOutcome, len(paths))
	seen := utils.NewPathSet()
	pool := utils.NewWorkerPool(cfg.MaxConcurrency)
	overrides := cfg.Overrides()

	for i, path := range paths {
		if !seen.Add(path) {
			logger.Warn("Skipping duplicate input %s", path)
			continue
		}
		i, path := i, path
		pool.Submit(func() {
			start := time.Now()
			table, err := storage.ReadTableFile(path)
			if err != nil {
				outcomes[i] = fileOutcome{err: err}
				return
			}
			report, err := analyzer.Analyze(table, overrides)
			outcomes[i] = fileOutcome{report: report, err: err}
			if err == nil {
				logger.Info("%s: %d ghost clicks, %d flooding rows in %v", path,
					len(report.Result.GhostClicks.Records), len(report.Result.Flooding.Records),
					time.Since(start).Round(time.Millisecond))
			}
		})
	}
	pool.Wait()
	return outcomes
}

// applyFlags lets explicitly set flags win over config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("noise-floor") {
		cfg.NoiseFloorImpressions = noiseFloor
	}
	if f.Changed("ctr-high") {
		v := ctrHigh
		cfg.CTRHighThreshold = &v
	}
	if f.Changed("quality-low") {
		v := qualityLow
		cfg.QualityLowThreshold = &v
	}
	if f.Changed("imp-percentile") {
		cfg.ImpPercentileThreshold = impPercentile
	}
	if f.Changed("ctr-low") {
		v := ctrLow
		cfg.CTRLowThreshold = &v
	}
	if f.Changed("csv-out") {
		cfg.CSVOutputPath = csvOut
	}
	if f.Changed("store") {
		cfg.StoreEnabled = storeRuns
	}
	return cfg.Validate()
}

func openWriters(cfg *config.Config, logger *utils.Logger) ([]storage.ReportWriter, error) {
	var writers []storage.ReportWriter
	if cfg.CSVOutputPath != "" {
		w, err := storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			return nil, err
		}
		logger.Info("Writing flagged rows to %s", cfg.CSVOutputPath)
		writers = append(writers, w)
	}
	if cfg.StoreEnabled {
		pg, err := openStore(cfg, logger)
		if err != nil {
			for _, w := range writers {
				_ = w.Close()
			}
			return nil, err
		}
		writers = append(writers, pg)
	}
	return writers, nil
}

func openStore(cfg *config.Config, logger *utils.Logger) (*storage.PostgresWriter, error) {
	retry := &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   time.Duration(cfg.RetryBaseMs) * time.Millisecond,
		Logger:      logger,
	}
	pg, err := storage.NewPostgresWriter(cfg.DSN(), retry)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		return nil, err
	}
	return pg, nil
}

func render(w io.Writer, r *models.AnalysisReport) error {
	if outputFormat == services.FormatText {
		services.NewReportPrinter(w, topRows).Print(r)
		return nil
	}
	return services.EncodeReport(w, outputFormat, r)
}
