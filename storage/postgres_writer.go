package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	_ "github.com/lib/pq"

	"adreport-forensics/models"
	"adreport-forensics/utils"
)

const flaggedColumns = 13

// PostgresWriter persists analysis runs and their flagged rows to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter. The initial ping is retried.
func NewPostgresWriter(dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do("postgres ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_runs (
			id                UUID PRIMARY KEY,
			source            TEXT             NOT NULL,
			generated_at      TIMESTAMPTZ      NOT NULL,
			raw_rows          INTEGER          NOT NULL,
			clean_rows        INTEGER          NOT NULL,
			ctr_high          DOUBLE PRECISION NOT NULL,
			quality_low       DOUBLE PRECISION NOT NULL,
			imp_percentile    DOUBLE PRECISION NOT NULL,
			ctr_low           DOUBLE PRECISION NOT NULL,
			impression_cutoff DOUBLE PRECISION NOT NULL DEFAULT 0,
			ghost_count       INTEGER          NOT NULL DEFAULT 0,
			flooding_count    INTEGER          NOT NULL DEFAULT 0,
			baseline          JSONB            NOT NULL,
			warnings          TEXT             NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS flagged_rows (
			id                 SERIAL PRIMARY KEY,
			run_id             UUID        NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
			rule               VARCHAR(20) NOT NULL,
			rank               INTEGER     NOT NULL,
			row_index          INTEGER     NOT NULL,
			day                TEXT        NOT NULL DEFAULT '',
			ad_name            TEXT        NOT NULL DEFAULT '',
			impressions        DOUBLE PRECISION,
			link_clicks        DOUBLE PRECISION,
			landing_page_views DOUBLE PRECISION,
			ctr                DOUBLE PRECISION,
			lp_view_rate       DOUBLE PRECISION,
			cpm                DOUBLE PRECISION,
			spend              DOUBLE PRECISION
		);

		CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON analysis_runs(generated_at);
		CREATE INDEX IF NOT EXISTS idx_flagged_run_rule  ON flagged_rows(run_id, rule);
	`)
	return err
}

// WriteReport stores the run and all flagged rows in one transaction.
func (pw *PostgresWriter) WriteReport(r *models.AnalysisReport) error {
	baseline, err := json.Marshal(r.Baseline)
	if err != nil {
		return fmt.Errorf("postgres: encode baseline: %w", err)
	}

	tx, err := pw.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO analysis_runs (id, source, generated_at, raw_rows, clean_rows,
			ctr_high, quality_low, imp_percentile, ctr_low, impression_cutoff,
			ghost_count, flooding_count, baseline, warnings)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		r.RunID, r.Source, r.GeneratedAt, r.RawRows, r.CleanRows,
		r.Thresholds.CTRHigh, r.Thresholds.QualityLow, r.Thresholds.ImpPercentile, r.Thresholds.CTRLow,
		r.Result.Flooding.ImpressionCutoff,
		len(r.Result.GhostClicks.Records), len(r.Result.Flooding.Records),
		string(baseline), strings.Join(r.Warnings, "\n"),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert run: %w", err)
	}

	rows := flaggedRows(r)
	const batchSize = 50
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		query, args := insertFlaggedQuery(r.RunID, rows[i:end])
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("postgres: insert flagged rows: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

type flaggedRow struct {
	rule string
	rank int
	rec  models.Record
}

func flaggedRows(r *models.AnalysisReport) []flaggedRow {
	out := make([]flaggedRow, 0, len(r.Result.GhostClicks.Records)+len(r.Result.Flooding.Records))
	for i, rec := range r.Result.GhostClicks.Records {
		out = append(out, flaggedRow{RuleGhostClick, i + 1, rec})
	}
	for i, rec := range r.Result.Flooding.Records {
		out = append(out, flaggedRow{RuleFlooding, i + 1, rec})
	}
	return out
}

func insertFlaggedQuery(runID string, batch []flaggedRow) (string, []interface{}) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*flaggedColumns)

	for idx, f := range batch {
		base := idx * flaggedColumns
		ph := make([]string, flaggedColumns)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs,
			runID, f.rule, f.rank, f.rec.Row, f.rec.Day, f.rec.AdName,
			nullFloat(f.rec.Impressions), nullFloat(f.rec.LinkClicks), nullFloat(f.rec.LandingPageViews),
			nullFloat(f.rec.CTR), nullFloat(f.rec.LPViewRate), nullFloat(f.rec.CPM), nullFloat(f.rec.Spend))
	}

	query := fmt.Sprintf(`
		INSERT INTO flagged_rows (run_id, rule, rank, row_index, day, ad_name,
			impressions, link_clicks, landing_page_views, ctr, lp_view_rate, cpm, spend)
		VALUES %s
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

// RecentRuns returns the latest stored runs, newest first.
func (pw *PostgresWriter) RecentRuns(limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := pw.db.Query(`
		SELECT id, source, generated_at, clean_rows, ctr_high, quality_low,
			imp_percentile, ctr_low, ghost_count, flooding_count
		FROM analysis_runs
		ORDER BY generated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunSummary
	for rows.Next() {
		var s models.RunSummary
		if err := rows.Scan(
			&s.RunID, &s.Source, &s.GeneratedAt, &s.CleanRows,
			&s.Thresholds.CTRHigh, &s.Thresholds.QualityLow,
			&s.Thresholds.ImpPercentile, &s.Thresholds.CTRLow,
			&s.GhostCount, &s.FloodingCount,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
