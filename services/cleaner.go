package services

import (
	"math"
	"strings"
	"unicode"

	"adreport-forensics/models"
	"adreport-forensics/utils"
)

// MissingFieldPolicy decides what happens when the landing page quality
// columns are absent.
type MissingFieldPolicy string

const (
	// PolicyWarn keeps going with the quality metric fixed at 0.
	PolicyWarn MissingFieldPolicy = "warn"
	// PolicyFail aborts the run.
	PolicyFail MissingFieldPolicy = "fail"
)

// CleanResult is the output of one cleaning pass.
type CleanResult struct {
	Dataset *models.Dataset
	// Warning is set when the quality metric could not be computed.
	Warning *models.MissingFieldWarning
	// CoercionGaps counts cells per column that could not be read as numbers.
	CoercionGaps map[string]int
}

// Cleaner turns a raw report table into a noise-filtered Dataset.
type Cleaner struct {
	logger     *utils.Logger
	noiseFloor float64
	policy     MissingFieldPolicy
}

// NewCleaner creates a Cleaner dropping rows with impressions <= noiseFloor.
func NewCleaner(logger *utils.Logger, noiseFloor int, policy MissingFieldPolicy) *Cleaner {
	if policy == "" {
		policy = PolicyWarn
	}
	return &Cleaner{logger: logger, noiseFloor: float64(noiseFloor), policy: policy}
}

// Clean normalises every numeric column, derives the landing page view rate
// and drops low-volume rows. The input table is not modified.
func (c *Cleaner) Clean(table *models.Table) (*CleanResult, error) {
	cols := MapColumns(table.Columns)
	if missing := cols.Missing(RequiredFields...); len(missing) > 0 {
		return nil, &models.MalformedInputError{
			Source: table.Source,
			Reason: "required columns not found: " + strings.Join(missing, ", "),
		}
	}

	res := &CleanResult{CoercionGaps: make(map[string]int)}

	hasQuality := cols.Has(FieldLinkClicks) && cols.Has(FieldLandingPageViews)
	if !hasQuality {
		res.Warning = &models.MissingFieldWarning{
			Columns: cols.Missing(FieldLinkClicks, FieldLandingPageViews),
		}
		if c.policy == PolicyFail {
			return nil, res.Warning
		}
		c.logger.Warn("[cleaner] %s: %v", table.Source, res.Warning)
	}

	records := make([]models.Record, 0, table.Len())
	for i, row := range table.Rows {
		records = append(records, c.normaliseRow(i, row, cols, res.CoercionGaps))
	}
	for col, n := range res.CoercionGaps {
		c.logger.Debug("[cleaner] %s: %d unreadable cells in %s", table.Source, n, col)
	}

	DeriveLPViewRate(records, hasQuality)
	kept := FilterNoise(records, c.noiseFloor)

	c.logger.Info("[cleaner] %s: cleaned %d → %d rows (dropped %d at impressions <= %.0f)",
		table.Source, len(records), len(kept), len(records)-len(kept), c.noiseFloor)

	res.Dataset = models.NewDataset(table.Source, cols.Fields(), table.Len(), kept)
	return res, nil
}

func (c *Cleaner) normaliseRow(idx int, row []string, cols ColumnMap, gaps map[string]int) models.Record {
	num := func(f Field) float64 {
		i, ok := cols[f]
		if !ok {
			return math.NaN()
		}
		v := NormalizeValue(cell(row, i))
		if math.IsNaN(v) {
			gaps[string(f)]++
		}
		return v
	}
	text := func(f Field) string {
		i, ok := cols[f]
		if !ok {
			return ""
		}
		return normaliseText(cell(row, i))
	}

	return models.Record{
		Row:              idx,
		Day:              text(FieldDay),
		AdName:           text(FieldAdName),
		Impressions:      num(FieldImpressions),
		LinkClicks:       num(FieldLinkClicks),
		LandingPageViews: num(FieldLandingPageViews),
		CTR:              num(FieldCTR),
		CPM:              num(FieldCPM),
		Spend:            num(FieldSpend),
	}
}

// DeriveLPViewRate sets LPViewRate = views / clicks on every record. A row
// with no clicks gets exactly 0. When the source columns are unavailable
// every row gets 0.
func DeriveLPViewRate(records []models.Record, available bool) {
	for i := range records {
		r := &records[i]
		if !available || !(r.LinkClicks > 0) {
			r.LPViewRate = 0
			continue
		}
		r.LPViewRate = r.LandingPageViews / r.LinkClicks
	}
}

// FilterNoise keeps records with impressions strictly above floor, in order.
// Missing impressions never pass.
func FilterNoise(records []models.Record, floor float64) []models.Record {
	kept := make([]models.Record, 0, len(records))
	for _, r := range records {
		if r.Impressions > floor {
			kept = append(kept, r)
		}
	}
	return kept
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
