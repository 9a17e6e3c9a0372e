package models

import (
	"fmt"
	"math"
	"time"
)

// BaselineStats holds the distribution of the cleaned dataset and the
// thresholds it suggests. Suggestions are never applied directly: they are
// resolved against ThresholdOverrides into Thresholds.
type BaselineStats struct {
	MeanCTR          float64 `json:"mean_ctr" yaml:"mean_ctr"`
	MedianCTR        float64 `json:"median_ctr" yaml:"median_ctr"`
	Q1CTR            float64 `json:"q1_ctr" yaml:"q1_ctr"`
	Q3CTR            float64 `json:"q3_ctr" yaml:"q3_ctr"`
	IQRCTR           float64 `json:"iqr_ctr" yaml:"iqr_ctr"`
	CTRHighThreshold float64 `json:"ctr_high_threshold" yaml:"ctr_high_threshold"`

	MeanQuality         float64 `json:"mean_quality" yaml:"mean_quality"`
	StdQuality          float64 `json:"std_quality" yaml:"std_quality"`
	QualityLowThreshold float64 `json:"quality_low_threshold" yaml:"quality_low_threshold"`

	CTRLowThreshold        float64 `json:"ctr_low_threshold" yaml:"ctr_low_threshold"`
	ImpPercentileThreshold float64 `json:"imp_percentile_threshold" yaml:"imp_percentile_threshold"`

	// Suggested is false when the values are a caller fallback rather than
	// estimates from data (empty dataset).
	Suggested bool `json:"suggested" yaml:"suggested"`
}

// Thresholds are the active values the classifier runs with.
type Thresholds struct {
	CTRHigh       float64 `json:"ctr_high" yaml:"ctr_high"`
	QualityLow    float64 `json:"quality_low" yaml:"quality_low"`
	ImpPercentile float64 `json:"imp_percentile" yaml:"imp_percentile"`
	CTRLow        float64 `json:"ctr_low" yaml:"ctr_low"`
}

// Validate checks that every threshold is usable.
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"ctr_high":    t.CTRHigh,
		"quality_low": t.QualityLow,
		"ctr_low":     t.CTRLow,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidThreshold, name, v)
		}
	}
	if math.IsNaN(t.ImpPercentile) || t.ImpPercentile < 0 || t.ImpPercentile > 100 {
		return fmt.Errorf("%w: imp_percentile=%v must be within [0,100]", ErrInvalidThreshold, t.ImpPercentile)
	}
	return nil
}

// ThresholdOverrides are user-chosen values. A nil field falls back to the
// baseline suggestion.
type ThresholdOverrides struct {
	CTRHigh       *float64
	QualityLow    *float64
	ImpPercentile *float64
	CTRLow        *float64
}

// Resolve merges overrides over the baseline suggestions.
func (o ThresholdOverrides) Resolve(b BaselineStats) Thresholds {
	t := Thresholds{
		CTRHigh:       b.CTRHighThreshold,
		QualityLow:    b.QualityLowThreshold,
		ImpPercentile: b.ImpPercentileThreshold,
		CTRLow:        b.CTRLowThreshold,
	}
	if o.CTRHigh != nil {
		t.CTRHigh = *o.CTRHigh
	}
	if o.QualityLow != nil {
		t.QualityLow = *o.QualityLow
	}
	if o.ImpPercentile != nil {
		t.ImpPercentile = *o.ImpPercentile
	}
	if o.CTRLow != nil {
		t.CTRLow = *o.CTRLow
	}
	return t
}

// GhostClickSet holds rows with high CTR but poor landing page follow-through,
// ordered by CTR descending.
type GhostClickSet struct {
	CTRHigh    float64  `json:"ctr_high" yaml:"ctr_high"`
	QualityLow float64  `json:"quality_low" yaml:"quality_low"`
	Records    []Record `json:"records" yaml:"records"`
}

// FloodingSet holds rows with outsized impression volume and low CTR,
// ordered by impressions descending.
type FloodingSet struct {
	ImpPercentile    float64  `json:"imp_percentile" yaml:"imp_percentile"`
	ImpressionCutoff float64  `json:"impression_cutoff" yaml:"impression_cutoff"`
	CTRLow           float64  `json:"ctr_low" yaml:"ctr_low"`
	Records          []Record `json:"records" yaml:"records"`
}

// ClassificationResult is the output of both anomaly rules. A record may
// appear in both sets.
type ClassificationResult struct {
	GhostClicks GhostClickSet `json:"ghost_clicks" yaml:"ghost_clicks"`
	Flooding    FloodingSet   `json:"flooding" yaml:"flooding"`
}

// AnalysisReport is everything one analysis pass hands to its callers.
type AnalysisReport struct {
	RunID        string               `json:"run_id" yaml:"run_id"`
	Source       string               `json:"source" yaml:"source"`
	GeneratedAt  time.Time            `json:"generated_at" yaml:"generated_at"`
	RawRows      int                  `json:"raw_rows" yaml:"raw_rows"`
	CleanRows    int                  `json:"clean_rows" yaml:"clean_rows"`
	Baseline     BaselineStats        `json:"baseline" yaml:"baseline"`
	Thresholds   Thresholds           `json:"thresholds" yaml:"thresholds"`
	Result       ClassificationResult `json:"result" yaml:"result"`
	Warnings     []string             `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	CoercionGaps map[string]int       `json:"coercion_gaps,omitempty" yaml:"coercion_gaps,omitempty"`
}

// Empty reports whether no rows survived cleaning ("no data" state).
func (r *AnalysisReport) Empty() bool {
	return r.CleanRows == 0
}

// RunSummary is one stored analysis run, as listed by the history command.
type RunSummary struct {
	RunID         string     `json:"run_id" yaml:"run_id"`
	Source        string     `json:"source" yaml:"source"`
	GeneratedAt   time.Time  `json:"generated_at" yaml:"generated_at"`
	CleanRows     int        `json:"clean_rows" yaml:"clean_rows"`
	Thresholds    Thresholds `json:"thresholds" yaml:"thresholds"`
	GhostCount    int        `json:"ghost_count" yaml:"ghost_count"`
	FloodingCount int        `json:"flooding_count" yaml:"flooding_count"`
}
