package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adreport-forensics/models"
)

func dataset(recs ...models.Record) *models.Dataset {
	for i := range recs {
		recs[i].Row = i
	}
	return models.NewDataset("test.csv", nil, len(recs), recs)
}

func TestQuantileLinearInterpolation(t *testing.T) {
	tests := []struct {
		values []float64
		p      float64
		want   float64
	}{
		{[]float64{1, 2, 3, 4}, 0.75, 3.25},
		{[]float64{4, 3, 2, 1}, 0.5, 2.5},
		{[]float64{1, 2, 3, 4}, 0.25, 1.75},
		{[]float64{500, 1000}, 0.75, 875},
		{[]float64{5}, 0.9, 5},
		{[]float64{1, 2, 3}, 0, 1},
		{[]float64{1, 2, 3}, 1, 3},
		{[]float64{1, math.NaN(), 3}, 0.5, 2},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, Quantile(tt.values, tt.p), 1e-12, "Quantile(%v, %v)", tt.values, tt.p)
	}
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestQuantileDoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Quantile(values, 0.5)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestBaselineEstimate(t *testing.T) {
	ds := dataset(
		models.Record{Impressions: 100, CTR: 4, LPViewRate: 0.6},
		models.Record{Impressions: 100, CTR: 1, LPViewRate: 0.9},
		models.Record{Impressions: 100, CTR: 10, LPViewRate: 0.5},
		models.Record{Impressions: 100, CTR: 2, LPViewRate: 0.8},
		models.Record{Impressions: 100, CTR: 3, LPViewRate: 0.7},
	)

	b, ok := NewBaselineEstimator(75).Estimate(ds)
	require.True(t, ok)

	assert.InDelta(t, 4.0, b.MeanCTR, 1e-12)
	assert.InDelta(t, 3.0, b.MedianCTR, 1e-12)
	assert.InDelta(t, 2.0, b.Q1CTR, 1e-12)
	assert.InDelta(t, 4.0, b.Q3CTR, 1e-12)
	assert.InDelta(t, 2.0, b.IQRCTR, 1e-12)
	assert.InDelta(t, 7.0, b.CTRHighThreshold, 1e-12)

	assert.InDelta(t, 0.7, b.MeanQuality, 1e-12)
	assert.InDelta(t, math.Sqrt(0.025), b.StdQuality, 1e-12)
	assert.InDelta(t, 0.7-0.5*math.Sqrt(0.025), b.QualityLowThreshold, 1e-12)

	assert.InDelta(t, 2.0, b.CTRLowThreshold, 1e-12)
	assert.Equal(t, 75.0, b.ImpPercentileThreshold)
	assert.True(t, b.Suggested)
}

func TestBaselineQualityClamp(t *testing.T) {
	low := dataset(
		models.Record{CTR: 1, LPViewRate: 0},
		models.Record{CTR: 2, LPViewRate: 0},
	)
	b, ok := NewBaselineEstimator(90).Estimate(low)
	require.True(t, ok)
	assert.Equal(t, 0.3, b.QualityLowThreshold)

	high := dataset(
		models.Record{CTR: 1, LPViewRate: 1.0},
		models.Record{CTR: 2, LPViewRate: 1.2},
	)
	b, ok = NewBaselineEstimator(90).Estimate(high)
	require.True(t, ok)
	assert.Equal(t, 0.8, b.QualityLowThreshold)
}

func TestBaselineCTRLowFloor(t *testing.T) {
	ds := dataset(
		models.Record{CTR: 0.1, LPViewRate: 0.5},
		models.Record{CTR: 0.2, LPViewRate: 0.5},
		models.Record{CTR: 0.3, LPViewRate: 0.5},
	)
	b, ok := NewBaselineEstimator(75).Estimate(ds)
	require.True(t, ok)
	assert.InDelta(t, 0.15, b.Q1CTR, 1e-12)
	assert.Equal(t, 0.5, b.CTRLowThreshold)
}

func TestBaselineSingleRow(t *testing.T) {
	b, ok := NewBaselineEstimator(75).Estimate(dataset(models.Record{CTR: 3, LPViewRate: 0.6}))
	require.True(t, ok)
	assert.Equal(t, 0.0, b.StdQuality)
	assert.InDelta(t, 0.6, b.QualityLowThreshold, 1e-12)
	assert.Equal(t, 3.0, b.CTRHighThreshold)
}

func TestBaselineIgnoresMissingValues(t *testing.T) {
	ds := dataset(
		models.Record{CTR: 2, LPViewRate: 0.5},
		models.Record{CTR: math.NaN(), LPViewRate: math.NaN()},
		models.Record{CTR: 4, LPViewRate: 0.7},
	)
	b, ok := NewBaselineEstimator(75).Estimate(ds)
	require.True(t, ok)
	assert.InDelta(t, 3.0, b.MeanCTR, 1e-12)
	assert.InDelta(t, 0.6, b.MeanQuality, 1e-12)
	assert.False(t, math.IsNaN(b.QualityLowThreshold))
}

func TestBaselineNoCTRValues(t *testing.T) {
	_, ok := NewBaselineEstimator(75).Estimate(dataset(models.Record{CTR: math.NaN()}))
	assert.False(t, ok)
}
