package services

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"adreport-forensics/models"
)

const (
	// tukeyFence is the IQR multiplier of the classic outlier fence.
	tukeyFence = 1.5

	qualityStdWeight = 0.5
	qualityFloor     = 0.3
	qualityCeiling   = 0.8

	// ctrLowFloor keeps the flooding CTR ceiling from being suggested below 0.5%.
	ctrLowFloor = 0.5
)

// BaselineEstimator derives suggested thresholds from the dataset's own
// distribution.
type BaselineEstimator struct {
	impPercentile float64
}

// NewBaselineEstimator creates an estimator. impPercentile is the fixed
// "top X% by impressions" default it reports; it is not derived from data.
func NewBaselineEstimator(impPercentile float64) *BaselineEstimator {
	return &BaselineEstimator{impPercentile: impPercentile}
}

// Estimate computes BaselineStats. ok is false when the dataset has no
// usable CTR values; callers must then fall back to their own defaults.
func (e *BaselineEstimator) Estimate(ds *models.Dataset) (b models.BaselineStats, ok bool) {
	ctr := finite(ds.Column(func(r models.Record) float64 { return r.CTR }))
	if len(ctr) == 0 {
		return models.BaselineStats{}, false
	}
	sort.Float64s(ctr)

	b.MeanCTR = stat.Mean(ctr, nil)
	b.MedianCTR = QuantileSorted(ctr, 0.5)
	b.Q1CTR = QuantileSorted(ctr, 0.25)
	b.Q3CTR = QuantileSorted(ctr, 0.75)
	b.IQRCTR = b.Q3CTR - b.Q1CTR
	b.CTRHighThreshold = b.Q3CTR + tukeyFence*b.IQRCTR

	quality := finite(ds.Column(func(r models.Record) float64 { return r.LPViewRate }))
	switch len(quality) {
	case 0:
	case 1:
		b.MeanQuality = quality[0]
	default:
		b.MeanQuality = stat.Mean(quality, nil)
		b.StdQuality = stat.StdDev(quality, nil)
	}
	b.QualityLowThreshold = clamp(b.MeanQuality-qualityStdWeight*b.StdQuality, qualityFloor, qualityCeiling)

	b.CTRLowThreshold = math.Max(ctrLowFloor, b.Q1CTR)
	b.ImpPercentileThreshold = e.impPercentile
	b.Suggested = true
	return b, true
}

// Quantile returns the p-quantile (0 <= p <= 1) of values using linear
// interpolation between closest ranks: h = (n-1)p. NaN values are ignored.
// It returns NaN when no finite value is present.
func Quantile(values []float64, p float64) float64 {
	xs := finite(values)
	if len(xs) == 0 {
		return math.NaN()
	}
	sort.Float64s(xs)
	return QuantileSorted(xs, p)
}

// QuantileSorted is Quantile for an already sorted, NaN-free slice.
func QuantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 1:
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// finite returns a fresh slice with NaN and infinite values removed.
func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
