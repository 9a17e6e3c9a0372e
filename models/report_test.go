package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverridesResolve(t *testing.T) {
	b := BaselineStats{CTRHighThreshold: 7, QualityLowThreshold: 0.6, ImpPercentileThreshold: 75, CTRLowThreshold: 2}

	assert.Equal(t, Thresholds{CTRHigh: 7, QualityLow: 0.6, ImpPercentile: 75, CTRLow: 2}, ThresholdOverrides{}.Resolve(b))

	ctr, pct := 5.0, 90.0
	got := ThresholdOverrides{CTRHigh: &ctr, ImpPercentile: &pct}.Resolve(b)
	assert.Equal(t, Thresholds{CTRHigh: 5, QualityLow: 0.6, ImpPercentile: 90, CTRLow: 2}, got)
	assert.Equal(t, 7.0, b.CTRHighThreshold, "baseline is not touched")
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, Thresholds{CTRHigh: 4, QualityLow: 0.5, ImpPercentile: 75, CTRLow: 1.5}.Validate())
	assert.NoError(t, Thresholds{ImpPercentile: 0}.Validate())
	assert.NoError(t, Thresholds{ImpPercentile: 100}.Validate())

	for _, th := range []Thresholds{
		{ImpPercentile: -1},
		{ImpPercentile: 100.5},
		{ImpPercentile: math.NaN()},
		{CTRHigh: math.Inf(1), ImpPercentile: 75},
		{CTRLow: -0.1, ImpPercentile: 75},
	} {
		assert.ErrorIs(t, th.Validate(), ErrInvalidThreshold, "%+v", th)
	}
}

func TestDatasetIsImmutable(t *testing.T) {
	src := []Record{{AdName: "a", CTR: 1}, {AdName: "b", CTR: 2}}
	ds := NewDataset("x.csv", []string{"ctr"}, 2, src)

	src[0].CTR = 99
	assert.Equal(t, 1.0, ds.Records()[0].CTR)

	out := ds.Records()
	out[1].CTR = 42
	assert.Equal(t, 2.0, ds.Records()[1].CTR)

	assert.Equal(t, []float64{1, 2}, ds.Column(func(r Record) float64 { return r.CTR }))
}

func TestNilDataset(t *testing.T) {
	var ds *Dataset
	assert.True(t, ds.Empty())
	assert.Nil(t, ds.Records())
}

func TestRecordMarshalJSONMissingValues(t *testing.T) {
	data, err := json.Marshal(Record{AdName: "a", Impressions: 100, CTR: math.NaN(), LPViewRate: 1.2})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Nil(t, m["ctr"])
	assert.Equal(t, 100.0, m["impressions"])
	assert.Equal(t, 1.2, m["lp_view_rate"])
}

func TestErrors(t *testing.T) {
	err := &MalformedInputError{Source: "x.csv", Reason: "no header row"}
	assert.True(t, IsMalformedInput(err))
	assert.Equal(t, "malformed input x.csv: no header row", err.Error())

	w := &MissingFieldWarning{Columns: []string{"link_clicks"}}
	assert.Contains(t, w.Error(), "link_clicks")
	assert.False(t, IsMalformedInput(w))
}
