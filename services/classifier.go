package services

import (
	"sort"

	"adreport-forensics/models"
	"adreport-forensics/utils"
)

// Classifier applies the ghost-click and impression-flooding rules.
type Classifier struct {
	logger *utils.Logger
}

// NewClassifier creates a Classifier with the given logger.
func NewClassifier(logger *utils.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify evaluates both rules against ds with the given thresholds. The
// rules are independent: a record may land in both sets. Records are copied,
// never modified.
func (c *Classifier) Classify(ds *models.Dataset, t models.Thresholds) (models.ClassificationResult, error) {
	if err := t.Validate(); err != nil {
		return models.ClassificationResult{}, err
	}
	res := models.ClassificationResult{
		GhostClicks: GhostClicks(ds, t.CTRHigh, t.QualityLow),
		Flooding:    Flooding(ds, t.ImpPercentile, t.CTRLow),
	}
	c.logger.Debug("[classifier] %d rows: %d ghost clicks (ctr > %.2f, lp rate < %.2f), %d flooding (impressions > %.0f, ctr < %.2f)",
		ds.Len(), len(res.GhostClicks.Records), t.CTRHigh, t.QualityLow,
		len(res.Flooding.Records), res.Flooding.ImpressionCutoff, t.CTRLow)
	return res, nil
}

// GhostClicks flags rows with ctr > ctrHigh and lp_view_rate < qualityLow,
// sorted by CTR descending with input order kept on ties.
func GhostClicks(ds *models.Dataset, ctrHigh, qualityLow float64) models.GhostClickSet {
	set := models.GhostClickSet{CTRHigh: ctrHigh, QualityLow: qualityLow, Records: []models.Record{}}
	ds.Each(func(r models.Record) {
		if r.CTR > ctrHigh && r.LPViewRate < qualityLow {
			set.Records = append(set.Records, r)
		}
	})
	sort.SliceStable(set.Records, func(i, j int) bool {
		return set.Records[i].CTR > set.Records[j].CTR
	})
	return set
}

// Flooding flags rows whose impressions exceed the impPercentile-th
// percentile of the dataset and whose ctr is below ctrLow, sorted by
// impressions descending with input order kept on ties.
func Flooding(ds *models.Dataset, impPercentile, ctrLow float64) models.FloodingSet {
	set := models.FloodingSet{ImpPercentile: impPercentile, CTRLow: ctrLow, Records: []models.Record{}}
	if ds.Empty() {
		return set
	}

	cutoff := Quantile(ds.Column(func(r models.Record) float64 { return r.Impressions }), impPercentile/100)
	set.ImpressionCutoff = cutoff

	ds.Each(func(r models.Record) {
		if r.Impressions > cutoff && r.CTR < ctrLow {
			set.Records = append(set.Records, r)
		}
	})
	sort.SliceStable(set.Records, func(i, j int) bool {
		return set.Records[i].Impressions > set.Records[j].Impressions
	})
	return set
}
