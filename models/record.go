package models

import (
	"encoding/json"
	"math"
)

// Record is one normalised row of an ad-performance report.
// Missing metric values are NaN; formatted strings never reach this struct.
type Record struct {
	Row              int     `json:"row" yaml:"row"`
	Day              string  `json:"day" yaml:"day"`
	AdName           string  `json:"ad_name" yaml:"ad_name"`
	Impressions      float64 `json:"impressions" yaml:"impressions"`
	LinkClicks       float64 `json:"link_clicks" yaml:"link_clicks"`
	LandingPageViews float64 `json:"landing_page_views" yaml:"landing_page_views"`
	CTR              float64 `json:"ctr" yaml:"ctr"`
	CPM              float64 `json:"cpm" yaml:"cpm"`
	Spend            float64 `json:"spend" yaml:"spend"`

	// LPViewRate is landing page views per link click. Not clamped to [0,1]:
	// tracking double-counts can push it above 1.
	LPViewRate float64 `json:"lp_view_rate" yaml:"lp_view_rate"`
}

// MarshalJSON writes missing metrics as null; encoding/json rejects NaN.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Row              int      `json:"row"`
		Day              string   `json:"day"`
		AdName           string   `json:"ad_name"`
		Impressions      *float64 `json:"impressions"`
		LinkClicks       *float64 `json:"link_clicks"`
		LandingPageViews *float64 `json:"landing_page_views"`
		CTR              *float64 `json:"ctr"`
		CPM              *float64 `json:"cpm"`
		Spend            *float64 `json:"spend"`
		LPViewRate       *float64 `json:"lp_view_rate"`
	}{
		Row:              r.Row,
		Day:              r.Day,
		AdName:           r.AdName,
		Impressions:      nullable(r.Impressions),
		LinkClicks:       nullable(r.LinkClicks),
		LandingPageViews: nullable(r.LandingPageViews),
		CTR:              nullable(r.CTR),
		CPM:              nullable(r.CPM),
		Spend:            nullable(r.Spend),
		LPViewRate:       nullable(r.LPViewRate),
	})
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Dataset is the cleaned, noise-filtered set of records for one input table.
// It is built once by the cleaner and never modified afterwards.
type Dataset struct {
	Source  string
	Columns []string
	RawRows int

	records []Record
}

// NewDataset wraps records into an immutable Dataset. The slice is copied.
func NewDataset(source string, columns []string, rawRows int, records []Record) *Dataset {
	cp := make([]Record, len(records))
	copy(cp, records)
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{Source: source, Columns: cols, RawRows: rawRows, records: cp}
}

// Len returns the number of records that survived cleaning.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Empty reports whether no rows survived cleaning.
func (d *Dataset) Empty() bool { return d.Len() == 0 }

// Records returns a copy of the dataset rows in input order.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	cp := make([]Record, len(d.records))
	copy(cp, d.records)
	return cp
}

// Each calls fn for every record in input order without copying the slice.
func (d *Dataset) Each(fn func(Record)) {
	if d == nil {
		return
	}
	for _, r := range d.records {
		fn(r)
	}
}

// Column extracts one metric of every record, in input order.
func (d *Dataset) Column(metric func(Record) float64) []float64 {
	out := make([]float64, 0, d.Len())
	d.Each(func(r Record) {
		out = append(out, metric(r))
	})
	return out
}
