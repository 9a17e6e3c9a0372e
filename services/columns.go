package services

import (
	"strings"
)

// Field is a canonical report column.
type Field string

const (
	FieldDay              Field = "day"
	FieldAdName           Field = "ad_name"
	FieldImpressions      Field = "impressions"
	FieldLinkClicks       Field = "link_clicks"
	FieldLandingPageViews Field = "landing_page_views"
	FieldCTR              Field = "ctr"
	FieldCPM              Field = "cpm"
	FieldSpend            Field = "spend"
)

// RequiredFields must be present for a table to be analysed at all.
var RequiredFields = []Field{FieldImpressions, FieldCTR}

// exactAliases maps lower-cased headers to fields. Covers snake_case names,
// Meta Ads Manager English exports and zh-TW exports.
var exactAliases = map[string]Field{
	"day":              FieldDay,
	"date":             FieldDay,
	"reporting starts": FieldDay,
	"天數":               FieldDay,
	"日期":               FieldDay,

	"ad_name": FieldAdName,
	"ad name": FieldAdName,
	"廣告名稱":    FieldAdName,

	"impressions": FieldImpressions,
	"曝光次數":        FieldImpressions,

	"link_clicks": FieldLinkClicks,
	"link clicks": FieldLinkClicks,
	"連結點擊次數":      FieldLinkClicks,

	"landing_page_views": FieldLandingPageViews,
	"landing page views": FieldLandingPageViews,
	"連結頁面瀏覽次數":           FieldLandingPageViews,

	"ctr":                           FieldCTR,
	"ctr (link click-through rate)": FieldCTR,
	"ctr（連結點閱率）":                    FieldCTR,

	"cpm":                              FieldCPM,
	"cpm (cost per 1,000 impressions)": FieldCPM,
	"cpm（每千次廣告曝光成本）":                   FieldCPM,

	"spend": FieldSpend,
}

// prefixAliases match headers that carry a currency suffix.
var prefixAliases = []struct {
	prefix string
	field  Field
}{
	{"amount spent", FieldSpend},
	{"花費金額", FieldSpend},
	{"cpm (cost per 1,000 impressions)", FieldCPM},
	{"ctr (link click-through rate)", FieldCTR},
}

// ResolveField maps a header to its canonical field.
func ResolveField(header string) (Field, bool) {
	h := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
	if f, ok := exactAliases[h]; ok {
		return f, true
	}
	for _, a := range prefixAliases {
		if strings.HasPrefix(h, a.prefix) {
			return a.field, true
		}
	}
	return "", false
}

// ColumnMap records which table column index feeds each field.
type ColumnMap map[Field]int

// MapColumns resolves every header. The first header that maps to a field wins.
func MapColumns(headers []string) ColumnMap {
	m := make(ColumnMap)
	for i, h := range headers {
		f, ok := ResolveField(h)
		if !ok {
			continue
		}
		if _, taken := m[f]; !taken {
			m[f] = i
		}
	}
	return m
}

// Has reports whether the field was found.
func (m ColumnMap) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// Missing lists the given fields absent from the map.
func (m ColumnMap) Missing(fields ...Field) []string {
	var out []string
	for _, f := range fields {
		if !m.Has(f) {
			out = append(out, string(f))
		}
	}
	return out
}

// Fields lists the mapped fields in canonical order.
func (m ColumnMap) Fields() []string {
	order := []Field{FieldDay, FieldAdName, FieldImpressions, FieldLinkClicks,
		FieldLandingPageViews, FieldCTR, FieldCPM, FieldSpend}
	var out []string
	for _, f := range order {
		if m.Has(f) {
			out = append(out, string(f))
		}
	}
	return out
}
