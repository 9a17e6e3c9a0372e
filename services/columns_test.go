package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveField(t *testing.T) {
	tests := []struct {
		header string
		want   Field
	}{
		{"impressions", FieldImpressions},
		{"Impressions", FieldImpressions},
		{"\ufeffDay", FieldDay},
		{"Ad name", FieldAdName},
		{"Link clicks", FieldLinkClicks},
		{"Landing page views", FieldLandingPageViews},
		{"CTR (link click-through rate)", FieldCTR},
		{"CPM (cost per 1,000 impressions) (USD)", FieldCPM},
		{"Amount spent (USD)", FieldSpend},
		{"曝光次數", FieldImpressions},
		{"連結點擊次數", FieldLinkClicks},
		{"連結頁面瀏覽次數", FieldLandingPageViews},
		{"CTR（連結點閱率）", FieldCTR},
		{"CPM（每千次廣告曝光成本）", FieldCPM},
		{"花費金額 (TWD)", FieldSpend},
	}

	for _, tt := range tests {
		got, ok := ResolveField(tt.header)
		assert.True(t, ok, "header %q should resolve", tt.header)
		assert.Equal(t, tt.want, got, "header %q", tt.header)
	}

	_, ok := ResolveField("Reach")
	assert.False(t, ok)
}

func TestMapColumns(t *testing.T) {
	m := MapColumns([]string{"Reach", "ctr", "impressions", "Impressions", "link_clicks"})

	assert.Equal(t, 1, m[FieldCTR])
	assert.Equal(t, 2, m[FieldImpressions], "first matching header wins")
	assert.True(t, m.Has(FieldLinkClicks))
	assert.Equal(t, []string{"landing_page_views"}, m.Missing(FieldLinkClicks, FieldLandingPageViews))
	assert.Equal(t, []string{"impressions", "link_clicks", "ctr"}, m.Fields())
}
