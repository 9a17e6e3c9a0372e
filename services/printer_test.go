package services

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"adreport-forensics/models"
)

func sampleReport(t *testing.T) *models.AnalysisReport {
	t.Helper()
	report, err := newTestAnalyzer(PolicyWarn).Analyze(sampleTable(), models.ThresholdOverrides{
		CTRHigh: f64(4), QualityLow: f64(0.5), ImpPercentile: f64(75), CTRLow: f64(1.5),
	})
	require.NoError(t, err)
	return report
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	NewReportPrinter(&buf, 5).Print(sampleReport(t))
	out := buf.String()

	assert.Contains(t, out, "june.csv")
	assert.Contains(t, out, "Ghost A")
	assert.Contains(t, out, "Flood B")
	assert.Contains(t, out, "1,000")
	assert.Contains(t, out, "Impression flooding")
}

func TestPrintTruncatesToTop(t *testing.T) {
	recs := make([]models.Record, 4)
	for i := range recs {
		recs[i] = models.Record{AdName: "ad", CTR: 9, LPViewRate: 0.1}
	}
	report := &models.AnalysisReport{
		Source:    "many.csv",
		CleanRows: 4,
		Result: models.ClassificationResult{
			GhostClicks: models.GhostClickSet{CTRHigh: 4, QualityLow: 0.5, Records: recs},
		},
	}

	var buf bytes.Buffer
	NewReportPrinter(&buf, 2).Print(report)
	assert.Contains(t, buf.String(), "2 more")
}

func TestPrintEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	NewReportPrinter(&buf, 5).Print(&models.AnalysisReport{Source: "empty.csv"})
	assert.Contains(t, buf.String(), "nothing to analyse")
}

func TestEncodeReportJSON(t *testing.T) {
	report := sampleReport(t)
	report.Result.GhostClicks.Records[0].Spend = math.NaN()

	var buf bytes.Buffer
	require.NoError(t, EncodeReport(&buf, FormatJSON, report))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report.RunID, decoded["run_id"])

	result := decoded["result"].(map[string]any)
	ghost := result["ghost_clicks"].(map[string]any)
	rows := ghost["records"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "Ghost A", row["ad_name"])
	assert.Nil(t, row["spend"], "missing values encode as null")
}

func TestEncodeReportYAML(t *testing.T) {
	report := sampleReport(t)

	var buf bytes.Buffer
	require.NoError(t, EncodeReport(&buf, FormatYAML, report))

	var decoded struct {
		Source     string            `yaml:"source"`
		Thresholds models.Thresholds `yaml:"thresholds"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "june.csv", decoded.Source)
	assert.Equal(t, report.Thresholds, decoded.Thresholds)
}

func TestEncodeReportUnknownFormat(t *testing.T) {
	assert.Error(t, EncodeReport(&bytes.Buffer{}, "xml", sampleReport(t)))
}
