package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adreport-forensics/models"
)

const reportCSV = "day,ad_name,impressions,link_clicks,landing_page_views,ctr\n" +
	"2024-06-01,Ghost A,500,100,5,10%\n" +
	"2024-06-01,Flood B,\"1,000\",\"1,000\",950,1%\n" +
	"2024-06-01,Tiny C,3,1,0,33%\n"

func TestAnalyzeCommandJSON(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "june.csv")
	require.NoError(t, os.WriteFile(input, []byte(reportCSV), 0o644))
	findings := filepath.Join(dir, "findings.csv")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"analyze", input,
		"--format", "json",
		"--ctr-high", "4", "--quality-low", "0.5", "--ctr-low", "1.5", "--imp-percentile", "75",
		"--csv-out", findings,
	})
	require.NoError(t, rootCmd.Execute())

	var report models.AnalysisReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "june.csv", report.Source)
	assert.Equal(t, 2, report.CleanRows)
	assert.Len(t, report.Result.GhostClicks.Records, 1)
	assert.Len(t, report.Result.Flooding.Records, 1)

	data, err := os.ReadFile(findings)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Ghost A")
	assert.Contains(t, string(data), "Flood B")
}

func TestAnalyzeCommandMalformedInput(t *testing.T) {
	input := filepath.Join(t.TempDir(), "broken.csv")
	require.NoError(t, os.WriteFile(input, []byte("foo,bar\n1,2\n"), 0o644))

	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"analyze", input, "--format", "json", "--csv-out", ""})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.True(t, models.IsMalformedInput(err))
}
