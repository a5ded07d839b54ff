package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/smevalue/pkg/models"
)

const testConfigYAML = `
store:
  enabled: true
  in_memory: true
api:
  auth_token: ""
logging:
  level: info
  format: json
`

// run executes the CLI with a throwaway config and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfigYAML), 0o644))

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "smevalue dev")
}

func TestSectorsCommand(t *testing.T) {
	out, _, err := run(t, "sectors")
	require.NoError(t, err)
	assert.Contains(t, out, "CODE")
	assert.Contains(t, out, "technology")
	assert.Contains(t, out, "software_saas")
}

func TestSectorsShowCommand(t *testing.T) {
	out, _, err := run(t, "sectors", "show", "Software-SaaS")
	require.NoError(t, err)
	assert.Contains(t, out, "code: software_saas")
	assert.Contains(t, out, "base_multiple:")

	_, _, err = run(t, "sectors", "show", "alpaca_farming")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sector")
}

func TestValueCommandJSON(t *testing.T) {
	out, _, err := run(t, "value",
		"--sector", "technology",
		"--revenue", "1000000",
		"--profit", "200000",
		"--growth", "30",
		"--format", "json")
	require.NoError(t, err)

	var rep models.ValuationReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "technology", rep.SectorCode)
	assert.Len(t, rep.MethodBreakdown, 2)
	assert.LessOrEqual(t, rep.Range.Minimum, rep.Range.Typical)
	assert.LessOrEqual(t, rep.Range.Typical, rep.Range.Maximum)
}

func TestValueCommandText(t *testing.T) {
	out, _, err := run(t, "value", "--sector", "retail", "--revenue", "600000")
	require.NoError(t, err)
	assert.Contains(t, out, "INDICATIVE VALUE")
	assert.Contains(t, out, "Retail")
	assert.Contains(t, out, "not used")
}

func TestValueCommandInputFileWithOverride(t *testing.T) {
	input := writeFile(t, "business.yaml", `
sector_code: technology
annual_revenue: 1000000
profit: 200000
key_assets: [platform, customer list]
exit_reason: retirement
`)
	outPath := filepath.Join(t.TempDir(), "report.html")

	_, stderr, err := run(t, "value", "--input", input, "--growth", "30", "--format", "html", "--output", outPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Report written to")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<!DOCTYPE html>")
	assert.Contains(t, string(data), "+30.00%")
}

func TestValueCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no financials", []string{"value", "--sector", "retail"}, "annual_revenue or profit is required"},
		{"insufficient data", []string{"value", "--sector", "retail", "--profit=-5000"}, "cannot value this business"},
		{"bad format", []string{"value", "--revenue", "100000", "--format", "pdf"}, "unknown report format"},
		{"bad input ext", []string{"value", "--input", "business.csv"}, "unsupported input file"},
		{"out of range", []string{"value", "--revenue", "100000", "--concentration", "150"}, "customer_concentration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValueCommandSave(t *testing.T) {
	_, stderr, err := run(t, "value", "--sector", "retail", "--revenue", "600000", "--save")
	require.NoError(t, err)
	assert.Contains(t, stderr, "valuation saved")
}

const batchYAML = `
- sector_code: technology
  annual_revenue: 1000000
  profit: 200000
- sector_code: retail
- sector_code: unicorn_breeding
  annual_revenue: 250000
`

func TestBatchCommandText(t *testing.T) {
	input := writeFile(t, "batch.yaml", batchYAML)

	out, _, err := run(t, "batch", "--input", input, "--workers", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 valuations failed")

	assert.Contains(t, out, "SECTOR")
	assert.Contains(t, out, "Technology")
	assert.Contains(t, out, "annual_revenue or profit is required")
	assert.Contains(t, out, "ok (general multiples)")
}

func TestBatchCommandJSON(t *testing.T) {
	input := writeFile(t, "batch.json", `[{"sector_code":"retail","annual_revenue":600000},{"sector_code":"technology","annual_revenue":900000}]`)

	out, _, err := run(t, "batch", "--input", input, "--format", "json", "--save")
	require.NoError(t, err)

	var lines []batchLine
	require.NoError(t, json.Unmarshal([]byte(out), &lines))
	require.Len(t, lines, 2)
	for i, l := range lines {
		assert.Equal(t, i, l.Index)
		assert.Empty(t, l.Error)
		assert.NotEmpty(t, l.ID)
		require.NotNil(t, l.Report)
	}
	assert.Equal(t, "retail", lines[0].Report.SectorCode)
	assert.Equal(t, "technology", lines[1].Report.SectorCode)
}

func TestBatchCommandRequiresInput(t *testing.T) {
	_, _, err := run(t, "batch")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "input"))
}

func TestStatusCommand(t *testing.T) {
	out, _, err := run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "System Status")
	assert.Contains(t, out, "builtin")
	assert.Contains(t, out, "in-memory (0 valuations)")
	assert.Contains(t, out, "API Auth Token:")
	assert.Contains(t, out, "not set")
}
