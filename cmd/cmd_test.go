package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/triton-ims-bridge/internal/config"
)

const sampleExport = `[
  {
    "transaction_type": "New Business",
    "transaction_id": "TX-1",
    "policy_number": "POL-1",
    "effective_date": "01/01/2025",
    "expiration_date": "01/01/2026",
    "business_type": "New",
    "insured_name": "Acme Widgets",
    "insured_business_type": "LLC",
    "producer_code": "P-77",
    "program_name": "Retail Excess",
    "market_segment_code": "RT",
    "gross_premium": "$1,500.50",
    "coverage_name": "General Liability",
    "limit": "$1,000,000/$3,000,000"
  },
  {
    "transaction_type": "FOOBAR",
    "transaction_id": "TX-2"
  }
]`

func testConfig(t *testing.T) *config.MainConfig {
	t.Helper()
	root := t.TempDir()

	v, err := config.NewViper("")
	require.NoError(t, err)
	v.Set("input_dir", filepath.Join(root, "input"))
	v.Set("output_dir", filepath.Join(root, "output"))
	v.Set("input_archive_dir", filepath.Join(root, "input_archive"))
	v.Set("output_archive_dir", filepath.Join(root, "output_archive"))
	v.Set("output_name_format", "{source}_out")

	cfg, err := config.Load(v)
	require.NoError(t, err)
	require.NoError(t, cfg.EnsureDirectories())
	return cfg
}

func TestRunProcess(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InputDir, "a.json"), []byte(sampleExport), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InputDir, "b.json"), []byte(`{broken`), 0644))

	summary, err := runProcess(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalFiles)
	assert.Equal(t, 1, summary.SuccessfulFiles)
	assert.Equal(t, 1, summary.FailedFiles)
	assert.Equal(t, 1, summary.Converted)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, "format_error", summary.FailedFilesList[0].ErrorType)

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "a_out.json"))
	require.NoError(t, err)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "TX-1", out[0]["transaction_id"])

	matches, err := filepath.Glob(filepath.Join(cfg.OutputDir, "processing_summary_*.txt"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRunProcess_Empty(t *testing.T) {
	cfg := testConfig(t)

	summary, err := runProcess(context.Background(), cfg)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalFiles)
}

func TestRunTransform_Stdin(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputFormat = "xml"

	var out bytes.Buffer
	err := runTransform(context.Background(), cfg, "", strings.NewReader(sampleExport), &out)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "<transaction_id>TX-1</transaction_id>")
	assert.NotContains(t, out.String(), "TX-2")
}

func TestRunTransform_File(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "single.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"transaction_type":"cancellation","transaction_id":"TX-9"}`), 0644))

	var out bytes.Buffer
	require.NoError(t, runTransform(context.Background(), cfg, path, nil, &out))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "cancellation", decoded[0]["transaction_type"])
}

func TestRunValidate(t *testing.T) {
	cfg := testConfig(t)

	var out bytes.Buffer
	require.NoError(t, runValidate(context.Background(), cfg, nil, &out))
	assert.Contains(t, out.String(), "Configuration OK")

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleExport), 0644))

	out.Reset()
	err := runValidate(context.Background(), cfg, []string{path}, &out)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "2 transactions, 1 converted, 1 rejected")
	assert.Contains(t, out.String(), "unknown_transaction_type")
}

func TestApplyRulesFlag(t *testing.T) {
	cfg := &config.MainConfig{RulesFile: "old.yaml"}
	applyRulesFlag(cfg, "rules.XLSX")
	assert.Equal(t, "rules.XLSX", cfg.RulesWorkbook)
	assert.Empty(t, cfg.RulesFile)

	applyRulesFlag(cfg, "rules.yaml")
	assert.Equal(t, "rules.yaml", cfg.RulesFile)
	assert.Empty(t, cfg.RulesWorkbook)
}
