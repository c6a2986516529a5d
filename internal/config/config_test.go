package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func load(t *testing.T, path string) (*MainConfig, error) {
	t.Helper()
	v, err := NewViper(path)
	require.NoError(t, err)
	return Load(v)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, int64(1000000), cfg.DefaultLimits.Occurrence)
	assert.Equal(t, int64(2000000), cfg.DefaultLimits.Aggregate)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "{source}_{uuid}", cfg.OutputNameFormat)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.True(t, cfg.ContinueOnError)
	assert.Equal(t, ",", cfg.CSVSettings.Delimiter)
	assert.Equal(t, 1, cfg.CSVSettings.HeaderRows)
	assert.Equal(t, 2, cfg.CSVSettings.DataStartRow)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
input_dir: /data/triton
output_format: XML
max_concurrency: 8
continue_on_error: false
default_limits:
  occurrence: 500000
  aggregate: 1000000
csv_settings:
  delimiter: ";"
field_rules:
  - field: policy_number
    actions:
      - type: prepend_string
        value: TRI-
      - type: lookup
        lookup_table:
          A: B
`)

	cfg, err := load(t, path)
	require.NoError(t, err)

	assert.Equal(t, "/data/triton", cfg.InputDir)
	assert.Equal(t, "xml", cfg.OutputFormat)
	assert.Equal(t, 8, cfg.MaxConcurrency)
	assert.False(t, cfg.ContinueOnError)
	assert.Equal(t, int64(500000), cfg.DefaultLimits.Occurrence)
	assert.Equal(t, ";", cfg.CSVSettings.Delimiter)

	require.Len(t, cfg.FieldRules, 1)
	assert.Equal(t, "policy_number", cfg.FieldRules[0].Field)
	require.Len(t, cfg.FieldRules[0].Actions, 2)
	assert.Equal(t, "TRI-", cfg.FieldRules[0].Actions[0].Value)
	assert.Len(t, cfg.FieldRules[0].Actions[1].LookupTable, 1)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("TRITONBRIDGE_OUTPUT_FORMAT", "xml")
	t.Setenv("TRITONBRIDGE_DEFAULT_LIMITS_OCCURRENCE", "250000")

	cfg, err := load(t, "")
	require.NoError(t, err)
	assert.Equal(t, "xml", cfg.OutputFormat)
	assert.Equal(t, int64(250000), cfg.DefaultLimits.Occurrence)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"output format", "output_format: yaml"},
		{"negative limit", "default_limits:\n  occurrence: -1"},
		{"occurrence above aggregate", "default_limits:\n  occurrence: 5000000\n  aggregate: 1000000"},
		{"data before header", "csv_settings:\n  header_rows: 2\n  data_start_row: 2"},
		{"negative retention", "archive_retention_days: -3"},
		{"unnamed field rule", "field_rules:\n  - actions:\n      - type: trim"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestNewViper_UnreadableFile(t *testing.T) {
	path := writeConfig(t, "input_dir: [unclosed")
	_, err := NewViper(path)
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := &MainConfig{
		InputDir:         filepath.Join(root, "in"),
		OutputDir:        filepath.Join(root, "out"),
		InputArchiveDir:  filepath.Join(root, "archive", "in"),
		OutputArchiveDir: filepath.Join(root, "archive", "out"),
	}
	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
