package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "input_archive"),
		filepath.Join(root, "output_archive"),
	)
	require.NoError(t, fm.EnsureDirectories())
	return fm
}

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newTestFileManager(t)
	touch(t, filepath.Join(fm.InputDir, "b.json"), "{}")
	touch(t, filepath.Join(fm.InputDir, "a.CSV"), "x")
	touch(t, filepath.Join(fm.InputDir, "notes.txt"), "x")
	touch(t, filepath.Join(fm.InputDir, ".hidden.json"), "{}")
	touch(t, filepath.Join(fm.InputDir, "~$lock.xlsx"), "x")
	require.NoError(t, os.Mkdir(filepath.Join(fm.InputDir, "dir.json"), 0755))

	files, err := fm.DiscoverInputFiles(".json", ".csv", ".xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fm.InputDir, "a.CSV"),
		filepath.Join(fm.InputDir, "b.json"),
	}, files)

	all, err := fm.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestArchiveFiles(t *testing.T) {
	fm := newTestFileManager(t)
	input := filepath.Join(fm.InputDir, "export.json")
	touch(t, input, "{}")

	archived, err := fm.ArchiveInputFile(input)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "export.json"), archived)
	assert.False(t, FileExists(input))
	assert.True(t, FileExists(archived))

	output, err := fm.WriteOutputFile("export_out.json", []byte("[]"))
	require.NoError(t, err)

	copied, err := fm.ArchiveOutputFile(output)
	require.NoError(t, err)
	assert.True(t, FileExists(output))
	assert.True(t, FileExists(copied))
}

func TestArchiveFiles_TimestampSubdirs(t *testing.T) {
	fm := newTestFileManager(t)
	fm.UseTimestampSubdirs = true
	input := filepath.Join(fm.InputDir, "export.json")
	touch(t, input, "{}")

	archived, err := fm.ArchiveInputFile(input)
	require.NoError(t, err)

	now := time.Now()
	assert.Contains(t, archived, filepath.Join(now.Format("2006"), now.Format("01"), now.Format("02")))
}

func TestArchiveFiles_Disabled(t *testing.T) {
	fm := newTestFileManager(t)
	fm.ArchiveOnSuccess = false
	input := filepath.Join(fm.InputDir, "export.json")
	touch(t, input, "{}")

	archived, err := fm.ArchiveInputFile(input)
	require.NoError(t, err)
	assert.Equal(t, input, archived)
	assert.True(t, FileExists(input))
}

func TestWriteOutputFile_LeavesNoTemporaries(t *testing.T) {
	fm := newTestFileManager(t)

	path, err := fm.WriteOutputFile("out.json", []byte(`{"a":1}`))
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(content))

	entries, err := os.ReadDir(fm.OutputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{source}_{uuid}", ".json", map[string]string{"source": "triton"})
	assert.True(t, strings.HasPrefix(name, "triton_"))
	assert.True(t, strings.HasSuffix(name, ".json"))
	assert.Len(t, name, len("triton_")+36+len(".json"))

	assert.Equal(t, "fixed.xml", GenerateOutputFileName("fixed.xml", ".xml", nil))
	assert.NotEqual(t,
		GenerateOutputFileName("{uuid}", ".json", nil),
		GenerateOutputFileName("{uuid}", ".json", nil))
}

func TestSourceName(t *testing.T) {
	assert.Equal(t, "export", SourceName("/data/in/export.json"))
	assert.Equal(t, "archive.tar", SourceName("archive.tar.gz"))
}

func TestWriteErrorLog(t *testing.T) {
	fm := newTestFileManager(t)

	path, err := WriteErrorLog(nil, fm.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = WriteErrorLog([]ErrorLogEntry{{
		Timestamp:        time.Now(),
		FileName:         "export.json",
		ErrorType:        "unknown_transaction_type",
		ErrorMessage:     `unknown transaction type "FOOBAR"`,
		TransactionIndex: 2,
		TransactionID:    "TX-9",
	}}, fm.OutputDir)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Total Errors: 1")
	assert.Contains(t, string(content), "Transaction ID: TX-9")
}

func TestWriteSummaryLog(t *testing.T) {
	fm := newTestFileManager(t)
	start := time.Now()

	path, err := WriteSummaryLog(ProcessingSummary{
		StartTime:         start,
		EndTime:           start.Add(time.Second),
		TotalFiles:        2,
		SuccessfulFiles:   1,
		FailedFiles:       1,
		TotalTransactions: 3,
		Converted:         2,
		Rejected:          1,
		ProcessedFiles:    []ProcessedFileInfo{{InputFile: "a.json", OutputFile: "a_out.json", Transactions: 3, Converted: 2, Rejected: 1}},
		FailedFilesList:   []FailedFileInfo{{InputFile: "b.csv", ErrorMessage: "CSV file is empty"}},
	}, fm.OutputDir)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Converted:          2")
	assert.Contains(t, string(content), "Error: CSV file is empty")
}

func TestCleanOldArchives(t *testing.T) {
	fm := newTestFileManager(t)
	old := filepath.Join(fm.InputArchiveDir, "old.json")
	fresh := filepath.Join(fm.InputArchiveDir, "fresh.json")
	touch(t, old, "{}")
	touch(t, fresh, "{}")

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	removed, err := CleanOldArchives(fm.InputArchiveDir, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, FileExists(old))
	assert.True(t, FileExists(fresh))
}
