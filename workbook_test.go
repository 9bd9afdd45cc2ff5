package sheetql

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func writeGzipFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func writeZstdFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	enc, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = enc.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestOpenWorkbook_CSV(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "patients.csv", "name,age\nAlice,34\nBob,41\n")
	wb, err := OpenWorkbook(path)
	require.NoError(t, err)

	require.Len(t, wb.Sheets, 1)
	assert.Equal(t, "patients", wb.Sheets[0].Name)
	require.Len(t, wb.Sheets[0].Rows, 3)
	assert.Equal(t, []string{"name", "age"}, wb.Sheets[0].Rows[0])
	assert.Equal(t, []string{"Alice", "34"}, wb.Sheets[0].Rows[1])
}

func TestOpenWorkbook_CSV_RaggedRows(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "ragged.csv", "a,b,c\n1,2\n3,4,5,6\n")
	wb, err := OpenWorkbook(path)
	require.NoError(t, err)

	rows := wb.Sheets[0].Rows
	require.Len(t, rows, 3)
	assert.Len(t, rows[1], 2)
	assert.Len(t, rows[2], 4)
}

func TestOpenWorkbook_TSV(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "visits.tsv", "name\tvisit\nAlice\t2024-03-01\n")
	wb, err := OpenWorkbook(path)
	require.NoError(t, err)

	require.Len(t, wb.Sheets, 1)
	assert.Equal(t, "visits", wb.Sheets[0].Name)
	assert.Equal(t, []string{"Alice", "2024-03-01"}, wb.Sheets[0].Rows[1])
}

func TestOpenWorkbook_CompressedCSV(t *testing.T) {
	t.Parallel()

	t.Run("gzip", func(t *testing.T) {
		t.Parallel()
		path := writeGzipFile(t, "data.csv.gz", "x,y\n1,2\n")
		wb, err := OpenWorkbook(path)
		require.NoError(t, err)
		assert.Equal(t, "data", wb.Sheets[0].Name)
		assert.Equal(t, []string{"1", "2"}, wb.Sheets[0].Rows[1])
	})

	t.Run("uppercase extension", func(t *testing.T) {
		t.Parallel()
		path := writeGzipFile(t, "DATA.CSV.GZ", "x,y\n5,6\n")
		wb, err := OpenWorkbook(path)
		require.NoError(t, err)
		assert.Equal(t, "DATA", wb.Sheets[0].Name)
		assert.Equal(t, []string{"5", "6"}, wb.Sheets[0].Rows[1])
	})

	t.Run("zstd", func(t *testing.T) {
		t.Parallel()
		path := writeZstdFile(t, "data.csv.zst", "x,y\n3,4\n")
		wb, err := OpenWorkbook(path)
		require.NoError(t, err)
		assert.Equal(t, "data", wb.Sheets[0].Name)
		assert.Equal(t, []string{"3", "4"}, wb.Sheets[0].Rows[1])
	})
}

func TestOpenWorkbook_XLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Patients"))
	require.NoError(t, f.SetSheetRow("Patients", "A1", &[]any{"Name", "Age"}))
	require.NoError(t, f.SetSheetRow("Patients", "A2", &[]any{"Alice", 34}))
	_, err := f.NewSheet("Visits")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Visits", "A1", &[]any{"When"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	wb, err := OpenWorkbook(path)
	require.NoError(t, err)

	require.Len(t, wb.Sheets, 2)
	assert.Equal(t, "Patients", wb.Sheets[0].Name)
	assert.Equal(t, []string{"Name", "Age"}, wb.Sheets[0].Rows[0])
	assert.Equal(t, []string{"Alice", "34"}, wb.Sheets[0].Rows[1])
	assert.Equal(t, "Visits", wb.Sheets[1].Name)
}

func TestOpenWorkbook_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "notes.txt", "hello")
	_, err := OpenWorkbook(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOpenWorkbook_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := OpenWorkbook(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "src.csv", "a\n1\n")
	src := FileSource(path)
	wb, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "src", wb.Sheets[0].Name)
}

func TestStripCompressionExt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		expected string
	}{
		{"data.csv.gz", "data.csv"},
		{"data.csv.bz2", "data.csv"},
		{"data.tsv.xz", "data.tsv"},
		{"data.csv.zst", "data.csv"},
		{"DATA.CSV.GZ", "DATA.CSV"},
		{"data.csv", "data.csv"},
		{"book.xlsx", "book.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, stripCompressionExt(tt.in))
		})
	}
}

func TestSheetNameFromPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "patients", sheetNameFromPath("/tmp/patients.csv"))
	assert.Equal(t, "visits", sheetNameFromPath("visits.tsv.gz"))
	assert.Equal(t, "data", sheetNameFromPath("dir/data.parquet"))
}
