package sheetql

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v18/arrow/array"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet: a name and a 2-D grid of raw cell values.
// Rows may be ragged; the loader pads them to the header width.
type Sheet struct {
	Name string
	Rows [][]string
}

// Workbook is an ordered sequence of sheets read from one source file.
type Workbook struct {
	Sheets []Sheet
}

// Source yields a workbook on demand. Refresh re-reads the source, so a
// Source must be re-readable.
type Source interface {
	Read(ctx context.Context) (*Workbook, error)
}

// fileSource reads a workbook from a path on each call.
type fileSource struct {
	path string
}

// FileSource returns a Source backed by a file path.
func FileSource(path string) Source {
	return &fileSource{path: path}
}

func (s *fileSource) Read(_ context.Context) (*Workbook, error) {
	return OpenWorkbook(s.path)
}

// File extensions.
const (
	extXLSX    = ".xlsx"
	extCSV     = ".csv"
	extTSV     = ".tsv"
	extParquet = ".parquet"
	extGZ      = ".gz"
	extBZ2     = ".bz2"
	extXZ      = ".xz"
	extZSTD    = ".zst"
)

// Delimiters for delimited text inputs.
const (
	csvDelimiter = ','
	tsvDelimiter = '\t'
)

// OpenWorkbook reads the file at path into a Workbook. XLSX files yield one
// sheet per worksheet; CSV, TSV and Parquet files yield a single sheet named
// after the file. CSV and TSV may carry a gz, bz2, xz or zst compression
// suffix.
func OpenWorkbook(path string) (*Workbook, error) {
	base := strings.ToLower(filepath.Base(path))
	stripped := stripCompressionExt(base)

	switch {
	case strings.HasSuffix(stripped, extXLSX):
		return openXLSX(path, base != stripped)
	case strings.HasSuffix(stripped, extCSV):
		return openDelimited(path, csvDelimiter)
	case strings.HasSuffix(stripped, extTSV):
		return openDelimited(path, tsvDelimiter)
	case strings.HasSuffix(stripped, extParquet):
		return openParquet(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// stripCompressionExt removes a trailing compression extension, if any.
// Matching ignores case so DATA.CSV.GZ behaves like data.csv.gz.
func stripCompressionExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range []string{extGZ, extBZ2, extXZ, extZSTD} {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// sheetNameFromPath derives the single-sheet name for non-XLSX inputs.
func sheetNameFromPath(path string) string {
	name := stripCompressionExt(filepath.Base(path))
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// openReader opens path and wraps it in a decompressing reader when the
// extension calls for one.
func openReader(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	var reader io.Reader = f
	closer := f.Close

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, extGZ):
		gzReader, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		reader = gzReader
		closer = func() error {
			_ = gzReader.Close()
			return f.Close()
		}
	case strings.HasSuffix(lower, extBZ2):
		reader = bzip2.NewReader(f)
	case strings.HasSuffix(lower, extXZ):
		xzReader, err := xz.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		reader = xzReader
	case strings.HasSuffix(lower, extZSTD):
		decoder, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		reader = decoder
		closer = func() error {
			decoder.Close()
			return f.Close()
		}
	}

	return reader, closer, nil
}

// openXLSX reads every worksheet of an XLSX file. Compressed files are
// buffered in memory because excelize needs random access.
func openXLSX(path string, compressed bool) (*Workbook, error) {
	var (
		xlsxFile *excelize.File
		err      error
	)
	if compressed {
		reader, closer, openErr := openReader(path)
		if openErr != nil {
			return nil, openErr
		}
		defer closer() //nolint:errcheck // cleanup
		data, readErr := io.ReadAll(reader)
		if readErr != nil {
			return nil, readErr
		}
		xlsxFile, err = excelize.OpenReader(bytes.NewReader(data))
	} else {
		xlsxFile, err = excelize.OpenFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIngestFailure, path, err)
	}
	defer func() {
		_ = xlsxFile.Close()
	}()

	sheetNames := xlsxFile.GetSheetList()
	if len(sheetNames) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyWorkbook, path)
	}

	wb := &Workbook{Sheets: make([]Sheet, 0, len(sheetNames))}
	for _, name := range sheetNames {
		rows, err := xlsxFile.GetRows(name)
		if err != nil {
			// One unreadable sheet must not block the others; the
			// loader records it as an empty sheet.
			wb.Sheets = append(wb.Sheets, Sheet{Name: name})
			continue
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: name, Rows: rows})
	}
	return wb, nil
}

// openDelimited reads a CSV or TSV file as a single-sheet workbook.
func openDelimited(path string, delimiter rune) (*Workbook, error) {
	reader, closer, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer closer() //nolint:errcheck // cleanup

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.FieldsPerRecord = -1
	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIngestFailure, path, err)
	}

	return &Workbook{Sheets: []Sheet{{
		Name: sheetNameFromPath(path),
		Rows: rows,
	}}}, nil
}

// openParquet reads a Parquet file as a single-sheet workbook. Parquet
// needs random access, so the whole file is buffered.
func openParquet(path string) (*Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty parquet file: %s", ErrIngestFailure, path)
	}

	pqReader, err := pqfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIngestFailure, path, err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIngestFailure, path, err)
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIngestFailure, path, err)
	}
	defer table.Release()

	schema := table.Schema()
	header := make([]string, schema.NumFields())
	for i, field := range schema.Fields() {
		header[i] = field.Name
	}

	rows := [][]string{header}
	tableReader := array.NewTableReader(table, 0)
	defer tableReader.Release()
	for tableReader.Next() {
		batch := tableReader.Record()
		numRows := int(batch.NumRows())
		for i := range numRows {
			row := make([]string, batch.NumCols())
			for j, col := range batch.Columns() {
				if col.IsNull(i) {
					row[j] = ""
					continue
				}
				row[j] = col.ValueStr(i)
			}
			rows = append(rows, row)
		}
	}
	if err := tableReader.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIngestFailure, path, err)
	}

	return &Workbook{Sheets: []Sheet{{
		Name: sheetNameFromPath(path),
		Rows: rows,
	}}}, nil
}
