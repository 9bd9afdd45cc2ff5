package sheetql

import "errors"

var (
	// ErrIngestFailure indicates a sheet or workbook could not be parsed.
	// Reported per sheet; a failed sheet never aborts the remaining build.
	ErrIngestFailure = errors.New("sheetql: ingest failure")

	// ErrSchemaConflict indicates a table name could not be made unique
	// within the identifier length limit.
	ErrSchemaConflict = errors.New("sheetql: schema conflict")

	// ErrRejectedStatement indicates generated SQL failed the guard's
	// allow-list and was never executed.
	ErrRejectedStatement = errors.New("sheetql: rejected statement")

	// ErrNoBaseTable indicates the catalog has no table with rows to
	// query against.
	ErrNoBaseTable = errors.New("sheetql: no base table")

	// ErrUpstreamTimeout indicates the LLM or database call exceeded its
	// time bound. Callers may retry; the engine does not.
	ErrUpstreamTimeout = errors.New("sheetql: upstream timeout")

	// ErrUnsupportedFormat indicates a workbook path with an unknown
	// file extension.
	ErrUnsupportedFormat = errors.New("sheetql: unsupported workbook format")

	// ErrEmptyWorkbook indicates a workbook with no readable sheets.
	ErrEmptyWorkbook = errors.New("sheetql: empty workbook")
)
