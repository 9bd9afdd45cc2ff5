package sheetql

import (
	"strings"
)

// ColumnType is the inferred storage type of a column.
type ColumnType int

const (
	// ColumnTypeText represents free-form text, the fallback type.
	ColumnTypeText ColumnType = iota
	// ColumnTypeNumeric represents numbers stored as double precision REAL.
	ColumnTypeNumeric
	// ColumnTypeTemporal represents timestamps stored as ISO8601 TEXT.
	ColumnTypeTemporal
)

// SQL type strings used in CREATE TABLE statements.
const (
	sqlTypeText = "TEXT"
	sqlTypeReal = "REAL"
)

// SQLType returns the SQLite column type string.
// Temporal values are stored as TEXT in ISO8601 format.
func (ct ColumnType) SQLType() string {
	if ct == ColumnTypeNumeric {
		return sqlTypeReal
	}
	return sqlTypeText
}

// String returns a human-readable type name for prompts and logs.
func (ct ColumnType) String() string {
	switch ct {
	case ColumnTypeNumeric:
		return "numeric"
	case ColumnTypeTemporal:
		return "temporal"
	default:
		return "text"
	}
}

// Column describes one column of a loaded table.
type Column struct {
	// Name is the normalized identifier, unique within its table.
	Name string
	// Type is the inferred storage type.
	Type ColumnType
	// SampleCount is how many non-empty values fed the inference.
	SampleCount int
}

// TableDef describes one relational table derived from a sheet.
type TableDef struct {
	// Name is the safe unique table name within the catalog.
	Name string
	// SheetName is the source sheet the table was loaded from.
	SheetName string
	// Columns is the ordered column list.
	Columns []Column
	// RowCount is the number of rows inserted.
	RowCount int
}

// Catalog is the complete set of tables derived from one workbook.
// It is rebuilt wholesale; readers never observe a partial catalog.
type Catalog struct {
	// Tables lists every loaded table in sheet order.
	Tables []TableDef
	// BaseTable is the name of the default query target, the table with
	// the largest row count. Empty when no table has any rows.
	BaseTable string
	// SheetErrors records per-sheet ingest failures keyed by sheet name.
	SheetErrors map[string]error
}

// Table returns the definition for name, or nil if the catalog has no
// such table.
func (c *Catalog) Table(name string) *TableDef {
	for i := range c.Tables {
		if c.Tables[i].Name == name {
			return &c.Tables[i]
		}
	}
	return nil
}

// Base returns the base table definition, or nil when the catalog is empty.
func (c *Catalog) Base() *TableDef {
	if c.BaseTable == "" {
		return nil
	}
	return c.Table(c.BaseTable)
}

// SanitizedQuery is the guard's output: a SQL string that is safe to
// execute against the approved table. Derived per question, never persisted.
type SanitizedQuery struct {
	// SQL is the rewritten statement.
	SQL string
	// TargetTable is the approved table the statement was rewritten to.
	TargetTable string
	// IsAggregate reports whether the statement aggregates rows.
	IsAggregate bool
	// RowLimit is the effective LIMIT, or 0 when none applies.
	RowLimit int
}

// Identifier limits.
const (
	// maxIdentifierLen is the longest table name the catalog accepts.
	maxIdentifierLen = 63
	// digitPrefix is prepended to identifiers that would start with a digit.
	digitPrefix = "t_"
	// maxNameCollisions bounds suffix disambiguation attempts before the
	// table is abandoned with ErrSchemaConflict.
	maxNameCollisions = 1000
)

// sanitizeIdentifier lowers name and reduces it to identifier-safe
// characters: letters, digits and underscore, with runs of anything else
// collapsed to a single underscore.
func sanitizeIdentifier(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// safeTableName converts a sheet name into a base table identifier.
// The result never starts with a digit and never exceeds maxIdentifierLen;
// uniqueness across the catalog is the builder's job.
func safeTableName(sheetName string) string {
	name := sanitizeIdentifier(sheetName)
	if name == "" {
		name = "sheet"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = digitPrefix + name
	}
	if len(name) > maxIdentifierLen {
		name = strings.Trim(name[:maxIdentifierLen], "_")
	}
	return name
}
