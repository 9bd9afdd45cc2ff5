package sheetql

import (
	"fmt"
	"strings"
)

// Row filtering policy.
const (
	// minPopulatedFraction is the cell-population threshold below which a
	// row counts as "mostly empty".
	minPopulatedFraction = 0.5
)

// summaryTokens marks spreadsheet footer rows. Matched case-insensitively
// against whole trimmed cells.
var summaryTokens = map[string]bool{
	"total":       true,
	"grand total": true,
	"subtotal":    true,
	"sub total":   true,
	"sum":         true,
	"average":     true,
	"overall":     true,
}

// columnAliases maps recognizably common headers to canonical column names.
// Keys are sanitized header forms. Aliasing is a naming convenience only and
// never changes the inferred type.
var columnAliases = map[string]string{
	"visit_dt":      "visit_date",
	"date_of_visit": "visit_date",
	"visitdate":     "visit_date",
	"dob":           "date_of_birth",
	"birth_date":    "date_of_birth",
	"birthdate":     "date_of_birth",
	"mobile":        "phone",
	"mobile_no":     "phone",
	"phone_no":      "phone",
	"phone_number":  "phone",
	"email_id":      "email",
	"email_address": "email",
	"e_mail":        "email",
	"sex":           "gender",
	"amt":           "amount",
	"qty":           "quantity",
	"patient":       "patient_name",
	"pt_name":       "patient_name",
}

// reservedColumnNames are identifiers that would collide with SQL keywords
// and get a positional placeholder instead.
var reservedColumnNames = map[string]bool{
	"select": true, "from": true, "where": true, "group": true,
	"order": true, "limit": true, "table": true, "index": true,
	"join": true, "union": true, "values": true, "default": true,
}

// LoadSheet turns one sheet into a table definition plus coerced rows.
//
// The first row is used as the header when it looks like one; otherwise
// positional names are synthesized. Summary and empty rows are dropped, each
// column's type is inferred from a bounded sample, and every retained cell is
// coerced to its column's type with a null fallback.
//
// The returned definition's Name is empty; the catalog builder assigns it. A
// sheet with no usable content yields a zero-column definition and no rows.
func LoadSheet(sheet Sheet) (TableDef, [][]any) {
	def := TableDef{SheetName: sheet.Name}
	if len(sheet.Rows) == 0 {
		return def, nil
	}

	width := gridWidth(sheet.Rows)
	if width == 0 {
		return def, nil
	}

	dataStart := 0
	var names []string
	if headerLikeRow(sheet.Rows[0]) {
		names = normalizeHeader(sheet.Rows[0], width)
		dataStart = 1
	} else {
		names = positionalHeader(width)
	}

	// Filter junk rows before inference so footer totals never vote.
	kept := make([][]string, 0, len(sheet.Rows)-dataStart)
	for _, row := range sheet.Rows[dataStart:] {
		padded := padRow(row, width)
		if dropRow(padded) {
			continue
		}
		kept = append(kept, padded)
	}

	columns := make([]Column, width)
	for i := range width {
		samples := columnSamples(kept, i)
		columns[i] = Column{
			Name:        names[i],
			Type:        InferColumnType(samples),
			SampleCount: len(samples),
		}
	}

	rows := make([][]any, len(kept))
	for r, raw := range kept {
		row := make([]any, width)
		for c := range width {
			row[c] = CoerceValue(raw[c], columns[c].Type)
		}
		rows[r] = row
	}

	def.Columns = columns
	def.RowCount = len(rows)
	return def, rows
}

// gridWidth is the widest row in the grid.
func gridWidth(rows [][]string) int {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// padRow extends row with empty cells up to width.
func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row[:width]
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

// headerLikeRow reports whether the first row looks like a header: mostly
// populated, mostly non-numeric, and free of duplicate tokens.
func headerLikeRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	nonEmpty, numeric := 0, 0
	seen := make(map[string]bool, len(row))
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		nonEmpty++
		if looksNumeric(cell) || looksTemporal(cell) {
			numeric++
		}
		key := strings.ToLower(cell)
		if seen[key] {
			return false
		}
		seen[key] = true
	}
	if nonEmpty == 0 || float64(nonEmpty)/float64(len(row)) < minPopulatedFraction {
		return false
	}
	return float64(numeric)/float64(nonEmpty) < minPopulatedFraction
}

// positionalHeader synthesizes col_1..col_n names.
func positionalHeader(width int) []string {
	names := make([]string, width)
	for i := range width {
		names[i] = fmt.Sprintf("col_%d", i+1)
	}
	return names
}

// normalizeHeader sanitizes header cells into unique identifier-safe column
// names, applying semantic aliases and replacing empty or reserved names
// with positional placeholders.
func normalizeHeader(row []string, width int) []string {
	names := make([]string, width)
	used := make(map[string]int, width)
	for i := range width {
		raw := ""
		if i < len(row) {
			raw = row[i]
		}
		name := sanitizeIdentifier(raw)
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if name == "" || reservedColumnNames[name] {
			name = fmt.Sprintf("col_%d", i+1)
		}
		if name[0] >= '0' && name[0] <= '9' {
			name = "c_" + name
		}
		// Disambiguate duplicates with a positional suffix.
		if used[name] > 0 {
			used[name]++
			name = fmt.Sprintf("%s_%d", name, used[name])
		}
		used[name]++
		names[i] = name
	}
	return names
}

// dropRow reports whether a data row should be discarded: fully empty, or
// mostly empty while carrying a summary token.
func dropRow(row []string) bool {
	populated := 0
	summary := false
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		populated++
		if summaryTokens[strings.ToLower(cell)] {
			summary = true
		}
	}
	if populated == 0 {
		return true
	}
	// "Mostly empty" means half or more of the cells are blank.
	return summary && float64(populated)/float64(len(row)) <= minPopulatedFraction
}

// columnSamples gathers up to maxInferenceSamples non-empty values from
// column c.
func columnSamples(rows [][]string, c int) []string {
	samples := make([]string, 0, min(len(rows), maxInferenceSamples))
	for _, row := range rows {
		if len(samples) >= maxInferenceSamples {
			break
		}
		if v := strings.TrimSpace(row[c]); v != "" {
			samples = append(samples, v)
		}
	}
	return samples
}
