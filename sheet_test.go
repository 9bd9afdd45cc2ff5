package sheetql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSheet(t *testing.T) {
	t.Parallel()

	t.Run("header and types inferred", func(t *testing.T) {
		t.Parallel()
		sheet := Sheet{
			Name: "Visits",
			Rows: [][]string{
				{"Name", "Age", "Visit Dt"},
				{"Alice", "34", "2024-03-01"},
				{"Bob", "41", "2024-03-02"},
				{"Cara", "29", "2024-03-03"},
			},
		}
		def, rows := LoadSheet(sheet)

		require.Len(t, def.Columns, 3)
		assert.Equal(t, "name", def.Columns[0].Name)
		assert.Equal(t, ColumnTypeText, def.Columns[0].Type)
		assert.Equal(t, "age", def.Columns[1].Name)
		assert.Equal(t, ColumnTypeNumeric, def.Columns[1].Type)
		assert.Equal(t, "visit_date", def.Columns[2].Name)
		assert.Equal(t, ColumnTypeTemporal, def.Columns[2].Type)

		require.Len(t, rows, 3)
		assert.Equal(t, []any{"Alice", float64(34), "2024-03-01 00:00:00"}, rows[0])
		assert.Equal(t, 3, def.RowCount)
	})

	t.Run("summary and empty rows dropped", func(t *testing.T) {
		t.Parallel()
		sheet := Sheet{
			Name: "Sales",
			Rows: [][]string{
				{"Region", "Units", "Revenue", "Notes"},
				{"North", "10", "100.50", "ok"},
				{"", "", "", ""},
				{"South", "7", "70.00", "late"},
				{"Grand Total", "17", "", ""},
			},
		}
		def, rows := LoadSheet(sheet)

		require.Len(t, rows, 2)
		assert.Equal(t, "North", rows[0][0])
		assert.Equal(t, "South", rows[1][0])
		assert.Equal(t, 2, def.RowCount)
	})

	t.Run("sparse non-summary rows survive", func(t *testing.T) {
		t.Parallel()
		sheet := Sheet{
			Name: "Notes",
			Rows: [][]string{
				{"Item", "Qty", "Price", "Comment"},
				{"Widget", "5", "1.25", ""},
				{"Imported from legacy system", "", "", ""},
			},
		}
		_, rows := LoadSheet(sheet)
		assert.Len(t, rows, 2)
	})

	t.Run("no header row yields positional names", func(t *testing.T) {
		t.Parallel()
		sheet := Sheet{
			Name: "Raw",
			Rows: [][]string{
				{"12", "2024-01-01"},
				{"15", "2024-01-02"},
			},
		}
		def, rows := LoadSheet(sheet)

		require.Len(t, def.Columns, 2)
		assert.Equal(t, "col_1", def.Columns[0].Name)
		assert.Equal(t, "col_2", def.Columns[1].Name)
		assert.Len(t, rows, 2)
	})

	t.Run("ragged rows padded to grid width", func(t *testing.T) {
		t.Parallel()
		sheet := Sheet{
			Name: "Ragged",
			Rows: [][]string{
				{"Name", "Phone No", "City"},
				{"Alice", "555-0100"},
				{"Bob", "555-0101", "Springfield"},
			},
		}
		def, rows := LoadSheet(sheet)

		require.Len(t, def.Columns, 3)
		assert.Equal(t, "phone", def.Columns[1].Name)
		require.Len(t, rows, 2)
		assert.Equal(t, "", rows[0][2])
	})

	t.Run("stragglers coerce to null", func(t *testing.T) {
		t.Parallel()
		rows := make([][]string, 0, 300)
		rows = append(rows, []string{"Amount"})
		for range 299 {
			rows = append(rows, []string{"5"})
		}
		// Past the sample bound, so the vote never sees it.
		rows = append(rows, []string{"pending"})
		def, data := LoadSheet(Sheet{Name: "Big", Rows: rows})

		require.Len(t, def.Columns, 1)
		assert.Equal(t, ColumnTypeNumeric, def.Columns[0].Type)
		assert.Nil(t, data[len(data)-1][0])
	})

	t.Run("empty sheet", func(t *testing.T) {
		t.Parallel()
		def, rows := LoadSheet(Sheet{Name: "Blank"})
		assert.Empty(t, def.Columns)
		assert.Nil(t, rows)
	})
}

func TestHeaderLikeRow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		row      []string
		expected bool
	}{
		{"textual header", []string{"Name", "Age", "City"}, true},
		{"numeric first row", []string{"12", "34", "56"}, false},
		{"temporal first row", []string{"2024-01-01", "2024-01-02"}, false},
		{"duplicate tokens", []string{"x", "x", "y"}, false},
		{"mostly empty", []string{"Name", "", "", ""}, false},
		{"empty row", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, headerLikeRow(tt.row))
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		row      []string
		width    int
		expected []string
	}{
		{
			name:     "sanitized and aliased",
			row:      []string{"Visit Dt", "DOB", "E-Mail"},
			width:    3,
			expected: []string{"visit_date", "date_of_birth", "email"},
		},
		{
			name:     "reserved and empty get placeholders",
			row:      []string{"Select", "", "City"},
			width:    3,
			expected: []string{"col_1", "col_2", "city"},
		},
		{
			name:     "digit-leading gets prefix",
			row:      []string{"2024 Intake", "Name"},
			width:    2,
			expected: []string{"c_2024_intake", "name"},
		},
		{
			name:     "duplicates get positional suffixes",
			row:      []string{"Phone", "Phone", "Phone"},
			width:    3,
			expected: []string{"phone", "phone_2", "phone_3"},
		},
		{
			name:     "short row padded with placeholders",
			row:      []string{"Name"},
			width:    2,
			expected: []string{"name", "col_2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, normalizeHeader(tt.row, tt.width))
		})
	}
}

func TestDropRow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		row      []string
		expected bool
	}{
		{"fully empty", []string{"", "", ""}, true},
		{"whitespace only", []string{" ", "\t", ""}, true},
		{"half populated with summary token", []string{"Grand Total", "42", "", ""}, true},
		{"summary token but well populated", []string{"Total", "1", "2", "3"}, false},
		{"sparse without summary token", []string{"note", "", "", ""}, false},
		{"ordinary data row", []string{"Alice", "34", "2024-01-01"}, false},
		{"case-insensitive token", []string{"SUBTOTAL", "9", "", ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, dropRow(tt.row))
		})
	}
}
