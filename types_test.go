package sheetql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "TEXT", ColumnTypeText.SQLType())
	assert.Equal(t, "REAL", ColumnTypeNumeric.SQLType())
	assert.Equal(t, "TEXT", ColumnTypeTemporal.SQLType())

	assert.Equal(t, "text", ColumnTypeText.String())
	assert.Equal(t, "numeric", ColumnTypeNumeric.String())
	assert.Equal(t, "temporal", ColumnTypeTemporal.String())
}

func TestSanitizeIdentifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"lowercased", "Patients", "patients"},
		{"spaces collapsed", "Visit  Date", "visit_date"},
		{"punctuation collapsed", "Q1 Sales (Final)!", "q1_sales_final"},
		{"leading and trailing junk trimmed", "  --Name-- ", "name"},
		{"unicode stripped", "café", "caf"},
		{"all junk", "@#$%", ""},
		{"digits kept", "2024 intake", "2024_intake"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, sanitizeIdentifier(tt.in))
		})
	}
}

func TestCatalogLookups(t *testing.T) {
	t.Parallel()

	catalog := &Catalog{
		Tables: []TableDef{
			{Name: "patients", RowCount: 10},
			{Name: "visits", RowCount: 4},
		},
		BaseTable: "patients",
	}

	assert.Equal(t, "patients", catalog.Table("patients").Name)
	assert.Nil(t, catalog.Table("absent"))
	assert.Equal(t, 10, catalog.Base().RowCount)

	empty := &Catalog{}
	assert.Nil(t, empty.Base())
}
