package sheetql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceValue_Numeric(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		expected any
	}{
		{"plain integer", "42", float64(42)},
		{"decimal", "3.14", 3.14},
		{"negative", "-7", float64(-7)},
		{"thousands separators", "1,234,567.89", 1234567.89},
		{"surrounding whitespace", "  19 ", float64(19)},
		{"empty cell", "", nil},
		{"text yields null", "n/a", nil},
		{"malformed grouping yields null", "1,23", nil},
		{"trailing garbage yields null", "12abc", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, CoerceValue(tt.raw, ColumnTypeNumeric))
		})
	}
}

func TestCoerceValue_Temporal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		expected any
	}{
		{"iso date", "2024-03-15", "2024-03-15 00:00:00"},
		{"iso datetime", "2024-03-15 09:30:00", "2024-03-15 09:30:00"},
		{"rfc3339", "2024-03-15T09:30:00Z", "2024-03-15 09:30:00"},
		{"us slash date", "3/15/2024", "2024-03-15 00:00:00"},
		{"dotted date", "15.3.2024", "2024-03-15 00:00:00"},
		{"date serial", "45366", "2024-03-15 00:00:00"},
		{"date serial with time fraction", "45366.5", "2024-03-15 12:00:00"},
		{"serial below window yields null", "0.25", nil},
		{"serial above window yields null", "99999", nil},
		{"empty cell", "", nil},
		{"text yields null", "pending", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, CoerceValue(tt.raw, ColumnTypeTemporal))
		})
	}
}

func TestCoerceValue_Text(t *testing.T) {
	t.Parallel()

	// Text columns keep every value verbatim, including empties.
	assert.Equal(t, "Grand Total", CoerceValue("Grand Total", ColumnTypeText))
	assert.Equal(t, "", CoerceValue("", ColumnTypeText))
	assert.Equal(t, "  spaced  ", CoerceValue("  spaced  ", ColumnTypeText))
}

func TestSerialToTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		serial   float64
		expected string
		ok       bool
	}{
		{"epoch plus one", 1, "1899-12-31 00:00:00", true},
		{"known date", 45366, "2024-03-15 00:00:00", true},
		{"half day", 45366.5, "2024-03-15 12:00:00", true},
		{"below window", 0.9, "", false},
		{"above window", 80001, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := serialToTime(tt.serial)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got.Format(temporalStorageLayout))
			}
		})
	}
}
