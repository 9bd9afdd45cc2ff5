package sheetql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	catalog := &Catalog{
		Tables: []TableDef{
			{
				Name:      "patients",
				SheetName: "Patients",
				RowCount:  3,
				Columns: []Column{
					{Name: "name", Type: ColumnTypeText},
					{Name: "age", Type: ColumnTypeNumeric},
					{Name: "visit_date", Type: ColumnTypeTemporal},
				},
			},
		},
		BaseTable: "patients",
	}

	prompt := BuildPrompt(catalog, "  how old is Alice?  ")

	assert.Contains(t, prompt, `patients (source sheet "Patients", 3 rows)`)
	assert.Contains(t, prompt, "name text")
	assert.Contains(t, prompt, "age numeric")
	assert.Contains(t, prompt, "visit_date temporal")
	assert.Contains(t, prompt, "how old is Alice?")
	assert.Contains(t, prompt, "IMPOSSIBLE")
	// Question is trimmed and the prompt ends with the completion cue.
	assert.NotContains(t, prompt, "  how old")
	assert.Equal(t, "SQL:", prompt[len(prompt)-4:])
}
