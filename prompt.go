package sheetql

import (
	"fmt"
	"strings"
)

// BuildPrompt generates the model prompt for one question: the approved
// table's schema, the rules the guard will enforce anyway, and the question.
// Only metadata is sent, never row data.
func BuildPrompt(catalog *Catalog, question string) string {
	base := catalog.Base()

	var b strings.Builder
	b.WriteString("You are an expert SQL writer. Write one SQLite SELECT statement that answers the user's question using the table below.\n\n")

	b.WriteString("TABLE:\n")
	fmt.Fprintf(&b, "%s (source sheet %q, %d rows)\n", base.Name, base.SheetName, base.RowCount)
	for _, col := range base.Columns {
		fmt.Fprintf(&b, "  %s %s\n", col.Name, col.Type)
	}

	b.WriteString(`
RULES:
1. Use only SELECT. Never INSERT, UPDATE, DELETE, DROP, CREATE or ALTER.
2. Query only the table above. No JOINs, no subqueries over other tables.
3. Use only the columns listed. Temporal columns are stored as 'YYYY-MM-DD HH:MM:SS' text.
4. Return ONLY the SQL statement itself, with no explanation, markdown or comments.
5. Add LIMIT 100 unless the question asks for a single aggregate (COUNT, SUM, AVG, MIN, MAX).
6. If the question cannot be answered from this table, respond with exactly: IMPOSSIBLE
`)

	b.WriteString("\nQUESTION:\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nSQL:")
	return b.String()
}
