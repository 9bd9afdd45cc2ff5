package sheetql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultRowLimit caps non-aggregate result sets.
const DefaultRowLimit = 100

var (
	lineCommentRe  = regexp.MustCompile(`--[^\n]*`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	codeFenceRe    = regexp.MustCompile("(?s)```(?:sql)?|```")

	disallowedRe = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|truncate|attach|pragma|join|union|intersect|except)\b`)
	selectRe     = regexp.MustCompile(`(?i)^\s*select\b`)

	fromRe   = regexp.MustCompile(`(?i)\bfrom\b`)
	clauseRe = regexp.MustCompile(`(?i)\b(where|group\s+by|order\s+by|limit)\b`)

	aggregateRe = regexp.MustCompile(`(?i)(\b(count|sum|avg|min|max)\s*\(|\bgroup\s+by\b)`)
	limitRe     = regexp.MustCompile(`(?i)\blimit\s+(\d+)\b`)
)

// SanitizeSQL constrains an untrusted, model-produced SQL string to a safe,
// single-table, bounded SELECT against approvedTable.
//
// The guard strips comments and code fences, rejects anything that is not a
// single SELECT free of write statements, JOINs and compound operators
// (UNION, INTERSECT, EXCEPT), then discards whatever FROM segment the model
// produced and substitutes the one approved table.
// Non-aggregate statements get a LIMIT of DefaultRowLimit; an existing larger
// LIMIT is clamped. Rejection is ErrRejectedStatement; the guard never
// repairs a disallowed statement, only malformed-but-legal SELECTs.
func SanitizeSQL(rawSQL, approvedTable string) (*SanitizedQuery, error) {
	if strings.TrimSpace(approvedTable) == "" {
		return nil, ErrNoBaseTable
	}

	sqlText := codeFenceRe.ReplaceAllString(rawSQL, " ")
	sqlText = blockCommentRe.ReplaceAllString(sqlText, " ")
	sqlText = lineCommentRe.ReplaceAllString(sqlText, " ")
	sqlText = strings.TrimSpace(sqlText)
	sqlText = strings.TrimSuffix(sqlText, ";")
	sqlText = strings.TrimSpace(sqlText)

	if sqlText == "" {
		return nil, fmt.Errorf("%w: empty statement", ErrRejectedStatement)
	}

	// Quoted regions are masked so keyword checks cannot trip on string
	// literals, and literal positions survive the rewrite untouched.
	masked := maskStringLiterals(sqlText)

	if strings.Contains(masked, ";") {
		return nil, fmt.Errorf("%w: multiple statements", ErrRejectedStatement)
	}
	if !selectRe.MatchString(sqlText) {
		return nil, fmt.Errorf("%w: not a SELECT statement", ErrRejectedStatement)
	}
	if m := disallowedRe.FindString(masked); m != "" {
		return nil, fmt.Errorf("%w: disallowed keyword %q", ErrRejectedStatement, strings.ToUpper(m))
	}

	sqlText = rewriteFromSegment(sqlText, masked, approvedTable)
	masked = maskStringLiterals(sqlText)

	isAggregate := aggregateRe.MatchString(masked)
	rowLimit := 0

	if m := limitRe.FindStringSubmatchIndex(masked); m != nil {
		n, err := strconv.Atoi(masked[m[2]:m[3]])
		if err != nil || n > DefaultRowLimit {
			// Clamp an oversized or unparseable LIMIT in place.
			sqlText = sqlText[:m[2]] + strconv.Itoa(DefaultRowLimit) + sqlText[m[3]:]
			n = DefaultRowLimit
		}
		rowLimit = n
	} else if !isAggregate {
		sqlText += fmt.Sprintf(" LIMIT %d", DefaultRowLimit)
		rowLimit = DefaultRowLimit
	}

	return &SanitizedQuery{
		SQL:         sqlText,
		TargetTable: approvedTable,
		IsAggregate: isAggregate,
		RowLimit:    rowLimit,
	}, nil
}

// maskStringLiterals replaces the contents of single- and double-quoted
// regions with spaces, preserving length so indexes line up with the
// original text.
func maskStringLiterals(s string) string {
	out := []byte(s)
	var quote byte
	for i := 0; i < len(out); i++ {
		c := out[i]
		if quote == 0 {
			if c == '\'' || c == '"' {
				quote = c
			}
			continue
		}
		if c == quote {
			quote = 0
			continue
		}
		out[i] = ' '
	}
	return string(out)
}

// rewriteFromSegment replaces everything between the first FROM keyword and
// the next clause keyword (or end of statement) with the approved table,
// discarding whatever table reference the model produced. A statement with
// no FROM at all gets one appended before its first clause.
func rewriteFromSegment(sqlText, masked, approvedTable string) string {
	replacement := fmt.Sprintf(`FROM "%s"`, approvedTable)

	loc := fromRe.FindStringIndex(masked)
	if loc == nil {
		// SELECT without FROM: anchor the approved table before the
		// first clause keyword, or at the end.
		if clause := clauseRe.FindStringIndex(masked); clause != nil {
			return strings.TrimSpace(sqlText[:clause[0]]) + " " + replacement + " " + sqlText[clause[0]:]
		}
		return sqlText + " " + replacement
	}

	rest := masked[loc[1]:]
	end := len(sqlText)
	if clause := clauseRe.FindStringIndex(rest); clause != nil {
		end = loc[1] + clause[0]
	}

	head := strings.TrimSpace(sqlText[:loc[0]])
	tail := strings.TrimSpace(sqlText[end:])
	if tail == "" {
		return head + " " + replacement
	}
	return head + " " + replacement + " " + tail
}
