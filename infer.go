package sheetql

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Inference constants.
const (
	// maxInferenceSamples limits how many non-empty values per column feed
	// type inference. Coercion's null fallback covers outliers the sample
	// misses.
	maxInferenceSamples = 256
	// minTemporalLen and maxTemporalLen bound plausible datetime strings
	// so the regex table is skipped for obvious non-dates.
	minTemporalLen = 4
	maxTemporalLen = 35
)

// temporalPattern pairs a shape regex with the layouts it may parse as.
type temporalPattern struct {
	pattern *regexp.Regexp
	layouts []string
}

// temporalPatterns lists the accepted datetime shapes, most common first.
// Locale is pinned: ISO8601 preferred, M/D/YYYY for slashed dates,
// D.M.YYYY for dotted dates.
var temporalPatterns = []temporalPattern{
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`),
		[]string{time.RFC3339, time.RFC3339Nano},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?$`),
		[]string{"2006-01-02T15:04:05", "2006-01-02T15:04:05.000"},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(\.\d+)?$`),
		[]string{"2006-01-02 15:04:05", "2006-01-02 15:04:05.000"},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		[]string{"2006-01-02"},
	},
	{
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4} \d{1,2}:\d{2}(:\d{2})?( (AM|PM))?$`),
		[]string{"1/2/2006 15:04:05", "1/2/2006 15:04", "1/2/2006 3:04:05 PM", "1/2/2006 3:04 PM"},
	},
	{
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`),
		[]string{"1/2/2006"},
	},
	{
		regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}( \d{1,2}:\d{2}:\d{2})?$`),
		[]string{"2.1.2006", "2.1.2006 15:04:05"},
	},
}

// InferColumnType classifies a column from its sampled values.
//
// The rule is a unanimous vote: every non-empty sample must parse as the
// candidate type, or the column falls back to text. A column of dates with a
// single "Total" cell is text, never temporal. Empty samples are ignored, and
// a column with no non-empty samples is text. Inference never fails.
func InferColumnType(samples []string) ColumnType {
	samples = boundSamples(samples)

	nonEmpty := 0
	allNumeric := true
	allTemporal := true

	for _, s := range samples {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		nonEmpty++
		if allNumeric && !looksNumeric(s) {
			allNumeric = false
		}
		if allTemporal && !looksTemporal(s) {
			allTemporal = false
		}
		if !allNumeric && !allTemporal {
			return ColumnTypeText
		}
	}

	if nonEmpty == 0 {
		return ColumnTypeText
	}
	// Numeric wins over temporal for ambiguous all-number columns; bare
	// date serials are only honored at coercion time, once a column is
	// already temporal from date-formatted samples.
	if allNumeric {
		return ColumnTypeNumeric
	}
	if allTemporal {
		return ColumnTypeTemporal
	}
	return ColumnTypeText
}

// boundSamples caps the sample set for large columns, taking values evenly
// across the column rather than only from the top.
func boundSamples(samples []string) []string {
	if len(samples) <= maxInferenceSamples {
		return samples
	}
	step := len(samples) / maxInferenceSamples
	if step < 1 {
		step = 1
	}
	bounded := make([]string, 0, maxInferenceSamples)
	for i := 0; i < len(samples) && len(bounded) < maxInferenceSamples; i += step {
		bounded = append(bounded, samples[i])
	}
	return bounded
}

// looksNumeric reports whether s parses as a finite number. Thousands
// separators are accepted only in well-formed comma groups.
func looksNumeric(s string) bool {
	s = normalizeNumber(s)
	if s == "" {
		return false
	}
	first := s[0]
	if first != '+' && first != '-' && first != '.' && (first < '0' || first > '9') {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	// ParseFloat accepts "inf" and "nan" spellings; the first-byte check
	// above already excludes them, but keep the finiteness invariant local.
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// groupedThousands matches numbers like 1,234 or -12,345,678.9.
var groupedThousands = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// normalizeNumber strips well-formed thousands separators. A string with
// commas in any other position is returned unchanged and will fail parsing.
func normalizeNumber(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	if groupedThousands.MatchString(s) {
		return strings.ReplaceAll(s, ",", "")
	}
	return s
}

// looksTemporal reports whether s matches one of the accepted datetime
// shapes and actually parses under a matching layout.
func looksTemporal(s string) bool {
	if len(s) < minTemporalLen || len(s) > maxTemporalLen {
		return false
	}
	hasDigit, hasSeparator := false, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '-' || r == '/' || r == '.' || r == ':' || r == 'T' || r == ' ':
			hasSeparator = true
		}
		if hasDigit && hasSeparator {
			break
		}
	}
	if !hasDigit || !hasSeparator {
		return false
	}

	for _, tp := range temporalPatterns {
		if !tp.pattern.MatchString(s) {
			continue
		}
		for _, layout := range tp.layouts {
			if _, err := time.Parse(layout, s); err == nil {
				return true
			}
		}
	}
	return false
}
