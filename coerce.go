package sheetql

import (
	"strconv"
	"strings"
	"time"
)

// Spreadsheet date serials count days from the Excel epoch, which is
// 1899-12-30 because of the 1900 leap-year bug the format preserves.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Serial values outside this window are treated as plain numbers that
// happen to sit in a temporal column, and coerce to null.
const (
	minDateSerial = 1.0     // 1899-12-31
	maxDateSerial = 80000.0 // year 2118
)

// temporalStorageLayout is the ISO8601 form temporal values are stored as.
const temporalStorageLayout = "2006-01-02 15:04:05"

// CoerceValue converts a raw cell into the storage representation for the
// target type.
//
// Numeric yields float64, temporal yields an ISO8601 string, text yields the
// raw string unchanged. Any value that does not parse as the target type
// yields nil, the null marker: inference samples, so the full column may
// contain stragglers the vote never saw, and those must become NULL rather
// than corrupt a typed column or fail an insert. CoerceValue never fails.
func CoerceValue(raw string, target ColumnType) any {
	switch target {
	case ColumnTypeNumeric:
		return coerceNumeric(raw)
	case ColumnTypeTemporal:
		return coerceTemporal(raw)
	default:
		return raw
	}
}

func coerceNumeric(raw string) any {
	s := strings.TrimSpace(raw)
	if !looksNumeric(s) {
		return nil
	}
	f, err := strconv.ParseFloat(normalizeNumber(s), 64)
	if err != nil {
		return nil
	}
	return f
}

func coerceTemporal(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if t, ok := parseTemporal(s); ok {
		return t.Format(temporalStorageLayout)
	}
	// A bare number in a temporal column is read as a date serial.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if t, ok := serialToTime(f); ok {
			return t.Format(temporalStorageLayout)
		}
	}
	return nil
}

// parseTemporal parses s under the pinned datetime layouts.
func parseTemporal(s string) (time.Time, bool) {
	if len(s) < minTemporalLen || len(s) > maxTemporalLen {
		return time.Time{}, false
	}
	for _, tp := range temporalPatterns {
		if !tp.pattern.MatchString(s) {
			continue
		}
		for _, layout := range tp.layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// serialToTime converts a spreadsheet date serial into a timestamp.
// The fractional part is the time of day.
func serialToTime(serial float64) (time.Time, bool) {
	if serial < minDateSerial || serial > maxDateSerial {
		return time.Time{}, false
	}
	days := int(serial)
	frac := serial - float64(days)
	t := serialEpoch.AddDate(0, 0, days)
	t = t.Add(time.Duration(frac*24*3600+0.5) * time.Second)
	return t, true
}
