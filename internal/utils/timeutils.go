package utils

import (
	"fmt"
	"time"
)

// LogTimestampLayout is the spdlog "%Y-%m-%d %H:%M:%S.%F" header format truncated to microseconds.
const LogTimestampLayout = "2006-01-02 15:04:05.000000"

const nanosFractionDigits = 9

// ParseLogTimestamp parses a header timestamp carrying exactly nine fractional digits. The last three
// digits are discarded so the result has microsecond precision.
func ParseLogTimestamp(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if loc == nil {
		loc = time.UTC
	}
	if len(value) != len("2006-01-02 15:04:05.")+nanosFractionDigits {
		return time.Time{}, fmt.Errorf("time value %q does not have nanosecond precision", value)
	}
	for _, r := range value[len(value)-nanosFractionDigits:] {
		if r < '0' || r > '9' {
			return time.Time{}, fmt.Errorf("time value %q has a non-numeric fraction", value)
		}
	}
	t, err := time.ParseInLocation(LogTimestampLayout, value[:len(value)-3], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// FormatLogTimestamp renders t with microsecond precision, the resolution kept after parsing.
func FormatLogTimestamp(t time.Time) string {
	return t.Format(LogTimestampLayout)
}
