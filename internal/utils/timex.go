package utils

import "time"

// Layouts seen in the data files: RFC3339 from this service, naive ISO-8601
// (with or without fractional seconds) from the Flask era, and bare dates for
// dueDate.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses an ISO-8601-ish string; ok is false for empty or
// unparseable input.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTime renders the canonical on-disk timestamp format.
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// Now returns the current time as an on-disk timestamp string.
func Now() string { return FormatTime(time.Now()) }
