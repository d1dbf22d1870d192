package util

import (
    "strconv"
    "time"
)

// Offset-naive ISO-8601 layouts; clients that format local datetimes send
// these without a zone designator. Interpreted as UTC.
var naiveLayouts = []string{
    "2006-01-02T15:04:05",
    "2006-01-02T15:04:05.999999999",
}

// ParseTime tries RFC3339, RFC3339Nano, offset-naive ISO-8601, and unix
// seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    for _, layout := range naiveLayouts {
        if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
            return t, true
        }
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}
