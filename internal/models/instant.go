package models

import "time"

// Remote timestamps arrive in ISO8601 with either a literal offset
// ("2024-05-01T10:00:00.000+0000") or a colon-separated one
// ("2024-05-01T10:00:00+00:00"). Both must resolve to the same instant.
var instantLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseInstant parses a remote timestamp. An absent or
// unparsable value yields the zero instant, which compares older than any
// real modification time.
func ParseInstant(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
