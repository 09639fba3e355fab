// Package timestamp parses the date formats found in the wild across Atom
// and RSS documents into UTC time.Time values.
//
// Atom prescribes RFC 3339, RSS prescribes RFC 822, and real feeds honor
// neither consistently. Parse tries the common variants in order and
// returns the zero time when nothing matches; callers treat a zero time as
// "not set" and substitute their own clock.
package timestamp

import (
	"strings"
	"time"
)

// feedLayouts are tried in order. RFC 3339 first since Atom dominates
// hub-pushed content, then the RSS 822/1123 family, then the sloppy
// variants feed generators actually emit.
var feedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
}

// Parse decodes a feed date string into a UTC time. The zero time means
// the value was empty or unrecognized.
func Parse(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}

	for _, layout := range feedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ParseOr decodes a feed date string, substituting fallback when the value
// is empty or unrecognized.
func ParseOr(value string, fallback time.Time) time.Time {
	if t := Parse(value); !t.IsZero() {
		return t
	}
	return fallback
}

// Format renders a time as RFC 3339 UTC. The zero time renders as the
// empty string.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
