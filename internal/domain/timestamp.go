package domain

import "time"

// timestampLayouts covers the ISO-8601 shapes the exporter produces: RFC 3339
// with Z or an explicit offset, naive date-times with optional fractional
// seconds (T or space separated), and bare dates.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 instant. Naive values are taken as UTC;
// explicit offsets are converted to UTC. ok is false for empty or
// unparseable input.
func ParseTimestamp(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders t as an ISO-8601 UTC string with a trailing Z,
// keeping fractional seconds only when present.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// EpochSeconds is t as seconds since the Unix epoch, millisecond precision.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1e3
}

// Day is one UTC calendar-day aggregation bucket.
type Day struct {
	Start time.Time
}

// DayOf buckets an instant into its UTC calendar day.
func DayOf(t time.Time) Day {
	u := t.UTC()
	return Day{Start: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// End is the exclusive upper bound, exactly 86400 seconds past Start.
func (d Day) End() time.Time {
	return d.Start.Add(24 * time.Hour)
}

// Label is the bucket's YYYY-MM-DD name.
func (d Day) Label() string {
	return d.Start.Format(time.DateOnly)
}

// StartUnix keys the bucket for map lookups.
func (d Day) StartUnix() int64 {
	return d.Start.Unix()
}

// DateRange is a half-open [Start, End) UTC window. Zero bounds are open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && !t.Before(r.End) {
		return false
	}
	return true
}

// IsZero reports an unbounded range (no filtering configured).
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}
