package progress

import (
	"context"
	"time"
)

type locationKey struct{}

// WithLocation returns a copy of ctx carrying the viewer's zone.
func WithLocation(ctx context.Context, loc *time.Location) context.Context {
	return context.WithValue(ctx, locationKey{}, loc)
}

// LocationFrom returns the zone stored by WithLocation, or UTC.
func LocationFrom(ctx context.Context) *time.Location {
	if loc, ok := ctx.Value(locationKey{}).(*time.Location); ok && loc != nil {
		return loc
	}
	return time.UTC
}

// Day returns the calendar day t falls on in loc, encoded as midnight UTC.
// Session dates are stored in this encoding.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dayNumber counts days since the Unix epoch for the calendar date printed on t.
// It ignores t's location on purpose: stored dates are already calendar dates.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// DaysBetween returns the number of calendar days from earlier to later.
func DaysBetween(later, earlier time.Time) int {
	return int(dayNumber(later) - dayNumber(earlier))
}

// LoadLocation resolves an IANA zone name, returning fallback for empty or unknown names.
func LoadLocation(name string, fallback *time.Location) *time.Location {
	if name == "" {
		return fallback
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallback
	}
	return loc
}
