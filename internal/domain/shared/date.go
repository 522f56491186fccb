package shared

import "time"

// DateLayout is the ISO calendar date format used by date-only payload fields
const DateLayout = "2006-01-02"

// ParseDate parses an ISO calendar date in UTC
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// InclusiveDays counts calendar days from..to, both ends included.
// It is zero or negative when to precedes from.
func InclusiveDays(from, to time.Time) int {
	return int(to.Sub(from).Hours()/24) + 1
}
