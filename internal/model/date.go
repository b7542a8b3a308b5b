package model

import "time"

// DateLayout is the calendar-date format used for every date field (trip
// start/end, hotel check-in/out, flight date).
const DateLayout = "2006-01-02"

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
