package utils

import (
	"time"
)

// London is the UK civil time zone used for report dates.
var London *time.Location

func init() {
	var err error
	London, err = time.LoadLocation("Europe/London")
	if err != nil {
		// Fallback: UTC if tz database is not available
		London = time.UTC
	}
}

// NowUK returns the current time in UK civil time.
func NowUK() time.Time {
	return time.Now().In(London)
}

// AsOfYear returns the UK calendar year of t. Callers pass it to the engine
// so that calculations never read the clock themselves.
func AsOfYear(t time.Time) int {
	return t.In(London).Year()
}

// FormatDateUK formats a date as "02 Jan 2006" in UK time.
func FormatDateUK(t time.Time) string {
	return t.In(London).Format("02 Jan 2006")
}

// FormatDateTimeUK formats a timestamp as "02 Jan 2006 15:04 MST" in UK time.
func FormatDateTimeUK(t time.Time) string {
	return t.In(London).Format("02 Jan 2006 15:04 MST")
}
