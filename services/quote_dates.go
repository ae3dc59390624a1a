package services

import "time"

// DefaultValidityDays is how long a quote stays valid after it is issued.
const DefaultValidityDays = 30

const (
	longDateLayout     = "January 2, 2006"
	filenameDateLayout = "2006-01-02"
)

// FormatLongDate renders a date the way it appears on the quote, e.g. "March 5, 2026".
func FormatLongDate(t time.Time) string {
	return t.Format(longDateLayout)
}

// ExpirationDate returns the date a quote issued at t stops being valid.
func ExpirationDate(t time.Time, days int) time.Time {
	if days <= 0 {
		days = DefaultValidityDays
	}
	return t.AddDate(0, 0, days)
}
