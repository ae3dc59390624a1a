package services

import (
	"strconv"

	"github.com/dustin/go-humanize"
)

// FormatMoney formats an amount as US dollars with thousands separators and
// exactly two decimal places, e.g. $2,500.00.
func FormatMoney(amount float64) string {
	negative := false
	if amount < 0 {
		negative = true
		amount = -amount
	}

	result := "$" + humanize.FormatFloat("#,###.##", amount)
	if negative {
		result = "-" + result
	}
	return result
}

// FormatRate renders a percentage without trailing zeros: 8.5, 10, 7.25.
func FormatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

// FormatQuantity renders a quantity the same way as a rate.
func FormatQuantity(qty float64) string {
	return strconv.FormatFloat(qty, 'f', -1, 64)
}
