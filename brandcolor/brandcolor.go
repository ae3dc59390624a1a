// Package brandcolor validates the #rrggbb brand colours stored on a business.
package brandcolor

import (
	"regexp"
	"strconv"
)

// Default is the colour used whenever a business has no usable brand colour.
const Default = "#007da5"

var pattern = regexp.MustCompile(`^#?([0-9a-fA-F]{2})([0-9a-fA-F]{2})([0-9a-fA-F]{2})$`)

// Parse splits "#rrggbb" or "rrggbb" (any case) into channels. ok is false
// for anything else.
func Parse(s string) (r, g, b uint8, ok bool) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, 0, false
	}
	return channel(m[1]), channel(m[2]), channel(m[3]), true
}

// Valid reports whether s is a usable brand colour.
func Valid(s string) bool {
	return pattern.MatchString(s)
}

func channel(s string) uint8 {
	v, _ := strconv.ParseUint(s, 16, 8)
	return uint8(v)
}
