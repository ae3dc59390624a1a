package services

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// ErrInvalidQuantity is returned when a quantity cannot be used for pricing.
var ErrInvalidQuantity = errors.New("invalid quantity")

// ParseQuantity converts a form or JSON value to a quantity. Blank input is
// zero; non-numeric, negative or non-finite input is an error.
func ParseQuantity(v any) (float64, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		v = s
	}
	if v == nil {
		return 0, nil
	}
	q, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidQuantity, v)
	}
	if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidQuantity, v)
	}
	return q, nil
}
