package services

import "servicequote/brandcolor"

// RGB is a colour with 8-bit channels.
type RGB struct {
	R, G, B uint8
}

// DefaultBrandColor is used whenever a business has no usable brand colour.
var DefaultBrandColor = func() RGB {
	r, g, b, _ := brandcolor.Parse(brandcolor.Default)
	return RGB{R: r, G: g, B: b}
}()

// DefaultBrandColorHex is DefaultBrandColor in #rrggbb form.
const DefaultBrandColorHex = brandcolor.Default

// ParseHexColor parses "#rrggbb" or "rrggbb" (any case). Anything else yields
// DefaultBrandColor; a bad colour never fails a render.
func ParseHexColor(s string) RGB {
	r, g, b, ok := brandcolor.Parse(s)
	if !ok {
		return DefaultBrandColor
	}
	return RGB{R: r, G: g, B: b}
}

// Hex returns the colour in lowercase #rrggbb form.
func (c RGB) Hex() string {
	const digits = "0123456789abcdef"
	b := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, v := range []uint8{c.R, c.G, c.B} {
		b[1+2*i] = digits[v>>4]
		b[2+2*i] = digits[v&0x0f]
	}
	return string(b)
}
