package pixelbot

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// RGB represents a color in the RGB color space with 8-bit channels,
// where each channel ranges from 0 to 255. The canvas only understands
// opaque colors, so there is no alpha channel.
type RGB struct {
	R, G, B uint8
}

// rgbFromUint32 converts a 32-bit unsigned integer to an RGB color
func rgbFromUint32(color uint32) RGB {
	return RGB{
		R: uint8(color >> 16),
		G: uint8(color >> 8),
		B: uint8(color),
	}
}

// RGBFromColor converts any color.Color to straight (non-premultiplied)
// RGB, dropping the alpha channel. A half transparent red pixel stays
// red instead of being darkened toward black. A fully transparent
// color.RGBA{} has no color left to keep and becomes black.
func RGBFromColor(c color.Color) RGB {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{R: n.R, G: n.G, B: n.B}
}

// ToColor converts RGB to an opaque color.RGBA.
func (r RGB) ToColor() color.RGBA {
	return color.RGBA{R: r.R, G: r.G, B: r.B, A: 255}
}

// Hex returns the color in the canonical upper case #RRGGBB form used
// by the canvas API and palette files.
func (r RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", r.R, r.G, r.B)
}

func (r RGB) String() string {
	return r.Hex()
}

// ParseHex parses a #RRGGBB string. The leading # is required and the
// digits are case-insensitive.
func ParseHex(s string) (RGB, error) {
	if len(s) != 7 || s[0] != '#' {
		return RGB{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return rgbFromUint32(uint32(v)), nil
}

// MustParseHex is ParseHex for constants; it panics on malformed input.
func MustParseHex(s string) RGB {
	c, err := ParseHex(strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		panic(err)
	}
	return c
}

// ManhattanDistance returns the sum of the absolute channel differences
// between two colors. The result ranges from 0 to 765.
func ManhattanDistance(a, b RGB) int {
	return absDiff(a.R, b.R) + absDiff(a.G, b.G) + absDiff(a.B, b.B)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
