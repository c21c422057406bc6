package geom

import "github.com/chewxy/math32"

// Color is a straight-alpha RGBA color with components in [0, 1].
// Alpha is always linear, never gamma-encoded.
type Color [4]float32

// Common colors.
var (
	White  = Color{1, 1, 1, 1}
	Black  = Color{0, 0, 0, 1}
	Red    = Color{1, 0, 0, 1}
	Green  = Color{0, 1, 0, 1}
	Blue   = Color{0, 0, 1, 1}
	Yellow = Color{1, 1, 0, 1}
)

// RGBA returns a Color from its components.
func RGBA(r, g, b, a float32) Color { return Color{r, g, b, a} }

// RGBA8 returns a Color from 8-bit components.
func RGBA8(r, g, b, a uint8) Color {
	return Color{float32(r) / 255, float32(g) / 255, float32(b) / 255, float32(a) / 255}
}

// Linear converts the color channels from sRGB encoding to linear.
func (c Color) Linear() Color {
	return Color{SRGBToLinear(c[0]), SRGBToLinear(c[1]), SRGBToLinear(c[2]), c[3]}
}

// SRGB converts the color channels from linear to sRGB encoding.
func (c Color) SRGB() Color {
	return Color{LinearToSRGB(c[0]), LinearToSRGB(c[1]), LinearToSRGB(c[2]), c[3]}
}

// SRGBToLinear applies the sRGB decoding curve to one channel in [0, 1].
func SRGBToLinear(s float32) float32 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return math32.Pow((s+0.055)/1.055, 2.4)
}

// LinearToSRGB applies the sRGB encoding curve to one channel in [0, 1].
func LinearToSRGB(l float32) float32 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*math32.Pow(l, 1/2.4) - 0.055
}
