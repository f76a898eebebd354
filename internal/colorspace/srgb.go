package colorspace

import "math"

// Precomputed sRGB-to-linear lookup table (256 entries).
var srgbToLinear [256]float64

func init() {
	for i := 0; i < 256; i++ {
		srgbToLinear[i] = decodeSRGB(float64(i) / 255.0)
	}
}

func decodeSRGB(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// SRGBToLinear8 decodes an 8-bit sRGB channel through the LUT.
func SRGBToLinear8(v uint8) float64 {
	return srgbToLinear[v]
}

// SRGBToLinear decodes a normalized sRGB channel.
func SRGBToLinear(c float64) float64 {
	return decodeSRGB(c)
}

// LinearToSRGB encodes a linear channel; input is saturated first.
func LinearToSRGB(c float64) float64 {
	if !(c > 0) {
		return 0
	}
	if c >= 1 {
		return 1
	}
	if c <= 0.0031308 {
		return c * 12.92
	}
	return 1.055*math.Pow(c, 1/2.4) - 0.055
}
