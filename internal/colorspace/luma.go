package colorspace

import (
	"math"

	"temporal-upscaler/internal/mathutil"
)

// Luma returns Rec.709 relative luminance of linear RGB.
func Luma(rgb mathutil.Vec3) float64 {
	return 0.2126*rgb[0] + 0.7152*rgb[1] + 0.0722*rgb[2]
}

// PerceivedLuma returns CIE L* of the luminance, scaled to [0,1].
func PerceivedLuma(rgb mathutil.Vec3) float64 {
	l := Luma(rgb)
	var p float64
	if l <= 216.0/24389.0 {
		p = l * (24389.0 / 27.0)
	} else {
		p = math.Cbrt(l)*116 - 16
	}
	return p * 0.01
}
