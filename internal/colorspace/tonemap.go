package colorspace

import (
	"math"

	"temporal-upscaler/internal/mathutil"
)

// TonemapEpsilon keeps InverseTonemap finite for values at the top of the range.
const TonemapEpsilon = 1.0 / 65504.0

// Tonemap compresses HDR RGB into [0,1) by the max channel, preserving hue.
func Tonemap(rgb mathutil.Vec3) mathutil.Vec3 {
	m := math.Max(0, rgb.MaxComponent())
	return rgb.Scale(1 / (m + 1))
}

// InverseTonemap undoes Tonemap.
func InverseTonemap(rgb mathutil.Vec3) mathutil.Vec3 {
	d := math.Max(TonemapEpsilon, 1-rgb.MaxComponent())
	return rgb.Scale(1 / d)
}

// ACESTonemap applies ACES Filmic tone mapping to a linear value.
// Used only for display of HDR results, never inside the accumulation loop.
func ACESTonemap(x float64) float64 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}
