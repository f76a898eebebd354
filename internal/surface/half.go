package surface

import (
	"github.com/x448/float16"

	"temporal-upscaler/internal/mathutil"
)

// Half2 is a two-channel half-precision texel (dilated motion vectors).
type Half2 [2]float16.Float16

// Half4 is a four-channel half-precision texel (colors with a weight or alpha).
type Half4 [4]float16.Float16

// Round16 rounds v to the nearest representable half (ties to even).
func Round16(v float64) float64 {
	return float64(float16.Fromfloat32(float32(v)).Float32())
}

// ToHalf converts a float64 to half precision.
func ToHalf(v float64) float16.Float16 {
	return float16.Fromfloat32(float32(v))
}

// FromHalf widens a half back to float64.
func FromHalf(h float16.Float16) float64 {
	return float64(h.Float32())
}

// PackHalf2 rounds a vector into a Half2.
func PackHalf2(v mathutil.Vec2) Half2 {
	return Half2{ToHalf(v[0]), ToHalf(v[1])}
}

// Unpack widens to float64.
func (h Half2) Unpack() mathutil.Vec2 {
	return mathutil.Vec2{FromHalf(h[0]), FromHalf(h[1])}
}

// PackHalf4 stores a color triple and a fourth channel.
func PackHalf4(c mathutil.Vec3, w float64) Half4 {
	return Half4{ToHalf(c[0]), ToHalf(c[1]), ToHalf(c[2]), ToHalf(w)}
}

// Color returns the first three channels.
func (h Half4) Color() mathutil.Vec3 {
	return mathutil.Vec3{FromHalf(h[0]), FromHalf(h[1]), FromHalf(h[2])}
}

// W returns the fourth channel.
func (h Half4) W() float64 {
	return FromHalf(h[3])
}

// Unpack widens all four channels.
func (h Half4) Unpack() [4]float64 {
	return [4]float64{FromHalf(h[0]), FromHalf(h[1]), FromHalf(h[2]), FromHalf(h[3])}
}
