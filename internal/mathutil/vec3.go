package mathutil

import "math"

// Vec3 is a 3-component vector (value type, stack-allocated).
// Colors travel through the pipeline as Vec3 in either RGB or YCoCg order.
type Vec3 [3]float64

// Splat3 returns a vector with all components set to s.
func Splat3(s float64) Vec3 {
	return Vec3{s, s, s}
}

func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Mul multiplies component-wise.
func (a Vec3) Mul(b Vec3) Vec3 {
	return Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

func (a Vec3) Dot(b Vec3) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func (v Vec3) Len() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func (a Vec3) Min(b Vec3) Vec3 {
	return Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])}
}

func (a Vec3) Max(b Vec3) Vec3 {
	return Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])}
}

// Clamp clamps each component into [lo, hi] independently.
func (v Vec3) Clamp(lo, hi Vec3) Vec3 {
	return Vec3{
		Clamp(v[0], lo[0], hi[0]),
		Clamp(v[1], lo[1], hi[1]),
		Clamp(v[2], lo[2], hi[2]),
	}
}

func (v Vec3) Abs() Vec3 {
	return Vec3{math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2])}
}

func (v Vec3) Sqrt() Vec3 {
	return Vec3{math.Sqrt(v[0]), math.Sqrt(v[1]), math.Sqrt(v[2])}
}

// MaxComponent returns the largest of the three components.
func (v Vec3) MaxComponent() float64 {
	return math.Max(v[0], math.Max(v[1], v[2]))
}

// Lerp3 interpolates a→b by t.
func Lerp3(a, b Vec3, t float64) Vec3 {
	return Vec3{Lerp(a[0], b[0], t), Lerp(a[1], b[1], t), Lerp(a[2], b[2], t)}
}

// LerpPerChannel interpolates each component by its own factor.
func LerpPerChannel(a, b, t Vec3) Vec3 {
	return Vec3{Lerp(a[0], b[0], t[0]), Lerp(a[1], b[1], t[1]), Lerp(a[2], b[2], t[2])}
}
