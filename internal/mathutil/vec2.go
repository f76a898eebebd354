package mathutil

import "math"

// Vec2 is a 2-component vector used for UVs, pixel positions and motion.
type Vec2 [2]float64

func (a Vec2) Add(b Vec2) Vec2 {
	return Vec2{a[0] + b[0], a[1] + b[1]}
}

func (a Vec2) Sub(b Vec2) Vec2 {
	return Vec2{a[0] - b[0], a[1] - b[1]}
}

// Mul multiplies component-wise.
func (a Vec2) Mul(b Vec2) Vec2 {
	return Vec2{a[0] * b[0], a[1] * b[1]}
}

// Div divides component-wise.
func (a Vec2) Div(b Vec2) Vec2 {
	return Vec2{a[0] / b[0], a[1] / b[1]}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v[0] * s, v[1] * s}
}

func (a Vec2) Dot(b Vec2) float64 {
	return a[0]*b[0] + a[1]*b[1]
}

func (v Vec2) Len() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1])
}

func (v Vec2) Floor() Vec2 {
	return Vec2{math.Floor(v[0]), math.Floor(v[1])}
}

// Fract returns v - floor(v).
func (v Vec2) Fract() Vec2 {
	return v.Sub(v.Floor())
}
