// Package surface holds the per-pixel buffers the upscaler passes read and
// write: flat generic grids, reduced-precision storage texels and the atomic
// depth cells used for order-independent splatting.
package surface

import "temporal-upscaler/internal/mathutil"

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// Vec returns the size as a float vector.
func (s Size) Vec() mathutil.Vec2 {
	return mathutil.Vec2{float64(s.Width), float64(s.Height)}
}

// Area returns Width*Height.
func (s Size) Area() int {
	return s.Width * s.Height
}

// Empty reports whether either dimension is non-positive.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Contains reports whether (x, y) lies inside [0,W)×[0,H).
func (s Size) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.Width && y < s.Height
}

// Clamp clamps (x, y) into the valid pixel range.
func (s Size) Clamp(x, y int) (int, int) {
	return min(max(x, 0), s.Width-1), min(max(y, 0), s.Height-1)
}

// Grid is a row-major 2D buffer stored as a flat slice for cache locality.
type Grid[T any] struct {
	Width  int
	Height int
	Pix    []T // len = Width*Height
}

// NewGrid allocates a zeroed grid.
func NewGrid[T any](w, h int) *Grid[T] {
	return &Grid[T]{
		Width:  w,
		Height: h,
		Pix:    make([]T, w*h),
	}
}

// Size returns the grid dimensions.
func (g *Grid[T]) Size() Size {
	return Size{Width: g.Width, Height: g.Height}
}

// Index returns the flat offset of (x, y). No bounds check.
func (g *Grid[T]) Index(x, y int) int {
	return y*g.Width + x
}

// At returns the value at (x, y). Panics when out of range.
func (g *Grid[T]) At(x, y int) T {
	return g.Pix[y*g.Width+x]
}

// Set stores v at (x, y). Panics when out of range.
func (g *Grid[T]) Set(x, y int, v T) {
	g.Pix[y*g.Width+x] = v
}

// AtClamped returns the value at (x, y) clamped to the grid edge.
func (g *Grid[T]) AtClamped(x, y int) T {
	x = min(max(x, 0), g.Width-1)
	y = min(max(y, 0), g.Height-1)
	return g.Pix[y*g.Width+x]
}

// Contains reports whether (x, y) is inside the grid.
func (g *Grid[T]) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// Fill sets every element to v.
func (g *Grid[T]) Fill(v T) {
	for i := range g.Pix {
		g.Pix[i] = v
	}
}
