package surface

import "temporal-upscaler/internal/mathutil"

// Plane is a single-channel float buffer (depth, masks, luma).
type Plane struct {
	Grid[float32]
}

// NewPlane allocates a zeroed plane.
func NewPlane(w, h int) *Plane {
	return &Plane{Grid: *NewGrid[float32](w, h)}
}

// LoadScalar implements ScalarSource with edge clamping.
func (p *Plane) LoadScalar(x, y int) float64 {
	return float64(p.AtClamped(x, y))
}

// StoreScalar writes v at (x, y).
func (p *Plane) StoreScalar(x, y int, v float64) {
	p.Set(x, y, float32(v))
}

// VectorField holds per-pixel 2D vectors (motion vectors).
type VectorField struct {
	Grid[mathutil.Vec2]
}

// NewVectorField allocates a zeroed vector field.
func NewVectorField(w, h int) *VectorField {
	return &VectorField{Grid: *NewGrid[mathutil.Vec2](w, h)}
}

// LoadVector implements VectorSource with edge clamping.
func (f *VectorField) LoadVector(x, y int) mathutil.Vec2 {
	return f.AtClamped(x, y)
}

// RGB is a float color image; values are unbounded linear RGB.
type RGB struct {
	Grid[mathutil.Vec3]
}

// NewRGB allocates a black image.
func NewRGB(w, h int) *RGB {
	return &RGB{Grid: *NewGrid[mathutil.Vec3](w, h)}
}

// LoadColor implements ColorSource with edge clamping.
func (img *RGB) LoadColor(x, y int) mathutil.Vec3 {
	return img.AtClamped(x, y)
}

// StoreColor implements ColorSink.
func (img *RGB) StoreColor(x, y int, c mathutil.Vec3) {
	img.Set(x, y, c)
}
