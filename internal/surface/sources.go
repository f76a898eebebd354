package surface

import "temporal-upscaler/internal/mathutil"

// ColorSource loads linear RGB at a pixel coordinate. Out-of-range
// coordinates are clamped to the edge by implementations.
type ColorSource interface {
	Size() Size
	LoadColor(x, y int) mathutil.Vec3
}

// ScalarSource loads a single channel (depth, reactive or transparency mask).
type ScalarSource interface {
	Size() Size
	LoadScalar(x, y int) float64
}

// VectorSource loads a 2D vector (motion vectors).
type VectorSource interface {
	Size() Size
	LoadVector(x, y int) mathutil.Vec2
}

// ColorSink receives the upscaled output.
type ColorSink interface {
	Size() Size
	StoreColor(x, y int, c mathutil.Vec3)
}

var (
	_ ColorSource  = (*RGB)(nil)
	_ ColorSink    = (*RGB)(nil)
	_ ScalarSource = (*Plane)(nil)
	_ ScalarSource = (*AtomicDepth)(nil)
	_ VectorSource = (*VectorField)(nil)
)
