package upscaler

import (
	"math"

	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/surface"
)

// Flags select input conventions for a Context.
type Flags uint32

const (
	// FlagHDR marks the color input as high dynamic range. Colors are
	// tonemapped into [0,1) before filtering and inverted on output.
	FlagHDR Flags = 1 << iota
	// FlagDisplayResolutionMotionVectors marks motion vectors as display resolution.
	FlagDisplayResolutionMotionVectors
	// FlagMotionVectorsJitterCancellation marks motion vectors as containing
	// the jitter delta between frames, which is subtracted out.
	FlagMotionVectorsJitterCancellation
	// FlagDepthInverted selects reversed depth (1 near, 0 far).
	FlagDepthInverted
	// FlagDepthInfinite selects an infinite far plane.
	FlagDepthInfinite
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// frameParams holds the per-dispatch constants shared by every pass.
type frameParams struct {
	flags Flags

	render  surface.Size
	display surface.Size
	// render / display per axis
	downscale mathutil.Vec2

	jitter     mathutil.Vec2
	prevJitter mathutil.Vec2
	mvScale    mathutil.Vec2

	preExposure float64
	exposure    float64

	jitterPhaseCount int
	lumaMip          int

	// View depth = |depthE / (device - depthC)|.
	depthC, depthE float64
	tanHalfFov     float64

	reset bool
}

func (p *frameParams) inverted() bool { return p.flags.Has(FlagDepthInverted) }
func (p *frameParams) hdr() bool      { return p.flags.Has(FlagHDR) }

// mvTargetSize is the resolution motion vectors are expressed in.
func (p *frameParams) mvTargetSize() surface.Size {
	if p.flags.Has(FlagDisplayResolutionMotionVectors) {
		return p.display
	}
	return p.render
}

// setCamera derives the device-to-view depth mapping for a D3D style
// projection with depth in [0,1].
func (p *frameParams) setCamera(near, far, fovY float64) {
	inverted := p.inverted()
	switch {
	case p.flags.Has(FlagDepthInfinite) && inverted:
		p.depthC, p.depthE = 0, near
	case p.flags.Has(FlagDepthInfinite):
		p.depthC, p.depthE = 1, -near
	case inverted:
		p.depthC, p.depthE = -near/(far-near), far*near/(far-near)
	default:
		p.depthC, p.depthE = far/(far-near), -far*near/(far-near)
	}
	p.tanHalfFov = math.Tan(0.5 * fovY)
}

// viewDepth converts a device depth to a positive view-space distance.
// The far plane of an infinite projection maps to +Inf.
func (p *frameParams) viewDepth(device float64) float64 {
	d := device - p.depthC
	if d == 0 {
		return math.Inf(1)
	}
	return math.Abs(p.depthE / d)
}

// farDepth is the device depth the reconstructed previous depth is cleared to.
func (p *frameParams) farDepth() float32 {
	if p.inverted() {
		return 0
	}
	return 1
}

// isNearer reports whether device depth a is strictly nearer than b.
func isNearer(a, b float64, inverted bool) bool {
	if inverted {
		return a > b
	}
	return a < b
}
