package upscaler

import (
	"math"

	"temporal-upscaler/internal/colorspace"
	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/sampler"
	"temporal-upscaler/internal/surface"
)

// nearestDepthOffsets is the scan order of FindNearestDepth. The centre
// comes first so it wins every tie.
var nearestDepthOffsets = [9][2]int{
	{0, 0},
	{1, 0},
	{0, 1},
	{0, -1},
	{-1, 0},
	{-1, 1},
	{1, 1},
	{-1, -1},
	{1, -1},
}

// FindNearestDepth returns the nearest depth in the 3×3 neighbourhood of
// (x, y) and its coordinate. Neighbours outside the render region are
// skipped even when the depth buffer is larger, and a neighbour only
// replaces the running best when strictly nearer.
func FindNearestDepth(depth surface.ScalarSource, render surface.Size, x, y int, inverted bool) (float64, int, int) {
	nearest := depth.LoadScalar(x, y)
	nx, ny := x, y
	for _, off := range nearestDepthOffsets[1:] {
		sx, sy := x+off[0], y+off[1]
		if !render.Contains(sx, sy) {
			continue
		}
		d := depth.LoadScalar(sx, sy)
		if isNearer(d, nearest, inverted) {
			nearest = d
			nx, ny = sx, sy
		}
	}
	return nearest, nx, ny
}

// reconstructInputs are the caller resources read by the reconstruction pass.
type reconstructInputs struct {
	color  surface.ColorSource
	depth  surface.ScalarSource
	motion surface.VectorSource
}

// reconstructOutputs are the per-frame buffers written by the reconstruction pass.
type reconstructOutputs struct {
	dilatedDepth  *surface.Plane
	dilatedMotion *surface.Grid[surface.Half2]
	prevDepth     *surface.AtomicDepth
	prepared      *surface.Grid[surface.Half4]
	logLuma       *surface.Plane
}

// loadInputMotionVector reads a caller motion vector and converts it to UV units.
func loadInputMotionVector(p *frameParams, motion surface.VectorSource, x, y int) mathutil.Vec2 {
	target := p.mvTargetSize().Vec()
	mv := motion.LoadVector(x, y).Mul(p.mvScale).Div(target)
	if p.flags.Has(FlagMotionVectorsJitterCancellation) {
		mv = mv.Sub(p.prevJitter.Sub(p.jitter).Div(target))
	}
	return mv
}

// reconstructPixel dilates depth and motion at a render pixel, splats the
// previous-frame depth estimate and prepares the input color.
func reconstructPixel(p *frameParams, in reconstructInputs, out reconstructOutputs, x, y int) {
	nearest, nx, ny := FindNearestDepth(in.depth, p.render, x, y, p.inverted())

	var mv mathutil.Vec2
	if p.flags.Has(FlagDisplayResolutionMotionVectors) {
		hx, hy := ComputeHrPosFromLrPos(nx, ny, p.jitter, p.render, p.display)
		hx, hy = p.display.Clamp(hx, hy)
		mv = loadInputMotionVector(p, in.motion, hx, hy)
	} else {
		mv = loadInputMotionVector(p, in.motion, nx, ny)
	}

	out.dilatedDepth.StoreScalar(x, y, nearest)
	out.dilatedMotion.Set(x, y, surface.PackHalf2(mv))
	ReconstructPrevDepth(out.prevDepth, x, y, nearest, mv, p.display, p.inverted())

	rgb := in.color.LoadColor(x, y).Scale(p.exposure / p.preExposure)
	if p.hdr() {
		rgb = colorspace.Tonemap(rgb)
	}
	luma := colorspace.PerceivedLuma(rgb)
	out.prepared.Set(x, y, surface.PackHalf4(colorspace.RGBToYCoCg(rgb), luma))
	out.logLuma.StoreScalar(x, y, math.Log(math.Max(Epsilon, luma)))
}

// ReconstructPrevDepth splats depth at render pixel (x, y) into the
// previous-frame depth estimate at its reprojected position. Motion
// shorter than MinMotionPixels display pixels is ignored. Each of the
// four bilinear neighbours with a weight above
// ReconstructedDepthWeightThreshold is extremized towards the nearer depth.
func ReconstructPrevDepth(prev *surface.AtomicDepth, x, y int, depth float64, mv mathutil.Vec2, display surface.Size, inverted bool) {
	size := prev.Size()
	if mv.Mul(display.Vec()).Len() <= MinMotionPixels {
		mv = mathutil.Vec2{}
	}
	uv := mathutil.Vec2{
		(float64(x) + 0.5) / float64(size.Width),
		(float64(y) + 0.5) / float64(size.Height),
	}
	b := sampler.Bilinear(uv.Add(mv), size)
	for i, off := range sampler.BilinearOffsets {
		if b.Weights[i] <= ReconstructedDepthWeightThreshold {
			continue
		}
		sx, sy := b.BaseX+off[0], b.BaseY+off[1]
		if !size.Contains(sx, sy) {
			continue
		}
		if inverted {
			prev.Max(sx, sy, float32(depth))
		} else {
			prev.Min(sx, sy, float32(depth))
		}
	}
}
