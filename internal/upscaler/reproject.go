package upscaler

import (
	"temporal-upscaler/internal/colorspace"
	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/sampler"
	"temporal-upscaler/internal/surface"
)

// ComputeReprojectedUV returns where display pixel (x, y) was in the previous
// frame and whether that position is inside the previous frame.
func ComputeReprojectedUV(x, y int, mv mathutil.Vec2, display surface.Size) (mathutil.Vec2, bool) {
	hrUV := mathutil.Vec2{
		(float64(x) + 0.5) / float64(display.Width),
		(float64(y) + 0.5) / float64(display.Height),
	}
	uv := hrUV.Add(mv)
	existing := uv[0] >= 0 && uv[0] <= 1 && uv[1] >= 0 && uv[1] <= 1
	return uv, existing
}

// hrMotionVector returns the UV motion of display pixel (x, y), from the
// dilated render-resolution buffer or directly from display-resolution input.
func hrMotionVector(p *frameParams, dilated *surface.Grid[surface.Half2], displayMotion surface.VectorSource, x, y int, hrUV mathutil.Vec2) mathutil.Vec2 {
	if p.flags.Has(FlagDisplayResolutionMotionVectors) {
		return loadInputMotionVector(p, displayMotion, x, y)
	}
	lx, ly := p.render.Clamp(int(hrUV[0]*float64(p.render.Width)), int(hrUV[1]*float64(p.render.Height)))
	return dilated.At(lx, ly).Unpack()
}

// reprojectHistory resamples the previous history at uv with the deringed
// Lanczos bicubic and converts it into the working YCoCg space.
func reprojectHistory(p *frameParams, history *surface.Grid[surface.Half4], uv mathutil.Vec2) (mathutil.Vec3, float64) {
	v := sampler.Lanczos2Bicubic(uv, history.Size(), func(x, y int) [4]float64 {
		return history.At(x, y).Unpack()
	})
	rgb := mathutil.Vec3{v[0], v[1], v[2]}.Scale(p.exposure)
	if p.hdr() {
		rgb = colorspace.Tonemap(rgb)
	}
	return colorspace.RGBToYCoCg(rgb), v[3]
}

// reprojectLockStatus samples the previous lock at uv. A lock created this
// frame at the destination pixel keeps its fresh lifetime.
func reprojectLockStatus(locks *surface.Grid[lockTexel], uv mathutil.Vec2, inPlaceLifetime float64) LockStatus {
	s := sampleLockStatus(locks, uv)
	return applyNewLock(s, inPlaceLifetime)
}

func applyNewLock(s LockStatus, inPlaceLifetime float64) LockStatus {
	if inPlaceLifetime > 0 {
		s.Lifetime = inPlaceLifetime
		s.New = true
	}
	return s
}
