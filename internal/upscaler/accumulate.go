package upscaler

import (
	"math"

	"temporal-upscaler/internal/colorspace"
	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/sampler"
	"temporal-upscaler/internal/surface"
)

// PixelState is the accumulation state of a display pixel in a frame.
type PixelState uint8

const (
	// NoHistory means nothing could be reprojected: first frame, reset, or
	// the previous position was off-screen.
	NoHistory PixelState = iota
	// Tracking means history was reprojected and blended normally.
	Tracking
	// Locked means a lock protected the history from rectification.
	Locked
	// Disoccluded means history was reprojected but the surface was hidden
	// in the previous frame.
	Disoccluded
)

func (s PixelState) String() string {
	switch s {
	case NoHistory:
		return "no-history"
	case Tracking:
		return "tracking"
	case Locked:
		return "locked"
	case Disoccluded:
		return "disoccluded"
	default:
		return "unknown"
	}
}

// MaxAccumulation is the history weight cap for a pixel this frame. Motion,
// disocclusion and shading change pull it from MaxAccumulationWeight towards
// AccumulationMaxOnMotion; reactive content pulls it towards 1.
func MaxAccumulation(velocityPixels, reactive, depthClip, lumaDiff float64) float64 {
	stability := (1 - mathutil.Saturate(velocityPixels/VelocityFullMotionPixels)) * depthClip * (1 - lumaDiff)
	stability = mathutil.Saturate(stability)
	return mathutil.Lerp(mathutil.Lerp(AccumulationMaxOnMotion, MaxAccumulationWeight, stability), 1, mathutil.Saturate(reactive))
}

// HistoryBoxScale widens the rectification box as the upscale ratio grows.
func HistoryBoxScale(downscale mathutil.Vec2) float64 {
	return 1 + 0.5*(1/downscale[0]-1)
}

// RectifyHistory pulls history towards the rectification box, scaled by
// boxScale. contribution in [0,1] is how much the history is protected.
// Channels already inside the box are untouched; if any channel was
// outside, the weight is capped at maxAccumulation.
func RectifyHistory(history mathutil.Vec3, weight float64, box RectificationBox, boxScale, contribution, maxAccumulation float64) (mathutil.Vec3, float64) {
	scaledVec := box.BoxVec.Scale(boxScale)
	lo := box.AabbMin.Max(box.BoxCenter.Sub(scaledVec))
	hi := box.AabbMax.Min(box.BoxCenter.Add(scaledVec))

	outside := false
	for i := range history {
		clamped := mathutil.Clamp(history[i], lo[i], hi[i])
		dist := math.Abs(history[i] - clamped)
		if dist > 0 {
			outside = true
		}
		ratio := mathutil.Saturate(mathutil.SafeRatio(dist, scaledVec[i], 0))
		history[i] = mathutil.Lerp(history[i], clamped, (1-contribution)*ratio)
	}
	if outside {
		weight = min(weight, maxAccumulation)
	}
	return history, weight
}

// Accumulate blends the upsampled sample into the history as a running
// weighted average and caps the resulting weight.
func Accumulate(history mathutil.Vec3, weight float64, upsampled mathutil.Vec3, upsampledWeight, maxAccumulation float64) (mathutil.Vec3, float64) {
	weight += upsampledWeight
	alpha := 0.0
	if weight > Epsilon {
		alpha = upsampledWeight / weight
	}
	history = mathutil.Lerp3(history, upsampled, alpha)
	weight = mathutil.Clamp(weight, 0, maxAccumulation)
	return history, weight
}

type accumulateInputs struct {
	prepared      *surface.Grid[surface.Half4]
	dilatedMotion *surface.Grid[surface.Half2]
	displayMotion surface.VectorSource
	depthClip     *surface.Plane
	luma          *lumaPyramid
	reactive      surface.ScalarSource
	transparency  surface.ScalarSource
	newLocks      *surface.Plane
	prevHistory   *surface.Grid[surface.Half4]
	prevLocks     *surface.Grid[lockTexel]
}

type accumulateOutputs struct {
	history *surface.Grid[surface.Half4]
	locks   *surface.Grid[lockTexel]
	states  *surface.Grid[PixelState]
	output  surface.ColorSink
}

func bilinearScalar(size surface.Size, uv mathutil.Vec2, fetch func(x, y int) float64) float64 {
	return sampler.Bilinear(uv, size).SampleScalar(size, fetch)
}

// sampleRender bilinearly samples an optional mask over the render region.
// The mask may be larger than the render size.
func sampleRender(src surface.ScalarSource, render surface.Size, uv mathutil.Vec2) float64 {
	if src == nil {
		return 0
	}
	return bilinearScalar(render, uv, src.LoadScalar)
}

// accumulatePixel runs reprojection, lock update, upsampling, rectification
// and accumulation for one display pixel and writes the new history.
func accumulatePixel(p *frameParams, in accumulateInputs, out accumulateOutputs, x, y int) {
	hrUV := mathutil.Vec2{
		(float64(x) + 0.5) / float64(p.display.Width),
		(float64(y) + 0.5) / float64(p.display.Height),
	}
	lrUV := hrUV.Add(p.jitter.Div(p.render.Vec()))

	mv := hrMotionVector(p, in.dilatedMotion, in.displayMotion, x, y, hrUV)
	reprojUV, existing := ComputeReprojectedUV(x, y, mv, p.display)
	if p.reset {
		existing = false
	}

	inPlaceLifetime := in.newLocks.LoadScalar(x, y)
	var history mathutil.Vec3
	var weight float64
	var lock LockStatus
	if existing {
		history, weight = reprojectHistory(p, in.prevHistory, reprojUV)
		lock = reprojectLockStatus(in.prevLocks, reprojUV, inPlaceLifetime)
	} else {
		lock = applyNewLock(lock, inPlaceLifetime)
	}
	state := GetLockState(lock)

	depthClip := mathutil.Saturate(bilinearScalar(p.render, lrUV, in.depthClip.LoadScalar))
	reactive := mathutil.Saturate(sampleRender(in.reactive, p.render, lrUV))
	transparency := sampleRender(in.transparency, p.render, lrUV)
	shadingLuma := in.luma.ShadingChangeLuma(hrUV, p.lumaMip)

	lock, lumaDiff := PostProcessLockStatus(lock, shadingLuma, depthClip, reactive, transparency)
	lockContribution := LockContribution(lock, depthClip)

	kernelWeight := ComputeKernelWeight(weight, depthClip, reactive, p.downscale)
	upsampled, upsampledWeight, box := upsampleColorAndWeight(p, in.prepared, x, y, kernelWeight)

	velocity := mv.Mul(p.display.Vec()).Len()
	maxAccumulation := MaxAccumulation(velocity, reactive, depthClip, lumaDiff)

	pixelState := NoHistory
	if existing {
		if state.NewLock {
			weight = min(weight, AccumulationMaxOnMotion)
		}
		weight *= depthClip
		contribution := max(lock.Trust*depthClip*depthClip, lockContribution)
		history, weight = RectifyHistory(history, weight, box, HistoryBoxScale(p.downscale), contribution, maxAccumulation)

		switch {
		case depthClip < LockDepthClipThreshold:
			pixelState = Disoccluded
		case lock.Trust > 0 || lock.New:
			pixelState = Locked
		default:
			pixelState = Tracking
		}
	}

	history, weight = Accumulate(history, weight, upsampled, upsampledWeight, maxAccumulation)
	weight = max(0, weight-upsampledWeight*reactive)
	lock = FinalizeLockStatus(lock, upsampledWeight, p.jitterPhaseCount)

	rgb := colorspace.YCoCgToRGB(history)
	if p.hdr() {
		rgb = colorspace.InverseTonemap(rgb)
	}
	rgb = rgb.Scale(1 / p.exposure)

	out.history.Set(x, y, surface.PackHalf4(rgb, weight))
	out.locks.Set(x, y, packLock(lock))
	out.states.Set(x, y, pixelState)
	if out.output != nil {
		out.output.StoreColor(x, y, rgb.Scale(p.preExposure))
	}
}
