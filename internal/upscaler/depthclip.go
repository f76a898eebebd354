package upscaler

import (
	"math"

	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/sampler"
	"temporal-upscaler/internal/surface"
)

// sampleDepthClip compares the current view depth against one previous-frame
// sample. Surfaces that moved further away than the tolerated separation
// lose their history.
func sampleDepthClip(p *frameParams, current, previous float64) float64 {
	diff := current - previous
	if !(diff > 0) {
		return 1
	}
	halfViewportWidth := 0.5 * float64(p.render.Width)
	required := DepthSeparationFactor * math.Min(current, previous) * p.tanHalfFov * halfViewportWidth
	return mathutil.Saturate(required / diff)
}

// computeDepthClip gathers the reconstructed previous depth around uv and
// returns the weighted depth clip factor in [0,1]. With no usable
// neighbours the history is kept (1).
func computeDepthClip(p *frameParams, prev *surface.AtomicDepth, uv mathutil.Vec2, currentDepth float64) float64 {
	current := p.viewDepth(currentDepth)
	size := prev.Size()
	b := sampler.Bilinear(uv, size)

	var clip, weightSum float64
	for i, off := range sampler.BilinearOffsets {
		sx, sy := b.BaseX+off[0], b.BaseY+off[1]
		if !size.Contains(sx, sy) {
			continue
		}
		w := b.Weights[i]
		if w <= ReconstructedDepthWeightThreshold {
			continue
		}
		previous := p.viewDepth(float64(prev.Load(sx, sy)))
		clip += w * sampleDepthClip(p, current, previous)
		weightSum += w
	}
	if weightSum <= 0 {
		return 1
	}
	return mathutil.Saturate(clip / weightSum)
}

type depthClipInputs struct {
	dilatedDepth  *surface.Plane
	dilatedMotion *surface.Grid[surface.Half2]
	prevDepth     *surface.AtomicDepth
}

func depthClipPixel(p *frameParams, in depthClipInputs, out *surface.Plane, x, y int) {
	uv := mathutil.Vec2{
		(float64(x) + 0.5) / float64(p.render.Width),
		(float64(y) + 0.5) / float64(p.render.Height),
	}
	mv := in.dilatedMotion.At(x, y).Unpack()
	out.StoreScalar(x, y, computeDepthClip(p, in.prevDepth, uv.Add(mv), in.dilatedDepth.LoadScalar(x, y)))
}
