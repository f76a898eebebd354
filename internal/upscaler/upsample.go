package upscaler

import (
	"math"

	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/sampler"
	"temporal-upscaler/internal/surface"
)

// RectificationBox bounds the current frame's colors around a display pixel.
// It is built during upsampling and consumed by RectifyHistory in the same
// frame.
type RectificationBox struct {
	AabbMin   mathutil.Vec3
	AabbMax   mathutil.Vec3
	BoxCenter mathutil.Vec3
	BoxVec    mathutil.Vec3

	centerWeight float64
}

// AddSample extends the box. The first sample resets the bounds.
func (b *RectificationBox) AddSample(initial bool, c mathutil.Vec3, weight float64) {
	if initial {
		b.AabbMin = c
		b.AabbMax = c
	} else {
		b.AabbMin = b.AabbMin.Min(c)
		b.AabbMax = b.AabbMax.Max(c)
	}
	weighted := c.Scale(weight)
	b.BoxCenter = b.BoxCenter.Add(weighted)
	b.BoxVec = b.BoxVec.Add(c.Mul(weighted))
	b.centerWeight += weight
}

// ComputeVarianceBoxData turns the accumulated moments into the weighted
// mean (BoxCenter) and standard deviation (BoxVec).
func (b *RectificationBox) ComputeVarianceBoxData() {
	w := b.centerWeight
	if math.Abs(w) <= Epsilon {
		w = 1
	}
	b.BoxCenter = b.BoxCenter.Scale(1 / w)
	b.BoxVec = b.BoxVec.Scale(1 / w)
	b.BoxVec = b.BoxVec.Sub(b.BoxCenter.Mul(b.BoxCenter)).Abs().Sqrt()
	b.centerWeight = w
}

// Dering clamps c per channel into [AabbMin, AabbMax].
func (b *RectificationBox) Dering(c mathutil.Vec3) mathutil.Vec3 {
	return c.Clamp(b.AabbMin, b.AabbMax)
}

// ComputeKernelWeight scales the Lanczos footprint. Stable pixels with a
// long history get a sharper kernel, up to the display/render ratio.
// Disocclusion widens it and reactive content suppresses the sharpening.
func ComputeKernelWeight(historyWeight, depthClip, reactive float64, downscale mathutil.Vec2) mathutil.Vec2 {
	bias := mathutil.Saturate(max(0, historyWeight-0.5) / 3)
	scale := 0.5 + 0.5*depthClip
	var k mathutil.Vec2
	for i := range k {
		k[i] = (1 + (1/downscale[i]-1)*bias*(1-reactive)) * scale
		k[i] = min(k[i], 1.99)
	}
	return k
}

// upsampleLanczosWeight is the kernel weight of a tap at offset.
func upsampleLanczosWeight(offset, kernelWeight mathutil.Vec2) float64 {
	biased := offset.Mul(kernelWeight)
	return sampler.Lanczos2ApproxSq(biased.Dot(biased))
}

// upsampleColorAndWeight reconstructs display pixel (hrX, hrY) from a 4×4
// window of prepared render samples and builds the rectification box over
// the inner 3×3 of that window.
func upsampleColorAndWeight(p *frameParams, prepared *surface.Grid[surface.Half4], hrX, hrY int, kernelWeight mathutil.Vec2) (mathutil.Vec3, float64, RectificationBox) {
	dst := mathutil.Vec2{float64(hrX) + 0.5, float64(hrY) + 0.5}
	srcOutput := dst.Mul(p.downscale)
	srcX := int(math.Floor(srcOutput[0]))
	srcY := int(math.Floor(srcOutput[1]))
	unjittered := mathutil.Vec2{float64(srcX) + 0.5, float64(srcY) + 0.5}.Sub(p.jitter)

	// When the sample of the centre texel lies past the output position the
	// window starts two texels back. Flipping the scan keeps loop rows and
	// columns 0..2 on the centred 3×3 either way.
	flipCol := unjittered[0] > srcOutput[0]
	flipRow := unjittered[1] > srcOutput[1]
	offsetTL := [2]int{-1, -1}
	if flipCol {
		offsetTL[0] = -2
	}
	if flipRow {
		offsetTL[1] = -2
	}
	base := unjittered.Sub(srcOutput)

	var box RectificationBox
	var sum mathutil.Vec3
	var weight float64
	for row := 0; row < 4; row++ {
		r := row
		if flipRow {
			r = 3 - row
		}
		for col := 0; col < 4; col++ {
			c := col
			if flipCol {
				c = 3 - col
			}
			sx := srcX + offsetTL[0] + c
			sy := srcY + offsetTL[1] + r
			sample := prepared.AtClamped(sx, sy).Color()
			offset := base.Add(mathutil.Vec2{float64(offsetTL[0] + c), float64(offsetTL[1] + r)})

			if p.render.Contains(sx, sy) {
				w := upsampleLanczosWeight(offset, kernelWeight)
				sum = sum.Add(sample.Scale(w))
				weight += w
			}

			if row < 3 && col < 3 {
				bw := 1 - mathutil.Saturate(offset.Dot(offset)/3)
				box.AddSample(row == 0 && col == 0, sample, bw*bw)
			}
		}
	}
	box.ComputeVarianceBoxData()

	// A sharp kernel can leave a negative or near-zero sum. A near-zero
	// sum divides by 1; the sample weight is the magnitude of the sum.
	norm := weight
	if math.Abs(norm) <= Epsilon {
		norm = 1
	}
	color := box.Dering(sum.Scale(1 / norm))
	weight = math.Abs(weight)
	if kernelWeight[0] < 1 || kernelWeight[1] < 1 {
		weight = AverageLanczosWeightPerFrame
	}
	return color, weight, box
}
