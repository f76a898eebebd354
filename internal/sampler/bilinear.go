// Package sampler implements the reconstruction filters used by the
// upscaler: bilinear gathers with explicit weights, the 2-lobe Lanczos
// kernel and its polynomial approximation, and a Lanczos-windowed bicubic
// sampler with deringing.
package sampler

import (
	"image"
	"math"

	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/surface"
)

// BilinearOffsets are the 2×2 neighbour offsets matching BilinearData.Weights.
var BilinearOffsets = [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}

// BilinearData is the decomposition of a UV into its four texel neighbours.
type BilinearData struct {
	BaseX, BaseY int
	Weights      [4]float64
}

// Bilinear decomposes uv (0..1 over size) into integer neighbours and weights.
func Bilinear(uv mathutil.Vec2, size surface.Size) BilinearData {
	px := uv[0]*float64(size.Width) - 0.5
	py := uv[1]*float64(size.Height) - 0.5
	bx := math.Floor(px)
	by := math.Floor(py)
	fx := px - bx
	fy := py - by
	return BilinearData{
		BaseX: int(bx),
		BaseY: int(by),
		Weights: [4]float64{
			(1 - fx) * (1 - fy),
			fx * (1 - fy),
			(1 - fx) * fy,
			fx * fy,
		},
	}
}

// Sample returns the weighted average of fetch over the four neighbours.
// fetch receives coordinates clamped to size.
func (b BilinearData) Sample(size surface.Size, fetch func(x, y int) [4]float64) [4]float64 {
	var out [4]float64
	var sum float64
	for i, off := range BilinearOffsets {
		x, y := size.Clamp(b.BaseX+off[0], b.BaseY+off[1])
		v := fetch(x, y)
		w := b.Weights[i]
		out[0] += v[0] * w
		out[1] += v[1] * w
		out[2] += v[2] * w
		out[3] += v[3] * w
		sum += w
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// SampleScalar is Sample for single-channel sources.
func (b BilinearData) SampleScalar(size surface.Size, fetch func(x, y int) float64) float64 {
	var out, sum float64
	for i, off := range BilinearOffsets {
		x, y := size.Clamp(b.BaseX+off[0], b.BaseY+off[1])
		out += fetch(x, y) * b.Weights[i]
		sum += b.Weights[i]
	}
	return out / sum
}

// SampleTexture performs bilinear filtering with UV wrapping on an 8-bit image
// and returns channels normalized to [0,1].
// Accesses tex.Pix directly for performance.
func SampleTexture(tex *image.NRGBA, u, v float64) [4]float64 {
	w := tex.Rect.Dx()
	h := tex.Rect.Dy()

	// Wrap UVs
	u -= math.Floor(u)
	v -= math.Floor(v)

	fx := u * float64(w-1)
	fy := v * float64(h-1)
	x0 := int(fx)
	y0 := int(fy)
	x1 := (x0 + 1) % w
	y1 := (y0 + 1) % h
	dx := fx - float64(x0)
	dy := fy - float64(y0)

	stride := tex.Stride
	pix := tex.Pix

	// Four texels
	i00 := y0*stride + x0*4
	i10 := y0*stride + x1*4
	i01 := y1*stride + x0*4
	i11 := y1*stride + x1*4

	w00 := (1 - dx) * (1 - dy)
	w10 := dx * (1 - dy)
	w01 := (1 - dx) * dy
	w11 := dx * dy

	var out [4]float64
	for c := 0; c < 4; c++ {
		s := float64(pix[i00+c])*w00 + float64(pix[i10+c])*w10 + float64(pix[i01+c])*w01 + float64(pix[i11+c])*w11
		out[c] = s / 255
	}
	return out
}
