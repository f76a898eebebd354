package sampler

import (
	"math"

	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/surface"
)

const lanczosEpsilon = 1e-3

// Lanczos2 is the exact 2-lobe Lanczos window: sinc(x)·sinc(x/2), zero beyond |x| = 2.
func Lanczos2(x float64) float64 {
	x = math.Abs(x)
	if x < lanczosEpsilon {
		return 1
	}
	if x >= 2 {
		return 0
	}
	px := math.Pi * x
	return (math.Sin(px) / px) * (math.Sin(0.5*px) / (0.5 * px))
}

// Lanczos2ApproxSqNoClamp approximates Lanczos2 from the squared distance
// with a polynomial. Only valid for x2 in [0, 4].
func Lanczos2ApproxSqNoClamp(x2 float64) float64 {
	a := (2.0/5.0)*x2 - 1
	b := (1.0/4.0)*x2 - 1
	return ((25.0/16.0)*a*a - (25.0/16.0 - 1)) * (b * b)
}

// Lanczos2ApproxSq approximates Lanczos2 from the squared distance.
func Lanczos2ApproxSq(x2 float64) float64 {
	return Lanczos2ApproxSqNoClamp(math.Min(x2, 4))
}

// Lanczos2Approx approximates Lanczos2(x).
func Lanczos2Approx(x float64) float64 {
	return Lanczos2ApproxSq(x * x)
}

func lanczos2Row(c0, c1, c2, c3 [4]float64, t float64) [4]float64 {
	w0 := Lanczos2(-1 - t)
	w1 := Lanczos2(-0 - t)
	w2 := Lanczos2(+1 - t)
	w3 := Lanczos2(+2 - t)
	sum := w0 + w1 + w2 + w3
	var out [4]float64
	for i := 0; i < 4; i++ {
		out[i] = (w0*c0[i] + w1*c1[i] + w2*c2[i] + w3*c3[i]) / sum
	}
	return out
}

// Lanczos2Bicubic reconstructs a 4-channel signal at uv from a 4×4 texel
// footprint using separable Lanczos2 weights, then clamps the result to the
// min/max of the central 2×2 texels to suppress ringing. fetch receives
// coordinates clamped to size.
func Lanczos2Bicubic(uv mathutil.Vec2, size surface.Size, fetch func(x, y int) [4]float64) [4]float64 {
	px := uv[0]*float64(size.Width) - 0.5
	py := uv[1]*float64(size.Height) - 0.5
	bx := int(math.Floor(px))
	by := int(math.Floor(py))
	fx := px - math.Floor(px)
	fy := py - math.Floor(py)

	var s [4][4][4]float64 // [row][col]
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			x, y := size.Clamp(bx+col-1, by+row-1)
			s[row][col] = fetch(x, y)
		}
	}

	var rows [4][4]float64
	for row := 0; row < 4; row++ {
		rows[row] = lanczos2Row(s[row][0], s[row][1], s[row][2], s[row][3], fx)
	}
	out := lanczos2Row(rows[0], rows[1], rows[2], rows[3], fy)

	// Deringing
	lo := s[1][1]
	hi := s[1][1]
	for _, d := range [3][4]float64{s[1][2], s[2][1], s[2][2]} {
		for i := 0; i < 4; i++ {
			lo[i] = math.Min(lo[i], d[i])
			hi[i] = math.Max(hi[i], d[i])
		}
	}
	for i := 0; i < 4; i++ {
		out[i] = mathutil.Clamp(out[i], lo[i], hi[i])
	}
	return out
}
