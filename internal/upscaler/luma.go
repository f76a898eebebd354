package upscaler

import (
	"math"

	"temporal-upscaler/internal/dispatch"
	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/sampler"
	"temporal-upscaler/internal/surface"
)

// lumaPyramid is a box-filtered mip chain of log luma. Level 0 is written
// by the reconstruction pass.
type lumaPyramid struct {
	levels []*surface.Plane
}

func newLumaPyramid(size surface.Size, mips int) *lumaPyramid {
	lp := &lumaPyramid{levels: []*surface.Plane{surface.NewPlane(size.Width, size.Height)}}
	w, h := size.Width, size.Height
	for i := 0; i < mips && (w > 1 || h > 1); i++ {
		w = max(1, w/2)
		h = max(1, h/2)
		lp.levels = append(lp.levels, surface.NewPlane(w, h))
	}
	return lp
}

func (lp *lumaPyramid) base() *surface.Plane {
	return lp.levels[0]
}

// build downsamples every level from the one above it.
func (lp *lumaPyramid) build(pool *dispatch.Pool) {
	for i := 1; i < len(lp.levels); i++ {
		src := lp.levels[i-1]
		dst := lp.levels[i]
		pool.Pixels(dst.Width, dst.Height, func(x, y int) {
			sum := src.LoadScalar(2*x, 2*y) +
				src.LoadScalar(2*x+1, 2*y) +
				src.LoadScalar(2*x, 2*y+1) +
				src.LoadScalar(2*x+1, 2*y+1)
			dst.StoreScalar(x, y, sum/4)
		})
	}
}

// ShadingChangeLuma returns the exposure-space luma around uv at the
// requested mip, clamped to the coarsest level available.
func (lp *lumaPyramid) ShadingChangeLuma(uv mathutil.Vec2, mip int) float64 {
	mip = min(max(mip, 0), len(lp.levels)-1)
	level := lp.levels[mip]
	size := level.Size()
	b := sampler.Bilinear(uv, size)
	return math.Exp(b.SampleScalar(size, level.LoadScalar))
}
