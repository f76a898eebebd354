package upscaler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/surface"
)

func TestComputeKernelWeight(t *testing.T) {
	downscale := mathutil.Vec2{2.0 / 3.0, 2.0 / 3.0}

	k := ComputeKernelWeight(0, 1, 0, downscale)
	assert.Equal(t, mathutil.Vec2{1, 1}, k, "no history: plain kernel")

	k = ComputeKernelWeight(12, 1, 0, downscale)
	assert.InDelta(t, 1.5, k[0], 1e-12, "stable: sharpened to the upscale ratio")

	k = ComputeKernelWeight(12, 1, 1, downscale)
	assert.InDelta(t, 1, k[0], 1e-12, "reactive: no sharpening")

	k = ComputeKernelWeight(12, 0, 0, downscale)
	assert.InDelta(t, 0.75, k[0], 1e-12, "disoccluded: widened")

	k = ComputeKernelWeight(12, 1, 0, mathutil.Vec2{0.25, 0.25})
	assert.Equal(t, 1.99, k[0], "capped")
}

func TestRectificationBoxVariance(t *testing.T) {
	var box RectificationBox
	box.AddSample(true, mathutil.Vec3{0, 0, 0}, 1)
	box.AddSample(false, mathutil.Vec3{1, 2, 4}, 1)
	box.ComputeVarianceBoxData()

	assert.Equal(t, mathutil.Vec3{0, 0, 0}, box.AabbMin)
	assert.Equal(t, mathutil.Vec3{1, 2, 4}, box.AabbMax)
	assert.Equal(t, mathutil.Vec3{0.5, 1, 2}, box.BoxCenter)
	assert.Equal(t, mathutil.Vec3{0.5, 1, 2}, box.BoxVec)
}

func TestRectificationBoxZeroWeight(t *testing.T) {
	var box RectificationBox
	box.AddSample(true, mathutil.Vec3{0.5, 0.5, 0.5}, 0)
	box.ComputeVarianceBoxData()
	assert.Equal(t, mathutil.Vec3{}, box.BoxCenter, "zero weight leaves unnormalised moments")
}

func TestDeringRoundTrip(t *testing.T) {
	box := RectificationBox{
		AabbMin: mathutil.Vec3{0.1, -0.2, -0.1},
		AabbMax: mathutil.Vec3{0.6, 0.2, 0.1},
	}
	inside := mathutil.Vec3{0.3, 0.0, 0.05}
	assert.Equal(t, inside, box.Dering(inside))

	assert.Equal(t, mathutil.Vec3{0.6, 0.0, 0.05}, box.Dering(mathutil.Vec3{0.9, 0.0, 0.05}))
	assert.Equal(t, mathutil.Vec3{0.3, -0.2, 0.05}, box.Dering(mathutil.Vec3{0.3, -0.7, 0.05}))
	assert.Equal(t, mathutil.Vec3{0.1, 0.0, 0.1}, box.Dering(mathutil.Vec3{0.0, 0.0, 0.5}))
}

func preparedConstant(size surface.Size, c mathutil.Vec3) *surface.Grid[surface.Half4] {
	g := surface.NewGrid[surface.Half4](size.Width, size.Height)
	g.Fill(surface.PackHalf4(c, 0.5))
	return g
}

func TestUpsampleConstantInput(t *testing.T) {
	render := surface.Size{Width: 16, Height: 9}
	display := surface.Size{Width: 24, Height: 14}
	p := testParams(render, display, 0)
	c := mathutil.Vec3{0.5, 0.125, -0.0625}
	prepared := preparedConstant(render, c)

	for _, jitter := range []mathutil.Vec2{{0, 0}, {0.4, -0.3}, {-0.45, 0.45}} {
		p.jitter = jitter
		for _, pos := range [][2]int{{0, 0}, {11, 7}, {23, 13}} {
			color, weight, box := upsampleColorAndWeight(p, prepared, pos[0], pos[1], mathutil.Vec2{1, 1})
			assert.InDeltaSlice(t, c[:], color[:], 1e-12)
			assert.Greater(t, weight, Epsilon)
			assert.Equal(t, c, box.AabbMin)
			assert.Equal(t, c, box.AabbMax)
			assert.InDeltaSlice(t, c[:], box.BoxCenter[:], 1e-12)
		}
	}
}

func TestUpsampleSharpKernelKeepsSample(t *testing.T) {
	render := surface.Size{Width: 32, Height: 18}
	display := surface.Size{Width: 64, Height: 36}
	p := testParams(render, display, 0)
	c := mathutil.Vec3{0.5, 0.125, -0.0625}
	prepared := preparedConstant(render, c)

	kernel := ComputeKernelWeight(12, 1, 0, p.downscale)
	require.Equal(t, mathutil.Vec2{1.99, 1.99}, kernel)

	for i := 0; i < p.jitterPhaseCount; i++ {
		p.jitter = JitterOffset(i, p.jitterPhaseCount)
		for y := 4; y < display.Height-4; y++ {
			for x := 4; x < display.Width-4; x++ {
				color, weight, _ := upsampleColorAndWeight(p, prepared, x, y, kernel)
				require.InDeltaSlice(t, c[:], color[:], 1e-9, "phase %d at %d,%d", i, x, y)
				require.GreaterOrEqual(t, weight, 0.0)
			}
		}
	}
}

func TestUpsampleNarrowKernelUsesAverageWeight(t *testing.T) {
	render := surface.Size{Width: 16, Height: 9}
	display := surface.Size{Width: 24, Height: 14}
	p := testParams(render, display, 0)
	prepared := preparedConstant(render, mathutil.Vec3{0.5, 0, 0})

	_, weight, _ := upsampleColorAndWeight(p, prepared, 5, 5, mathutil.Vec2{0.75, 1})
	assert.Equal(t, AverageLanczosWeightPerFrame, weight)
}

func TestUpsampleDeringsIntoBox(t *testing.T) {
	render := surface.Size{Width: 8, Height: 8}
	display := surface.Size{Width: 12, Height: 12}
	p := testParams(render, display, 0)

	// Hard vertical edge between columns 3 and 4.
	prepared := surface.NewGrid[surface.Half4](8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := 0.0
			if x >= 4 {
				v = 1
			}
			prepared.Set(x, y, surface.PackHalf4(mathutil.Vec3{v, 0, 0}, v))
		}
	}
	for x := 0; x < 12; x++ {
		color, weight, box := upsampleColorAndWeight(p, prepared, x, 6, mathutil.Vec2{1.5, 1.5})
		if weight == 0 {
			continue
		}
		assert.GreaterOrEqual(t, color[0], box.AabbMin[0])
		assert.LessOrEqual(t, color[0], box.AabbMax[0])
		assert.GreaterOrEqual(t, color[0], 0.0)
		assert.LessOrEqual(t, color[0], 1.0)
	}
}
