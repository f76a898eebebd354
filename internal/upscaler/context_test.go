package upscaler

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/surface"
)

func TestNewContextValidation(t *testing.T) {
	tests := []struct {
		name string
		desc ContextDescription
	}{
		{"empty display", ContextDescription{MaxRenderSize: surface.Size{Width: 8, Height: 8}}},
		{"empty render", ContextDescription{DisplaySize: surface.Size{Width: 8, Height: 8}}},
		{"render above display", ContextDescription{
			MaxRenderSize: surface.Size{Width: 16, Height: 8},
			DisplaySize:   surface.Size{Width: 8, Height: 8},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewContext(tt.desc)
			require.ErrorIs(t, err, ErrInvalidSize)
		})
	}

	_, err := NewContext(ContextDescription{
		MaxRenderSize:         surface.Size{Width: 8, Height: 8},
		DisplaySize:           surface.Size{Width: 8, Height: 8},
		ShadingChangeMipLevel: -1,
	})
	require.ErrorIs(t, err, ErrInvalidDescription)
}

func TestDispatchValidation(t *testing.T) {
	render := surface.Size{Width: 8, Height: 6}
	display := surface.Size{Width: 12, Height: 9}
	c := newTestContext(t, render, display, 0)
	scene := staticScene{render: render, display: display, color: constantColor(mathutil.Splat3(0.5)), depth: 0.5}

	valid := scene.dispatch(mathutil.Vec2{}, nil)
	require.NoError(t, c.Dispatch(valid))

	tests := []struct {
		name   string
		mutate func(d *DispatchDescription)
		want   error
	}{
		{"no color", func(d *DispatchDescription) { d.Color = nil }, ErrMissingInput},
		{"no depth", func(d *DispatchDescription) { d.Depth = nil }, ErrMissingInput},
		{"no motion", func(d *DispatchDescription) { d.MotionVectors = nil }, ErrMissingInput},
		{"render too large", func(d *DispatchDescription) { d.RenderSize = surface.Size{Width: 9, Height: 6} }, ErrInvalidSize},
		{"color too small", func(d *DispatchDescription) { d.Color = surface.NewRGB(4, 4) }, ErrInvalidSize},
		{"output wrong size", func(d *DispatchDescription) { d.Output = surface.NewRGB(8, 6) }, ErrInvalidSize},
		{"bad near", func(d *DispatchDescription) { d.CameraNear = 0 }, ErrInvalidDescription},
		{"far before near", func(d *DispatchDescription) { d.CameraFar = 0.05 }, ErrInvalidDescription},
		{"bad fov", func(d *DispatchDescription) { d.CameraFovAngleVertical = math.Pi }, ErrInvalidDescription},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			require.ErrorIs(t, c.Dispatch(d), tt.want)
		})
	}

	t.Run("optional masks", func(t *testing.T) {
		d := valid
		d.Reactive = nil
		d.TransparencyAndComposition = nil
		d.PreExposure = 0
		d.Exposure = 0
		require.NoError(t, c.Dispatch(d))
	})
}

func TestDestroy(t *testing.T) {
	render := surface.Size{Width: 4, Height: 4}
	c := newTestContext(t, render, render, 0)
	require.NoError(t, c.Destroy())

	scene := staticScene{render: render, display: render, color: constantColor(mathutil.Splat3(0.5)), depth: 0.5}
	require.ErrorIs(t, c.Dispatch(scene.dispatch(mathutil.Vec2{}, nil)), ErrContextDestroyed)
	require.ErrorIs(t, c.Destroy(), ErrContextDestroyed)
	_, err := c.History()
	require.ErrorIs(t, err, ErrContextDestroyed)
}

type convergence struct {
	meanWeights []float64
	lastDelta   float64
	output      *surface.RGB
	history     HistoryView
}

// runStatic dispatches frames of a static scene and tracks the interior
// mean weight and the last frame-to-frame output change.
func runStatic(t *testing.T, scene staticScene, frames, margin int) convergence {
	t.Helper()
	c := newTestContext(t, scene.render, scene.display, 0)
	phases := JitterPhaseCount(scene.render.Width, scene.display.Width)

	var res convergence
	var prev *surface.RGB
	for i := 0; i < frames; i++ {
		out := surface.NewRGB(scene.display.Width, scene.display.Height)
		require.NoError(t, c.Dispatch(scene.dispatch(JitterOffset(i, phases), out)))

		h, err := c.History()
		require.NoError(t, err)

		var sum float64
		var n int
		delta := 0.0
		for y := margin; y < scene.display.Height-margin; y++ {
			for x := margin; x < scene.display.Width-margin; x++ {
				sum += h.Weight(x, y)
				n++
				if prev != nil {
					d := out.LoadColor(x, y).Sub(prev.LoadColor(x, y)).Abs().MaxComponent()
					delta = max(delta, d)
				}
			}
		}
		res.meanWeights = append(res.meanWeights, sum/float64(n))
		res.lastDelta = delta
		prev = out
		res.history = h
	}
	res.output = prev
	return res
}

func assertConverging(t *testing.T, scene staticScene, res convergence, margin int) {
	t.Helper()
	for i := 1; i < len(res.meanWeights); i++ {
		assert.GreaterOrEqual(t, res.meanWeights[i], res.meanWeights[i-1]-0.01, "frame %d", i)
	}
	assert.Less(t, res.lastDelta, 2e-3)

	for y := margin; y < scene.display.Height-margin; y++ {
		for x := margin; x < scene.display.Width-margin; x++ {
			uv := mathutil.Vec2{
				(float64(x) + 0.5) / float64(scene.display.Width),
				(float64(y) + 0.5) / float64(scene.display.Height),
			}
			want := scene.color(uv)
			got := res.output.LoadColor(x, y)
			require.InDelta(t, want[0], got[0], 0.01, "(%d,%d)", x, y)
			assert.Equal(t, Tracking, res.history.State(x, y))
		}
	}
}

func TestStaticSceneConverges(t *testing.T) {
	scene := staticScene{
		render:  surface.Size{Width: 64, Height: 36},
		display: surface.Size{Width: 96, Height: 54},
		color:   gradientColor,
		depth:   0.5,
	}
	const margin = 4
	res := runStatic(t, scene, 64, margin)
	assertConverging(t, scene, res, margin)

	for y := margin; y < scene.display.Height-margin; y++ {
		for x := margin; x < scene.display.Width-margin; x++ {
			require.InDelta(t, MaxAccumulationWeight, res.history.Weight(x, y), 0.02, "(%d,%d)", x, y)
		}
	}
}

func TestStaticScene1080p(t *testing.T) {
	if testing.Short() {
		t.Skip("full resolution scenario")
	}
	scene := staticScene{
		render:  surface.Size{Width: 1280, Height: 720},
		display: surface.Size{Width: 1920, Height: 1080},
		color:   gradientColor,
		depth:   0.5,
	}
	const margin = 4
	res := runStatic(t, scene, 32, margin)
	assertConverging(t, scene, res, margin)
	assert.Greater(t, res.meanWeights[31], 9.5)
	assert.LessOrEqual(t, res.meanWeights[31], MaxAccumulationWeight)
}

func TestOffscreenReprojectionActsLikeFirstFrame(t *testing.T) {
	render := surface.Size{Width: 32, Height: 18}
	display := surface.Size{Width: 48, Height: 27}
	static := staticScene{render: render, display: display, color: constantColor(mathutil.Splat3(0.5)), depth: 0.5}
	panned := static
	panned.color = constantColor(mathutil.Vec3{0.8, 0.4, 0.2})
	panned.motion = mathutil.Vec2{8, 0} // a quarter of the screen

	jitter0 := JitterOffset(0, 18)
	jitter1 := JitterOffset(1, 18)

	a := newTestContext(t, render, display, 0)
	require.NoError(t, a.Dispatch(static.dispatch(jitter0, nil)))
	outA := surface.NewRGB(display.Width, display.Height)
	require.NoError(t, a.Dispatch(panned.dispatch(jitter1, outA)))
	histA, err := a.History()
	require.NoError(t, err)

	b := newTestContext(t, render, display, 0)
	outB := surface.NewRGB(display.Width, display.Height)
	require.NoError(t, b.Dispatch(panned.dispatch(jitter1, outB)))
	histB, err := b.History()
	require.NoError(t, err)

	for y := 0; y < display.Height; y++ {
		for x := 0; x < display.Width; x++ {
			_, existing := ComputeReprojectedUV(x, y, mathutil.Vec2{0.25, 0}, display)
			if existing {
				assert.NotEqual(t, NoHistory, histA.State(x, y), "(%d,%d)", x, y)
				continue
			}
			assert.Equal(t, NoHistory, histA.State(x, y))
			assert.Equal(t, outB.LoadColor(x, y), outA.LoadColor(x, y), "(%d,%d)", x, y)
			assert.Equal(t, histB.Weight(x, y), histA.Weight(x, y), "(%d,%d)", x, y)
		}
	}

	// Stale 0.5 grey must not leak into the revealed edge.
	got := outA.LoadColor(display.Width-1, display.Height/2)
	assert.InDelta(t, 0.8, got[0], 1e-3)
}

func TestResetDiscardsHistory(t *testing.T) {
	render := surface.Size{Width: 16, Height: 9}
	display := surface.Size{Width: 24, Height: 14}
	scene := staticScene{render: render, display: display, color: constantColor(mathutil.Splat3(0.5)), depth: 0.5}
	c := newTestContext(t, render, display, 0)

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Dispatch(scene.dispatch(JitterOffset(i, 18), nil)))
	}
	h, err := c.History()
	require.NoError(t, err)
	assert.Greater(t, h.Weight(12, 7), 2.0)

	d := scene.dispatch(JitterOffset(5, 18), nil)
	d.Reset = true
	require.NoError(t, c.Dispatch(d))
	h, err = c.History()
	require.NoError(t, err)
	assert.Less(t, h.Weight(12, 7), 2.0)
	assert.Equal(t, [4]int{display.Area(), 0, 0, 0}, h.StateCounts())

	c.Reset()
	h, err = c.History()
	require.NoError(t, err)
	assert.Equal(t, 0.0, h.Weight(12, 7))
	assert.Equal(t, 6, c.FrameIndex())
}

func TestExposureRoundTrip(t *testing.T) {
	render := surface.Size{Width: 16, Height: 9}
	display := surface.Size{Width: 24, Height: 14}

	for _, tc := range []struct {
		name  string
		flags Flags
		color float64
	}{
		{"ldr", 0, 0.75},
		{"hdr", FlagHDR, 4},
	} {
		t.Run(tc.name, func(t *testing.T) {
			scene := staticScene{render: render, display: display, color: constantColor(mathutil.Splat3(tc.color)), depth: 0.5}
			c := newTestContext(t, render, display, tc.flags)
			out := surface.NewRGB(display.Width, display.Height)
			for i := 0; i < 4; i++ {
				d := scene.dispatch(JitterOffset(i, 18), out)
				d.PreExposure = 2
				d.Exposure = 0.5
				require.NoError(t, c.Dispatch(d))
			}
			got := out.LoadColor(12, 7)
			assert.InDelta(t, tc.color, got[0], 0.02*tc.color)

			h, err := c.History()
			require.NoError(t, err)
			assert.InDelta(t, tc.color/2, h.Color(12, 7)[0], 0.02*tc.color, "history is stored without pre-exposure")
		})
	}
}

func TestDisplayResolutionMotionVectors(t *testing.T) {
	render := surface.Size{Width: 16, Height: 9}
	display := surface.Size{Width: 24, Height: 14}
	scene := staticScene{render: render, display: display, color: constantColor(mathutil.Splat3(0.5)), depth: 0.5}
	c := newTestContext(t, render, display, FlagDisplayResolutionMotionVectors|FlagDepthInverted)

	for i := 0; i < 3; i++ {
		d := scene.dispatch(JitterOffset(i, 18), nil)
		d.MotionVectors = surface.NewVectorField(display.Width, display.Height)
		require.NoError(t, c.Dispatch(d))
	}
	h, err := c.History()
	require.NoError(t, err)
	assert.Equal(t, Tracking, h.State(12, 7))

	d := scene.dispatch(JitterOffset(3, 18), nil)
	require.ErrorIs(t, c.Dispatch(d), ErrInvalidSize, "render-size motion vectors are too small")
}

func TestReactiveMaskLimitsWeight(t *testing.T) {
	render := surface.Size{Width: 16, Height: 9}
	display := surface.Size{Width: 24, Height: 14}
	scene := staticScene{render: render, display: display, color: constantColor(mathutil.Splat3(0.5)), depth: 0.5}
	c := newTestContext(t, render, display, 0)

	reactive := surface.NewPlane(render.Width, render.Height)
	reactive.Fill(1)
	for i := 0; i < 10; i++ {
		d := scene.dispatch(JitterOffset(i, 18), nil)
		d.Reactive = reactive
		require.NoError(t, c.Dispatch(d))
	}
	h, err := c.History()
	require.NoError(t, err)
	assert.LessOrEqual(t, h.Weight(12, 7), 1.0)
}

func TestInputsLargerThanRenderSize(t *testing.T) {
	render := surface.Size{Width: 8, Height: 8}
	display := surface.Size{Width: 16, Height: 16}
	alloc := surface.Size{Width: 16, Height: 16}
	scene := staticScene{render: alloc, display: display, color: constantColor(mathutil.Splat3(0.5)), depth: 0.5}
	c := newTestContext(t, render, display, 0)

	// Only the top-left render region of the mask is meaningful; the rest
	// of the allocation is stale.
	reactive := surface.NewPlane(alloc.Width, alloc.Height)
	for y := 0; y < render.Height; y++ {
		for x := 0; x < render.Width; x++ {
			reactive.StoreScalar(x, y, 1)
		}
	}
	for i := 0; i < 8; i++ {
		d := scene.dispatch(JitterOffset(i, 32), nil)
		d.RenderSize = render
		d.Reactive = reactive
		require.NoError(t, c.Dispatch(d))
	}
	h, err := c.History()
	require.NoError(t, err)
	for _, pt := range [][2]int{{2, 2}, {12, 12}, {12, 2}, {2, 12}} {
		assert.LessOrEqual(t, h.Weight(pt[0], pt[1]), 1.0, "display %v", pt)
	}

	d := scene.dispatch(JitterOffset(8, 32), nil)
	d.RenderSize = render
	d.Reactive = surface.NewPlane(4, 4)
	require.ErrorIs(t, c.Dispatch(d), ErrInvalidSize)
	d.Reactive = nil
	d.TransparencyAndComposition = surface.NewPlane(8, 4)
	require.ErrorIs(t, c.Dispatch(d), ErrInvalidSize)
}

func TestDispatchLogs(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	render := surface.Size{Width: 4, Height: 4}
	c := newTestContext(t, render, render, 0)
	scene := staticScene{render: render, display: render, color: constantColor(mathutil.Splat3(0.5)), depth: 0.5}
	require.NoError(t, c.Dispatch(scene.dispatch(mathutil.Vec2{}, nil)))

	assert.Contains(t, buf.String(), "context created")
	assert.Contains(t, buf.String(), "upscaler: dispatch")
}

func TestInvalidExposureWarns(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	defer SetLogger(nil)

	render := surface.Size{Width: 4, Height: 4}
	c := newTestContext(t, render, render, 0)
	scene := staticScene{render: render, display: render, color: constantColor(mathutil.Splat3(0.5)), depth: 0.5}

	d := scene.dispatch(mathutil.Vec2{}, nil)
	d.PreExposure = 0
	d.Exposure = 0
	require.NoError(t, c.Dispatch(d))
	assert.Empty(t, buf.String(), "zero reads as unset")

	d.Exposure = -2
	require.NoError(t, c.Dispatch(d))
	assert.Contains(t, buf.String(), "invalid exposure replaced by 1")
	assert.Contains(t, buf.String(), "param=exposure")
	assert.NotContains(t, buf.String(), "param=pre_exposure")
}
