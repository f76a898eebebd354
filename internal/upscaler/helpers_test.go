package upscaler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/surface"
)

// staticScene renders a camera-facing plane whose color is a function of
// screen UV, sampled at the jittered position of each render pixel.
type staticScene struct {
	render  surface.Size
	display surface.Size
	color   func(uv mathutil.Vec2) mathutil.Vec3
	depth   float64
	// motion in render pixels, applied uniformly
	motion mathutil.Vec2
}

func (s staticScene) frame(jitter mathutil.Vec2) (*surface.RGB, *surface.Plane, *surface.VectorField) {
	color := surface.NewRGB(s.render.Width, s.render.Height)
	depth := surface.NewPlane(s.render.Width, s.render.Height)
	mv := surface.NewVectorField(s.render.Width, s.render.Height)
	for y := 0; y < s.render.Height; y++ {
		for x := 0; x < s.render.Width; x++ {
			uv := mathutil.Vec2{
				(float64(x) + 0.5 - jitter[0]) / float64(s.render.Width),
				(float64(y) + 0.5 - jitter[1]) / float64(s.render.Height),
			}
			color.StoreColor(x, y, s.color(uv))
			depth.StoreScalar(x, y, s.depth)
			mv.Set(x, y, s.motion)
		}
	}
	return color, depth, mv
}

func (s staticScene) dispatch(jitter mathutil.Vec2, out surface.ColorSink) DispatchDescription {
	color, depth, mv := s.frame(jitter)
	return DispatchDescription{
		Color:                  color,
		Depth:                  depth,
		MotionVectors:          mv,
		Output:                 out,
		JitterOffset:           jitter,
		MotionVectorScale:      mathutil.Vec2{1, 1},
		RenderSize:             s.render,
		FrameTimeDelta:         16.6,
		PreExposure:            1,
		Exposure:               1,
		CameraNear:             0.1,
		CameraFar:              100,
		CameraFovAngleVertical: math.Pi / 3,
	}
}

func newTestContext(t *testing.T, render, display surface.Size, flags Flags) *Context {
	t.Helper()
	c, err := NewContext(ContextDescription{
		Flags:         flags,
		MaxRenderSize: render,
		DisplaySize:   display,
		Workers:       4,
	})
	require.NoError(t, err)
	return c
}

func constantColor(c mathutil.Vec3) func(mathutil.Vec2) mathutil.Vec3 {
	return func(mathutil.Vec2) mathutil.Vec3 { return c }
}

func gradientColor(uv mathutil.Vec2) mathutil.Vec3 {
	return mathutil.Splat3(0.3 + 0.2*uv[0])
}

// testParams builds frame parameters for calling passes directly.
func testParams(render, display surface.Size, flags Flags) *frameParams {
	p := &frameParams{
		flags:            flags,
		render:           render,
		display:          display,
		mvScale:          mathutil.Vec2{1, 1},
		preExposure:      1,
		exposure:         1,
		jitterPhaseCount: JitterPhaseCount(render.Width, display.Width),
		lumaMip:          DefaultShadingChangeMipLevel,
	}
	p.downscale = render.Vec().Div(display.Vec())
	p.setCamera(0.1, 100, math.Pi/3)
	return p
}
