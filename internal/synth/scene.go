// Package synth renders synthetic jittered frame sequences with depth and
// motion vectors: a tiled background scrolling behind a moving textured box.
package synth

import (
	"image"
	"image/color"
	"math"

	"temporal-upscaler/internal/colorspace"
	"temporal-upscaler/internal/dispatch"
	"temporal-upscaler/internal/frames"
	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/postprocess"
	"temporal-upscaler/internal/sampler"
	"temporal-upscaler/internal/surface"
)

// Scene describes the synthetic shot. Positions and velocities are in
// screen UV; depths are view-space distances.
type Scene struct {
	Render  surface.Size
	Display surface.Size
	Frames  int

	// Background is tiled across the screen, TileScale tiles per screen
	// width. Nil selects a checkerboard.
	Background *image.NRGBA
	TileScale  float64
	// Scroll is the background motion per frame.
	Scroll          mathutil.Vec2
	BackgroundDepth float64

	// Foreground box. Nil Foreground selects a checkerboard; a zero
	// BoxSize disables the box.
	Foreground  *image.NRGBA
	BoxOrigin   mathutil.Vec2
	BoxSize     mathutil.Vec2
	BoxVelocity mathutil.Vec2
	BoxDepth    float64

	Camera        frames.Camera
	InvertedDepth bool
	// Supersample is the reference oversampling factor per axis.
	Supersample int
	DeltaMs     float64
}

// DefaultScene returns a panning shot with a box crossing the screen.
func DefaultScene(render, display surface.Size, n int) Scene {
	return Scene{
		Render:          render,
		Display:         display,
		Frames:          n,
		TileScale:       4,
		Scroll:          mathutil.Vec2{0.5 / float64(display.Width), 0},
		BackgroundDepth: 20,
		BoxOrigin:       mathutil.Vec2{0.1, 0.3},
		BoxSize:         mathutil.Vec2{0.25, 0.4},
		BoxVelocity:     mathutil.Vec2{3 / float64(display.Width), 0},
		BoxDepth:        5,
		Camera:          frames.Camera{Near: 0.1, Far: 100, FovY: math.Pi / 3},
		Supersample:     2,
		DeltaMs:         1000.0 / 60,
	}
}

// Checker builds a size×size checkerboard texture with the given cell count.
func Checker(size, cells int, a, b color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	cell := max(1, size/max(1, cells))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetNRGBA(x, y, a)
			} else {
				img.SetNRGBA(x, y, b)
			}
		}
	}
	return img
}

// DeviceDepth converts a view-space distance to device depth for the
// camera. Standard depth maps near→0 and far→1; inverted depth flips it.
func DeviceDepth(z float64, cam frames.Camera, inverted bool) float64 {
	n, f := cam.Near, cam.Far
	if inverted {
		return n * (f - z) / (z * (f - n))
	}
	return f * (z - n) / (z * (f - n))
}

// Sample returns the linear color, view depth and motion (UV offset to the
// previous frame) of the surface visible at uv in frame t.
func (s Scene) Sample(uv mathutil.Vec2, t int) (mathutil.Vec3, float64, mathutil.Vec2) {
	ft := float64(t)
	if s.BoxSize[0] > 0 && s.BoxSize[1] > 0 {
		origin := s.BoxOrigin.Add(s.BoxVelocity.Scale(ft))
		local := uv.Sub(origin).Div(s.BoxSize)
		if local[0] >= 0 && local[0] < 1 && local[1] >= 0 && local[1] < 1 {
			c := texel(s.foreground(), local)
			mv := mathutil.Vec2{}
			if t > 0 {
				mv = s.BoxVelocity.Scale(-1)
			}
			return c, s.BoxDepth, mv
		}
	}

	aspect := float64(s.Display.Height) / float64(s.Display.Width)
	st := uv.Add(s.Scroll.Scale(ft))
	c := texel(s.background(), mathutil.Vec2{st[0] * s.TileScale, st[1] * s.TileScale * aspect})
	mv := mathutil.Vec2{}
	if t > 0 {
		mv = s.Scroll
	}
	return c, s.BackgroundDepth, mv
}

func (s Scene) background() *image.NRGBA {
	if s.Background != nil {
		return s.Background
	}
	return defaultBackground
}

func (s Scene) foreground() *image.NRGBA {
	if s.Foreground != nil {
		return s.Foreground
	}
	return defaultForeground
}

var (
	defaultBackground = Checker(64, 8, color.NRGBA{200, 180, 150, 255}, color.NRGBA{60, 70, 90, 255})
	defaultForeground = Checker(32, 4, color.NRGBA{230, 60, 40, 255}, color.NRGBA{250, 240, 220, 255})
)

func texel(tex *image.NRGBA, uv mathutil.Vec2) mathutil.Vec3 {
	c := sampler.SampleTexture(tex, uv[0], uv[1])
	return mathutil.Vec3{
		colorspace.SRGBToLinear(c[0]),
		colorspace.SRGBToLinear(c[1]),
		colorspace.SRGBToLinear(c[2]),
	}
}

// RenderFrame renders frame t at render resolution with the given jitter.
// Motion vectors are in render pixels.
func (s Scene) RenderFrame(pool *dispatch.Pool, t int, jitter mathutil.Vec2) (*surface.RGB, *surface.Plane, *surface.VectorField) {
	r := s.Render
	col := surface.NewRGB(r.Width, r.Height)
	depth := surface.NewPlane(r.Width, r.Height)
	motion := surface.NewVectorField(r.Width, r.Height)
	size := r.Vec()
	pool.Pixels(r.Width, r.Height, func(x, y int) {
		uv := mathutil.Vec2{
			(float64(x) + 0.5 - jitter[0]) / size[0],
			(float64(y) + 0.5 - jitter[1]) / size[1],
		}
		c, z, mv := s.Sample(uv, t)
		col.StoreColor(x, y, c)
		depth.StoreScalar(x, y, DeviceDepth(z, s.Camera, s.InvertedDepth))
		motion.Set(x, y, mv.Mul(size))
	})
	return col, depth, motion
}

// ReferenceFrame renders frame t at display resolution without jitter,
// supersampled and filtered down.
func (s Scene) ReferenceFrame(pool *dispatch.Pool, t int) *image.NRGBA {
	ss := max(1, s.Supersample)
	w, h := s.Display.Width*ss, s.Display.Height*ss
	hi := surface.NewRGB(w, h)
	pool.Pixels(w, h, func(x, y int) {
		uv := mathutil.Vec2{(float64(x) + 0.5) / float64(w), (float64(y) + 0.5) / float64(h)}
		c, _, _ := s.Sample(uv, t)
		hi.StoreColor(x, y, c)
	})
	return postprocess.Resize(postprocess.Encode(hi), s.Display.Width, s.Display.Height)
}
