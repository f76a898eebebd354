package upscaler

import (
	"fmt"
	"math"
	"sync"
	"time"

	"temporal-upscaler/internal/dispatch"
	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/surface"
)

// ContextDescription configures a Context.
type ContextDescription struct {
	Flags Flags
	// MaxRenderSize is the largest render resolution Dispatch will accept.
	MaxRenderSize surface.Size
	// DisplaySize is the output resolution.
	DisplaySize surface.Size
	// Workers is the number of pass workers. 0 selects runtime.NumCPU().
	Workers int
	// ShadingChangeMipLevel selects the luma mip for shading change
	// detection. 0 selects DefaultShadingChangeMipLevel.
	ShadingChangeMipLevel int
}

// DispatchDescription holds the inputs and parameters of one frame.
type DispatchDescription struct {
	Color         surface.ColorSource
	Depth         surface.ScalarSource
	MotionVectors surface.VectorSource
	// Reactive and TransparencyAndComposition are optional render
	// resolution masks. Nil reads as zero.
	Reactive                   surface.ScalarSource
	TransparencyAndComposition surface.ScalarSource
	// Output is optional; history is updated either way.
	Output surface.ColorSink

	// JitterOffset is the sub-pixel camera offset in render pixels.
	JitterOffset mathutil.Vec2
	// MotionVectorScale converts the stored motion vectors into pixels of
	// the motion vector resolution.
	MotionVectorScale mathutil.Vec2
	RenderSize        surface.Size
	// FrameTimeDelta is the frame time in milliseconds.
	FrameTimeDelta float64
	// PreExposure was applied to Color by the renderer. 0 reads as 1.
	PreExposure float64
	// Exposure is applied before filtering. 0 reads as 1.
	Exposure float64

	CameraNear             float64
	CameraFar              float64
	CameraFovAngleVertical float64

	// Reset discards all history before this frame.
	Reset bool
}

// frameBuffers are the render-resolution buffers rebuilt every frame.
type frameBuffers struct {
	size          surface.Size
	dilatedDepth  *surface.Plane
	dilatedMotion *surface.Grid[surface.Half2]
	prevDepth     *surface.AtomicDepth
	prepared      *surface.Grid[surface.Half4]
	depthClip     *surface.Plane
	luma          *lumaPyramid
}

func newFrameBuffers(size surface.Size, lumaMips int) *frameBuffers {
	return &frameBuffers{
		size:          size,
		dilatedDepth:  surface.NewPlane(size.Width, size.Height),
		dilatedMotion: surface.NewGrid[surface.Half2](size.Width, size.Height),
		prevDepth:     surface.NewAtomicDepth(size.Width, size.Height),
		prepared:      surface.NewGrid[surface.Half4](size.Width, size.Height),
		depthClip:     surface.NewPlane(size.Width, size.Height),
		luma:          newLumaPyramid(size, lumaMips),
	}
}

// Context owns the persistent history of one upscaled view. Dispatch calls
// must be sequential; each pass inside a dispatch runs on the worker pool.
type Context struct {
	mu   sync.Mutex
	desc ContextDescription
	pool *dispatch.Pool

	frame *frameBuffers

	// Ping-pong display buffers. Index cur holds the latest frame.
	history [2]*surface.Grid[surface.Half4]
	locks   [2]*surface.Grid[lockTexel]
	cur     int

	newLocks *surface.Plane
	states   *surface.Grid[PixelState]

	prevJitter   mathutil.Vec2
	historyValid bool
	frameIndex   int
	destroyed    bool
}

// NewContext validates desc and allocates the display-resolution buffers.
func NewContext(desc ContextDescription) (*Context, error) {
	if desc.DisplaySize.Empty() {
		return nil, fmt.Errorf("upscaler: create context: display size %dx%d: %w",
			desc.DisplaySize.Width, desc.DisplaySize.Height, ErrInvalidSize)
	}
	if desc.MaxRenderSize.Empty() ||
		desc.MaxRenderSize.Width > desc.DisplaySize.Width ||
		desc.MaxRenderSize.Height > desc.DisplaySize.Height {
		return nil, fmt.Errorf("upscaler: create context: max render size %dx%d for display %dx%d: %w",
			desc.MaxRenderSize.Width, desc.MaxRenderSize.Height,
			desc.DisplaySize.Width, desc.DisplaySize.Height, ErrInvalidSize)
	}
	if desc.ShadingChangeMipLevel < 0 {
		return nil, fmt.Errorf("upscaler: create context: shading change mip %d: %w",
			desc.ShadingChangeMipLevel, ErrInvalidDescription)
	}
	if desc.ShadingChangeMipLevel == 0 {
		desc.ShadingChangeMipLevel = DefaultShadingChangeMipLevel
	}

	d := desc.DisplaySize
	c := &Context{
		desc:     desc,
		pool:     dispatch.NewPool(desc.Workers),
		newLocks: surface.NewPlane(d.Width, d.Height),
		states:   surface.NewGrid[PixelState](d.Width, d.Height),
	}
	for i := range c.history {
		c.history[i] = surface.NewGrid[surface.Half4](d.Width, d.Height)
		c.locks[i] = surface.NewGrid[lockTexel](d.Width, d.Height)
	}

	Logger().Info("upscaler: context created",
		"display", fmt.Sprintf("%dx%d", d.Width, d.Height),
		"max_render", fmt.Sprintf("%dx%d", desc.MaxRenderSize.Width, desc.MaxRenderSize.Height),
		"workers", c.pool.Workers(),
		"flags", uint32(desc.Flags))
	return c, nil
}

// DisplaySize returns the output resolution.
func (c *Context) DisplaySize() surface.Size {
	return c.desc.DisplaySize
}

// Reset discards history and locks. The next dispatch behaves like the first.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Context) resetLocked() {
	for i := range c.history {
		c.history[i].Fill(surface.Half4{})
		c.locks[i].Fill(lockTexel{})
	}
	c.states.Fill(NoHistory)
	c.prevJitter = mathutil.Vec2{}
	c.historyValid = false
	Logger().Debug("upscaler: history reset", "frame", c.frameIndex)
}

// Destroy releases all buffers. Further calls return ErrContextDestroyed.
func (c *Context) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return fmt.Errorf("upscaler: destroy: %w", ErrContextDestroyed)
	}
	c.destroyed = true
	c.frame = nil
	c.history = [2]*surface.Grid[surface.Half4]{}
	c.locks = [2]*surface.Grid[lockTexel]{}
	c.newLocks = nil
	c.states = nil
	Logger().Info("upscaler: context destroyed", "frames", c.frameIndex)
	return nil
}

func (c *Context) validate(d *DispatchDescription) error {
	switch {
	case d.Color == nil:
		return fmt.Errorf("upscaler: dispatch: color: %w", ErrMissingInput)
	case d.Depth == nil:
		return fmt.Errorf("upscaler: dispatch: depth: %w", ErrMissingInput)
	case d.MotionVectors == nil:
		return fmt.Errorf("upscaler: dispatch: motion vectors: %w", ErrMissingInput)
	}

	r := d.RenderSize
	if r.Empty() || r.Width > c.desc.MaxRenderSize.Width || r.Height > c.desc.MaxRenderSize.Height {
		return fmt.Errorf("upscaler: dispatch: render size %dx%d exceeds %dx%d: %w",
			r.Width, r.Height, c.desc.MaxRenderSize.Width, c.desc.MaxRenderSize.Height, ErrInvalidSize)
	}
	if s := d.Color.Size(); s.Width < r.Width || s.Height < r.Height {
		return fmt.Errorf("upscaler: dispatch: color %dx%d smaller than render size: %w", s.Width, s.Height, ErrInvalidSize)
	}
	if s := d.Depth.Size(); s.Width < r.Width || s.Height < r.Height {
		return fmt.Errorf("upscaler: dispatch: depth %dx%d smaller than render size: %w", s.Width, s.Height, ErrInvalidSize)
	}
	mvWant := r
	if c.desc.Flags.Has(FlagDisplayResolutionMotionVectors) {
		mvWant = c.desc.DisplaySize
	}
	if s := d.MotionVectors.Size(); s.Width < mvWant.Width || s.Height < mvWant.Height {
		return fmt.Errorf("upscaler: dispatch: motion vectors %dx%d smaller than %dx%d: %w",
			s.Width, s.Height, mvWant.Width, mvWant.Height, ErrInvalidSize)
	}
	if d.Reactive != nil {
		if s := d.Reactive.Size(); s.Width < r.Width || s.Height < r.Height {
			return fmt.Errorf("upscaler: dispatch: reactive %dx%d smaller than render size: %w", s.Width, s.Height, ErrInvalidSize)
		}
	}
	if d.TransparencyAndComposition != nil {
		if s := d.TransparencyAndComposition.Size(); s.Width < r.Width || s.Height < r.Height {
			return fmt.Errorf("upscaler: dispatch: transparency %dx%d smaller than render size: %w", s.Width, s.Height, ErrInvalidSize)
		}
	}
	if d.Output != nil && d.Output.Size() != c.desc.DisplaySize {
		s := d.Output.Size()
		return fmt.Errorf("upscaler: dispatch: output %dx%d is not display size: %w", s.Width, s.Height, ErrInvalidSize)
	}

	if !(d.CameraNear > 0) {
		return fmt.Errorf("upscaler: dispatch: camera near %v: %w", d.CameraNear, ErrInvalidDescription)
	}
	if !c.desc.Flags.Has(FlagDepthInfinite) && !(d.CameraFar > d.CameraNear) {
		return fmt.Errorf("upscaler: dispatch: camera far %v not beyond near %v: %w", d.CameraFar, d.CameraNear, ErrInvalidDescription)
	}
	if !(d.CameraFovAngleVertical > 0 && d.CameraFovAngleVertical < math.Pi) {
		return fmt.Errorf("upscaler: dispatch: vertical fov %v: %w", d.CameraFovAngleVertical, ErrInvalidDescription)
	}
	return nil
}

func (c *Context) frameParams(d *DispatchDescription) *frameParams {
	p := &frameParams{
		flags:            c.desc.Flags,
		render:           d.RenderSize,
		display:          c.desc.DisplaySize,
		jitter:           d.JitterOffset,
		prevJitter:       c.prevJitter,
		mvScale:          d.MotionVectorScale,
		preExposure:      d.PreExposure,
		exposure:         d.Exposure,
		jitterPhaseCount: JitterPhaseCount(d.RenderSize.Width, c.desc.DisplaySize.Width),
		lumaMip:          c.desc.ShadingChangeMipLevel,
		reset:            d.Reset || !c.historyValid,
	}
	p.downscale = d.RenderSize.Vec().Div(c.desc.DisplaySize.Vec())
	p.preExposure = exposureOrDefault("pre_exposure", p.preExposure)
	p.exposure = exposureOrDefault("exposure", p.exposure)
	p.setCamera(d.CameraNear, d.CameraFar, d.CameraFovAngleVertical)
	return p
}

// exposureOrDefault returns v, or 1 when v is unset. Negative and NaN
// values are replaced as well and logged.
func exposureOrDefault(name string, v float64) float64 {
	if v > 0 {
		return v
	}
	if v != 0 {
		Logger().Warn("upscaler: invalid exposure replaced by 1", "param", name, "value", v)
	}
	return 1
}

// Dispatch upscales one frame. The passes run in order with a barrier
// between each: clear, reconstruct, luma pyramid, depth clip, lock
// creation, accumulate. On success the new history becomes current.
func (c *Context) Dispatch(d DispatchDescription) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return fmt.Errorf("upscaler: dispatch: %w", ErrContextDestroyed)
	}
	if err := c.validate(&d); err != nil {
		return err
	}
	if d.Reset {
		c.resetLocked()
	}
	p := c.frameParams(&d)

	if c.frame == nil || c.frame.size != p.render {
		c.frame = newFrameBuffers(p.render, c.desc.ShadingChangeMipLevel)
		Logger().Debug("upscaler: render buffers allocated",
			"render", fmt.Sprintf("%dx%d", p.render.Width, p.render.Height))
	}
	f := c.frame
	prev, next := c.cur, 1-c.cur
	start := time.Now()

	f.prevDepth.Clear(p.farDepth())
	c.newLocks.Fill(0)

	rin := reconstructInputs{color: d.Color, depth: d.Depth, motion: d.MotionVectors}
	rout := reconstructOutputs{
		dilatedDepth:  f.dilatedDepth,
		dilatedMotion: f.dilatedMotion,
		prevDepth:     f.prevDepth,
		prepared:      f.prepared,
		logLuma:       f.luma.base(),
	}
	c.pool.Pixels(p.render.Width, p.render.Height, func(x, y int) {
		reconstructPixel(p, rin, rout, x, y)
	})
	tReconstruct := time.Since(start)

	f.luma.build(c.pool)

	din := depthClipInputs{dilatedDepth: f.dilatedDepth, dilatedMotion: f.dilatedMotion, prevDepth: f.prevDepth}
	c.pool.Pixels(p.render.Width, p.render.Height, func(x, y int) {
		depthClipPixel(p, din, f.depthClip, x, y)
	})

	lin := lockInputs{prepared: f.prepared, prevLocks: c.locks[prev]}
	c.pool.Pixels(p.render.Width, p.render.Height, func(x, y int) {
		createLockPixel(p, lin, c.newLocks, x, y)
	})
	tLR := time.Since(start)

	ain := accumulateInputs{
		prepared:      f.prepared,
		dilatedMotion: f.dilatedMotion,
		depthClip:     f.depthClip,
		luma:          f.luma,
		reactive:      d.Reactive,
		transparency:  d.TransparencyAndComposition,
		newLocks:      c.newLocks,
		prevHistory:   c.history[prev],
		prevLocks:     c.locks[prev],
	}
	if c.desc.Flags.Has(FlagDisplayResolutionMotionVectors) {
		ain.displayMotion = d.MotionVectors
	}
	aout := accumulateOutputs{
		history: c.history[next],
		locks:   c.locks[next],
		states:  c.states,
		output:  d.Output,
	}
	c.pool.Pixels(p.display.Width, p.display.Height, func(x, y int) {
		accumulatePixel(p, ain, aout, x, y)
	})

	c.cur = next
	c.prevJitter = d.JitterOffset
	c.historyValid = true
	c.frameIndex++

	Logger().Debug("upscaler: dispatch",
		"frame", c.frameIndex,
		"reconstruct", tReconstruct,
		"render_passes", tLR,
		"total", time.Since(start),
		"dt_ms", d.FrameTimeDelta,
		"reset", p.reset)
	return nil
}

// FrameIndex returns the number of frames dispatched so far.
func (c *Context) FrameIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameIndex
}
