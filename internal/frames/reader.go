package frames

import (
	"fmt"
	"image"

	"temporal-upscaler/internal/surface"
)

// Inputs are the decoded surfaces of one frame.
type Inputs struct {
	Index  int
	Frame  Frame
	Color  *surface.RGB
	Depth  *surface.Plane
	Motion *surface.VectorField
	// Optional; nil when the frame has none.
	Reactive     *surface.Plane
	Transparency *surface.Plane
	Reference    *image.NRGBA
}

// Reader decodes the frames of a sequence. It is safe for concurrent use.
type Reader struct {
	seq    *Sequence
	cache  *Cache
	shared map[string]bool
}

// NewReader prepares a reader. Files referenced by more than one frame are
// decoded once and cached.
func NewReader(seq *Sequence) *Reader {
	counts := make(map[string]int)
	for _, f := range seq.Frames {
		for _, p := range []string{f.Color, f.Depth, f.Motion, f.Reactive, f.Transparency, f.Reference} {
			if p != "" {
				counts[seq.Path(p)]++
			}
		}
	}
	shared := make(map[string]bool)
	for p, n := range counts {
		if n > 1 {
			shared[p] = true
		}
	}
	return &Reader{seq: seq, cache: NewCache(), shared: shared}
}

func (r *Reader) load(p string) (image.Image, error) {
	path := r.seq.Path(p)
	if r.shared[path] {
		return r.cache.Image(path)
	}
	return LoadImage(path)
}

// Read decodes frame i.
func (r *Reader) Read(i int) (*Inputs, error) {
	if i < 0 || i >= len(r.seq.Frames) {
		return nil, fmt.Errorf("frames: frame %d out of range [0, %d)", i, len(r.seq.Frames))
	}
	f := r.seq.Frames[i]
	render := r.seq.RenderSize()
	in := &Inputs{Index: i, Frame: f}

	img, err := r.load(f.Color)
	if err != nil {
		return nil, err
	}
	if err := checkSize(img, render, "color", i); err != nil {
		return nil, err
	}
	in.Color = ColorPlane(img, r.seq.colorScale())

	if img, err = r.load(f.Depth); err != nil {
		return nil, err
	}
	if err := checkSize(img, render, "depth", i); err != nil {
		return nil, err
	}
	in.Depth = DepthPlane(img)

	if img, err = r.load(f.Motion); err != nil {
		return nil, err
	}
	in.Motion = MotionField(img, r.seq.motionRange())

	if f.Reactive != "" {
		if img, err = r.load(f.Reactive); err != nil {
			return nil, err
		}
		if err := checkSize(img, render, "reactive", i); err != nil {
			return nil, err
		}
		in.Reactive = MaskPlane(img)
	}
	if f.Transparency != "" {
		if img, err = r.load(f.Transparency); err != nil {
			return nil, err
		}
		if err := checkSize(img, render, "transparency", i); err != nil {
			return nil, err
		}
		in.Transparency = MaskPlane(img)
	}
	if f.Reference != "" {
		if img, err = r.load(f.Reference); err != nil {
			return nil, err
		}
		in.Reference = toNRGBA(img)
	}

	return in, nil
}

func checkSize(img image.Image, want surface.Size, kind string, frame int) error {
	b := img.Bounds()
	if b.Dx() != want.Width || b.Dy() != want.Height {
		return fmt.Errorf("frames: frame %d: %s is %dx%d, want %dx%d",
			frame, kind, b.Dx(), b.Dy(), want.Width, want.Height)
	}
	return nil
}
