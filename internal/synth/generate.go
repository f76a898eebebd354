package synth

import (
	"fmt"
	"path/filepath"

	"temporal-upscaler/internal/dispatch"
	"temporal-upscaler/internal/frames"
	"temporal-upscaler/internal/postprocess"
	"temporal-upscaler/internal/upscaler"
)

// Options control what Generate writes besides color, depth and motion.
type Options struct {
	// Reference writes a display-resolution ground truth per frame.
	Reference bool
	// Workers for rendering. 0 selects runtime.NumCPU().
	Workers int
}

// Generate renders the scene into dir as PNG files and writes
// dir/sequence.json. Frames use the standard jitter sequence for the
// render/display ratio.
func Generate(dir string, s Scene, opts Options) (*frames.Sequence, error) {
	if s.Render.Empty() || s.Display.Empty() || s.Frames <= 0 {
		return nil, fmt.Errorf("synth: invalid scene: render %dx%d display %dx%d frames %d",
			s.Render.Width, s.Render.Height, s.Display.Width, s.Display.Height, s.Frames)
	}

	pool := dispatch.NewPool(opts.Workers)
	phases := upscaler.JitterPhaseCount(s.Render.Width, s.Display.Width)
	motionRange := float64(frames.DefaultMotionRange)

	seq := &frames.Sequence{
		RenderWidth:   s.Render.Width,
		RenderHeight:  s.Render.Height,
		DisplayWidth:  s.Display.Width,
		DisplayHeight: s.Display.Height,
		Camera:        s.Camera,
		MotionRange:   motionRange,
		InvertedDepth: s.InvertedDepth,
	}
	seq.SetDir(dir)

	for t := 0; t < s.Frames; t++ {
		jitter := upscaler.JitterOffset(t, phases)
		col, depth, motion := s.RenderFrame(pool, t, jitter)

		f := frames.Frame{
			Color:       name(frames.KindColor, t),
			Depth:       name(frames.KindDepth, t),
			Motion:      name(frames.KindMotion, t),
			Jitter:      jitter,
			PreExposure: 1,
			Exposure:    1,
			DeltaMs:     s.DeltaMs,
		}
		if err := frames.WritePNG(filepath.Join(dir, f.Color), postprocess.Encode(col)); err != nil {
			return nil, err
		}
		if err := frames.WritePNG(filepath.Join(dir, f.Depth), frames.DepthImage(depth)); err != nil {
			return nil, err
		}
		if err := frames.WritePNG(filepath.Join(dir, f.Motion), frames.MotionImage(motion, motionRange)); err != nil {
			return nil, err
		}
		if opts.Reference {
			f.Reference = name(frames.KindReference, t)
			if err := frames.WritePNG(filepath.Join(dir, f.Reference), s.ReferenceFrame(pool, t)); err != nil {
				return nil, err
			}
		}
		seq.Frames = append(seq.Frames, f)
	}

	if err := seq.Save(filepath.Join(dir, "sequence.json")); err != nil {
		return nil, err
	}
	return seq, nil
}

func name(kind string, t int) string {
	return fmt.Sprintf("%s_%04d.png", kind, t)
}
