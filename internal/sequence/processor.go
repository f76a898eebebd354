package sequence

import (
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"temporal-upscaler/internal/frames"
	"temporal-upscaler/internal/postprocess"
	"temporal-upscaler/internal/surface"
	"temporal-upscaler/internal/upscaler"
)

// Config holds the settings of a sequence run.
type Config struct {
	OutputDir string
	Format    string
	// Baseline also writes a CatmullRom spatial upscale of every frame.
	Baseline bool
	// Workers is the number of encoding workers.
	Workers int
	// Prefetch is how many decoded frames may wait for dispatch.
	Prefetch int
	// Upscaler configures the context. MaxRenderSize defaults to the
	// sequence render size.
	Upscaler upscaler.ContextDescription
	// Progress receives progress lines. Nil disables them.
	Progress io.Writer
}

// Result holds the outcome of processing one frame.
type Result struct {
	Frame    int
	Image    string
	Baseline string
	Success  bool
	Error    string
	Stats    FrameStats
}

// encodeJob is an upscaled frame waiting to be written.
type encodeJob struct {
	index     int
	output    *image.NRGBA
	color     *surface.RGB
	reference *image.NRGBA
	encode    func(surface.ColorSource) *image.NRGBA
}

// Run upscales every frame of seq in order. Frames are decoded ahead of
// dispatch and encoded by a worker pool. Per-frame failures are reported
// in the results; a dispatch failure aborts the run.
func Run(ctx context.Context, cfg Config, seq *frames.Sequence) ([]Result, error) {
	desc := cfg.Upscaler
	if desc.MaxRenderSize.Empty() {
		desc.MaxRenderSize = seq.RenderSize()
	}
	uc, err := upscaler.NewContext(desc)
	if err != nil {
		return nil, err
	}
	defer uc.Destroy()

	total := seq.Len()
	results := make([]Result, total)
	for i := range results {
		results[i].Frame = i
	}
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	if cfg.Progress != nil {
		go func() {
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					p := processed.Load()
					if p > 0 {
						elapsed := time.Since(start).Seconds()
						rate := float64(p) / elapsed
						fmt.Fprintf(cfg.Progress, "  [%d/%d] %.1f frames/sec\n", p, total, rate)
					}
				}
			}
		}()
	}
	defer close(done)

	// Encoding worker pool
	workers := max(1, cfg.Workers)
	jobs := make(chan encodeJob, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				encodeFrame(cfg, job, &results[job.index])
				processed.Add(1)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	decoded := make(chan *frames.Inputs, max(1, cfg.Prefetch))
	reader := frames.NewReader(seq)

	// Prefetch: decode frames ahead of dispatch.
	g.Go(func() error {
		defer close(decoded)
		for i := 0; i < total; i++ {
			in, err := reader.Read(i)
			if err != nil {
				return err
			}
			select {
			case decoded <- in:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	// Dispatch frames strictly in order; history depends on it.
	g.Go(func() error {
		defer close(jobs)
		out := surface.NewRGB(desc.DisplaySize.Width, desc.DisplaySize.Height)
		encode := postprocess.Encode
		if desc.Flags.Has(upscaler.FlagHDR) {
			encode = postprocess.EncodeTonemapped
		}
		var prev, cur []float64
		for in := range decoded {
			t0 := time.Now()
			if err := uc.Dispatch(dispatchDescription(seq, in, out)); err != nil {
				return fmt.Errorf("sequence: frame %d: %w", in.Index, err)
			}
			ms := float64(time.Since(t0).Microseconds()) / 1000

			view, err := uc.History()
			if err != nil {
				return err
			}
			stats := historyStats(view)
			stats.DispatchMs = ms
			cur = flatten(out, cur)
			stats.Delta = rmsDelta(prev, cur)
			prev, cur = cur, prev
			results[in.Index].Stats = stats

			job := encodeJob{
				index:     in.Index,
				output:    encode(out),
				reference: in.Reference,
				encode:    encode,
			}
			if cfg.Baseline || in.Reference != nil {
				job.color = in.Color
			}
			select {
			case jobs <- job:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	err = g.Wait()
	wg.Wait()
	return results, err
}

// dispatchDescription maps a decoded frame onto the upscaler inputs.
func dispatchDescription(seq *frames.Sequence, in *frames.Inputs, out *surface.RGB) upscaler.DispatchDescription {
	d := upscaler.DispatchDescription{
		Color:                  in.Color,
		Depth:                  in.Depth,
		MotionVectors:          in.Motion,
		Output:                 out,
		JitterOffset:           in.Frame.JitterVec(),
		MotionVectorScale:      seq.MotionScaleVec(),
		RenderSize:             seq.RenderSize(),
		FrameTimeDelta:         in.Frame.DeltaMs,
		PreExposure:            in.Frame.PreExposure,
		Exposure:               in.Frame.Exposure,
		CameraNear:             seq.Camera.Near,
		CameraFar:              seq.Camera.Far,
		CameraFovAngleVertical: seq.Camera.FovY,
		Reset:                  in.Frame.Reset,
	}
	// Leave absent masks as nil interfaces.
	if in.Reactive != nil {
		d.Reactive = in.Reactive
	}
	if in.Transparency != nil {
		d.TransparencyAndComposition = in.Transparency
	}
	return d
}

func encodeFrame(cfg Config, job encodeJob, r *Result) {
	name := frameName("frame", job.index, cfg.Format)
	if err := Save(filepath.Join(cfg.OutputDir, name), job.output, cfg.Format); err != nil {
		r.Error = err.Error()
		return
	}
	r.Image = name

	if job.color != nil {
		size := job.output.Bounds().Size()
		baseline := postprocess.Resize(job.encode(job.color), size.X, size.Y)
		if cfg.Baseline {
			bname := frameName("baseline", job.index, cfg.Format)
			if err := Save(filepath.Join(cfg.OutputDir, bname), baseline, cfg.Format); err != nil {
				r.Error = err.Error()
				return
			}
			r.Baseline = bname
		}
		if job.reference != nil {
			r.Stats.BaselinePSNR = PSNR(baseline, job.reference)
		}
	}
	if job.reference != nil {
		r.Stats.PSNR = PSNR(job.output, job.reference)
	}

	r.Success = true
}

// Flags combines the content flags of a sequence with extra flags.
func Flags(seq *frames.Sequence, extra upscaler.Flags) upscaler.Flags {
	f := extra
	if seq.HDR {
		f |= upscaler.FlagHDR
	}
	if seq.InvertedDepth {
		f |= upscaler.FlagDepthInverted
	}
	if seq.InfiniteDepth {
		f |= upscaler.FlagDepthInfinite
	}
	if seq.DisplayResMotion {
		f |= upscaler.FlagDisplayResolutionMotionVectors
	}
	if seq.JitterCancellation {
		f |= upscaler.FlagMotionVectorsJitterCancellation
	}
	return f
}
