package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"temporal-upscaler/internal/config"
	"temporal-upscaler/internal/frames"
	"temporal-upscaler/internal/sequence"
	"temporal-upscaler/internal/surface"
	"temporal-upscaler/internal/upscaler"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	inputDir := flag.String("input", "", "Frame directory (default: auto-detect)")
	outputDir := flag.String("output", "", "Output directory (default: <input>/upscaled)")
	format := flag.String("format", "", "Output format: webp or png (default: webp)")
	width := flag.Int("width", 0, "Display width (default: sequence or 1920)")
	height := flag.Int("height", 0, "Display height (default: sequence or 1080)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	testN := flag.Int("test", 0, "Upscale only the first N frames")
	baseline := flag.Bool("baseline", false, "Also write CatmullRom spatial upscales")
	plotOut := flag.Bool("plot", false, "Write a convergence plot")
	verbose := flag.Bool("v", false, "Log upscaler pass timings")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	displayFromConfig := cfg.DisplayWidth > 0 && cfg.DisplayHeight > 0

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		InputDir:      *inputDir,
		OutputDir:     *outputDir,
		Format:        *format,
		DisplayWidth:  *width,
		DisplayHeight: *height,
		Workers:       *workers,
		Baseline:      *baseline,
		Plot:          *plotOut,
	})

	if cfg.InputDir == "" {
		fmt.Fprintln(os.Stderr, "Error: cannot find a frame directory. Use -input flag or config.json.")
		os.Exit(1)
	}

	if *verbose {
		upscaler.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	seq, err := loadSequence(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading sequence: %v\n", err)
		os.Exit(1)
	}

	// The sequence decides the render size, and the display size unless
	// set explicitly.
	cfg.RenderWidth, cfg.RenderHeight = seq.RenderWidth, seq.RenderHeight
	if *width == 0 && *height == 0 && !displayFromConfig && seq.DisplayWidth > 0 && seq.DisplayHeight > 0 {
		cfg.DisplayWidth, cfg.DisplayHeight = seq.DisplayWidth, seq.DisplayHeight
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Limit for testing
	if *testN > 0 && *testN < len(seq.Frames) {
		seq.Frames = seq.Frames[:*testN]
	}

	display := surface.Size{Width: cfg.DisplayWidth, Height: cfg.DisplayHeight}
	flags := sequence.Flags(seq, configFlags(cfg))

	fmt.Printf("Temporal upscaler %dx%d → %dx%d (%.2fx)\n",
		seq.RenderWidth, seq.RenderHeight, display.Width, display.Height,
		float64(display.Width)/float64(seq.RenderWidth))
	fmt.Printf("Frames: %d, Workers: %d, Jitter phases: %d\n",
		seq.Len(), cfg.Workers, upscaler.JitterPhaseCount(seq.RenderWidth, display.Width))
	fmt.Printf("Output: %s (%s)\n", cfg.OutputDir, cfg.Format)
	fmt.Println("------------------------------------------------------------")

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()

	results, runErr := sequence.Run(ctx, sequence.Config{
		OutputDir: cfg.OutputDir,
		Format:    cfg.Format,
		Baseline:  cfg.Baseline,
		Workers:   cfg.Workers,
		Prefetch:  cfg.Prefetch,
		Upscaler: upscaler.ContextDescription{
			Flags:                 flags,
			MaxRenderSize:         seq.RenderSize(),
			DisplaySize:           display,
			Workers:               cfg.Workers,
			ShadingChangeMipLevel: cfg.ShadingChangeMip,
		},
		Progress: os.Stdout,
	}, seq)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
	}

	// Count results
	summary := sequence.Summarize(results)
	var failedResults []sequence.Result
	for _, r := range results {
		if !r.Success {
			failedResults = append(failedResults, r)
		}
	}

	fmt.Printf("Upscaled: %d/%d\n", summary.Frames-summary.Failed, summary.Frames)
	fmt.Printf("Final mean weight: %.2f, dispatch: %.1f ms/frame\n", summary.FinalMeanWeight, summary.MeanDispatchMs)
	if summary.MeanPSNR > 0 {
		fmt.Printf("PSNR: %.2f dB (spatial baseline %.2f dB)\n", summary.MeanPSNR, summary.MeanBaselinePSNR)
	}

	if len(failedResults) > 0 {
		fmt.Printf("\nFailed (%d):\n", len(failedResults))
		limit := min(20, len(failedResults))
		for _, r := range failedResults[:limit] {
			msg := r.Error
			if msg == "" {
				msg = "not processed"
			}
			fmt.Printf("  frame %d: %s\n", r.Frame, msg)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	m := sequence.NewManifest(seq, display, cfg.Format, elapsed, results)
	if err := sequence.WriteManifest(manifestPath, m); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s (run %s)\n", manifestPath, m.RunID)
	}

	if cfg.Plot {
		plotPath := filepath.Join(cfg.OutputDir, "convergence.png")
		if err := sequence.PlotConvergence(plotPath, results); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: plot failed: %v\n", err)
		} else {
			fmt.Printf("Plot: %s\n", plotPath)
		}
	}

	if runErr != nil || summary.Failed > 0 {
		os.Exit(1)
	}
}

// loadSequence reads the manifest, or indexes the input directory when
// there is none.
func loadSequence(cfg config.Config) (*frames.Sequence, error) {
	seq, err := frames.LoadSequence(cfg.Manifest)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return seq, err
	}

	idx := frames.BuildIndex(cfg.InputDir)
	if idx.Len() == 0 {
		return nil, fmt.Errorf("no manifest at %s and no frames in %s", cfg.Manifest, cfg.InputDir)
	}
	fmt.Printf("No manifest, indexed %d frames\n", idx.Len())

	render := surface.Size{Width: cfg.RenderWidth, Height: cfg.RenderHeight}
	phases := upscaler.JitterPhaseCount(cfg.RenderWidth, cfg.DisplayWidth)
	seq = idx.Sequence(cfg.InputDir, render, frames.Camera{Near: 0.1, Far: 1000, FovY: math.Pi / 3}, func(i int) [2]float64 {
		return upscaler.JitterOffset(i, phases)
	})
	return seq, seq.Validate()
}

func configFlags(cfg config.Config) upscaler.Flags {
	var f upscaler.Flags
	if cfg.HDR {
		f |= upscaler.FlagHDR
	}
	if cfg.InvertedDepth {
		f |= upscaler.FlagDepthInverted
	}
	if cfg.InfiniteDepth {
		f |= upscaler.FlagDepthInfinite
	}
	if cfg.DisplayResMotion {
		f |= upscaler.FlagDisplayResolutionMotionVectors
	}
	if cfg.JitterCancellation {
		f |= upscaler.FlagMotionVectorsJitterCancellation
	}
	return f
}
