package sequence

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"temporal-upscaler/internal/config"
	"temporal-upscaler/internal/frames"
	"temporal-upscaler/internal/surface"
	"temporal-upscaler/internal/synth"
	"temporal-upscaler/internal/upscaler"
)

var (
	testRender  = surface.Size{Width: 32, Height: 18}
	testDisplay = surface.Size{Width: 48, Height: 27}
)

func generate(t *testing.T, n int) (string, *frames.Sequence) {
	t.Helper()
	dir := t.TempDir()
	seq, err := synth.Generate(dir, synth.DefaultScene(testRender, testDisplay, n), synth.Options{Reference: true, Workers: 2})
	require.NoError(t, err)
	return dir, seq
}

func testConfig(out, format string, seq *frames.Sequence) Config {
	return Config{
		OutputDir: out,
		Format:    format,
		Baseline:  true,
		Workers:   2,
		Prefetch:  2,
		Upscaler: upscaler.ContextDescription{
			Flags:       Flags(seq, 0),
			DisplaySize: testDisplay,
			Workers:     2,
		},
	}
}

func TestRun(t *testing.T) {
	_, seq := generate(t, 6)
	out := t.TempDir()

	results, err := Run(context.Background(), testConfig(out, config.FormatPNG, seq), seq)
	require.NoError(t, err)
	require.Len(t, results, 6)

	for i, r := range results {
		require.True(t, r.Success, "frame %d: %s", i, r.Error)
		assert.Equal(t, i, r.Frame)
		assert.FileExists(t, filepath.Join(out, r.Image))
		assert.FileExists(t, filepath.Join(out, r.Baseline))
		assert.Greater(t, r.Stats.PSNR, 10.0)
		assert.Greater(t, r.Stats.BaselinePSNR, 10.0)
		assert.Equal(t, testDisplay.Area(),
			r.Stats.NoHistory+r.Stats.Tracking+r.Stats.Locked+r.Stats.Disoccluded)
	}

	assert.Equal(t, testDisplay.Area(), results[0].Stats.NoHistory, "first frame has no history")
	assert.Equal(t, 0.0, results[0].Stats.Delta)
	assert.Greater(t, results[5].Stats.MeanWeight, results[0].Stats.MeanWeight)
	assert.Greater(t, results[3].Stats.Delta, 0.0)

	img, err := os.Open(filepath.Join(out, results[5].Image))
	require.NoError(t, err)
	defer img.Close()
	cfg, _, err := image.DecodeConfig(img)
	require.NoError(t, err)
	assert.Equal(t, testDisplay.Width, cfg.Width)
	assert.Equal(t, testDisplay.Height, cfg.Height)
}

func TestRunWebPProgress(t *testing.T) {
	_, seq := generate(t, 3)
	out := t.TempDir()
	cfg := testConfig(out, config.FormatWebP, seq)
	cfg.Baseline = false
	var progress bytes.Buffer
	cfg.Progress = &progress

	results, err := Run(context.Background(), cfg, seq)
	require.NoError(t, err)
	for _, r := range results {
		require.True(t, r.Success, r.Error)
		assert.Equal(t, ".webp", filepath.Ext(r.Image))
		assert.Empty(t, r.Baseline)
		// Reference still yields a baseline comparison.
		assert.Greater(t, r.Stats.BaselinePSNR, 0.0)
	}
}

func TestRunReadError(t *testing.T) {
	dir, seq := generate(t, 3)
	require.NoError(t, os.Remove(filepath.Join(dir, seq.Frames[1].Depth)))

	results, err := Run(context.Background(), testConfig(t.TempDir(), config.FormatPNG, seq), seq)
	require.Error(t, err)
	assert.ErrorContains(t, err, "frames: open")
	require.Len(t, results, 3)
	assert.False(t, results[1].Success)
	assert.False(t, results[2].Success)
	assert.GreaterOrEqual(t, Summarize(results).Failed, 2)
}

func TestRunDispatchError(t *testing.T) {
	_, seq := generate(t, 2)
	seq.Camera.Near = 0

	_, err := Run(context.Background(), testConfig(t.TempDir(), config.FormatPNG, seq), seq)
	require.ErrorIs(t, err, upscaler.ErrInvalidDescription)
	assert.ErrorContains(t, err, "sequence: frame 0")
}

func TestRunInvalidContext(t *testing.T) {
	_, seq := generate(t, 1)
	cfg := testConfig(t.TempDir(), config.FormatPNG, seq)
	cfg.Upscaler.DisplaySize = surface.Size{Width: 16, Height: 9}

	_, err := Run(context.Background(), cfg, seq)
	assert.ErrorIs(t, err, upscaler.ErrInvalidSize)
}

func TestFlags(t *testing.T) {
	seq := &frames.Sequence{HDR: true, InvertedDepth: true, JitterCancellation: true}
	f := Flags(seq, upscaler.FlagDepthInfinite)
	assert.True(t, f.Has(upscaler.FlagHDR))
	assert.True(t, f.Has(upscaler.FlagDepthInverted))
	assert.True(t, f.Has(upscaler.FlagDepthInfinite))
	assert.True(t, f.Has(upscaler.FlagMotionVectorsJitterCancellation))
	assert.False(t, f.Has(upscaler.FlagDisplayResolutionMotionVectors))
}

func TestPSNR(t *testing.T) {
	a := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	b := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	assert.Equal(t, float64(maxPSNR), PSNR(a, b))

	// Uniform error of 255 on one channel: MSE = 255²/3.
	for i := 0; i < len(b.Pix); i += 4 {
		b.Pix[i] = 255
	}
	assert.InDelta(t, 4.7712, PSNR(a, b), 1e-3)

	assert.Equal(t, 0.0, PSNR(a, image.NewNRGBA(image.Rect(0, 0, 2, 2))))
}

func TestRMSDelta(t *testing.T) {
	assert.Equal(t, 0.0, rmsDelta(nil, []float64{1}))
	assert.InDelta(t, 1, rmsDelta([]float64{0, 0, 0, 0}, []float64{1, -1, 1, -1}), 1e-12)
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Frame: 0, Success: true, Stats: FrameStats{MeanWeight: 1, PSNR: 30, BaselinePSNR: 28, DispatchMs: 2}},
		{Frame: 1, Error: "boom"},
		{Frame: 2, Success: true, Stats: FrameStats{MeanWeight: 3, PSNR: 34, BaselinePSNR: 28, DispatchMs: 4}},
	}
	s := Summarize(results)
	assert.Equal(t, Summary{
		Frames:           3,
		Failed:           1,
		FinalMeanWeight:  3,
		MeanPSNR:         32,
		MeanBaselinePSNR: 28,
		MeanDispatchMs:   3,
	}, s)
}

func TestManifest(t *testing.T) {
	seq := &frames.Sequence{RenderWidth: 32, RenderHeight: 18}
	results := []Result{
		{Frame: 0, Image: "frame_0000.png", Success: true, Stats: FrameStats{MeanWeight: 1}},
		{Frame: 1, Error: "WebP encode: boom"},
	}
	m := NewManifest(seq, testDisplay, config.FormatPNG, 1500*time.Millisecond, results)
	_, err := uuid.Parse(m.RunID)
	require.NoError(t, err)
	assert.Equal(t, "1.5s", m.Elapsed)
	assert.Equal(t, [2]int{48, 27}, m.Display)

	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, WriteManifest(path, m))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Manifest
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, m.RunID, got.RunID)
	require.Len(t, got.Frames, 2)
	assert.Equal(t, "WebP encode: boom", got.Frames[1].Error)
	assert.Equal(t, 1, got.Summary.Failed)
}

func TestPlotConvergence(t *testing.T) {
	dir := t.TempDir()
	results := []Result{
		{Frame: 0, Success: true, Stats: FrameStats{MeanWeight: 1, PSNR: 25, BaselinePSNR: 27}},
		{Frame: 1, Success: true, Stats: FrameStats{MeanWeight: 2, PSNR: 28, BaselinePSNR: 27}},
		{Frame: 2, Success: true, Stats: FrameStats{MeanWeight: 3, PSNR: 30, BaselinePSNR: 27}},
	}

	path := filepath.Join(dir, "convergence.png")
	require.NoError(t, PlotConvergence(path, results))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	// Weight only.
	for i := range results {
		results[i].Stats.PSNR = 0
	}
	require.NoError(t, PlotConvergence(filepath.Join(dir, "weight.png"), results))

	assert.Error(t, PlotConvergence(filepath.Join(dir, "none.png"), []Result{{Frame: 0}}))
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})

	require.NoError(t, Save(filepath.Join(dir, "a", "x.png"), img, config.FormatPNG))
	require.NoError(t, Save(filepath.Join(dir, "x.webp"), img, config.FormatWebP))
	assert.ErrorContains(t, Save(filepath.Join(dir, "x.gif"), img, "gif"), "sequence: unknown format")
	assert.NoFileExists(t, filepath.Join(dir, "x.gif"))

	// A regular file where a directory is needed.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	err := Save(filepath.Join(blocker, "x.png"), img, config.FormatPNG)
	require.Error(t, err)
	assert.ErrorContains(t, err, "sequence: create dir")
	var pathErr *fs.PathError
	assert.ErrorAs(t, err, &pathErr)

	err = Save(dir, img, config.FormatPNG)
	assert.ErrorContains(t, err, "sequence: create")
	assert.ErrorAs(t, err, &pathErr)
}
