package sequence

import (
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"temporal-upscaler/internal/postprocess"
	"temporal-upscaler/internal/surface"
	"temporal-upscaler/internal/upscaler"
)

// maxPSNR caps the PSNR of identical images so it stays JSON-encodable.
const maxPSNR = 100

// FrameStats summarizes the history after one frame.
type FrameStats struct {
	MeanWeight float64 `json:"mean_weight"`
	StdWeight  float64 `json:"std_weight"`

	NoHistory   int `json:"no_history"`
	Tracking    int `json:"tracking"`
	Locked      int `json:"locked"`
	Disoccluded int `json:"disoccluded"`
	// DisoccludedRegions counts connected groups of disoccluded pixels.
	DisoccludedRegions  int `json:"disoccluded_regions"`
	LargestDisocclusion int `json:"largest_disocclusion"`

	// Delta is the RMS difference to the previous output in linear RGB.
	Delta float64 `json:"delta"`
	// PSNR of the output and the spatial baseline against the reference,
	// in dB. Zero without a reference.
	PSNR         float64 `json:"psnr,omitempty"`
	BaselinePSNR float64 `json:"baseline_psnr,omitempty"`

	DispatchMs float64 `json:"dispatch_ms"`
}

// historyStats fills the weight and state statistics from a history view.
func historyStats(view upscaler.HistoryView) FrameStats {
	var s FrameStats
	s.MeanWeight, s.StdWeight = stat.MeanStdDev(view.Weights(), nil)

	counts := view.StateCounts()
	s.NoHistory = counts[upscaler.NoHistory]
	s.Tracking = counts[upscaler.Tracking]
	s.Locked = counts[upscaler.Locked]
	s.Disoccluded = counts[upscaler.Disoccluded]

	if s.Disoccluded > 0 {
		size := view.Size()
		regions := postprocess.Regions(size.Width, size.Height, func(x, y int) bool {
			return view.State(x, y) == upscaler.Disoccluded
		})
		s.DisoccludedRegions = len(regions)
		if len(regions) > 0 {
			s.LargestDisocclusion = int(floats.Max(toFloats(regions)))
		}
	}
	return s
}

// flatten copies an image's channels into dst, growing it as needed.
func flatten(img *surface.RGB, dst []float64) []float64 {
	n := len(img.Pix) * 3
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	for i, c := range img.Pix {
		dst[3*i], dst[3*i+1], dst[3*i+2] = c[0], c[1], c[2]
	}
	return dst
}

// rmsDelta returns the root mean square difference of two equal-length
// vectors, or 0 when either is empty.
func rmsDelta(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	d := floats.Distance(a, b, 2)
	return d / math.Sqrt(float64(len(a)))
}

// PSNR compares the RGB channels of two 8-bit images of equal size.
// It returns 0 when the sizes differ.
func PSNR(a, b *image.NRGBA) float64 {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() || ab.Empty() {
		return 0
	}
	va := make([]float64, 0, ab.Dx()*ab.Dy()*3)
	vb := make([]float64, 0, cap(va))
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			i := a.PixOffset(ab.Min.X+x, ab.Min.Y+y)
			j := b.PixOffset(bb.Min.X+x, bb.Min.Y+y)
			for c := 0; c < 3; c++ {
				va = append(va, float64(a.Pix[i+c]))
				vb = append(vb, float64(b.Pix[j+c]))
			}
		}
	}
	d := floats.Distance(va, vb, 2)
	mse := d * d / float64(len(va))
	if mse == 0 {
		return maxPSNR
	}
	return math.Min(maxPSNR, 10*math.Log10(255*255/mse))
}

func toFloats(v []int) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Summary aggregates a run.
type Summary struct {
	Frames           int     `json:"frames"`
	Failed           int     `json:"failed"`
	FinalMeanWeight  float64 `json:"final_mean_weight"`
	MeanPSNR         float64 `json:"mean_psnr,omitempty"`
	MeanBaselinePSNR float64 `json:"mean_baseline_psnr,omitempty"`
	MeanDispatchMs   float64 `json:"mean_dispatch_ms"`
}

// Summarize aggregates per-frame results.
func Summarize(results []Result) Summary {
	s := Summary{Frames: len(results)}
	var psnr, base, ms []float64
	for _, r := range results {
		if !r.Success {
			s.Failed++
			continue
		}
		s.FinalMeanWeight = r.Stats.MeanWeight
		ms = append(ms, r.Stats.DispatchMs)
		if r.Stats.PSNR > 0 {
			psnr = append(psnr, r.Stats.PSNR)
		}
		if r.Stats.BaselinePSNR > 0 {
			base = append(base, r.Stats.BaselinePSNR)
		}
	}
	if len(ms) > 0 {
		s.MeanDispatchMs = stat.Mean(ms, nil)
	}
	if len(psnr) > 0 {
		s.MeanPSNR = stat.Mean(psnr, nil)
	}
	if len(base) > 0 {
		s.MeanBaselinePSNR = stat.Mean(base, nil)
	}
	return s
}
