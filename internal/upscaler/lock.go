package upscaler

import (
	"math"

	"github.com/x448/float16"

	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/sampler"
	"temporal-upscaler/internal/surface"
)

// LockStatus is the persistent lock state of one display pixel.
type LockStatus struct {
	// Trust grows towards 1 while the lock lives.
	Trust float64
	// Lifetime shrinks towards 0 as samples accumulate.
	Lifetime float64
	// TemporalLuma is the smoothed shading-change luma.
	TemporalLuma float64
	// New marks a lock created this frame. It is never persisted.
	New bool
}

// LockState is derived from a LockStatus before it is updated.
type LockState struct {
	NewLock            bool
	WasLockedPrevFrame bool
}

// GetLockState classifies a reprojected lock.
func GetLockState(s LockStatus) LockState {
	return LockState{
		NewLock:            s.New,
		WasLockedPrevFrame: s.Trust != 0,
	}
}

func (s *LockStatus) kill() {
	s.Trust = 0
	s.Lifetime = 0
	s.New = false
}

// PostProcessLockStatus updates the temporal luma of a reprojected lock and
// kills it on a shading change, disocclusion, expiry or composition mask.
// It returns the updated status and the luminance difference in [0,1].
func PostProcessLockStatus(s LockStatus, shadingLuma, depthClip, reactive, transparency float64) (LockStatus, float64) {
	state := GetLockState(s)

	if s.TemporalLuma == 0 {
		s.TemporalLuma = shadingLuma
	}
	previous := s.TemporalLuma
	s.TemporalLuma = mathutil.Lerp(s.TemporalLuma, shadingLuma, 0.5)
	lumaDiff := 1 - mathutil.MinDividedByMax(previous, shadingLuma)

	if lumaDiff > LockLuminanceDiffThreshold {
		s.kill()
	}
	if !state.NewLock {
		s.Lifetime *= 1 - reactive
		expired := s.Lifetime <= 0 && s.Trust != 0
		if depthClip < LockDepthClipThreshold || expired {
			s.kill()
		}
	}
	if transparency > 0 {
		s.kill()
	}
	return s, lumaDiff
}

// LockContribution is how strongly a lock protects its history this frame.
func LockContribution(s LockStatus, depthClip float64) float64 {
	return mathutil.Saturate(s.Lifetime*4) * depthClip
}

// FinalizeLockStatus advances a live lock by this frame's upsample weight:
// trust rises towards 1 and lifetime falls towards 0 at the same rate.
func FinalizeLockStatus(s LockStatus, upsampleWeight float64, jitterPhaseCount int) LockStatus {
	if s.Lifetime > 0 {
		d := max(0, upsampleWeight/(float64(max(1, jitterPhaseCount))*AverageLanczosWeightPerFrame))
		s.Trust = min(1, s.Trust+d)
		s.Lifetime = max(0, s.Lifetime-d)
	}
	s.New = false
	return s
}

// lockTexel is the stored form of a LockStatus.
type lockTexel [3]float16.Float16

func packLock(s LockStatus) lockTexel {
	return lockTexel{surface.ToHalf(s.Trust), surface.ToHalf(s.Lifetime), surface.ToHalf(s.TemporalLuma)}
}

func (t lockTexel) unpack() LockStatus {
	return LockStatus{
		Trust:        surface.FromHalf(t[0]),
		Lifetime:     surface.FromHalf(t[1]),
		TemporalLuma: surface.FromHalf(t[2]),
	}
}

// sampleLockStatus reads the previous lock buffer bilinearly at uv.
func sampleLockStatus(locks *surface.Grid[lockTexel], uv mathutil.Vec2) LockStatus {
	size := locks.Size()
	v := sampler.Bilinear(uv, size).Sample(size, func(x, y int) [4]float64 {
		t := locks.At(x, y)
		return [4]float64{surface.FromHalf(t[0]), surface.FromHalf(t[1]), surface.FromHalf(t[2]), 0}
	})
	return LockStatus{Trust: v[0], Lifetime: v[1], TemporalLuma: v[2]}
}

// lockRejectionMasks are 2×2 blocks of the 3×3 neighbourhood, indexed
//
//	0 1 2
//	3 4 5
//	6 7 8
//
// A pixel whose similar neighbours cover any block is not a thin feature.
var lockRejectionMasks = [4]uint32{
	1<<0 | 1<<1 | 1<<3 | 1<<4,
	1<<1 | 1<<2 | 1<<4 | 1<<5,
	1<<3 | 1<<4 | 1<<6 | 1<<7,
	1<<4 | 1<<5 | 1<<7 | 1<<8,
}

// ComputeThinFeatureConfidence reports whether render pixel (x, y) is a
// one-pixel-wide ridge or valley in luma. Neighbour loads are clamped.
func ComputeThinFeatureConfidence(luma func(x, y int) float64, size surface.Size, x, y int) bool {
	nucleus := luma(x, y)
	dissimilarMin := float64(math.MaxFloat32)
	dissimilarMax := 0.0
	mask := uint32(1 << 4)

	idx := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx, idx = dx+1, idx+1 {
			if dx == 0 && dy == 0 {
				continue
			}
			sx, sy := size.Clamp(x+dx, y+dy)
			s := luma(sx, sy)
			diff := max(s, nucleus) / min(s, nucleus)
			if diff > 0 && diff < LockSimilarityThreshold {
				mask |= 1 << idx
			} else {
				dissimilarMin = min(dissimilarMin, s)
				dissimilarMax = max(dissimilarMax, s)
			}
		}
	}

	if !(nucleus > dissimilarMax || nucleus < dissimilarMin) {
		return false
	}
	for _, m := range lockRejectionMasks {
		if mask&m == m {
			return false
		}
	}
	return true
}

type lockInputs struct {
	prepared  *surface.Grid[surface.Half4]
	prevLocks *surface.Grid[lockTexel]
}

// createLockPixel marks a new lock at the display pixel covered by render
// pixel (x, y) when it sits on a thin feature.
func createLockPixel(p *frameParams, in lockInputs, newLocks *surface.Plane, x, y int) {
	luma := func(sx, sy int) float64 { return in.prepared.At(sx, sy).W() }
	if !ComputeThinFeatureConfidence(luma, p.render, x, y) {
		return
	}
	hx, hy := ComputeHrPosFromLrPos(x, y, p.jitter, p.render, p.display)
	if !p.display.Contains(hx, hy) {
		return
	}
	lifetime := LockInitialLifetime
	if !p.reset && in.prevLocks.At(hx, hy).unpack().Lifetime != 0 {
		lifetime = 2 * LockInitialLifetime
	}
	newLocks.StoreScalar(hx, hy, lifetime)
}
