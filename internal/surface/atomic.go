package surface

import (
	"math"
	"sync/atomic"
)

// AtomicDepth is a grid of depth cells that many writers can extremize
// concurrently. Depths are clamped to be non-negative so that the IEEE bit
// pattern orders like the value and a CAS on the raw bits suffices.
type AtomicDepth struct {
	Width  int
	Height int
	cells  []atomic.Uint32
}

// NewAtomicDepth allocates a grid cleared to 0.
func NewAtomicDepth(w, h int) *AtomicDepth {
	return &AtomicDepth{
		Width:  w,
		Height: h,
		cells:  make([]atomic.Uint32, w*h),
	}
}

// Size returns the grid dimensions.
func (d *AtomicDepth) Size() Size {
	return Size{Width: d.Width, Height: d.Height}
}

// Clear stores v in every cell. Not safe to call concurrently with writers.
func (d *AtomicDepth) Clear(v float32) {
	b := depthBits(v)
	for i := range d.cells {
		d.cells[i].Store(b)
	}
}

// Load returns the current value at (x, y).
func (d *AtomicDepth) Load(x, y int) float32 {
	return math.Float32frombits(d.cells[y*d.Width+x].Load())
}

// LoadScalar implements ScalarSource with edge clamping.
func (d *AtomicDepth) LoadScalar(x, y int) float64 {
	x = min(max(x, 0), d.Width-1)
	y = min(max(y, 0), d.Height-1)
	return float64(d.Load(x, y))
}

// Min lowers the cell at (x, y) to v if v is smaller. NaN is ignored.
func (d *AtomicDepth) Min(x, y int, v float32) {
	if v != v {
		return
	}
	nb := depthBits(v)
	c := &d.cells[y*d.Width+x]
	for {
		old := c.Load()
		if old <= nb {
			return
		}
		if c.CompareAndSwap(old, nb) {
			return
		}
	}
}

// Max raises the cell at (x, y) to v if v is larger. NaN is ignored.
func (d *AtomicDepth) Max(x, y int, v float32) {
	if v != v {
		return
	}
	nb := depthBits(v)
	c := &d.cells[y*d.Width+x]
	for {
		old := c.Load()
		if old >= nb {
			return
		}
		if c.CompareAndSwap(old, nb) {
			return
		}
	}
}

func depthBits(v float32) uint32 {
	if v <= 0 {
		return 0
	}
	return math.Float32bits(v)
}
