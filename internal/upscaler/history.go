package upscaler

import (
	"fmt"

	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/surface"
)

// HistoryView is a read-only snapshot handle on the latest frame's history.
// It stays valid until the next Dispatch, Reset or Destroy.
type HistoryView struct {
	history *surface.Grid[surface.Half4]
	locks   *surface.Grid[lockTexel]
	states  *surface.Grid[PixelState]
}

// History returns a view of the current history buffers.
func (c *Context) History() (HistoryView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return HistoryView{}, fmt.Errorf("upscaler: history: %w", ErrContextDestroyed)
	}
	return HistoryView{
		history: c.history[c.cur],
		locks:   c.locks[c.cur],
		states:  c.states,
	}, nil
}

// Size returns the display resolution.
func (v HistoryView) Size() surface.Size {
	return v.history.Size()
}

// Color returns the stored history color, divided by exposure.
func (v HistoryView) Color(x, y int) mathutil.Vec3 {
	return v.history.At(x, y).Color()
}

// Weight returns the accumulation weight.
func (v HistoryView) Weight(x, y int) float64 {
	return v.history.At(x, y).W()
}

// Lock returns the persisted lock status.
func (v HistoryView) Lock(x, y int) LockStatus {
	return v.locks.At(x, y).unpack()
}

// State returns the accumulation state of the last frame.
func (v HistoryView) State(x, y int) PixelState {
	return v.states.At(x, y)
}

// Weights copies all accumulation weights in row-major order.
func (v HistoryView) Weights() []float64 {
	out := make([]float64, len(v.history.Pix))
	for i, h := range v.history.Pix {
		out[i] = h.W()
	}
	return out
}

// StateCounts returns how many pixels ended the last frame in each state.
func (v HistoryView) StateCounts() [4]int {
	var counts [4]int
	for _, s := range v.states.Pix {
		if int(s) < len(counts) {
			counts[s]++
		}
	}
	return counts
}
