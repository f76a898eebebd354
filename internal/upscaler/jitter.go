package upscaler

import (
	"math"

	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/surface"
)

// JitterPhaseCount returns the length of the jitter sequence for a
// render/display width pair: 8 × (display/render)².
func JitterPhaseCount(renderWidth, displayWidth int) int {
	if renderWidth <= 0 {
		return 1
	}
	ratio := float64(displayWidth) / float64(renderWidth)
	return max(1, int(8*ratio*ratio))
}

// JitterOffset returns the sub-pixel offset, in render pixels within
// [-0.5, 0.5), for frame index in a sequence of phaseCount phases.
func JitterOffset(index, phaseCount int) mathutil.Vec2 {
	if phaseCount <= 0 {
		phaseCount = 1
	}
	i := index%phaseCount + 1
	if i <= 0 {
		i += phaseCount
	}
	return mathutil.Vec2{
		mathutil.Halton(i, 2) - 0.5,
		mathutil.Halton(i, 3) - 0.5,
	}
}

// ComputeHrPosFromLrPos maps a render pixel to the display pixel its
// jittered sample lands in.
func ComputeHrPosFromLrPos(lrX, lrY int, jitter mathutil.Vec2, render, display surface.Size) (int, int) {
	fx := (float64(lrX) + 0.5 - jitter[0]) / float64(render.Width) * float64(display.Width)
	fy := (float64(lrY) + 0.5 - jitter[1]) / float64(render.Height) * float64(display.Height)
	return int(math.Floor(fx)), int(math.Floor(fy))
}
