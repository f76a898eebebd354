package upscaler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/surface"
)

func TestJitterPhaseCount(t *testing.T) {
	assert.Equal(t, 18, JitterPhaseCount(1280, 1920))
	assert.Equal(t, 32, JitterPhaseCount(960, 1920))
	assert.Equal(t, 8, JitterPhaseCount(1920, 1920))
	assert.Equal(t, 1, JitterPhaseCount(0, 1920))
}

func TestJitterOffset(t *testing.T) {
	assert.Equal(t, mathutil.Vec2{0, 1.0/3.0 - 0.5}, JitterOffset(0, 18))
	assert.Equal(t, JitterOffset(3, 18), JitterOffset(21, 18), "sequence repeats")
	assert.Equal(t, JitterOffset(17, 18), JitterOffset(-1, 18))

	seen := map[mathutil.Vec2]bool{}
	for i := 0; i < 18; i++ {
		j := JitterOffset(i, 18)
		assert.GreaterOrEqual(t, j[0], -0.5)
		assert.Less(t, j[0], 0.5)
		assert.GreaterOrEqual(t, j[1], -0.5)
		assert.Less(t, j[1], 0.5)
		seen[j] = true
	}
	assert.Len(t, seen, 18)
}

func TestComputeHrPosFromLrPos(t *testing.T) {
	render := surface.Size{Width: 2, Height: 2}
	display := surface.Size{Width: 4, Height: 4}

	x, y := ComputeHrPosFromLrPos(0, 0, mathutil.Vec2{}, render, display)
	assert.Equal(t, [2]int{1, 1}, [2]int{x, y})

	x, y = ComputeHrPosFromLrPos(1, 1, mathutil.Vec2{0.4, -0.4}, render, display)
	assert.Equal(t, [2]int{2, 3}, [2]int{x, y})
}
