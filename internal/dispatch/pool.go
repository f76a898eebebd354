// Package dispatch runs data-parallel image passes over a fixed worker pool.
//
// A pass is split into horizontal row bands. Each band is handed to a worker
// through a channel and the call returns only when every band has finished,
// so consecutive passes are separated by a full barrier.
package dispatch

import (
	"runtime"
	"sync"
)

// Pool is a fixed-size worker pool for row-band passes.
type Pool struct {
	workers  int
	bandRows int
}

// NewPool creates a pool with the given number of workers.
// workers <= 0 selects runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers, bandRows: 8}
}

// Workers returns the number of concurrent workers.
func (p *Pool) Workers() int {
	return p.workers
}

type band struct {
	y0, y1 int
}

// Rows calls fn(y) for every row in [0, height) and waits for completion.
// Rows are processed concurrently in no particular order.
func (p *Pool) Rows(height int, fn func(y int)) {
	p.Bands(height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			fn(y)
		}
	})
}

// Pixels calls fn(x, y) for every pixel of a width×height grid.
func (p *Pool) Pixels(width, height int, fn func(x, y int)) {
	p.Bands(height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < width; x++ {
				fn(x, y)
			}
		}
	})
}

// Bands splits [0, height) into row bands and calls fn(y0, y1) for each.
func (p *Pool) Bands(height int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	if p.workers == 1 || height <= p.bandRows {
		fn(0, height)
		return
	}

	bandChan := make(chan band, p.workers*2)
	var wg sync.WaitGroup

	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range bandChan {
				fn(b.y0, b.y1)
			}
		}()
	}

	for y := 0; y < height; y += p.bandRows {
		bandChan <- band{y0: y, y1: min(y+p.bandRows, height)}
	}
	close(bandChan)

	wg.Wait()
}
