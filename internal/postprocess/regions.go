package postprocess

// Regions labels 8-connected groups of pixels for which in returns true
// and returns their sizes in discovery order (row-major scan).
func Regions(w, h int, in func(x, y int) bool) []int {
	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mask[y*w+x] = in(x, y)
		}
	}

	seen := make([]bool, w*h)
	var sizes []int

	dx := [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
	dy := [8]int{-1, -1, -1, 0, 0, 1, 1, 1}

	queue := make([]int, 0, 1024)

	for idx := range mask {
		if !mask[idx] || seen[idx] {
			continue
		}

		// BFS from this pixel
		queue = queue[:0]
		queue = append(queue, idx)
		seen[idx] = true
		size := 0

		for len(queue) > 0 {
			curr := queue[0]
			queue = queue[1:]
			size++

			cy := curr / w
			cx := curr % w
			for d := 0; d < 8; d++ {
				nx := cx + dx[d]
				ny := cy + dy[d]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				ni := ny*w + nx
				if mask[ni] && !seen[ni] {
					seen[ni] = true
					queue = append(queue, ni)
				}
			}
		}

		sizes = append(sizes, size)
	}

	return sizes
}
