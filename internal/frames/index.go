package frames

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"temporal-upscaler/internal/surface"
)

// Kinds of per-frame files recognized by BuildIndex.
const (
	KindColor        = "color"
	KindDepth        = "depth"
	KindMotion       = "motion"
	KindReactive     = "reactive"
	KindTransparency = "transparency"
	KindReference    = "reference"
)

// extRank orders extensions when several files share a kind and number.
// Lossless formats win.
var extRank = map[string]int{".png": 3, ".tga": 2, ".jpg": 1, ".jpeg": 1}

// Index maps frame numbers to the files found for each kind.
type Index struct {
	entries map[int]map[string]string // frame → kind → full path
}

// BuildIndex scans dir for files named <kind>_<number>.<ext>, for example
// color_0007.png or depth_0007.png.
func BuildIndex(dir string) *Index {
	idx := &Index{entries: make(map[int]map[string]string)}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if extRank[ext] == 0 {
			continue
		}
		kind, num, ok := strings.Cut(strings.TrimSuffix(name, filepath.Ext(name)), "_")
		if !ok {
			continue
		}
		kind = strings.ToLower(kind)
		n, err := strconv.Atoi(num)
		if err != nil || n < 0 {
			continue
		}

		files := idx.entries[n]
		if files == nil {
			files = make(map[string]string)
			idx.entries[n] = files
		}
		path := filepath.Join(dir, name)
		if existing, exists := files[kind]; !exists || extRank[ext] > extRank[strings.ToLower(filepath.Ext(existing))] {
			files[kind] = path
		}
	}

	return idx
}

// ResolvePath returns the file for a frame and kind, or ("", false).
func (idx *Index) ResolvePath(frame int, kind string) (string, bool) {
	path, ok := idx.entries[frame][kind]
	return path, ok
}

// Frames returns the numbers of frames that have color, depth and motion,
// in ascending order.
func (idx *Index) Frames() []int {
	var out []int
	for n, files := range idx.entries {
		if files[KindColor] != "" && files[KindDepth] != "" && files[KindMotion] != "" {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// Len returns the number of complete frames.
func (idx *Index) Len() int {
	return len(idx.Frames())
}

// Sequence builds a manifest for the indexed frames. Frames are assumed to
// be rendered with the standard jitter sequence, given by jitter.
func (idx *Index) Sequence(dir string, render surface.Size, camera Camera, jitter func(i int) [2]float64) *Sequence {
	seq := &Sequence{
		RenderWidth:  render.Width,
		RenderHeight: render.Height,
		Camera:       camera,
		dir:          dir,
	}
	for i, n := range idx.Frames() {
		files := idx.entries[n]
		seq.Frames = append(seq.Frames, Frame{
			Color:        files[KindColor],
			Depth:        files[KindDepth],
			Motion:       files[KindMotion],
			Reactive:     files[KindReactive],
			Transparency: files[KindTransparency],
			Reference:    files[KindReference],
			Jitter:       jitter(i),
		})
	}
	return seq
}
