package frames

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"temporal-upscaler/internal/surface"
)

// DepthImage encodes device depth as 16-bit grayscale.
func DepthImage(p *surface.Plane) *image.Gray16 {
	size := p.Size()
	img := image.NewGray16(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: unorm16(p.LoadScalar(x, y))})
		}
	}
	return img
}

// MaskImage encodes a [0, 1] mask as 8-bit grayscale.
func MaskImage(p *surface.Plane) *image.Gray {
	size := p.Size()
	img := image.NewGray(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(unorm16(p.LoadScalar(x, y)) >> 8)})
		}
	}
	return img
}

// MotionImage encodes motion vectors in the layout MotionField reads.
func MotionImage(f *surface.VectorField, rng float64) *image.RGBA64 {
	size := f.Size()
	img := image.NewRGBA64(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			mv := f.LoadVector(x, y)
			img.SetRGBA64(x, y, color.RGBA64{
				R: encodeMotion(mv[0], rng),
				G: encodeMotion(mv[1], rng),
				B: motionZero,
				A: 0xffff,
			})
		}
	}
	return img
}

// WritePNG saves img, creating parent directories.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("frames: create dir: %w", err)
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("frames: create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("frames: encode %s: %w", path, err)
	}
	return f.Close()
}

func unorm16(v float64) uint16 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(v*0xffff + 0.5)
}
