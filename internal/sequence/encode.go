package sequence

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/HugoSmits86/nativewebp"

	"temporal-upscaler/internal/config"
)

// Save writes img as lossless WebP or PNG, creating parent directories.
func Save(path string, img image.Image, format string) error {
	var encode func(io.Writer, image.Image) error
	switch format {
	case config.FormatWebP:
		encode = func(w io.Writer, img image.Image) error { return nativewebp.Encode(w, img, nil) }
	case config.FormatPNG:
		encode = png.Encode
	default:
		return fmt.Errorf("sequence: unknown format %q", format)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("sequence: create dir: %w", err)
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("sequence: create %s: %w", path, err)
	}
	if err := encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("sequence: encode %s %s: %w", format, path, err)
	}
	return f.Close()
}

// frameName returns the output file name of frame i.
func frameName(prefix string, i int, format string) string {
	return fmt.Sprintf("%s_%04d.%s", prefix, i, format)
}
