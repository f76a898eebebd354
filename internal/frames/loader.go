package frames

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ftrvxmtrx/tga"

	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/postprocess"
	"temporal-upscaler/internal/surface"
)

// motionZero is the 16-bit code for a zero motion component.
const motionZero = 32768

// LoadImage reads a PNG, JPEG or TGA file.
func LoadImage(path string) (image.Image, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png", ".jpg", ".jpeg", ".tga":
	default:
		return nil, fmt.Errorf("frames: unknown extension: %s", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("frames: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("frames: decode %s: %w", path, err)
	}
	return img, nil
}

// LoadTexture reads an image file as NRGBA.
func LoadTexture(path string) (*image.NRGBA, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return toNRGBA(img), nil
}

// ColorPlane converts an 8-bit sRGB image to linear RGB multiplied by scale.
func ColorPlane(img image.Image, scale float64) *surface.RGB {
	return postprocess.Decode(toNRGBA(img), scale)
}

// DepthPlane converts a 16-bit grayscale image to device depth in [0, 1].
func DepthPlane(img image.Image) *surface.Plane {
	b := img.Bounds()
	p := surface.NewPlane(b.Dx(), b.Dy())
	g, fast := img.(*image.Gray16)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			var v uint16
			if fast {
				v = g.Gray16At(b.Min.X+x, b.Min.Y+y).Y
			} else {
				v = color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16).Y
			}
			p.StoreScalar(x, y, float64(v)/0xffff)
		}
	}
	return p
}

// MaskPlane converts a grayscale image to a [0, 1] mask.
func MaskPlane(img image.Image) *surface.Plane {
	b := img.Bounds()
	p := surface.NewPlane(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16).Y
			p.StoreScalar(x, y, float64(v)/0xffff)
		}
	}
	return p
}

// MotionField decodes motion vectors stored in the red and green channels
// of a 16-bit image. Each component is offset by 32768 and spans ±rng pixels.
func MotionField(img image.Image, rng float64) *surface.VectorField {
	b := img.Bounds()
	f := surface.NewVectorField(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			f.Set(x, y, mathutil.Vec2{decodeMotion(r, rng), decodeMotion(g, rng)})
		}
	}
	return f
}

func decodeMotion(v uint32, rng float64) float64 {
	return (float64(v) - motionZero) / (motionZero - 1) * rng
}

func encodeMotion(v, rng float64) uint16 {
	code := v/rng*(motionZero-1) + motionZero
	if code < 1 {
		code = 1
	}
	if code > 0xffff {
		code = 0xffff
	}
	return uint16(code + 0.5)
}

// toNRGBA converts any image to NRGBA format.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	switch src.(type) {
	case *image.YCbCr, *image.Gray:
		// No alpha: draw and set alpha to 255
		draw.Draw(dst, b, src, b.Min, draw.Src)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst.Pix[dst.PixOffset(x, y)+3] = 255
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst.SetNRGBA(x, y, color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA))
			}
		}
	}
	return dst
}
