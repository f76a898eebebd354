package postprocess

import (
	"image"
	"math"

	"temporal-upscaler/internal/colorspace"
	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/surface"
)

// Encode converts linear RGB to an opaque 8-bit sRGB image. Values
// outside [0, 1] are clipped.
func Encode(src surface.ColorSource) *image.NRGBA {
	return encode(src, false)
}

// EncodeTonemapped is Encode with ACES filmic tone mapping applied to each
// channel first, for HDR content.
func EncodeTonemapped(src surface.ColorSource) *image.NRGBA {
	return encode(src, true)
}

func encode(src surface.ColorSource, tonemap bool) *image.NRGBA {
	size := src.Size()
	dst := image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			c := src.LoadColor(x, y)
			if tonemap {
				for k := range c {
					c[k] = colorspace.ACESTonemap(math.Max(0, c[k]))
				}
			}
			i := dst.PixOffset(x, y)
			dst.Pix[i] = clamp8(colorspace.LinearToSRGB(c[0]) * 255)
			dst.Pix[i+1] = clamp8(colorspace.LinearToSRGB(c[1]) * 255)
			dst.Pix[i+2] = clamp8(colorspace.LinearToSRGB(c[2]) * 255)
			dst.Pix[i+3] = 255
		}
	}
	return dst
}

// Decode converts an 8-bit sRGB image to linear RGB, scaled by scale.
// Alpha is ignored.
func Decode(img *image.NRGBA, scale float64) *surface.RGB {
	b := img.Bounds()
	dst := surface.NewRGB(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			dst.StoreColor(x, y, mathutil.Vec3{
				colorspace.SRGBToLinear8(img.Pix[i]),
				colorspace.SRGBToLinear8(img.Pix[i+1]),
				colorspace.SRGBToLinear8(img.Pix[i+2]),
			}.Scale(scale))
		}
	}
	return dst
}
