// Package colorspace holds the color transforms shared by the upscaler passes:
// the YCoCg decorrelation used for all blending and clamping, the invertible
// HDR tonemap, perceived luma and sRGB transfer functions.
package colorspace

import "temporal-upscaler/internal/mathutil"

var (
	// RGBToYCoCgMatrix maps linear RGB to luma/orange/green chroma.
	RGBToYCoCgMatrix = mathutil.Mat3{
		0.25, 0.5, 0.25,
		0.5, 0, -0.5,
		-0.25, 0.5, -0.25,
	}

	// YCoCgToRGBMatrix is the exact inverse of RGBToYCoCgMatrix.
	YCoCgToRGBMatrix = mathutil.Mat3{
		1, 1, -1,
		1, 0, 1,
		1, -1, -1,
	}
)

// RGBToYCoCg converts an RGB triple into YCoCg.
func RGBToYCoCg(rgb mathutil.Vec3) mathutil.Vec3 {
	return RGBToYCoCgMatrix.MulVec3(rgb)
}

// YCoCgToRGB converts a YCoCg triple back into RGB.
func YCoCgToRGB(ycocg mathutil.Vec3) mathutil.Vec3 {
	return YCoCgToRGBMatrix.MulVec3(ycocg)
}
