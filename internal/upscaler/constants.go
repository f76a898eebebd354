package upscaler

// Accumulation and locking tuning. These values match the reference
// behaviour of the algorithm and are not exposed as configuration.
const (
	// MaxAccumulationWeight caps the history weight of a fully stable pixel.
	MaxAccumulationWeight = 12.0
	// AccumulationMaxOnMotion caps the history weight under motion and on new locks.
	AccumulationMaxOnMotion = 4.0
	// AverageLanczosWeightPerFrame is the upsample weight used when the
	// kernel is narrower than one source pixel on either axis.
	AverageLanczosWeightPerFrame = 0.74

	// Epsilon guards divisions by near-zero weights.
	Epsilon = 1e-3

	// LockInitialLifetime is the lifetime given to a freshly created lock.
	LockInitialLifetime = 1.0
	// LockDepthClipThreshold kills non-new locks below this depth clip factor.
	LockDepthClipThreshold = 0.99
	// LockLuminanceDiffThreshold kills locks whose shading changed more than this.
	LockLuminanceDiffThreshold = 0.2
	// LockSimilarityThreshold is the max/min luma ratio under which two
	// neighbours count as similar during thin-feature detection.
	LockSimilarityThreshold = 1.05

	// ReconstructedDepthWeightThreshold rejects bilinear taps with tiny weights.
	ReconstructedDepthWeightThreshold = 0.01
	// MinMotionPixels zeroes motion shorter than this many display pixels
	// before splatting the previous depth.
	MinMotionPixels = 0.1
	// DepthSeparationFactor scales the view-depth gap tolerated before
	// history is treated as disoccluded.
	DepthSeparationFactor = 1.37e-5

	// VelocityFullMotionPixels is the display-pixel velocity at which the
	// accumulation cap reaches AccumulationMaxOnMotion.
	VelocityFullMotionPixels = 20.0

	// DefaultShadingChangeMipLevel is the luma mip used for shading change detection.
	DefaultShadingChangeMipLevel = 4
)
