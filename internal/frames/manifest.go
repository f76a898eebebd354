package frames

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"temporal-upscaler/internal/mathutil"
	"temporal-upscaler/internal/surface"
)

// DefaultMotionRange is the motion vector span, in pixels, used when a
// sequence does not set one.
const DefaultMotionRange = 64

// Camera holds the projection parameters shared by every frame.
type Camera struct {
	Near float64 `json:"near"`
	Far  float64 `json:"far"`
	// FovY is the vertical field of view in radians.
	FovY float64 `json:"fov_y"`
}

// Frame lists the files and per-frame parameters of one frame. Paths are
// relative to the manifest directory unless absolute.
type Frame struct {
	Color        string `json:"color"`
	Depth        string `json:"depth"`
	Motion       string `json:"motion"`
	Reactive     string `json:"reactive,omitempty"`
	Transparency string `json:"transparency,omitempty"`
	// Reference is an optional display-resolution ground truth image.
	Reference string `json:"reference,omitempty"`

	// Jitter is the sub-pixel offset, in render pixels, the frame was
	// rendered with.
	Jitter      [2]float64 `json:"jitter"`
	PreExposure float64    `json:"pre_exposure,omitempty"`
	Exposure    float64    `json:"exposure,omitempty"`
	DeltaMs     float64    `json:"dt_ms,omitempty"`
	Reset       bool       `json:"reset,omitempty"`
}

// JitterVec returns Jitter as a vector.
func (f Frame) JitterVec() mathutil.Vec2 {
	return mathutil.Vec2(f.Jitter)
}

// Sequence describes a rendered frame sequence.
type Sequence struct {
	RenderWidth   int `json:"render_width"`
	RenderHeight  int `json:"render_height"`
	DisplayWidth  int `json:"display_width,omitempty"`
	DisplayHeight int `json:"display_height,omitempty"`

	Camera Camera `json:"camera"`
	// MotionRange is the span of the motion encoding, in pixels.
	MotionRange float64 `json:"motion_range,omitempty"`
	// MotionScale multiplies decoded motion vectors. Zero reads as 1.
	MotionScale [2]float64 `json:"motion_scale,omitempty"`
	// ColorScale multiplies decoded linear color. Zero reads as 1.
	ColorScale float64 `json:"color_scale,omitempty"`

	// Content flags, combined with the run configuration.
	HDR                bool `json:"hdr,omitempty"`
	InvertedDepth      bool `json:"inverted_depth,omitempty"`
	InfiniteDepth      bool `json:"infinite_depth,omitempty"`
	DisplayResMotion   bool `json:"display_res_motion,omitempty"`
	JitterCancellation bool `json:"jitter_cancellation,omitempty"`

	Frames []Frame `json:"frames"`

	dir string
}

// LoadSequence reads and validates a sequence manifest.
func LoadSequence(path string) (*Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frames: read %s: %w", path, err)
	}

	var seq Sequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("frames: parse %s: %w", path, err)
	}
	seq.dir = filepath.Dir(path)

	if err := seq.Validate(); err != nil {
		return nil, fmt.Errorf("frames: %s: %w", path, err)
	}
	return &seq, nil
}

// Save writes the manifest as indented JSON.
func (s *Sequence) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("frames: marshal sequence: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("frames: write %s: %w", path, err)
	}
	return nil
}

// Validate checks the sequence for missing or inconsistent fields.
func (s *Sequence) Validate() error {
	if s.RenderWidth <= 0 || s.RenderHeight <= 0 {
		return fmt.Errorf("invalid render size %dx%d", s.RenderWidth, s.RenderHeight)
	}
	if len(s.Frames) == 0 {
		return errors.New("no frames")
	}
	for i, f := range s.Frames {
		if f.Color == "" || f.Depth == "" || f.Motion == "" {
			return fmt.Errorf("frame %d: color, depth and motion are required", i)
		}
		if f.Jitter[0] < -0.5 || f.Jitter[0] > 0.5 || f.Jitter[1] < -0.5 || f.Jitter[1] > 0.5 {
			return fmt.Errorf("frame %d: jitter %v outside [-0.5, 0.5]", i, f.Jitter)
		}
	}
	return nil
}

// RenderSize returns the render resolution.
func (s *Sequence) RenderSize() surface.Size {
	return surface.Size{Width: s.RenderWidth, Height: s.RenderHeight}
}

// Len returns the number of frames.
func (s *Sequence) Len() int {
	return len(s.Frames)
}

// Path resolves a frame file path against the manifest directory.
func (s *Sequence) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.dir, p)
}

// SetDir sets the directory relative paths resolve against.
func (s *Sequence) SetDir(dir string) {
	s.dir = dir
}

func (s *Sequence) motionRange() float64 {
	if s.MotionRange > 0 {
		return s.MotionRange
	}
	return DefaultMotionRange
}

// MotionScaleVec returns the motion vector scale, defaulting to 1.
func (s *Sequence) MotionScaleVec() mathutil.Vec2 {
	v := mathutil.Vec2(s.MotionScale)
	if v[0] == 0 {
		v[0] = 1
	}
	if v[1] == 0 {
		v[1] = 1
	}
	return v
}

func (s *Sequence) colorScale() float64 {
	if s.ColorScale > 0 {
		return s.ColorScale
	}
	return 1
}
