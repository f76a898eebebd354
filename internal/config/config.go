package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Output formats.
const (
	FormatWebP = "webp"
	FormatPNG  = "png"
)

// Config holds all configurable paths and upscaling settings.
type Config struct {
	// Paths
	InputDir  string `json:"input_dir"`
	Manifest  string `json:"manifest"`
	OutputDir string `json:"output_dir"`

	// Resolutions. Render size is only used when the input has no
	// sequence manifest.
	RenderWidth   int `json:"render_width"`
	RenderHeight  int `json:"render_height"`
	DisplayWidth  int `json:"display_width"`
	DisplayHeight int `json:"display_height"`

	// Upscaler settings
	HDR                bool `json:"hdr"`
	InvertedDepth      bool `json:"inverted_depth"`
	InfiniteDepth      bool `json:"infinite_depth"`
	DisplayResMotion   bool `json:"display_res_motion"`
	JitterCancellation bool `json:"jitter_cancellation"`
	ShadingChangeMip   int  `json:"shading_change_mip"`

	// Output settings
	Format   string `json:"format"`
	Baseline bool   `json:"baseline"`
	Plot     bool   `json:"plot"`

	Workers  int `json:"workers"`
	Prefetch int `json:"prefetch"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.InputDir != "" {
		c.InputDir = flags.InputDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.DisplayWidth > 0 {
		c.DisplayWidth = flags.DisplayWidth
	}
	if flags.DisplayHeight > 0 {
		c.DisplayHeight = flags.DisplayHeight
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	c.Baseline = c.Baseline || flags.Baseline
	c.Plot = c.Plot || flags.Plot

	if c.InputDir == "" {
		c.InputDir = detectInputDir()
	}

	// Resolve relative paths against the input dir
	if c.InputDir != "" {
		if c.Manifest == "" {
			c.Manifest = filepath.Join(c.InputDir, "sequence.json")
		} else if !filepath.IsAbs(c.Manifest) {
			c.Manifest = filepath.Join(c.InputDir, c.Manifest)
		}

		if c.OutputDir == "" {
			c.OutputDir = filepath.Join(c.InputDir, "upscaled")
		} else if !filepath.IsAbs(c.OutputDir) {
			c.OutputDir = filepath.Join(c.InputDir, c.OutputDir)
		}
	}

	if c.RenderWidth <= 0 || c.RenderHeight <= 0 {
		c.RenderWidth, c.RenderHeight = 1280, 720
	}
	if c.DisplayWidth <= 0 || c.DisplayHeight <= 0 {
		c.DisplayWidth, c.DisplayHeight = 1920, 1080
	}
	if c.ShadingChangeMip <= 0 {
		c.ShadingChangeMip = 4
	}
	if c.Format == "" {
		c.Format = FormatWebP
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Prefetch <= 0 {
		c.Prefetch = 4
	}
}

// Validate checks that the resolved configuration is usable.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("config: input_dir is required")
	}
	if c.Format != FormatWebP && c.Format != FormatPNG {
		return fmt.Errorf("config: format must be %q or %q, got %q", FormatWebP, FormatPNG, c.Format)
	}
	if c.DisplayWidth < c.RenderWidth || c.DisplayHeight < c.RenderHeight {
		return fmt.Errorf("config: display %dx%d smaller than render %dx%d",
			c.DisplayWidth, c.DisplayHeight, c.RenderWidth, c.RenderHeight)
	}
	if c.ShadingChangeMip > 12 {
		return fmt.Errorf("config: shading_change_mip must be at most 12, got %d", c.ShadingChangeMip)
	}
	return nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	InputDir      string
	OutputDir     string
	Format        string
	DisplayWidth  int
	DisplayHeight int
	Workers       int
	Baseline      bool
	Plot          bool
}

func detectInputDir() string {
	// Try current working directory, then a frames/ subdirectory
	cwd, _ := os.Getwd()
	for _, dir := range []string{cwd, filepath.Join(cwd, "frames")} {
		if _, err := os.Stat(filepath.Join(dir, "sequence.json")); err == nil {
			return dir
		}
	}
	return ""
}
