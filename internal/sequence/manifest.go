package sequence

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"

	"temporal-upscaler/internal/frames"
	"temporal-upscaler/internal/surface"
)

// ManifestEntry represents one frame in the output manifest.
type ManifestEntry struct {
	Frame    int        `json:"frame"`
	Image    string     `json:"image,omitempty"`
	Baseline string     `json:"baseline,omitempty"`
	Stats    FrameStats `json:"stats"`
	Error    string     `json:"error,omitempty"`
}

// Manifest describes a finished run.
type Manifest struct {
	RunID   string          `json:"run_id"`
	Created time.Time       `json:"created"`
	Elapsed string          `json:"elapsed"`
	Render  [2]int          `json:"render"`
	Display [2]int          `json:"display"`
	Format  string          `json:"format"`
	Summary Summary         `json:"summary"`
	Frames  []ManifestEntry `json:"frames"`
}

// NewManifest builds a manifest for a run with a fresh run ID.
func NewManifest(seq *frames.Sequence, display surface.Size, format string, elapsed time.Duration, results []Result) Manifest {
	m := Manifest{
		RunID:   uuid.New().String(),
		Created: time.Now().UTC(),
		Elapsed: elapsed.Round(time.Millisecond).String(),
		Render:  [2]int{seq.RenderWidth, seq.RenderHeight},
		Display: [2]int{display.Width, display.Height},
		Format:  format,
		Summary: Summarize(results),
		Frames:  make([]ManifestEntry, len(results)),
	}
	for i, r := range results {
		m.Frames[i] = ManifestEntry{
			Frame:    r.Frame,
			Image:    r.Image,
			Baseline: r.Baseline,
			Stats:    r.Stats,
			Error:    r.Error,
		}
	}
	return m
}

// WriteManifest writes manifest.json to path.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
