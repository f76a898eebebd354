package sequence

import (
	"errors"
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	weightColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	psnrColor     = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	baselineColor = color.RGBA{R: 127, G: 127, B: 127, A: 255}
)

// PlotConvergence saves a PNG with the mean accumulation weight per frame
// and, when references were available, the PSNR of the output and the
// spatial baseline.
func PlotConvergence(path string, results []Result) error {
	weightPts := make(plotter.XYs, 0, len(results))
	psnrPts := make(plotter.XYs, 0, len(results))
	basePts := make(plotter.XYs, 0, len(results))
	for _, r := range results {
		if !r.Success {
			continue
		}
		x := float64(r.Frame)
		weightPts = append(weightPts, plotter.XY{X: x, Y: r.Stats.MeanWeight})
		if r.Stats.PSNR > 0 {
			psnrPts = append(psnrPts, plotter.XY{X: x, Y: r.Stats.PSNR})
		}
		if r.Stats.BaselinePSNR > 0 {
			basePts = append(basePts, plotter.XY{X: x, Y: r.Stats.BaselinePSNR})
		}
	}
	if len(weightPts) == 0 {
		return errors.New("plot: no successful frames")
	}

	p := plot.New()
	p.Title.Text = "History convergence"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Mean accumulation weight"

	if err := addLine(p, "weight", weightPts, weightColor); err != nil {
		return err
	}

	height := 4 * vg.Inch
	if len(psnrPts) > 0 {
		q := plot.New()
		q.Title.Text = "Quality against reference"
		q.X.Label.Text = "Frame"
		q.Y.Label.Text = "PSNR (dB)"
		if err := addLine(q, "temporal", psnrPts, psnrColor); err != nil {
			return err
		}
		if len(basePts) > 0 {
			if err := addLine(q, "spatial baseline", basePts, baselineColor); err != nil {
				return err
			}
		}
		return saveStacked(path, 10*vg.Inch, 2*height, p, q)
	}

	if err := p.Save(10*vg.Inch, height, path); err != nil {
		return fmt.Errorf("plot: save %s: %w", path, err)
	}
	return nil
}

func addLine(p *plot.Plot, label string, pts plotter.XYs, c color.Color) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(label, line)
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return nil
}

// saveStacked draws plots top to bottom into one PNG.
func saveStacked(path string, width, height vg.Length, plots ...*plot.Plot) error {
	img := vgimg.New(width, height)
	dc := draw.New(img)

	rows := make([][]*plot.Plot, len(plots))
	for i, p := range plots {
		rows[i] = []*plot.Plot{p}
	}
	canvases := plot.Align(rows, draw.Tiles{Rows: len(plots), Cols: 1}, dc)
	for i, p := range plots {
		p.Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("plot: create %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("plot: write %s: %w", path, err)
	}
	return f.Close()
}
