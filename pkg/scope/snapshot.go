package scope

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Snapshot image size.
const (
	SnapshotWidth  = 10 * vg.Inch
	SnapshotHeight = 6 * vg.Inch
)

// SavePNG renders series with the same fixed domains as the live chart and
// writes the image to path. The format follows the file extension (.png, .svg, .pdf).
func SavePNG(path string, opts Options, series [][]float64) error {
	if len(series) != len(opts.Labels) {
		return fmt.Errorf("got %d series for %d labels", len(series), len(opts.Labels))
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.Y.Label.Text = opts.YLabel
	p.X.Label.Text = "Sample"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for i, values := range series {
		xys := make(plotter.XYs, len(values))
		for j, v := range values {
			xys[j].X = float64(j)
			xys[j].Y = v
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("failed to plot %s: %w", opts.Labels[i], err)
		}
		line.Color = seriesColor(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(opts.Labels[i], line)
	}

	// Fixed domains, set after Add which widens them to the data
	p.X.Min = 0
	p.X.Max = float64(opts.Length)
	p.Y.Min = opts.YMin
	p.Y.Max = opts.YMax

	if err := p.Save(SnapshotWidth, SnapshotHeight, path); err != nil {
		return fmt.Errorf("failed to save chart to %s: %w", path, err)
	}

	return nil
}
