package report

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/canopy.report/internal/lidar/l4tiles"
	"github.com/banshee-data/canopy.report/internal/lidar/l6crowns"
)

// PlotOptions controls static plot rendering.
type PlotOptions struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	// MaxPoints caps the points drawn; larger inputs are strided.
	MaxPoints int
}

// DefaultPlotOptions returns a 10in square plot of at most 200k points.
func DefaultPlotOptions() PlotOptions {
	return PlotOptions{
		Title:     "Tree crowns",
		Width:     10 * vg.Inch,
		Height:    10 * vg.Inch,
		MaxPoints: 200_000,
	}
}

func stride(n, max int) int {
	if max <= 0 || n <= max {
		return 1
	}
	return (n + max - 1) / max
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

// WriteCrownPlot draws a plan view of the detections coloured by cluster ID
// with each crown apex marked, and saves it to path.
func WriteCrownPlot(path string, ds []l4tiles.Detection, crowns []l6crowns.Crown, o PlotOptions) error {
	p := plot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	palette := generateColors(paletteSize)

	step := stride(len(ds), o.MaxPoints)
	pts := make(plotter.XYs, 0, len(ds)/step+1)
	ids := make([]int, 0, cap(pts))
	for i := 0; i < len(ds); i += step {
		pts = append(pts, plotter.XY{X: ds[i].X, Y: ds[i].Y})
		ids = append(ids, ds[i].ID)
	}
	if len(pts) > 0 {
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("points: %w", err)
		}
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{
				Color:  clusterColor(palette, ids[i]),
				Radius: vg.Points(1),
				Shape:  draw.CircleGlyph{},
			}
		}
		p.Add(sc)
	}

	if len(crowns) > 0 {
		apex := make(plotter.XYs, len(crowns))
		for i, c := range crowns {
			apex[i] = plotter.XY{X: c.ApexX, Y: c.ApexY}
		}
		sc, err := plotter.NewScatter(apex)
		if err != nil {
			return fmt.Errorf("apices: %w", err)
		}
		sc.GlyphStyle = draw.GlyphStyle{Radius: vg.Points(3), Shape: draw.CrossGlyph{}}
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("apex (%d crowns)", len(crowns)), sc)
		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := p.Save(o.Width, o.Height, path); err != nil {
		return fmt.Errorf("failed to save crown plot: %w", err)
	}
	return nil
}

// WriteHeightHistogram saves a histogram of crown P95 heights.
func WriteHeightHistogram(path string, crowns []l6crowns.Crown, bins int, o PlotOptions) error {
	if len(crowns) == 0 {
		return fmt.Errorf("no crowns to plot")
	}
	if bins < 1 {
		bins = 20
	}

	p := plot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = "Crown height P95 (m)"
	p.Y.Label.Text = "Crowns"

	vals := make(plotter.Values, len(crowns))
	for i, c := range crowns {
		vals[i] = c.HeightP95
	}
	h, err := plotter.NewHist(vals, bins)
	if err != nil {
		return fmt.Errorf("histogram: %w", err)
	}
	h.FillColor = generateColors(1)[0]
	p.Add(h)

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := p.Save(o.Width, o.Height/2, path); err != nil {
		return fmt.Errorf("failed to save height histogram: %w", err)
	}
	return nil
}
