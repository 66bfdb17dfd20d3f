package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/canopy.report/internal/lidar/l4tiles"
	"github.com/banshee-data/canopy.report/internal/lidar/l6crowns"
)

// EchartsAssetsHost is where rendered pages load the echarts script from.
var EchartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// viridis is the colour ramp for the cluster visual map.
var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// ChartOptions controls HTML chart rendering.
type ChartOptions struct {
	Title     string
	Subtitle  string
	MaxPoints int
}

// WriteCrownChart renders an interactive plan-view scatter of detections,
// coloured by cluster ID, and a height-against-points scatter of crowns.
func WriteCrownChart(w io.Writer, ds []l4tiles.Detection, crowns []l6crowns.Crown, o ChartOptions) error {
	step := stride(len(ds), o.MaxPoints)
	pts := make([]opts.ScatterData, 0, len(ds)/step+1)
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	maxID := 1
	for i := 0; i < len(ds); i += step {
		d := ds[i]
		pts = append(pts, opts.ScatterData{Value: []interface{}{d.X, d.Y, d.ID}})
		minX, maxX = math.Min(minX, d.X), math.Max(maxX, d.X)
		minY, maxY = math.Min(minY, d.Y), math.Max(maxY, d.Y)
		if d.ID > maxID {
			maxID = d.ID
		}
	}

	subtitle := o.Subtitle
	if subtitle == "" {
		subtitle = fmt.Sprintf("points=%d stride=%d crowns=%d", len(ds), step, len(crowns))
	}

	plan := charts.NewScatter()
	planOpts := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Theme: "dark", Width: "900px", Height: "900px", AssetsHost: EchartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        1,
			Max:        float32(maxID),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	}
	if len(pts) > 0 {
		planOpts = append(planOpts,
			charts.WithXAxisOpts(opts.XAxis{Min: math.Floor(minX), Max: math.Ceil(maxX), Name: "X (m)", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Min: math.Floor(minY), Max: math.Ceil(maxY), Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		)
	}
	plan.SetGlobalOptions(planOpts...)
	plan.AddSeries("points", pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	apex := make([]opts.ScatterData, len(crowns))
	for i, c := range crowns {
		apex[i] = opts.ScatterData{Value: []interface{}{c.ApexX, c.ApexY, c.ID}, Symbol: "diamond", SymbolSize: 8}
	}
	plan.AddSeries("apex", apex)

	sizes := make([]opts.ScatterData, len(crowns))
	for i, c := range crowns {
		sizes[i] = opts.ScatterData{Value: []interface{}{c.Points, c.HeightP95, c.ID}}
	}
	profile := charts.NewScatter()
	profile.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "900px", Height: "450px", AssetsHost: EchartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Crown height against size"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "points", NameLocation: "middle", NameGap: 25, Type: "log"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "height P95 (m)", NameLocation: "middle", NameGap: 30}),
	)
	profile.AddSeries("crowns", sizes, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	page := components.NewPage()
	page.SetAssetsHost(EchartsAssetsHost)
	page.AddCharts(plan, profile)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}
