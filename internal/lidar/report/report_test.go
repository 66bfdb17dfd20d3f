package report

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/canopy.report/internal/lidar/l4tiles"
	"github.com/banshee-data/canopy.report/internal/lidar/l6crowns"
)

func fixture() ([]l4tiles.Detection, []l6crowns.Crown) {
	var ds []l4tiles.Detection
	for i := 0; i < 50; i++ {
		id := 1 + i%3
		ds = append(ds, l4tiles.Detection{X: float64(id*10) + float64(i%5)*0.1, Y: float64(i % 7), Z: 5 + float64(i%4), ID: id})
	}
	crowns := []l6crowns.Crown{
		{ID: 1, Points: 17, ApexX: 10, ApexY: 3, ApexZ: 8, HeightP95: 8},
		{ID: 2, Points: 17, ApexX: 20, ApexY: 2, ApexZ: 7, HeightP95: 7.5},
		{ID: 3, Points: 16, ApexX: 30, ApexY: 4, ApexZ: 8, HeightP95: 7.9},
	}
	return ds, crowns
}

func TestGenerateColors(t *testing.T) {
	assert.Nil(t, generateColors(0))

	colors := generateColors(paletteSize)
	require.Len(t, colors, paletteSize)
	seen := make(map[color.Color]bool)
	for _, c := range colors {
		seen[c] = true
	}
	assert.Len(t, seen, paletteSize, "hues should be distinct")
}

func TestClusterColor(t *testing.T) {
	palette := generateColors(paletteSize)
	assert.Equal(t, color.Gray{Y: 160}, clusterColor(palette, 0))
	assert.NotEqual(t, clusterColor(palette, 1), clusterColor(palette, 2))
	assert.Equal(t, clusterColor(palette, 1), clusterColor(palette, 1+paletteSize))
}

func TestStride(t *testing.T) {
	assert.Equal(t, 1, stride(10, 0))
	assert.Equal(t, 1, stride(10, 10))
	assert.Equal(t, 2, stride(11, 10))
	assert.Equal(t, 10, stride(100, 10))
}

func TestWriteCrownPlot(t *testing.T) {
	ds, crowns := fixture()
	path := filepath.Join(t.TempDir(), "plots", "crowns.png")

	o := DefaultPlotOptions()
	o.MaxPoints = 20
	require.NoError(t, WriteCrownPlot(path, ds, crowns, o))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "expected a PNG file")
}

func TestWriteCrownPlot_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.svg")
	require.NoError(t, WriteCrownPlot(path, nil, nil, DefaultPlotOptions()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestWriteHeightHistogram(t *testing.T) {
	_, crowns := fixture()
	dir := t.TempDir()

	require.NoError(t, WriteHeightHistogram(filepath.Join(dir, "heights.png"), crowns, 0, DefaultPlotOptions()))
	assert.Error(t, WriteHeightHistogram(filepath.Join(dir, "none.png"), nil, 10, DefaultPlotOptions()))
}

func TestWriteCrownChart(t *testing.T) {
	ds, crowns := fixture()

	var buf bytes.Buffer
	require.NoError(t, WriteCrownChart(&buf, ds, crowns, ChartOptions{Title: "Plot 7", MaxPoints: 25}))

	html := buf.String()
	assert.True(t, strings.Contains(html, "<html"), "expected an HTML page")
	assert.Contains(t, html, "Plot 7")
	assert.Contains(t, html, "points=50 stride=2 crowns=3")
	assert.Contains(t, html, "echarts")
}
