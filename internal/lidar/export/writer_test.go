package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/canopy.report/internal/lidar/l4tiles"
	"github.com/banshee-data/canopy.report/internal/lidar/l6crowns"
)

func sampleDetections() []l4tiles.Detection {
	return []l4tiles.Detection{
		{X: 1.5, Y: 2.25, Z: 10, CtrX: 1.4, CtrY: 2.2, CtrZ: 11, RoundCtrX: 2, RoundCtrY: 2, RoundCtrZ: 12, ID: 1, Tile: "a"},
		{X: 20, Y: 5, Z: 8.125, CtrX: 19.9, CtrY: 5.1, CtrZ: 9, RoundCtrX: 20, RoundCtrY: 6, RoundCtrZ: 10, ID: 2, Tile: "b"},
	}
}

func TestCSVWriter_WriteDetections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(&buf).WriteDetections(sampleDetections()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	want := [][]string{
		{"X", "Y", "Z", "CtrX", "CtrY", "CtrZ", "RoundCtrX", "RoundCtrY", "RoundCtrZ", "ID"},
		{"1.5", "2.25", "10", "1.4", "2.2", "11", "2", "2", "12", "1"},
		{"20", "5", "8.125", "19.9", "5.1", "9", "20", "6", "10", "2"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("detections CSV mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVWriter_WriteDetectionsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(&buf).WriteDetections(nil))
	assert.Equal(t, strings.Join(DetectionHeader, ",")+"\n", buf.String())
}

func TestCSVWriter_WriteCrowns(t *testing.T) {
	var buf bytes.Buffer
	crowns := []l6crowns.Crown{{ID: 3, Points: 12, CtrX: 1, CtrY: 2, CtrZ: 15.5, ApexZ: 17, HeightP95: 16.8, MeanHeight: 12.25, Radius: 1.75}}
	require.NoError(t, NewCSVWriter(&buf).WriteCrowns(crowns))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(CrownHeader, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "3,12,1.000,2.000,15.500,"), lines[1])
	assert.True(t, strings.HasSuffix(lines[1], ",16.800,12.250,1.750"), lines[1])
}

func TestWriteCrownsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCrownsJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteCrownsJSON(&buf, []l6crowns.Crown{{ID: 1, Points: 4}}))
	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.EqualValues(t, 1, got[0]["id"])
	assert.EqualValues(t, 4, got[0]["points"])
}

func TestWriteDetectionsFile_Zstd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "labelled.csv.zst")
	require.NoError(t, WriteDetectionsFile(path, sampleDetections()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()

	records, err := csv.NewReader(dec).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, DetectionHeader, records[0])
	assert.Equal(t, "2", records[2][9])
}

func TestWriteCrownsFile_FormatBySuffix(t *testing.T) {
	dir := t.TempDir()
	crowns := []l6crowns.Crown{{ID: 1, Points: 2}}

	jsonPath := filepath.Join(dir, "crowns.json")
	require.NoError(t, WriteCrownsFile(jsonPath, crowns))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "["))

	csvPath := filepath.Join(dir, "crowns.csv")
	require.NoError(t, WriteCrownsFile(csvPath, crowns))
	data, err = os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,points,"))
}
