package l1points

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTile = `x,y,Z,Buffer,intensity
1.5,2.5,3.5,0,10
4,5,6,1,20
7,8,9,true,30
`

func TestReadTileCSV(t *testing.T) {
	t.Parallel()

	tile, err := ReadTileCSV(strings.NewReader(sampleTile), "t1")
	require.NoError(t, err)
	require.Len(t, tile.Points, 3)

	assert.Equal(t, "t1", tile.ID)
	assert.Equal(t, Point{X: 1.5, Y: 2.5, Z: 3.5}, tile.Points[0])
	assert.True(t, tile.Points[1].InBuffer)
	assert.True(t, tile.Points[2].InBuffer)
}

func TestReadTileCSV_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing buffer column", "X,Y,Z\n1,2,3\n"},
		{"bad float", "X,Y,Z,Buffer\n1,abc,3,0\n"},
		{"bad flag", "X,Y,Z,Buffer\n1,2,3,maybe\n"},
		{"nan x", "X,Y,Z,Buffer\n5,5,10,0\nNaN,1,10,0\n"},
		{"inf z", "X,Y,Z,Buffer\n5,5,+Inf,0\n"},
		{"negative inf y", "X,Y,Z,Buffer\n5,-inf,10,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadTileCSV(strings.NewReader(tt.input), "bad")
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "bad")
		})
	}
}

func TestLoadTiles_PlainAndZstd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte(sampleTile), 0644))

	zf, err := os.Create(filepath.Join(dir, "b.csv.zst"))
	require.NoError(t, err)
	enc, err := zstd.NewWriter(zf)
	require.NoError(t, err)
	_, err = enc.Write([]byte(sampleTile))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, zf.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	paths, err := TilePaths(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	tiles, err := LoadTiles(paths)
	require.NoError(t, err)
	require.Len(t, tiles, 2)
	assert.Equal(t, "a", tiles[0].ID)
	assert.Equal(t, "b", tiles[1].ID)
	assert.Equal(t, tiles[0].Points, tiles[1].Points)
}

func TestLoadTile_Missing(t *testing.T) {
	t.Parallel()
	_, err := LoadTile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
