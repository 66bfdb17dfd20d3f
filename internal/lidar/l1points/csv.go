package l1points

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ZstdSuffix marks tile and result files that are zstd-compressed.
const ZstdSuffix = ".zst"

// requiredColumns are the tile columns every input must carry.
var requiredColumns = []string{"x", "y", "z", "buffer"}

// ReadTileCSV parses one buffered tile. The header row must name X, Y, Z and
// Buffer (any case, any order); extra columns are ignored. Buffer accepts
// 0/1 and true/false.
func ReadTileCSV(r io.Reader, id string) (Tile, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Tile{}, fmt.Errorf("tile %s: missing header row", id)
		}
		return Tile{}, fmt.Errorf("tile %s: failed to read header: %w", id, err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	idx := make([]int, len(requiredColumns))
	for i, name := range requiredColumns {
		c, ok := col[name]
		if !ok {
			return Tile{}, fmt.Errorf("tile %s: missing required column %q", id, name)
		}
		idx[i] = c
	}

	tile := Tile{ID: id}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return Tile{}, fmt.Errorf("tile %s line %d: %w", id, line, err)
		}

		var xyz [3]float64
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[i]]), 64)
			if err != nil {
				return Tile{}, fmt.Errorf("tile %s line %d: invalid %s: %w", id, line, requiredColumns[i], err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Tile{}, fmt.Errorf("tile %s line %d: %s is not finite: %v", id, line, requiredColumns[i], v)
			}
			xyz[i] = v
		}
		inBuffer, err := strconv.ParseBool(strings.TrimSpace(rec[idx[3]]))
		if err != nil {
			return Tile{}, fmt.Errorf("tile %s line %d: invalid buffer flag: %w", id, line, err)
		}

		tile.Points = append(tile.Points, Point{X: xyz[0], Y: xyz[1], Z: xyz[2], InBuffer: inBuffer})
	}

	return tile, nil
}

// OpenFile opens path for reading, decompressing it when the name ends in
// ZstdSuffix.
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ZstdSuffix) {
		return f, nil
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open zstd stream %s: %w", path, err)
	}
	return &zstdReadCloser{Decoder: dec, file: f}, nil
}

type zstdReadCloser struct {
	*zstd.Decoder
	file *os.File
}

func (z *zstdReadCloser) Close() error {
	z.Decoder.Close()
	return z.file.Close()
}

// LoadTile reads one tile file. The tile ID is the file name without its
// .csv / .csv.zst extension.
func LoadTile(path string) (Tile, error) {
	rc, err := OpenFile(path)
	if err != nil {
		return Tile{}, fmt.Errorf("failed to open tile: %w", err)
	}
	defer rc.Close()

	return ReadTileCSV(rc, tileID(path))
}

// LoadTiles reads every path in order.
func LoadTiles(paths []string) ([]Tile, error) {
	tiles := make([]Tile, 0, len(paths))
	for _, p := range paths {
		t, err := LoadTile(p)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, t)
	}
	return tiles, nil
}

// TilePaths lists the tile files (*.csv, *.csv.zst) in dir, sorted by name.
func TilePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list tile directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".csv"+ZstdSuffix) {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func tileID(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ZstdSuffix)
	return strings.TrimSuffix(base, ".csv")
}
