package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/banshee-data/canopy.report/internal/lidar/l1points"
	"github.com/banshee-data/canopy.report/internal/lidar/l4tiles"
	"github.com/banshee-data/canopy.report/internal/lidar/l6crowns"
)

// DetectionHeader is the column order of the labelled point output.
var DetectionHeader = []string{"X", "Y", "Z", "CtrX", "CtrY", "CtrZ", "RoundCtrX", "RoundCtrY", "RoundCtrZ", "ID"}

// CrownHeader is the column order of the crown summary CSV.
var CrownHeader = []string{"id", "points", "ctr_x", "ctr_y", "ctr_z", "apex_x", "apex_y", "apex_z", "height_p95", "mean_height", "radius"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CSVWriter wraps csv.Writer with methods for result output.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter creates a CSVWriter on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// WriteDetections writes the header and one row per detection.
func (c *CSVWriter) WriteDetections(ds []l4tiles.Detection) error {
	if err := c.w.Write(DetectionHeader); err != nil {
		return err
	}
	row := make([]string, len(DetectionHeader))
	for _, d := range ds {
		row[0] = formatFloat(d.X)
		row[1] = formatFloat(d.Y)
		row[2] = formatFloat(d.Z)
		row[3] = formatFloat(d.CtrX)
		row[4] = formatFloat(d.CtrY)
		row[5] = formatFloat(d.CtrZ)
		row[6] = formatFloat(d.RoundCtrX)
		row[7] = formatFloat(d.RoundCtrY)
		row[8] = formatFloat(d.RoundCtrZ)
		row[9] = strconv.Itoa(d.ID)
		if err := c.w.Write(row); err != nil {
			return err
		}
	}
	return c.Flush()
}

// WriteCrowns writes the header and one row per crown.
func (c *CSVWriter) WriteCrowns(crowns []l6crowns.Crown) error {
	if err := c.w.Write(CrownHeader); err != nil {
		return err
	}
	for _, cr := range crowns {
		row := []string{
			strconv.Itoa(cr.ID),
			strconv.Itoa(cr.Points),
			fmt.Sprintf("%.3f", cr.CtrX),
			fmt.Sprintf("%.3f", cr.CtrY),
			fmt.Sprintf("%.3f", cr.CtrZ),
			fmt.Sprintf("%.3f", cr.ApexX),
			fmt.Sprintf("%.3f", cr.ApexY),
			fmt.Sprintf("%.3f", cr.ApexZ),
			fmt.Sprintf("%.3f", cr.HeightP95),
			fmt.Sprintf("%.3f", cr.MeanHeight),
			fmt.Sprintf("%.3f", cr.Radius),
		}
		if err := c.w.Write(row); err != nil {
			return err
		}
	}
	return c.Flush()
}

// Flush flushes the underlying writer and reports any buffered write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// WriteCrownsJSON writes crowns as an indented JSON array.
func WriteCrownsJSON(w io.Writer, crowns []l6crowns.Crown) error {
	if crowns == nil {
		crowns = []l6crowns.Crown{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(crowns)
}

// CreateFile creates path for writing, compressing the stream when the name
// ends in .zst. Close flushes the compressor before closing the file.
func CreateFile(path string) (io.WriteCloser, error) {
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(cleanPath)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(cleanPath, l1points.ZstdSuffix) {
		return f, nil
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open zstd stream %s: %w", path, err)
	}
	return &zstdWriteCloser{Encoder: enc, file: f}, nil
}

type zstdWriteCloser struct {
	*zstd.Encoder
	file *os.File
}

func (z *zstdWriteCloser) Close() error {
	if err := z.Encoder.Close(); err != nil {
		z.file.Close()
		return err
	}
	return z.file.Close()
}

// WriteDetectionsFile writes the labelled point output to path.
func WriteDetectionsFile(path string, ds []l4tiles.Detection) (err error) {
	wc, err := CreateFile(path)
	if err != nil {
		return fmt.Errorf("failed to create detections file: %w", err)
	}
	defer func() {
		if cerr := wc.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if err := NewCSVWriter(wc).WriteDetections(ds); err != nil {
		return fmt.Errorf("failed to write detections: %w", err)
	}
	return nil
}

// WriteCrownsFile writes crown summaries to path: JSON when the name (less
// any .zst suffix) ends in .json, CSV otherwise.
func WriteCrownsFile(path string, crowns []l6crowns.Crown) (err error) {
	wc, err := CreateFile(path)
	if err != nil {
		return fmt.Errorf("failed to create crowns file: %w", err)
	}
	defer func() {
		if cerr := wc.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if strings.HasSuffix(strings.TrimSuffix(path, l1points.ZstdSuffix), ".json") {
		err = WriteCrownsJSON(wc, crowns)
	} else {
		err = NewCSVWriter(wc).WriteCrowns(crowns)
	}
	if err != nil {
		return fmt.Errorf("failed to write crowns: %w", err)
	}
	return nil
}
