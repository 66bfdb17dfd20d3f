package sweep

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Header is the column order of the sweep summary CSV.
var Header = []string{
	"version", "h2cw", "h2cl", "detections", "non_converged", "clusters",
	"mean_points", "mean_radius", "stddev_radius", "mean_height", "stddev_height",
	"elapsed_ms", "skipped",
}

// CSVWriter wraps csv.Writer with methods for sweep output.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter creates a CSVWriter and writes the header row.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	c := &CSVWriter{w: csv.NewWriter(w)}
	if err := c.w.Write(Header); err != nil {
		return nil, err
	}
	return c, nil
}

// WriteResult writes one result row and flushes it, so a long sweep can be
// followed while it runs.
func (c *CSVWriter) WriteResult(r Result) error {
	row := []string{
		string(r.Variant),
		fmt.Sprintf("%.6f", r.H2CW),
		fmt.Sprintf("%.6f", r.H2CL),
		fmt.Sprintf("%d", r.Detections),
		fmt.Sprintf("%d", r.NonConverged),
		fmt.Sprintf("%d", r.Clusters),
		fmt.Sprintf("%.3f", r.MeanPoints),
		fmt.Sprintf("%.4f", r.MeanRadius),
		fmt.Sprintf("%.4f", r.StdRadius),
		fmt.Sprintf("%.4f", r.MeanHeight),
		fmt.Sprintf("%.4f", r.StdHeight),
		fmt.Sprintf("%d", r.Elapsed.Milliseconds()),
		fmt.Sprintf("%t", r.Skipped),
	}
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}
