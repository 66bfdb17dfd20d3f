// Package pipeline orchestrates a crown delineation run.
//
// It is the composition root for the layer packages: it fans tiles out to a
// worker pool (L4), concatenates the per-tile detections, assigns global
// cluster IDs (L5) and summarises crowns (L6). None of those packages import
// pipeline. The pipeline does not own domain logic; it delegates to the
// layer packages.
package pipeline
