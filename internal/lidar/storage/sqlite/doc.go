// Package sqlite persists crown delineation runs.
//
// A run row records the parameters and statistics of one pipeline run; its
// labelled detections and crown summaries are stored in child tables and
// removed with it. The schema is managed by golang-migrate from migrations
// embedded in the binary.
package sqlite
