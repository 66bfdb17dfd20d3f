// Package export writes labelled detections and crown summaries.
//
// Detections are written as one CSV row per surviving point with the columns
// X, Y, Z, CtrX, CtrY, CtrZ, RoundCtrX, RoundCtrY, RoundCtrZ, ID. Crown
// summaries are written as CSV or JSON. A path ending in .zst is
// zstd-compressed.
package export
