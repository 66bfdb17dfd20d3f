// Package l4tiles owns Layer 4 (Tiles) of the crown delineation data model.
//
// Responsibilities: processing one buffered tile end to end: ground removal,
// local-frame translation, mode seeking, centroid rounding, and the core-area
// rule that discards detections whose rounded centroid lies in the buffer.
// Key types: Params, Detection, Result.
//
// Dependency rule: L4 may depend on L1-L3, but never on L5+.
package l4tiles
