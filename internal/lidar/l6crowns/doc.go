// Package l6crowns owns Layer 6 (Crowns) of the crown delineation data model.
//
// Responsibilities: per-cluster crown summaries (size, apex, height
// percentiles, horizontal extent) computed from resolved detections.
// Key types: Crown.
//
// Dependency rule: L6 may depend on L1-L5.
// No SQL/database code is allowed in this package.
package l6crowns
