// Package l1points owns Layer 1 (Points) of the crown delineation data model.
//
// Responsibilities: the Point and Tile types, tile bounding boxes (full and
// core), ground-return filtering, and reading buffered tiles from CSV.
// Key types: Point, Tile, Bounds.
//
// Dependency rule: L1 depends on no other lidar layer.
// No SQL/database code is allowed in this package.
package l1points
