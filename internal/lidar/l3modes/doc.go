// Package l3modes owns Layer 3 (Modes) of the crown delineation data model.
//
// Responsibilities: adaptive mean-shift mode seeking over one tile's points,
// in two interchangeable variants (classic on raw coordinates, voxel on a
// 1-unit integer grid), and the planar grid index both variants use for
// neighbour lookup.
// Key types: Seeker, Mode, Params, SpatialIndex.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
package l3modes
