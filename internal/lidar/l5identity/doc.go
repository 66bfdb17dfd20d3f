// Package l5identity owns Layer 5 (Identity) of the crown delineation data
// model.
//
// Responsibilities: merging the detections of every tile into one global
// cluster ID space, by exact rounded-centroid grouping (default) or by a
// greedy distance-threshold merge.
// Key types: Strategy, Resolver.
//
// Dependency rule: L5 may depend on L1-L4, but never on L6+.
package l5identity
