// Package sweep runs the delineation pipeline over a grid of crown
// allometry settings and tabulates what each setting produces.
//
// A sweep is the usual way to pick h2cw and h2cl for a new stand: too small
// a kernel splits crowns, too large a kernel merges neighbours.
package sweep
