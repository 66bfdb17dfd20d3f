// Package l2kernel owns Layer 2 (Kernel) of the crown delineation data model.
//
// Responsibilities: sizing the anisotropic crown kernel from height above
// ground, and the separable vertical (Epanechnikov) and horizontal (Gaussian)
// weights that mode seeking uses.
// Key types: Params, Kernel.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2kernel
