package l2kernel

import "math"

// The vertical band reaches a quarter of the kernel height below the centre
// and half above it, so the crown apex sits above the kernel centre. Each
// band edge is normalised by 3H/8, half the band's 3H/4 extent.

// BandLimits returns the vertical band [lo, hi] for a kernel of height
// kernelH centred at ctrZ.
func BandLimits(kernelH, ctrZ float64) (lo, hi float64) {
	return ctrZ - kernelH/4, ctrZ + kernelH/2
}

// VerticalDistance is the normalised distance from z to the nearer band edge.
// It is 0 at either edge and 1 at the band's midpoint.
func VerticalDistance(kernelH, ctrZ, z float64) float64 {
	lo, hi := BandLimits(kernelH, ctrZ)
	norm := 3 * kernelH / 8
	bottom := math.Abs((lo - z) / norm)
	top := math.Abs((hi - z) / norm)
	return math.Min(bottom, top)
}

// VerticalWeight is the Epanechnikov-shaped weight 1-(1-d)^2 inside the band
// and 0 outside it.
func VerticalWeight(kernelH, ctrZ, z float64) float64 {
	lo, hi := BandLimits(kernelH, ctrZ)
	if z < lo || z > hi {
		return 0
	}
	d := 1 - VerticalDistance(kernelH, ctrZ, z)
	return 1 - d*d
}

// HorizontalWeight is the Gaussian-shaped weight exp(-5 (r/(w/2))^2) for a
// planar offset (dx, dy) from the kernel centre.
func HorizontalWeight(radius, dx, dy float64) float64 {
	r2 := dx*dx + dy*dy
	half := radius / 2
	return math.Exp(-5 * r2 / (half * half))
}

// Weight is the combined kernel weight of point (x, y, z) for kernel k centred
// at (cx, cy, cz).
func (k Kernel) Weight(cx, cy, cz, x, y, z float64) float64 {
	v := VerticalWeight(k.Height, cz, z)
	if v == 0 {
		return 0
	}
	return v * HorizontalWeight(k.Radius, x-cx, y-cy)
}
