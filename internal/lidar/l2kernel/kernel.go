package l2kernel

import (
	"errors"
	"fmt"
	"math"
)

// Defaults for the crown allometry. Crown width and length scale linearly with
// height above ground.
const (
	DefaultCWInter = 0.0
	DefaultH2CW    = 0.3
	DefaultCLInter = 0.0
	DefaultH2CL    = 0.4
)

// ErrInvalidKernel is returned when the coefficients yield a non-positive
// kernel radius or height.
var ErrInvalidKernel = errors.New("invalid kernel")

// Params holds the kernel-sizing coefficients.
type Params struct {
	CWInter float64 // Crown width intercept (metres)
	H2CW    float64 // Crown width per metre of height
	CLInter float64 // Crown length intercept (metres)
	H2CL    float64 // Crown length per metre of height
}

// DefaultParams returns the default crown allometry.
func DefaultParams() Params {
	return Params{
		CWInter: DefaultCWInter,
		H2CW:    DefaultH2CW,
		CLInter: DefaultCLInter,
		H2CL:    DefaultH2CL,
	}
}

// Kernel is the 3D window at one height: a horizontal radius and a vertical
// extent.
type Kernel struct {
	Radius float64
	Height float64
}

// At returns the kernel at height h above ground. h must be non-negative;
// callers filter ground returns first.
func (p Params) At(h float64) Kernel {
	return Kernel{
		Radius: p.CWInter + p.H2CW*h,
		Height: p.CLInter + p.H2CL*h,
	}
}

// Valid reports whether both kernel dimensions are strictly positive.
func (k Kernel) Valid() bool {
	return k.Radius > 0 && k.Height > 0
}

// CheckRange verifies the kernel is valid at both ends of [minH, maxH]. The
// kernel is linear in h, so the endpoints bound every height in between.
func (p Params) CheckRange(minH, maxH float64) error {
	for _, h := range []float64{minH, maxH} {
		k := p.At(h)
		if !k.Valid() || math.IsNaN(k.Radius) || math.IsNaN(k.Height) {
			return fmt.Errorf("%w: radius=%.4g height=%.4g at h=%.4g", ErrInvalidKernel, k.Radius, k.Height, h)
		}
	}
	return nil
}
