package quantum

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// traceEpsilon guards the renormalization step: states whose trace magnitude
// falls below this are left unnormalized for the step rather than divided by
// a near-zero trace.
const traceEpsilon = 1e-12

// Density is the 2x2 density matrix of the two-level system.
// Invariants (re-enforced after every stepper update): Hermitian, trace 1,
// diagonal entries real and non-negative.
type Density struct {
	m *mat.CDense
}

// NewDensity builds a density matrix from its four entries in row-major
// order. The caller is expected to provide a Hermitian, trace-1 matrix;
// Normalize can be used to enforce the invariants afterwards.
func NewDensity(a00, a01, a10, a11 complex128) *Density {
	return &Density{m: mat.NewCDense(2, 2, []complex128{a00, a01, a10, a11})}
}

// GroundState returns the pure ground state [[1,0],[0,0]].
func GroundState() *Density {
	return NewDensity(1, 0, 0, 0)
}

// DefaultState returns the slightly mixed, slightly coherent initial state
// the detector starts from: mostly ground population with a small
// off-diagonal seed so that the coherence observables are non-degenerate
// from the first step.
func DefaultState() *Density {
	return NewDensity(0.9, 0.05, 0.05, 0.1)
}

// At returns the entry at row i, column j.
func (d *Density) At(i, j int) complex128 {
	return d.m.At(i, j)
}

// Trace returns tr(ρ).
func (d *Density) Trace() complex128 {
	return d.m.At(0, 0) + d.m.At(1, 1)
}

// Clone returns an independent copy.
func (d *Density) Clone() *Density {
	return NewDensity(d.m.At(0, 0), d.m.At(0, 1), d.m.At(1, 0), d.m.At(1, 1))
}

// Normalize re-enforces the density-matrix invariants in place:
// Hermiticity via averaging with the conjugate transpose, non-negative real
// diagonal via clipping, and unit trace via renormalization. A numerically
// degenerate state (trace magnitude below traceEpsilon) skips the
// renormalization for this call.
func (d *Density) Normalize() {
	// Symmetrize: ρ <- (ρ + ρ†)/2. For a 2x2 matrix this pins the diagonal
	// to its real part and makes the off-diagonals exact conjugates.
	off := (d.m.At(0, 1) + cmplx.Conj(d.m.At(1, 0))) / 2
	p0 := real(d.m.At(0, 0))
	p1 := real(d.m.At(1, 1))

	// Clip negative populations introduced by the Euler step.
	if p0 < 0 {
		p0 = 0
	}
	if p1 < 0 {
		p1 = 0
	}

	tr := p0 + p1
	if math.Abs(tr) > traceEpsilon {
		p0 /= tr
		p1 /= tr
		off /= complex(tr, 0)
	}

	d.m.Set(0, 0, complex(p0, 0))
	d.m.Set(0, 1, off)
	d.m.Set(1, 0, cmplx.Conj(off))
	d.m.Set(1, 1, complex(p1, 0))
}
