package quantum

import (
	"math"
	"math/cmplx"
)

// entropyEpsilon floors eigenvalues before taking logarithms so the von
// Neumann entropy of (near-)pure states evaluates to zero instead of NaN.
const entropyEpsilon = 1e-12

// Observables holds the scalar readouts derived from ρ at a single step.
//
// Coherence and Entanglement follow the detector's internal terminology:
// the excited-state population and the off-diagonal magnitude respectively.
// They are not the formal quantum-information quantities of the same name.
type Observables struct {
	Coherence    float64 // real(ρ11), excited-state population
	Entanglement float64 // |ρ01|, off-diagonal magnitude
	BlochX       float64
	BlochY       float64
	BlochZ       float64
	BlochNorm    float64 // Euclidean length of the Bloch vector
	Purity       float64 // Re(tr ρ²): 1 pure, 0.5 maximally mixed
	Entropy      float64 // von Neumann entropy, natural log
}

// Observe extracts the scalar observables from ρ. Pure function: no side
// effects, deterministic given ρ.
func Observe(rho *Density) Observables {
	p0 := real(rho.At(0, 0))
	p1 := real(rho.At(1, 1))
	off := rho.At(0, 1)

	// Bloch decomposition ρ = ½(I + xσx + yσy + zσz).
	bx := 2 * real(off)
	by := -2 * imag(off)
	bz := p0 - p1

	// purity = Re(tr ρ²) for the 2x2 case.
	purity := p0*p0 + p1*p1 + 2*real(rho.At(0, 1)*rho.At(1, 0))

	return Observables{
		Coherence:    p1,
		Entanglement: cmplx.Abs(off),
		BlochX:       bx,
		BlochY:       by,
		BlochZ:       bz,
		BlochNorm:    math.Sqrt(bx*bx + by*by + bz*bz),
		Purity:       purity,
		Entropy:      vonNeumannEntropy(rho),
	}
}

// vonNeumannEntropy computes -Σ λ ln λ from the closed-form eigenvalues of
// the 2x2 Hermitian matrix: λ± = (tr ± √(tr² − 4·det))/2. Eigenvalues are
// clamped to [0, 1] and floored at entropyEpsilon before the logarithm.
func vonNeumannEntropy(rho *Density) float64 {
	tr := real(rho.Trace())
	det := real(rho.At(0, 0)*rho.At(1, 1) - rho.At(0, 1)*rho.At(1, 0))

	disc := tr*tr - 4*det
	if disc < 0 {
		disc = 0
	}
	root := math.Sqrt(disc)

	entropy := 0.0
	for _, lambda := range [2]float64{(tr + root) / 2, (tr - root) / 2} {
		if lambda < entropyEpsilon {
			continue
		}
		if lambda > 1 {
			lambda = 1
		}
		entropy -= lambda * math.Log(lambda)
	}
	return entropy
}
