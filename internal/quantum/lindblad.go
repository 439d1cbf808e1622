package quantum

import (
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// m2 is a 2x2 complex matrix in plain array form. CDense carries no complex
// arithmetic in gonum, so the stepper works the products out on m2 values and
// writes the result back to the CDense storage.
type m2 [2][2]complex128

func load(src *mat.CDense) m2 {
	return m2{
		{src.At(0, 0), src.At(0, 1)},
		{src.At(1, 0), src.At(1, 1)},
	}
}

func mul(a, b m2) m2 {
	return m2{
		{a[0][0]*b[0][0] + a[0][1]*b[1][0], a[0][0]*b[0][1] + a[0][1]*b[1][1]},
		{a[1][0]*b[0][0] + a[1][1]*b[1][0], a[1][0]*b[0][1] + a[1][1]*b[1][1]},
	}
}

func add(a, b m2) m2 {
	return m2{
		{a[0][0] + b[0][0], a[0][1] + b[0][1]},
		{a[1][0] + b[1][0], a[1][1] + b[1][1]},
	}
}

func sub(a, b m2) m2 {
	return m2{
		{a[0][0] - b[0][0], a[0][1] - b[0][1]},
		{a[1][0] - b[1][0], a[1][1] - b[1][1]},
	}
}

func scale(s complex128, a m2) m2 {
	return m2{
		{s * a[0][0], s * a[0][1]},
		{s * a[1][0], s * a[1][1]},
	}
}

// dagger returns the conjugate transpose a†.
func dagger(a m2) m2 {
	return m2{
		{cmplx.Conj(a[0][0]), cmplx.Conj(a[1][0])},
		{cmplx.Conj(a[0][1]), cmplx.Conj(a[1][1])},
	}
}

// Step advances ρ by one explicit Euler step of the Lindblad master equation
//
//	dρ/dt = -i[H, ρ] + Σ_k γ_k (L_k ρ L_k† − ½{L_k† L_k, ρ})
//
// First-order accurate, conditionally stable for the dt values the detector
// uses. After the update the density-matrix invariants are re-enforced via
// Normalize. The function never fails; degenerate states degrade gracefully
// inside Normalize.
func Step(rho *Density, h Operator, jumps []Jump, dt float64) {
	r := load(rho.m)
	hm := load(h.m)

	// Unitary part: -i[H, ρ].
	delta := scale(complex(0, -1), sub(mul(hm, r), mul(r, hm)))

	// Dissipators: γ(LρL† − ½{L†L, ρ}) per jump operator.
	for _, j := range jumps {
		if j.Rate == 0 || j.L.IsZero() {
			continue
		}

		l := load(j.L.m)
		ld := dagger(l)

		lrl := mul(mul(l, r), ld)
		ll := mul(ld, l)
		anti := add(mul(ll, r), mul(r, ll))

		diss := sub(lrl, scale(0.5, anti))
		delta = add(delta, scale(complex(j.Rate, 0), diss))
	}

	// ρ <- ρ + dt·dρ, then restore the invariants.
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			rho.m.Set(i, j, r[i][j]+complex(dt, 0)*delta[i][j])
		}
	}
	rho.Normalize()
}
