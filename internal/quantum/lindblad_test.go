package quantum

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStep_GroundStateUnchangedByZeroGenerators(t *testing.T) {
	rho := GroundState()

	Step(rho, Zero(), nil, 0.01)

	assert.InDelta(t, 1.0, real(rho.At(0, 0)), 1e-12)
	assert.InDelta(t, 0.0, real(rho.At(1, 1)), 1e-12)
	assert.InDelta(t, 0.0, cmplx.Abs(rho.At(0, 1)), 1e-12)
}

func TestStep_PreservesInvariantsUnderRandomEvolution(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rho := DefaultState()

	jumps := []Jump{
		{L: Lowering(), Rate: 0.2},
		{L: PauliZ(), Rate: 0.1},
	}

	for step := 0; step < 500; step++ {
		// Random Hermitian Hamiltonian each step.
		a := rng.NormFloat64()
		b := rng.NormFloat64()
		c := rng.NormFloat64()
		d := rng.NormFloat64()
		h := NewOperator(
			complex(a, 0),
			complex(b, c),
			complex(b, -c),
			complex(d, 0),
		)

		Step(rho, h, jumps, 0.01)

		// Hermitian within floating tolerance.
		assert.InDelta(t, 0.0, imag(rho.At(0, 0)), 1e-12)
		assert.InDelta(t, 0.0, imag(rho.At(1, 1)), 1e-12)
		diff := rho.At(0, 1) - cmplx.Conj(rho.At(1, 0))
		assert.InDelta(t, 0.0, cmplx.Abs(diff), 1e-12)

		// Unit trace.
		assert.InDelta(t, 1.0, real(rho.Trace()), 1e-9)

		// Non-negative populations.
		assert.GreaterOrEqual(t, real(rho.At(0, 0)), 0.0)
		assert.GreaterOrEqual(t, real(rho.At(1, 1)), 0.0)
	}
}

func TestStep_UnitaryPartMatchesAnalyticDerivative(t *testing.T) {
	// H = (ω/2)σz rotates the coherence: dρ01/dt = -iω·ρ01. One Euler
	// step must reproduce that exactly (the diagonal stays put, so
	// Normalize is the identity here).
	const (
		omega = 1.3
		dt    = 0.01
	)
	rho := NewDensity(0.5, 0.2, 0.2, 0.5)
	h := NewOperator(complex(omega/2, 0), 0, 0, complex(-omega/2, 0))

	Step(rho, h, nil, dt)

	want := complex(0.2, 0) * (1 + complex(0, -omega*dt))
	assert.InDelta(t, real(want), real(rho.At(0, 1)), 1e-12)
	assert.InDelta(t, imag(want), imag(rho.At(0, 1)), 1e-12)
	assert.InDelta(t, 0.5, real(rho.At(0, 0)), 1e-12)
	assert.InDelta(t, 0.5, real(rho.At(1, 1)), 1e-12)
}

func TestStep_DissipatorMatchesAnalyticDerivative(t *testing.T) {
	// Amplitude damping with L = lowering operator and rate γ:
	//   dρ00/dt = γ·ρ11,  dρ11/dt = -γ·ρ11,  dρ01/dt = -γ/2·ρ01.
	const (
		gamma = 0.5
		dt    = 0.01
	)
	c := complex(0.1, 0.05)
	rho := NewDensity(0.6, c, cmplx.Conj(c), 0.4)
	jumps := []Jump{{L: Lowering(), Rate: gamma}}

	Step(rho, Zero(), jumps, dt)

	assert.InDelta(t, 0.6+dt*gamma*0.4, real(rho.At(0, 0)), 1e-12)
	assert.InDelta(t, 0.4-dt*gamma*0.4, real(rho.At(1, 1)), 1e-12)

	wantOff := c * complex(1-dt*gamma/2, 0)
	assert.InDelta(t, real(wantOff), real(rho.At(0, 1)), 1e-12)
	assert.InDelta(t, imag(wantOff), imag(rho.At(0, 1)), 1e-12)
}

func TestStep_PureDecayTowardGround(t *testing.T) {
	// Pure excited state under spontaneous emission decays toward the
	// ground state.
	rho := NewDensity(0, 0, 0, 1)
	jumps := []Jump{{L: Lowering(), Rate: 1.0}}

	for step := 0; step < 2000; step++ {
		Step(rho, Zero(), jumps, 0.005)
	}

	assert.Greater(t, real(rho.At(0, 0)), 0.95, "ground population should dominate after decay")
	assert.Less(t, real(rho.At(1, 1)), 0.05)
}

func TestNormalize_ClipsNegativePopulations(t *testing.T) {
	rho := NewDensity(complex(1.02, 0), 0, 0, complex(-0.02, 0))
	rho.Normalize()

	assert.InDelta(t, 1.0, real(rho.At(0, 0)), 1e-12)
	assert.InDelta(t, 0.0, real(rho.At(1, 1)), 1e-12)
	assert.InDelta(t, 1.0, real(rho.Trace()), 1e-12)
}

func TestNormalize_ZeroTraceSkipsRenormalization(t *testing.T) {
	rho := NewDensity(0, 0, 0, 0)
	rho.Normalize()

	// Degenerate state is left as-is rather than divided by zero.
	require.False(t, math.IsNaN(real(rho.At(0, 0))))
	assert.InDelta(t, 0.0, real(rho.Trace()), 1e-12)
}
