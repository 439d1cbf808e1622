package quantum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObserve_PureGroundState(t *testing.T) {
	obs := Observe(GroundState())

	assert.InDelta(t, 0.0, obs.Coherence, 1e-12)
	assert.InDelta(t, 0.0, obs.Entanglement, 1e-12)
	assert.InDelta(t, 1.0, obs.BlochZ, 1e-12)
	assert.InDelta(t, 1.0, obs.BlochNorm, 1e-12)
	assert.InDelta(t, 1.0, obs.Purity, 1e-12)
	assert.InDelta(t, 0.0, obs.Entropy, 1e-9)
}

func TestObserve_MaximallyMixedState(t *testing.T) {
	obs := Observe(NewDensity(0.5, 0, 0, 0.5))

	assert.InDelta(t, 0.5, obs.Coherence, 1e-12)
	assert.InDelta(t, 0.0, obs.BlochNorm, 1e-12)
	assert.InDelta(t, 0.5, obs.Purity, 1e-12)
	assert.InDelta(t, math.Log(2), obs.Entropy, 1e-9)
}

func TestObserve_OffDiagonalMagnitude(t *testing.T) {
	rho := NewDensity(0.5, complex(0.3, 0.4), complex(0.3, -0.4), 0.5)
	obs := Observe(rho)

	assert.InDelta(t, 0.5, obs.Entanglement, 1e-12)
	assert.InDelta(t, 0.6, obs.BlochX, 1e-12)
	assert.InDelta(t, -0.8, obs.BlochY, 1e-12)
}

func TestObserve_Idempotent(t *testing.T) {
	rho := DefaultState()

	first := Observe(rho)
	second := Observe(rho)

	assert.Equal(t, first, second)
}
