// Package detector implements the PQN simulation driver: per-step operator
// selection, noise injection, Lindblad stepping, metric extraction, flag
// evaluation, and the optional paradox guardrail.
package detector

import (
	"fmt"

	"github.com/foundups/pqn-detector/internal/resonance"
)

// Config is the full configuration bundle for one detector run.
type Config struct {
	// Steps bounds the run; termination is purely step-count based apart
	// from context cancellation.
	Steps int `json:"steps"`
	// Dt is the nominal integration time step in seconds. The effective
	// per-step increment jitters sinusoidally around this value.
	Dt float64 `json:"dt"`

	// Coupling constants for the per-symbol generators.
	KE float64 `json:"k_e"` // entangling drive strength ('^')
	KA float64 `json:"k_a"` // cohering drive strength ('&')
	GD float64 `json:"g_d"` // baseline detuning gain (always on)
	// DistortRate is the dephasing jump rate applied by '#'.
	DistortRate float64 `json:"distort_rate"`

	// GeomWindow sizes the covariance-determinant window (differenced
	// samples); the determinant becomes available after GeomWindow+1 steps.
	GeomWindow int `json:"geom_window"`
	// ResWindow sizes the FFT window for resonance detection.
	ResWindow int `json:"res_window"`

	// NoiseH and NoiseL are the Gaussian perturbation stds applied per step
	// to the Hamiltonian (re-Hermitized afterwards) and the jump operators.
	NoiseH float64 `json:"noise_h"`
	NoiseL float64 `json:"noise_l"`
	// JitterScale modulates the sinusoidal time-step jitter; 0 disables it.
	JitterScale float64 `json:"jitter_scale"`

	// DetK and DetFloor parametrize the adaptive determinant threshold
	// (median + k·MAD, floored at DetFloor while history is short).
	DetK     float64 `json:"det_k"`
	DetFloor float64 `json:"det_floor"`

	// Bands are the target resonance frequencies in Hz; BandTol is the half
	// width of the acceptance window around each; TopPeaks bounds the
	// number of dominant bins reported per event.
	Bands    []float64 `json:"bands"`
	BandTol  float64   `json:"band_tol"`
	TopPeaks int       `json:"top_peaks"`

	// Consec is the number of consecutive below-threshold determinants
	// required before PQN_DETECTED fires.
	Consec int `json:"consec"`

	// Seed drives the noise generator (and any seeded symbol source built
	// alongside this config).
	Seed int64 `json:"seed"`

	// Guardrail, when enabled, arms a countdown after PARADOX_RISK that
	// biases subsequent symbol selection away from '^' toward '&'.
	Guardrail       bool `json:"guardrail"`
	GuardrailWindow int  `json:"guardrail_window"`

	// Paradox thresholds: PARADOX_RISK requires low determinant, purity
	// below ParadoxPurityMax and entropy above ParadoxEntropyMin.
	ParadoxPurityMax  float64 `json:"paradox_purity_max"`
	ParadoxEntropyMin float64 `json:"paradox_entropy_min"`
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		Steps:             2000,
		Dt:                0.01,
		KE:                0.35,
		KA:                0.25,
		GD:                1.0,
		DistortRate:       0.3,
		GeomWindow:        10,
		ResWindow:         512,
		NoiseH:            0.01,
		NoiseL:            0.005,
		JitterScale:       0.05,
		DetK:              3.0,
		DetFloor:          1e-10,
		Bands:             []float64{resonance.DuResonanceHz},
		BandTol:           0.15,
		TopPeaks:          5,
		Consec:            3,
		Seed:              42,
		Guardrail:         false,
		GuardrailWindow:   64,
		ParadoxPurityMax:  0.6,
		ParadoxEntropyMin: 0.5,
	}
}

// Validate rejects configurations the numeric core cannot run safely.
// The original detector accepted anything and let degenerate parameters
// produce garbage silently; here invalid configuration is the one visible
// failure mode the unit has, so it is reported up front.
func (c *Config) Validate() error {
	if c.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", c.Steps)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if c.GeomWindow < 2 {
		return fmt.Errorf("geom_window must be at least 2, got %d", c.GeomWindow)
	}
	if c.ResWindow <= 1 {
		return fmt.Errorf("res_window must be greater than 1, got %d", c.ResWindow)
	}
	if c.NoiseH < 0 || c.NoiseL < 0 {
		return fmt.Errorf("noise stds must be non-negative, got noise_h=%g noise_l=%g", c.NoiseH, c.NoiseL)
	}
	if c.JitterScale < 0 || c.JitterScale >= 1 {
		return fmt.Errorf("jitter_scale must be in [0, 1), got %g", c.JitterScale)
	}
	if c.DetK < 0 {
		return fmt.Errorf("det_k must be non-negative, got %g", c.DetK)
	}
	if c.DetFloor <= 0 {
		return fmt.Errorf("det_floor must be positive, got %g", c.DetFloor)
	}
	if len(c.Bands) > 0 && c.BandTol <= 0 {
		return fmt.Errorf("band_tol must be positive when bands are configured, got %g", c.BandTol)
	}
	if c.TopPeaks <= 0 {
		return fmt.Errorf("top_peaks must be positive, got %d", c.TopPeaks)
	}
	if c.Consec < 1 {
		return fmt.Errorf("consec must be at least 1, got %d", c.Consec)
	}
	if c.Guardrail && c.GuardrailWindow <= 0 {
		return fmt.Errorf("guardrail_window must be positive when the guardrail is enabled, got %d", c.GuardrailWindow)
	}
	if c.DistortRate < 0 {
		return fmt.Errorf("distort_rate must be non-negative, got %g", c.DistortRate)
	}
	if c.ParadoxPurityMax <= 0 || c.ParadoxPurityMax > 1 {
		return fmt.Errorf("paradox_purity_max must be in (0, 1], got %g", c.ParadoxPurityMax)
	}
	if c.ParadoxEntropyMin < 0 {
		return fmt.Errorf("paradox_entropy_min must be non-negative, got %g", c.ParadoxEntropyMin)
	}
	return nil
}
