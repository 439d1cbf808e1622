package detector

import (
	"time"

	"github.com/foundups/pqn-detector/internal/resonance"
)

// Flag values attached to events.
const (
	// FlagPQNDetected marks a determinant magnitude below the adaptive
	// threshold for the configured number of consecutive steps.
	FlagPQNDetected = "PQN_DETECTED"
	// FlagResonanceHit marks target-band spectral energy at this step.
	FlagResonanceHit = "RESONANCE_HIT"
	// FlagParadoxRisk marks simultaneous low determinant, low purity and
	// high entropy.
	FlagParadoxRisk = "PARADOX_RISK"
)

// Event is the immutable record produced for a step on which at least one
// flag condition triggered. Field names mirror the journal/CLI JSON output.
type Event struct {
	T         float64           `json:"t"`
	Step      int               `json:"step"`
	Sym       string            `json:"sym"`
	Coherence float64           `json:"C"`
	Entangle  float64           `json:"E"`
	BlochNorm float64           `json:"rnorm"`
	Purity    float64           `json:"purity"`
	Entropy   float64           `json:"S"`
	Det       *float64          `json:"detg"` // nil while the geometry window is filling
	DetThr    float64           `json:"det_thr"`
	Peaks     *resonance.Result `json:"peaks"` // nil while the resonance window is filling
	Flags     []string          `json:"flags"`
}

// HasFlag reports whether the event carries the given flag.
func (e *Event) HasFlag(flag string) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Result is the outcome of a completed (or cancelled) run.
type Result struct {
	Events     []Event        `json:"events"`
	Steps      int            `json:"steps"`
	FlagCounts map[string]int `json:"flag_counts"`
	Elapsed    time.Duration  `json:"elapsed_ns"`
}
