package detector

import (
	"context"
	"math"
	"math/cmplx"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/foundups/pqn-detector/internal/geometry"
	"github.com/foundups/pqn-detector/internal/quantum"
	"github.com/foundups/pqn-detector/internal/resonance"
	"github.com/foundups/pqn-detector/internal/symbols"
)

// jitterFreqHz is the frequency of the sinusoidal time-step jitter.
const jitterFreqHz = 0.5

// Driver runs the PQN detection loop. A driver is immutable after
// construction and may be reused for multiple runs; each run owns its own
// density matrix, meters and noise generator.
type Driver struct {
	cfg Config
	log zerolog.Logger
}

// New validates the configuration and creates a driver.
func New(cfg Config, log zerolog.Logger) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Driver{
		cfg: cfg,
		log: log.With().Str("component", "detector").Logger(),
	}, nil
}

// Config returns the driver's configuration.
func (d *Driver) Config() Config {
	return d.cfg
}

// Run executes the simulation loop to completion (or until ctx is
// cancelled, checked between steps). Only steps that trigger at least one
// flag are recorded as events; all other steps advance silently.
func (d *Driver) Run(ctx context.Context, src symbols.Source) (*Result, error) {
	return d.RunWithCallback(ctx, src, nil)
}

// RunWithCallback is Run with a per-event callback, invoked synchronously
// as each event is recorded. Used by the streaming API.
func (d *Driver) RunWithCallback(ctx context.Context, src symbols.Source, onEvent func(Event)) (*Result, error) {
	cfg := d.cfg
	start := time.Now()

	rho := quantum.DefaultState()
	geom := geometry.NewMeter(cfg.GeomWindow)
	res := resonance.NewMeter(cfg.ResWindow)
	rng := rand.New(rand.NewSource(cfg.Seed))

	result := &Result{
		FlagCounts: make(map[string]int),
	}

	var (
		t         float64
		pqnStreak int
		guardLeft int
	)

	for step := 0; step < cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			result.Steps = step
			result.Elapsed = time.Since(start)
			d.log.Warn().Int("step", step).Msg("Run cancelled")
			return result, ctx.Err()
		default:
		}

		dtStep := cfg.Dt * (1 + cfg.JitterScale*math.Sin(2*math.Pi*jitterFreqHz*t))

		sym := src.Next(t, step)
		if guardLeft > 0 {
			guardLeft--
			if sym == symbols.Entangle {
				sym = symbols.Cohere
			}
		}

		h, jumps := d.generators(sym)
		h = perturbHermitian(h, rng, cfg.NoiseH)
		jumps = perturbJumps(jumps, rng, cfg.NoiseL)

		quantum.Step(rho, h, jumps, dtStep)
		obs := quantum.Observe(rho)

		geom.Push(obs.Coherence, obs.Entanglement)
		res.Push(obs.Coherence)

		det, detReady := geom.Det()
		thr := cfg.DetFloor
		if detReady {
			geom.Record(det)
			thr = geom.Threshold(cfg.DetK, cfg.DetFloor)
		}

		peaks, _ := res.Peaks(cfg.Dt, cfg.TopPeaks, cfg.Bands, cfg.BandTol)

		lowDet := detReady && math.Abs(det) < thr

		var flags []string
		if lowDet {
			pqnStreak++
			if pqnStreak >= cfg.Consec {
				flags = append(flags, FlagPQNDetected)
				pqnStreak = 0
			}
		} else {
			pqnStreak = 0
		}

		if peaks.Hit() {
			flags = append(flags, FlagResonanceHit)
		}

		if lowDet && obs.Purity < cfg.ParadoxPurityMax && obs.Entropy > cfg.ParadoxEntropyMin {
			flags = append(flags, FlagParadoxRisk)
			if cfg.Guardrail && guardLeft == 0 {
				guardLeft = cfg.GuardrailWindow
				d.log.Debug().Int("step", step).Int("window", guardLeft).Msg("Guardrail armed")
			}
		}

		t += dtStep

		if len(flags) == 0 {
			continue
		}

		event := Event{
			T:         t,
			Step:      step,
			Sym:       sym.String(),
			Coherence: obs.Coherence,
			Entangle:  obs.Entanglement,
			BlochNorm: obs.BlochNorm,
			Purity:    obs.Purity,
			Entropy:   obs.Entropy,
			DetThr:    thr,
			Peaks:     peaks,
			Flags:     flags,
		}
		if detReady {
			detCopy := det
			event.Det = &detCopy
		}

		result.Events = append(result.Events, event)
		for _, f := range flags {
			result.FlagCounts[f]++
		}
		if onEvent != nil {
			onEvent(event)
		}
	}

	result.Steps = cfg.Steps
	result.Elapsed = time.Since(start)
	d.log.Info().
		Int("steps", result.Steps).
		Int("events", len(result.Events)).
		Dur("elapsed", result.Elapsed).
		Msg("Run complete")
	return result, nil
}

// generators maps the active symbol to its Hamiltonian and jump set.
// The baseline detuning gD·σz/2 is always on; '^' adds a σy drive, '&' adds
// a σz drive, '#' adds a dephasing jump, '.' adds nothing.
func (d *Driver) generators(sym symbols.Symbol) (quantum.Operator, []quantum.Jump) {
	half := complex(d.cfg.GD/2, 0)
	h00 := half
	h11 := -half
	var h01, h10 complex128

	var jumps []quantum.Jump

	switch sym {
	case symbols.Entangle:
		// kE·σy contributes ∓i·kE on the off-diagonals.
		h01 += complex(0, -d.cfg.KE)
		h10 += complex(0, d.cfg.KE)
	case symbols.Cohere:
		h00 += complex(d.cfg.KA, 0)
		h11 -= complex(d.cfg.KA, 0)
	case symbols.Distort:
		jumps = append(jumps, quantum.Jump{L: quantum.PauliZ(), Rate: d.cfg.DistortRate})
	case symbols.Rest:
		// Baseline Hamiltonian only.
	}

	return quantum.NewOperator(h00, h01, h10, h11), jumps
}

// perturbHermitian adds Gaussian noise to the Hamiltonian and re-enforces
// Hermiticity by construction: real diagonal perturbations and a conjugate
// off-diagonal pair.
func perturbHermitian(h quantum.Operator, rng *rand.Rand, std float64) quantum.Operator {
	if std <= 0 {
		return h
	}
	off := h.At(0, 1) + complex(rng.NormFloat64()*std, rng.NormFloat64()*std)
	return quantum.NewOperator(
		complex(real(h.At(0, 0))+rng.NormFloat64()*std, 0),
		off,
		cmplx.Conj(off),
		complex(real(h.At(1, 1))+rng.NormFloat64()*std, 0),
	)
}

// perturbJumps adds complex Gaussian noise to each jump operator entry.
// Jump operators carry no Hermiticity constraint.
func perturbJumps(jumps []quantum.Jump, rng *rand.Rand, std float64) []quantum.Jump {
	if std <= 0 || len(jumps) == 0 {
		return jumps
	}
	out := make([]quantum.Jump, len(jumps))
	for i, j := range jumps {
		entries := [4]complex128{}
		for k := 0; k < 4; k++ {
			entries[k] = j.L.At(k/2, k%2) + complex(rng.NormFloat64()*std, rng.NormFloat64()*std)
		}
		out[i] = quantum.Jump{
			L:    quantum.NewOperator(entries[0], entries[1], entries[2], entries[3]),
			Rate: j.Rate,
		}
	}
	return out
}
