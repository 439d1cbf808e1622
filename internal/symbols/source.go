// Package symbols defines the operator-selection alphabet of the detector
// and the pluggable sources that drive it. A source decides which symbol
// acts on the density matrix at each simulation step; implementations range
// from fixed deterministic scripts to seeded random draws.
package symbols

import (
	"fmt"
	"math/rand"
	"strings"
)

// Symbol selects which operator set acts at a simulation step.
type Symbol byte

const (
	// Entangle drives the off-diagonal terms of the density matrix.
	Entangle Symbol = '^'
	// Cohere reinforces the diagonal axis, stabilizing populations.
	Cohere Symbol = '&'
	// Distort applies a dephasing jump operator.
	Distort Symbol = '#'
	// Rest applies only the baseline Hamiltonian.
	Rest Symbol = '.'
)

// Alphabet is the full symbol set in canonical order.
var Alphabet = []Symbol{Entangle, Cohere, Distort, Rest}

// Valid reports whether s is part of the alphabet.
func (s Symbol) Valid() bool {
	switch s {
	case Entangle, Cohere, Distort, Rest:
		return true
	}
	return false
}

func (s Symbol) String() string {
	return string(byte(s))
}

// Source yields the active symbol for each simulation step. Implementations
// must be deterministic for a given construction (script or seed) so runs
// are reproducible; they are driven from a single goroutine and carry no
// shared mutable state.
type Source interface {
	// Next returns the symbol acting at simulated time t, step index step.
	Next(t float64, step int) Symbol
}

// ScriptSource cycles through a fixed symbol script.
type ScriptSource struct {
	script []Symbol
}

// NewScriptSource parses a script string such as "^^#." into a source.
// Unknown characters are rejected.
func NewScriptSource(script string) (*ScriptSource, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil, fmt.Errorf("symbol script must not be empty")
	}

	parsed := make([]Symbol, len(script))
	for i := 0; i < len(script); i++ {
		s := Symbol(script[i])
		if !s.Valid() {
			return nil, fmt.Errorf("invalid symbol %q in script %q", script[i], script)
		}
		parsed[i] = s
	}
	return &ScriptSource{script: parsed}, nil
}

// Next returns the script entry for the step, cycling past the end.
func (s *ScriptSource) Next(_ float64, step int) Symbol {
	return s.script[step%len(s.script)]
}

// Script returns the script as a string.
func (s *ScriptSource) Script() string {
	var b strings.Builder
	for _, sym := range s.script {
		b.WriteByte(byte(sym))
	}
	return b.String()
}

// RandomSource draws uniformly from an alphabet with a seeded generator.
type RandomSource struct {
	rng      *rand.Rand
	alphabet []Symbol
}

// NewRandomSource creates a seeded random source over the given alphabet,
// defaulting to the full alphabet when none is supplied.
func NewRandomSource(seed int64, alphabet []Symbol) *RandomSource {
	if len(alphabet) == 0 {
		alphabet = Alphabet
	}
	return &RandomSource{
		rng:      rand.New(rand.NewSource(seed)),
		alphabet: alphabet,
	}
}

// Next draws the next symbol.
func (s *RandomSource) Next(_ float64, _ int) Symbol {
	return s.alphabet[s.rng.Intn(len(s.alphabet))]
}
