package detector

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundups/pqn-detector/internal/symbols"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Steps = 100
	cfg.NoiseH = 0
	cfg.NoiseL = 0
	return cfg
}

func mustScript(t *testing.T, script string) symbols.Source {
	t.Helper()
	src, err := symbols.NewScriptSource(script)
	require.NoError(t, err)
	return src
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero steps", func(c *Config) { c.Steps = 0 }},
		{"negative dt", func(c *Config) { c.Dt = -0.01 }},
		{"zero geometry window", func(c *Config) { c.GeomWindow = 0 }},
		{"single-sample geometry window", func(c *Config) { c.GeomWindow = 1 }},
		{"resonance window too small", func(c *Config) { c.ResWindow = 1 }},
		{"negative noise", func(c *Config) { c.NoiseH = -1 }},
		{"jitter out of range", func(c *Config) { c.JitterScale = 1.5 }},
		{"zero consec", func(c *Config) { c.Consec = 0 }},
		{"guardrail without window", func(c *Config) { c.Guardrail = true; c.GuardrailWindow = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, zerolog.Nop())
			assert.Error(t, err)
		})
	}
}

func TestRun_RestScriptProducesNoResonanceBeforeWindowFills(t *testing.T) {
	cfg := testConfig() // 100 steps, 512-sample resonance window
	d, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	result, err := d.Run(context.Background(), mustScript(t, "...."))
	require.NoError(t, err)
	require.Equal(t, 100, result.Steps)

	assert.Zero(t, result.FlagCounts[FlagResonanceHit])
	for _, ev := range result.Events {
		assert.False(t, ev.HasFlag(FlagResonanceHit))
		assert.Nil(t, ev.Peaks)
	}
}

func TestRun_ForcedThresholdFlagsEveryReadyStep(t *testing.T) {
	cfg := testConfig()
	cfg.Consec = 1
	cfg.DetFloor = 1e6

	d, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	result, err := d.Run(context.Background(), mustScript(t, "."))
	require.NoError(t, err)

	// The determinant becomes available once GeomWindow+1 samples are
	// pushed, i.e. from step index GeomWindow onward.
	wantEvents := cfg.Steps - cfg.GeomWindow
	assert.Equal(t, wantEvents, result.FlagCounts[FlagPQNDetected])

	for _, ev := range result.Events {
		assert.True(t, ev.HasFlag(FlagPQNDetected))
		require.NotNil(t, ev.Det)
		assert.Less(t, *ev.Det, 1e6)
	}
}

func TestRun_DeterministicForSeed(t *testing.T) {
	cfg := testConfig()
	cfg.NoiseH = 0.01
	cfg.NoiseL = 0.005
	cfg.Consec = 1
	cfg.DetFloor = 1e6 // force events so there is output to compare

	run := func() *Result {
		d, err := New(cfg, zerolog.Nop())
		require.NoError(t, err)
		result, err := d.Run(context.Background(), mustScript(t, "^&#."))
		require.NoError(t, err)
		return result
	}

	a := run()
	b := run()

	require.Equal(t, len(a.Events), len(b.Events))
	for i := range a.Events {
		assert.Equal(t, a.Events[i].Step, b.Events[i].Step)
		assert.Equal(t, a.Events[i].Coherence, b.Events[i].Coherence)
		assert.Equal(t, a.Events[i].Flags, b.Events[i].Flags)
	}
}

func TestRun_ContextCancellationStopsBetweenSteps(t *testing.T) {
	cfg := testConfig()
	cfg.Steps = 1_000_000

	d, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := d.Run(ctx, mustScript(t, "."))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, result.Steps, cfg.Steps)
}

func TestRun_GuardrailBiasesSelectionAwayFromEntangle(t *testing.T) {
	cfg := testConfig()
	cfg.Consec = 1
	cfg.DetFloor = 1e6 // every ready step is a low-determinant step
	cfg.Guardrail = true
	cfg.GuardrailWindow = 50
	cfg.ParadoxPurityMax = 1.0
	cfg.ParadoxEntropyMin = 0.0

	d, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	result, err := d.Run(context.Background(), mustScript(t, "^"))
	require.NoError(t, err)
	require.NotEmpty(t, result.Events)

	// The first paradox event arms the guardrail; from the next step on the
	// entangling symbol is substituted with the cohering one.
	first := result.Events[0]
	assert.True(t, first.HasFlag(FlagParadoxRisk))
	assert.Equal(t, "^", first.Sym)

	substituted := 0
	for _, ev := range result.Events[1:] {
		if ev.Sym == symbols.Cohere.String() {
			substituted++
		}
	}
	assert.Greater(t, substituted, 0, "guardrail should substitute '^' with '&'")
}

func TestRun_FlagCountsMatchEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Consec = 1
	cfg.DetFloor = 1e6

	d, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	result, err := d.Run(context.Background(), mustScript(t, "^&#."))
	require.NoError(t, err)

	counts := make(map[string]int)
	for _, ev := range result.Events {
		for _, f := range ev.Flags {
			counts[f]++
		}
	}
	assert.Equal(t, counts, result.FlagCounts)
}

func TestRunWithCallback_InvokedPerEvent(t *testing.T) {
	cfg := testConfig()
	cfg.Consec = 1
	cfg.DetFloor = 1e6

	d, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	var seen int
	result, err := d.RunWithCallback(context.Background(), mustScript(t, "."), func(Event) {
		seen++
	})
	require.NoError(t, err)
	assert.Equal(t, len(result.Events), seen)
}
