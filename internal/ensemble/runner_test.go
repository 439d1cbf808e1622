package ensemble

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundups/pqn-detector/internal/detector"
)

func sweepConfig() detector.Config {
	cfg := detector.DefaultConfig()
	cfg.Steps = 80
	cfg.Consec = 1
	cfg.DetFloor = 1e6 // force deterministic event production
	return cfg
}

func TestRunner_SweepCoversScriptsTimesSeeds(t *testing.T) {
	spec := Spec{
		Base:    sweepConfig(),
		Scripts: []string{"^&#.", "...."},
		Seeds:   []int64{1, 2, 3},
	}

	summary, err := NewRunner(2, zerolog.Nop()).Run(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, summary.Runs, 6)

	for _, run := range summary.Runs {
		assert.Empty(t, run.Err)
		assert.Equal(t, 80, run.Steps)
		assert.Greater(t, run.Events, 0)
	}
}

func TestRunner_FlagTotalsAggregateRuns(t *testing.T) {
	spec := Spec{
		Base:    sweepConfig(),
		Scripts: []string{"."},
		Seeds:   []int64{1, 2},
	}

	summary, err := NewRunner(1, zerolog.Nop()).Run(context.Background(), spec)
	require.NoError(t, err)

	want := 0
	for _, run := range summary.Runs {
		want += run.FlagCounts[detector.FlagPQNDetected]
	}
	assert.Equal(t, want, summary.FlagTotals[detector.FlagPQNDetected])
	assert.Greater(t, want, 0)
}

func TestRunner_ResultsStableAcrossWorkerCounts(t *testing.T) {
	spec := Spec{
		Base:    sweepConfig(),
		Scripts: []string{"^", "&", "#"},
		Seeds:   []int64{7, 8},
	}

	serial, err := NewRunner(1, zerolog.Nop()).Run(context.Background(), spec)
	require.NoError(t, err)
	parallel, err := NewRunner(6, zerolog.Nop()).Run(context.Background(), spec)
	require.NoError(t, err)

	require.Len(t, parallel.Runs, len(serial.Runs))
	for i := range serial.Runs {
		assert.Equal(t, serial.Runs[i], parallel.Runs[i], "run order and content must be stable")
	}
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"no scripts", func(s *Spec) { s.Scripts = nil }},
		{"no seeds", func(s *Spec) { s.Seeds = nil }},
		{"bad script", func(s *Spec) { s.Scripts = []string{"abc"} }},
		{"bad base config", func(s *Spec) { s.Base.Steps = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := Spec{
				Base:    sweepConfig(),
				Scripts: []string{"."},
				Seeds:   []int64{1},
			}
			tt.mutate(&spec)
			assert.Error(t, spec.Validate())
		})
	}
}
