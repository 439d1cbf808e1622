package resonance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeter_PeaksUnavailableUntilWindowFull(t *testing.T) {
	m := NewMeter(64)

	for i := 0; i < 63; i++ {
		m.Push(math.Sin(float64(i)))
		_, ok := m.Peaks(0.01, 5, []float64{DuResonanceHz}, 0.2)
		assert.False(t, ok, "peaks should be unavailable with %d samples", i+1)
	}

	m.Push(0)
	_, ok := m.Peaks(0.01, 5, []float64{DuResonanceHz}, 0.2)
	assert.True(t, ok)
}

func TestMeter_DetectsInjectedTone(t *testing.T) {
	const (
		win = 512
		dt  = 0.01 // 100 Hz sampling
	)
	m := NewMeter(win)

	for i := 0; i < win; i++ {
		tSec := float64(i) * dt
		m.Push(math.Sin(2 * math.Pi * DuResonanceHz * tSec))
	}

	result, ok := m.Peaks(dt, 5, []float64{DuResonanceHz}, 0.2)
	require.True(t, ok)
	require.NotNil(t, result)

	assert.True(t, result.Hit(), "7.05 Hz tone should register as a band hit")
	require.NotEmpty(t, result.TopPeaks)
	assert.InDelta(t, DuResonanceHz, result.TopPeaks[0].Frequency, 0.2,
		"strongest bin should sit on the injected tone")
}

func TestMeter_OffBandToneDoesNotHit(t *testing.T) {
	const (
		win = 512
		dt  = 0.01
	)
	m := NewMeter(win)

	for i := 0; i < win; i++ {
		tSec := float64(i) * dt
		m.Push(math.Sin(2 * math.Pi * 23.0 * tSec))
	}

	result, ok := m.Peaks(dt, 5, []float64{DuResonanceHz}, 0.2)
	require.True(t, ok)
	assert.False(t, result.Hit())
	assert.InDelta(t, 23.0, result.TopPeaks[0].Frequency, 0.2)
}

func TestMeter_ConstantSeriesIsSilent(t *testing.T) {
	m := NewMeter(128)

	for i := 0; i < 128; i++ {
		m.Push(0.75)
	}

	result, ok := m.Peaks(0.01, 5, []float64{DuResonanceHz}, 0.2)
	require.True(t, ok)
	assert.False(t, result.Hit(), "mean-centered constant series has no spectral energy")
}

func TestMeter_TopKBound(t *testing.T) {
	m := NewMeter(64)

	for i := 0; i < 64; i++ {
		m.Push(math.Sin(float64(i)) + 0.5*math.Cos(3*float64(i)))
	}

	result, ok := m.Peaks(0.05, 3, nil, 0.2)
	require.True(t, ok)
	assert.Len(t, result.TopPeaks, 3)
	for i := 1; i < len(result.TopPeaks); i++ {
		assert.GreaterOrEqual(t, result.TopPeaks[i-1].Magnitude, result.TopPeaks[i].Magnitude)
	}
}
