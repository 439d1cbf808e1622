// Package geometry implements the rolling covariance-determinant meter the
// detector uses to flag geometric anomalies. The meter keeps a bounded
// sliding window of (coherence, entanglement) pairs, differentiates both
// series, and reports the determinant of their 2x2 empirical covariance
// matrix together with a robust adaptive threshold.
package geometry

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// minThresholdHistory is the number of determinant samples required before
// the median+MAD threshold replaces the configured floor.
const minThresholdHistory = 50

// madScale converts a median absolute deviation into a robust standard
// deviation estimate for normally distributed data.
const madScale = 1.4826

// Meter maintains a sliding window of (coherence, entanglement) pairs of
// fixed capacity and derives the rolling covariance determinant of the
// differenced series. Not safe for concurrent use; the simulation loop is
// single-threaded by design.
type Meter struct {
	win       int
	coherence []float64
	entangle  []float64
	history   []float64 // |det| samples for the adaptive threshold
}

// NewMeter creates a meter with the given window size. The window counts
// samples of the differenced series, so Det becomes available after win+1
// pushes.
func NewMeter(win int) *Meter {
	return &Meter{
		win:       win,
		coherence: make([]float64, 0, win+1),
		entangle:  make([]float64, 0, win+1),
	}
}

// Push appends a (coherence, entanglement) pair, evicting the oldest pair
// once the window holds win+1 samples.
func (m *Meter) Push(coherence, entanglement float64) {
	m.coherence = append(m.coherence, coherence)
	m.entangle = append(m.entangle, entanglement)
	if len(m.coherence) > m.win+1 {
		m.coherence = m.coherence[1:]
		m.entangle = m.entangle[1:]
	}
}

// Ready reports whether the window is full enough to produce a determinant.
func (m *Meter) Ready() bool {
	return len(m.coherence) >= m.win+1
}

// Det returns the determinant of the 2x2 covariance matrix of the first
// differences within the window. The second return is false while the
// window has fewer than win+1 samples; a window smaller than 2 never
// becomes ready, since its differenced series has no variance.
//
// When either differenced series has zero variance the covariance matrix is
// treated as diagonal (zero cross term) so the determinant degrades to the
// product of variances instead of tripping on a singular matrix.
func (m *Meter) Det() (float64, bool) {
	if !m.Ready() {
		return 0, false
	}

	dc := diff(m.coherence)
	de := diff(m.entangle)

	// A single difference has no variance; stat.Variance of one sample is
	// NaN, which would poison the threshold history downstream.
	if len(dc) < 2 {
		return 0, false
	}

	varC := stat.Variance(dc, nil)
	varE := stat.Variance(de, nil)

	if varC == 0 || varE == 0 {
		return varC * varE, true
	}

	cov := stat.Covariance(dc, de, nil)
	return varC*varE - cov*cov, true
}

// Record appends a determinant sample to the threshold history. The driver
// calls this once per ready step with the determinant magnitude.
func (m *Meter) Record(det float64) {
	m.history = append(m.history, math.Abs(det))
}

// Threshold computes the adaptive detection threshold median + k·MAD over
// the recorded determinant history. While the history holds fewer than 50
// samples the fixed floor is returned instead.
func (m *Meter) Threshold(k, floor float64) float64 {
	if len(m.history) < minThresholdHistory {
		return floor
	}

	med := median(m.history)

	deviations := make([]float64, len(m.history))
	for i, v := range m.history {
		deviations[i] = math.Abs(v - med)
	}
	mad := median(deviations)

	thr := med + k*madScale*mad
	if thr < floor {
		return floor
	}
	return thr
}

// diff returns the first differences of x.
func diff(x []float64) []float64 {
	d := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		d[i-1] = x[i] - x[i-1]
	}
	return d
}

// median returns the empirical median of x without mutating it.
func median(x []float64) float64 {
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
