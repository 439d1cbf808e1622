// Package resonance implements the FFT-based resonance meter. It keeps a
// bounded sliding window of a single scalar series and, once full, reports
// the dominant frequency components together with any spectral energy found
// inside the configured target bands (7.05 Hz by default, the detector's
// "Du resonance" line).
package resonance

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
)

// DuResonanceHz is the default target band checked by the meter.
const DuResonanceHz = 7.05

// hitFactor is how far above the mean spectral magnitude an in-band bin must
// rise to count as a resonance hit.
const hitFactor = 4.0

// hitMagnitudeFloor rejects hits in a numerically silent spectrum.
const hitMagnitudeFloor = 1e-9

// Peak is a single spectral component: its frequency in Hz and its FFT
// magnitude.
type Peak struct {
	Frequency float64 `json:"freq"`
	Magnitude float64 `json:"mag"`
}

// Result carries the outcome of one spectral analysis pass.
type Result struct {
	// TopPeaks are the k largest-magnitude frequency bins, strongest first.
	TopPeaks []Peak `json:"top"`
	// BandHits are components found within the tolerance window around a
	// target band.
	BandHits []Peak `json:"hits"`
}

// Hit reports whether any target-band energy was found.
func (r *Result) Hit() bool {
	return r != nil && len(r.BandHits) > 0
}

// Meter maintains the sliding scalar window and a reusable FFT plan.
// Not safe for concurrent use.
type Meter struct {
	win    int
	series []float64
	fft    *fourier.FFT
	coeffs []complex128
}

// NewMeter creates a meter with the given window size.
func NewMeter(win int) *Meter {
	return &Meter{
		win:    win,
		series: make([]float64, 0, win),
		fft:    fourier.NewFFT(win),
		coeffs: make([]complex128, win/2+1),
	}
}

// Push appends a sample, evicting the oldest once the window is full.
func (m *Meter) Push(value float64) {
	m.series = append(m.series, value)
	if len(m.series) > m.win {
		m.series = m.series[1:]
	}
}

// Ready reports whether the window holds win samples.
func (m *Meter) Ready() bool {
	return len(m.series) >= m.win
}

// Peaks analyses the window. The second return is false until the window is
// full. dt is the sampling interval in seconds; k bounds the number of top
// peaks returned; bands lists target frequencies in Hz and tol the half
// width of the acceptance window around each band.
//
// The series is mean-centered before the FFT so the DC bin does not mask
// low-frequency structure; the DC bin itself is excluded from peak ranking.
func (m *Meter) Peaks(dt float64, k int, bands []float64, tol float64) (*Result, bool) {
	if !m.Ready() {
		return nil, false
	}

	mean := 0.0
	for _, v := range m.series {
		mean += v
	}
	mean /= float64(len(m.series))

	centered := make([]float64, len(m.series))
	for i, v := range m.series {
		centered[i] = v - mean
	}

	m.coeffs = m.fft.Coefficients(m.coeffs, centered)

	sampleRate := 1.0 / dt
	peaks := make([]Peak, 0, len(m.coeffs)-1)
	meanMag := 0.0
	for i := 1; i < len(m.coeffs); i++ {
		mag := magnitude(m.coeffs[i])
		freq := m.fft.Freq(i) * sampleRate
		peaks = append(peaks, Peak{Frequency: freq, Magnitude: mag})
		meanMag += mag
	}
	meanMag /= float64(len(peaks))

	// A band hit requires the in-band bin to stand clear of the spectral
	// noise floor, not merely to be non-zero.
	hitThreshold := hitFactor * meanMag
	if hitThreshold < hitMagnitudeFloor {
		hitThreshold = hitMagnitudeFloor
	}

	hits := make([]Peak, 0, 4)
	for _, p := range peaks {
		for _, band := range bands {
			if p.Frequency >= band-tol && p.Frequency <= band+tol && p.Magnitude >= hitThreshold {
				hits = append(hits, p)
				break
			}
		}
	}

	sort.Slice(peaks, func(i, j int) bool { return peaks[i].Magnitude > peaks[j].Magnitude })
	if k > 0 && len(peaks) > k {
		peaks = peaks[:k]
	}

	return &Result{TopPeaks: peaks, BandHits: hits}, true
}

func magnitude(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
