package analysis

import (
	"errors"
	"math/bits"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// PowerSpectrum returns the magnitude of the one-sided spectrum of data
// after removing its mean and zero-padding it to a power of two. Bin k
// corresponds to frequency k / (len(result)*2*dt).
func PowerSpectrum(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}
	n := 1 << bits.Len(uint(len(data)-1))
	padded := make([]float64, n)
	copy(padded, data)
	mean := floats.Sum(data) / float64(len(data))
	for i := range data {
		padded[i] -= mean
	}

	spec := fft.FFTReal(padded)
	ps := make([]float64, n/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spec[i])
	}
	return ps
}

// DominantFrequency returns the frequency of the strongest non-zero bin of
// data sampled every dt.
func DominantFrequency(data []float64, dt float64) (float64, error) {
	if dt <= 0 {
		return 0, errors.New("analysis: sample interval must be positive")
	}
	ps := PowerSpectrum(data)
	if len(ps) < 2 {
		return 0, errors.New("analysis: need at least 3 samples")
	}
	k := floats.MaxIdx(ps[1:]) + 1
	if ps[k] == 0 {
		return 0, errors.New("analysis: signal is constant")
	}
	return float64(k) / (float64(2*len(ps)) * dt), nil
}
