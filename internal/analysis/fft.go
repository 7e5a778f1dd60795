package analysis

import (
	"errors"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrTooShort = errors.New("analysis: need at least 4 samples")

// Spectrum is a one-sided power spectrum. Freqs are in Hz.
type Spectrum struct {
	Freqs []float64
	Power []float64
}

// PowerOfTwo returns the largest power of two <= n, or 0.
func PowerOfTwo(n int) int {
	if n < 1 {
		return 0
	}
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

// PowerSpectrum truncates data to a power of two, removes the mean and
// returns |X_k|^2 for k in [0, n/2]. dt is the sampling interval.
func PowerSpectrum(data []float64, dt float64) (Spectrum, error) {
	n := PowerOfTwo(len(data))
	if n < 4 {
		return Spectrum{}, ErrTooShort
	}

	seq := make([]float64, n)
	copy(seq, data[:n])
	floats.AddConst(-stat.Mean(seq, nil), seq)

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, seq)

	spec := Spectrum{
		Freqs: make([]float64, len(coeffs)),
		Power: make([]float64, len(coeffs)),
	}
	for i, c := range coeffs {
		spec.Freqs[i] = fft.Freq(i) / dt
		a := cmplx.Abs(c)
		spec.Power[i] = a * a
	}
	return spec, nil
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC bin.
func DominantFrequency(data []float64, dt float64) (float64, error) {
	spec, err := PowerSpectrum(data, dt)
	if err != nil {
		return 0, err
	}
	k := floats.MaxIdx(spec.Power[1:]) + 1
	return spec.Freqs[k], nil
}
