package metrics

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// DominantFrequency returns the strongest nonzero frequency of the control
// signal in Hz. The mean is removed first so a steady force offset does not
// read as chattering.
func DominantFrequency(u []float64, dt float64) float64 {
	if len(u) < 4 || dt <= 0 {
		return 0
	}

	mean := 0.0
	for _, v := range u {
		mean += v
	}
	mean /= float64(len(u))

	seq := make([]float64, len(u))
	for i, v := range u {
		seq[i] = v - mean
	}

	fft := fourier.NewFFT(len(seq))
	coeffs := fft.Coefficients(nil, seq)

	best, bestMag := 0, 0.0
	for i := 1; i < len(coeffs); i++ {
		if mag := cmplx.Abs(coeffs[i]); mag > bestMag {
			best, bestMag = i, mag
		}
	}
	if bestMag < 1e-12 {
		return 0
	}
	return fft.Freq(best) / dt
}
