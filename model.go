package svb

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Predict maps each sampled parameter vector through the biexponential
// forward model. theta is NumParams×S (one sample per column); the
// result is S×N where N = len(t):
//
//	prediction[s][n] = a1·exp(-r1·t[n]) + a2·exp(-r2·t[n])
//
// with a1 = θ[0], r1 = exp(θ[1]), a2 = θ[2], r2 = exp(θ[3]).
// A non-finite prediction reports ErrNonFinite rather than silently
// propagating inf or NaN into the loss.
func Predict(theta *mat.Dense, t []float64) (*mat.Dense, error) {
	k, s := theta.Dims()
	if k != NumParams {
		return nil, fmt.Errorf("%w: sample batch has %d rows, want %d", ErrDimensionMismatch, k, NumParams)
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("%w: no time points", ErrEmptyData)
	}

	pred := mat.NewDense(s, len(t), nil)
	for j := 0; j < s; j++ {
		a1 := theta.At(0, j)
		r1 := math.Exp(theta.At(1, j))
		a2 := theta.At(2, j)
		r2 := math.Exp(theta.At(3, j))

		for n, tn := range t {
			v := biexp(a1, r1, a2, r2, tn)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: prediction for sample %d at t=%f", ErrNonFinite, j, tn)
			}
			pred.Set(j, n, v)
		}
	}
	return pred, nil
}

// LogLikelihoods returns the per-sample log-likelihood of the data
// under each sampled parameter vector, up to the additive 2π constant:
//
//	ll[s] = 0.5·(−logσ²·N − Σ_n (data[n]−pred[s][n])² / σ²)
//
// where log σ² = −θ[4] (θ[4] is the log noise precision). Dropping the
// constant does not change gradients, so the optimum is unaffected.
func LogLikelihoods(theta *mat.Dense, ds *Dataset) ([]float64, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, ErrEmptyData
	}
	if len(ds.Data) != len(ds.T) {
		return nil, fmt.Errorf("%w: %d observations for %d time points",
			ErrDimensionMismatch, len(ds.Data), len(ds.T))
	}

	pred, err := Predict(theta, ds.T)
	if err != nil {
		return nil, err
	}

	_, s := theta.Dims()
	n := float64(ds.Len())

	ll := make([]float64, s)
	for j := 0; j < s; j++ {
		logNoiseVar := -theta.At(4, j)
		noiseVar := math.Exp(logNoiseVar)

		var sumSq float64
		for i, y := range ds.Data {
			d := y - pred.At(j, i)
			sumSq += d * d
		}

		ll[j] = 0.5 * (-logNoiseVar*n - sumSq/noiseVar)
		if math.IsNaN(ll[j]) || math.IsInf(ll[j], 0) {
			return nil, fmt.Errorf("%w: log-likelihood for sample %d", ErrNonFinite, j)
		}
	}
	return ll, nil
}

// ReconstructionLoss is the Monte-Carlo estimate of the negative
// expected log-likelihood under the posterior: the mean of
// LogLikelihoods over the sample batch, negated.
func ReconstructionLoss(theta *mat.Dense, ds *Dataset) (float64, error) {
	ll, err := LogLikelihoods(theta, ds)
	if err != nil {
		return 0, err
	}
	return -floats.Sum(ll) / float64(len(ll)), nil
}
