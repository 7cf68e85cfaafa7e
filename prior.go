package svb

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// NumParams is the dimension of the latent parameter vector
// θ = (a1, log r1, a2, log r2, log β).
const NumParams = 5

// Prior is a fixed multivariate Gaussian N(m0, C0) over the latent
// parameters, with diagonal C0. It is immutable after construction.
type Prior struct {
	mean []float64
	vars []float64
}

// NewPrior creates a diagonal Gaussian prior from a mean vector and
// per-coordinate variances. Both slices must have length NumParams and
// all variances must be strictly positive.
func NewPrior(mean, variances []float64) (*Prior, error) {
	if len(mean) != NumParams || len(variances) != NumParams {
		return nil, fmt.Errorf("%w: prior wants %d coordinates, got mean %d, variances %d",
			ErrDimensionMismatch, NumParams, len(mean), len(variances))
	}
	for i, v := range variances {
		if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, fmt.Errorf("%w: prior variance [%d] = %f", ErrNotPositiveDefinite, i, v)
		}
	}
	p := &Prior{
		mean: make([]float64, NumParams),
		vars: make([]float64, NumParams),
	}
	copy(p.mean, mean)
	copy(p.vars, variances)
	return p, nil
}

// DefaultPrior returns the standard weakly informative prior:
// amplitude mean 1 with variance 100000 (very uninformative), log decay
// rate and log noise variance mean 0 with variance 10.
func DefaultPrior() *Prior {
	p, _ := NewPrior(
		[]float64{1, 0, 1, 0, 0},
		[]float64{100000, 10, 100000, 10, 10},
	)
	return p
}

// Dim returns the dimension of the prior.
func (p *Prior) Dim() int {
	return NumParams
}

// Mean returns a copy of the prior mean vector.
func (p *Prior) Mean() []float64 {
	m := make([]float64, NumParams)
	copy(m, p.mean)
	return m
}

// Covariance returns the prior covariance as a dense symmetric matrix.
func (p *Prior) Covariance() *mat.SymDense {
	c := mat.NewSymDense(NumParams, nil)
	for i, v := range p.vars {
		c.SetSym(i, i, v)
	}
	return c
}

// Gaussian returns the prior as a plain mean/covariance pair.
func (p *Prior) Gaussian() Gaussian {
	return Gaussian{Mean: p.Mean(), Cov: p.Covariance()}
}

// logDet returns log det C0 = Σ log v_i.
func (p *Prior) logDet() float64 {
	var sum float64
	for _, v := range p.vars {
		sum += math.Log(v)
	}
	return sum
}
