package svb

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Posterior is the learnable approximate posterior: a full-covariance
// Gaussian N(m, C) over the latent parameters with C = LᵀL for a
// lower-triangular L whose diagonal is kept strictly positive by
// storing it in log-space:
//
//	L_ii = sqrt(exp(logDiag_i))
//
// C is derived, never stored, so positive-definiteness holds by
// construction after every update to the free parameters.
type Posterior struct {
	mean    []float64
	logDiag []float64
	offDiag []float64 // strict lower triangle of L, row-major
}

// NewPosterior creates a posterior initialized at the prior mean with
// identity covariance (logDiag and offDiag all zero).
func NewPosterior(prior *Prior) *Posterior {
	p := &Posterior{
		mean:    make([]float64, NumParams),
		logDiag: make([]float64, NumParams),
		offDiag: make([]float64, NumParams*(NumParams-1)/2),
	}
	copy(p.mean, prior.mean)
	return p
}

// Dim returns the dimension of the posterior.
func (p *Posterior) Dim() int {
	return NumParams
}

// NumFree returns the number of free (learnable) parameters:
// NumParams mean entries, NumParams log-diagonal entries, and
// NumParams*(NumParams-1)/2 strict lower-triangular entries of L.
func (p *Posterior) NumFree() int {
	return 2*NumParams + len(p.offDiag)
}

// Mean returns a copy of the current posterior mean.
func (p *Posterior) Mean() []float64 {
	m := make([]float64, NumParams)
	copy(m, p.mean)
	return m
}

// Chol returns the current Cholesky factor L as a lower-triangular
// matrix with strictly positive diagonal.
func (p *Posterior) Chol() *mat.TriDense {
	l := mat.NewTriDense(NumParams, mat.Lower, nil)
	for i := 0; i < NumParams; i++ {
		l.SetTri(i, i, math.Sqrt(math.Exp(p.logDiag[i])))
		for j := 0; j < i; j++ {
			l.SetTri(i, j, p.offDiag[lowerIndex(i, j)])
		}
	}
	return l
}

// Covariance returns C = LᵀL as a dense symmetric matrix.
func (p *Posterior) Covariance() *mat.SymDense {
	l := p.Chol()
	var c mat.Dense
	c.Mul(l.T(), l)

	s := mat.NewSymDense(NumParams, nil)
	for i := 0; i < NumParams; i++ {
		for j := i; j < NumParams; j++ {
			s.SetSym(i, j, c.At(i, j))
		}
	}
	return s
}

// Gaussian returns the posterior as a plain mean/covariance pair.
func (p *Posterior) Gaussian() Gaussian {
	return Gaussian{Mean: p.Mean(), Cov: p.Covariance()}
}

// Free packs the learnable parameters into a flat vector:
// [mean | logDiag | offDiag].
func (p *Posterior) Free() []float64 {
	v := make([]float64, 0, p.NumFree())
	v = append(v, p.mean...)
	v = append(v, p.logDiag...)
	v = append(v, p.offDiag...)
	return v
}

// SetFree replaces the learnable parameters from a flat vector in the
// layout produced by Free.
func (p *Posterior) SetFree(v []float64) error {
	if len(v) != p.NumFree() {
		return fmt.Errorf("%w: posterior wants %d free parameters, got %d",
			ErrDimensionMismatch, p.NumFree(), len(v))
	}
	copy(p.mean, v[:NumParams])
	copy(p.logDiag, v[NumParams:2*NumParams])
	copy(p.offDiag, v[2*NumParams:])
	return nil
}

// KLToPrior computes the closed-form KL divergence KL(posterior ‖ prior)
// exploiting the prior's diagonal covariance and the posterior's
// Cholesky structure: log det C = Σ logDiag_i directly, no
// factorization needed.
func (p *Posterior) KLToPrior(prior *Prior) (float64, error) {
	cov := p.Covariance()

	var trace, quad float64
	for i := 0; i < NumParams; i++ {
		trace += cov.At(i, i) / prior.vars[i]
		d := p.mean[i] - prior.mean[i]
		quad += d * d / prior.vars[i]
	}
	logDetC := floats.Sum(p.logDiag)

	kl := 0.5 * (trace + prior.logDet() - logDetC - NumParams + quad)
	if math.IsNaN(kl) || math.IsInf(kl, 0) {
		return 0, fmt.Errorf("%w: KL divergence", ErrNonFinite)
	}
	if kl < 0 && kl > -1e-9 {
		kl = 0
	}
	return kl, nil
}

// lowerIndex maps a strict lower-triangular position (i > j) to its
// row-major slot in offDiag.
func lowerIndex(i, j int) int {
	return i*(i-1)/2 + j
}
