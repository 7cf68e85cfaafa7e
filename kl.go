package svb

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Gaussian is a multivariate normal given by its mean and covariance.
type Gaussian struct {
	Mean []float64
	Cov  *mat.SymDense
}

// KLDivergence computes the closed-form KL divergence KL(q ‖ p) between
// two multivariate Gaussians:
//
//	KL = 0.5·(tr(C0⁻¹C) + log det C0 − log det C − K + (m−m0)ᵀC0⁻¹(m−m0))
//
// Determinants and inverses go through Cholesky factorizations; a
// covariance that fails to factorize reports ErrNotPositiveDefinite.
// The result is non-negative for any two valid Gaussians.
func KLDivergence(q, p Gaussian) (float64, error) {
	k := len(q.Mean)
	if len(p.Mean) != k {
		return 0, fmt.Errorf("%w: means of length %d and %d", ErrDimensionMismatch, k, len(p.Mean))
	}
	if r := q.Cov.SymmetricDim(); r != k {
		return 0, fmt.Errorf("%w: q covariance is %d×%d for mean of length %d", ErrDimensionMismatch, r, r, k)
	}
	if r := p.Cov.SymmetricDim(); r != k {
		return 0, fmt.Errorf("%w: p covariance is %d×%d for mean of length %d", ErrDimensionMismatch, r, r, k)
	}

	var cholP, cholQ mat.Cholesky
	if !cholP.Factorize(p.Cov) {
		return 0, fmt.Errorf("%w: reference covariance", ErrNotPositiveDefinite)
	}
	if !cholQ.Factorize(q.Cov) {
		return 0, fmt.Errorf("%w: query covariance", ErrNotPositiveDefinite)
	}

	// tr(C0⁻¹C) via the solve C0·X = C.
	var x mat.Dense
	if err := cholP.SolveTo(&x, q.Cov); err != nil {
		return 0, fmt.Errorf("%w: solving trace term: %v", ErrNotPositiveDefinite, err)
	}
	var trace float64
	for i := 0; i < k; i++ {
		trace += x.At(i, i)
	}

	// (m−m0)ᵀ C0⁻¹ (m−m0).
	diff := make([]float64, k)
	for i := range diff {
		diff[i] = q.Mean[i] - p.Mean[i]
	}
	dv := mat.NewVecDense(k, diff)
	var sol mat.VecDense
	if err := cholP.SolveVecTo(&sol, dv); err != nil {
		return 0, fmt.Errorf("%w: solving quadratic term: %v", ErrNotPositiveDefinite, err)
	}
	quad := mat.Dot(dv, &sol)

	kl := 0.5 * (trace + cholP.LogDet() - cholQ.LogDet() - float64(k) + quad)
	if math.IsNaN(kl) || math.IsInf(kl, 0) {
		return 0, fmt.Errorf("%w: KL divergence", ErrNonFinite)
	}
	// Round-off can push an exact zero a hair below zero.
	if kl < 0 && kl > -1e-9 {
		kl = 0
	}
	return kl, nil
}
