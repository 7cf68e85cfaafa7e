package svb

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// StandardNormal draws a k×s matrix of independent N(0, 1) values from
// src. A nil src falls back to the process-wide generator.
func StandardNormal(k, s int, src rand.Source) *mat.Dense {
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	eps := mat.NewDense(k, s, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < s; j++ {
			eps.Set(i, j, norm.Rand())
		}
	}
	return eps
}

// Sample draws s independent reparameterized samples from the
// posterior. Each column of the returned NumParams×s matrix is one
// draw θ = m + Lᵀε with ε ~ N(0, I).
func Sample(post *Posterior, s int, src rand.Source) (*mat.Dense, error) {
	if s < 1 {
		return nil, fmt.Errorf("svb: sample count %d must be positive", s)
	}
	return SampleWithNoise(post, StandardNormal(NumParams, s, src))
}

// SampleWithNoise applies the reparameterization θ = m + Lᵀε to a
// caller-supplied noise matrix ε of shape NumParams×s. Holding ε fixed
// while varying the posterior's free parameters makes the sampling
// operation differentiable in those parameters, which is what lets a
// gradient optimizer move the posterior.
func SampleWithNoise(post *Posterior, eps *mat.Dense) (*mat.Dense, error) {
	k, s := eps.Dims()
	if k != NumParams {
		return nil, fmt.Errorf("%w: noise has %d rows, want %d", ErrDimensionMismatch, k, NumParams)
	}

	var theta mat.Dense
	theta.Mul(post.Chol().T(), eps)
	for i := 0; i < NumParams; i++ {
		m := post.mean[i]
		for j := 0; j < s; j++ {
			theta.Set(i, j, theta.At(i, j)+m)
		}
	}
	return &theta, nil
}
