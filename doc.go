// Package svb implements stochastic variational Bayes for a small
// nonlinear regression model: a sum of two exponential decays observed
// under Gaussian noise.
//
// svb provides the model math: synthetic data generation, a diagonal
// Gaussian [Prior], a learnable full-covariance Gaussian [Posterior]
// parameterized through its Cholesky factor, reparameterized sampling,
// the biexponential forward model with its log-likelihood, and the
// closed-form Gaussian-to-Gaussian KL divergence. Training lives in
// the svb/optimizer subpackage.
//
// Basic usage:
//
//	ds, err := svb.GenerateDataset(svb.DatasetConfig{}, rand.NewPCG(42, 42))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	opt := optimizer.NewOptimizer(optimizer.Config{Seed: 42})
//	res, err := opt.Fit(context.Background(), ds)
package svb
