// Package optimizer fits the approximate posterior of the svb model by
// minimizing the negative evidence lower bound (ELBO).
//
// [Optimizer.Fit] runs full-batch gradient descent with the [Adam]
// optimizer over the posterior's free parameters: the mean vector plus
// the log-diagonal and strict lower-triangular entries of the Cholesky
// factor. Each epoch draws a fresh batch of reparameterized posterior
// samples, and the cost is the Monte-Carlo reconstruction loss plus the
// analytic KL divergence from the posterior to the prior.
//
// Gradients are computed via numerical central differences under common
// random numbers: the noise draw is frozen for the whole gradient
// evaluation, so differences reflect parameter movement only.
//
// # Usage
//
//	opt := optimizer.NewOptimizer(optimizer.Config{Seed: 42})
//	res, err := opt.Fit(ctx, dataset)
//
// Fit records the full cost history and reports point estimates for
// the amplitudes, decay rates, and noise precision on the [Result].
package optimizer
