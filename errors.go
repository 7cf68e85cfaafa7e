package svb

import "errors"

// Sentinel errors for the svb package.
// Use errors.Is to check: errors.Is(err, svb.ErrNonFinite)
var (
	ErrNonFinite           = errors.New("svb: non-finite value in numeric computation")
	ErrNotPositiveDefinite = errors.New("svb: covariance is not positive-definite")
	ErrEmptyData           = errors.New("svb: empty observation set")
	ErrDimensionMismatch   = errors.New("svb: dimension mismatch")
)
