package svb

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// DatasetConfig configures synthetic data generation.
// Zero values produce the standard demonstration setup; see field comments.
type DatasetConfig struct {
	N     int     `json:"n"`     // number of observations; zero → 200
	Amp1  float64 `json:"amp1"`  // first amplitude; zero → 10
	Amp2  float64 `json:"amp2"`  // second amplitude; zero → 10
	Rate1 float64 `json:"rate1"` // first decay rate; zero → 10
	Rate2 float64 `json:"rate2"` // second decay rate; zero → 1
	Beta  float64 `json:"beta"`  // noise precision; zero → 1
	TMax  float64 `json:"t_max"` // end of the observation window; zero → 5
}

// Dataset holds time points and the matching observations.
// Clean is the noiseless ground-truth signal, kept for diagnostics.
type Dataset struct {
	T     []float64
	Data  []float64
	Clean []float64
}

// Len returns the number of observations.
func (d *Dataset) Len() int {
	return len(d.Data)
}

// GenerateDataset draws a noisy observation set from the biexponential
// ground truth in cfg. Time points are equally spaced over [0, TMax];
// each observation is the clean signal plus zero-mean Gaussian noise
// with variance 1/Beta drawn from src. A nil src falls back to the
// process-wide generator and is not reproducible.
func GenerateDataset(cfg DatasetConfig, src rand.Source) (*Dataset, error) {
	n := cfg.N
	if n == 0 {
		n = 200
	}
	if n < 2 {
		return nil, fmt.Errorf("svb: need at least 2 observations, got %d", n)
	}

	amp1, amp2 := cfg.Amp1, cfg.Amp2
	if amp1 == 0 {
		amp1 = 10
	}
	if amp2 == 0 {
		amp2 = 10
	}
	rate1, rate2 := cfg.Rate1, cfg.Rate2
	if rate1 == 0 {
		rate1 = 10
	}
	if rate2 == 0 {
		rate2 = 1
	}

	beta := cfg.Beta
	if beta == 0 {
		beta = 1
	}
	if beta < 0 {
		return nil, fmt.Errorf("svb: noise precision %f must be positive", beta)
	}

	tMax := cfg.TMax
	if tMax == 0 {
		tMax = 5
	}
	if tMax < 0 {
		return nil, fmt.Errorf("svb: observation window end %f must be positive", tMax)
	}

	noise := distuv.Normal{Mu: 0, Sigma: math.Sqrt(1 / beta), Src: src}

	ds := &Dataset{
		T:     make([]float64, n),
		Data:  make([]float64, n),
		Clean: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		t := tMax * float64(i) / float64(n-1)
		ds.T[i] = t
		ds.Clean[i] = biexp(amp1, rate1, amp2, rate2, t)
		ds.Data[i] = ds.Clean[i] + noise.Rand()
	}
	return ds, nil
}

// biexp evaluates a1*exp(-r1*t) + a2*exp(-r2*t).
func biexp(a1, r1, a2, r2, t float64) float64 {
	return a1*math.Exp(-r1*t) + a2*math.Exp(-r2*t)
}
