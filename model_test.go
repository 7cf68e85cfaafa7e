package svb

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestPredictHandComputed(t *testing.T) {
	// a1=2, r1=1 (θ[1]=0), a2=3, r2=2 (θ[3]=ln 2).
	theta := mat.NewDense(NumParams, 1, []float64{2, 0, 3, math.Log(2), 0})
	ts := []float64{0, 1}

	pred, err := Predict(theta, ts)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	assertFloat(t, "pred(t=0)", pred.At(0, 0), 5)
	assertFloat(t, "pred(t=1)", pred.At(0, 1), 2*math.Exp(-1)+3*math.Exp(-2))
}

func TestPredictDimensionMismatch(t *testing.T) {
	theta := mat.NewDense(4, 1, nil)
	_, err := Predict(theta, []float64{0, 1})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestPredictOverflowFailsLoudly(t *testing.T) {
	// log r1 = 710 overflows exp; at t=0 the exponent becomes -Inf·0 = NaN.
	theta := mat.NewDense(NumParams, 1, []float64{1, 710, 1, 0, 0})
	_, err := Predict(theta, []float64{0, 1})
	if !errors.Is(err, ErrNonFinite) {
		t.Errorf("err = %v, want ErrNonFinite", err)
	}
}

// perfectFitDataset returns a noiseless dataset together with a single
// sample holding the exact generating parameters (unit noise variance).
func perfectFitDataset() (*Dataset, *mat.Dense) {
	ts := []float64{0, 0.5, 1, 2, 4}
	a1, r1, a2, r2 := 10.0, 10.0, 10.0, 1.0

	clean := make([]float64, len(ts))
	for i, tn := range ts {
		clean[i] = biexp(a1, r1, a2, r2, tn)
	}
	ds := &Dataset{T: ts, Data: clean, Clean: clean}
	theta := mat.NewDense(NumParams, 1, []float64{a1, math.Log(r1), a2, math.Log(r2), 0})
	return ds, theta
}

func TestLogLikelihoodPerfectFit(t *testing.T) {
	// Zero residuals and log noise variance 0 make every term vanish.
	ds, theta := perfectFitDataset()

	ll, err := LogLikelihoods(theta, ds)
	if err != nil {
		t.Fatalf("LogLikelihoods: %v", err)
	}
	if len(ll) != 1 {
		t.Fatalf("len(ll) = %d, want 1", len(ll))
	}
	assertFloat(t, "log-likelihood at perfect fit", ll[0], 0)
}

func TestLogLikelihoodNoiseVarTradeoff(t *testing.T) {
	// With zero residuals the likelihood depends only on the
	// -log σ²·N/2 term: raising the sampled log precision θ[4]
	// raises the log-likelihood.
	ds, theta := perfectFitDataset()
	theta.Set(4, 0, 1) // log β = 1 → log σ² = -1

	ll, err := LogLikelihoods(theta, ds)
	if err != nil {
		t.Fatalf("LogLikelihoods: %v", err)
	}
	assertFloat(t, "log-likelihood with logβ=1", ll[0], 0.5*float64(ds.Len()))
}

func TestReconstructionLossAveragesSamples(t *testing.T) {
	ds, theta := perfectFitDataset()

	// Duplicate the single sample: the mean over samples is unchanged.
	dup := mat.NewDense(NumParams, 2, nil)
	for i := 0; i < NumParams; i++ {
		dup.Set(i, 0, theta.At(i, 0))
		dup.Set(i, 1, theta.At(i, 0))
	}

	one, err := ReconstructionLoss(theta, ds)
	if err != nil {
		t.Fatalf("ReconstructionLoss: %v", err)
	}
	two, err := ReconstructionLoss(dup, ds)
	if err != nil {
		t.Fatalf("ReconstructionLoss: %v", err)
	}
	assertFloat(t, "duplicated-sample loss", two, one)
}

func TestReconstructionLossConstantOffsetInvariance(t *testing.T) {
	// Dropping the 2π normalization is safe because any constant added
	// to the log-likelihood shifts the loss without moving its
	// gradient: central differences of the shifted loss match exactly.
	ds, err := GenerateDataset(DatasetConfig{N: 50}, rand.NewPCG(2, 2))
	if err != nil {
		t.Fatalf("GenerateDataset: %v", err)
	}

	post := NewPosterior(DefaultPrior())
	eps := StandardNormal(NumParams, 5, rand.NewPCG(3, 3))

	const offset = 0.5 * float64(50) * math.Ln2 // stand-in for the 2π term
	loss := func(free []float64, withOffset bool) float64 {
		if err := post.SetFree(free); err != nil {
			t.Fatalf("SetFree: %v", err)
		}
		theta, err := SampleWithNoise(post, eps)
		if err != nil {
			t.Fatalf("SampleWithNoise: %v", err)
		}
		l, err := ReconstructionLoss(theta, ds)
		if err != nil {
			t.Fatalf("ReconstructionLoss: %v", err)
		}
		if withOffset {
			l += offset
		}
		return l
	}

	free := post.Free()
	base := loss(free, false)
	shifted := loss(free, true)
	assertFloat(t, "loss shift", shifted-base, offset)

	const h = 1e-5
	for i := range free {
		orig := free[i]

		free[i] = orig + h
		plainPlus, shiftPlus := loss(free, false), loss(free, true)
		free[i] = orig - h
		plainMinus, shiftMinus := loss(free, false), loss(free, true)
		free[i] = orig

		gPlain := (plainPlus - plainMinus) / (2 * h)
		gShift := (shiftPlus - shiftMinus) / (2 * h)
		// Identical up to the round-off of adding the offset.
		tol := 1e-6 * (1 + math.Abs(gPlain))
		if math.Abs(gPlain-gShift) > tol {
			t.Errorf("gradient[%d] changed under constant offset: %g vs %g", i, gPlain, gShift)
		}
	}
}
