package optimizer

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/inferlab/svb"
)

// Config configures the variational fit.
// Zero values are replaced with sensible defaults.
type Config struct {
	Epochs           int     `json:"epochs"`            // default 5000
	SampleSize       int     `json:"sample_size"`       // posterior draws per epoch; default 5
	LearningRate     float64 `json:"learning_rate"`     // default 0.02
	Seed             uint64  `json:"seed"`              // default 1
	CosineAnnealing  bool    `json:"cosine_annealing"`  // anneal LR to zero over Epochs
	DivergenceWindow int     `json:"divergence_window"` // consecutive non-decreasing epochs before flagging; default 50

	// Prior overrides svb.DefaultPrior when non-nil.
	Prior *svb.Prior `json:"-"`

	// Progress, when non-nil, is invoked after every epoch with the
	// epoch index, the cost, and a copy of the current posterior mean.
	Progress func(epoch int, cost float64, mean []float64) `json:"-"`
}

// Optimizer fits the posterior by minimizing reconstruction loss plus
// KL divergence with Adam.
type Optimizer struct {
	epochs           int
	sampleSize       int
	learningRate     float64
	seed             uint64
	cosineAnnealing  bool
	divergenceWindow int
	prior            *svb.Prior
	progress         func(epoch int, cost float64, mean []float64)
}

// NewOptimizer creates an Optimizer with the given config.
// Zero-valued fields receive defaults: Epochs=5000, SampleSize=5,
// LearningRate=0.02, Seed=1, DivergenceWindow=50.
func NewOptimizer(cfg Config) *Optimizer {
	o := &Optimizer{
		epochs:           cfg.Epochs,
		sampleSize:       cfg.SampleSize,
		learningRate:     cfg.LearningRate,
		seed:             cfg.Seed,
		cosineAnnealing:  cfg.CosineAnnealing,
		divergenceWindow: cfg.DivergenceWindow,
		prior:            cfg.Prior,
		progress:         cfg.Progress,
	}
	if o.epochs == 0 {
		o.epochs = 5000
	}
	if o.sampleSize == 0 {
		o.sampleSize = 5
	}
	if o.learningRate == 0 {
		o.learningRate = 0.02
	}
	if o.seed == 0 {
		o.seed = 1
	}
	if o.divergenceWindow == 0 {
		o.divergenceWindow = 50
	}
	if o.prior == nil {
		o.prior = svb.DefaultPrior()
	}
	return o
}

// Result holds the fitted posterior and its diagnostics.
type Result struct {
	// Mean and Covariance describe the fitted posterior over
	// θ = (a1, log r1, a2, log r2, log β).
	Mean       []float64
	Covariance *mat.SymDense

	// Point estimates on the physical scale.
	Amp1, Amp2       float64
	Amp1Var, Amp2Var float64
	Rate1, Rate2     float64
	NoisePrecision   float64

	// CostHistory has one entry per completed epoch.
	CostHistory []float64

	// PredictedCurve is the model evaluated at the posterior mean over
	// the dataset's time points.
	PredictedCurve []float64

	// Diverged is set when the cost failed to decrease for
	// DivergenceWindow consecutive epochs at any point during training.
	Diverged bool
}

// gradEps is the central-difference step for numerical gradients.
const gradEps = 1e-5

// Fit minimizes the negative ELBO over the posterior's free parameters
// for the configured number of epochs. Termination is epoch-count only;
// there is no convergence check. The context is checked once per epoch,
// and on cancellation Fit returns the partially trained result along
// with the context error.
//
// A non-finite cost or prediction aborts training with svb.ErrNonFinite:
// a run that has overflowed cannot recover, so failing loudly beats
// corrupting further gradient steps.
func (o *Optimizer) Fit(ctx context.Context, ds *svb.Dataset) (*Result, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, svb.ErrEmptyData
	}

	post := svb.NewPosterior(o.prior)
	params := post.Free()
	adam := NewAdam(o.learningRate, len(params))
	var ca *CosineAnnealing
	if o.cosineAnnealing {
		ca = NewCosineAnnealing(o.learningRate, o.epochs)
	}
	src := rand.NewPCG(o.seed, o.seed)

	history := make([]float64, 0, o.epochs)
	diverged := false
	streak := 0
	prevCost := math.Inf(1)

	for epoch := 0; epoch < o.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			res, rerr := o.buildResult(post, ds, history, diverged)
			if rerr != nil {
				return nil, rerr
			}
			return res, err
		}

		// Fresh noise each epoch, frozen across the 2·dim cost
		// evaluations of the central-difference gradient.
		eps := svb.StandardNormal(svb.NumParams, o.sampleSize, src)

		grad := make([]float64, len(params))
		for i := range params {
			orig := params[i]

			params[i] = orig + gradEps
			costPlus, err := o.cost(params, eps, post, ds)
			if err != nil {
				return nil, err
			}

			params[i] = orig - gradEps
			costMinus, err := o.cost(params, eps, post, ds)
			if err != nil {
				return nil, err
			}

			params[i] = orig
			grad[i] = (costPlus - costMinus) / (2 * gradEps)
		}

		if ca != nil {
			adam.SetLR(ca.LR())
			ca.Step()
		}
		adam.Update(params, grad)

		cost, err := o.cost(params, eps, post, ds)
		if err != nil {
			return nil, err
		}
		history = append(history, cost)

		if cost >= prevCost {
			streak++
			if streak >= o.divergenceWindow {
				diverged = true
			}
		} else {
			streak = 0
		}
		prevCost = cost

		if o.progress != nil {
			o.progress(epoch, cost, post.Mean())
		}
	}

	return o.buildResult(post, ds, history, diverged)
}

// cost evaluates the negative ELBO at the given free parameters under
// the given frozen noise: reconstruction loss plus KL to the prior.
// post is reused as scratch state and is left holding params.
func (o *Optimizer) cost(params []float64, eps *mat.Dense, post *svb.Posterior, ds *svb.Dataset) (float64, error) {
	if err := post.SetFree(params); err != nil {
		return 0, err
	}
	theta, err := svb.SampleWithNoise(post, eps)
	if err != nil {
		return 0, err
	}
	reconstr, err := svb.ReconstructionLoss(theta, ds)
	if err != nil {
		return 0, err
	}
	kl, err := post.KLToPrior(o.prior)
	if err != nil {
		return 0, err
	}
	return reconstr + kl, nil
}

// buildResult packages the fitted posterior into a Result.
func (o *Optimizer) buildResult(post *svb.Posterior, ds *svb.Dataset, history []float64, diverged bool) (*Result, error) {
	mean := post.Mean()
	cov := post.Covariance()

	res := &Result{
		Mean:           mean,
		Covariance:     cov,
		Amp1:           mean[0],
		Amp2:           mean[2],
		Amp1Var:        cov.At(0, 0),
		Amp2Var:        cov.At(2, 2),
		Rate1:          math.Exp(mean[1]),
		Rate2:          math.Exp(mean[3]),
		NoisePrecision: math.Exp(-mean[4]),
		CostHistory:    history,
		Diverged:       diverged,
	}

	// Model curve at the posterior mean, for overlay plots.
	theta := mat.NewDense(svb.NumParams, 1, post.Mean())
	pred, err := svb.Predict(theta, ds.T)
	if err != nil {
		return nil, err
	}
	res.PredictedCurve = mat.Row(nil, 0, pred)
	return res, nil
}
