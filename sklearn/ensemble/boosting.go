package ensemble

import (
	"context"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-testng/core/model"
	"github.com/YuminosukeSato/scigo-testng/core/parallel"
	"github.com/YuminosukeSato/scigo-testng/distribution"
	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
	"github.com/YuminosukeSato/scigo-testng/pkg/log"
	"github.com/YuminosukeSato/scigo-testng/sklearn/tree"
)

// GradientBoosting fits an additive model of regression trees with Newton
// steps on the family's loss. Multinomial responses grow one tree per class
// per iteration on the softmax cross-entropy.
type GradientBoosting struct {
	state *model.StateManager

	Params   BoostingParams
	Family   distribution.Family
	nClasses int

	objective distribution.Objective // nil for Multinomial
	initScore []float64              // per output
	trees     [][]*tree.Tree         // trees[i][k]
	trainLoss []float64
}

// NewGradientBoosting creates a booster for a resolved family.
func NewGradientBoosting(params BoostingParams, family distribution.Family, nClasses int) *GradientBoosting {
	switch family {
	case distribution.Multinomial:
	case distribution.Bernoulli:
		nClasses = 2
	default:
		nClasses = 1
	}
	return &GradientBoosting{
		state:    model.NewStateManager(),
		Params:   params,
		Family:   family,
		nClasses: nClasses,
	}
}

// Fit implements model.Fitter.
func (gb *GradientBoosting) Fit(X, y mat.Matrix) error {
	return gb.FitContext(context.Background(), X, y)
}

// FitContext trains the booster, checking ctx between iterations.
func (gb *GradientBoosting) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GradientBoosting.Fit")

	if err := gb.Params.Validate(); err != nil {
		return err
	}
	Xd, targets, err := asDense(X, y)
	if err != nil {
		return err
	}
	n, p := Xd.Dims()

	outputs := 1
	var multi *distribution.MulticlassLogLoss
	if gb.Family == distribution.Multinomial {
		multi = &distribution.MulticlassLogLoss{NumClasses: gb.nClasses}
		outputs = gb.nClasses
		classes := make([]int, n)
		for i, t := range targets {
			classes[i] = int(t)
		}
		gb.initScore = multi.InitScores(classes)
	} else {
		obj, err := distribution.NewObjective(gb.Family, gb.Params.TweediePower)
		if err != nil {
			return err
		}
		if err := obj.Validate(targets); err != nil {
			return err
		}
		gb.objective = obj
		gb.initScore = []float64{obj.GetInitScore(targets)}
	}

	// scores[i*outputs+k] はリンクスケールの予測値
	scores := make([]float64, n*outputs)
	for i := 0; i < n; i++ {
		copy(scores[i*outputs:(i+1)*outputs], gb.initScore)
	}

	treeParams := tree.Params{MaxDepth: gb.Params.MaxDepth, MinRows: gb.Params.MinRows}
	seed := resolveSeed(gb.Params.Seed)
	rng := rand.New(rand.NewSource(seed))

	grads := make([][]float64, outputs)
	hess := make([][]float64, outputs)
	for k := range grads {
		grads[k] = make([]float64, n)
		hess[k] = make([]float64, n)
	}

	gb.trees = make([][]*tree.Tree, 0, gb.Params.NTrees)
	gb.trainLoss = gb.trainLoss[:0]
	row := make([]float64, p)

	for iter := 0; iter < gb.Params.NTrees; iter++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "gradient boosting interrupted")
		}

		loss := 0.0
		for i := 0; i < n; i++ {
			if multi != nil {
				g, h := multi.GradientsAndHessians(scores[i*outputs:(i+1)*outputs], int(targets[i]))
				for k := 0; k < outputs; k++ {
					grads[k][i], hess[k][i] = g[k], h[k]
				}
				loss += multi.Loss(scores[i*outputs:(i+1)*outputs], int(targets[i]))
				continue
			}
			grads[0][i] = gb.objective.CalculateGradient(scores[i], targets[i])
			hess[0][i] = gb.objective.CalculateHessian(scores[i], targets[i])
			loss += gb.objective.CalculateLoss(scores[i], targets[i])
		}
		gb.trainLoss = append(gb.trainLoss, loss/float64(n))

		rows := sampleRows(rng, n, gb.Params.SampleRate)
		perOutput := make([]*tree.Tree, outputs)
		for k := range perOutput {
			perOutput[k] = tree.NewBuilder(treeParams, seed+int64(iter*outputs+k)).Build(Xd, grads[k], hess[k], rows)
		}
		gb.trees = append(gb.trees, perOutput)

		for i := 0; i < n; i++ {
			mat.Row(row, i, Xd)
			for k, t := range perOutput {
				scores[i*outputs+k] += gb.Params.LearnRate * t.Predict(row)
			}
		}
	}

	gb.state.SetDimensions(p, n)
	gb.state.SetFitted()
	log.GetLoggerWithName("ensemble").Debug("gradient boosting fitted",
		log.ModelNameKey, "GradientBoosting",
		log.SamplesKey, n,
		log.FeaturesKey, p,
		log.DistributionKey, gb.Family.String(),
		"final_loss", gb.trainLoss[len(gb.trainLoss)-1],
	)
	return nil
}

// TrainLoss returns the mean training loss before each iteration.
func (gb *GradientBoosting) TrainLoss() []float64 { return gb.trainLoss }

// NClasses returns the number of response levels (1 for regression).
func (gb *GradientBoosting) NClasses() int { return gb.nClasses }

// DecisionFunction returns link-scale scores, one column per output.
func (gb *GradientBoosting) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	if err := gb.state.RequireFitted(); err != nil {
		return nil, errors.NewNotFittedError("GradientBoosting", "Predict")
	}
	n, p := X.Dims()
	if nf, _ := gb.state.GetDimensions(); p != nf {
		return nil, errors.NewDimensionError("GradientBoosting.Predict", nf, p, 1)
	}
	outputs := len(gb.initScore)

	out := mat.NewDense(n, outputs, nil)
	parallel.Rows(n, func(start, end int) {
		row := make([]float64, p)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			for k := 0; k < outputs; k++ {
				s := gb.initScore[k]
				for _, perOutput := range gb.trees {
					s += gb.Params.LearnRate * perOutput[k].Predict(row)
				}
				out.Set(i, k, s)
			}
		}
	})
	return out, nil
}

// PredictProba returns an n×K matrix of class probabilities.
func (gb *GradientBoosting) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !gb.Family.IsClassification() {
		return nil, errors.NewValueError("GradientBoosting.PredictProba", "regression booster has no class probabilities")
	}
	scores, err := gb.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	n, _ := scores.Dims()
	out := mat.NewDense(n, gb.nClasses, nil)
	for i := 0; i < n; i++ {
		if gb.Family == distribution.Bernoulli {
			p1 := distribution.Sigmoid(scores.At(i, 0))
			out.Set(i, 0, 1-p1)
			out.Set(i, 1, p1)
			continue
		}
		out.SetRow(i, distribution.Softmax(scores.RawRowView(i)))
	}
	return out, nil
}

// Predict returns class codes for classification and the response-scale
// mean for regression families.
func (gb *GradientBoosting) Predict(X mat.Matrix) (mat.Matrix, error) {
	if gb.Family.IsClassification() {
		proba, err := gb.PredictProba(X)
		if err != nil {
			return nil, err
		}
		return argmax(proba.(*mat.Dense)), nil
	}
	scores, err := gb.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	n, _ := scores.Dims()
	for i := 0; i < n; i++ {
		scores.Set(i, 0, gb.objective.Inverse(scores.At(i, 0)))
	}
	return scores, nil
}

// GetParams implements model.ParameterGetter.
func (gb *GradientBoosting) GetParams() map[string]interface{} { return gb.Params.GetParams() }

// SetParams implements model.ParameterSetter.
func (gb *GradientBoosting) SetParams(params map[string]interface{}) error {
	return gb.Params.SetParams(params)
}

var _ model.ProbabilisticClassifier = (*GradientBoosting)(nil)
