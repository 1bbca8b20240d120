package ensemble

import (
	"context"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-testng/core/model"
	"github.com/YuminosukeSato/scigo-testng/core/parallel"
	"github.com/YuminosukeSato/scigo-testng/distribution"
	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
	"github.com/YuminosukeSato/scigo-testng/pkg/log"
	"github.com/YuminosukeSato/scigo-testng/sklearn/tree"
)

// RandomForest is a bagged forest of regression trees. For a categorical
// response it grows one tree per class on the class indicator and reports
// the averaged leaf fractions as class probabilities.
type RandomForest struct {
	state *model.StateManager

	Params   ForestParams
	Family   distribution.Family // Gaussian, Bernoulli or Multinomial
	nClasses int

	// trees[i][k] is the tree of iteration i for class k
	trees [][]*tree.Tree
}

// NewRandomForest creates a forest for a resolved family. nClasses is the
// number of response levels and is ignored for Gaussian.
func NewRandomForest(params ForestParams, family distribution.Family, nClasses int) *RandomForest {
	switch family {
	case distribution.Multinomial:
	case distribution.Bernoulli:
		nClasses = 2
	default:
		nClasses = 1
	}
	return &RandomForest{
		state:    model.NewStateManager(),
		Params:   params,
		Family:   family,
		nClasses: nClasses,
	}
}

// Fit implements model.Fitter.
func (rf *RandomForest) Fit(X, y mat.Matrix) error {
	return rf.FitContext(context.Background(), X, y)
}

// FitContext grows the trees concurrently, at most NumCPU at a time.
func (rf *RandomForest) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForest.Fit")

	if err := rf.Params.Validate(); err != nil {
		return err
	}
	switch rf.Family {
	case distribution.Gaussian, distribution.Bernoulli, distribution.Multinomial:
	default:
		return errors.NewNotImplementedError("", "RandomForest supports AUTO family only")
	}

	Xd, targets, err := asDense(X, y)
	if err != nil {
		return err
	}
	n, p := Xd.Dims()

	mtries := rf.Params.MTries
	if mtries == -1 {
		if rf.Family.IsClassification() {
			mtries = int(math.Max(1, math.Floor(math.Sqrt(float64(p)))))
		} else {
			mtries = int(math.Max(1, math.Floor(float64(p)/3)))
		}
	}
	treeParams := tree.Params{
		MaxDepth: rf.Params.MaxDepth,
		MinRows:  rf.Params.MinRows,
		MTries:   mtries,
	}

	// クラスごとの指示変数を負の勾配として与えると葉の値は平均になる
	grads := make([][]float64, rf.nClasses)
	hess := make([]float64, n)
	for i := range hess {
		hess[i] = 1
	}
	for k := range grads {
		grads[k] = make([]float64, n)
		for i, t := range targets {
			switch {
			case !rf.Family.IsClassification():
				grads[k][i] = -t
			case int(t) == k:
				grads[k][i] = -1
			}
		}
	}

	seed := resolveSeed(rf.Params.Seed)
	rf.trees = make([][]*tree.Tree, rf.Params.NTrees)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel.Workers(rf.Params.NTrees))
	for i := 0; i < rf.Params.NTrees; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			treeSeed := seed + int64(i)*7919
			rows := sampleRows(rand.New(rand.NewSource(treeSeed)), n, rf.Params.SampleRate)
			perClass := make([]*tree.Tree, rf.nClasses)
			for k := range perClass {
				perClass[k] = tree.NewBuilder(treeParams, treeSeed+int64(k)).Build(Xd, grads[k], hess, rows)
			}
			rf.trees[i] = perClass
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "random forest training interrupted")
	}

	rf.state.SetDimensions(p, n)
	rf.state.SetFitted()
	log.GetLoggerWithName("ensemble").Debug("random forest fitted",
		log.ModelNameKey, "RandomForest",
		log.SamplesKey, n,
		log.FeaturesKey, p,
		log.DistributionKey, rf.Family.String(),
		"ntrees", rf.Params.NTrees,
	)
	return nil
}

// NClasses returns the number of response levels (1 for regression).
func (rf *RandomForest) NClasses() int { return rf.nClasses }

// PredictProba returns an n×K matrix of class probabilities.
func (rf *RandomForest) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !rf.Family.IsClassification() {
		return nil, errors.NewValueError("RandomForest.PredictProba", "regression forest has no class probabilities")
	}
	raw, err := rf.average(X)
	if err != nil {
		return nil, err
	}
	n, _ := raw.Dims()
	for i := 0; i < n; i++ {
		row := raw.RawRowView(i)
		sum := 0.0
		for k := range row {
			row[k] = math.Max(row[k], 0)
			sum += row[k]
		}
		for k := range row {
			if sum > 0 {
				row[k] /= sum
			} else {
				row[k] = 1 / float64(len(row))
			}
		}
	}
	return raw, nil
}

// Predict returns class codes for classification and the mean for regression.
func (rf *RandomForest) Predict(X mat.Matrix) (mat.Matrix, error) {
	if rf.Family.IsClassification() {
		proba, err := rf.PredictProba(X)
		if err != nil {
			return nil, err
		}
		return argmax(proba.(*mat.Dense)), nil
	}
	return rf.average(X)
}

func (rf *RandomForest) average(X mat.Matrix) (*mat.Dense, error) {
	if err := rf.state.RequireFitted(); err != nil {
		return nil, errors.NewNotFittedError("RandomForest", "Predict")
	}
	n, p := X.Dims()
	if nf, _ := rf.state.GetDimensions(); p != nf {
		return nil, errors.NewDimensionError("RandomForest.Predict", nf, p, 1)
	}

	out := mat.NewDense(n, rf.nClasses, nil)
	parallel.Rows(n, func(start, end int) {
		row := make([]float64, p)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			for _, perClass := range rf.trees {
				for k, t := range perClass {
					out.Set(i, k, out.At(i, k)+t.Predict(row))
				}
			}
		}
	})
	out.Scale(1/float64(len(rf.trees)), out)
	return out, nil
}

// GetParams implements model.ParameterGetter.
func (rf *RandomForest) GetParams() map[string]interface{} { return rf.Params.GetParams() }

// SetParams implements model.ParameterSetter.
func (rf *RandomForest) SetParams(params map[string]interface{}) error {
	return rf.Params.SetParams(params)
}

func asDense(X, y mat.Matrix) (*mat.Dense, []float64, error) {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return nil, nil, errors.NewModelError("ensemble.Fit", "empty data", errors.ErrEmptyData)
	}
	yr, _ := y.Dims()
	if yr != n {
		return nil, nil, errors.NewDimensionError("ensemble.Fit", n, yr, 0)
	}
	targets := make([]float64, n)
	for i := range targets {
		targets[i] = y.At(i, 0)
	}
	if d, ok := X.(*mat.Dense); ok {
		return d, targets, nil
	}
	return mat.DenseCopyOf(X), targets, nil
}

func argmax(proba *mat.Dense) *mat.Dense {
	n, _ := proba.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		best := 0
		row := proba.RawRowView(i)
		for k := range row {
			if row[k] > row[best] {
				best = k
			}
		}
		out.Set(i, 0, float64(best))
	}
	return out
}

var _ model.ProbabilisticClassifier = (*RandomForest)(nil)
