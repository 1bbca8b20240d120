package testng

import (
	"context"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-testng/core/model"
	"github.com/YuminosukeSato/scigo-testng/distribution"
	"github.com/YuminosukeSato/scigo-testng/frame"
	"github.com/YuminosukeSato/scigo-testng/metrics"
	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
	"github.com/YuminosukeSato/scigo-testng/pkg/log"
	"github.com/YuminosukeSato/scigo-testng/sklearn/ensemble"
	"github.com/YuminosukeSato/scigo-testng/sklearn/linear_model"
)

// PredictColumn is the prediction column of a score frame. Classification
// score frames add one probability column per response level.
const PredictColumn = "predict"

// Trainer trains a model from a resolved config.
type Trainer interface {
	Train(ctx context.Context, cfg AlgorithmConfig) (Model, error)
}

// Model is a trained model handle. Delete releases every frame the model
// registered.
type Model interface {
	// Score predicts fr and registers the score frame in the store.
	Score(ctx context.Context, fr *frame.Frame) (*frame.Frame, error)
	TrainingMetrics() *metrics.ModelMetrics
	// ValidationMetrics is nil when the config had no validation frame.
	ValidationMetrics() *metrics.ModelMetrics
	// Coefficients returns the GLM coefficients and nil for other models.
	Coefficients() map[string]float64
	Delete()
}

type estimator interface {
	model.ContextFitter
	model.Predictor
}

// ScigoTrainer trains the scigo estimators on frames of a store.
type ScigoTrainer struct {
	store *frame.Store
}

// NewTrainer creates a trainer that reads frames from store.
func NewTrainer(store *frame.Store) *ScigoTrainer {
	return &ScigoTrainer{store: store}
}

// Train fits the estimator of cfg on its train frame.
func (t *ScigoTrainer) Train(ctx context.Context, cfg AlgorithmConfig) (Model, error) {
	common := cfg.Settings()
	train, ok := t.store.Get(common.Train)
	if !ok {
		return nil, errors.Newf("train frame %s not in store", common.Train)
	}
	design, err := frame.NewDesign(train, common.ResponseColumn)
	if err != nil {
		return nil, err
	}
	resp := design.Response

	var requested distribution.Family
	switch c := cfg.(type) {
	case *DRFConfig:
		requested = c.Distribution
	case *GBMConfig:
		requested = c.Distribution
	case *GLMConfig:
		requested = c.Family
	}
	family, err := distribution.Resolve(requested, resp.Categorical, resp.NumLevels())
	if err != nil {
		return nil, err
	}
	nClasses := 0
	if family.IsClassification() {
		nClasses = resp.NumLevels()
	}

	var est estimator
	switch c := cfg.(type) {
	case *DRFConfig:
		est = ensemble.NewRandomForest(c.Params, family, nClasses)
	case *GBMConfig:
		est = ensemble.NewGradientBoosting(c.Params, family, nClasses)
	case *GLMConfig:
		g := linear_model.NewGLM(c.Params, family, c.Solver)
		g.FeatureNames = design.Encoder.Names()
		if c.BetaConstraints != "" {
			fr, ok := t.store.Get(c.BetaConstraints)
			if !ok {
				return nil, errors.Newf("beta constraints frame %s not in store", c.BetaConstraints)
			}
			if g.Bounds, err = BoundsFromFrame(fr); err != nil {
				return nil, err
			}
		}
		est = g
	default:
		return nil, errors.Newf("unsupported config %T", cfg)
	}

	y := mat.NewDense(len(resp.Y), 1, resp.Y)
	if err := est.FitContext(ctx, design.X, y); err != nil {
		return nil, errors.Wrapf(err, "%s training failed", cfg.Algorithm())
	}

	m := &scigoModel{
		est:    est,
		family: family,
		design: design,
		store:  t.store,
	}
	if m.training, err = m.evaluate(design.X, resp); err != nil {
		return nil, err
	}
	if common.Valid != "" {
		valid, ok := t.store.Get(common.Valid)
		if !ok {
			return nil, errors.Newf("validation frame %s not in store", common.Valid)
		}
		if m.validation, err = m.evaluateFrame(valid); err != nil {
			return nil, errors.Wrap(err, "validation metrics")
		}
	}

	log.GetLoggerWithName("testng.trainer").Debug("model trained",
		log.AlgorithmKey, cfg.Algorithm().String(),
		log.DistributionKey, family.String(),
		log.SamplesKey, len(resp.Y),
		log.FeaturesKey, len(design.Encoder.Names()),
		log.MSEKey, m.training.MSE,
	)
	return m, nil
}

type scigoModel struct {
	est    estimator
	family distribution.Family
	design *frame.Design
	store  *frame.Store

	training   *metrics.ModelMetrics
	validation *metrics.ModelMetrics

	mu     sync.Mutex
	scores []frame.Key
}

func (m *scigoModel) TrainingMetrics() *metrics.ModelMetrics   { return m.training }
func (m *scigoModel) ValidationMetrics() *metrics.ModelMetrics { return m.validation }

func (m *scigoModel) Coefficients() map[string]float64 {
	if g, ok := m.est.(*linear_model.GLM); ok {
		return g.Coefficients()
	}
	return nil
}

// evaluate computes MSE on X. Classifiers use the probability of the true
// class; binary classifiers also get AUC.
func (m *scigoModel) evaluate(X mat.Matrix, resp *frame.Response) (*metrics.ModelMetrics, error) {
	out := &metrics.ModelMetrics{NObs: len(resp.Y)}
	if !m.family.IsClassification() {
		pred, err := m.est.Predict(X)
		if err != nil {
			return nil, err
		}
		if out.MSE, err = metrics.MSEMatrix(mat.NewDense(len(resp.Y), 1, resp.Y), pred); err != nil {
			return nil, err
		}
		return out, nil
	}

	clf, ok := m.est.(model.ProbabilisticClassifier)
	if !ok {
		return nil, errors.Newf("%T has no class probabilities", m.est)
	}
	proba, err := clf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	if out.MSE, err = metrics.ProbabilityMSE(resp.Classes(), proba); err != nil {
		return nil, err
	}
	if m.family == distribution.Bernoulli {
		auc, err := metrics.ROCAUC(resp.Y, mat.Col(nil, 1, proba))
		if err != nil {
			return nil, err
		}
		if !math.IsNaN(auc) {
			out.AUC = &auc
		}
	}
	return out, nil
}

// evaluateFrame encodes fr like the training frame and evaluates it.
// Response levels are mapped onto the training domain.
func (m *scigoModel) evaluateFrame(fr *frame.Frame) (*metrics.ModelMetrics, error) {
	X, err := m.design.Encoder.Transform(fr)
	if err != nil {
		return nil, err
	}
	trainResp := m.design.Response
	resp, err := frame.ResponseOf(fr, trainResp.Name)
	if err != nil {
		return nil, err
	}
	if resp.Categorical != trainResp.Categorical {
		return nil, errors.Newf("response %s changes type between frames", trainResp.Name)
	}
	if resp.Categorical {
		index := make(map[string]int, len(trainResp.Domain))
		for i, l := range trainResp.Domain {
			index[l] = i
		}
		for i, code := range resp.Y {
			label := resp.Domain[int(code)]
			c, ok := index[label]
			if !ok {
				return nil, errors.Newf("response level %q not seen in training", label)
			}
			resp.Y[i] = float64(c)
		}
		resp.Domain = trainResp.Domain
	}
	return m.evaluate(X, resp)
}

// Score predicts fr. The score frame has a predict column (the level label
// for classifiers) and, for classifiers, one probability column per level.
func (m *scigoModel) Score(ctx context.Context, fr *frame.Frame) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	X, err := m.design.Encoder.Transform(fr)
	if err != nil {
		return nil, err
	}
	pred, err := m.est.Predict(X)
	if err != nil {
		return nil, err
	}
	n, _ := pred.Dims()

	var cols []*frame.Column
	if m.family.IsClassification() {
		domain := m.design.Response.Domain
		labels := make([]string, n)
		for i := range labels {
			labels[i] = domain[int(pred.At(i, 0))]
		}
		cols = append(cols, frame.NewCategoricalColumn(PredictColumn, labels))

		proba, err := m.est.(model.ProbabilisticClassifier).PredictProba(X)
		if err != nil {
			return nil, err
		}
		for k, level := range domain {
			cols = append(cols, frame.NewNumericColumn(level, mat.Col(nil, k, proba)))
		}
	} else {
		cols = append(cols, frame.NewNumericColumn(PredictColumn, mat.Col(nil, 0, pred)))
	}

	scored, err := frame.New(frame.NewKey(fmt.Sprintf("score_%s", fr.Key())), cols...)
	if err != nil {
		return nil, err
	}
	m.store.Put(scored)
	m.mu.Lock()
	m.scores = append(m.scores, scored.Key())
	m.mu.Unlock()
	return scored, nil
}

// Delete removes the score frames the model registered.
func (m *scigoModel) Delete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.scores {
		m.store.Remove(k)
	}
	m.scores = nil
}

var _ Trainer = (*ScigoTrainer)(nil)
