// Package model provides the interfaces and state management shared by the
// estimators.
package model

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Fitter is the interface for estimators that learn from a design matrix.
// y is an n×1 matrix of numeric responses or class codes.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// ContextFitter is a Fitter whose training can be cancelled.
type ContextFitter interface {
	Fitter
	FitContext(ctx context.Context, X, y mat.Matrix) error
}

// Predictor is the interface for fitted estimators. Classifiers return class
// codes, regressors return the predicted mean.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ProbabilisticClassifier returns one probability column per class.
type ProbabilisticClassifier interface {
	Predictor
	PredictProba(X mat.Matrix) (mat.Matrix, error)
	NClasses() int
}

// Transformer is the interface for fitted preprocessing steps.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// ParameterGetter is the interface for estimators that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the hyperparameters keyed by their table column name.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for estimators that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets hyperparameters keyed by their table column name.
	SetParams(params map[string]interface{}) error
}

// Params is implemented by every hyperparameter struct the harness tunes.
type Params interface {
	ParameterGetter
	ParameterSetter
	Validate() error
}
