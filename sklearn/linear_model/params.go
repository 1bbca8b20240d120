// Package linear_model provides a generalized linear model with elastic-net
// regularisation, box constraints on the coefficients and three solvers.
package linear_model

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/scigo-testng/core/model"
	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

// Solver selects the GLM optimisation method.
type Solver int

const (
	// IRLSM is iteratively reweighted least squares with a ridge stabilised
	// Newton step. Bounds are applied by clipping.
	IRLSM Solver = iota
	// LBFGS minimises the penalised likelihood with gonum's L-BFGS. It
	// does not support coefficient bounds.
	LBFGS
	// CoordinateDescent cycles over coefficients with soft-thresholding and
	// projects each one into its box.
	CoordinateDescent
)

func (s Solver) String() string {
	switch s {
	case IRLSM:
		return "IRLSM"
	case LBFGS:
		return "L_BFGS"
	case CoordinateDescent:
		return "COORDINATE_DESCENT"
	}
	return fmt.Sprintf("Solver(%d)", int(s))
}

// ParseSolver accepts the solver names case-insensitively.
func ParseSolver(s string) (Solver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "irlsm":
		return IRLSM, nil
	case "l_bfgs", "lbfgs":
		return LBFGS, nil
	case "coordinate_descent":
		return CoordinateDescent, nil
	}
	return 0, fmt.Errorf("unknown solver %q", s)
}

// Bounds maps a coefficient name to its [lower, upper] box.
type Bounds map[string][2]float64

// GLMParams are the GLM hyperparameters. Keys of GetParams and SetParams
// match the test case table columns.
type GLMParams struct {
	Alpha                float64 // elastic-net mixing, 1 = lasso
	Lambda               float64 // regularisation strength
	Standardize          bool
	MaxIterations        int
	BetaEpsilon          float64 // convergence threshold on coefficient change
	Intercept            bool
	TweedieVariancePower float64
}

// DefaultGLMParams returns the library defaults.
func DefaultGLMParams() GLMParams {
	return GLMParams{
		Alpha:                0.5,
		Lambda:               0,
		Standardize:          true,
		MaxIterations:        100,
		BetaEpsilon:          1e-4,
		Intercept:            true,
		TweedieVariancePower: 1.5,
	}
}

// GetParams implements model.ParameterGetter.
func (p *GLMParams) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":                  p.Alpha,
		"lambda":                 p.Lambda,
		"standardize":            p.Standardize,
		"max_iterations":         p.MaxIterations,
		"beta_epsilon":           p.BetaEpsilon,
		"intercept":              p.Intercept,
		"tweedie_variance_power": p.TweedieVariancePower,
	}
}

// SetParams implements model.ParameterSetter.
func (p *GLMParams) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "alpha":
			p.Alpha, err = model.ParamFloat(key, value)
		case "lambda":
			p.Lambda, err = model.ParamFloat(key, value)
		case "standardize":
			p.Standardize, err = model.ParamBool(key, value)
		case "max_iterations":
			p.MaxIterations, err = model.ParamInt(key, value)
		case "beta_epsilon":
			p.BetaEpsilon, err = model.ParamFloat(key, value)
		case "intercept":
			p.Intercept, err = model.ParamBool(key, value)
		case "tweedie_variance_power":
			p.TweedieVariancePower, err = model.ParamFloat(key, value)
		default:
			return fmt.Errorf("unknown parameter: %s", key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the parameter ranges.
func (p *GLMParams) Validate() error {
	switch {
	case p.Alpha < 0 || p.Alpha > 1:
		return errors.NewValidationError("alpha", "must be in [0, 1]", p.Alpha)
	case p.Lambda < 0:
		return errors.NewValidationError("lambda", "must be >= 0", p.Lambda)
	case p.MaxIterations < 1:
		return errors.NewValidationError("max_iterations", "must be >= 1", p.MaxIterations)
	case p.BetaEpsilon < 0:
		return errors.NewValidationError("beta_epsilon", "must be >= 0", p.BetaEpsilon)
	case p.TweedieVariancePower < 1 || p.TweedieVariancePower > 2:
		return errors.NewValidationError("tweedie_variance_power", "must be in [1, 2]", p.TweedieVariancePower)
	}
	return nil
}

var _ model.Params = (*GLMParams)(nil)
