package testng

import (
	"github.com/YuminosukeSato/scigo-testng/core/model"
	"github.com/YuminosukeSato/scigo-testng/distribution"
	"github.com/YuminosukeSato/scigo-testng/frame"
	"github.com/YuminosukeSato/scigo-testng/sklearn/ensemble"
	"github.com/YuminosukeSato/scigo-testng/sklearn/linear_model"
)

// Common holds the settings every algorithm config carries.
type Common struct {
	ResponseColumn string
	Train          frame.Key
	Valid          frame.Key // empty when no validation frame is attached
}

// AlgorithmConfig is a training configuration ready for a Trainer. It is
// implemented only by *DRFConfig, *GBMConfig and *GLMConfig.
type AlgorithmConfig interface {
	Algorithm() Algorithm
	Settings() Common
	tunables() model.Params
	isAlgorithmConfig()
}

// DRFConfig configures a random forest.
type DRFConfig struct {
	Common
	Distribution distribution.Family
	Params       ensemble.ForestParams
}

// GBMConfig configures a gradient boosting machine.
type GBMConfig struct {
	Common
	Distribution distribution.Family
	Params       ensemble.BoostingParams
}

// GLMConfig configures a generalized linear model.
type GLMConfig struct {
	Common
	Family distribution.Family
	Solver linear_model.Solver
	// BetaConstraints is the key of the bounds frame, empty when the test
	// case does not constrain coefficients.
	BetaConstraints frame.Key
	Params          linear_model.GLMParams
}

func (*DRFConfig) Algorithm() Algorithm { return DRF }
func (*GBMConfig) Algorithm() Algorithm { return GBM }
func (*GLMConfig) Algorithm() Algorithm { return GLM }

func (c *DRFConfig) Settings() Common { return c.Common }
func (c *GBMConfig) Settings() Common { return c.Common }
func (c *GLMConfig) Settings() Common { return c.Common }

func (c *DRFConfig) tunables() model.Params { return &c.Params }
func (c *GBMConfig) tunables() model.Params { return &c.Params }
func (c *GLMConfig) tunables() model.Params { return &c.Params }

func (*DRFConfig) isAlgorithmConfig() {}
func (*GBMConfig) isAlgorithmConfig() {}
func (*GLMConfig) isAlgorithmConfig() {}

// newConfig returns the default config variant of alg.
func newConfig(alg Algorithm) (AlgorithmConfig, bool) {
	switch alg {
	case DRF:
		return &DRFConfig{Distribution: distribution.AUTO, Params: ensemble.DefaultForestParams()}, true
	case GBM:
		return &GBMConfig{Distribution: distribution.AUTO, Params: ensemble.DefaultBoostingParams()}, true
	case GLM:
		return &GLMConfig{
			Family: distribution.AUTO,
			Solver: linear_model.IRLSM,
			Params: linear_model.DefaultGLMParams(),
		}, true
	}
	return nil, false
}
