// Package ensemble provides tree ensembles: a bagged random forest and a
// Newton gradient boosting machine. Both grow sklearn/tree regression trees.
package ensemble

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/YuminosukeSato/scigo-testng/core/model"
	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

// ForestParams are the random forest hyperparameters. Keys of GetParams and
// SetParams match the test case table columns.
type ForestParams struct {
	NTrees     int
	MaxDepth   int // 0 means unlimited
	MinRows    float64
	MTries     int // -1: sqrt(p) for classification, p/3 for regression; 0: all features
	SampleRate float64
	Seed       int64 // -1 picks a time based seed
}

// DefaultForestParams returns the library defaults.
func DefaultForestParams() ForestParams {
	return ForestParams{
		NTrees:     50,
		MaxDepth:   20,
		MinRows:    1,
		MTries:     -1,
		SampleRate: 0.632,
		Seed:       -1,
	}
}

// GetParams implements model.ParameterGetter.
func (p *ForestParams) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"ntrees":      p.NTrees,
		"max_depth":   p.MaxDepth,
		"min_rows":    p.MinRows,
		"mtries":      p.MTries,
		"sample_rate": p.SampleRate,
		"seed":        p.Seed,
	}
}

// SetParams implements model.ParameterSetter.
func (p *ForestParams) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "ntrees":
			p.NTrees, err = model.ParamInt(key, value)
		case "max_depth":
			p.MaxDepth, err = model.ParamInt(key, value)
		case "min_rows":
			p.MinRows, err = model.ParamFloat(key, value)
		case "mtries":
			p.MTries, err = model.ParamInt(key, value)
		case "sample_rate":
			p.SampleRate, err = model.ParamFloat(key, value)
		case "seed":
			p.Seed, err = model.ParamInt64(key, value)
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
func (p *ForestParams) Validate() error {
	switch {
	case p.NTrees < 1:
		return errors.NewValidationError("ntrees", "must be >= 1", p.NTrees)
	case p.MaxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", p.MaxDepth)
	case p.MinRows < 1:
		return errors.NewValidationError("min_rows", "must be >= 1", p.MinRows)
	case p.MTries < -1:
		return errors.NewValidationError("mtries", "must be >= -1", p.MTries)
	case p.SampleRate <= 0 || p.SampleRate > 1:
		return errors.NewValidationError("sample_rate", "must be in (0, 1]", p.SampleRate)
	}
	return nil
}

// BoostingParams are the gradient boosting hyperparameters.
type BoostingParams struct {
	NTrees       int
	MaxDepth     int
	MinRows      float64
	LearnRate    float64
	SampleRate   float64
	Seed         int64
	TweediePower float64
}

// DefaultBoostingParams returns the library defaults.
func DefaultBoostingParams() BoostingParams {
	return BoostingParams{
		NTrees:       50,
		MaxDepth:     5,
		MinRows:      10,
		LearnRate:    0.1,
		SampleRate:   1.0,
		Seed:         -1,
		TweediePower: 1.5,
	}
}

// GetParams implements model.ParameterGetter.
func (p *BoostingParams) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"ntrees":        p.NTrees,
		"max_depth":     p.MaxDepth,
		"min_rows":      p.MinRows,
		"learn_rate":    p.LearnRate,
		"sample_rate":   p.SampleRate,
		"seed":          p.Seed,
		"tweedie_power": p.TweediePower,
	}
}

// SetParams implements model.ParameterSetter.
func (p *BoostingParams) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "ntrees":
			p.NTrees, err = model.ParamInt(key, value)
		case "max_depth":
			p.MaxDepth, err = model.ParamInt(key, value)
		case "min_rows":
			p.MinRows, err = model.ParamFloat(key, value)
		case "learn_rate":
			p.LearnRate, err = model.ParamFloat(key, value)
		case "sample_rate":
			p.SampleRate, err = model.ParamFloat(key, value)
		case "seed":
			p.Seed, err = model.ParamInt64(key, value)
		case "tweedie_power":
			p.TweediePower, err = model.ParamFloat(key, value)
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
func (p *BoostingParams) Validate() error {
	switch {
	case p.NTrees < 1:
		return errors.NewValidationError("ntrees", "must be >= 1", p.NTrees)
	case p.MaxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", p.MaxDepth)
	case p.MinRows < 1:
		return errors.NewValidationError("min_rows", "must be >= 1", p.MinRows)
	case p.LearnRate <= 0 || p.LearnRate > 1:
		return errors.NewValidationError("learn_rate", "must be in (0, 1]", p.LearnRate)
	case p.SampleRate <= 0 || p.SampleRate > 1:
		return errors.NewValidationError("sample_rate", "must be in (0, 1]", p.SampleRate)
	case p.TweediePower < 1 || p.TweediePower > 2:
		return errors.NewValidationError("tweedie_power", "must be in [1, 2]", p.TweediePower)
	}
	return nil
}

func resolveSeed(seed int64) int64 {
	if seed < 0 {
		return time.Now().UnixNano()
	}
	return seed
}

// sampleRows draws each row with probability rate, keeping at least one row.
func sampleRows(rng *rand.Rand, n int, rate float64) []int {
	if rate >= 1 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := make([]int, 0, int(float64(n)*rate)+1)
	for i := 0; i < n; i++ {
		if rng.Float64() < rate {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		idx = append(idx, rng.Intn(n))
	}
	return idx
}

var (
	_ model.Params = (*ForestParams)(nil)
	_ model.Params = (*BoostingParams)(nil)
)
