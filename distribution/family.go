// Package distribution defines response distribution families and the loss
// objectives the estimators optimise for each of them.
package distribution

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

// Family is a response distribution.
type Family int

const (
	// AUTO picks a family from the response column type.
	AUTO Family = iota
	Gaussian
	Bernoulli
	Multinomial
	Poisson
	Gamma
	Tweedie
)

var familyNames = map[Family]string{
	AUTO:        "AUTO",
	Gaussian:    "gaussian",
	Bernoulli:   "bernoulli",
	Multinomial: "multinomial",
	Poisson:     "poisson",
	Gamma:       "gamma",
	Tweedie:     "tweedie",
}

func (f Family) String() string {
	if s, ok := familyNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// IsClassification reports whether the family models a categorical response.
func (f Family) IsClassification() bool {
	return f == Bernoulli || f == Multinomial
}

// ParseFamily parses a family name. "binomial" is accepted as the GLM
// spelling of Bernoulli.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "":
		return AUTO, nil
	case "gaussian":
		return Gaussian, nil
	case "bernoulli", "binomial":
		return Bernoulli, nil
	case "multinomial":
		return Multinomial, nil
	case "poisson":
		return Poisson, nil
	case "gamma":
		return Gamma, nil
	case "tweedie":
		return Tweedie, nil
	default:
		return AUTO, errors.NewValidationError("distribution", "unknown family", s)
	}
}

// Resolve turns AUTO into a concrete family and rejects families that do not
// fit the response column.
//
//	categorical, 2 levels  -> Bernoulli
//	categorical, >2 levels -> Multinomial
//	numeric                -> Gaussian
func Resolve(f Family, categorical bool, nLevels int) (Family, error) {
	if categorical && nLevels < 2 {
		return f, errors.NewValueError("distribution.Resolve",
			fmt.Sprintf("categorical response needs at least 2 levels, got %d", nLevels))
	}

	switch f {
	case AUTO:
		if !categorical {
			return Gaussian, nil
		}
		if nLevels == 2 {
			return Bernoulli, nil
		}
		return Multinomial, nil
	case Bernoulli:
		if !categorical || nLevels != 2 {
			return f, errors.NewValueError("distribution.Resolve",
				fmt.Sprintf("bernoulli requires a 2-level categorical response (categorical=%t, levels=%d)", categorical, nLevels))
		}
	case Multinomial:
		if !categorical {
			return f, errors.NewValueError("distribution.Resolve", "multinomial requires a categorical response")
		}
	case Gaussian, Poisson, Gamma, Tweedie:
		if categorical {
			return f, errors.NewValueError("distribution.Resolve",
				fmt.Sprintf("%s requires a numeric response", f))
		}
	default:
		return f, errors.NewValueError("distribution.Resolve", fmt.Sprintf("unknown family %d", int(f)))
	}
	return f, nil
}
