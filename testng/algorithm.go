// Package testng runs parameterized model training test cases.
//
// Test cases are rows of per-algorithm CSV tables. Each row names a training
// dataset from the dataset registry and a set of estimator parameters. The
// Loader turns rows into TestCase values, the Resolver turns a TestCase into
// a sealed AlgorithmConfig with materialised frames, and the Runner trains,
// scores and persists the metrics through a Trainer and a sink.
//
// A row comes from either a positive table (training must succeed) or a
// negative table (training is expected to fail).
package testng

import (
	"strings"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

// Algorithm identifies the learner a test case exercises.
type Algorithm string

const (
	// DRF is the distributed random forest.
	DRF Algorithm = "drf"
	// GBM is the gradient boosting machine.
	GBM Algorithm = "gbm"
	// GLM is the generalized linear model.
	GLM Algorithm = "glm"
)

// Algorithms returns every algorithm in declaration order.
func Algorithms() []Algorithm {
	return []Algorithm{DRF, GBM, GLM}
}

// ParseAlgorithm parses an algorithm name. The empty string means all
// algorithms and is returned unchanged.
func ParseAlgorithm(s string) (Algorithm, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	for _, a := range Algorithms() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", errors.NewValidationError("algorithm", "must be one of drf, gbm, glm", s)
}

func (a Algorithm) String() string { return string(a) }
