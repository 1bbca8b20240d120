// Package report summarises the outcomes of a harness run.
package report

import (
	"github.com/montanaflynn/stats"

	"github.com/YuminosukeSato/scigo-testng/testng"
)

// MSEStats describes the MSE of the persisted outcomes of one algorithm.
type MSEStats struct {
	N      int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
}

// AlgorithmSummary counts outcomes per status for one algorithm.
type AlgorithmSummary struct {
	Algorithm      testng.Algorithm
	Total          int
	Passed         int
	Failed         int
	Invalid        int
	NotImplemented int
	Persisted      int
	MSE            MSEStats
}

// Summary is the per-algorithm view of a run.
type Summary struct {
	RunID      string
	Algorithms []AlgorithmSummary
}

// Failures is the number of outcomes that are not passed.
func (s Summary) Failures() int {
	n := 0
	for _, a := range s.Algorithms {
		n += a.Failed + a.Invalid + a.NotImplemented
	}
	return n
}

// Total is the number of outcomes.
func (s Summary) Total() int {
	n := 0
	for _, a := range s.Algorithms {
		n += a.Total
	}
	return n
}

// Summarize groups outcomes by algorithm in harness order. Algorithms with
// no outcomes are left out.
func Summarize(runID string, outcomes []testng.Outcome) Summary {
	byAlg := make(map[testng.Algorithm]*AlgorithmSummary)
	mses := make(map[testng.Algorithm][]float64)
	for _, o := range outcomes {
		alg := o.TestCase.Algorithm
		a, ok := byAlg[alg]
		if !ok {
			a = &AlgorithmSummary{Algorithm: alg}
			byAlg[alg] = a
		}
		a.Total++
		switch o.Status {
		case testng.StatusPassed:
			a.Passed++
		case testng.StatusFailed:
			a.Failed++
		case testng.StatusInvalid:
			a.Invalid++
		case testng.StatusNotImplemented:
			a.NotImplemented++
		}
		if o.Persisted {
			a.Persisted++
			mses[alg] = append(mses[alg], o.MSE)
		}
	}

	s := Summary{RunID: runID}
	for _, alg := range testng.Algorithms() {
		a, ok := byAlg[alg]
		if !ok {
			continue
		}
		a.MSE = describe(mses[alg])
		s.Algorithms = append(s.Algorithms, *a)
	}
	return s
}

func describe(data stats.Float64Data) MSEStats {
	out := MSEStats{N: data.Len()}
	if out.N == 0 {
		return out
	}
	// 空でなければ stats の各関数はエラーを返さない
	out.Mean, _ = data.Mean()
	out.Median, _ = data.Median()
	out.StdDev, _ = data.StandardDeviation()
	out.Min, _ = data.Min()
	out.Max, _ = data.Max()
	return out
}
