package testng

import (
	"github.com/YuminosukeSato/scigo-testng/pkg/log"
)

// ReadAllTestcases loads the tables of alg, or of every algorithm in
// declaration order when alg is empty. specs without a matching algorithm
// are ignored.
func ReadAllTestcases(reg *Registry, specs []AlgorithmSpec, alg Algorithm) []TestCase {
	byAlg := make(map[Algorithm]AlgorithmSpec, len(specs))
	for _, s := range specs {
		byAlg[s.Algorithm] = s
	}

	algs := Algorithms()
	if alg != "" {
		algs = []Algorithm{alg}
	}

	var all []TestCase
	for _, a := range algs {
		spec, ok := byAlg[a]
		if !ok {
			log.GetLoggerWithName("testng.assemble").Warn("no tables configured", log.AlgorithmKey, a.String())
			continue
		}
		all = append(all, DataProvider(reg, spec)...)
	}
	return all
}

// FilterBySize keeps the test cases whose train dataset is in the size tier.
// Test cases without a train dataset are always kept so that they are
// reported as invalid. An empty size keeps everything.
func FilterBySize(cases []TestCase, size string) []TestCase {
	if size == "" {
		return cases
	}
	kept := make([]TestCase, 0, len(cases))
	for _, tc := range cases {
		if tc.Train == nil || tc.Train.Directory == size {
			kept = append(kept, tc)
		}
	}
	if len(kept) == 0 {
		log.GetLoggerWithName("testng.assemble").Info("no testcases for size", log.DatasetTierKey, size)
	}
	return kept
}
