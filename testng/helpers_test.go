package testng

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-testng/frame"
	"github.com/YuminosukeSato/scigo-testng/pkg/log"
)

var (
	dataRoot        = filepath.Join("testdata", "data")
	characteristics = filepath.Join("testdata", "datasetCharacteristics.csv")
	tablesDir       = filepath.Join("testdata", "tables")
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := LoadRegistry(characteristics, dataRoot, frame.NewStore())
	require.NoError(t, err)
	t.Cleanup(reg.CloseAll)
	return reg
}

func tableSpec(alg Algorithm) AlgorithmSpec {
	return AlgorithmSpec{
		Algorithm: alg,
		HeaderRow: 2,
		Positive:  filepath.Join(tablesDir, string(alg)+"_positive.csv"),
		Negative:  filepath.Join(tablesDir, string(alg)+"_negative.csv"),
	}
}

func allSpecs() []AlgorithmSpec {
	specs := make([]AlgorithmSpec, 0, 3)
	for _, a := range Algorithms() {
		specs = append(specs, tableSpec(a))
	}
	return specs
}

// captureLogs routes the global logger to a TestLogger for the test.
func captureLogs(t *testing.T) *log.TestLogger {
	t.Helper()
	p, _ := log.NewTestLoggerProvider(log.LevelDebug)
	log.SetProvider(p)
	t.Cleanup(func() { log.SetProvider(log.NewZerologProvider(io.Discard, log.LevelInfo)) })
	return p.Logger()
}

func findCase(t *testing.T, cases []TestCase, id string) TestCase {
	t.Helper()
	for _, tc := range cases {
		if tc.ID == id {
			return tc
		}
	}
	t.Fatalf("testcase %s not found", id)
	return TestCase{}
}

// cachedFrames counts the datasets of reg holding a parsed frame.
func cachedFrames(reg *Registry) int {
	n := 0
	for _, id := range reg.IDs() {
		if ds, ok := reg.Get(id); ok && ds.Loaded() {
			n++
		}
	}
	return n
}
