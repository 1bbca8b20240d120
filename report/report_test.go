package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
	"github.com/YuminosukeSato/scigo-testng/testng"
)

func outcome(id string, alg testng.Algorithm, status testng.Status, mse float64, persisted bool) testng.Outcome {
	return testng.Outcome{
		TestCase:  testng.TestCase{ID: id, Algorithm: alg},
		Status:    status,
		MSE:       mse,
		Persisted: persisted,
	}
}

func sampleOutcomes() []testng.Outcome {
	auc := 0.8125
	glm := outcome("glm_1", testng.GLM, testng.StatusPassed, 4, true)
	glm.Tuned = true
	glm.AUC = &auc
	neg := outcome("drf_n1", testng.DRF, testng.StatusPassed, 0, false)
	neg.TestCase.Negative = true
	neg.Message = "train failed | response has NA"
	return []testng.Outcome{
		outcome("drf_1", testng.DRF, testng.StatusPassed, 1, true),
		outcome("drf_2", testng.DRF, testng.StatusPassed, 3, true),
		outcome("drf_3", testng.DRF, testng.StatusNotImplemented, 0, false),
		outcome("drf_4", testng.DRF, testng.StatusInvalid, 0, false),
		neg,
		glm,
		outcome("glm_2", testng.GLM, testng.StatusFailed, 0, false),
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize("run-1", sampleOutcomes())

	want := []AlgorithmSummary{
		{
			Algorithm: testng.DRF, Total: 5, Passed: 3, Invalid: 1, NotImplemented: 1, Persisted: 2,
			MSE: MSEStats{N: 2, Mean: 2, Median: 2, StdDev: 1, Min: 1, Max: 3},
		},
		{
			Algorithm: testng.GLM, Total: 2, Passed: 1, Failed: 1, Persisted: 1,
			MSE: MSEStats{N: 1, Mean: 4, Median: 4, Min: 4, Max: 4},
		},
	}
	if diff := cmp.Diff(want, s.Algorithms); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 7, s.Total())
	assert.Equal(t, 3, s.Failures())

	empty := Summarize("run-2", nil)
	assert.Empty(t, empty.Algorithms)
	assert.Equal(t, 0, empty.Failures())
}

func TestWriteMarkdown(t *testing.T) {
	outcomes := sampleOutcomes()
	var b bytes.Buffer
	require.NoError(t, WriteMarkdown(&b, Summarize("run-1", outcomes), outcomes))
	md := b.String()

	assert.True(t, strings.HasPrefix(md, "# Test run run-1\n"))
	assert.Contains(t, md, "7 testcases, 3 not passed.")
	assert.Contains(t, md, "| drf | 5 | 3 | 0 | 1 | 1 | 2 | 2 | 2 | 1 |")
	assert.Contains(t, md, "| glm_1 | glm | positive | PASSED | tuned | 4 | 0.8125 |  |")
	assert.Contains(t, md, "| drf_1 | drf | positive | PASSED | defaults | 1 | NA |  |")
	assert.Contains(t, md, "| drf_3 | drf | positive | NOT IMPL | defaults |  |  |  |")
	assert.Contains(t, md, `train failed \| response has NA`)
	assert.Contains(t, md, "| drf_n1 | drf | negative |")
}

func TestWriteHTML(t *testing.T) {
	outcomes := sampleOutcomes()
	var b bytes.Buffer
	require.NoError(t, WriteHTML(&b, Summarize("run-1", outcomes), outcomes))
	page := b.String()

	assert.Contains(t, page, "<title>scigo-testng run-1</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<td>glm_1</td>")
	assert.Contains(t, page, "NOT IMPL")
}

func TestPlotMSE(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mse.png")
	require.NoError(t, PlotMSE(sampleOutcomes(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	err = PlotMSE([]testng.Outcome{outcome("x", testng.GBM, testng.StatusFailed, 0, false)}, path)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}
