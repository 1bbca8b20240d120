package testng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(cases []TestCase) []string {
	out := make([]string, len(cases))
	for i, tc := range cases {
		out[i] = tc.ID
	}
	return out
}

func TestReadAllTestcases(t *testing.T) {
	reg := testRegistry(t)

	all := ReadAllTestcases(reg, allSpecs(), "")
	want := []string{
		"drf_1", "drf_2", "drf_3", "drf_4", "drf_5", "drf_6", "drf_7", "drf_n1", "drf_n2",
		"gbm_1", "gbm_2", "gbm_3", "gbm_n1",
		"glm_1", "glm_2", "glm_3", "glm_n1", "glm_n2",
	}
	assert.Equal(t, want, ids(all))

	glm := ReadAllTestcases(reg, allSpecs(), GLM)
	assert.Equal(t, []string{"glm_1", "glm_2", "glm_3", "glm_n1", "glm_n2"}, ids(glm))
	for _, tc := range glm {
		assert.Equal(t, GLM, tc.Algorithm)
	}

	// 表ごとに列数も行数も違ってよい
	onlyGBM := ReadAllTestcases(reg, []AlgorithmSpec{tableSpec(GBM)}, "")
	assert.Equal(t, []string{"gbm_1", "gbm_2", "gbm_3", "gbm_n1"}, ids(onlyGBM))
}

func TestFilterBySize(t *testing.T) {
	reg := testRegistry(t)
	all := ReadAllTestcases(reg, allSpecs(), DRF)
	require.NotEmpty(t, all)

	assert.Equal(t, all, FilterBySize(all, ""))

	small := FilterBySize(all, "smalldata")
	for _, tc := range small {
		if tc.Train != nil {
			assert.Equal(t, "smalldata", tc.Train.Directory, tc.ID)
		}
	}
	assert.NotContains(t, ids(small), "drf_6")
	assert.Contains(t, ids(small), "drf_4", "rows without a dataset are kept")
	assert.Contains(t, ids(small), "drf_5")

	big := FilterBySize(all, "bigdata")
	assert.Equal(t, []string{"drf_4", "drf_5", "drf_6"}, ids(big))

	logs := captureLogs(t)
	none := FilterBySize(small[:0:0], "medium")
	assert.NotNil(t, none)
	assert.Empty(t, none)
	assert.True(t, logs.ContainsMessage("no testcases for size"))
}
