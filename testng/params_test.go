package testng

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"drf", DRF, false},
		{" GBM ", GBM, false},
		{"glm", GLM, false},
		{"", "", false},
		{"deeplearning", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, []Algorithm{DRF, GBM, GLM}, Algorithms())
}

func TestParam_Parse(t *testing.T) {
	sampleRate := Param{Name: "sample_rate", Kind: KindFloat, Min: 0, Max: 1, MinOpen: true}
	tests := []struct {
		name    string
		param   Param
		raw     string
		want    interface{}
		wantErr bool
	}{
		{"int", intParam("ntrees", 1), "10", int64(10), false},
		{"int float notation", intParam("ntrees", 1), "10.0", int64(10), false},
		{"int fraction", intParam("ntrees", 1), "10.5", nil, true},
		{"int below min", intParam("ntrees", 1), "0", nil, true},
		{"int not a number", intParam("ntrees", 1), "ten", nil, true},
		{"mtries minus one", intParam("mtries", -1), "-1", int64(-1), false},
		{"float", sampleRate, "0.5", 0.5, false},
		{"float open lower bound", sampleRate, "0", nil, true},
		{"float closed upper bound", sampleRate, "1", 1.0, false},
		{"float above max", sampleRate, "1.5", nil, true},
		{"float NaN", floatParam("alpha", 0, 1), "NaN", nil, true},
		{"float Inf", floatParam("lambda", 0, math.Inf(1)), "Inf", nil, true},
		{"bool x", boolParam("standardize"), "x", true, false},
		{"bool no", boolParam("standardize"), "NO", false, false},
		{"bool junk", boolParam("standardize"), "maybe", nil, true},
		{"seed negative", seedParam, "-1", int64(-1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.param.Parse(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParam_ValidateAllowsEmpty(t *testing.T) {
	assert.NoError(t, intParam("ntrees", 1).Validate(""))
	assert.NoError(t, intParam("ntrees", 1).Validate("  "))
	assert.Error(t, intParam("ntrees", 1).Validate("0"))
}

func TestOptionGroup_Selected(t *testing.T) {
	g := flags("distribution", "auto", "gaussian", "poisson")
	tests := []struct {
		name    string
		raw     RawInput
		want    string
		wantErr bool
	}{
		{"none", RawInput{}, "", false},
		{"one", RawInput{"gaussian": "x"}, "gaussian", false},
		{"explicit false", RawInput{"gaussian": "false", "poisson": "true"}, "poisson", false},
		{"two", RawInput{"gaussian": "x", "poisson": "yes"}, "", true},
		{"junk", RawInput{"auto": "perhaps"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Selected(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchema_Headers(t *testing.T) {
	s, ok := SchemaFor(GBM)
	require.True(t, ok)
	want := []string{
		"testcase_id", "test_description", "train_dataset_id", "validate_dataset_id",
		"auto", "gaussian", "bernoulli", "multinomial", "poisson", "gamma", "tweedie",
		"ntrees", "max_depth", "min_rows", "learn_rate", "sample_rate", "seed", "tweedie_power",
	}
	if diff := cmp.Diff(want, s.Headers()); diff != "" {
		t.Errorf("GBM headers mismatch (-want +got):\n%s", diff)
	}

	glm, _ := SchemaFor(GLM)
	headers := glm.Headers()
	assert.Contains(t, headers, "l_bfgs")
	assert.Contains(t, headers, ColBetaConstraints)
	assert.Contains(t, headers, ColUpperBound)

	_, ok = SchemaFor("kmeans")
	assert.False(t, ok)
}

func TestSchema_TunablesMatchEstimatorParams(t *testing.T) {
	for _, alg := range Algorithms() {
		t.Run(alg.String(), func(t *testing.T) {
			schema, _ := SchemaFor(alg)
			cfg, ok := newConfig(alg)
			require.True(t, ok)
			known := cfg.tunables().GetParams()
			for _, p := range schema.Params {
				if !p.Tunable {
					continue
				}
				_, found := known[p.Name]
				assert.True(t, found, "tunable %s is not an estimator parameter", p.Name)
			}
		})
	}
}
