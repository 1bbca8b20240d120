package metrics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

func TestROCAUC(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		score   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "perfect classifier",
			yTrue: []float64{0, 0, 0, 1, 1, 1},
			score: []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9},
			want:  1.0,
		},
		{
			name:  "worst classifier",
			yTrue: []float64{0, 0, 0, 1, 1, 1},
			score: []float64{0.9, 0.8, 0.7, 0.3, 0.2, 0.1},
			want:  0.0,
		},
		{
			name:  "all ties",
			yTrue: []float64{0, 1, 0, 1},
			score: []float64{0.5, 0.5, 0.5, 0.5},
			want:  0.5,
		},
		{
			name:  "typical case",
			yTrue: []float64{0, 0, 1, 1},
			score: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.75,
		},
		{
			name:  "partial ties",
			yTrue: []float64{0, 1, 0, 1},
			score: []float64{0.2, 0.5, 0.5, 0.9},
			// 正例 (0.5, 0.9) と負例 (0.2, 0.5) の比較: 1 + 0.5 + 1 + 1 = 3.5 / 4
			want: 0.875,
		},
		{
			name:    "non-binary labels",
			yTrue:   []float64{0, 0.5, 1},
			score:   []float64{0.1, 0.5, 0.9},
			wantErr: true,
		},
		{
			name:    "dimension mismatch",
			yTrue:   []float64{0, 1},
			score:   []float64{0.5},
			wantErr: true,
		},
		{
			name:    "empty",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ROCAUC(tt.yTrue, tt.score)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestROCAUC_SingleClassWarns(t *testing.T) {
	var warned []error
	errors.SetZerologWarnFunc(nil)
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })

	got, err := ROCAUC([]float64{1, 1, 1}, []float64{0.1, 0.4, 0.3})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
	require.Len(t, warned, 1)

	var umw *errors.UndefinedMetricWarning
	assert.True(t, errors.As(warned[0], &umw))
	assert.Equal(t, "AUC", umw.Metric)
}

// 順位和による計算が全ペア比較と一致することを確認する
func TestROCAUC_MatchesPairwiseCount(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 200
	yTrue := make([]float64, n)
	score := make([]float64, n)
	for i := range yTrue {
		if rng.Float64() < 0.4 {
			yTrue[i] = 1
		}
		// 同順位が出るように丸める
		score[i] = math.Round(rng.Float64()*20) / 20
	}

	var wins, pairs float64
	for i := range yTrue {
		for j := range yTrue {
			if yTrue[i] != 1 || yTrue[j] != 0 {
				continue
			}
			pairs++
			switch {
			case score[i] > score[j]:
				wins++
			case score[i] == score[j]:
				wins += 0.5
			}
		}
	}

	got, err := ROCAUC(yTrue, score)
	require.NoError(t, err)
	assert.InDelta(t, wins/pairs, got, 1e-12)
}

func TestModelMetrics_AUCValue(t *testing.T) {
	var nilMetrics *ModelMetrics
	assert.True(t, math.IsNaN(nilMetrics.AUCValue()))
	assert.False(t, nilMetrics.HasAUC())

	auc := 0.8
	m := &ModelMetrics{MSE: 0.1, AUC: &auc, NObs: 10}
	assert.Equal(t, 0.8, m.AUCValue())
	assert.True(t, m.HasAUC())

	assert.True(t, math.IsNaN((&ModelMetrics{MSE: 1}).AUCValue()))
}

func BenchmarkROCAUC(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	n := 10000
	yTrue := make([]float64, n)
	score := make([]float64, n)
	for i := range yTrue {
		yTrue[i] = float64(rng.Intn(2))
		score[i] = rng.Float64()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ROCAUC(yTrue, score)
	}
}
