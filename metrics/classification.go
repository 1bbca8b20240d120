package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

// ROCAUC はROC曲線下面積をMann-Whitney U統計量として計算する。
// yTrue は 0/1 のラベル、score は正例らしさのスコア。同順位は平均順位を使う。
//
// 正例または負例が存在しない場合は UndefinedMetricWarning を発行し NaN を返す。
func ROCAUC(yTrue, score []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("ROCAUC", "empty input")
	}
	if len(score) != n {
		return 0, errors.NewDimensionError("ROCAUC", n, len(score), 0)
	}

	var nPos int
	for _, y := range yTrue {
		switch y {
		case 1:
			nPos++
		case 0:
		default:
			return 0, errors.NewValueError("ROCAUC", "labels must be 0 or 1")
		}
	}
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in y_true"))
		return math.NaN(), nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return score[order[a]] < score[order[b]] })

	// 正例の順位和（1始まり、同順位は平均）
	var rankSum float64
	for i := 0; i < n; {
		j := i
		for j+1 < n && score[order[j+1]] == score[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if yTrue[order[k]] == 1 {
				rankSum += avg
			}
		}
		i = j + 1
	}

	u := rankSum - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg)), nil
}

// ModelMetrics は学習済みモデルの訓練データ上の指標です。
// AUC は二値分類でのみ設定されます。
type ModelMetrics struct {
	MSE  float64
	AUC  *float64
	NObs int
}

// AUCValue はAUCを返します。未定義の場合は NaN。
func (m *ModelMetrics) AUCValue() float64 {
	if m == nil || m.AUC == nil {
		return math.NaN()
	}
	return *m.AUC
}

// HasAUC はAUCが定義されているかを返します。
func (m *ModelMetrics) HasAUC() bool {
	return m != nil && m.AUC != nil
}
