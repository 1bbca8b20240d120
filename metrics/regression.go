// Package metrics は学習結果の評価指標を提供します。
package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("MSE", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("MSE", n, yPred.Len(), 0)
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// MSEMatrix は n×1 行列に対してMSEを計算する
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("MSEMatrix", "empty matrix")
	}
	if rTrue != rPred || cTrue != cPred {
		return 0, errors.NewDimensionError("MSEMatrix", rTrue, rPred, 0)
	}
	if cTrue != 1 {
		return 0, errors.NewValueError("MSEMatrix", "must be a column vector (n×1 matrix)")
	}

	var sum float64
	for i := 0; i < rTrue; i++ {
		d := yTrue.At(i, 0) - yPred.At(i, 0)
		sum += d * d
	}
	return sum / float64(rTrue), nil
}

// ProbabilityMSE は分類モデルのMSEを計算する。
// 各行について正解クラスの確率 p の誤差 (1-p)² を平均する。
// proba は n×K 行列、classes は 0..K-1 のクラスコード。
func ProbabilityMSE(classes []int, proba mat.Matrix) (float64, error) {
	n, k := proba.Dims()
	if n == 0 {
		return 0, errors.NewValueError("ProbabilityMSE", "empty matrix")
	}
	if len(classes) != n {
		return 0, errors.NewDimensionError("ProbabilityMSE", n, len(classes), 0)
	}
	var sum float64
	for i, c := range classes {
		if c < 0 || c >= k {
			return 0, errors.NewValueError("ProbabilityMSE", "class code out of range")
		}
		d := 1 - proba.At(i, c)
		sum += d * d
	}
	return sum / float64(n), nil
}
