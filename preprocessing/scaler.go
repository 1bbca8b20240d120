// Package preprocessing は推定器の前処理を提供します。
package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-testng/core/model"
	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

// StandardScaler はデータを平均0、標準偏差1に変換する。
// GLMの standardize=true で使われ、係数は Mean と Scale を使って元のスケールに戻される。
type StandardScaler struct {
	state *model.StateManager

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差（定数列は1）
	Scale []float64

	// WithMean は平均を引くかどうか
	WithMean bool

	// WithStd は標準偏差で割るかどうか
	WithStd bool
}

// NewStandardScaler は新しいStandardScalerを作成する
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	XScaled, err := scaler.FitTransform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		state:    model.NewStateManager(),
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// Fit は訓練データから平均と標準偏差を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)

		if s.WithMean {
			sum := 0.0
			for _, v := range col {
				sum += v
			}
			s.Mean[j] = sum / float64(r)
		}

		s.Scale[j] = 1
		if s.WithStd {
			// 平均を引かない場合も分散は列平均まわりで計算する
			mean := s.Mean[j]
			if !s.WithMean {
				mean = 0
				for _, v := range col {
					mean += v
				}
				mean /= float64(r)
			}
			ss := 0.0
			for _, v := range col {
				ss += (v - mean) * (v - mean)
			}
			// 標準偏差が0に近い場合は1のまま（ゼロ除算を避ける）
			if sd := math.Sqrt(ss / float64(r)); sd >= 1e-8 {
				s.Scale[j] = sd
			}
		}
	}

	s.state.SetDimensions(c, r)
	s.state.SetFitted()
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.state.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}
	r, c := X.Dims()
	if nf, _ := s.state.GetDimensions(); c != nf {
		return nil, errors.NewDimensionError("StandardScaler.Transform", nf, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// FitTransform はFitとTransformを同時に実行する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// Unscale は標準化された空間の係数 beta と切片を元のスケールに戻す。
//
//	β_j = β'_j / σ_j,  b = b' - Σ β'_j μ_j / σ_j
func (s *StandardScaler) Unscale(beta []float64, intercept float64) ([]float64, float64) {
	out := make([]float64, len(beta))
	for j, b := range beta {
		out[j] = b / s.Scale[j]
		intercept -= out[j] * s.Mean[j]
	}
	return out, intercept
}

var _ model.Transformer = (*StandardScaler)(nil)
