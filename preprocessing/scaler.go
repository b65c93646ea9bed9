package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-studio/core/model"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

// ゼロ除算を避けるためのスケール下限
const minScale = 1e-8

// StandardScaler はデータを平均0、標準偏差1に変換するスケーラー
// 標準偏差は母標準偏差（N で割る）を用いる
type StandardScaler struct {
	state *model.StateManager

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差（0に近い場合は1）
	Scale []float64
}

// NewStandardScaler は未学習のStandardScalerを作成する
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{state: model.NewStateManager()}
}

// RestoreStandardScaler は保存済みの平均・標準偏差から学習済みのスケーラーを復元する
func RestoreStandardScaler(mean, std []float64) (*StandardScaler, error) {
	if len(mean) != len(std) {
		return nil, errors.NewDimensionError("RestoreStandardScaler", len(mean), len(std), 1)
	}
	s := NewStandardScaler()
	s.Mean = append([]float64(nil), mean...)
	s.Scale = make([]float64, len(std))
	for j, v := range std {
		s.Scale[j] = safeScale(v)
	}
	s.state.SetDimensions(len(mean), 0)
	s.state.SetFitted()
	return s, nil
}

// Fit は訓練データから平均と標準偏差を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		s.Mean[j] = sum / float64(r)

		sumSquares := 0.0
		for i := 0; i < r; i++ {
			diff := X.At(i, j) - s.Mean[j]
			sumSquares += diff * diff
		}
		s.Scale[j] = safeScale(math.Sqrt(sumSquares / float64(r)))
	}

	s.state.SetDimensions(c, r)
	s.state.SetFitted()
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := s.state.RequireFeatures("StandardScaler.Transform", c); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

func (s *StandardScaler) String() string {
	nFeatures, _ := s.state.GetDimensions()
	return fmt.Sprintf("StandardScaler(n_features=%d)", nFeatures)
}

// MinMaxScaler はデータを [0, 1] の範囲にスケーリングする
type MinMaxScaler struct {
	state *model.StateManager

	// DataMin は学習データの最小値
	DataMin []float64

	// DataMax は学習データの最大値
	DataMax []float64

	// Scale は各特徴量のスケール (max - min)、定数特徴量では1
	Scale []float64
}

// NewMinMaxScaler は未学習のMinMaxScalerを作成する
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{state: model.NewStateManager()}
}

// RestoreMinMaxScaler は保存済みの最小値・最大値から学習済みのスケーラーを復元する
func RestoreMinMaxScaler(dataMin, dataMax []float64) (*MinMaxScaler, error) {
	if len(dataMin) != len(dataMax) {
		return nil, errors.NewDimensionError("RestoreMinMaxScaler", len(dataMin), len(dataMax), 1)
	}
	m := NewMinMaxScaler()
	m.setRange(dataMin, dataMax)
	m.state.SetDimensions(len(dataMin), 0)
	m.state.SetFitted()
	return m, nil
}

func (m *MinMaxScaler) setRange(dataMin, dataMax []float64) {
	m.DataMin = append([]float64(nil), dataMin...)
	m.DataMax = append([]float64(nil), dataMax...)
	m.Scale = make([]float64, len(dataMin))
	for j := range dataMin {
		m.Scale[j] = safeScale(dataMax[j] - dataMin[j])
	}
}

// Fit は訓練データから最小値・最大値を計算する
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	lo := make([]float64, c)
	hi := make([]float64, c)
	for j := 0; j < c; j++ {
		lo[j], hi[j] = X.At(0, j), X.At(0, j)
		for i := 1; i < r; i++ {
			v := X.At(i, j)
			lo[j] = math.Min(lo[j], v)
			hi[j] = math.Max(hi[j], v)
		}
	}
	m.setRange(lo, hi)

	m.state.SetDimensions(c, r)
	m.state.SetFitted()
	return nil
}

// Transform は学習済みの最小値・最大値でデータをスケーリングする
// 学習範囲外の値は [0, 1] の外側に写像される（クリップしない）
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.state.RequireFitted("MinMaxScaler", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := m.state.RequireFeatures("MinMaxScaler.Transform", c); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - m.DataMin[j]) / m.Scale[j]
	}, X)
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

func (m *MinMaxScaler) String() string {
	nFeatures, _ := m.state.GetDimensions()
	return fmt.Sprintf("MinMaxScaler(n_features=%d)", nFeatures)
}

func safeScale(v float64) float64 {
	if math.Abs(v) < minScale || math.IsNaN(v) {
		return 1.0
	}
	return v
}

var (
	_ model.Transformer = (*StandardScaler)(nil)
	_ model.Transformer = (*MinMaxScaler)(nil)
)
