package model

import (
	"encoding/json"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

// ModelWeights はモデルの重みを表す構造体（シリアライゼーション用）
type ModelWeights struct {
	// ModelType はモデルの種類（LogisticRegression 等）
	ModelType string `json:"model_type"`

	// Version は重みフォーマットのバージョン（互換性チェック用）
	Version string `json:"version"`

	// Coefficients は重み係数。行は決定関数（二値分類では1行）、列は特徴量
	Coefficients [][]float64 `json:"coefficients"`

	// Intercepts は決定関数ごとの切片
	Intercepts []float64 `json:"intercepts"`

	// Classes は学習時のクラスラベル（昇順）
	Classes []int `json:"classes"`

	// Features は特徴量の名前（オプション）
	Features []string `json:"features,omitempty"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// IsFitted はモデルが学習済みかどうか
	IsFitted bool `json:"is_fitted"`
}

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(mw, "", "  ")
}

// FromJSON はJSON形式からModelWeightsをデシリアライズ
func (mw *ModelWeights) FromJSON(data []byte) error {
	return json.Unmarshal(data, mw)
}

// NFeatures は係数行列の列数を返す
func (mw *ModelWeights) NFeatures() int {
	if len(mw.Coefficients) == 0 {
		return 0
	}
	return len(mw.Coefficients[0])
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.NewValidationError("model_type", "is required", mw.ModelType)
	}
	if mw.Version == "" {
		return errors.NewValidationError("version", "is required", mw.Version)
	}
	if !mw.IsFitted {
		if len(mw.Coefficients) > 0 {
			return errors.NewValidationError("coefficients", "unfitted model should not have coefficients", len(mw.Coefficients))
		}
		return nil
	}
	if len(mw.Coefficients) == 0 {
		return errors.NewValidationError("coefficients", "fitted model must have coefficients", 0)
	}
	if len(mw.Classes) < 2 {
		return errors.NewValidationError("classes", "at least two classes are required", len(mw.Classes))
	}
	wantRows := len(mw.Classes)
	if wantRows == 2 {
		wantRows = 1
	}
	if len(mw.Coefficients) != wantRows {
		return errors.NewValidationError("coefficients", "row count does not match classes", len(mw.Coefficients))
	}
	if len(mw.Intercepts) != wantRows {
		return errors.NewValidationError("intercepts", "length does not match coefficient rows", len(mw.Intercepts))
	}
	n := mw.NFeatures()
	for _, row := range mw.Coefficients {
		if len(row) != n {
			return errors.NewValidationError("coefficients", "ragged coefficient matrix", len(row))
		}
	}
	if len(mw.Features) > 0 && len(mw.Features) != n {
		return errors.NewValidationError("features", "length does not match coefficient columns", len(mw.Features))
	}
	return nil
}

// Clone はModelWeightsのディープコピーを作成
func (mw *ModelWeights) Clone() *ModelWeights {
	clone := &ModelWeights{
		ModelType:       mw.ModelType,
		Version:         mw.Version,
		IsFitted:        mw.IsFitted,
		Coefficients:    make([][]float64, len(mw.Coefficients)),
		Intercepts:      append([]float64(nil), mw.Intercepts...),
		Classes:         append([]int(nil), mw.Classes...),
		Features:        append([]string(nil), mw.Features...),
		Hyperparameters: make(map[string]interface{}, len(mw.Hyperparameters)),
	}
	for i, row := range mw.Coefficients {
		clone.Coefficients[i] = append([]float64(nil), row...)
	}
	for k, v := range mw.Hyperparameters {
		clone.Hyperparameters[k] = v
	}
	return clone
}
