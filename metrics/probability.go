package metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

// probabilityEps は log(0) を避けるためのクリップ幅
const probabilityEps = 1e-15

// AUC は二値ラベル（0 または 1）と正例スコアからROC曲線下面積を
// Mann-Whitney統計量として計算する。同順位のスコアには平均順位を与える。
// 片方のクラスしか存在しない場合は定義できないため 0.5 を返し、
// UndefinedMetricWarning を発行する。
func AUC(yTrue []int, score []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("AUC", "empty input")
	}
	if len(score) != n {
		return 0, errors.NewDimensionError("AUC", n, len(score), 0)
	}

	idx := make([]int, n)
	nPos := 0
	for i, y := range yTrue {
		idx[i] = i
		switch y {
		case 1:
			nPos++
		case 0:
		default:
			return 0, errors.NewValueError("AUC", fmt.Sprintf("label %d at sample %d is not 0 or 1", y, i))
		}
	}
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("auc", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	sort.SliceStable(idx, func(a, b int) bool { return score[idx[a]] < score[idx[b]] })

	// 正例の平均順位（1始まり）の合計
	rankSum := 0.0
	for i := 0; i < n; {
		j := i
		for j+1 < n && score[idx[j+1]] == score[idx[i]] {
			j++
		}
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if yTrue[idx[k]] == 1 {
				rankSum += avgRank
			}
		}
		i = j + 1
	}

	u := rankSum - float64(nPos*(nPos+1))/2
	return u / float64(nPos*nNeg), nil
}

// LogLoss は各サンプルの正解クラスに割り当てられた確率から交差エントロピー損失を計算する。
// proba は1行1サンプル、1列1クラス。確率は [eps, 1-eps] にクリップする。
func LogLoss(yTrue []int, proba mat.Matrix) (float64, error) {
	n := len(yTrue)
	if n == 0 || proba == nil {
		return 0, errors.NewValueError("LogLoss", "empty input")
	}
	rows, cols := proba.Dims()
	if rows != n {
		return 0, errors.NewDimensionError("LogLoss", n, rows, 0)
	}

	var sum float64
	for i, y := range yTrue {
		if y < 0 || y >= cols {
			return 0, errors.NewValueError("LogLoss", fmt.Sprintf("label %d out of range at sample %d", y, i))
		}
		sum += math.Log(errors.ClipValue(proba.At(i, y), probabilityEps, 1-probabilityEps))
	}
	return -sum / float64(n), nil
}

// ScoreProbabilities は予測確率から AUC と対数損失を計算して r に記録する。
// 2クラスでは正例（インデックス1）の列で AUC を、3クラス以上では
// 一対他 AUC のマクロ平均を報告する。
func (r *Report) ScoreProbabilities(yTrue []int, proba mat.Matrix) error {
	if proba == nil {
		return errors.NewValueError("ScoreProbabilities", "probabilities are nil")
	}
	rows, cols := proba.Dims()
	if rows != len(yTrue) {
		return errors.NewDimensionError("ScoreProbabilities", len(yTrue), rows, 0)
	}
	if cols != len(r.PerClass) {
		return errors.NewDimensionError("ScoreProbabilities", len(r.PerClass), cols, 1)
	}

	loss, err := LogLoss(yTrue, proba)
	if err != nil {
		return err
	}

	var auc float64
	if cols == 2 {
		if auc, err = AUC(yTrue, mat.Col(nil, 1, proba)); err != nil {
			return err
		}
	} else {
		binary := make([]int, len(yTrue))
		for c := 0; c < cols; c++ {
			for i, y := range yTrue {
				binary[i] = 0
				if y == c {
					binary[i] = 1
				}
			}
			a, err := AUC(binary, mat.Col(nil, c, proba))
			if err != nil {
				return err
			}
			auc += a
		}
		auc /= float64(cols)
	}

	r.AUC, r.LogLoss = auc, loss
	return nil
}
