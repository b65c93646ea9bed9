package metrics

import (
	"fmt"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

// Averaging は多クラス時の precision/recall/F1 の集約方法
type Averaging string

const (
	// AverageBinary は正例クラス（インデックス1）のみで計算する
	AverageBinary Averaging = "binary"
	// AverageMacro はクラスごとの値の単純平均
	AverageMacro Averaging = "macro"
)

// ClassScore は1クラス分の precision/recall/F1 とサポート数
type ClassScore struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report は予測と正解から計算した評価結果
type Report struct {
	Accuracy  float64      `json:"accuracy"`
	Precision float64      `json:"precision"`
	Recall    float64      `json:"recall"`
	F1        float64      `json:"f1Score"`
	Averaging Averaging    `json:"averaging"`
	Confusion [][]int      `json:"confusionMatrix"`
	PerClass  []ClassScore `json:"perClass"`
	Samples   int          `json:"samples"`
	// AUC と LogLoss は ScoreProbabilities が呼ばれるまで0
	AUC     float64 `json:"auc"`
	LogLoss float64 `json:"logLoss"`
}

// Clone はReportのディープコピーを返す
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	c := *r
	c.Confusion = make([][]int, len(r.Confusion))
	for i, row := range r.Confusion {
		c.Confusion[i] = append([]int(nil), row...)
	}
	c.PerClass = append([]ClassScore(nil), r.PerClass...)
	return &c
}

// ConfusionMatrix は行を正解クラス、列を予測クラスとする混同行列を返す
func ConfusionMatrix(yTrue, yPred []int, nClasses int) ([][]int, error) {
	if len(yTrue) == 0 {
		return nil, errors.NewValueError("ConfusionMatrix", "empty input")
	}
	if len(yPred) != len(yTrue) {
		return nil, errors.NewDimensionError("ConfusionMatrix", len(yTrue), len(yPred), 0)
	}
	if nClasses < 2 {
		return nil, errors.NewValueError("ConfusionMatrix", fmt.Sprintf("need at least 2 classes, got %d", nClasses))
	}

	cm := make([][]int, nClasses)
	for i := range cm {
		cm[i] = make([]int, nClasses)
	}
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t >= nClasses || p < 0 || p >= nClasses {
			return nil, errors.NewValueError("ConfusionMatrix",
				fmt.Sprintf("label out of range at sample %d: true=%d pred=%d", i, t, p))
		}
		cm[t][p]++
	}
	return cm, nil
}

// ratio は分母が0のとき UndefinedMetricWarning を発行して0を返す
func ratio(metric string, num, den int, class int) float64 {
	if den == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(metric,
			fmt.Sprintf("no samples in denominator for class %d", class), 0))
		return 0
	}
	return float64(num) / float64(den)
}

// scoreClass は混同行列からクラス c の precision/recall/F1 を計算する
func scoreClass(cm [][]int, c int) ClassScore {
	tp := cm[c][c]
	predicted, actual := 0, 0
	for k := range cm {
		predicted += cm[k][c]
		actual += cm[c][k]
	}

	s := ClassScore{Support: actual}
	s.Precision = ratio("precision", tp, predicted, c)
	s.Recall = ratio("recall", tp, actual, c)
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}

// Evaluate は整数エンコードされた予測と正解から評価結果を計算する。
// 2クラスでは正例（インデックス1）の値を、3クラス以上ではマクロ平均を報告する。
// 分母が0になる指標はエラーにせず0とする。
func Evaluate(yTrue, yPred []int, nClasses int) (*Report, error) {
	cm, err := ConfusionMatrix(yTrue, yPred, nClasses)
	if err != nil {
		return nil, err
	}

	r := &Report{Confusion: cm, Samples: len(yTrue), PerClass: make([]ClassScore, nClasses)}
	correct := 0
	for c := 0; c < nClasses; c++ {
		correct += cm[c][c]
		r.PerClass[c] = scoreClass(cm, c)
	}
	r.Accuracy = float64(correct) / float64(len(yTrue))

	if nClasses == 2 {
		r.Averaging = AverageBinary
		pos := r.PerClass[1]
		r.Precision, r.Recall, r.F1 = pos.Precision, pos.Recall, pos.F1
		return r, nil
	}

	r.Averaging = AverageMacro
	for _, s := range r.PerClass {
		r.Precision += s.Precision
		r.Recall += s.Recall
		r.F1 += s.F1
	}
	k := float64(nClasses)
	r.Precision /= k
	r.Recall /= k
	r.F1 /= k
	return r, nil
}
