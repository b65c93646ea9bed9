// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// パイプラインの各ステージで発生する前提条件違反・ナビゲーション違反・データ不足などを
// 構造化されたエラー型として表現し、呼び出し側が errors.As で判別できるようにします。
package errors

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("studio-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nil を渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// ConvergenceWarning は最適化アルゴリズムが収束しなかった場合に発生する警告です。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter or adjusting parameters.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// DataConversionWarning は列の値が暗黙的に変換・補完された場合に発生する警告です。
type DataConversionWarning struct {
	Column string
	Reason string
}

func (w *DataConversionWarning) Error() string {
	return fmt.Sprintf("column %q converted: %s", w.Column, w.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("column", w.Column).
		Str("reason", w.Reason).
		Str("type", "DataConversionWarning")
}

// NewDataConversionWarning は新しいDataConversionWarningを作成します。
func NewDataConversionWarning(column, reason string) *DataConversionWarning {
	return &DataConversionWarning{Column: column, Reason: reason}
}

// UndefinedMetricWarning は評価指標が計算できない場合に発生する警告です。
// 例えば、適合率(precision)を計算する際に、陽性クラスの予測が一つもなかった場合など。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // この条件で返される値
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning は新しいUndefinedMetricWarningを作成します。
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	パイプライン固有のエラー型
//
// ===========================================================================

// PreconditionError はステージのゲート条件や操作の前提条件が満たされていない場合のエラーです。
type PreconditionError struct {
	Op          string // 実行しようとした操作
	Stage       string // 対象ステージ
	Requirement string // 満たされていない条件
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("studio: %s: precondition for stage %s not met: %s", e.Op, e.Stage, e.Requirement)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PreconditionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("stage", e.Stage).
		Str("requirement", e.Requirement).
		Str("type", "PreconditionError")
}

// NewPreconditionError は新しいPreconditionErrorを作成し、スタックトレースを付与します。
func NewPreconditionError(op, stage, requirement string) error {
	return errors.WithStack(&PreconditionError{Op: op, Stage: stage, Requirement: requirement})
}

// NavigationError は許可されていないステージ間の移動を要求した場合のエラーです。
type NavigationError struct {
	From   string
	To     string
	Reason string
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("studio: cannot navigate from %s to %s: %s", e.From, e.To, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NavigationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("from", e.From).
		Str("to", e.To).
		Str("reason", e.Reason).
		Str("type", "NavigationError")
}

// NewNavigationError は新しいNavigationErrorを作成し、スタックトレースを付与します。
func NewNavigationError(from, to, reason string) error {
	return errors.WithStack(&NavigationError{From: from, To: to, Reason: reason})
}

// InsufficientDataError は分割後のパーティションやクラスの行数が少なすぎる場合のエラーです。
type InsufficientDataError struct {
	Partition string // "train", "test" など
	Class     string // 空でなければパーティション内の特定クラスの行数を表す
	Rows      int
	Minimum   int // この値より多い行数が必要
}

func (e *InsufficientDataError) Error() string {
	if e.Class != "" {
		return fmt.Sprintf("studio: insufficient data: class %q has %d rows in the %s partition, need more than %d",
			e.Class, e.Rows, e.Partition, e.Minimum)
	}
	return fmt.Sprintf("studio: insufficient data: %s partition has %d rows, need more than %d", e.Partition, e.Rows, e.Minimum)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InsufficientDataError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("partition", e.Partition).
		Int("rows", e.Rows).
		Int("minimum", e.Minimum).
		Str("type", "InsufficientDataError")
	if e.Class != "" {
		event.Str("class", e.Class)
	}
}

// NewInsufficientDataError は新しいInsufficientDataErrorを作成し、スタックトレースを付与します。
func NewInsufficientDataError(partition string, rows, minimum int) error {
	return errors.WithStack(&InsufficientDataError{Partition: partition, Rows: rows, Minimum: minimum})
}

// NewClassInsufficientDataError はパーティション内で class の行数が足りない場合のエラーを作成します。
func NewClassInsufficientDataError(partition, class string, rows, minimum int) error {
	return errors.WithStack(&InsufficientDataError{Partition: partition, Class: class, Rows: rows, Minimum: minimum})
}

// ModelInferenceError は学習済みハンドルが予測を返せない場合のエラーです。
type ModelInferenceError struct {
	Op  string
	Err error
}

func (e *ModelInferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("studio: %s: model cannot produce predictions: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("studio: %s: model cannot produce predictions", e.Op)
}

func (e *ModelInferenceError) Unwrap() error {
	return e.Err
}

// NewModelInferenceError は新しいModelInferenceErrorを作成し、スタックトレースを付与します。
func NewModelInferenceError(op string, err error) error {
	return errors.WithStack(&ModelInferenceError{Op: op, Err: err})
}

// ImportValidationError はモデルファイルの形式が不正な場合のエラーです。
type ImportValidationError struct {
	Field  string
	Reason string
}

func (e *ImportValidationError) Error() string {
	return fmt.Sprintf("studio: invalid model file: %s: %s", e.Field, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ImportValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("field", e.Field).
		Str("reason", e.Reason).
		Str("type", "ImportValidationError")
}

// NewImportValidationError は新しいImportValidationErrorを作成し、スタックトレースを付与します。
func NewImportValidationError(field, reason string) error {
	return errors.WithStack(&ImportValidationError{Field: field, Reason: reason})
}

// ParseError は区切りテキストの読み込みに失敗した場合のエラーです。
// 現在のアップロードに対しては致命的として扱われます。
type ParseError struct {
	Source string
	Line   int // 0 は行番号不明
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("studio: parse %s: line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("studio: parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError は新しいParseErrorを作成し、スタックトレースを付与します。
func NewParseError(source string, line int, err error) error {
	return errors.WithStack(&ParseError{Source: source, Line: line, Err: err})
}

// MissingColumnsError は予測用データセットに必要な列が欠けている場合のエラーです。
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("studio: dataset is missing required columns: %s", strings.Join(e.Missing, ", "))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MissingColumnsError) MarshalZerologObject(event *zerolog.Event) {
	event.Strs("missing", e.Missing).
		Str("type", "MissingColumnsError")
}

// NewMissingColumnsError は新しいMissingColumnsErrorを作成し、スタックトレースを付与します。
func NewMissingColumnsError(missing []string) error {
	cp := make([]string, len(missing))
	copy(cp, missing)
	return errors.WithStack(&MissingColumnsError{Missing: cp})
}

// ===========================================================================
//
//	汎用の構造化エラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` などを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("studio: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("studio: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("studio: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("studio: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("studio: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("studio: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Inf などを検出します。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "gradient_update", "loss_calculation"）
	Values    []float64 // 問題のある値
	Iteration int       // 発生したイテレーション番号
}

func (e *NumericalInstabilityError) Error() string {
	var b strings.Builder
	for i, v := range e.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		if i >= 5 {
			b.WriteString("...")
			break
		}
		fmt.Fprintf(&b, "%.6g", v)
	}
	return fmt.Sprintf("studio: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, b.String())
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return errors.WithStack(&NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrCoefficientsUnavailable はバックエンドが係数を公開していない場合のエラーです。
	ErrCoefficientsUnavailable = New("coefficients unavailable")
)
