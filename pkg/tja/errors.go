package tja

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrEncoding はどの文字コードでも正しく読み込めなかった場合のエラー
	ErrEncoding = errors.New("文字コードを判別できません")

	// ErrMissingBPM はBPMヘッダが存在しない場合のエラー
	ErrMissingBPM = errors.New("BPMヘッダがありません")

	// ErrInvalidBPM はBPMの値が数値でない場合のエラー
	ErrInvalidBPM = errors.New("BPMの値が数値ではありません")

	// ErrMissingOffset はOFFSETヘッダが存在しない場合のエラー
	ErrMissingOffset = errors.New("OFFSETヘッダがありません")

	// ErrInvalidOffset はOFFSETの値が数値でない場合のエラー
	ErrInvalidOffset = errors.New("OFFSETの値が数値ではありません")

	// ErrInvalidCourse はCOURSEの値が不明な場合のエラー
	ErrInvalidCourse = errors.New("不明なCOURSE値です")

	// ErrNestedStart は#STARTが入れ子になっている場合のエラー
	ErrNestedStart = errors.New("#STARTが入れ子になっています")

	// ErrEndOutsideBody は対応する#STARTのない#ENDのエラー
	ErrEndOutsideBody = errors.New("対応する#STARTのない#ENDです")

	// ErrUnmatchedBranchEnd は対応する#BRANCHSTARTのない#BRANCHENDのエラー
	ErrUnmatchedBranchEnd = errors.New("対応する#BRANCHSTARTのない#BRANCHENDです")

	// ErrDuplicateCourse は同じコースと形式の組み合わせが重複した場合のエラー
	ErrDuplicateCourse = errors.New("同じコースの譜面が重複して定義されています")

	// ErrBranchLength は分岐間で小節数が一致しない場合のエラー
	ErrBranchLength = errors.New("譜面分岐の小節数が一致しません")

	// ErrInvalidBranchKind は#BRANCHSTARTの分岐条件種別が不明な場合のエラー
	ErrInvalidBranchKind = errors.New("不明な分岐条件の種別です")
)

// ParseError はTJAファイルの解析エラーを表します
type ParseError struct {
	Line int   // 1起点の行番号（不明な場合は0）
	Err  error // 元のエラー
}

// Error はエラーメッセージを返します
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%d行目の解析エラー: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("解析エラー: %v", e.Err)
}

// Unwrap は元のエラーを返します
func (e *ParseError) Unwrap() error {
	return e.Err
}

// newParseError は新しいParseErrorを作成します
func newParseError(line int, err error) *ParseError {
	return &ParseError{Line: line, Err: err}
}
