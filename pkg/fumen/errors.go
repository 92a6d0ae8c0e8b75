package fumen

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrTruncated はファイルが途中で終わっている場合のエラー
	ErrTruncated = errors.New("ファイルが途中で終わっています")

	// ErrUnknownNoteType は不明な音符種別を読んだ場合のエラー
	ErrUnknownNoteType = errors.New("不明な音符種別です")

	// ErrLengthOverflow は音符数がファイルサイズに対して大きすぎる場合のエラー
	ErrLengthOverflow = errors.New("音符数がファイルサイズを超えています")

	// ErrMeasureOverflow は小節数がファイルサイズに対して大きすぎる場合のエラー
	ErrMeasureOverflow = errors.New("小節数がファイルサイズを超えています")
)

// ReadError はフマーンファイルの読み込みエラーを表します
type ReadError struct {
	Offset int64 // エラーを検出したファイル内位置
	Err    error // 元のエラー
}

// Error はエラーメッセージを返します
func (e *ReadError) Error() string {
	return fmt.Sprintf("オフセット0x%xの読み込みエラー: %v", e.Offset, e.Err)
}

// Unwrap は元のエラーを返します
func (e *ReadError) Unwrap() error {
	return e.Err
}

// newReadError は新しいReadErrorを作成します
func newReadError(offset int64, err error) *ReadError {
	return &ReadError{Offset: offset, Err: err}
}
