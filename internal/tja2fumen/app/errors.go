package app

import "errors"

// Common errors
var (
	// ErrReadInput は入力ファイルの読み込みや解析に失敗した場合のエラー
	ErrReadInput = errors.New("入力ファイルを読み込めません")

	// ErrWriteOutput は出力ファイルの書き出しに失敗した場合のエラー
	ErrWriteOutput = errors.New("出力ファイルを書き出せません")
)
