package tja

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// 文字コードの判別結果名
const (
	EncodingUTF8BOM  = "utf-8 (bom)"
	EncodingUTF8     = "utf-8"
	EncodingShiftJIS = "shift-jis"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode は入力バイト列をUTF-8文字列に変換します。
// BOM付きUTF-8、BOMなしUTF-8、Shift-JISの順で試し、置換文字の出ない
// 最初の結果を採用します（両方成立する場合はUTF-8を優先）。
// 採用した文字コード名を第2戻り値で返します。
func Decode(data []byte) (string, string, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		rest := data[len(utf8BOM):]
		if utf8.Valid(rest) {
			return string(rest), EncodingUTF8BOM, nil
		}
	}

	if utf8.Valid(data) {
		return string(data), EncodingUTF8, nil
	}

	text, err := fromShiftJIS(data)
	if err == nil && !strings.ContainsRune(text, utf8.RuneError) {
		return text, EncodingShiftJIS, nil
	}

	return "", "", ErrEncoding
}

// fromShiftJIS はShift-JISからUTF-8に変換します
func fromShiftJIS(data []byte) (string, error) {
	transformer := japanese.ShiftJIS.NewDecoder()
	ret, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), transformer))
	if err != nil {
		return "", err
	}
	return string(ret), nil
}
