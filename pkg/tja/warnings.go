package tja

import "fmt"

// Warning は処理を中断しない診断メッセージです。
// 未対応コマンドの無視や音符記号の読み替えなど、変換結果に影響する
// 自動判断を利用者へ報告するために使います。
type Warning struct {
	Message string
}

// Warnings は発生順の診断メッセージ列です。
// nilのWarningsへの追加は何もしません（複製分岐の再処理などで
// 同じ警告を二重に記録しないために利用します）。
type Warnings struct {
	list []Warning
}

// NewWarnings は新しいWarningsを作成します
func NewWarnings() *Warnings {
	return &Warnings{}
}

// Addf は診断メッセージを書式付きで追加します
func (w *Warnings) Addf(format string, args ...any) {
	if w == nil {
		return
	}
	w.list = append(w.list, Warning{Message: fmt.Sprintf(format, args...)})
}

// List は蓄積された診断メッセージを返します
func (w *Warnings) List() []Warning {
	if w == nil {
		return nil
	}
	return w.list
}

// Len は診断メッセージの件数を返します
func (w *Warnings) Len() int {
	if w == nil {
		return 0
	}
	return len(w.list)
}
