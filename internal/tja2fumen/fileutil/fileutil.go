// Package fileutil はファイル操作のユーティリティ関数を提供します
package fileutil

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shiroemons/go-tja2fumen/pkg/tja"
)

// OutputName は入力ファイル名から出力する .bin のパスを生成します。
// 難易度IDと、二人用譜面の場合はプレイヤー番号が付きます
// （例: song.tja の鬼P2譜面 -> song_m_2.bin）
func OutputName(inputPath, outputDir string, diff tja.Difficulty, player tja.Player) string {
	baseName := filepath.Base(inputPath)
	baseName = strings.TrimSuffix(baseName, filepath.Ext(baseName))

	name := fmt.Sprintf("%s_%s", baseName, diff.ID())
	if suffix := player.Suffix(); suffix != "" {
		name += "_" + suffix
	}
	name += ".bin"

	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}
	return filepath.Join(dir, name)
}
