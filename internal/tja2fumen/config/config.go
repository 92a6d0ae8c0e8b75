// Package config はtja2fumenコマンドの設定管理を行います
package config

import (
	"flag"
	"fmt"
	"os"
)

const Version = "0.1.0"

// Config はアプリケーションの設定を保持します
type Config struct {
	InputPath   string
	OutputDir   string
	DebugMode   bool
	ShowVersion bool
}

// ParseFlags はコマンドライン引数を解析して設定を返します。
// 入力ファイルが指定されていない場合は第2戻り値がfalseになります
func ParseFlags() (*Config, bool) {
	config := &Config{}

	// カスタムUsage関数を設定（ダブルハイフン表示）
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [オプション] <input.tja>\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "  -o string")
		fmt.Fprintln(flag.CommandLine.Output(), "    \toutput directory for the generated .bin files (default: input directory)")
		fmt.Fprintln(flag.CommandLine.Output(), "  --debug")
		fmt.Fprintln(flag.CommandLine.Output(), "    \tenable debug output")
		fmt.Fprintln(flag.CommandLine.Output(), "  -d\tenable debug output (shorthand)")
		fmt.Fprintln(flag.CommandLine.Output(), "  --version")
		fmt.Fprintln(flag.CommandLine.Output(), "    \tshow version information")
		fmt.Fprintln(flag.CommandLine.Output(), "  -v\tshow version information (shorthand)")
	}

	// 出力ディレクトリ
	flag.StringVar(&config.OutputDir, "o", "", "output directory for the generated .bin files")

	// デバッグモード
	flag.BoolVar(&config.DebugMode, "debug", false, "enable debug output")
	flag.BoolVar(&config.DebugMode, "d", false, "enable debug output (shorthand)")

	// バージョン表示
	flag.BoolVar(&config.ShowVersion, "version", false, "show version information")
	flag.BoolVar(&config.ShowVersion, "v", false, "show version information (shorthand)")

	flag.Parse()

	if config.ShowVersion {
		return config, true
	}

	args := flag.Args()
	if len(args) != 1 {
		return config, false
	}
	config.InputPath = args[0]

	return config, true
}

// HandleVersion はバージョン表示を処理します
func HandleVersion(showVersion bool) {
	if showVersion {
		fmt.Printf("tja2fumen version %s\n", Version)
		os.Exit(0)
	}
}
