package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/shiroemons/go-tja2fumen/internal/tja2fumen/app"
	"github.com/shiroemons/go-tja2fumen/internal/tja2fumen/config"
)

// 終了コード
const (
	exitOK    = 0
	exitUsage = 1
	exitParse = 2
	exitWrite = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	// コマンドライン引数の解析
	cfg, ok := config.ParseFlags()

	// バージョン表示の処理
	config.HandleVersion(cfg.ShowVersion)

	if !ok {
		flag.Usage()
		return exitUsage
	}

	// アプリケーションの実行
	application := app.New(cfg)
	if err := application.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		if errors.Is(err, app.ErrWriteOutput) {
			return exitWrite
		}
		return exitParse
	}
	return exitOK
}
