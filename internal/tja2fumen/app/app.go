// Package app はアプリケーションのメインロジックを実装します
package app

import (
	"context"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/shiroemons/go-tja2fumen/internal/tja2fumen/config"
	"github.com/shiroemons/go-tja2fumen/internal/tja2fumen/fileutil"
	"github.com/shiroemons/go-tja2fumen/pkg/convert"
	"github.com/shiroemons/go-tja2fumen/pkg/fumen"
	"github.com/shiroemons/go-tja2fumen/pkg/tja"
)

// App はアプリケーションのメインロジックを管理します
type App struct {
	config *config.Config
	logger *logrus.Logger
}

// New は新しいAppを作成します
func New(cfg *config.Config) *App {
	logger := logrus.New()
	if cfg.DebugMode {
		logger.SetLevel(logrus.DebugLevel)
	}
	return &App{
		config: cfg,
		logger: logger,
	}
}

// NewWithLogger はロガーを差し替えたAppを作成します
func NewWithLogger(cfg *config.Config, logger *logrus.Logger) *App {
	return &App{
		config: cfg,
		logger: logger,
	}
}

// Run はアプリケーションを実行します。
// 入力のTJAを解析し、コースごとに変換して .bin を書き出します
func (a *App) Run(ctx context.Context) error {
	// コンテキストのキャンセルチェック
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	song, err := tja.Parse(a.config.InputPath)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrReadInput, a.config.InputPath, err)
	}
	a.logger.Debugf("文字コード %s として読み込みました", song.Encoding)
	if a.config.DebugMode {
		a.logger.Debug(spew.Sdump(song))
	}

	courses, err := convert.Song(song)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrReadInput, a.config.InputPath, err)
	}

	// 解析と変換で蓄積された診断を報告する
	for _, w := range song.Warnings.List() {
		a.logger.Warn(w.Message)
	}

	for _, name := range song.CourseNames() {
		course := song.Courses[name]
		outputPath := fileutil.OutputName(a.config.InputPath, a.config.OutputDir,
			course.Difficulty, course.Player)
		if err := fumen.Write(outputPath, courses[name]); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrWriteOutput, outputPath, err)
		}
		a.logger.Infof("%s を書き出しました", outputPath)
	}

	return nil
}
