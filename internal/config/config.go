// Package config はアプリケーション全体の環境設定を提供します。
package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultModel         = "gemini-3-flash-preview"
	DefaultImageModel    = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultProjectsDir   = "projects"
	DefaultMaxConcurrent = 2
	DefaultSoftTimeout   = 3 * time.Minute
	DefaultRateInterval  = 30 * time.Second
)

// Config はアプリケーション全体の環境設定（APIキーや保存先）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string
	ProjectsDir      string

	Options RunOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	return &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		ProjectsDir:      envutil.GetEnv("STORYBOOK_PROJECTS_DIR", DefaultProjectsDir),
	}
}

// RunOptions は CLI フラグから渡される実行時のパラメータなのだ。
type RunOptions struct {
	// 対象プロジェクト
	Slug string // --project

	// 新規作成関連
	Title   string // --title
	Author  string // --author
	AgeBand string // --age-band
	Style   string // --style

	// 生成制御
	MaxConcurrent int           // --max-concurrent
	SoftTimeout   time.Duration // --soft-timeout
	HTTPTimeout   time.Duration // --http-timeout

	// 出力関連
	IncludeHTML bool // --html
}
