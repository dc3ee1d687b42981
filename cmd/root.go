package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"

	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/pkg/workflow"
)

var opts config.RunOptions

var rootCmd = &cobra.Command{
	Use:   "storybook",
	Short: "対話で絵本をつくる生成ツールなのだ。",
	Long: `子ども向け絵本の物語づくりを対話で進め、キャラクターの見た目を保った挿絵を
生成するツールなのだ。プロジェクトはディレクトリ単位で保存されるのだよ。`,
	SilenceUsage: true,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVarP(&opts.Slug, "project", "p", "", "対象プロジェクトのスラグなのだ。")
	rootCmd.PersistentFlags().IntVar(&opts.MaxConcurrent, "max-concurrent", config.DefaultMaxConcurrent, "生成ジョブの同時実行数の上限なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.SoftTimeout, "soft-timeout", config.DefaultSoftTimeout, "生成ジョブのソフトタイムアウトなのだ。超過はキャンセル扱いなのだよ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")
}

// preRunAIAppE は、AIバックエンドを使うコマンドの実行前チェックなのだ。
func preRunAIAppE(cmd *cobra.Command, args []string) error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}
	return nil
}

// buildManager は設定と共有コンポーネントからワークフローの Manager を組み立てるのだ。
func buildManager(ctx context.Context) (*workflow.Manager, error) {
	cfg := config.LoadConfig()
	cfg.Options = opts

	httpClient := httpkit.New(opts.HTTPTimeout)

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}
	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, err
	}

	return workflow.New(ctx, workflow.ManagerArgs{
		Config:     cfg,
		HTTPClient: httpClient,
		Reader:     reader,
		Writer:     writer,
		Logger:     slog.Default(),
	})
}

// requireProject は --project の指定を必須にするのだ。
func requireProject() error {
	if opts.Slug == "" {
		return fmt.Errorf("--project でプロジェクトを指定してほしいのだ")
	}
	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
func Execute() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(
		newCmd,
		listCmd,
		phaseCmd,
		characterCmd,
		replyCmd,
		writePageCmd,
		refineCmd,
		illustrateCmd,
		exportCmd,
	)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
