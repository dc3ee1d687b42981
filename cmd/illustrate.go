package cmd

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shouni/go-storybook-kit/pkg/orchestrator"
)

var illustrateAll bool

// illustrateCmd は、ページの挿絵を生成するのだ。
var illustrateCmd = &cobra.Command{
	Use:   "illustrate [index]",
	Short: "ページの挿絵を生成して保存するのだ。",
	Long: `ページ本文・キャラクターの視覚特徴・スタイルプリセットから挿絵プロンプトを
解決し、挿絵を生成するのだ。--all で本文のある未挿絵ページを一括処理するのだよ。`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: preRunAIAppE,
	RunE:    illustrateCommand,
}

func init() {
	illustrateCmd.Flags().BoolVar(&illustrateAll, "all", false, "挿絵が必要な全ページを一括生成するのだ。")
}

func illustrateCommand(cmd *cobra.Command, args []string) error {
	if err := requireProject(); err != nil {
		return err
	}
	if !illustrateAll && len(args) == 0 {
		return fmt.Errorf("ページ番号か --all を指定してほしいのだ")
	}

	ctx := cmd.Context()
	manager, err := buildManager(ctx)
	if err != nil {
		return err
	}
	session, err := manager.OpenSession(ctx, opts.Slug)
	if err != nil {
		return err
	}
	runner := manager.NewIllustrationRunner(session.Slug(), session.Document())

	// 進捗のpush通知をログへ流す
	go func() {
		for ev := range manager.Orchestrator().Events() {
			if ev.Status == orchestrator.StatusRunning {
				slog.Info("生成中なのだ…", "page", ev.PageIndex, "progress", fmt.Sprintf("%.0f%%", ev.Progress*100))
			}
		}
	}()

	if illustrateAll {
		if err := runner.IllustrateAll(ctx); err != nil {
			return fmt.Errorf("一括生成に失敗したのだ: %w", err)
		}
		slog.Info("一括生成が完了したのだ！", "slug", session.Slug())
		return nil
	}

	index, err := strconv.Atoi(args[0])
	if err != nil || index < 1 {
		return fmt.Errorf("ページ番号が不正なのだ: %q", args[0])
	}
	if err := runner.Illustrate(ctx, index); err != nil {
		return fmt.Errorf("ページ %d の挿絵生成に失敗したのだ: %w", index, err)
	}

	slog.Info("挿絵を生成したのだ！", "slug", session.Slug(), "page", index)
	return nil
}
