package cmd

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
)

var appendPage bool

// writePageCmd は、対象ページの本文をAIに書かせるのだ。
var writePageCmd = &cobra.Command{
	Use:   "write-page <index>",
	Short: "対話の文脈から対象ページの本文を生成するのだ。",
	Long: `会話の記録と先行ページの本文を文脈として、対象ページの本文を生成するのだ。
page_writing または revision フェーズでのみ使えるのだよ。`,
	Args:    cobra.ExactArgs(1),
	PreRunE: preRunAIAppE,
	RunE:    writePageCommand,
}

func init() {
	writePageCmd.Flags().BoolVar(&appendPage, "append", false, "足りない場合は末尾へページを追加してから書くのだ。")
}

func writePageCommand(cmd *cobra.Command, args []string) error {
	if err := requireProject(); err != nil {
		return err
	}
	index, err := strconv.Atoi(args[0])
	if err != nil || index < 1 {
		return fmt.Errorf("ページ番号が不正なのだ: %q", args[0])
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

	if appendPage {
		for session.Document().PageCount() < index {
			session.Document().AppendPage()
		}
	}

	text, err := session.WritePage(ctx, index)
	if err != nil {
		return fmt.Errorf("ページ %d の本文生成に失敗したのだ: %w", index, err)
	}

	slog.Info("ページ本文を生成したのだ！", "slug", session.Slug(), "page", index)
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
