package cmd

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// refineCmd は、既存ページの本文を指示に沿って書き直すのだ。
var refineCmd = &cobra.Command{
	Use:   "refine <index> <request...>",
	Short: "既存ページの本文を修正指示に沿って書き直すのだ。",
	Long: `「もっとワクワクさせて」のような修正指示で、対象ページの本文を
書き直すのだ。page_writing または revision フェーズでのみ使えるのだよ。`,
	Args:    cobra.MinimumNArgs(2),
	PreRunE: preRunAIAppE,
	RunE:    refineCommand,
}

func refineCommand(cmd *cobra.Command, args []string) error {
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

	text, err := session.RefinePage(ctx, index, strings.Join(args[1:], " "))
	if err != nil {
		return fmt.Errorf("ページ %d の本文修正に失敗したのだ: %w", index, err)
	}

	slog.Info("ページ本文を書き直したのだ！", "slug", session.Slug(), "page", index)
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
