package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// listCmd は、保存済みプロジェクトの一覧を表示するのだ。
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "保存済みの物語プロジェクトを一覧するのだ。",
	RunE:  listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	manager, err := buildManager(ctx)
	if err != nil {
		return err
	}

	infos, err := manager.Store().List(ctx)
	if err != nil {
		return fmt.Errorf("一覧の取得に失敗したのだ: %w", err)
	}
	if len(infos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "プロジェクトはまだないのだ。`storybook new` で作成してほしいのだ。")
		return nil
	}

	for _, info := range infos {
		fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-32s %d pages\n", info.Slug, info.Title, info.PageCount)
	}
	return nil
}
