package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// exportCmd は、完成した物語の出力物を生成するのだ。
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "物語を Markdown / HTML として書き出すのだ。",
	RunE:  exportCommand,
}

func init() {
	exportCmd.Flags().BoolVar(&opts.IncludeHTML, "html", false, "HTML版も生成するのだ。")
}

func exportCommand(cmd *cobra.Command, args []string) error {
	if err := requireProject(); err != nil {
		return err
	}

	ctx := cmd.Context()
	manager, err := buildManager(ctx)
	if err != nil {
		return err
	}

	result, err := manager.Publish(ctx, opts.Slug, opts.IncludeHTML)
	if err != nil {
		return fmt.Errorf("書き出しに失敗したのだ: %w", err)
	}

	slog.Info("書き出しが完了したのだ！", "markdown", result.MarkdownPath, "html", result.HTMLPath)
	fmt.Fprintln(cmd.OutOrStdout(), result.MarkdownPath)
	return nil
}
