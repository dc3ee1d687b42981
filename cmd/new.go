package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/styles"
)

// newCmd は、新しい物語プロジェクトを作成するのだ。
var newCmd = &cobra.Command{
	Use:     "new",
	Short:   "新しい物語プロジェクトを作成するのだ。",
	PreRunE: preRunAIAppE,
	RunE:    newCommand,
}

func init() {
	newCmd.Flags().StringVarP(&opts.Title, "title", "t", "", "物語のタイトルなのだ（必須）。")
	newCmd.Flags().StringVarP(&opts.Author, "author", "a", "", "作者名なのだ。")
	newCmd.Flags().StringVar(&opts.AgeBand, "age-band", string(domain.AgeBand5to8), "対象年齢帯（2-5 / 5-8 / 6-10）なのだ。")
	newCmd.Flags().StringVarP(&opts.Style, "style", "s", styles.DefaultName, "挿絵スタイルのプリセット名なのだ。")
}

func newCommand(cmd *cobra.Command, args []string) error {
	if opts.Title == "" {
		return fmt.Errorf("--title でタイトルを指定してほしいのだ")
	}

	ctx := cmd.Context()
	manager, err := buildManager(ctx)
	if err != nil {
		return err
	}

	session, err := manager.CreateSession(ctx, opts.Title, opts.Author, domain.AgeBand(opts.AgeBand), opts.Style)
	if err != nil {
		return fmt.Errorf("プロジェクトの作成に失敗したのだ: %w", err)
	}

	slog.Info("プロジェクトを作成したのだ！", "slug", session.Slug(), "title", opts.Title, "style", session.Document().Style())
	fmt.Fprintln(cmd.OutOrStdout(), session.Slug())
	return nil
}
