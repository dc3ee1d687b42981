package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// phaseCmd は、物語づくりのフェーズを明示的に切り替えるのだ。
var phaseCmd = &cobra.Command{
	Use:   "phase <brainstorm|characters|page_writing|revision>",
	Short: "物語づくりのフェーズを切り替えるのだ。",
	Long: `フェーズは自動では進まないのだ。キャラクター登録は characters、
本文の執筆と確定は page_writing / revision で行うのだよ。`,
	Args: cobra.ExactArgs(1),
	RunE: phaseCommand,
}

func phaseCommand(cmd *cobra.Command, args []string) error {
	if err := requireProject(); err != nil {
		return err
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

	phase := domain.Phase(args[0])
	if err := session.Controller().EnterPhase(phase); err != nil {
		return fmt.Errorf("フェーズの切り替えに失敗したのだ: %w", err)
	}
	if err := manager.Store().Save(ctx, session.Slug(), session.Document()); err != nil {
		return err
	}

	slog.Info("フェーズを切り替えたのだ！", "slug", session.Slug(), "phase", phase)
	return nil
}
