package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// replyCmd は、ユーザーの発話を物語づくりの対話へ送るのだ。
var replyCmd = &cobra.Command{
	Use:     "reply <message...>",
	Short:   "対話にメッセージを送って応答を受け取るのだ。",
	Args:    cobra.MinimumNArgs(1),
	PreRunE: preRunAIAppE,
	RunE:    replyCommand,
}

func replyCommand(cmd *cobra.Command, args []string) error {
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

	reply, err := session.Reply(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("応答の取得に失敗したのだ（発話は記録済みなのだ）: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}
