package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

var (
	charName        string
	charDescription string
	charTraits      []string
	charExtract     bool
)

// characterCmd は、キャラクターの登録・更新を行うのだ。
var characterCmd = &cobra.Command{
	Use:   "character",
	Short: "キャラクターを登録・更新するのだ。",
	Long: `挿絵の一貫性はキャラクターの視覚特徴リストで保たれるのだ。
--extract を付けると、説明文から視覚特徴をAIに抽出させるのだよ。`,
	PreRunE: preRunAIAppE,
	RunE:    characterCommand,
}

func init() {
	characterCmd.Flags().StringVarP(&charName, "name", "n", "", "キャラクター名なのだ（必須）。")
	characterCmd.Flags().StringVarP(&charDescription, "description", "d", "", "キャラクターの説明文なのだ。")
	characterCmd.Flags().StringSliceVar(&charTraits, "traits", nil, "視覚特徴のリスト（カンマ区切り）なのだ。")
	characterCmd.Flags().BoolVar(&charExtract, "extract", false, "説明文から視覚特徴をAIで抽出するのだ。")
}

func characterCommand(cmd *cobra.Command, args []string) error {
	if err := requireProject(); err != nil {
		return err
	}
	if charName == "" {
		return fmt.Errorf("--name でキャラクター名を指定してほしいのだ")
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
	controller := session.Controller()

	traits := charTraits
	if charExtract {
		if charDescription == "" {
			return fmt.Errorf("--extract には --description が必要なのだ")
		}
		extracted, err := controller.ExtractVisualTraits(ctx, charName, charDescription)
		if err != nil {
			return fmt.Errorf("視覚特徴の抽出に失敗したのだ: %w", err)
		}
		traits = extracted
		slog.Info("視覚特徴を抽出したのだ！", "name", charName, "traits", strings.Join(traits, ", "))
	}

	// 既存なら更新、未登録なら新規登録
	if _, exists := session.Document().Character(charName); exists {
		err = controller.UpdateCharacter(charName, charDescription, traits)
	} else {
		err = controller.AddCharacter(domain.Character{
			Name:         charName,
			Description:  charDescription,
			VisualTraits: traits,
		})
	}
	if err != nil {
		return fmt.Errorf("キャラクターの保存に失敗したのだ: %w", err)
	}

	if err := manager.Store().Save(ctx, session.Slug(), session.Document()); err != nil {
		return err
	}
	slog.Info("キャラクターを保存したのだ！", "slug", session.Slug(), "name", charName)
	return nil
}
